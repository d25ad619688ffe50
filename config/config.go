package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/yeremiapane/tablebook/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port                 string
	GinMode              string
	DBDriver             string
	DBDSN                string
	JWTSecret            string
	Timezone             string
	RedisURL             string
	AvailabilityCacheTTL time.Duration
	SweepInterval        time.Duration
	LogLevel             string
	CORSOrigins          []string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.InfoLogger.Printf("Warning: could not load .env: %v", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:       getEnv("DB_DSN", "tablebook.db"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		Timezone:    getEnv("TIMEZONE", "Local"),
		RedisURL:    os.Getenv("REDIS_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.AvailabilityCacheTTL, err = getDuration("AVAILABILITY_CACHE_TTL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	switch cfg.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want sqlite, mysql or postgres)", cfg.DBDriver)
	}
	return cfg, nil
}

// Location is the time zone timeslot dates and times are read in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Dialector picks the gorm driver for DB_DRIVER.
func (c *Config) Dialector() gorm.Dialector {
	switch c.DBDriver {
	case "mysql":
		return mysql.Open(c.DBDSN)
	case "postgres":
		return postgres.Open(c.DBDSN)
	default:
		return sqlite.Open(c.DBDSN)
	}
}

func (c *Config) OpenDB() (*gorm.DB, error) {
	level := logger.Warn
	if c.LogLevel == "debug" {
		level = logger.Info
	}
	db, err := gorm.Open(c.Dialector(), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", c.DBDriver, err)
	}
	utils.InfoLogger.Printf("Connected to %s database", c.DBDriver)
	return db, nil
}

// RedisClient returns nil when REDIS_URL is empty. Both redis:// URLs and
// plain host:port addresses are accepted.
func (c *Config) RedisClient() (*redis.Client, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	if strings.Contains(c.RedisURL, "://") {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: c.RedisURL}), nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
