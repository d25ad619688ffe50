package cmd

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/yeremiapane/tablebook/config"
	"github.com/yeremiapane/tablebook/database"
	"github.com/yeremiapane/tablebook/services"
	"github.com/yeremiapane/tablebook/utils"
	"gorm.io/gorm"
)

// app is what every subcommand needs: configuration, an open and migrated
// database and the engine.
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	redis *redis.Client
	svc   *services.Services
}

func bootstrap(ctx context.Context, events services.Publisher) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	utils.InitLogger(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := cfg.OpenDB()
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: db}

	cache := services.NoCache()
	client, err := cfg.RedisClient()
	if err != nil {
		return nil, err
	}
	if client != nil {
		if err := client.Ping(ctx).Err(); err != nil {
			utils.ErrorLogger.Printf("Redis unavailable, availability cache disabled: %v", err)
			client.Close()
		} else {
			a.redis = client
			cache = services.NewRedisAvailabilityCache(client, cfg.AvailabilityCacheTTL)
			utils.InfoLogger.Printf("Availability cache enabled (ttl %s)", cfg.AvailabilityCacheTTL)
		}
	}

	a.svc = services.New(db, services.Options{
		Clock:  services.NewClock(loc),
		Cache:  cache,
		Events: events,
	})
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
