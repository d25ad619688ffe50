package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"PORT", "GIN_MODE", "DB_DRIVER", "DB_DSN", "JWT_SECRET", "TIMEZONE",
		"REDIS_URL", "AVAILABILITY_CACHE_TTL", "SWEEP_INTERVAL", "LOG_LEVEL", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "tablebook.db", cfg.DBDSN)
	assert.Equal(t, 5*time.Second, cfg.AvailabilityCacheTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("TIMEZONE", "Asia/Jakarta")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", loc.String())
	assert.Equal(t, "postgres", cfg.Dialector().Name())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"DB_DRIVER":              "oracle",
		"SWEEP_INTERVAL":         "often",
		"AVAILABILITY_CACHE_TTL": "5",
		"TIMEZONE":               "Mars/Olympus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRedisClient(t *testing.T) {
	cfg := &Config{}
	client, err := cfg.RedisClient()
	require.NoError(t, err)
	assert.Nil(t, client)

	cfg.RedisURL = "redis://:pw@cache:6380/2"
	client, err = cfg.RedisClient()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", client.Options().Addr)
	assert.Equal(t, 2, client.Options().DB)
	client.Close()

	cfg.RedisURL = "localhost:6379"
	client, err = cfg.RedisClient()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", client.Options().Addr)
	client.Close()

	cfg.RedisURL = "redis://cache:6379/notanumber"
	_, err = cfg.RedisClient()
	assert.Error(t, err)
}
