package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Realtime.MaxMessages)
	assert.Equal(t, 1, cfg.Realtime.RateWindowSec)
	assert.Equal(t, 3600, cfg.Realtime.IdleTimeoutSec)
	assert.Empty(t, cfg.Redis.Addr, "redis bridge disabled by default")
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, time.Hour, time.Duration(cfg.Realtime.IdleTimeoutSec)*time.Second)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WS_MAX_MESSAGES", "25")
	t.Setenv("WS_IDLE_TIMEOUT_SEC", "600")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("HTTP_RATE_PER_SEC", "2.5")
	t.Setenv("DB_MAX_CONNS", "32")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Realtime.MaxMessages)
	assert.Equal(t, 600, cfg.Realtime.IdleTimeoutSec)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2.5, cfg.Server.RequestsPerSecond)
	assert.Equal(t, 32, cfg.Database.MaxConns)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("WS_MAX_MESSAGES", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Realtime.MaxMessages)
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: "5433", User: "app", Password: "pw",
		DBName: "raisemyhand", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://app:pw@db:5433/raisemyhand?sslmode=disable", c.DSN())

	c.URL = "postgres://elsewhere/other"
	assert.Equal(t, "postgres://elsewhere/other", c.DSN(), "explicit URL wins")
}
