package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmoreira/tesouraria/internal/config"
)

func TestLoad_PoolDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 5, cfg.DB.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.DB.ConnMaxLifetime)
}

func TestLoad_PoolOverrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "10")
	t.Setenv("DB_MAX_IDLE_CONNS", "2")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.DB.MaxOpenConns)
	assert.Equal(t, 2, cfg.DB.MaxIdleConns)
	assert.Equal(t, 90*time.Second, cfg.DB.ConnMaxLifetime)
}
