package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HttpServer.Port)
	assert.Equal(t, int64(32), cfg.HttpServer.MaxUploadMB)
	assert.Equal(t, "9090", cfg.GrpcServer.Port)
	assert.Equal(t, 30*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, uint32(5), cfg.Catalog.BreakerMaxFailures)
	assert.Equal(t, "ru", cfg.Catalog.DefaultLocale)
	assert.False(t, cfg.Postgres.Enabled())
}

func TestLoad_Postgres(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_DBNAME", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("POSTGRES_USER", "console")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DBNAME", "admin")
	t.Setenv("CATALOG_API_TIMEOUT", "5s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Postgres.Enabled())
	assert.Equal(t, "host=db port=5432 user=console password=pw dbname=admin sslmode=disable", cfg.Postgres.DSN())
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("warn", "production")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger("loud", "development")
	assert.Error(t, err)
}
