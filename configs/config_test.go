package configs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avatarctic/service-kit/configs"
)

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ISSUER", "service-kit")
	t.Setenv("JWT_EXPIRATION_TIME", "15m")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("APICACHE_DEFAULT_DURATION", "5 minutes")
	t.Setenv("APICACHE_DEBUG", "")
	t.Setenv("DEBUG", "express,apicache")
	t.Setenv("S3_BUCKET", "uploads")

	cfg, err := configs.Load()
	require.NoError(t, err)
	require.Equal(t, "s3cret", cfg.JWT.Secret)
	require.Equal(t, 15*time.Minute, cfg.JWT.ExpirationTime)
	require.Equal(t, "6380", cfg.Redis.Port)
	require.Equal(t, 0, cfg.Redis.DB)
	require.Equal(t, "5 minutes", cfg.Cache.DefaultDuration)
	require.True(t, cfg.Cache.Debug)
	require.True(t, cfg.Storage.S3Enabled())
	require.False(t, cfg.Storage.GCSEnabled())
	require.Contains(t, cfg.Database.DSN, "dbname=service_kit")
}

func TestLoad_ReportsMissingJWTSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_ISSUER", "")

	cfg, err := configs.Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	require.Contains(t, err.Error(), "JWT_SECRET")
	require.Contains(t, err.Error(), "JWT_ISSUER")
}

func TestLoad_RejectsUnknownCacheStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ISSUER", "service-kit")
	t.Setenv("APICACHE_STORE", "Memcached")

	_, err := configs.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "APICACHE_STORE")

	t.Setenv("APICACHE_STORE", "MEMORY")
	cfg, err := configs.Load()
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Cache.Store)
}
