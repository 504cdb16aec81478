package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
	"github.com/zenty/portal/internal/config"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := config.LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.GetPort())
	require.Equal(t, "Zenty", cfg.GetAppName())
	require.Equal(t, "DEV", cfg.GetEnv())
	require.Equal(t, "http://localhost:3000", cfg.GetBackendURL())
	require.Equal(t, 10*time.Second, cfg.GetBackendTimeout())
	require.Empty(t, cfg.GetRedisAddr())
	require.False(t, cfg.UseFakeBackend())
	require.True(t, cfg.GetAllowedOrigins().IsAllowedOrigin("http://localhost:5173"))
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := config.LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":                 ":9000",
		"ENV":                  "prod",
		"BACKEND_URL":          "https://api.zenty.fr/",
		"BACKEND_TIMEOUT":      "3s",
		"REDIS_ADDR":           "localhost:6379",
		"REDIS_DB":             "2",
		"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
		"FAKE_BACKEND":         "true",
	}))
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.GetPort())
	require.Equal(t, "PROD", cfg.GetEnv())
	require.Equal(t, "https://api.zenty.fr", cfg.GetBackendURL())
	require.Equal(t, 3*time.Second, cfg.GetBackendTimeout())
	require.Equal(t, "localhost:6379", cfg.GetRedisAddr())
	require.Equal(t, 2, cfg.GetRedisDB())
	require.True(t, cfg.UseFakeBackend())

	origins := cfg.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example"))
	require.True(t, origins.IsAllowedOrigin("https://b.example"))
	require.False(t, origins.IsAllowedOrigin("http://localhost:5173"))
}

func TestLoadWith_InvalidDuration(t *testing.T) {
	_, err := config.LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"BACKEND_TIMEOUT": "soon",
	}))
	require.Error(t, err)
}
