package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config interface {
	EnvConfig
	BackendConfig
	CorsConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
	GetRedisAddr() string
	GetRedisDB() int
	GetOTLPEndpoint() string
	UseFakeBackend() bool
}

// BackendConfig locates the REST API the portal is a client of.
type BackendConfig interface {
	GetBackendURL() string
	GetBackendTimeout() time.Duration
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Security
}

// Load reads an optional .env file and then the process environment.
func Load(ctx context.Context) (Config, error) {
	_ = godotenv.Load()
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith builds the configuration from an arbitrary lookuper (tests use envconfig.MapLookuper).
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var env EnvVars
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("[config Load] failed to process environment: %w", err)
	}
	return mainConfig{
		EnvVars:  env,
		Cors:     newCors(env.AllowedOrigins),
		Security: Security{},
	}, nil
}
