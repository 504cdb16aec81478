package config

import (
	"strings"
	"time"
)

// EnvVars is populated by go-envconfig. Field tags carry the variable names and defaults.
type EnvVars struct {
	Port           string        `env:"PORT, default=8080"`
	AppName        string        `env:"APP_NAME, default=Zenty"`
	Env            string        `env:"ENV, default=DEV"`
	LogLevel       string        `env:"LOG_LEVEL, default=info"`
	BaseURL        string        `env:"BASE_URL, default=http://localhost:8080"`
	BackendURL     string        `env:"BACKEND_URL, default=http://localhost:3000"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT, default=10s"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisDB        int           `env:"REDIS_DB, default=0"`
	OTLPEndpoint   string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:5173"`
	FakeBackend    bool          `env:"FAKE_BACKEND, default=false"`
}

var _ EnvConfig = EnvVars{}
var _ BackendConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	if strings.HasPrefix(e.Port, ":") {
		return e.Port
	}
	return ":" + e.Port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

// GetEnv returns the deployment environment, "DEV" enables route logging and pretty logs.
func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// GetBaseURL returns the public URL of the portal (e.g., "https://app.zenty.fr")
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(e.BaseURL, "/")
}

func (e EnvVars) GetBackendURL() string {
	return strings.TrimRight(e.BackendURL, "/")
}

func (e EnvVars) GetBackendTimeout() time.Duration {
	return e.BackendTimeout
}

// GetRedisAddr is empty when device storage should stay in process memory.
func (e EnvVars) GetRedisAddr() string {
	return e.RedisAddr
}

func (e EnvVars) GetRedisDB() int {
	return e.RedisDB
}

func (e EnvVars) GetOTLPEndpoint() string {
	return e.OTLPEndpoint
}

func (e EnvVars) UseFakeBackend() bool {
	return e.FakeBackend
}
