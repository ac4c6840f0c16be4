// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"dev"`
	Port    int    `env:"PORT" envDefault:"8080"`
	DataDir string `env:"DATA_DIR" envDefault:"data"`

	// Hosted inference endpoint. An empty HFAPIKey is equivalent to
	// permanent rate limiting: every hosted request falls back to the
	// local generator.
	HFAPIKey      string        `env:"HF_API_KEY"`
	HFBaseURL     string        `env:"HF_BASE_URL" envDefault:"https://api-inference.huggingface.co"`
	HostedTimeout time.Duration `env:"HOSTED_TIMEOUT" envDefault:"30s"`

	// Shared hosted-quota window. Coarse and global: it approximates the
	// free-tier budget shared by every user of this deployment.
	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1h"`
	RateLimitMaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"1000"`
	// RedisAddr, when set, moves rate-limit state to Redis so multiple
	// instances share one window.
	RedisAddr string `env:"REDIS_ADDR"`

	// EvaluateTimeout is the wall-clock budget for one attempt's fan-out.
	EvaluateTimeout time.Duration `env:"EVALUATE_TIMEOUT" envDefault:"30s"`

	RubricPath string `env:"RUBRIC_PATH" envDefault:"configs/rubric.yaml"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"prompt-practice"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// HostedEnabled reports whether outbound hosted inference calls are possible.
func (c Config) HostedEnabled() bool { return c.HFAPIKey != "" }
