package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// ProxyReturnPath is the storefront app-proxy path the login flow returns
	// to after authentication.
	ProxyReturnPath string `env:"PROXY_RETURN_PATH, default=/apps/journey"`

	// DemoMode auto-approves surrender submissions after a fixed delay instead
	// of calling the backend validator. Development only.
	DemoMode bool `env:"DEMO_MODE, default=false"`

	// AllowTestOverride permits the test_customer_id query override. Forced
	// off outside development.
	AllowTestOverride bool `env:"ALLOW_TEST_OVERRIDE, default=false"`

	Backend BackendConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type BackendConfig struct {
	BaseURL string `env:"BACKEND_BASE_URL, default=http://localhost:9000"`
	// JWTSecret signs the HS256 service token sent on every backend request.
	JWTSecret string `env:"BACKEND_JWT_SECRET"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=journey_dashboard"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// IsProduction reports whether the service runs with production hardening:
// secure cookies on, test override off.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.IsProduction() {
		cfg.AllowTestOverride = false
		cfg.DemoMode = false
	}
	return &cfg, nil
}
