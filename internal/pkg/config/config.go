package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	AdminAddr string `env:"ADMIN_ADDR" envDefault:":9091"`

	PostgresURL       string        `env:"POSTGRES_URL,required"`
	RedisAddr         string        `env:"REDIS_ADDR,required"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBCheckoutTimeout time.Duration `env:"DB_CHECKOUT_TIMEOUT" envDefault:"5s"`

	// Cache TTLs per data class. Health data stays short to bound both
	// staleness and exposure; reference data can live for much longer.
	CacheSessionTTL   time.Duration `env:"CACHE_SESSION_TTL" envDefault:"30m"`
	CacheReferenceTTL time.Duration `env:"CACHE_REFERENCE_TTL" envDefault:"24h"`
	CacheHealthTTL    time.Duration `env:"CACHE_HEALTH_TTL" envDefault:"5m"`
	CacheDefaultTTL   time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"10m"`

	MaxFailedLogins int           `env:"MAX_FAILED_LOGINS" envDefault:"5"`
	LockoutWindow   time.Duration `env:"LOCKOUT_WINDOW" envDefault:"15m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
