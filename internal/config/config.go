package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings, populated from the environment.
type Config struct {
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	HTTPPort  string `env:"HTTP_PORT" envDefault:"8080"`

	JWTSecret     string `env:"JWT_SECRET" envDefault:"super-secret-key-change-in-production"`
	InternalToken string `env:"INTERNAL_TOKEN" envDefault:"internal-dev-token"`

	DraftTTL       time.Duration `env:"DRAFT_TTL" envDefault:"15m"`
	RevealWindow   time.Duration `env:"REVEAL_WINDOW" envDefault:"1h"`
	TickInterval   time.Duration `env:"TICK_INTERVAL" envDefault:"1m"`
	MedianCacheTTL time.Duration `env:"MEDIAN_CACHE_TTL" envDefault:"30s"`

	CatalogURL string        `env:"CATALOG_URL"`
	CatalogTTL time.Duration `env:"CATALOG_TTL" envDefault:"6h"`

	PublisherURL string `env:"PUBLISHER_URL"`
}

// Load reads .env when present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
