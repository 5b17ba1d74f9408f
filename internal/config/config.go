package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	// DATABASE_URL is optional: when empty the server runs on the in-memory
	// ledger store (useful for local runs and demos).
	DatabaseURL   string        `env:"DATABASE_URL"`
	Port          string        `env:"PORT" envDefault:"8080"`
	CORSOrigin    string        `env:"CORS_ORIGIN" envDefault:"*"`
	QuoteProvider string        `env:"QUOTE_PROVIDER" envDefault:"yahoo"`
	QuoteTTL      time.Duration `env:"QUOTE_TTL" envDefault:"30s"`
	StartingCash  string        `env:"STARTING_CASH" envDefault:"10000.00"`
	KafkaBrokers  string        `env:"KAFKA_BROKERS"`
	KafkaTopic    string        `env:"KAFKA_TOPIC" envDefault:"ledger-events"`
}

func Load() (Config, error) {
	var cfg Config
	return cfg, env.Parse(&cfg)
}
