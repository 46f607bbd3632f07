package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"tulisbareng/pkg/logger"
)

type Config struct {
	Port             string        `envconfig:"PORT" default:"8080"`
	DatabaseURL      string        `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret        string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL         time.Duration `envconfig:"TOKEN_TTL" default:"168h"`
	AutosaveInterval time.Duration `envconfig:"AUTOSAVE_INTERVAL" default:"10s"`
	AllowedOrigin    string        `envconfig:"ALLOWED_ORIGIN" default:"*"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads a .env file when present and binds the environment into Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
