package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	// MaxClients comes from the command line, not the environment.
	MaxClients int `validate:"min=1"`

	RelayPort uint16 `env:"RELAY_PORT" envDefault:"8080" validate:"min=1"`
	// WriteTimeout is the per-write deadline for TCP and websocket peers.
	// Zero disables it on both.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	SessionLimit int           `env:"SESSION_LIMIT" envDefault:"0"    validate:"min=0"`

	AdminEnabled   bool   `env:"ADMIN_ENABLED"    envDefault:"false"`
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`

	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost    string `env:"REDIS_HOST"    envDefault:"localhost"`
	RedisPort    uint16 `env:"REDIS_PORT"    envDefault:"6379" validate:"min=1000,max=65535"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFile  string `env:"LOG_FILE"`
}

func LoadConfig(maxClients int) (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{MaxClients: maxClients}
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	validate := validator.New()
	if err = validate.Struct(cfg); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
