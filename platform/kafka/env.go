package kafka

import (
	"github.com/caarlos0/env/v10"
)

// LoadEnv заполняет cfg из переменных окружения KAFKA_*
func LoadEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}
