package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"

	platformconfig "github.com/shestoi/GoMarket/platform/config"
)

// ServiceName имя сервиса в логах, метриках и трейсах
const ServiceName = "order"

// Config конфигурация Order Service
type Config struct {
	platformconfig.Common
}

// Load загружает конфигурацию из переменных окружения
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse order config: %w", err)
	}
	if err := cfg.ApplyDefaults(platformconfig.Defaults{
		ServiceName: ServiceName,
		HTTPPort:    8080,
		MongoDBName: "orders",
	}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
