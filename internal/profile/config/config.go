package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"

	platformconfig "github.com/shestoi/GoMarket/platform/config"
)

// ServiceName имя сервиса в логах, метриках и трейсах
const ServiceName = "profile"

// Config конфигурация Profile Service
type Config struct {
	platformconfig.Common

	// OptimisticLocking включает CAS по version при обновлении профилей
	OptimisticLocking bool `env:"PROFILE_OPTIMISTIC_LOCKING" envDefault:"false"`
	CASMaxRetries     int  `env:"PROFILE_CAS_MAX_RETRIES" envDefault:"5"`
}

// Load загружает конфигурацию из переменных окружения
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse profile config: %w", err)
	}
	if err := cfg.ApplyDefaults(platformconfig.Defaults{
		ServiceName: ServiceName,
		HTTPPort:    8084,
		MongoDBName: "profiles",
	}); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет поля Profile Service
func (c Config) Validate() error {
	if err := c.Common.Validate(); err != nil {
		return err
	}
	if c.CASMaxRetries <= 0 {
		return fmt.Errorf("PROFILE_CAS_MAX_RETRIES must be positive")
	}
	return nil
}

// Fields поля для логирования
func (c Config) Fields() []zap.Field {
	return append(c.Common.Fields(),
		zap.Bool("profile_optimistic_locking", c.OptimisticLocking),
		zap.Int("profile_cas_max_retries", c.CASMaxRetries),
	)
}
