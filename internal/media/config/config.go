package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/media/storage"
	platformconfig "github.com/shestoi/GoMarket/platform/config"
)

// ServiceName имя сервиса в логах, метриках и трейсах
const ServiceName = "media"

// Бэкенды хранения файлов
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// S3Config параметры бакета
type S3Config struct {
	Bucket       string `env:"MEDIA_S3_BUCKET"`
	Endpoint     string `env:"MEDIA_S3_ENDPOINT"`
	Region       string `env:"MEDIA_S3_REGION" envDefault:"us-east-1"`
	AccessKey    string `env:"MEDIA_S3_ACCESS_KEY"`
	SecretKey    string `env:"MEDIA_S3_SECRET_KEY"`
	UsePathStyle bool   `env:"MEDIA_S3_USE_PATH_STYLE" envDefault:"true"`
}

// Config конфигурация Media Service
type Config struct {
	platformconfig.Common

	StorageBackend  string `env:"MEDIA_STORAGE_BACKEND" envDefault:"local"`
	StorageLocation string `env:"MEDIA_STORAGE_LOCATION" envDefault:"data/media"`
	S3              S3Config
}

// Load загружает конфигурацию из переменных окружения
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse media config: %w", err)
	}
	if err := cfg.ApplyDefaults(platformconfig.Defaults{
		ServiceName: ServiceName,
		HTTPPort:    8083,
		MongoDBName: "media",
	}); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет настройки хранилища
func (c Config) Validate() error {
	if err := c.Common.Validate(); err != nil {
		return err
	}
	switch c.StorageBackend {
	case StorageLocal:
		if c.StorageLocation == "" {
			return fmt.Errorf("MEDIA_STORAGE_LOCATION is required for local storage")
		}
	case StorageS3:
		if c.S3.Bucket == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return fmt.Errorf("MEDIA_S3_BUCKET, MEDIA_S3_ACCESS_KEY and MEDIA_S3_SECRET_KEY are required for s3 storage")
		}
	default:
		return fmt.Errorf("invalid MEDIA_STORAGE_BACKEND: %s (must be 'local' or 's3')", c.StorageBackend)
	}
	return nil
}

// StorageS3Config параметры для storage.NewS3FileStore
func (c Config) StorageS3Config() storage.S3Config {
	return storage.S3Config{
		Bucket:       c.S3.Bucket,
		Endpoint:     c.S3.Endpoint,
		Region:       c.S3.Region,
		AccessKey:    c.S3.AccessKey,
		SecretKey:    c.S3.SecretKey,
		UsePathStyle: c.S3.UsePathStyle,
	}
}

// Fields поля для логирования; ключи S3 не выводятся
func (c Config) Fields() []zap.Field {
	return append(c.Common.Fields(),
		zap.String("media_storage_backend", c.StorageBackend),
		zap.String("media_storage_location", c.StorageLocation),
		zap.String("media_s3_bucket", c.S3.Bucket),
		zap.String("media_s3_endpoint", c.S3.Endpoint),
	)
}
