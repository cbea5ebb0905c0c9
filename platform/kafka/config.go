package kafka

import (
	"errors"
	"time"
)

// Config содержит конфигурацию для подключения к Kafka
type Config struct {
	// Brokers список брокеров через запятую.
	//   - локальная разработка (go run): localhost:19092
	//   - запуск в Docker: kafka:9092
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:19092"`

	// RetryMaxAttempts попыток обработки сообщения до отправки в DLQ
	RetryMaxAttempts int `env:"KAFKA_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	// RetryBackoffBase база экспоненциального backoff: base, 2*base, 4*base...
	RetryBackoffBase time.Duration `env:"KAFKA_RETRY_BACKOFF_BASE" envDefault:"1s"`
	// DLQSuffix суффикс DLQ топика: order-created -> order-created.dlq
	DLQSuffix string `env:"KAFKA_DLQ_SUFFIX" envDefault:".dlq"`

	MinBytes     int           `env:"KAFKA_MIN_BYTES" envDefault:"1"`
	MaxBytes     int           `env:"KAFKA_MAX_BYTES" envDefault:"10000000"`
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" envDefault:"10s"`

	// BreakerMaxFailures подряд идущих ошибок записи, после которых breaker открывается
	BreakerMaxFailures uint32 `env:"KAFKA_BREAKER_MAX_FAILURES" envDefault:"5"`
	// BreakerOpenTimeout сколько breaker остаётся открытым до half-open
	BreakerOpenTimeout time.Duration `env:"KAFKA_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig возвращает конфигурацию с дефолтными значениями для локальной разработки
func DefaultConfig() Config {
	return Config{
		Brokers:            []string{"localhost:19092"},
		RetryMaxAttempts:   3,
		RetryBackoffBase:   time.Second,
		DLQSuffix:          ".dlq",
		MinBytes:           1,
		MaxBytes:           10e6,
		WriteTimeout:       10 * time.Second,
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: 30 * time.Second,
	}
}

// Validate проверяет конфигурацию
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.RetryMaxAttempts <= 0 {
		return errors.New("KAFKA_RETRY_MAX_ATTEMPTS must be positive")
	}
	if c.RetryBackoffBase < 0 {
		return errors.New("KAFKA_RETRY_BACKOFF_BASE must not be negative")
	}
	if c.DLQSuffix == "" {
		return errors.New("KAFKA_DLQ_SUFFIX is required")
	}
	return nil
}
