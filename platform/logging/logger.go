package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config содержит конфигурацию логгера сервиса
type Config struct {
	// ServiceName имя сервиса (profile/product/media/user/order)
	ServiceName string
	// Env окружение (local/docker)
	Env string
	// Level уровень логирования (debug/info/warn/error), default "info"
	Level string `env:"LOG_LEVEL"`
	// Format формат вывода ("json"|"console"), default: local=console, docker=json
	Format string `env:"LOG_FORMAT"`
	// AddCaller добавлять ли caller; для local включается всегда
	AddCaller bool `env:"LOG_ADD_CALLER"`
}

// LoadEnv дочитывает LOG_* переменные окружения поверх cfg
func LoadEnv(cfg *Config) error {
	return env.Parse(cfg)
}

// ParseLevel переводит строковый уровень в zapcore.Level
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", level)
	}
}

func (c Config) withDefaults() Config {
	if c.Format == "" {
		if c.Env == "docker" {
			c.Format = "json"
		} else {
			c.Format = "console"
		}
	}
	if c.Env != "docker" {
		c.AddCaller = true
	}
	return c
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New создаёт zap.Logger для сервиса.
// Все записи получают поля service и env, чтобы логи разных сервисов каскада можно было склеить.
func New(cfg Config) (*zap.Logger, error) {
	return NewWithSink(cfg, zapcore.AddSync(os.Stderr))
}

// NewWithSink делает то же, что New, но пишет в переданный sink (используется в тестах)
func NewWithSink(cfg Config, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	cfg = cfg.withDefaults()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig())
	default:
		return nil, fmt.Errorf("invalid log format: %s (must be json/console)", cfg.Format)
	}

	var opts []zap.Option
	if cfg.AddCaller {
		opts = append(opts, zap.AddCaller())
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, level), opts...)
	return logger.With(
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env),
	), nil
}

// Sync сбрасывает буфер логгера, игнорируя harmless ошибки
// (например, "sync /dev/stderr: invalid argument")
func Sync(log *zap.Logger) {
	_ = log.Sync()
}
