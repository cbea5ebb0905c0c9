package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_AddsServiceAndEnvFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithSink(Config{ServiceName: "profile", Env: "docker"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("hello")
	Sync(logger)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "profile", entry["service"])
	assert.Equal(t, "docker", entry["env"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{ServiceName: "media", Env: "local", Level: "trace"})
	require.Error(t, err)
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(Config{ServiceName: "media", Env: "local", Format: "xml"})
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg := Config{ServiceName: "user", Env: "local"}
	require.NoError(t, LoadEnv(&cfg))
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}
