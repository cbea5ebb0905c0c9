package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	var cfg Config
	require.NoError(t, LoadEnv(&cfg))

	assert.Equal(t, []string{"localhost:19092"}, cfg.Brokers)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, time.Second, cfg.RetryBackoffBase)
	assert.Equal(t, ".dlq", cfg.DLQSuffix)
	assert.Equal(t, uint32(5), cfg.BreakerMaxFailures)
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("KAFKA_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("KAFKA_RETRY_BACKOFF_BASE", "250ms")

	var cfg Config
	require.NoError(t, LoadEnv(&cfg))

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoffBase)
}

func TestLoadEnv_Invalid(t *testing.T) {
	t.Setenv("KAFKA_RETRY_MAX_ATTEMPTS", "0")

	var cfg Config
	assert.Error(t, LoadEnv(&cfg))
}

func TestDefaultConfig_Valid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}
