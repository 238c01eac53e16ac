package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("HEARTBEAT_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, time.Minute, cfg.HeartbeatInterval)
	assert.Equal(t, 24*time.Hour, cfg.CompoundInterval)
	assert.Equal(t, time.Hour, cfg.HeartbeatCompoundInterval)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.S3.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HEARTBEAT_INTERVAL", "15s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("KAFKA_TOPIC", "vault")
	t.Setenv("S3_BUCKET", "vault-snapshots")
	t.Setenv("RATE_LIMIT_BURST", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "vault", cfg.Kafka.Topic)
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, 3, cfg.RateLimitBurst)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("HEARTBEAT_INTERVAL", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_NonPositiveRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")

	_, err := Load()
	assert.Error(t, err)
}
