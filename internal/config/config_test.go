package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 500, cfg.Cache.Size)
	assert.Equal(t, "transactions", cfg.Kafka.Topic)
	assert.False(t, cfg.EventsEnabled())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvironmentAndFlags(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load([]string{"--listen-addr", ":7070", "-l", "debug"})
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr, "flags override environment")
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.BrokerList())
	assert.True(t, cfg.EventsEnabled())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_RejectsUnknownCacheBackend(t *testing.T) {
	_, err := Load([]string{"--cache", "memcached"})
	assert.ErrorContains(t, err, "unknown cache backend")
}

func TestLoad_RejectsUnknownFlag(t *testing.T) {
	_, err := Load([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Cache: CacheConfig{Backend: "none", TTL: time.Second, Size: 0}}
	assert.ErrorContains(t, cfg.Validate(), "cache size")

	cfg = &Config{Cache: CacheConfig{Backend: "none", TTL: 0, Size: 1}}
	assert.ErrorContains(t, cfg.Validate(), "cache ttl")

	cfg = &Config{
		Cache: CacheConfig{Backend: "none", TTL: time.Second, Size: 1},
		Kafka: KafkaConfig{Brokers: "localhost:9092", Topic: " "},
	}
	assert.ErrorContains(t, cfg.Validate(), "kafka topic")
}
