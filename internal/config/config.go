package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

type Config struct {
	Server  ServerConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Metrics MetricsConfig
	Tracing TracingConfig

	ServiceName string `env:"SERVICE_NAME,default=transaction-service"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
}

type ServerConfig struct {
	Addr            string        `env:"HTTP_ADDR,default=:8080"`
	ReadTimeout     time.Duration `env:"SERVER_TIMEOUT_READ,default=5s"`
	WriteTimeout    time.Duration `env:"SERVER_TIMEOUT_WRITE,default=10s"`
	IdleTimeout     time.Duration `env:"SERVER_TIMEOUT_IDLE,default=1m"`
	ShutdownTimeout time.Duration `env:"SERVER_TIMEOUT_SHUTDOWN,default=5s"`
}

type CacheConfig struct {
	Backend string        `env:"CACHE_BACKEND,default=memory"`
	TTL     time.Duration `env:"CACHE_TTL,default=30m"`
	Size    int           `env:"CACHE_SIZE,default=500"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
}

type KafkaConfig struct {
	// Brokers is a comma separated list.
	Brokers string `env:"KAFKA_BROKERS"`
	Topic   string `env:"KAFKA_TOPIC,default=transactions"`
}

type MetricsConfig struct {
	Addr string `env:"METRICS_ADDR,default=:9090"`
}

type TracingConfig struct {
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

// Load reads .env (if present), the environment, then command line flags,
// in increasing order of precedence.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env load: %w", err)
	}

	cfg := &Config{}
	if err := envdecode.StrictDecode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("env decode: %w", err)
	}

	flags := pflag.NewFlagSet("transaction-service", pflag.ContinueOnError)
	flags.StringVarP(&cfg.Server.Addr, "listen-addr", "a", cfg.Server.Addr, "HTTP address to listen on")
	flags.StringVarP(&cfg.Cache.Backend, "cache", "c", cfg.Cache.Backend, "Cache backend: memory, redis or none")
	flags.StringVar(&cfg.Redis.Addr, "redis-addr", cfg.Redis.Addr, "Redis address")
	flags.StringVar(&cfg.Kafka.Brokers, "kafka-brokers", cfg.Kafka.Brokers, "Kafka brokers, events are disabled when empty")
	flags.StringVar(&cfg.Metrics.Addr, "metrics-addr", cfg.Metrics.Addr, "Dedicated metrics listener address")
	flags.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "Log level: debug, info, warn, error")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("flags parse: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("config loaded",
		"http_addr", cfg.Server.Addr,
		"cache_backend", cfg.Cache.Backend,
		"redis_addr", cfg.Redis.Addr,
		"kafka_brokers", cfg.Kafka.BrokerList(),
		"metrics_addr", cfg.Metrics.Addr)
	return cfg, nil
}

func (cfg *Config) Validate() error {
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	switch cfg.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	if cfg.Cache.Size <= 0 {
		return fmt.Errorf("cache size must be positive, got %d", cfg.Cache.Size)
	}
	if cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", cfg.Cache.TTL)
	}
	if cfg.EventsEnabled() && strings.TrimSpace(cfg.Kafka.Topic) == "" {
		return errors.New("kafka topic must be set when brokers are configured")
	}
	return nil
}

func (cfg *Config) EventsEnabled() bool {
	return len(cfg.Kafka.BrokerList()) > 0
}

func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
