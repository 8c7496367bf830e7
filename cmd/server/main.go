package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/honeynil/BankTransactionService/internal/api"
	"github.com/honeynil/BankTransactionService/internal/config"
	"github.com/honeynil/BankTransactionService/internal/infrastructure/cache"
	"github.com/honeynil/BankTransactionService/internal/infrastructure/kafka"
	"github.com/honeynil/BankTransactionService/internal/infrastructure/redis"
	"github.com/honeynil/BankTransactionService/internal/observability"
	"github.com/honeynil/BankTransactionService/internal/repository/memory"
	service "github.com/honeynil/BankTransactionService/internal/services"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем логи, метрики, трейсы
	shutdown := observability.Setup(ctx, cfg)
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("observability shutdown failed", "error", err)
		}
	}()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	transactionRepo := memory.NewTransactionRepository()

	var kafkaProducer kafka.KafkaProducer = kafka.NopProducer{}
	if cfg.EventsEnabled() {
		kafkaProducer = kafka.NewProducer(cfg.Kafka.BrokerList(), cfg.Kafka.Topic)
		slog.Info("transaction events enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	defer kafkaProducer.Close()

	responseCache, closeCache, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	svc := service.NewCachedTransactionService(
		service.NewTransactionService(transactionRepo, kafkaProducer),
		responseCache,
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.SetupRouter(svc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Server.Addr, "cache", cfg.Cache.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		client, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedis(client, cfg.Cache.TTL), func() { client.Close() }, nil
	case config.CacheBackendNone:
		return cache.Nop{}, func() {}, nil
	default:
		return cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL), func() {}, nil
	}
}
