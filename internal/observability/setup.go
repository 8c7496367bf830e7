package observability

import (
	"context"
	"net/http"

	"github.com/honeynil/BankTransactionService/internal/config"
	"github.com/honeynil/BankTransactionService/internal/infrastructure/observability"
)

// Setup initializes logs, metrics and traces and returns a shutdown func
// that flushes spans and stops the metrics listener.
func Setup(ctx context.Context, cfg *config.Config) func(context.Context) error {
	observability.InitLogger(cfg.LogLevel)
	metricsSrv := observability.InitMetrics(cfg.Metrics.Addr)
	tracerShutdown := observability.InitTracing(ctx, cfg.ServiceName, cfg.Tracing.OTLPEndpoint)

	return func(ctx context.Context) error {
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
				return err
			}
		}
		return tracerShutdown(ctx)
	}
}
