package observability

import (
	"context"
	"log/slog"

	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
)

type Options struct {
	ServiceName  string
	MetricsAddr  string
	OTLPEndpoint string
	LogLevel     slog.Level
}

// Setup wires logs, metrics and traces and returns a shutdown func for all of them.
func Setup(opts Options) func(context.Context) error {
	observability.InitLogger(opts.LogLevel)
	metricsServer := observability.InitMetrics(opts.MetricsAddr)
	tracerShutdown := observability.InitTracing(opts.ServiceName, opts.OTLPEndpoint)

	return func(ctx context.Context) error {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("failed to stop metrics server", "error", err)
		}
		return tracerShutdown(ctx)
	}
}
