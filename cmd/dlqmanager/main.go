package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanSitnikov1/tracker-bot/internal/config"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
	"github.com/IvanSitnikov1/tracker-bot/internal/outbox"
	httptransport "github.com/IvanSitnikov1/tracker-bot/internal/transport/http"
)

const defaultDLQBatchSize = 50

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("info", "text").Fatal("load config", "err", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if cfg.StoreDriver != config.StorePostgres {
		logger.Fatal("dlq manager requires the postgres store", "driver", cfg.StoreDriver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("connect to postgres", "err", err)
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay, outbox.WithLogger(logger.WithPrefix("dlq")))

	metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler())
	go func() {
		if err := httptransport.Serve(ctx, metricsSrv, logger); err != nil {
			logger.Error("metrics server stopped", "err", err)
		}
	}()

	logger.Info("dlq manager started", "interval", cfg.DLQPollInterval, "max_retries", cfg.DLQMaxRetries)
	manager.Run(ctx, cfg.DLQPollInterval, defaultDLQBatchSize)
	logger.Info("dlq manager stopped")
}
