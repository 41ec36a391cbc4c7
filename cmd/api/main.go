package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanSitnikov1/tracker-bot/internal/api"
	"github.com/IvanSitnikov1/tracker-bot/internal/app"
	"github.com/IvanSitnikov1/tracker-bot/internal/auth"
	"github.com/IvanSitnikov1/tracker-bot/internal/config"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
	"github.com/IvanSitnikov1/tracker-bot/internal/outbox"
	httptransport "github.com/IvanSitnikov1/tracker-bot/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("info", "text").Fatal("load config", "err", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init", "err", err)
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		logger.Fatal("migrate", "err", err)
	}

	mux := http.NewServeMux()
	api.NewHandler(a.Service, a.Engine, a.Exporter).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	if cfg.WebhookSecret != "" {
		client, err := a.ChatClient()
		if err != nil {
			logger.Fatal("webhook", "err", err)
		}
		api.NewWebhook(a.Router(client), cfg.WebhookSecret, logger.WithPrefix("webhook")).Register(mux)
		logger.Info("webhook enabled")
	}

	var dispatcher *outbox.Dispatcher
	if a.Pool != nil && cfg.OutboxEnabled {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(a.Pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(logger.WithPrefix("outbox")))
		go dispatcher.Start(ctx)
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, api.Public)
	handler := httptransport.RequestLogger(logger.WithPrefix("http"))(authMiddleware.Wrap(mux))
	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), handler)

	if err := httptransport.Serve(ctx, server, logger); err != nil {
		logger.Error("server stopped", "err", err)
	}
	stop()

	if dispatcher != nil {
		dispatcher.Wait()
	}
	logger.Info("api stopped")
}
