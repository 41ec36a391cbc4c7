package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/IvanSitnikov1/tracker-bot/internal/app"
	"github.com/IvanSitnikov1/tracker-bot/internal/config"
	"github.com/IvanSitnikov1/tracker-bot/internal/consumer"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
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

	var processors []func(context.Context) error
	stdlog := logger.StandardLog()

	if a.Pool != nil {
		reader := newReader(cfg, cfg.AuditTopic)
		defer reader.Close()
		proc := consumer.NewProcessor(reader, consumer.NewPersistenceHandler(a.Pool), consumer.WithLogger(stdlog))
		processors = append(processors, proc.Run)
		logger.Info("audit consumer configured", "topic", cfg.AuditTopic, "group", groupID(cfg, cfg.AuditTopic))
	} else {
		logger.Warn("audit consumer disabled, store is not postgres", "driver", cfg.StoreDriver)
	}

	if cfg.UpdatesTopic != "" {
		client, err := a.ChatClient()
		if err != nil {
			logger.Fatal("updates consumer", "err", err)
		}
		reader := newReader(cfg, cfg.UpdatesTopic)
		defer reader.Close()
		proc := consumer.NewProcessor(reader, consumer.NewUpdateHandler(a.Router(client)),
			consumer.WithLogger(stdlog), consumer.WithDecoder(consumer.DecodeJSON))
		processors = append(processors, proc.Run)
		logger.Info("updates consumer configured", "topic", cfg.UpdatesTopic, "group", groupID(cfg, cfg.UpdatesTopic))
	}

	metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler())
	go func() {
		if err := httptransport.Serve(ctx, metricsSrv, logger); err != nil {
			logger.Error("metrics server stopped", "err", err)
		}
	}()

	var wg sync.WaitGroup
	for _, run := range processors {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", "err", err)
				stop()
			}
		}(run)
	}

	<-ctx.Done()
	logger.Info("consumer shutdown requested")
	wg.Wait()
}

func newReader(cfg config.Config, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         groupID(cfg, topic),
		Topic:           topic,
		MinBytes:        1,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
}

// groupID keeps the two readers in separate consumer groups.
func groupID(cfg config.Config, topic string) string {
	return cfg.ConsumerGroupID + "-" + topic
}
