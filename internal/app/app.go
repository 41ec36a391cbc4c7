// Package app wires configuration into the stores, services and bot router
// shared by the tracker binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IvanSitnikov1/tracker-bot/internal/bot"
	"github.com/IvanSitnikov1/tracker-bot/internal/chat"
	"github.com/IvanSitnikov1/tracker-bot/internal/config"
	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/export"
	"github.com/IvanSitnikov1/tracker-bot/internal/persistence/memory"
	"github.com/IvanSitnikov1/tracker-bot/internal/persistence/postgres"
	"github.com/IvanSitnikov1/tracker-bot/internal/persistence/sqlite"
	"github.com/IvanSitnikov1/tracker-bot/internal/session"
	"github.com/IvanSitnikov1/tracker-bot/internal/tracking"
)

// App holds the long-lived components built from one Config.
type App struct {
	Config   config.Config
	Logger   *log.Logger
	Pool     *pgxpool.Pool
	Service  *domain.Service
	Engine   *tracking.Engine
	Exporter *export.Exporter
	Sessions session.Store
	// Locker is set when sessions live in Redis.
	Locker session.Locker

	closers []func() error
}

// New opens the configured store and session backend.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	repo, err := a.openStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	sessions, err := a.openSessions(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Service = domain.NewService(repo)
	a.Engine = tracking.NewEngine(a.Service, tracking.WithLocation(cfg.Location()))
	a.Exporter = export.New(a.Service)
	a.Sessions = sessions
	return a, nil
}

func (a *App) openStore(ctx context.Context) (domain.Repository, error) {
	switch a.Config.StoreDriver {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, a.Config.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.Pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		var opts []postgres.Option
		if !a.Config.OutboxEnabled {
			opts = append(opts, postgres.WithoutOutbox())
		}
		a.Logger.Info("store opened", "driver", "postgres", "outbox", a.Config.OutboxEnabled)
		return postgres.NewRepository(pool, opts...), nil
	case config.StoreSQLite:
		repo, err := sqlite.Open(ctx, a.Config.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		a.Logger.Info("store opened", "driver", "sqlite", "path", a.Config.SQLitePath)
		return repo, nil
	case config.StoreMemory:
		a.Logger.Warn("store opened", "driver", "memory", "durable", false)
		return memory.NewRepository(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", a.Config.StoreDriver)
}

func (a *App) openSessions(ctx context.Context) (session.Store, error) {
	if a.Config.SessionDriver != config.SessionRedis {
		return session.NewMemoryStore(), nil
	}
	client := session.NewRedisClient(a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB)
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.Locker = session.NewRedisLocker(client, a.Config.SessionLockTTL)
	return session.NewRedisStore(client, a.Config.SessionTTL), nil
}

// Migrate applies the Postgres schema. The other stores migrate on open.
func (a *App) Migrate(ctx context.Context) error {
	if a.Pool == nil {
		return nil
	}
	return postgres.Migrate(ctx, a.Pool)
}

// Router builds the bot router over transport.
func (a *App) Router(transport bot.Transport) *bot.Router {
	opts := []bot.Option{bot.WithLogger(a.Logger.WithPrefix("bot"))}
	if a.Locker != nil {
		opts = append(opts, bot.WithSessionLocker(a.Locker))
	}
	return bot.NewRouter(a.Service, a.Engine, a.Exporter, a.Sessions, transport, opts...)
}

// ChatClient builds the Bot API client. It fails without a token.
func (a *App) ChatClient() (*chat.Client, error) {
	if a.Config.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is required")
	}
	return chat.NewClient(a.Config.BotAPIURL, a.Config.BotToken, 0), nil
}

// Close releases every opened resource in reverse order.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
