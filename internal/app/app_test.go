package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IvanSitnikov1/tracker-bot/internal/config"
	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
	"github.com/IvanSitnikov1/tracker-bot/internal/session"
)

func TestNewWithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.Defaults()
	cfg.StoreDriver = config.StoreSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "tracker.db")

	a, err := New(ctx, cfg, observability.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	require.Nil(t, a.Pool)
	require.NoError(t, a.Migrate(ctx))
	require.IsType(t, &session.MemoryStore{}, a.Sessions)

	created, err := a.Service.CreateActivity(ctx, 1, "Read", domain.ActivityTypeCheckbox)
	require.NoError(t, err)
	view, err := a.Engine.LoadView(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, created.ID, view.Items[0].ActivityID)
}

func TestNewWithMemoryStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreDriver = config.StoreMemory

	a, err := New(context.Background(), cfg, observability.Discard())
	require.NoError(t, err)
	require.NotNil(t, a.Router(nil))
	require.NoError(t, a.Close())
}

func TestChatClientRequiresToken(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreDriver = config.StoreMemory
	a, err := New(context.Background(), cfg, observability.Discard())
	require.NoError(t, err)

	_, err = a.ChatClient()
	require.Error(t, err)

	a.Config.BotToken = "TOKEN"
	client, err := a.ChatClient()
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreDriver = "mongo"
	_, err := New(context.Background(), cfg, observability.Discard())
	require.Error(t, err)
}
