package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRACKER_CONFIG", "")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StorePostgres, cfg.StoreDriver)
	require.Equal(t, SessionMemory, cfg.SessionDriver)
	require.Equal(t, 25, cfg.OutboxBatchSize)
	require.Equal(t, time.UTC, cfg.Location())
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
driver = "sqlite"
sqlite_path = "/data/tracker.db"

[session]
driver = "redis"
redis_db = 0
ttl = "12h"
lock_ttl = "45s"

[bot]
timezone = "Europe/Berlin"

[kafka]
brokers = ["a:9092", "b:9092"]

[outbox]
enabled = false
batch_size = 10
`), 0o600))

	t.Setenv("TRACKER_CONFIG", path)
	t.Setenv("OUTBOX_BATCH_SIZE", "50")
	t.Setenv("KAFKA_BROKERS", "c:9092, d:9092 ,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StoreSQLite, cfg.StoreDriver)
	require.Equal(t, "/data/tracker.db", cfg.SQLitePath)
	require.Equal(t, SessionRedis, cfg.SessionDriver)
	require.Equal(t, 12*time.Hour, cfg.SessionTTL)
	require.Equal(t, 45*time.Second, cfg.SessionLockTTL)
	require.False(t, cfg.OutboxEnabled)
	require.Equal(t, 50, cfg.OutboxBatchSize)
	require.Equal(t, []string{"c:9092", "d:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("TRACKER_CONFIG", "")

	t.Run("store driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("timezone", func(t *testing.T) {
		t.Setenv("TIMEZONE", "Mars/Olympus")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("file duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[dlq]\nbase_delay = \"soon\"\n"), 0o600))
		t.Setenv("TRACKER_CONFIG", path)
		_, err := Load()
		require.ErrorContains(t, err, "dlq.base_delay")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("TRACKER_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
		_, err := Load()
		require.Error(t, err)
	})
}

func TestMalformedEnvKeepsFallback(t *testing.T) {
	t.Setenv("TRACKER_CONFIG", "")
	t.Setenv("OUTBOX_POLL_INTERVAL", "often")
	t.Setenv("OUTBOX_ENABLED", "maybe")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	require.True(t, cfg.OutboxEnabled)
}
