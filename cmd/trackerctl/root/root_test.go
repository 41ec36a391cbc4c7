package root

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("TRACKER_CONFIG", "")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "tracker.db"))
	t.Setenv("SESSION_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestActivitiesLifecycle(t *testing.T) {
	useSQLite(t)

	out, err := run(t, "activities", "add", "--owner", "7", "Morning", "run", "--type", "time")
	require.NoError(t, err)
	require.Contains(t, out, "created 1 Morning run")

	_, err = run(t, "activities", "add", "--owner", "7", "Morning run")
	require.ErrorContains(t, err, "already exists")

	out, err = run(t, "activities", "list", "--owner", "7")
	require.NoError(t, err)
	require.Equal(t, "1\ttime\tstopped\tMorning run\n", out)

	out, err = run(t, "activities", "list", "--owner", "8")
	require.NoError(t, err)
	require.Equal(t, "no activities\n", out)

	_, err = run(t, "activities", "delete", "--owner", "8", "1")
	require.ErrorContains(t, err, "not found")

	out, err = run(t, "activities", "delete", "--owner", "7", "1")
	require.NoError(t, err)
	require.Equal(t, "deleted 1\n", out)
}

func TestActivitiesAddRejectsUnknownType(t *testing.T) {
	useSQLite(t)
	_, err := run(t, "activities", "add", "--owner", "7", "Read", "--type", "counter")
	require.ErrorContains(t, err, "unknown activity type")
}

func TestOwnerIsRequired(t *testing.T) {
	useSQLite(t)
	_, err := run(t, "activities", "list")
	require.ErrorContains(t, err, "owner")
}

func TestExportWritesOneFilePerDay(t *testing.T) {
	useSQLite(t)
	dir := filepath.Join(t.TempDir(), "out")

	_, err := run(t, "activities", "add", "--owner", "7", "Read")
	require.NoError(t, err)

	out, err := run(t, "export", "--owner", "7", "--start", "2024-01-01", "--end", "2024-01-03", "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "wrote 3 files")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	require.Equal(t, []string{"2024-01-01.md", "2024-01-02.md", "2024-01-03.md"}, names)

	body, err := os.ReadFile(filepath.Join(dir, "2024-01-02.md"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "Read"))
}

func TestExportRejectsInvertedRange(t *testing.T) {
	useSQLite(t)
	_, err := run(t, "export", "--owner", "7", "--start", "2024-01-03", "--end", "2024-01-01", "--dir", t.TempDir())
	require.Error(t, err)
}

func TestStatsWithoutData(t *testing.T) {
	useSQLite(t)
	out, err := run(t, "stats", "--owner", "7", "--period", "week")
	require.NoError(t, err)
	require.Contains(t, out, "no data")

	_, err = run(t, "stats", "--owner", "7", "--period", "year")
	require.Error(t, err)
}

func TestPollRequiresToken(t *testing.T) {
	useSQLite(t)
	t.Setenv("BOT_TOKEN", "")
	_, err := run(t, "poll")
	require.ErrorContains(t, err, "BOT_TOKEN")
}

func TestSetWebhookRequiresSecret(t *testing.T) {
	useSQLite(t)
	t.Setenv("WEBHOOK_SECRET", "")
	_, err := run(t, "setwebhook", "--url", "https://example.org")
	require.ErrorIs(t, err, errWebhookSecret)
}
