// Package root holds the trackerctl command tree.
package root

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IvanSitnikov1/tracker-bot/internal/app"
	"github.com/IvanSitnikov1/tracker-bot/internal/config"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
)

const Version = "0.1.0"

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "trackerctl",
		Short:         "Operate the activity tracker bot",
		Long:          "trackerctl migrates the store, runs the bot in polling mode and inspects owner data.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.AddCommand(
		newMigrateCmd(),
		newPollCmd(),
		newWebhookCmd(),
		newExportCmd(),
		newStatsCmd(),
		newActivitiesCmd(),
	)
	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}

// openApp loads configuration and opens the configured stores. The returned
// cleanup must be called once the command finishes.
func openApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Migrate(ctx); err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = a.Close()
	}
	return a, cleanup, nil
}

func ownerFlag(cmd *cobra.Command, owner *int64) {
	cmd.Flags().Int64Var(owner, "owner", 0, "Owner (chat user) id")
	_ = cmd.MarkFlagRequired("owner")
}
