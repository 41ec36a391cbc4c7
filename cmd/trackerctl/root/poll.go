package root

import (
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IvanSitnikov1/tracker-bot/internal/chat"
)

var errWebhookSecret = errors.New("WEBHOOK_SECRET is required")

func newPollCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Run the bot with long polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			client, err := a.ChatClient()
			if err != nil {
				return err
			}
			// getUpdates is rejected while a webhook is registered.
			if err := client.DeleteWebhook(ctx); err != nil {
				return err
			}

			poller := chat.NewPoller(client, a.Router(client),
				chat.WithPollTimeout(timeout),
				chat.WithPollerLogger(a.Logger.WithPrefix("poller")))
			a.Logger.Info("polling started", "timeout", timeout)
			return poller.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 50*time.Second, "Long-poll timeout")
	return cmd
}

func newWebhookCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "setwebhook",
		Short: "Register <url>/bot/<WEBHOOK_SECRET> with the Bot API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if a.Config.WebhookSecret == "" {
				return errWebhookSecret
			}
			client, err := a.ChatClient()
			if err != nil {
				return err
			}
			return client.SetWebhook(cmd.Context(), url+"/bot/"+a.Config.WebhookSecret, a.Config.WebhookSecret)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Public base URL of the api service")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
