package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/reminder-bot/internal/greenapi"
)

// NewSetupWebhookCommand creates the setup-webhook command. It points the
// WhatsApp gateway at this deployment's webhook endpoint.
func NewSetupWebhookCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "setup-webhook",
		Short:         "Register the webhook URL with the WhatsApp gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if err := cfg.ValidateMessaging(); err != nil {
				return err
			}
			if cfg.WebhookURL == "" {
				return fmt.Errorf("config: missing webhook_url")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			client := greenapi.NewClient(cfg.GreenAPIBaseURL, cfg.GreenAPIInstanceID, cfg.GreenAPIToken)

			state, err := client.GetStateInstance(ctx)
			if err != nil {
				return fmt.Errorf("failed to query instance state: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "instance state: %s\n", state)

			err = client.SetSettings(ctx, greenapi.Settings{
				WebhookURL:      cfg.WebhookURL,
				WebhookURLToken: cfg.WebhookToken,
				IncomingWebhook: "yes",
				OutgoingWebhook: "no",
				StateWebhook:    "no",
			})
			if err != nil {
				return fmt.Errorf("failed to update webhook settings: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "webhook registered: %s\n", cfg.WebhookURL)
			return nil
		},
	}
	return cmd
}
