package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/reminder-bot/internal/config"
	"github.com/example/reminder-bot/internal/logging"
)

// RootOptions holds global flags shared by every command.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for the reminderbot CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reminderbot",
		Short: "WhatsApp reminder bot",
		Long:  "A WhatsApp bot that schedules reminders, nags until they are confirmed, and chats through an LLM.",
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMaterializeCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewInitDBCommand(opts))
	cmd.AddCommand(NewSetupWebhookCommand(opts))

	return cmd
}

// loadConfig resolves the configuration and logger for one command run.
func loadConfig(opts *RootOptions) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.NewLogger(os.Stderr, opts.Verbose), nil
}
