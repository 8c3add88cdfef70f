package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSweepCommand creates the sweep command. It runs one initial pass and
// one escalation pass, sending any due reminders, then exits.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sweep",
		Short:         "Send due and overdue reminders once",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if err := cfg.ValidateMessaging(); err != nil {
				return err
			}
			if err := cfg.ValidateAgent(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			initial, err := a.sweeper.RunInitial(ctx)
			if err != nil {
				return err
			}
			escalation, err := a.sweeper.RunEscalation(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initial: sent %d of %d due, escalation: sent %d of %d overdue\n",
				initial.Sent, initial.Processed, escalation.Sent, escalation.Processed)
			return nil
		},
	}
	return cmd
}
