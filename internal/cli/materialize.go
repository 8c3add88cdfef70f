package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewMaterializeCommand creates the materialize command. It generates
// upcoming occurrences for every active reminder and exits.
func NewMaterializeCommand(rootOpts *RootOptions) *cobra.Command {
	var horizonDays int

	cmd := &cobra.Command{
		Use:           "materialize",
		Short:         "Generate upcoming reminder occurrences",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if horizonDays <= 0 {
				horizonDays = cfg.HorizonDays
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

			report, err := a.materializer.MaterializeAll(ctx, horizonDays)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "materialized %d occurrences across %d reminders\n", report.Created, report.Templates)
			return nil
		},
	}

	cmd.Flags().IntVar(&horizonDays, "horizon-days", 0, "how many days ahead to generate (defaults to the configured horizon)")

	return cmd
}
