package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/reminder-bot/internal/persistence/sqlite"
)

// NewInitDBCommand creates the init-db command. It creates the database
// file and applies any pending migrations.
func NewInitDBCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "init-db",
		Short:         "Create the database and apply migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLitePath))
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer pool.Close()

			if err := sqlite.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s\n", cfg.SQLitePath)
			return nil
		},
	}
	return cmd
}
