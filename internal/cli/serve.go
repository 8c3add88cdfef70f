package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httptransport "github.com/example/reminder-bot/internal/http"
	"github.com/example/reminder-bot/internal/ics"
	"github.com/example/reminder-bot/internal/jobs"
)

// NewServeCommand creates the serve command. It runs the webhook server
// and the periodic jobs until interrupted.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Run the webhook server and background jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
	return cmd
}

func runServe(parent context.Context, rootOpts *RootOptions) error {
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

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := jobs.NewRunner(ctx, a.materializer, a.sweeper, jobs.Config{
		SweepSpec:       cfg.SweepSpec,
		MaterializeSpec: cfg.MaterializeSpec,
		HorizonDays:     cfg.HorizonDays,
	}, logger)
	if err != nil {
		return err
	}
	runner.Start()
	defer runner.Stop()

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Webhook:      httptransport.NewWebhookHandler(a.conversations, logger),
		Jobs:         httptransport.NewJobsHandler(a.materializer, a.sweeper, cfg.HorizonDays, logger),
		Calendar:     httptransport.NewCalendarHandler(a.userService, a.reminders, ics.NewFeed(""), logger),
		Health:       httptransport.NewHealthHandler(a.pool, logger),
		WebhookToken: cfg.WebhookToken,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.HTTPPort)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
