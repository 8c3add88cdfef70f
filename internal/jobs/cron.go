package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/example/reminder-bot/internal/application"
)

const (
	// DefaultSweepSpec fires the reminder sweeps twice an hour, matching
	// the half-hour lead time of the initial reminder.
	DefaultSweepSpec = "*/30 * * * *"
	// DefaultMaterializeSpec extends the occurrence horizon once a day.
	DefaultMaterializeSpec = "15 3 * * *"
)

type materializeRunner interface {
	MaterializeAll(ctx context.Context, horizonDays int) (application.MaterializeReport, error)
}

type sweepRunner interface {
	RunInitial(ctx context.Context) (application.SweepReport, error)
	RunEscalation(ctx context.Context) (application.SweepReport, error)
}

// Config selects the schedules and the materialization horizon.
type Config struct {
	SweepSpec       string
	MaterializeSpec string
	HorizonDays     int
}

// Runner drives the periodic background jobs.
type Runner struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewRunner registers the sweep and materialize jobs on their schedules.
// Jobs run against ctx so an application shutdown interrupts them.
func NewRunner(ctx context.Context, materializer materializeRunner, sweeper sweepRunner, cfg Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SweepSpec == "" {
		cfg.SweepSpec = DefaultSweepSpec
	}
	if cfg.MaterializeSpec == "" {
		cfg.MaterializeSpec = DefaultMaterializeSpec
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))

	if sweeper != nil {
		if _, err := c.AddFunc(cfg.SweepSpec, func() {
			runSweep(ctx, sweeper, logger)
		}); err != nil {
			return nil, fmt.Errorf("jobs: invalid sweep schedule %q: %w", cfg.SweepSpec, err)
		}
	}

	if materializer != nil {
		if _, err := c.AddFunc(cfg.MaterializeSpec, func() {
			runMaterialize(ctx, materializer, cfg.HorizonDays, logger)
		}); err != nil {
			return nil, fmt.Errorf("jobs: invalid materialize schedule %q: %w", cfg.MaterializeSpec, err)
		}
	}

	return &Runner{cron: c, logger: logger}, nil
}

// Start launches the scheduler in its own goroutine.
func (r *Runner) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("background jobs started")
}

// Stop waits for running jobs to finish.
func (r *Runner) Stop() {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.logger.Info("background jobs stopped")
}

func runSweep(ctx context.Context, sweeper sweepRunner, logger *slog.Logger) {
	initial, err := sweeper.RunInitial(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "initial sweep failed", "error", err)
		return
	}
	escalation, err := sweeper.RunEscalation(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "escalation sweep failed", "error", err)
		return
	}
	if initial.Processed > 0 || escalation.Processed > 0 {
		logger.InfoContext(ctx, "sweep finished",
			"initial_processed", initial.Processed,
			"initial_sent", initial.Sent,
			"escalation_processed", escalation.Processed,
			"escalation_sent", escalation.Sent,
		)
	}
}

func runMaterialize(ctx context.Context, materializer materializeRunner, horizonDays int, logger *slog.Logger) {
	report, err := materializer.MaterializeAll(ctx, horizonDays)
	if err != nil {
		logger.ErrorContext(ctx, "materialize job failed", "error", err)
		return
	}
	logger.InfoContext(ctx, "materialize finished", "templates", report.Templates, "created", report.Created)
}
