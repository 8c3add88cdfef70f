package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/reminder-bot/internal/application"
)

type materializeRunner interface {
	MaterializeAll(ctx context.Context, horizonDays int) (application.MaterializeReport, error)
}

type sweepRunner interface {
	RunInitial(ctx context.Context) (application.SweepReport, error)
	RunEscalation(ctx context.Context) (application.SweepReport, error)
}

// JobsHandler exposes the background jobs over HTTP so they can be
// triggered manually or by an external scheduler.
type JobsHandler struct {
	materializer materializeRunner
	sweeper      sweepRunner
	horizonDays  int
	responder    responder
	logger       *slog.Logger
}

// NewJobsHandler creates the jobs handler. horizonDays bounds how far
// ahead the materialize job generates occurrences.
func NewJobsHandler(materializer materializeRunner, sweeper sweepRunner, horizonDays int, logger *slog.Logger) *JobsHandler {
	base := fallbackLogger(logger)
	return &JobsHandler{
		materializer: materializer,
		sweeper:      sweeper,
		horizonDays:  horizonDays,
		responder:    newResponder(base),
		logger:       base,
	}
}

func (h *JobsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return scopedLogger(ctx, h.logger, "JobsHandler", operation, attrs...)
}

// Materialize generates upcoming occurrences for every active reminder.
func (h *JobsHandler) Materialize(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.materializer == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	report, err := h.materializer.MaterializeAll(r.Context(), h.horizonDays)
	if err != nil {
		h.log(r.Context(), "Materialize").ErrorContext(r.Context(), "materialize job failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, materializeResponse{
		Templates: report.Templates,
		Created:   report.Created,
	})
}

// Sweep runs the initial reminder pass followed by the escalation pass.
func (h *JobsHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sweeper == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	initial, err := h.sweeper.RunInitial(r.Context())
	if err != nil {
		h.log(r.Context(), "Sweep").ErrorContext(r.Context(), "initial sweep failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	escalation, err := h.sweeper.RunEscalation(r.Context())
	if err != nil {
		h.log(r.Context(), "Sweep").ErrorContext(r.Context(), "escalation sweep failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sweepResponse{
		Initial:    sweepCounts{Processed: initial.Processed, Sent: initial.Sent},
		Escalation: sweepCounts{Processed: escalation.Processed, Sent: escalation.Sent},
	})
}

type materializeResponse struct {
	Templates int `json:"templates"`
	Created   int `json:"created"`
}

type sweepCounts struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
}

type sweepResponse struct {
	Initial    sweepCounts `json:"initial"`
	Escalation sweepCounts `json:"escalation"`
}
