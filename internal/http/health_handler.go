package http

import (
	"context"
	"log/slog"
	"net/http"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness checks.
type HealthHandler struct {
	db        Pinger
	responder responder
	logger    *slog.Logger
}

// NewHealthHandler creates the health handler. db may be nil, in which
// case only process liveness is reported.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	base := fallbackLogger(logger)
	return &HealthHandler{db: db, responder: newResponder(base), logger: base}
}

// Check handles GET /healthz.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	status := healthResponse{Status: "ok", Database: "ok"}
	code := http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			scopedLogger(r.Context(), h.logger, "HealthHandler", "Check").ErrorContext(r.Context(), "database ping failed", "error", err)
			status.Status = "degraded"
			status.Database = "unreachable"
			code = http.StatusServiceUnavailable
		}
	} else {
		status.Database = "unconfigured"
	}

	h.responder.writeJSON(r.Context(), w, code, status)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
