package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/reminder-bot/internal/application"
	"github.com/example/reminder-bot/internal/ics"
	"github.com/example/reminder-bot/internal/persistence"
)

const calendarWindowDays = 30

type calendarUserLookup interface {
	GetByPhone(ctx context.Context, phone string) (persistence.User, error)
}

type upcomingLister interface {
	ListUpcoming(ctx context.Context, ownerID string, days int) ([]persistence.Instance, error)
}

// CalendarHandler serves a per-user iCalendar feed of upcoming
// occurrences, suitable for subscribing from a calendar app.
type CalendarHandler struct {
	users     calendarUserLookup
	reminders upcomingLister
	feed      *ics.Feed
	responder responder
	logger    *slog.Logger
}

// NewCalendarHandler creates the calendar handler.
func NewCalendarHandler(users calendarUserLookup, reminders upcomingLister, feed *ics.Feed, logger *slog.Logger) *CalendarHandler {
	base := fallbackLogger(logger)
	return &CalendarHandler{users: users, reminders: reminders, feed: feed, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return scopedLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

// Serve renders the feed for GET /calendar/{phone}.ics.
func (h *CalendarHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil || h.reminders == nil || h.feed == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	phone := calendarPhone(r.URL.Path)
	if phone == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPhone)
		return
	}

	logger := h.log(r.Context(), "Serve", "phone", phone)

	owner, err := h.users.GetByPhone(r.Context(), phone)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to resolve calendar owner", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	instances, err := h.reminders.ListUpcoming(r.Context(), owner.ID, calendarWindowDays)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list upcoming occurrences", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	body := h.feed.Build(owner, instances)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write calendar feed", "error", err)
	}
}

// calendarPhone extracts the phone number from a /calendar/{phone}.ics path.
func calendarPhone(path string) string {
	rest, ok := strings.CutPrefix(path, "/calendar/")
	if !ok {
		return ""
	}
	phone, ok := strings.CutSuffix(rest, ".ics")
	if !ok || phone == "" || strings.Contains(phone, "/") {
		return ""
	}
	return phone
}
