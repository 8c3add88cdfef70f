package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/example/reminder-bot/internal/application"
	"github.com/example/reminder-bot/internal/greenapi"
)

const maxWebhookBody = 1 << 20

type conversationService interface {
	HandleInbound(ctx context.Context, phone, text string) (string, error)
}

// WebhookHandler receives Green API notifications and feeds text messages
// into the conversation service.
type WebhookHandler struct {
	conversations conversationService
	responder     responder
	logger        *slog.Logger
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(conversations conversationService, logger *slog.Logger) *WebhookHandler {
	base := fallbackLogger(logger)
	return &WebhookHandler{conversations: conversations, responder: newResponder(base), logger: base}
}

func (h *WebhookHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return scopedLogger(ctx, h.logger, "WebhookHandler", operation, attrs...)
}

// Receive handles one notification. Notifications that are not inbound
// text messages are acknowledged so the gateway stops retrying them.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.conversations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log(r.Context(), "Receive", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to read webhook body", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	incoming, ok, err := greenapi.ParseIncoming(body)
	if err != nil {
		h.log(r.Context(), "Receive", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to parse webhook payload", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if !ok {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, webhookResponse{Status: "ignored"})
		return
	}

	logger := h.log(r.Context(), "Receive", "phone", incoming.Phone)

	if _, err := h.conversations.HandleInbound(r.Context(), incoming.Phone, incoming.Text); err != nil {
		// The gateway retries on non-2xx; the conversation layer already
		// answered the user as best it could, so acknowledge anyway.
		logger.ErrorContext(r.Context(), "inbound message handling failed", "error", err, "error_kind", application.ErrorKind(err))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, webhookResponse{Status: "processed"})
}

type webhookResponse struct {
	Status string `json:"status"`
}
