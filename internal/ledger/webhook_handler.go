package ledger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"storage-marketplace/internal"
	"storage-marketplace/internal/transport"
	"storage-marketplace/pkg/logger"
)

type WebhookAPI interface {
	ProcessWebhookEvent(ctx context.Context, event WebhookEvent) error
}

// WebhookHandler is the gateway's callback endpoint. Reconciliation errors
// are acknowledged with 200 so the gateway does not hammer an event that can
// only be fixed by an operator; transient storage failures get 500 so the
// gateway's own retry policy re-delivers.
type WebhookHandler struct {
	*transport.BaseHandler
	Service WebhookAPI
}

func NewWebhookHandler(service WebhookAPI) *WebhookHandler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &WebhookHandler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *WebhookHandler) HandleGatewayEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.Logger.Error("webhook: invalid payload", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if event.ExternalReference == "" {
		h.WriteError(w, http.StatusBadRequest, "external_reference is required")
		return
	}
	event.Raw = body

	if err := h.Service.ProcessWebhookEvent(r.Context(), event); err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type != internal.ErrorTypeInternal {
			h.Logger.Warn("webhook acknowledged with reconciliation error",
				"error", err,
				"event_type", event.EventType,
				"external_reference", event.ExternalReference)
			h.WriteJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
			return
		}
		h.Logger.Error("webhook processing failed",
			"error", err,
			"event_type", event.EventType,
			"external_reference", event.ExternalReference)
		h.WriteError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
