package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/services"
)

// WebhookHandler receives matchzy event callbacks. Authentication happens in
// middleware; the handler only identifies the sending server and hands the
// raw payload to the event service.
type WebhookHandler struct {
	eventService services.EventService
	logger       *slog.Logger
}

func NewWebhookHandler(eventService services.EventService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{eventService: eventService, logger: logger}
}

// HandleEvent handles POST /api/servers/{serverID}/events.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	if serverID == "" {
		errorResponse(w, http.StatusBadRequest, "missing server id")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1_048_576))
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.eventService.HandleWebhook(r.Context(), serverID, payload); err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"status": "accepted"}, nil)
}

// RecentEvents handles GET /api/servers/{serverID}/events.
func (h *WebhookHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	events := h.eventService.RecentEvents(serverID)
	_ = writeJSON(w, http.StatusOK, jsonResponse{"events": events}, nil)
}
