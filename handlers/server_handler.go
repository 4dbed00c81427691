package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

type ServerHandler struct {
	serverRepo repositories.ServerRepository
	logger     *slog.Logger
}

func NewServerHandler(serverRepo repositories.ServerRepository, logger *slog.Logger) *ServerHandler {
	return &ServerHandler{serverRepo: serverRepo, logger: logger}
}

// Create handles POST /api/servers.
func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var server models.Server
	if err := readJSON(w, r, &server); err != nil {
		badRequestResponse(w, err)
		return
	}
	if server.ID == "" || server.Host == "" || server.Port <= 0 {
		badRequestResponse(w, fmt.Errorf("id, host and port are required"))
		return
	}

	if err := h.serverRepo.Create(r.Context(), &server); err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, jsonResponse{"server": server}, nil)
}

// Get handles GET /api/servers/{serverID}.
func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	server, err := h.serverRepo.GetByID(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"server": server}, nil)
}

// List handles GET /api/servers.
func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	servers, err := h.serverRepo.List(r.Context())
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"servers": servers}, nil)
}

// Delete handles DELETE /api/servers/{serverID}.
func (h *ServerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.serverRepo.Delete(r.Context(), chi.URLParam(r, "serverID")); err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
