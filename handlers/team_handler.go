package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

type TeamHandler struct {
	teamRepo repositories.TeamRepository
	logger   *slog.Logger
}

func NewTeamHandler(teamRepo repositories.TeamRepository, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{teamRepo: teamRepo, logger: logger}
}

// Upsert handles PUT /api/teams/{id}.
func (h *TeamHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var team models.Team
	if err := readJSON(w, r, &team); err != nil {
		badRequestResponse(w, err)
		return
	}
	team.ID = chi.URLParam(r, "id")
	if team.Name == "" {
		badRequestResponse(w, fmt.Errorf("team name is required"))
		return
	}
	if len(team.Players) == 0 {
		badRequestResponse(w, fmt.Errorf("team must have at least one player"))
		return
	}
	for _, p := range team.Players {
		if p.SteamID == "" {
			badRequestResponse(w, fmt.Errorf("every player needs a steam_id"))
			return
		}
	}

	if err := h.teamRepo.Upsert(r.Context(), &team); err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil)
}

// Get handles GET /api/teams/{id}.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	team, err := h.teamRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil)
}

// List handles GET /api/teams.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamRepo.List(r.Context())
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil)
}

// Delete handles DELETE /api/teams/{id}.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.teamRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
