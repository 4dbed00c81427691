package handlers

import (
	"log/slog"
	"net/http"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	eventService      services.EventService
	logger            *slog.Logger
}

func NewTournamentHandler(tournamentService services.TournamentService, eventService services.EventService, logger *slog.Logger) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		eventService:      eventService,
		logger:            logger,
	}
}

// Create handles POST /api/tournament.
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), input)
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil)
}

// Get handles GET /api/tournament.
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournamentService.GetTournament(r.Context())
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

// FullState handles GET /api/tournament/state.
func (h *TournamentHandler) FullState(w http.ResponseWriter, r *http.Request) {
	state, err := h.tournamentService.GetFullState(r.Context())
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, state, nil)
}

// Start handles POST /api/tournament/start.
func (h *TournamentHandler) Start(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournamentService.StartTournament(r.Context())
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

// Reset handles POST /api/tournament/reset.
func (h *TournamentHandler) Reset(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournamentService.ResetTournament(r.Context())
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

// Regenerate handles POST /api/tournament/regenerate?force=true.
func (h *TournamentHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	tournament, err := h.tournamentService.RegenerateBracket(r.Context(), force)
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

// Delete handles DELETE /api/tournament.
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tournamentService.DeleteTournament(r.Context()); err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recover handles POST /api/tournament/recover: re-sync every active match
// with its game server.
func (h *TournamentHandler) Recover(w http.ResponseWriter, r *http.Request) {
	results, err := h.eventService.RecoverActiveMatches(r.Context())
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil)
}
