package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/services"
)

type MatchHandler struct {
	matchService  services.MatchService
	configService services.MatchConfigService
	eventService  services.EventService
	progression   services.ProgressionService
	logger        *slog.Logger
}

func NewMatchHandler(
	matchService services.MatchService,
	configService services.MatchConfigService,
	eventService services.EventService,
	progression services.ProgressionService,
	logger *slog.Logger,
) *MatchHandler {
	return &MatchHandler{
		matchService:  matchService,
		configService: configService,
		eventService:  eventService,
		progression:   progression,
		logger:        logger,
	}
}

// List handles GET /api/matches?round=N&status=S.
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	var round *int
	if v := r.URL.Query().Get("round"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequestResponse(w, fmt.Errorf("invalid round parameter %q", v))
			return
		}
		round = &n
	}
	var status *models.MatchStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := models.MatchStatus(v)
		status = &s
	}

	matches, err := h.matchService.ListMatches(r.Context(), round, status)
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
}

// Get handles GET /api/matches/{slug}.
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.matchService.GetMatch(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match": m}, nil)
}

// Config handles GET /api/matches/{slug}/config. The response body is the
// raw matchzy document, not wrapped, because game servers consume it as-is.
func (h *MatchHandler) Config(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configService.GetMatchConfig(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, cfg, nil)
}

// AssignServer handles POST /api/matches/{slug}/server.
func (h *MatchHandler) AssignServer(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ServerID string `json:"server_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.ServerID == "" {
		badRequestResponse(w, fmt.Errorf("server_id is required"))
		return
	}

	m, err := h.matchService.AssignServer(r.Context(), chi.URLParam(r, "slug"), input.ServerID)
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match": m}, nil)
}

// ReportResult handles POST /api/matches/{slug}/result: the manual override
// for a lost series_end webhook. Always advances the bracket, regardless of
// the auto-advance setting.
func (h *MatchHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Team1Score int `json:"team1_score"`
		Team2Score int `json:"team2_score"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	slug := chi.URLParam(r, "slug")
	if err := h.progression.OnSeriesEnd(r.Context(), services.MatchRef{Slug: slug}, input.Team1Score, input.Team2Score); err != nil {
		mapServiceError(w, h.logger, err)
		return
	}

	m, err := h.matchService.GetMatch(r.Context(), slug)
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match": m}, nil)
}

// Replay handles POST /api/matches/{slug}/replay?since=RFC3339.
func (h *MatchHandler) Replay(w http.ResponseWriter, r *http.Request) {
	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequestResponse(w, fmt.Errorf("invalid since parameter %q, want RFC3339", v))
			return
		}
		since = &t
	}

	slug := chi.URLParam(r, "slug")
	if err := h.eventService.ReplayEvents(r.Context(), slug, since); err != nil {
		mapServiceError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"status": "replayed"}, nil)
}
