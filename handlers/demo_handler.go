package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/services"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/storage"
)

// maxDemoSize caps GOTV demo uploads. Long bo5 demos stay well under this.
const maxDemoSize = 1 << 30 // 1GiB

// DemoHandler receives GOTV demo uploads from matchzy and streams them to
// object storage. matchzy sends the raw file body with metadata in headers.
type DemoHandler struct {
	matchService services.MatchService
	uploader     storage.FileUploader
	logger       *slog.Logger
}

func NewDemoHandler(matchService services.MatchService, uploader storage.FileUploader, logger *slog.Logger) *DemoHandler {
	return &DemoHandler{matchService: matchService, uploader: uploader, logger: logger}
}

// Upload handles POST /api/matches/{slug}/demo.
func (h *DemoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		errorResponse(w, http.StatusServiceUnavailable, "demo storage is not configured")
		return
	}

	slug := chi.URLParam(r, "slug")
	fileName := r.Header.Get("MatchZy-FileName")
	if fileName == "" {
		badRequestResponse(w, fmt.Errorf("missing MatchZy-FileName header"))
		return
	}

	// path.Base strips any directory components a hostile client could send.
	key := fmt.Sprintf("demos/%s/%s", slug, path.Base(fileName))
	body := http.MaxBytesReader(w, r.Body, maxDemoSize)

	result, err := h.uploader.Upload(r.Context(), key, "application/octet-stream", body)
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}

	if err := h.matchService.SetDemoPath(r.Context(), slug, result.Location); err != nil {
		mapServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("demo uploaded", slog.String("match", slug), slog.String("key", result.Key))
	_ = writeJSON(w, http.StatusOK, jsonResponse{"demo_url": result.Location}, nil)
}
