package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

// MatchService exposes match reads and the server assignment flow: picking a
// registered game server and telling it to load the match config over rcon.
type MatchService interface {
	ListMatches(ctx context.Context, round *int, status *models.MatchStatus) ([]*models.Match, error)
	GetMatch(ctx context.Context, slug string) (*models.Match, error)
	AssignServer(ctx context.Context, slug, serverID string) (*models.Match, error)
	SetDemoPath(ctx context.Context, slug, demoPath string) error
}

type matchService struct {
	matchRepo  repositories.MatchRepository
	serverRepo repositories.ServerRepository
	servers    RemoteServerClient
	sink       NotificationSink
	publicURL  string
	logger     *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	serverRepo repositories.ServerRepository,
	servers RemoteServerClient,
	sink NotificationSink,
	publicURL string,
	logger *slog.Logger,
) MatchService {
	if sink == nil {
		sink = NoopSink()
	}
	return &matchService{
		matchRepo:  matchRepo,
		serverRepo: serverRepo,
		servers:    servers,
		sink:       sink,
		publicURL:  strings.TrimRight(publicURL, "/"),
		logger:     logger,
	}
}

func (s *matchService) ListMatches(ctx context.Context, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, models.ActiveTournamentID, round, status)
}

func (s *matchService) GetMatch(ctx context.Context, slug string) (*models.Match, error) {
	return s.matchRepo.GetBySlug(ctx, slug)
}

// AssignServer points a registered server at the match: the server fetches
// its config from our public match-config endpoint via matchzy_loadmatch_url
// and the match moves to loaded. going_live arrives later as a webhook.
func (s *matchService) AssignServer(ctx context.Context, slug, serverID string) (*models.Match, error) {
	m, err := s.matchRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MatchStatusReady {
		return nil, fmt.Errorf("%w: match %s is %q, want ready", ErrValidationFailed, slug, m.Status)
	}
	if !m.BothTeamsKnown() {
		return nil, fmt.Errorf("%w: %s", ErrTeamsNotResolved, slug)
	}
	if _, err := s.serverRepo.GetByID(ctx, serverID); err != nil {
		return nil, err
	}

	configURL := fmt.Sprintf("%s/api/matches/%s/config", s.publicURL, m.Slug)
	command := fmt.Sprintf("matchzy_loadmatch_url %q", configURL)
	if _, err := s.servers.SendCommand(ctx, serverID, command); err != nil {
		return nil, fmt.Errorf("failed to load match %s on server %s: %w", slug, serverID, err)
	}

	now := time.Now().UTC()
	if err := s.matchRepo.UpdateServer(ctx, nil, m.ID, &serverID, models.MatchStatusLoaded, &now); err != nil {
		return nil, err
	}
	m.ServerID = &serverID
	m.Status = models.MatchStatusLoaded
	m.LoadedAt = &now

	s.logger.Info("match loaded on server", slog.String("match", slug), slog.String("server", serverID))
	s.sink.PublishMatchUpdate(m)
	return m, nil
}

// SetDemoPath records where the uploaded demo for a match was stored.
func (s *matchService) SetDemoPath(ctx context.Context, slug, demoPath string) error {
	m, err := s.matchRepo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	return s.matchRepo.UpdateDemoPath(ctx, nil, m.ID, demoPath)
}
