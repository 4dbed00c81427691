package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

// CreateTournamentInput is the admin-facing creation payload.
type CreateTournamentInput struct {
	Name     string                    `json:"name"`
	Type     models.TournamentType     `json:"type"`
	Format   models.SeriesFormat       `json:"format"`
	MapPool  []string                  `json:"map_pool"`
	TeamIDs  []string                  `json:"team_ids"`
	Settings models.TournamentSettings `json:"settings"`
}

// FullTournamentState bundles everything a bracket UI needs in one response.
type FullTournamentState struct {
	Tournament *models.Tournament `json:"tournament"`
	Matches    []*models.Match    `json:"matches"`
	Teams      []*models.Team     `json:"teams"`
}

// TournamentService owns the singleton tournament lifecycle: creation with
// bracket generation, start, reset back to setup, regeneration and deletion.
type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context) (*models.Tournament, error)
	GetFullState(ctx context.Context) (*FullTournamentState, error)
	StartTournament(ctx context.Context) (*models.Tournament, error)
	ResetTournament(ctx context.Context) (*models.Tournament, error)
	RegenerateBracket(ctx context.Context, force bool) (*models.Tournament, error)
	DeleteTournament(ctx context.Context) error
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	teamRepo       repositories.TeamRepository
	bracketService BracketService
	progression    ProgressionService
	sink           NotificationSink
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	bracketService BracketService,
	progression ProgressionService,
	sink NotificationSink,
	logger *slog.Logger,
) TournamentService {
	if sink == nil {
		sink = NoopSink()
	}
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		bracketService: bracketService,
		progression:    progression,
		sink:           sink,
		logger:         logger,
	}
}

func (s *tournamentService) validateInput(ctx context.Context, input CreateTournamentInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	if !input.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTournamentType, input.Type)
	}
	if !input.Format.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeriesFormat, input.Format)
	}
	if len(input.MapPool) == 0 {
		return ErrEmptyMapPool
	}
	if len(input.TeamIDs) < 2 {
		return fmt.Errorf("%w: at least 2 teams required, got %d", ErrInvalidTeamCount, len(input.TeamIDs))
	}
	seen := make(map[string]struct{}, len(input.TeamIDs))
	for _, id := range input.TeamIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate team %q", ErrValidationFailed, id)
		}
		seen[id] = struct{}{}
		if _, err := s.teamRepo.GetByID(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return fmt.Errorf("%w: %q", ErrTeamNotFound, id)
			}
			return err
		}
	}
	return nil
}

// CreateTournament persists the tournament row, generates its bracket and
// flips the status to ready. A failed generation rolls the row back so the
// deployment never holds a half-built tournament.
func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	if input.Settings.SeedingMethod == "" {
		input.Settings.SeedingMethod = models.SeedingRandom
	}

	tournament := &models.Tournament{
		ID:       models.ActiveTournamentID,
		Name:     input.Name,
		Type:     input.Type,
		Format:   input.Format,
		MapPool:  input.MapPool,
		TeamIDs:  input.TeamIDs,
		Settings: input.Settings,
		Status:   models.TournamentStatusSetup,
	}
	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		return nil, err
	}

	if _, err := s.bracketService.GenerateAndSaveBracket(ctx, tournament); err != nil {
		if delErr := s.tournamentRepo.Delete(ctx, nil); delErr != nil {
			s.logger.Error("failed to roll back tournament after bracket failure", slog.Any("error", delErr))
		}
		return nil, err
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, models.TournamentStatusReady); err != nil {
		return nil, err
	}
	tournament.Status = models.TournamentStatusReady

	// Byes settle immediately so round 2 shells show their carried teams.
	if err := s.progression.PropagateWalkovers(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.String("name", tournament.Name),
		slog.String("type", string(tournament.Type)),
		slog.Int("teams", len(tournament.TeamIDs)))
	s.sink.PublishBracketUpdate("TOURNAMENT_CREATED", tournament)
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context) (*models.Tournament, error) {
	return s.tournamentRepo.Get(ctx)
}

// GetFullState fetches the tournament, its matches and the team registry
// concurrently.
func (s *tournamentService) GetFullState(ctx context.Context) (*FullTournamentState, error) {
	state := &FullTournamentState{}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.Get(gCtx)
		state.Tournament = t
		return err
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, models.ActiveTournamentID, nil, nil)
		state.Matches = matches
		return err
	})
	g.Go(func() error {
		teams, err := s.teamRepo.List(gCtx)
		state.Teams = teams
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *tournamentService) StartTournament(ctx context.Context) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentStatusReady {
		return nil, fmt.Errorf("%w: status is %q", ErrTournamentNotReady, tournament.Status)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, models.TournamentStatusInProgress); err != nil {
		return nil, err
	}
	tournament.Status = models.TournamentStatusInProgress
	s.logger.Info("tournament started", slog.String("name", tournament.Name))
	s.sink.PublishBracketUpdate("TOURNAMENT_STARTED", tournament)
	return tournament, nil
}

// ResetTournament deletes all matches and returns the tournament to setup.
// Works from any status; it is the escape hatch after a misconfigured start.
func (s *tournamentService) ResetTournament(ctx context.Context) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.matchRepo.DeleteByTournament(ctx, nil, tournament.ID); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, models.TournamentStatusSetup); err != nil {
		return nil, err
	}
	tournament.Status = models.TournamentStatusSetup
	s.logger.Info("tournament reset", slog.String("name", tournament.Name))
	s.sink.PublishBracketUpdate("TOURNAMENT_RESET", tournament)
	return tournament, nil
}

// RegenerateBracket discards the current bracket and generates a fresh one.
// Refused once matches have been played unless force is set.
func (s *tournamentService) RegenerateBracket(ctx context.Context, force bool) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if tournament.Status == models.TournamentStatusInProgress && !force {
		return nil, ErrTournamentInProgress
	}
	if tournament.Status != models.TournamentStatusSetup && !force {
		return nil, ErrBracketAlreadyGenerated
	}

	if err := s.matchRepo.DeleteByTournament(ctx, nil, tournament.ID); err != nil {
		return nil, err
	}
	if _, err := s.bracketService.GenerateAndSaveBracket(ctx, tournament); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, models.TournamentStatusReady); err != nil {
		return nil, err
	}
	tournament.Status = models.TournamentStatusReady
	if err := s.progression.PropagateWalkovers(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("bracket regenerated", slog.String("name", tournament.Name), slog.Bool("force", force))
	s.sink.PublishBracketUpdate("BRACKET_REGENERATED", tournament)
	return tournament, nil
}

// DeleteTournament removes the tournament and all of its matches. Only
// permitted from setup so a running bracket cannot vanish by accident; reset
// first to get there. The event log survives for auditing.
func (s *tournamentService) DeleteTournament(ctx context.Context) error {
	tournament, err := s.tournamentRepo.Get(ctx)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentStatusSetup {
		return fmt.Errorf("%w: status is %q", ErrTournamentNotInSetup, tournament.Status)
	}
	if err := s.matchRepo.DeleteByTournament(ctx, nil, models.ActiveTournamentID); err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, nil); err != nil {
		return err
	}
	s.logger.Info("tournament deleted")
	s.sink.PublishBracketUpdate("TOURNAMENT_DELETED", nil)
	return nil
}
