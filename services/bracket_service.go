package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/brackets"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

// BracketService turns a tournament configuration into persisted match rows.
// Generation is destructive-free by itself: the caller deletes prior matches
// before invoking it and rolls back the tournament row if it fails.
type BracketService interface {
	GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) ([]*models.Match, error)
}

type bracketService struct {
	db        *sql.DB
	matchRepo repositories.MatchRepository
	logger    *slog.Logger
}

func NewBracketService(db *sql.DB, matchRepo repositories.MatchRepository, logger *slog.Logger) BracketService {
	return &bracketService{db: db, matchRepo: matchRepo, logger: logger}
}

func (s *bracketService) GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) ([]*models.Match, error) {
	generator, err := brackets.NewGenerator(tournament.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTournamentType, tournament.Type)
	}

	teamIDs := make([]string, len(tournament.TeamIDs))
	copy(teamIDs, tournament.TeamIDs)
	if tournament.Settings.SeedingMethod == models.SeedingRandom {
		// Fisher-Yates, performed once before generation so every generator
		// stays deterministic for a given order.
		rand.Shuffle(len(teamIDs), func(i, j int) {
			teamIDs[i], teamIDs[j] = teamIDs[j], teamIDs[i]
		})
	}

	generated, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament: tournament,
		TeamIDs:    teamIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTeamCount, err)
	}

	s.logger.Info("bracket generated",
		slog.String("generator", generator.GetName()),
		slog.Int("teams", len(teamIDs)),
		slog.Int("matches", len(generated)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// First pass: create all match rows and remember slug -> id.
	now := time.Now().UTC()
	idBySlug := make(map[string]int, len(generated))
	created := make([]*models.Match, 0, len(generated))
	for _, bm := range generated {
		m := &models.Match{
			TournamentID: tournament.ID,
			Slug:         bm.Slug,
			Segment:      bm.Segment,
			Round:        bm.Round,
			Number:       bm.Number,
			Team1ID:      bm.Team1ID,
			Team2ID:      bm.Team2ID,
			WinnerID:     bm.WinnerID,
			Status:       bm.Status,
		}
		if bm.IsBye {
			completedAt := now
			m.CompletedAt = &completedAt
		}
		if err := s.matchRepo.Create(ctx, tx, m); err != nil {
			return nil, err
		}
		idBySlug[m.Slug] = m.ID
		created = append(created, m)
	}

	// Second pass: resolve slug links to database ids.
	for i, bm := range generated {
		if bm.WinnerNextSlug == nil && bm.LoserNextSlug == nil {
			continue
		}
		m := created[i]
		if bm.WinnerNextSlug != nil {
			id, ok := idBySlug[*bm.WinnerNextSlug]
			if !ok {
				return nil, fmt.Errorf("generator linked %s to unknown match %s", bm.Slug, *bm.WinnerNextSlug)
			}
			slot := bm.WinnerNextSlot
			m.NextMatchID = &id
			m.NextMatchSlot = &slot
		}
		if bm.LoserNextSlug != nil {
			id, ok := idBySlug[*bm.LoserNextSlug]
			if !ok {
				return nil, fmt.Errorf("generator linked %s to unknown match %s", bm.Slug, *bm.LoserNextSlug)
			}
			slot := bm.LoserNextSlot
			m.LoserNextMatchID = &id
			m.LoserNextMatchSlot = &slot
		}
		if err := s.matchRepo.UpdateNextMatchInfo(ctx, tx, m.ID, m.NextMatchID, m.NextMatchSlot, m.LoserNextMatchID, m.LoserNextMatchSlot); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bracket transaction: %w", err)
	}

	return created, nil
}
