package brackets

import (
	"context"
	"fmt"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

// MaxBracketTeams caps elimination bracket sizes.
const MaxBracketTeams = 32

// GenerateBracketParams carries everything a generator needs. TeamIDs is the
// final seed order: the caller shuffles before generation when the tournament
// uses random seeding, so every generator is deterministic.
type GenerateBracketParams struct {
	Tournament *models.Tournament
	TeamIDs    []string
}

// BracketMatch is one generated node of the match graph, linked by slug.
// WinnerNextSlug/LoserNextSlug are resolved to database ids when the bracket
// is persisted.
type BracketMatch struct {
	Slug    string
	Segment models.BracketSegment
	Round   int
	Number  int

	Team1ID *string
	Team2ID *string

	// Byes are materialized as already-completed matches with the present
	// team as winner.
	IsBye    bool
	WinnerID *string

	Status models.MatchStatus

	WinnerNextSlug *string
	WinnerNextSlot int
	LoserNextSlug  *string
	LoserNextSlot  int
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}

// NewGenerator returns the generator for a tournament type.
func NewGenerator(t models.TournamentType) (BracketGenerator, error) {
	switch t {
	case models.TypeSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.TypeDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.TypeRoundRobin:
		return NewRoundRobinGenerator(), nil
	case models.TypeSwiss:
		return NewSwissGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported tournament type %q", t)
	}
}

func strPtr(s string) *string { return &s }
