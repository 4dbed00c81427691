package brackets

import (
	"context"
	"fmt"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

type SwissGenerator struct{}

func NewSwissGenerator() BracketGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

// GenerateBracket creates ceil(log2(teamCount)) swiss rounds. Only round 1 is
// paired up front (adjacent seeds); later rounds are empty pending shells
// whose teams the progression engine fills from standings once the previous
// round has fully completed. No cross-round edges are pre-computed.
func (g *SwissGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	teams := params.TeamIDs
	n := len(teams)
	if n < 4 || n%2 != 0 {
		return nil, fmt.Errorf("swiss requires an even team count of at least 4, got %d", n)
	}
	if n > MaxBracketTeams {
		return nil, fmt.Errorf("swiss supports at most %d teams, got %d", MaxBracketTeams, n)
	}

	rounds := 0
	for (1 << rounds) < n {
		rounds++
	}
	perRound := n / 2

	matches := make([]*BracketMatch, 0, rounds*perRound)
	for r := 1; r <= rounds; r++ {
		for m := 1; m <= perRound; m++ {
			bm := &BracketMatch{
				Slug:    fmt.Sprintf("sw-r%dm%d", r, m),
				Segment: models.SegmentMain,
				Round:   r,
				Number:  m,
				Status:  models.MatchStatusPending,
			}
			if r == 1 {
				bm.Team1ID = strPtr(teams[2*(m-1)])
				bm.Team2ID = strPtr(teams[2*m-1])
				bm.Status = models.MatchStatusReady
			}
			matches = append(matches, bm)
		}
	}

	return matches, nil
}
