package brackets

import (
	"context"
	"fmt"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket schedules every unordered pair of teams exactly once using
// the circle method: pair adjacent entries, then rotate everything but the
// first entry. An odd team count gets a synthetic bye participant whose
// pairings are skipped, so each team sits out one round without a database
// row. All matches are created ready; a round robin has no dependency edges.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	teams := params.TeamIDs
	n := len(teams)
	if n < 2 {
		return nil, fmt.Errorf("round robin requires at least 2 teams, got %d", n)
	}
	if n > MaxBracketTeams {
		return nil, fmt.Errorf("round robin supports at most %d teams, got %d", MaxBracketTeams, n)
	}

	ring := make([]string, n)
	copy(ring, teams)
	if n%2 != 0 {
		ring = append(ring, "") // bye participant
	}
	size := len(ring)
	rounds := size - 1

	matches := make([]*BracketMatch, 0, n*(n-1)/2)
	for r := 1; r <= rounds; r++ {
		num := 0
		for i := 0; i < size; i += 2 {
			t1, t2 := ring[i], ring[i+1]
			if t1 == "" || t2 == "" {
				continue
			}
			num++
			matches = append(matches, &BracketMatch{
				Slug:    fmt.Sprintf("rr-r%dm%d", r, num),
				Segment: models.SegmentMain,
				Round:   r,
				Number:  num,
				Team1ID: strPtr(t1),
				Team2ID: strPtr(t2),
				Status:  models.MatchStatusReady,
			})
		}
		// Rotate: keep ring[0] fixed, move the last entry to position 1.
		rotated := make([]string, 0, size)
		rotated = append(rotated, ring[0], ring[size-1])
		rotated = append(rotated, ring[1:size-1]...)
		ring = rotated
	}

	return matches, nil
}
