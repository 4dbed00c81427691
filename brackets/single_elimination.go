package brackets

import (
	"context"
	"fmt"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

// seNode is one slot of a bracket layer: a resolved team, the winner of an
// earlier match, or a permanently dead branch of a bye chain.
type seNode struct {
	teamID     *string
	sourceSlug *string
	dead       bool
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds a single elimination bracket with
// ceil(log2(teamCount)) rounds. Teams are paired sequentially by seed order;
// a team without an opponent receives a walkover: the match is created
// already completed and the team is carried into the next layer, so byes
// cascade through as many rounds as needed at generation time. Branches where
// two byes meet never materialize a match.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	teams := params.TeamIDs
	n := len(teams)
	if n < 2 {
		return nil, fmt.Errorf("single elimination requires at least 2 teams, got %d", n)
	}
	if n > MaxBracketTeams {
		return nil, fmt.Errorf("single elimination supports at most %d teams, got %d", MaxBracketTeams, n)
	}

	numRounds := 0
	for (1 << numRounds) < n {
		numRounds++
	}
	size := 1 << numRounds

	cur := make([]seNode, size)
	for i := range cur {
		if i < n {
			cur[i] = seNode{teamID: strPtr(teams[i])}
		} else {
			cur[i] = seNode{dead: true}
		}
	}

	matches := make([]*BracketMatch, 0, size-1)
	bySlug := make(map[string]*BracketMatch, size-1)

	for r := 1; r <= numRounds; r++ {
		next := make([]seNode, 0, len(cur)/2)
		for i := 0; i < len(cur); i += 2 {
			a, b := cur[i], cur[i+1]
			if a.dead && b.dead {
				next = append(next, seNode{dead: true})
				continue
			}

			num := i/2 + 1
			slug := fmt.Sprintf("r%dm%d", r, num)
			bm := &BracketMatch{
				Slug:    slug,
				Segment: models.SegmentMain,
				Round:   r,
				Number:  num,
				Status:  models.MatchStatusPending,
			}

			wireSlot(bm, bySlug, a, 1)
			wireSlot(bm, bySlug, b, 2)

			switch {
			case bm.Team1ID != nil && bm.Team2ID != nil:
				bm.Status = models.MatchStatusReady
				next = append(next, seNode{sourceSlug: strPtr(slug)})
			case (a.teamID != nil && b.dead) || (b.teamID != nil && a.dead):
				// Walkover: the other slot can never be filled.
				winner := bm.Team1ID
				if winner == nil {
					winner = bm.Team2ID
				}
				bm.IsBye = true
				bm.WinnerID = winner
				bm.Status = models.MatchStatusCompleted
				next = append(next, seNode{teamID: winner})
			default:
				next = append(next, seNode{sourceSlug: strPtr(slug)})
			}

			bySlug[slug] = bm
			matches = append(matches, bm)
		}
		cur = next
	}

	if params.Tournament != nil && params.Tournament.Settings.ThirdPlaceMatch && numRounds >= 2 {
		if tp := thirdPlaceMatch(matches, numRounds); tp != nil {
			matches = append(matches, tp)
		}
	}

	return matches, nil
}

// wireSlot places a resolved team into the given slot, or records a
// winner-advancement edge from the feeding match.
func wireSlot(bm *BracketMatch, bySlug map[string]*BracketMatch, nd seNode, slot int) {
	switch {
	case nd.teamID != nil:
		if slot == 1 {
			bm.Team1ID = nd.teamID
		} else {
			bm.Team2ID = nd.teamID
		}
	case nd.sourceSlug != nil:
		src := bySlug[*nd.sourceSlug]
		src.WinnerNextSlug = strPtr(bm.Slug)
		src.WinnerNextSlot = slot
	}
}

// thirdPlaceMatch links semifinal losers into an extra match alongside the
// final. Semifinals decided by walkover have no loser; the slot stays empty
// and the progression engine resolves it like any other dead branch. Returns
// nil when no semifinal can feed the match.
func thirdPlaceMatch(matches []*BracketMatch, numRounds int) *BracketMatch {
	tp := &BracketMatch{
		Slug:    "3rd-place",
		Segment: models.SegmentMain,
		Round:   numRounds,
		Number:  2,
		Status:  models.MatchStatusPending,
	}
	slot := 1
	for _, bm := range matches {
		if bm.Round != numRounds-1 || bm.IsBye {
			continue
		}
		bm.LoserNextSlug = strPtr(tp.Slug)
		bm.LoserNextSlot = slot
		slot++
	}
	if slot == 1 {
		return nil
	}
	return tp
}
