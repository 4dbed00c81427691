package brackets

import (
	"context"
	"fmt"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() BracketGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

// GenerateBracket builds a winners bracket, a losers bracket and a grand
// final. The losers bracket alternates between rounds fed only by losers
// bracket winners (minor) and rounds that additionally absorb the losers
// dropping from the winners bracket (major): for winners rounds 1..R the
// drops land in losers rounds 1, 2, 4, ..., 2(R-1).
//
// A power-of-two team count is required so every losers round is fully fed;
// byes inside a losers bracket are not supported.
func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	teams := params.TeamIDs
	n := len(teams)
	if n < 4 || n > MaxBracketTeams || n&(n-1) != 0 {
		return nil, fmt.Errorf("double elimination requires a power-of-two team count; valid options: 4,8,16,32 (got %d)", n)
	}

	numRounds := 0
	for (1 << numRounds) < n {
		numRounds++
	}

	matches := make([]*BracketMatch, 0, 2*n-1)
	bySlug := make(map[string]*BracketMatch)

	add := func(bm *BracketMatch) *BracketMatch {
		bySlug[bm.Slug] = bm
		matches = append(matches, bm)
		return bm
	}
	wbSlug := func(r, m int) string { return fmt.Sprintf("wb-r%dm%d", r, m) }
	lbSlug := func(r, m int) string { return fmt.Sprintf("lb-r%dm%d", r, m) }

	// Winners bracket.
	for r := 1; r <= numRounds; r++ {
		count := n >> uint(r)
		for m := 1; m <= count; m++ {
			bm := &BracketMatch{
				Slug:    wbSlug(r, m),
				Segment: models.SegmentWinners,
				Round:   r,
				Number:  m,
				Status:  models.MatchStatusPending,
			}
			if r == 1 {
				bm.Team1ID = strPtr(teams[2*(m-1)])
				bm.Team2ID = strPtr(teams[2*m-1])
				bm.Status = models.MatchStatusReady
			}
			if r < numRounds {
				bm.WinnerNextSlug = strPtr(wbSlug(r+1, (m+1)/2))
				bm.WinnerNextSlot = 2 - m%2
			}
			add(bm)
		}
	}

	// Losers bracket round 1: winners round 1 losers, paired.
	for m := 1; m <= n/4; m++ {
		add(&BracketMatch{
			Slug:    lbSlug(1, m),
			Segment: models.SegmentLosers,
			Round:   1,
			Number:  m,
			Status:  models.MatchStatusPending,
		})
		bySlug[wbSlug(1, 2*m-1)].LoserNextSlug = strPtr(lbSlug(1, m))
		bySlug[wbSlug(1, 2*m-1)].LoserNextSlot = 1
		bySlug[wbSlug(1, 2*m)].LoserNextSlug = strPtr(lbSlug(1, m))
		bySlug[wbSlug(1, 2*m)].LoserNextSlot = 2
	}

	// Remaining losers rounds: major round 2k absorbs the losers of winners
	// round k+1, minor round 2k+1 pairs the major round's winners.
	for k := 1; k <= numRounds-1; k++ {
		major := 2 * k
		count := n >> uint(k+1)
		for m := 1; m <= count; m++ {
			add(&BracketMatch{
				Slug:    lbSlug(major, m),
				Segment: models.SegmentLosers,
				Round:   major,
				Number:  m,
				Status:  models.MatchStatusPending,
			})
			prev := bySlug[lbSlug(major-1, m)]
			prev.WinnerNextSlug = strPtr(lbSlug(major, m))
			prev.WinnerNextSlot = 1
			drop := bySlug[wbSlug(k+1, m)]
			drop.LoserNextSlug = strPtr(lbSlug(major, m))
			drop.LoserNextSlot = 2
		}

		if k > numRounds-2 {
			continue
		}
		minor := 2*k + 1
		count = n >> uint(k+2)
		for m := 1; m <= count; m++ {
			add(&BracketMatch{
				Slug:    lbSlug(minor, m),
				Segment: models.SegmentLosers,
				Round:   minor,
				Number:  m,
				Status:  models.MatchStatusPending,
			})
			left := bySlug[lbSlug(minor-1, 2*m-1)]
			left.WinnerNextSlug = strPtr(lbSlug(minor, m))
			left.WinnerNextSlot = 1
			right := bySlug[lbSlug(minor-1, 2*m)]
			right.WinnerNextSlug = strPtr(lbSlug(minor, m))
			right.WinnerNextSlot = 2
		}
	}

	// Grand final: winners bracket champion vs losers bracket champion.
	gf := add(&BracketMatch{
		Slug:    "gf",
		Segment: models.SegmentGrandFinal,
		Round:   numRounds + 1,
		Number:  1,
		Status:  models.MatchStatusPending,
	})
	wbFinal := bySlug[wbSlug(numRounds, 1)]
	wbFinal.WinnerNextSlug = strPtr(gf.Slug)
	wbFinal.WinnerNextSlot = 1
	lbFinal := bySlug[lbSlug(2*(numRounds-1), 1)]
	lbFinal.WinnerNextSlug = strPtr(gf.Slug)
	lbFinal.WinnerNextSlot = 2

	return matches, nil
}
