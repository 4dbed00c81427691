package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

func TestDoubleEliminationFourTeams(t *testing.T) {
	bySlug := generate(t, NewDoubleEliminationGenerator(), nil, []string{"A", "B", "C", "D"})
	require.Len(t, bySlug, 6)

	wb1 := bySlug["wb-r1m1"]
	require.NotNil(t, wb1)
	assert.Equal(t, models.MatchStatusReady, wb1.Status)
	assert.Equal(t, "A", *wb1.Team1ID)
	assert.Equal(t, "B", *wb1.Team2ID)
	assert.Equal(t, "wb-r2m1", *wb1.WinnerNextSlug)
	assert.Equal(t, 1, wb1.WinnerNextSlot)
	assert.Equal(t, "lb-r1m1", *wb1.LoserNextSlug)
	assert.Equal(t, 1, wb1.LoserNextSlot)

	wb2 := bySlug["wb-r1m2"]
	require.NotNil(t, wb2)
	assert.Equal(t, 2, wb2.WinnerNextSlot)
	assert.Equal(t, "lb-r1m1", *wb2.LoserNextSlug)
	assert.Equal(t, 2, wb2.LoserNextSlot)

	// Winners final drops its loser into the losers final.
	wbFinal := bySlug["wb-r2m1"]
	require.NotNil(t, wbFinal)
	assert.Equal(t, "gf", *wbFinal.WinnerNextSlug)
	assert.Equal(t, 1, wbFinal.WinnerNextSlot)
	assert.Equal(t, "lb-r2m1", *wbFinal.LoserNextSlug)
	assert.Equal(t, 2, wbFinal.LoserNextSlot)

	lb1 := bySlug["lb-r1m1"]
	require.NotNil(t, lb1)
	assert.Equal(t, "lb-r2m1", *lb1.WinnerNextSlug)
	assert.Equal(t, 1, lb1.WinnerNextSlot)

	lbFinal := bySlug["lb-r2m1"]
	require.NotNil(t, lbFinal)
	assert.Equal(t, "gf", *lbFinal.WinnerNextSlug)
	assert.Equal(t, 2, lbFinal.WinnerNextSlot)

	gf := bySlug["gf"]
	require.NotNil(t, gf)
	assert.Equal(t, models.SegmentGrandFinal, gf.Segment)
	assert.Nil(t, gf.WinnerNextSlug)
}

func TestDoubleEliminationEightTeams(t *testing.T) {
	teams := make([]string, 8)
	for i := range teams {
		teams[i] = fmt.Sprintf("T%d", i+1)
	}
	bySlug := generate(t, NewDoubleEliminationGenerator(), nil, teams)
	require.Len(t, bySlug, 14)

	counts := map[models.BracketSegment]int{}
	for _, m := range bySlug {
		counts[m.Segment]++
	}
	assert.Equal(t, 7, counts[models.SegmentWinners])
	assert.Equal(t, 6, counts[models.SegmentLosers])
	assert.Equal(t, 1, counts[models.SegmentGrandFinal])

	// Every winners bracket match must drop its loser somewhere.
	for slug, m := range bySlug {
		if m.Segment == models.SegmentWinners {
			assert.NotNil(t, m.LoserNextSlug, "winners match %s has no loser drop", slug)
		}
		if m.WinnerNextSlug != nil {
			_, ok := bySlug[*m.WinnerNextSlug]
			assert.True(t, ok, "match %s links to unknown %s", slug, *m.WinnerNextSlug)
		}
		if m.LoserNextSlug != nil {
			_, ok := bySlug[*m.LoserNextSlug]
			assert.True(t, ok, "match %s drops loser to unknown %s", slug, *m.LoserNextSlug)
		}
	}

	// Semifinal losers land in losers round 2 on slot 2.
	assert.Equal(t, "lb-r2m1", *bySlug["wb-r2m1"].LoserNextSlug)
	assert.Equal(t, 2, bySlug["wb-r2m1"].LoserNextSlot)
	assert.Equal(t, "lb-r2m2", *bySlug["wb-r2m2"].LoserNextSlug)
}

func TestDoubleEliminationRequiresPowerOfTwo(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	for _, count := range []int{2, 3, 5, 6, 7, 12, 33} {
		teams := make([]string, count)
		for i := range teams {
			teams[i] = fmt.Sprintf("T%d", i+1)
		}
		_, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{TeamIDs: teams})
		assert.Error(t, err, "expected rejection for %d teams", count)
	}
}
