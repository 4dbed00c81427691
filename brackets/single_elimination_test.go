package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

func generate(t *testing.T, gen BracketGenerator, tournament *models.Tournament, teams []string) map[string]*BracketMatch {
	t.Helper()
	matches, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{
		Tournament: tournament,
		TeamIDs:    teams,
	})
	require.NoError(t, err)

	bySlug := make(map[string]*BracketMatch, len(matches))
	for _, m := range matches {
		bySlug[m.Slug] = m
	}
	require.Len(t, bySlug, len(matches), "duplicate slugs generated")
	return bySlug
}

func TestSingleEliminationThreeTeams(t *testing.T) {
	bySlug := generate(t, NewSingleEliminationGenerator(), nil, []string{"A", "B", "C"})
	require.Len(t, bySlug, 3)

	r1m1 := bySlug["r1m1"]
	require.NotNil(t, r1m1)
	assert.Equal(t, "A", *r1m1.Team1ID)
	assert.Equal(t, "B", *r1m1.Team2ID)
	assert.Equal(t, models.MatchStatusReady, r1m1.Status)
	require.NotNil(t, r1m1.WinnerNextSlug)
	assert.Equal(t, "r2m1", *r1m1.WinnerNextSlug)
	assert.Equal(t, 1, r1m1.WinnerNextSlot)

	r1m2 := bySlug["r1m2"]
	require.NotNil(t, r1m2)
	assert.True(t, r1m2.IsBye)
	assert.Equal(t, models.MatchStatusCompleted, r1m2.Status)
	require.NotNil(t, r1m2.WinnerID)
	assert.Equal(t, "C", *r1m2.WinnerID)

	final := bySlug["r2m1"]
	require.NotNil(t, final)
	assert.Equal(t, models.MatchStatusPending, final.Status)
	assert.Nil(t, final.Team1ID)
	require.NotNil(t, final.Team2ID)
	assert.Equal(t, "C", *final.Team2ID)
}

func TestSingleEliminationFourTeams(t *testing.T) {
	bySlug := generate(t, NewSingleEliminationGenerator(), nil, []string{"A", "B", "C", "D"})
	require.Len(t, bySlug, 3)

	for _, slug := range []string{"r1m1", "r1m2"} {
		m := bySlug[slug]
		require.NotNil(t, m)
		assert.Equal(t, models.MatchStatusReady, m.Status)
		assert.False(t, m.IsBye)
	}
	assert.Equal(t, "D", *bySlug["r1m2"].Team2ID)
	assert.Equal(t, 2, bySlug["r1m2"].WinnerNextSlot)
	assert.Equal(t, models.MatchStatusPending, bySlug["r2m1"].Status)
}

func TestSingleEliminationByeCascade(t *testing.T) {
	// Five teams: E gets a round 1 bye, then meets a dead branch in round 2
	// and is carried straight into the final.
	bySlug := generate(t, NewSingleEliminationGenerator(), nil, []string{"A", "B", "C", "D", "E"})
	require.Len(t, bySlug, 6)

	r1m3 := bySlug["r1m3"]
	require.NotNil(t, r1m3)
	assert.True(t, r1m3.IsBye)
	assert.Equal(t, "E", *r1m3.WinnerID)

	r2m2 := bySlug["r2m2"]
	require.NotNil(t, r2m2)
	assert.True(t, r2m2.IsBye)
	assert.Equal(t, "E", *r2m2.WinnerID)

	final := bySlug["r3m1"]
	require.NotNil(t, final)
	require.NotNil(t, final.Team2ID)
	assert.Equal(t, "E", *final.Team2ID)
	assert.Equal(t, models.MatchStatusPending, final.Status)
}

func TestSingleEliminationThirdPlaceMatch(t *testing.T) {
	tournament := &models.Tournament{
		Settings: models.TournamentSettings{ThirdPlaceMatch: true},
	}
	bySlug := generate(t, NewSingleEliminationGenerator(), tournament, []string{"A", "B", "C", "D"})
	require.Len(t, bySlug, 4)

	tp := bySlug["3rd-place"]
	require.NotNil(t, tp)
	assert.Equal(t, 2, tp.Number)
	assert.Equal(t, models.MatchStatusPending, tp.Status)

	require.NotNil(t, bySlug["r1m1"].LoserNextSlug)
	assert.Equal(t, "3rd-place", *bySlug["r1m1"].LoserNextSlug)
	assert.Equal(t, 1, bySlug["r1m1"].LoserNextSlot)
	require.NotNil(t, bySlug["r1m2"].LoserNextSlug)
	assert.Equal(t, 2, bySlug["r1m2"].LoserNextSlot)
}

func TestSingleEliminationRejectsBadTeamCounts(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	ctx := context.Background()

	_, err := gen.GenerateBracket(ctx, GenerateBracketParams{TeamIDs: []string{"A"}})
	assert.Error(t, err)

	many := make([]string, MaxBracketTeams+1)
	for i := range many {
		many[i] = string(rune('A' + i%26))
	}
	_, err = gen.GenerateBracket(ctx, GenerateBracketParams{TeamIDs: many})
	assert.Error(t, err)
}

func TestSingleEliminationLinksResolve(t *testing.T) {
	bySlug := generate(t, NewSingleEliminationGenerator(), nil, []string{"A", "B", "C", "D", "E", "F", "G"})
	for slug, m := range bySlug {
		if m.WinnerNextSlug != nil {
			_, ok := bySlug[*m.WinnerNextSlug]
			assert.True(t, ok, "match %s links to unknown %s", slug, *m.WinnerNextSlug)
		}
	}
}
