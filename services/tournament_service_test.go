package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/brackets"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

// fakeBracketService generates for real but persists into the in-memory repo.
type fakeBracketService struct {
	t       *testing.T
	matches *fakeMatchRepo
	err     error
}

func (f *fakeBracketService) GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) ([]*models.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	gen, err := brackets.NewGenerator(tournament.Type)
	if err != nil {
		return nil, err
	}
	generated, err := gen.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament: tournament,
		TeamIDs:    tournament.TeamIDs,
	})
	if err != nil {
		return nil, err
	}
	persistBracket(f.t, f.matches, tournament.ID, generated)
	return f.matches.sorted(), nil
}

type tournamentServiceFixture struct {
	svc        TournamentService
	tournament *fakeTournamentRepo
	matches    *fakeMatchRepo
	teams      *fakeTeamRepo
	brackets   *fakeBracketService
	sink       *recordingSink
}

func newTournamentFixture(t *testing.T) *tournamentServiceFixture {
	t.Helper()
	tournamentRepo := &fakeTournamentRepo{}
	matchRepo := newFakeMatchRepo()
	teamRepo := newFakeTeamRepo(
		testTeam("A", "Alpha"),
		testTeam("B", "Bravo"),
		testTeam("C", "Charlie"),
		testTeam("D", "Delta"),
	)
	bracketSvc := &fakeBracketService{t: t, matches: matchRepo}
	progression := NewProgressionService(tournamentRepo, matchRepo, nil, testLogger())
	sink := &recordingSink{}
	return &tournamentServiceFixture{
		svc:        NewTournamentService(tournamentRepo, matchRepo, teamRepo, bracketSvc, progression, sink, testLogger()),
		tournament: tournamentRepo,
		matches:    matchRepo,
		teams:      teamRepo,
		brackets:   bracketSvc,
		sink:       sink,
	}
}

func validInput() CreateTournamentInput {
	return CreateTournamentInput{
		Name:    "spring cup",
		Type:    models.TypeSingleElimination,
		Format:  models.FormatBo3,
		MapPool: []string{"de_mirage", "de_inferno", "de_nuke"},
		TeamIDs: []string{"A", "B", "C", "D"},
		Settings: models.TournamentSettings{
			SeedingMethod: models.SeedingManual,
			AutoAdvance:   true,
		},
	}
}

func TestCreateTournament(t *testing.T) {
	fx := newTournamentFixture(t)
	ctx := context.Background()

	tournament, err := fx.svc.CreateTournament(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, models.ActiveTournamentID, tournament.ID)
	assert.Equal(t, models.TournamentStatusReady, tournament.Status)

	matches, err := fx.matches.ListByTournament(ctx, tournament.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
	assert.Contains(t, fx.sink.actions, "TOURNAMENT_CREATED")
}

func TestCreateTournamentDefaultsToRandomSeeding(t *testing.T) {
	fx := newTournamentFixture(t)
	input := validInput()
	input.Settings.SeedingMethod = ""

	tournament, err := fx.svc.CreateTournament(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, models.SeedingRandom, tournament.Settings.SeedingMethod)
}

func TestCreateTournamentValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateTournamentInput)
		wantErr error
	}{
		{"missing name", func(in *CreateTournamentInput) { in.Name = "" }, ErrValidationFailed},
		{"bad type", func(in *CreateTournamentInput) { in.Type = "ladder" }, ErrInvalidTournamentType},
		{"bad format", func(in *CreateTournamentInput) { in.Format = "bo4" }, ErrInvalidSeriesFormat},
		{"empty map pool", func(in *CreateTournamentInput) { in.MapPool = nil }, ErrEmptyMapPool},
		{"one team", func(in *CreateTournamentInput) { in.TeamIDs = []string{"A"} }, ErrInvalidTeamCount},
		{"duplicate team", func(in *CreateTournamentInput) { in.TeamIDs = []string{"A", "A"} }, ErrValidationFailed},
		{"unknown team", func(in *CreateTournamentInput) { in.TeamIDs = []string{"A", "Z"} }, ErrTeamNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newTournamentFixture(t)
			input := validInput()
			tt.mutate(&input)
			_, err := fx.svc.CreateTournament(context.Background(), input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateTournamentRollsBackOnBracketFailure(t *testing.T) {
	fx := newTournamentFixture(t)
	fx.brackets.err = assert.AnError

	_, err := fx.svc.CreateTournament(context.Background(), validInput())
	require.Error(t, err)

	_, err = fx.tournament.Get(context.Background())
	assert.ErrorIs(t, err, repositories.ErrTournamentNotFound)
}

func TestCreateTournamentRejectsSecond(t *testing.T) {
	fx := newTournamentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.CreateTournament(ctx, validInput())
	require.NoError(t, err)

	_, err = fx.svc.CreateTournament(ctx, validInput())
	assert.ErrorIs(t, err, repositories.ErrTournamentExists)
}

func TestStartTournament(t *testing.T) {
	fx := newTournamentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.StartTournament(ctx)
	assert.ErrorIs(t, err, repositories.ErrTournamentNotFound)

	_, err = fx.svc.CreateTournament(ctx, validInput())
	require.NoError(t, err)

	tournament, err := fx.svc.StartTournament(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusInProgress, tournament.Status)

	_, err = fx.svc.StartTournament(ctx)
	assert.ErrorIs(t, err, ErrTournamentNotReady)
}

func TestResetTournament(t *testing.T) {
	fx := newTournamentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.CreateTournament(ctx, validInput())
	require.NoError(t, err)
	_, err = fx.svc.StartTournament(ctx)
	require.NoError(t, err)

	tournament, err := fx.svc.ResetTournament(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusSetup, tournament.Status)

	matches, _ := fx.matches.ListByTournament(ctx, tournament.ID, nil, nil)
	assert.Empty(t, matches)
}

func TestRegenerateBracket(t *testing.T) {
	fx := newTournamentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.CreateTournament(ctx, validInput())
	require.NoError(t, err)

	// Already generated; needs force once past setup.
	_, err = fx.svc.RegenerateBracket(ctx, false)
	assert.ErrorIs(t, err, ErrBracketAlreadyGenerated)

	tournament, err := fx.svc.RegenerateBracket(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusReady, tournament.Status)
	matches, _ := fx.matches.ListByTournament(ctx, tournament.ID, nil, nil)
	assert.Len(t, matches, 3)

	_, err = fx.svc.StartTournament(ctx)
	require.NoError(t, err)
	_, err = fx.svc.RegenerateBracket(ctx, false)
	assert.ErrorIs(t, err, ErrTournamentInProgress)
}

func TestDeleteTournamentOnlyFromSetup(t *testing.T) {
	fx := newTournamentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.CreateTournament(ctx, validInput())
	require.NoError(t, err)

	err = fx.svc.DeleteTournament(ctx)
	assert.ErrorIs(t, err, ErrTournamentNotInSetup)

	_, err = fx.svc.ResetTournament(ctx)
	require.NoError(t, err)
	require.NoError(t, fx.svc.DeleteTournament(ctx))

	_, err = fx.tournament.Get(ctx)
	assert.ErrorIs(t, err, repositories.ErrTournamentNotFound)
}

func TestGetFullState(t *testing.T) {
	fx := newTournamentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.CreateTournament(ctx, validInput())
	require.NoError(t, err)

	state, err := fx.svc.GetFullState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "spring cup", state.Tournament.Name)
	assert.Len(t, state.Matches, 3)
	assert.Len(t, state.Teams, 4)
}
