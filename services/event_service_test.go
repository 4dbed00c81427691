package services

import (
	"context"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

type eventServiceFixture struct {
	svc        EventService
	tournament *fakeTournamentRepo
	matches    *fakeMatchRepo
	events     *fakeEventRepo
	remote     *fakeRemoteClient
	sink       *recordingSink
}

func newEventFixture(t *testing.T, tournament *models.Tournament) *eventServiceFixture {
	t.Helper()
	tournamentRepo, matchRepo := setupBracket(t, tournament, tournament.TeamIDs)
	eventRepo := &fakeEventRepo{}
	remote := &fakeRemoteClient{responses: make(map[string]string)}
	sink := &recordingSink{}
	progression := NewProgressionService(tournamentRepo, matchRepo, sink, testLogger())
	return &eventServiceFixture{
		svc:        NewEventService(tournamentRepo, matchRepo, eventRepo, progression, remote, sink, testLogger()),
		tournament: tournamentRepo,
		matches:    matchRepo,
		events:     eventRepo,
		remote:     remote,
		sink:       sink,
	}
}

func TestHandleWebhookRejectsMalformedPayloads(t *testing.T) {
	fx := newEventFixture(t, singleElimTournament([]string{"A", "B", "C", "D"}))
	ctx := context.Background()

	err := fx.svc.HandleWebhook(ctx, "srv1", []byte("{not json"))
	assert.ErrorIs(t, err, ErrValidationFailed)

	err = fx.svc.HandleWebhook(ctx, "srv1", []byte(`{"matchid":"r1m1"}`))
	assert.ErrorIs(t, err, ErrValidationFailed)

	err = fx.svc.HandleWebhook(ctx, "srv1", []byte(`{"event":"series_end","matchid":"missing"}`))
	assert.ErrorIs(t, err, ErrMatchNotFound)

	assert.Empty(t, fx.events.events, "rejected payloads must not reach the log")
}

func TestHandleWebhookSeriesEndAdvances(t *testing.T) {
	fx := newEventFixture(t, singleElimTournament([]string{"A", "B", "C", "D"}))
	ctx := context.Background()

	payload := []byte(`{"event":"series_end","matchid":"r1m1","team1_series_score":2,"team2_series_score":1}`)
	require.NoError(t, fx.svc.HandleWebhook(ctx, "srv1", payload))

	m, err := fx.matches.GetBySlug(ctx, "r1m1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, m.Status)
	assert.Equal(t, "A", *m.WinnerID)

	require.Len(t, fx.events.events, 1)
	assert.Equal(t, models.EventSeriesEnd, fx.events.events[0].EventType)
	assert.Equal(t, "r1m1", fx.events.events[0].MatchSlug)
}

func TestHandleWebhookSeriesEndWithAutoAdvanceDisabled(t *testing.T) {
	tournament := singleElimTournament([]string{"A", "B", "C", "D"})
	tournament.Settings.AutoAdvance = false
	fx := newEventFixture(t, tournament)
	ctx := context.Background()

	payload := []byte(`{"event":"series_end","matchid":"r1m1","team1_series_score":2,"team2_series_score":0}`)
	require.NoError(t, fx.svc.HandleWebhook(ctx, "srv1", payload))

	// Recorded for later manual confirmation, but the bracket is untouched.
	require.Len(t, fx.events.events, 1)
	m, _ := fx.matches.GetBySlug(ctx, "r1m1")
	assert.Equal(t, models.MatchStatusReady, m.Status)
	assert.Nil(t, m.WinnerID)
}

func TestHandleWebhookNumericMatchID(t *testing.T) {
	fx := newEventFixture(t, singleElimTournament([]string{"A", "B", "C", "D"}))
	ctx := context.Background()

	m, err := fx.matches.GetBySlug(ctx, "r1m1")
	require.NoError(t, err)

	payload := []byte(`{"event":"going_live","matchid":` + strconv.Itoa(m.ID) + `,"map_number":0}`)
	require.NoError(t, fx.svc.HandleWebhook(ctx, "srv1", payload))
	assert.Equal(t, models.MatchStatusLive, m.Status)
}

func TestMatchRefFromWebhook(t *testing.T) {
	assert.Equal(t, MatchRef{ID: 12}, matchRefFromWebhook(models.FlexibleString("12")))
	assert.Equal(t, MatchRef{Slug: "wb-r1m1"}, matchRefFromWebhook(models.FlexibleString("wb-r1m1")))
}

func TestVetoBuildsFromMapAndSidePicks(t *testing.T) {
	fx := newEventFixture(t, singleElimTournament([]string{"A", "B", "C", "D"}))
	ctx := context.Background()

	require.NoError(t, fx.svc.HandleWebhook(ctx, "srv1",
		[]byte(`{"event":"map_picked","matchid":"r1m1","team":"team1","map_name":"de_mirage","map_number":0}`)))

	m, _ := fx.matches.GetBySlug(ctx, "r1m1")
	require.NotNil(t, m.Veto)
	require.Len(t, m.Veto.Maps, 1)
	assert.False(t, m.Veto.Completed, "bo3 veto incomplete after one pick")
	assert.Equal(t, models.SideKnife, m.Veto.Maps[0].Side)

	require.NoError(t, fx.svc.HandleWebhook(ctx, "srv1",
		[]byte(`{"event":"side_picked","matchid":"r1m1","team":"team2","map_name":"de_mirage","side":"ct","map_number":0}`)))
	assert.Equal(t, models.SideTeam2CT, m.Veto.Maps[0].Side)

	require.NoError(t, fx.svc.HandleWebhook(ctx, "srv1",
		[]byte(`{"event":"map_picked","matchid":"r1m1","team":"team2","map_name":"de_inferno","map_number":1}`)))
	require.NoError(t, fx.svc.HandleWebhook(ctx, "srv1",
		[]byte(`{"event":"map_picked","matchid":"r1m1","team":"team1","map_name":"de_nuke","map_number":2}`)))

	assert.True(t, m.Veto.Completed)
	require.Len(t, m.Veto.Maps, 3)
}

func TestSidePickedWithoutVetoIsNoOp(t *testing.T) {
	fx := newEventFixture(t, singleElimTournament([]string{"A", "B", "C", "D"}))
	ctx := context.Background()

	require.NoError(t, fx.svc.HandleWebhook(ctx, "srv1",
		[]byte(`{"event":"side_picked","matchid":"r1m1","team":"team1","map_name":"de_mirage","side":"ct"}`)))

	m, _ := fx.matches.GetBySlug(ctx, "r1m1")
	assert.Nil(t, m.Veto)
}

func TestInformationalEventsFanOutOnly(t *testing.T) {
	fx := newEventFixture(t, singleElimTournament([]string{"A", "B", "C", "D"}))
	ctx := context.Background()

	require.NoError(t, fx.svc.HandleWebhook(ctx, "srv1",
		[]byte(`{"event":"round_end","matchid":"r1m1","map_number":0}`)))

	assert.Contains(t, fx.sink.actions, "round_end")
	m, _ := fx.matches.GetBySlug(ctx, "r1m1")
	assert.Equal(t, models.MatchStatusReady, m.Status)
}

func TestRecentEventsNewestFirstAndBounded(t *testing.T) {
	buf := newEventBuffer(2)
	for i := 0; i < 3; i++ {
		buf.push("srv1", &models.StoredEvent{
			ID:        uuid.New(),
			EventType: models.WebhookEventType(strconv.Itoa(i)),
		})
	}
	recent := buf.recent("srv1")
	require.Len(t, recent, 2)
	assert.Equal(t, models.WebhookEventType("2"), recent[0].EventType)
	assert.Equal(t, models.WebhookEventType("1"), recent[1].EventType)
	assert.Empty(t, buf.recent("srv2"))
}

func TestReplayEventsConvergesAfterSkippedAdvance(t *testing.T) {
	tournament := singleElimTournament([]string{"A", "B", "C", "D"})
	tournament.Settings.AutoAdvance = false
	fx := newEventFixture(t, tournament)
	ctx := context.Background()

	payload := []byte(`{"event":"series_end","matchid":"r1m1","team1_series_score":0,"team2_series_score":2}`)
	require.NoError(t, fx.svc.HandleWebhook(ctx, "srv1", payload))

	m, _ := fx.matches.GetBySlug(ctx, "r1m1")
	require.Equal(t, models.MatchStatusReady, m.Status)

	// Replay applies the logged result regardless of the auto-advance gate.
	require.NoError(t, fx.svc.ReplayEvents(ctx, "r1m1", nil))
	assert.Equal(t, models.MatchStatusCompleted, m.Status)
	assert.Equal(t, "B", *m.WinnerID)

	// Replaying again must converge to the same state.
	require.NoError(t, fx.svc.ReplayEvents(ctx, "r1m1", nil))
	assert.Equal(t, "B", *m.WinnerID)
	assert.Equal(t, 0, m.Team1Score)
	assert.Equal(t, 2, m.Team2Score)
}

func TestRecoverActiveMatches(t *testing.T) {
	fx := newEventFixture(t, singleElimTournament([]string{"A", "B", "C", "D"}))
	ctx := context.Background()

	srv1, srv2 := "srv1", "srv2"
	m1, _ := fx.matches.GetBySlug(ctx, "r1m1")
	m1.ServerID, m1.Status = &srv1, models.MatchStatusLive
	m2, _ := fx.matches.GetBySlug(ctx, "r1m2")
	m2.ServerID, m2.Status = &srv2, models.MatchStatusLoaded

	fx.remote.responses[srv1] = `{"matchid":"r1m1","gamestate":"none","finished":true,` +
		`"team1":{"series_score":2},"team2":{"series_score":0}}`
	fx.remote.responses[srv2] = `{"matchid":"r1m2","gamestate":"live","finished":false,` +
		`"team1":{"series_score":0},"team2":{"series_score":0}}`

	results, err := fx.svc.RecoverActiveMatches(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Applied, results[0].Reason)
	assert.True(t, results[1].Applied, results[1].Reason)

	assert.Equal(t, models.MatchStatusCompleted, m1.Status)
	assert.Equal(t, "A", *m1.WinnerID)
	assert.Equal(t, models.MatchStatusLive, m2.Status)

	assert.Contains(t, fx.remote.commands, srv1+": "+statusCommand)
	assert.Contains(t, fx.remote.commands, srv2+": "+statusCommand)
}

func TestRecoverSkipsServerHostingDifferentMatch(t *testing.T) {
	fx := newEventFixture(t, singleElimTournament([]string{"A", "B", "C", "D"}))
	ctx := context.Background()

	srv1 := "srv1"
	m1, _ := fx.matches.GetBySlug(ctx, "r1m1")
	m1.ServerID, m1.Status = &srv1, models.MatchStatusLive

	fx.remote.responses[srv1] = `{"matchid":"some-other-match","gamestate":"live","finished":false,` +
		`"team1":{"series_score":0},"team2":{"series_score":0}}`

	results, err := fx.svc.RecoverActiveMatches(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Applied)
	assert.Contains(t, results[0].Reason, "different match")
	assert.Equal(t, models.MatchStatusLive, m1.Status)
}

func TestRecoverReportsUnreachableServer(t *testing.T) {
	fx := newEventFixture(t, singleElimTournament([]string{"A", "B", "C", "D"}))
	ctx := context.Background()

	srv1 := "srv1"
	m1, _ := fx.matches.GetBySlug(ctx, "r1m1")
	m1.ServerID, m1.Status = &srv1, models.MatchStatusLive
	fx.remote.err = context.DeadlineExceeded

	results, err := fx.svc.RecoverActiveMatches(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Applied)
	assert.Contains(t, results[0].Reason, "server query failed")
}
