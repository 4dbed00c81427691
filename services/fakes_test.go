package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/brackets"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

// In-memory repository fakes. They hand out their stored pointers, which is
// fine for single-goroutine tests.

type fakeTournamentRepo struct {
	tournament *models.Tournament
}

func (f *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	if f.tournament != nil {
		return repositories.ErrTournamentExists
	}
	t.ID = models.ActiveTournamentID
	t.CreatedAt = time.Now().UTC()
	f.tournament = t
	return nil
}

func (f *fakeTournamentRepo) Get(ctx context.Context) (*models.Tournament, error) {
	if f.tournament == nil {
		return nil, repositories.ErrTournamentNotFound
	}
	return f.tournament, nil
}

func (f *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, status models.TournamentStatus) error {
	if f.tournament == nil {
		return repositories.ErrTournamentNotFound
	}
	f.tournament.Status = status
	return nil
}

func (f *fakeTournamentRepo) Delete(ctx context.Context, exec repositories.SQLExecutor) error {
	if f.tournament == nil {
		return repositories.ErrTournamentNotFound
	}
	f.tournament = nil
	return nil
}

type fakeMatchRepo struct {
	seq     int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func (f *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	for _, existing := range f.matches {
		if existing.Slug == m.Slug {
			return fmt.Errorf("%w: %s", repositories.ErrMatchSlugConflict, m.Slug)
		}
	}
	f.seq++
	m.ID = f.seq
	m.CreatedAt = time.Now().UTC()
	f.matches[m.ID] = m
	return nil
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m, nil
}

func (f *fakeMatchRepo) GetBySlug(ctx context.Context, slug string) (*models.Match, error) {
	for _, m := range f.matches {
		if m.Slug == slug {
			return m, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (f *fakeMatchRepo) sorted() []*models.Match {
	out := make([]*models.Match, 0, len(f.matches))
	for _, m := range f.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range f.sorted() {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMatchRepo) ListByStatuses(ctx context.Context, tournamentID int, statuses ...models.MatchStatus) ([]*models.Match, error) {
	want := make(map[models.MatchStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	out := make([]*models.Match, 0)
	for _, m := range f.sorted() {
		if m.TournamentID == tournamentID && want[m.Status] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMatchRepo) UpdateNextMatchInfo(ctx context.Context, exec repositories.SQLExecutor, matchID int, nextID, nextSlot, loserNextID, loserNextSlot *int) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextMatchID, m.NextMatchSlot = nextID, nextSlot
	m.LoserNextMatchID, m.LoserNextMatchSlot = loserNextID, loserNextSlot
	return nil
}

func (f *fakeMatchRepo) UpdateTeams(ctx context.Context, exec repositories.SQLExecutor, matchID int, team1ID, team2ID *string) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Team1ID, m.Team2ID = team1ID, team2ID
	return nil
}

func (f *fakeMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, matchID int, status models.MatchStatus) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (f *fakeMatchRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, matchID int, winnerID string, team1Score, team2Score int, completedAt time.Time) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = models.MatchStatusCompleted
	m.WinnerID = &winnerID
	m.Team1Score, m.Team2Score = team1Score, team2Score
	m.CompletedAt = &completedAt
	return nil
}

func (f *fakeMatchRepo) UpdateVeto(ctx context.Context, exec repositories.SQLExecutor, matchID int, veto *models.VetoState) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Veto = veto
	return nil
}

func (f *fakeMatchRepo) UpdateServer(ctx context.Context, exec repositories.SQLExecutor, matchID int, serverID *string, status models.MatchStatus, loadedAt *time.Time) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.ServerID, m.Status, m.LoadedAt = serverID, status, loadedAt
	return nil
}

func (f *fakeMatchRepo) UpdateDemoPath(ctx context.Context, exec repositories.SQLExecutor, matchID int, demoPath string) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.DemoPath = &demoPath
	return nil
}

func (f *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	for id, m := range f.matches {
		if m.TournamentID == tournamentID {
			delete(f.matches, id)
		}
	}
	return nil
}

type fakeTeamRepo struct {
	teams map[string]*models.Team
}

func newFakeTeamRepo(teams ...*models.Team) *fakeTeamRepo {
	f := &fakeTeamRepo{teams: make(map[string]*models.Team)}
	for _, t := range teams {
		f.teams[t.ID] = t
	}
	return f
}

func (f *fakeTeamRepo) Upsert(ctx context.Context, team *models.Team) error {
	f.teams[team.ID] = team
	return nil
}

func (f *fakeTeamRepo) GetByID(ctx context.Context, id string) (*models.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return t, nil
}

func (f *fakeTeamRepo) List(ctx context.Context) ([]*models.Team, error) {
	out := make([]*models.Team, 0, len(f.teams))
	for _, t := range f.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTeamRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(f.teams, id)
	return nil
}

type fakeEventRepo struct {
	events []*models.StoredEvent
}

func (f *fakeEventRepo) Append(ctx context.Context, event *models.StoredEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventRepo) ListByMatchSlug(ctx context.Context, matchSlug string, since *time.Time) ([]*models.StoredEvent, error) {
	out := make([]*models.StoredEvent, 0)
	for _, ev := range f.events {
		if ev.MatchSlug != matchSlug {
			continue
		}
		if since != nil && ev.ReceivedAt.Before(*since) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

type fakeServerRepo struct {
	servers map[string]*models.Server
}

func newFakeServerRepo(servers ...*models.Server) *fakeServerRepo {
	f := &fakeServerRepo{servers: make(map[string]*models.Server)}
	for _, s := range servers {
		f.servers[s.ID] = s
	}
	return f
}

func (f *fakeServerRepo) Create(ctx context.Context, server *models.Server) error {
	if _, ok := f.servers[server.ID]; ok {
		return repositories.ErrServerExists
	}
	f.servers[server.ID] = server
	return nil
}

func (f *fakeServerRepo) GetByID(ctx context.Context, id string) (*models.Server, error) {
	s, ok := f.servers[id]
	if !ok {
		return nil, repositories.ErrServerNotFound
	}
	return s, nil
}

func (f *fakeServerRepo) List(ctx context.Context) ([]*models.Server, error) {
	out := make([]*models.Server, 0, len(f.servers))
	for _, s := range f.servers {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeServerRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.servers[id]; !ok {
		return repositories.ErrServerNotFound
	}
	delete(f.servers, id)
	return nil
}

// fakeRemoteClient answers rcon commands from a canned table and records what
// was sent.
type fakeRemoteClient struct {
	mu        sync.Mutex
	responses map[string]string // serverID -> response
	err       error
	commands  []string
}

func (f *fakeRemoteClient) SendCommand(ctx context.Context, serverID string, command string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, serverID+": "+command)
	if f.err != nil {
		return "", f.err
	}
	return f.responses[serverID], nil
}

// recordingSink captures published notifications.
type recordingSink struct {
	matchUpdates []string
	actions      []string
}

func (r *recordingSink) PublishMatchUpdate(m *models.Match) {
	r.matchUpdates = append(r.matchUpdates, m.Slug)
}

func (r *recordingSink) PublishBracketUpdate(action string, payload interface{}) {
	r.actions = append(r.actions, action)
}

// persistBracket materializes generator output into the fake repo the same
// way the bracket service does: create rows, then resolve slug links to ids.
func persistBracket(t *testing.T, repo *fakeMatchRepo, tournamentID int, generated []*brackets.BracketMatch) {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	idBySlug := make(map[string]int, len(generated))
	created := make([]*models.Match, len(generated))
	for i, bm := range generated {
		m := &models.Match{
			TournamentID: tournamentID,
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
		require.NoError(t, repo.Create(ctx, nil, m))
		idBySlug[m.Slug] = m.ID
		created[i] = m
	}
	for i, bm := range generated {
		m := created[i]
		if bm.WinnerNextSlug != nil {
			id := idBySlug[*bm.WinnerNextSlug]
			slot := bm.WinnerNextSlot
			m.NextMatchID, m.NextMatchSlot = &id, &slot
		}
		if bm.LoserNextSlug != nil {
			id := idBySlug[*bm.LoserNextSlug]
			slot := bm.LoserNextSlot
			m.LoserNextMatchID, m.LoserNextMatchSlot = &id, &slot
		}
	}
}

// setupBracket generates and persists a bracket for the given tournament and
// returns the wired repos.
func setupBracket(t *testing.T, tournament *models.Tournament, teams []string) (*fakeTournamentRepo, *fakeMatchRepo) {
	t.Helper()
	gen, err := brackets.NewGenerator(tournament.Type)
	require.NoError(t, err)
	generated, err := gen.GenerateBracket(context.Background(), brackets.GenerateBracketParams{
		Tournament: tournament,
		TeamIDs:    teams,
	})
	require.NoError(t, err)

	matchRepo := newFakeMatchRepo()
	persistBracket(t, matchRepo, tournament.ID, generated)
	return &fakeTournamentRepo{tournament: tournament}, matchRepo
}
