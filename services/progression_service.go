package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

// MatchRef identifies a match by database id or slug; slug wins when both are
// set. Webhooks may carry either form in the matchid field.
type MatchRef struct {
	ID   int
	Slug string
}

func (r MatchRef) String() string {
	if r.Slug != "" {
		return r.Slug
	}
	return fmt.Sprintf("#%d", r.ID)
}

// ProgressionService is the match-graph state machine. It applies completion
// results, advances winners and losers along the bracket edges, cascades
// walkovers to a fixed point, pairs swiss rounds and detects tournament
// completion.
//
// All mutations are serialized by a single lock scoped to the active
// tournament's bracket: a cascade can touch any match, so finer-grained
// locking buys nothing. Every step re-reads persisted state, which makes an
// interrupted cascade safe to finish via a duplicate or later event.
type ProgressionService interface {
	OnSeriesEnd(ctx context.Context, ref MatchRef, team1Score, team2Score int) error
	OnGoingLive(ctx context.Context, ref MatchRef) error
	PropagateWalkovers(ctx context.Context) error
	ResolveMatch(ctx context.Context, ref MatchRef) (*models.Match, error)
}

type progressionService struct {
	mu             sync.Mutex
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	sink           NotificationSink
	logger         *slog.Logger
}

func NewProgressionService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	sink NotificationSink,
	logger *slog.Logger,
) ProgressionService {
	if sink == nil {
		sink = NoopSink()
	}
	return &progressionService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		sink:           sink,
		logger:         logger,
	}
}

// bracketState is an in-memory snapshot of the bracket, indexed by id.
// Matches are mutated in place as their persisted counterparts change.
type bracketState struct {
	matches []*models.Match
	byID    map[int]*models.Match
}

func (s *progressionService) OnSeriesEnd(ctx context.Context, ref MatchRef, team1Score, team2Score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	if m.IsCompleted() {
		// Duplicate delivery is expected under at-least-once semantics.
		s.logger.Info("series_end for already completed match ignored", slog.String("match", m.Slug))
		return nil
	}
	if team1Score == team2Score {
		return fmt.Errorf("%w: %d:%d for match %s", ErrTiedSeriesScore, team1Score, team2Score, m.Slug)
	}

	winner := m.Team1ID
	if team2Score > team1Score {
		winner = m.Team2ID
	}
	if winner == nil {
		return fmt.Errorf("%w: match %s", ErrTeamsNotResolved, m.Slug)
	}

	now := time.Now().UTC()
	if err := s.matchRepo.Complete(ctx, nil, m.ID, *winner, team1Score, team2Score, now); err != nil {
		return err
	}
	s.logger.Info("match completed",
		slog.String("match", m.Slug),
		slog.String("winner", *winner),
		slog.Int("team1_score", team1Score),
		slog.Int("team2_score", team2Score))

	tournament, err := s.tournamentRepo.Get(ctx)
	if err != nil {
		return err
	}
	state, err := s.loadState(ctx)
	if err != nil {
		return err
	}

	if err := s.advanceFrom(ctx, state, state.byID[m.ID]); err != nil {
		return err
	}
	if tournament.Type == models.TypeSwiss {
		if err := s.pairNextSwissRound(ctx, tournament, state); err != nil {
			return err
		}
	}
	if err := s.cascadeWalkovers(ctx, state); err != nil {
		return err
	}
	if err := s.checkTournamentCompletion(ctx, tournament, state); err != nil {
		return err
	}

	s.sink.PublishMatchUpdate(state.byID[m.ID])
	return nil
}

func (s *progressionService) OnGoingLive(ctx context.Context, ref MatchRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	// Re-applying while live, or after an out-of-order series_end, is a no-op.
	if m.Status == models.MatchStatusLive || m.IsCompleted() {
		return nil
	}
	if err := s.matchRepo.UpdateStatus(ctx, nil, m.ID, models.MatchStatusLive); err != nil {
		return err
	}
	m.Status = models.MatchStatusLive
	s.logger.Info("match live", slog.String("match", m.Slug))
	s.sink.PublishMatchUpdate(m)
	return nil
}

// PropagateWalkovers runs one cascade pass over the whole bracket. Called
// after bracket generation and from recovery; OnSeriesEnd runs the same pass
// internally.
func (s *progressionService) PropagateWalkovers(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tournament, err := s.tournamentRepo.Get(ctx)
	if err != nil {
		return err
	}
	state, err := s.loadState(ctx)
	if err != nil {
		return err
	}
	if err := s.cascadeWalkovers(ctx, state); err != nil {
		return err
	}
	return s.checkTournamentCompletion(ctx, tournament, state)
}

func (s *progressionService) ResolveMatch(ctx context.Context, ref MatchRef) (*models.Match, error) {
	return s.resolve(ctx, ref)
}

func (s *progressionService) resolve(ctx context.Context, ref MatchRef) (*models.Match, error) {
	var (
		m   *models.Match
		err error
	)
	if ref.Slug != "" {
		m, err = s.matchRepo.GetBySlug(ctx, ref.Slug)
	} else {
		m, err = s.matchRepo.GetByID(ctx, ref.ID)
	}
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, ref)
	}
	return m, err
}

func (s *progressionService) loadState(ctx context.Context) (*bracketState, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, models.ActiveTournamentID, nil, nil)
	if err != nil {
		return nil, err
	}
	state := &bracketState{
		matches: matches,
		byID:    make(map[int]*models.Match, len(matches)),
	}
	for _, m := range matches {
		state.byID[m.ID] = m
	}
	return state, nil
}

// advanceFrom places a completed match's winner (and, for double
// elimination, its loser) into the linked destination slots. Placement is
// idempotent: re-running from persisted state after a crash yields the same
// assignment.
func (s *progressionService) advanceFrom(ctx context.Context, state *bracketState, m *models.Match) error {
	if m == nil || !m.IsCompleted() || m.WinnerID == nil {
		return nil
	}
	if m.NextMatchID != nil {
		if err := s.placeTeam(ctx, state, *m.NextMatchID, derefSlot(m.NextMatchSlot), *m.WinnerID); err != nil {
			return err
		}
	}
	if m.LoserNextMatchID != nil {
		if loser := m.LoserID(); loser != nil {
			if err := s.placeTeam(ctx, state, *m.LoserNextMatchID, derefSlot(m.LoserNextMatchSlot), *loser); err != nil {
				return err
			}
		}
	}
	return nil
}

func derefSlot(slot *int) int {
	if slot == nil {
		return 0
	}
	return *slot
}

// placeTeam writes teamID into the given slot of the target match, falling
// back to the first unoccupied slot when no slot was recorded. Filling the
// second slot promotes the match from pending to ready.
func (s *progressionService) placeTeam(ctx context.Context, state *bracketState, targetID, slot int, teamID string) error {
	target, ok := state.byID[targetID]
	if !ok {
		return fmt.Errorf("%w: linked match id %d", ErrMatchNotFound, targetID)
	}
	if target.IsCompleted() {
		return nil
	}

	if slot != 1 && slot != 2 {
		slot = 1
		if target.Team1ID != nil {
			slot = 2
		}
	}
	if cur := target.TeamInSlot(slot); cur != nil && *cur != teamID {
		// Slot already taken by someone else; tolerate a swapped layout as
		// long as the team fits the other slot.
		other := 3 - slot
		oc := target.TeamInSlot(other)
		if oc != nil && *oc != teamID {
			return fmt.Errorf("no free slot in match %s for team %s", target.Slug, teamID)
		}
		slot = other
	}

	if target.TeamInSlot(slot) == nil {
		if slot == 1 {
			target.Team1ID = &teamID
		} else {
			target.Team2ID = &teamID
		}
		if err := s.matchRepo.UpdateTeams(ctx, nil, target.ID, target.Team1ID, target.Team2ID); err != nil {
			return err
		}
		s.logger.Info("team advanced",
			slog.String("team", teamID),
			slog.String("into", target.Slug),
			slog.Int("slot", slot))
	}

	if target.BothTeamsKnown() && target.Status == models.MatchStatusPending {
		if err := s.matchRepo.UpdateStatus(ctx, nil, target.ID, models.MatchStatusReady); err != nil {
			return err
		}
		target.Status = models.MatchStatusReady
		s.sink.PublishMatchUpdate(target)
	}
	return nil
}

// cascadeWalkovers runs placement re-derivation plus dead-branch resolution
// to a fixed point: any non-completed match holding exactly one team whose
// empty slot can never be filled is auto-completed and its winner advanced.
// A single bye can ripple through several rounds this way.
func (s *progressionService) cascadeWalkovers(ctx context.Context, state *bracketState) error {
	for {
		// Re-derive placements from every completed match first; after a
		// crash mid-cascade this repairs missing assignments.
		for _, m := range state.matches {
			if err := s.advanceFrom(ctx, state, m); err != nil {
				return err
			}
		}

		completedAny := false
		for _, m := range state.matches {
			if m.IsCompleted() {
				continue
			}
			if (m.Team1ID == nil) == (m.Team2ID == nil) {
				continue // zero or two teams resolved
			}
			emptySlot := 1
			if m.Team1ID != nil {
				emptySlot = 2
			}
			if hasLiveFeeder(state, m.ID, emptySlot) {
				continue
			}

			winner := m.Team1ID
			if winner == nil {
				winner = m.Team2ID
			}
			now := time.Now().UTC()
			if err := s.matchRepo.Complete(ctx, nil, m.ID, *winner, 0, 0, now); err != nil {
				return err
			}
			m.Status = models.MatchStatusCompleted
			m.WinnerID = winner
			m.CompletedAt = &now
			completedAny = true
			s.logger.Info("walkover applied", slog.String("match", m.Slug), slog.String("winner", *winner))
			s.sink.PublishMatchUpdate(m)
		}
		if !completedAny {
			return nil
		}
	}
}

// hasLiveFeeder reports whether any non-completed match still feeds the given
// slot. Completed feeders have already placed their output (or, for a bye's
// loser drop, never will), so only live ones count.
func hasLiveFeeder(state *bracketState, targetID, slot int) bool {
	for _, m := range state.matches {
		if m.IsCompleted() {
			continue
		}
		if m.NextMatchID != nil && *m.NextMatchID == targetID && derefSlot(m.NextMatchSlot) == slot {
			return true
		}
		if m.LoserNextMatchID != nil && *m.LoserNextMatchID == targetID && derefSlot(m.LoserNextMatchSlot) == slot {
			return true
		}
	}
	return false
}

// pairNextSwissRound fills the next round's empty shells once every earlier
// round has completed. Pairing is by current standings: wins descending, seed
// order as the tie break, paired sequentially within that order.
func (s *progressionService) pairNextSwissRound(ctx context.Context, tournament *models.Tournament, state *bracketState) error {
	totalRounds := 0
	for _, m := range state.matches {
		if m.Round > totalRounds {
			totalRounds = m.Round
		}
	}

	next := 0
	for r := 1; r <= totalRounds; r++ {
		if !roundCompleted(state, r) {
			return nil
		}
		if r < totalRounds && roundUnpaired(state, r+1) {
			next = r + 1
			break
		}
	}
	if next == 0 {
		return nil
	}

	standings := swissStandings(tournament, state)
	shells := make([]*models.Match, 0)
	for _, m := range state.matches {
		if m.Round == next {
			shells = append(shells, m)
		}
	}
	sort.Slice(shells, func(i, j int) bool { return shells[i].Number < shells[j].Number })

	if len(standings) < 2*len(shells) {
		return fmt.Errorf("cannot pair swiss round %d: %d teams for %d matches", next, len(standings), len(shells))
	}

	for i, shell := range shells {
		t1, t2 := standings[2*i], standings[2*i+1]
		shell.Team1ID = &t1
		shell.Team2ID = &t2
		if err := s.matchRepo.UpdateTeams(ctx, nil, shell.ID, shell.Team1ID, shell.Team2ID); err != nil {
			return err
		}
		if err := s.matchRepo.UpdateStatus(ctx, nil, shell.ID, models.MatchStatusReady); err != nil {
			return err
		}
		shell.Status = models.MatchStatusReady
		s.sink.PublishMatchUpdate(shell)
	}

	s.logger.Info("swiss round paired", slog.Int("round", next))
	s.sink.PublishBracketUpdate("SWISS_ROUND_PAIRED", map[string]interface{}{"round": next})
	return nil
}

func roundCompleted(state *bracketState, round int) bool {
	for _, m := range state.matches {
		if m.Round == round && !m.IsCompleted() {
			return false
		}
	}
	return true
}

func roundUnpaired(state *bracketState, round int) bool {
	for _, m := range state.matches {
		if m.Round == round && (m.Team1ID != nil || m.Team2ID != nil) {
			return false
		}
	}
	return true
}

// swissStandings orders the tournament's teams by wins descending, breaking
// ties by seed order.
func swissStandings(tournament *models.Tournament, state *bracketState) []string {
	wins := make(map[string]int, len(tournament.TeamIDs))
	for _, m := range state.matches {
		if m.IsCompleted() && m.WinnerID != nil {
			wins[*m.WinnerID]++
		}
	}
	standings := make([]string, len(tournament.TeamIDs))
	copy(standings, tournament.TeamIDs)
	sort.SliceStable(standings, func(i, j int) bool {
		return wins[standings[i]] > wins[standings[j]]
	})
	return standings
}

// checkTournamentCompletion flips the tournament to completed once no
// unfinished match remains; on these graphs that is exactly when the
// format's terminal matches are done.
func (s *progressionService) checkTournamentCompletion(ctx context.Context, tournament *models.Tournament, state *bracketState) error {
	if tournament.Status == models.TournamentStatusCompleted || len(state.matches) == 0 {
		return nil
	}
	for _, m := range state.matches {
		if !m.IsCompleted() {
			return nil
		}
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, models.TournamentStatusCompleted); err != nil {
		return err
	}
	tournament.Status = models.TournamentStatusCompleted

	winner := tournamentWinner(tournament, state)
	s.logger.Info("tournament completed", slog.String("winner", winner))
	s.sink.PublishBracketUpdate("TOURNAMENT_COMPLETED", map[string]interface{}{"winner_id": winner})
	return nil
}

// tournamentWinner derives the champion from the terminal match for
// elimination formats, or from standings for round robin and swiss.
func tournamentWinner(tournament *models.Tournament, state *bracketState) string {
	switch tournament.Type {
	case models.TypeDoubleElimination:
		for _, m := range state.matches {
			if m.Segment == models.SegmentGrandFinal && m.WinnerID != nil {
				return *m.WinnerID
			}
		}
	case models.TypeSingleElimination:
		var final *models.Match
		for _, m := range state.matches {
			if m.Number != 1 {
				continue
			}
			if final == nil || m.Round > final.Round {
				final = m
			}
		}
		if final != nil && final.WinnerID != nil {
			return *final.WinnerID
		}
	default:
		standings := swissStandings(tournament, state)
		if len(standings) > 0 {
			return standings[0]
		}
	}
	return ""
}
