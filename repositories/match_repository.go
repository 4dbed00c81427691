package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchSlugConflict = errors.New("match slug already exists for this tournament")
)

const matchColumns = `
	id, tournament_id, slug, segment, round, number,
	team1_id, team2_id, winner_id, team1_score, team2_score, status,
	next_match_id, next_match_slot, loser_next_match_id, loser_next_match_slot,
	server_id, veto, demo_path, created_at, loaded_at, completed_at`

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	GetBySlug(ctx context.Context, slug string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	ListByStatuses(ctx context.Context, tournamentID int, statuses ...models.MatchStatus) ([]*models.Match, error)
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextID, nextSlot, loserNextID, loserNextSlot *int) error
	UpdateTeams(ctx context.Context, exec SQLExecutor, matchID int, team1ID, team2ID *string) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, matchID int, status models.MatchStatus) error
	Complete(ctx context.Context, exec SQLExecutor, matchID int, winnerID string, team1Score, team2Score int, completedAt time.Time) error
	UpdateVeto(ctx context.Context, exec SQLExecutor, matchID int, veto *models.VetoState) error
	UpdateServer(ctx context.Context, exec SQLExecutor, matchID int, serverID *string, status models.MatchStatus, loadedAt *time.Time) error
	UpdateDemoPath(ctx context.Context, exec SQLExecutor, matchID int, demoPath string) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	veto, err := marshalVeto(m.Veto)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches (
			tournament_id, slug, segment, round, number,
			team1_id, team2_id, winner_id, team1_score, team2_score, status,
			next_match_id, next_match_slot, loser_next_match_id, loser_next_match_slot,
			server_id, veto, demo_path, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at`

	err = r.getExecutor(exec).QueryRowContext(ctx, query,
		m.TournamentID, m.Slug, m.Segment, m.Round, m.Number,
		m.Team1ID, m.Team2ID, m.WinnerID, m.Team1Score, m.Team2Score, m.Status,
		m.NextMatchID, m.NextMatchSlot, m.LoserNextMatchID, m.LoserNextMatchSlot,
		m.ServerID, veto, m.DemoPath, m.CompletedAt,
	).Scan(&m.ID, &m.CreatedAt)

	if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrMatchSlugConflict, m.Slug)
	}
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", m.Slug, err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetBySlug(ctx context.Context, slug string) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE slug = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, slug))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	var b strings.Builder
	b.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	if round != nil {
		args = append(args, *round)
		b.WriteString(" AND round = $" + strconv.Itoa(len(args)))
	}
	if status != nil {
		args = append(args, *status)
		b.WriteString(" AND status = $" + strconv.Itoa(len(args)))
	}
	b.WriteString(" ORDER BY segment, round, number, id")

	return r.queryMatches(ctx, b.String(), args...)
}

func (r *postgresMatchRepository) ListByStatuses(ctx context.Context, tournamentID int, statuses ...models.MatchStatus) ([]*models.Match, error) {
	vals := make([]string, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}
	query := `SELECT` + matchColumns + ` FROM matches
		WHERE tournament_id = $1 AND status = ANY($2)
		ORDER BY segment, round, number, id`
	return r.queryMatches(ctx, query, tournamentID, pq.Array(vals))
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextID, nextSlot, loserNextID, loserNextSlot *int) error {
	query := `
		UPDATE matches
		SET next_match_id = $1, next_match_slot = $2, loser_next_match_id = $3, loser_next_match_slot = $4
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, nextID, nextSlot, loserNextID, loserNextSlot, matchID)
	if err != nil {
		return fmt.Errorf("failed to update next match info for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateTeams(ctx context.Context, exec SQLExecutor, matchID int, team1ID, team2ID *string) error {
	query := `UPDATE matches SET team1_id = $1, team2_id = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, team1ID, team2ID, matchID)
	if err != nil {
		return fmt.Errorf("failed to update teams for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, matchID int, status models.MatchStatus) error {
	query := `UPDATE matches SET status = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, matchID)
	if err != nil {
		return fmt.Errorf("failed to update status for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, matchID int, winnerID string, team1Score, team2Score int, completedAt time.Time) error {
	query := `
		UPDATE matches
		SET status = $1, winner_id = $2, team1_score = $3, team2_score = $4, completed_at = $5
		WHERE id = $6`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		models.MatchStatusCompleted, winnerID, team1Score, team2Score, completedAt, matchID)
	if err != nil {
		return fmt.Errorf("failed to complete match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateVeto(ctx context.Context, exec SQLExecutor, matchID int, veto *models.VetoState) error {
	data, err := marshalVeto(veto)
	if err != nil {
		return err
	}
	query := `UPDATE matches SET veto = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, data, matchID)
	if err != nil {
		return fmt.Errorf("failed to update veto for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateServer(ctx context.Context, exec SQLExecutor, matchID int, serverID *string, status models.MatchStatus, loadedAt *time.Time) error {
	query := `UPDATE matches SET server_id = $1, status = $2, loaded_at = $3 WHERE id = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, serverID, status, loadedAt, matchID)
	if err != nil {
		return fmt.Errorf("failed to update server for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateDemoPath(ctx context.Context, exec SQLExecutor, matchID int, demoPath string) error {
	query := `UPDATE matches SET demo_path = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, demoPath, matchID)
	if err != nil {
		return fmt.Errorf("failed to update demo path for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	// Clear link columns first so the self-referencing FK does not block the
	// delete regardless of row order.
	clear := `UPDATE matches SET next_match_id = NULL, loser_next_match_id = NULL WHERE tournament_id = $1`
	if _, err := r.getExecutor(exec).ExecContext(ctx, clear, tournamentID); err != nil {
		return fmt.Errorf("failed to clear match links for tournament %d: %w", tournamentID, err)
	}
	query := `DELETE FROM matches WHERE tournament_id = $1`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) scanOne(row *sql.Row) (*models.Match, error) {
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var veto []byte
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Slug, &m.Segment, &m.Round, &m.Number,
		&m.Team1ID, &m.Team2ID, &m.WinnerID, &m.Team1Score, &m.Team2Score, &m.Status,
		&m.NextMatchID, &m.NextMatchSlot, &m.LoserNextMatchID, &m.LoserNextMatchSlot,
		&m.ServerID, &veto, &m.DemoPath, &m.CreatedAt, &m.LoadedAt, &m.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan match row: %w", err)
	}
	if len(veto) > 0 {
		m.Veto = &models.VetoState{}
		if err := json.Unmarshal(veto, m.Veto); err != nil {
			return nil, fmt.Errorf("failed to unmarshal veto state for match %d: %w", m.ID, err)
		}
	}
	return m, nil
}

func marshalVeto(v *models.VetoState) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal veto state: %w", err)
	}
	return data, nil
}
