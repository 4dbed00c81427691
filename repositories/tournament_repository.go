package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentExists   = errors.New("a tournament already exists; delete it before creating a new one")
)

// TournamentRepository stores the singleton tournament row. The primary key
// is fixed to models.ActiveTournamentID and guarded by a CHECK constraint, so
// at most one tournament can exist per deployment.
type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	Get(ctx context.Context) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, status models.TournamentStatus) error
	Delete(ctx context.Context, exec SQLExecutor) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament settings: %w", err)
	}

	query := `
		INSERT INTO tournaments (id, name, type, format, map_pool, team_ids, settings, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	t.ID = models.ActiveTournamentID
	err = r.getExecutor(exec).QueryRowContext(ctx, query,
		t.ID, t.Name, t.Type, t.Format,
		pq.Array(t.MapPool), pq.Array(t.TeamIDs), settings, t.Status,
	).Scan(&t.CreatedAt)

	if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrTournamentExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) Get(ctx context.Context) (*models.Tournament, error) {
	query := `
		SELECT id, name, type, format, map_pool, team_ids, settings, status, created_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	var settings []byte
	err := r.db.QueryRowContext(ctx, query, models.ActiveTournamentID).Scan(
		&t.ID, &t.Name, &t.Type, &t.Format,
		pq.Array(&t.MapPool), pq.Array(&t.TeamIDs), &settings, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	if err := json.Unmarshal(settings, &t.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tournament settings: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, models.ActiveTournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.ActiveTournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
