package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	Upsert(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id string) (*models.Team, error)
	List(ctx context.Context) ([]*models.Team, error)
	Delete(ctx context.Context, id string) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) Upsert(ctx context.Context, team *models.Team) error {
	players, err := json.Marshal(team.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players for team %s: %w", team.ID, err)
	}

	query := `
		INSERT INTO teams (id, name, tag, players)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, tag = EXCLUDED.tag, players = EXCLUDED.players
		RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query, team.ID, team.Name, team.Tag, players).Scan(&team.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert team %s: %w", team.ID, err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	query := `SELECT id, name, tag, players, created_at FROM teams WHERE id = $1`

	team := &models.Team{}
	var players []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&team.ID, &team.Name, &team.Tag, &players, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team %s: %w", id, err)
	}
	if err := json.Unmarshal(players, &team.Players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal players for team %s: %w", id, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) List(ctx context.Context) ([]*models.Team, error) {
	query := `SELECT id, name, tag, players, created_at FROM teams ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team := &models.Team{}
		var players []byte
		if err := rows.Scan(&team.ID, &team.Name, &team.Tag, &players, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		if err := json.Unmarshal(players, &team.Players); err != nil {
			return nil, fmt.Errorf("failed to unmarshal players for team %s: %w", team.ID, err)
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during team rows iteration: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
