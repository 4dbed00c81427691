package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

var (
	ErrServerNotFound = errors.New("server not found")
	ErrServerExists   = errors.New("server id already registered")
)

type ServerRepository interface {
	Create(ctx context.Context, server *models.Server) error
	GetByID(ctx context.Context, id string) (*models.Server, error)
	List(ctx context.Context) ([]*models.Server, error)
	Delete(ctx context.Context, id string) error
}

type postgresServerRepository struct {
	db *sql.DB
}

func NewPostgresServerRepository(db *sql.DB) ServerRepository {
	return &postgresServerRepository{db: db}
}

func (r *postgresServerRepository) Create(ctx context.Context, server *models.Server) error {
	query := `
		INSERT INTO servers (id, name, host, port, rcon_password)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		server.ID, server.Name, server.Host, server.Port, server.RconPassword,
	).Scan(&server.CreatedAt)

	if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrServerExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert server %s: %w", server.ID, err)
	}
	return nil
}

func (r *postgresServerRepository) GetByID(ctx context.Context, id string) (*models.Server, error) {
	query := `SELECT id, name, host, port, rcon_password, created_at FROM servers WHERE id = $1`

	s := &models.Server{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Host, &s.Port, &s.RconPassword, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServerNotFound
		}
		return nil, fmt.Errorf("failed to scan server %s: %w", id, err)
	}
	return s, nil
}

func (r *postgresServerRepository) List(ctx context.Context) ([]*models.Server, error) {
	query := `SELECT id, name, host, port, rcon_password, created_at FROM servers ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query servers: %w", err)
	}
	defer rows.Close()

	servers := make([]*models.Server, 0)
	for rows.Next() {
		s := &models.Server{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Host, &s.Port, &s.RconPassword, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan server row: %w", err)
		}
		servers = append(servers, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during server rows iteration: %w", err)
	}
	return servers, nil
}

func (r *postgresServerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM servers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete server %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrServerNotFound)
}
