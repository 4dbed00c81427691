package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

// EventRepository is the append-only webhook event log used for audit and
// idempotent replay. It is never updated or pruned by the core.
type EventRepository interface {
	Append(ctx context.Context, event *models.StoredEvent) error
	ListByMatchSlug(ctx context.Context, matchSlug string, since *time.Time) ([]*models.StoredEvent, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) Append(ctx context.Context, event *models.StoredEvent) error {
	query := `
		INSERT INTO events (id, match_slug, server_id, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.MatchSlug, event.ServerID, event.EventType, []byte(event.Payload), event.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event %s for match %s: %w", event.EventType, event.MatchSlug, err)
	}
	return nil
}

func (r *postgresEventRepository) ListByMatchSlug(ctx context.Context, matchSlug string, since *time.Time) ([]*models.StoredEvent, error) {
	query := `
		SELECT id, match_slug, server_id, event_type, payload, received_at
		FROM events
		WHERE match_slug = $1`
	args := []interface{}{matchSlug}
	if since != nil {
		query += ` AND received_at >= $2`
		args = append(args, *since)
	}
	query += ` ORDER BY received_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for match %s: %w", matchSlug, err)
	}
	defer rows.Close()

	events := make([]*models.StoredEvent, 0)
	for rows.Next() {
		ev := &models.StoredEvent{}
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.MatchSlug, &ev.ServerID, &ev.EventType, &payload, &ev.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		ev.Payload = payload
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during event rows iteration: %w", err)
	}
	return events, nil
}
