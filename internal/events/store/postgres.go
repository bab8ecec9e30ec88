package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stevedore/internal/events/models"
	"stevedore/pkg/domain"
	txcontext "stevedore/pkg/platform/tx"
)

// Postgres is the durable outbox. Append joins whatever transaction the
// registry write runs in, which is the whole point of the outbox pattern.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Append(ctx context.Context, e *models.Event) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO event_outbox (id, kind, shipment_id, payload, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, uuid.UUID(e.ID), string(e.Kind), nullableID(uuid.UUID(e.ShipmentID)), []byte(e.Payload), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

func (s *Postgres) ListUnpublished(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, kind, COALESCE(shipment_id, '00000000-0000-0000-0000-000000000000'), payload, created_at
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var e models.Event
		var id, shipmentID uuid.UUID
		var kind string
		var payload []byte
		if err := rows.Scan(&id, &kind, &shipmentID, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.ID = domain.EventID(id)
		e.Kind = models.Kind(kind)
		e.ShipmentID = domain.ShipmentID(shipmentID)
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Postgres) MarkPublished(ctx context.Context, ids []domain.EventID, at time.Time) error {
	for _, id := range ids {
		if _, err := s.q(ctx).ExecContext(ctx,
			`UPDATE event_outbox SET published_at = $2 WHERE id = $1`, uuid.UUID(id), at); err != nil {
			return fmt.Errorf("mark event published: %w", err)
		}
	}
	return nil
}

func nullableID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
