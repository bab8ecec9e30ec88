package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"stevedore/internal/workflow/models"
	"stevedore/pkg/domain"
	txcontext "stevedore/pkg/platform/tx"
)

// Postgres persists the workflow transition log. The table has no UPDATE or
// DELETE path in this codebase; history is extended, never rewritten.
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

func (s *Postgres) Append(ctx context.Context, t *models.Transition) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO workflow_state_history (
			id, shipment_id, from_state, to_state,
			document_type, direction, email_id, document_id, reason, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		uuid.UUID(t.ID), uuid.UUID(t.ShipmentID), t.FromState, t.ToState,
		string(t.DocumentType), string(t.Direction),
		nullableID(uuid.UUID(t.EmailID)), nullableID(uuid.UUID(t.DocumentID)),
		t.Reason, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

func (s *Postgres) ListByShipment(ctx context.Context, id domain.ShipmentID) ([]models.Transition, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, shipment_id, from_state, to_state,
			document_type, direction,
			COALESCE(email_id, '00000000-0000-0000-0000-000000000000'),
			COALESCE(document_id, '00000000-0000-0000-0000-000000000000'),
			reason, created_at
		FROM workflow_state_history
		WHERE shipment_id = $1
		ORDER BY created_at, id
	`, uuid.UUID(id))
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []models.Transition
	for rows.Next() {
		var t models.Transition
		var tid, sid, eid, did uuid.UUID
		var docType, direction string
		if err := rows.Scan(&tid, &sid, &t.FromState, &t.ToState,
			&docType, &direction, &eid, &did, &t.Reason, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.ID = domain.TransitionID(tid)
		t.ShipmentID = domain.ShipmentID(sid)
		t.EmailID = domain.EmailID(eid)
		t.DocumentID = domain.DocumentID(did)
		t.DocumentType = domain.DocumentType(docType)
		t.Direction = domain.Direction(direction)
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullableID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
