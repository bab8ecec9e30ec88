package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"stevedore/internal/reconcile/models"
	"stevedore/pkg/domain"
	"stevedore/pkg/platform/sentinel"
	txcontext "stevedore/pkg/platform/tx"
)

// Postgres persists reconciliation records. The per-field breakdown is a
// JSONB column: it is written once per run and read back whole, never
// queried field-by-field.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, r *models.ReconciliationRecord) error {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("marshal field results: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO reconciliation_records (
			id, shipment_id, pair_key, doc_a_id, doc_b_id,
			fields, matches, discrepancies, critical, warnings,
			can_proceed, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		uuid.UUID(r.ID), uuid.UUID(r.ShipmentID), r.PairKey,
		nullableID(uuid.UUID(r.DocAID)), nullableID(uuid.UUID(r.DocBID)),
		fields, r.Matches, r.Discrepancies, r.Critical, r.Warnings,
		r.CanProceed, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reconciliation record: %w", err)
	}
	return nil
}

const recordColumns = `
	id, shipment_id, pair_key,
	COALESCE(doc_a_id, '00000000-0000-0000-0000-000000000000'),
	COALESCE(doc_b_id, '00000000-0000-0000-0000-000000000000'),
	fields, matches, discrepancies, critical, warnings, can_proceed,
	resolved_by, resolved_at, resolution_note, created_at`

func (s *Postgres) FindByID(ctx context.Context, id domain.ReconciliationID) (*models.ReconciliationRecord, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM reconciliation_records WHERE id = $1`, uuid.UUID(id))
	return scanRecord(row)
}

func (s *Postgres) ListByShipment(ctx context.Context, id domain.ShipmentID) ([]models.ReconciliationRecord, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+recordColumns+` FROM reconciliation_records
		 WHERE shipment_id = $1 ORDER BY created_at, id`, uuid.UUID(id))
	if err != nil {
		return nil, fmt.Errorf("list reconciliation records: %w", err)
	}
	defer rows.Close()

	var out []models.ReconciliationRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Postgres) SetResolution(ctx context.Context, id domain.ReconciliationID, res models.Resolution) error {
	result, err := s.q(ctx).ExecContext(ctx, `
		UPDATE reconciliation_records
		SET resolved_by = $2, resolved_at = $3, resolution_note = $4
		WHERE id = $1
	`, uuid.UUID(id), res.ResolvedBy, res.ResolvedAt, res.Note)
	if err != nil {
		return fmt.Errorf("set resolution: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*models.ReconciliationRecord, error) {
	var r models.ReconciliationRecord
	var id, shipmentID, docA, docB uuid.UUID
	var fields []byte
	var resolvedBy, resolutionNote sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(&id, &shipmentID, &r.PairKey, &docA, &docB,
		&fields, &r.Matches, &r.Discrepancies, &r.Critical, &r.Warnings, &r.CanProceed,
		&resolvedBy, &resolvedAt, &resolutionNote, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan reconciliation record: %w", err)
	}
	r.ID = domain.ReconciliationID(id)
	r.ShipmentID = domain.ShipmentID(shipmentID)
	r.DocAID = domain.DocumentID(docA)
	r.DocBID = domain.DocumentID(docB)
	if err := json.Unmarshal(fields, &r.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal field results: %w", err)
	}
	if resolvedBy.Valid {
		r.Resolution = &models.Resolution{
			ResolvedBy: resolvedBy.String,
			ResolvedAt: resolvedAt.Time,
			Note:       resolutionNote.String,
		}
	}
	return &r, nil
}

func nullableID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
