package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"stevedore/internal/platform/postgres"
	"stevedore/internal/shipment/models"
	"stevedore/pkg/domain"
	"stevedore/pkg/platform/sentinel"
	txcontext "stevedore/pkg/platform/tx"
)

// Postgres persists shipments. Container numbers live in their own table so
// the append-only union is an ON CONFLICT DO NOTHING insert; email and
// document links are primary-keyed on the pair, making upserts idempotent.
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

func (s *Postgres) CreateIfAbsent(ctx context.Context, sh *models.Shipment) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO shipments (
			id, booking_number, bl_number,
			shipper_id, consignee_id, notify_party_id, carrier_id, carrier_name,
			origin_code, origin_name, destination_code, destination_name,
			vessel_name, voyage_number,
			etd, atd, eta, ata, cargo_cutoff, doc_cutoff,
			amendment_count, current_state, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$23)
	`,
		uuid.UUID(sh.ID), sh.BookingNumber, sh.BLNumber,
		nullableID(uuid.UUID(sh.ShipperID)), nullableID(uuid.UUID(sh.ConsigneeID)),
		nullableID(uuid.UUID(sh.NotifyPartyID)), nullableID(uuid.UUID(sh.CarrierID)), sh.CarrierName,
		sh.OriginCode, sh.OriginName, sh.DestinationCode, sh.DestinationName,
		sh.VesselName, sh.VoyageNumber,
		sh.ETD, sh.ATD, sh.ETA, sh.ATA, sh.CargoCutoff, sh.DocCutoff,
		sh.AmendmentCount, sh.CurrentState, sh.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	return s.addContainers(ctx, sh.ID, sh.Containers)
}

func (s *Postgres) Update(ctx context.Context, sh *models.Shipment) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE shipments SET
			bl_number = $2,
			shipper_id = $3, consignee_id = $4, notify_party_id = $5, carrier_id = $6, carrier_name = $7,
			origin_code = $8, origin_name = $9, destination_code = $10, destination_name = $11,
			vessel_name = $12, voyage_number = $13,
			etd = $14, atd = $15, eta = $16, ata = $17, cargo_cutoff = $18, doc_cutoff = $19,
			amendment_count = $20, updated_at = NOW()
		WHERE id = $1
	`,
		uuid.UUID(sh.ID), sh.BLNumber,
		nullableID(uuid.UUID(sh.ShipperID)), nullableID(uuid.UUID(sh.ConsigneeID)),
		nullableID(uuid.UUID(sh.NotifyPartyID)), nullableID(uuid.UUID(sh.CarrierID)), sh.CarrierName,
		sh.OriginCode, sh.OriginName, sh.DestinationCode, sh.DestinationName,
		sh.VesselName, sh.VoyageNumber,
		sh.ETD, sh.ATD, sh.ETA, sh.ATA, sh.CargoCutoff, sh.DocCutoff,
		sh.AmendmentCount,
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return s.addContainers(ctx, sh.ID, sh.Containers)
}

func (s *Postgres) addContainers(ctx context.Context, id domain.ShipmentID, containers []string) error {
	for _, c := range containers {
		_, err := s.q(ctx).ExecContext(ctx, `
			INSERT INTO shipment_containers (shipment_id, container_no)
			VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, uuid.UUID(id), c)
		if err != nil {
			return fmt.Errorf("add container: %w", err)
		}
	}
	return nil
}

const shipmentColumns = `
	id, booking_number, bl_number,
	COALESCE(shipper_id, '00000000-0000-0000-0000-000000000000'),
	COALESCE(consignee_id, '00000000-0000-0000-0000-000000000000'),
	COALESCE(notify_party_id, '00000000-0000-0000-0000-000000000000'),
	COALESCE(carrier_id, '00000000-0000-0000-0000-000000000000'),
	carrier_name, origin_code, origin_name, destination_code, destination_name,
	vessel_name, voyage_number, etd, atd, eta, ata, cargo_cutoff, doc_cutoff,
	amendment_count, current_state, created_at, updated_at`

func (s *Postgres) FindByBookingNumber(ctx context.Context, booking string) (*models.Shipment, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE booking_number = $1`, booking)
	return s.scanShipment(ctx, row)
}

func (s *Postgres) FindByID(ctx context.Context, id domain.ShipmentID) (*models.Shipment, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, uuid.UUID(id))
	return s.scanShipment(ctx, row)
}

func (s *Postgres) scanShipment(ctx context.Context, row *sql.Row) (*models.Shipment, error) {
	var sh models.Shipment
	var id, shipper, consignee, notify, carrier uuid.UUID
	err := row.Scan(&id, &sh.BookingNumber, &sh.BLNumber,
		&shipper, &consignee, &notify, &carrier,
		&sh.CarrierName, &sh.OriginCode, &sh.OriginName, &sh.DestinationCode, &sh.DestinationName,
		&sh.VesselName, &sh.VoyageNumber, &sh.ETD, &sh.ATD, &sh.ETA, &sh.ATA, &sh.CargoCutoff, &sh.DocCutoff,
		&sh.AmendmentCount, &sh.CurrentState, &sh.CreatedAt, &sh.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan shipment: %w", err)
	}
	sh.ID = domain.ShipmentID(id)
	sh.ShipperID = domain.PartyID(shipper)
	sh.ConsigneeID = domain.PartyID(consignee)
	sh.NotifyPartyID = domain.PartyID(notify)
	sh.CarrierID = domain.PartyID(carrier)

	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT container_no FROM shipment_containers WHERE shipment_id = $1 ORDER BY container_no`, id)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		sh.Containers = append(sh.Containers, c)
	}
	return &sh, rows.Err()
}

func (s *Postgres) UpsertEmailLink(ctx context.Context, id domain.ShipmentID, emailID domain.EmailID) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO shipment_emails (shipment_id, email_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, uuid.UUID(id), uuid.UUID(emailID))
	if err != nil {
		return fmt.Errorf("upsert email link: %w", err)
	}
	return nil
}

func (s *Postgres) UpsertDocumentLink(ctx context.Context, id domain.ShipmentID, docID domain.DocumentID) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO shipment_documents (shipment_id, document_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, uuid.UUID(id), uuid.UUID(docID))
	if err != nil {
		return fmt.Errorf("upsert document link: %w", err)
	}
	return nil
}

func (s *Postgres) GetCurrentState(ctx context.Context, id domain.ShipmentID) (string, error) {
	var state string
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT current_state FROM shipments WHERE id = $1`, uuid.UUID(id)).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get current state: %w", err)
	}
	return state, nil
}

// CompareAndSetCurrentState is the optimistic check that serializes
// concurrent transition appends: only the writer that saw the latest state
// advances the projection.
func (s *Postgres) CompareAndSetCurrentState(ctx context.Context, id domain.ShipmentID, prev, next string) (bool, error) {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE shipments SET current_state = $3, updated_at = NOW()
		WHERE id = $1 AND current_state = $2
	`, uuid.UUID(id), prev, next)
	if err != nil {
		return false, fmt.Errorf("cas current state: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func nullableID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
