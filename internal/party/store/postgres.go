package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"stevedore/internal/party/models"
	"stevedore/internal/platform/postgres"
	"stevedore/pkg/domain"
	"stevedore/pkg/platform/sentinel"
	txcontext "stevedore/pkg/platform/tx"
)

// Postgres persists parties across the parties/party_domains/party_emails
// tables. (name, role) uniqueness and one-owner-per-domain are schema
// constraints.
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

func (s *Postgres) CreateIfAbsent(ctx context.Context, p *models.Party) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO parties (id, name, display_name, role, is_customer, shipment_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, uuid.UUID(p.ID), p.Name, p.DisplayName, p.Role.String(), p.IsCustomer, p.ShipmentCount, p.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert party: %w", err)
	}
	for _, d := range p.EmailDomains {
		if err := s.AddDomain(ctx, p.ID, d); err != nil {
			return err
		}
	}
	for _, e := range p.ContactEmails {
		if err := s.AddContactEmail(ctx, p.ID, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.PartyID) (*models.Party, error) {
	return s.findOne(ctx, `WHERE p.id = $1`, uuid.UUID(id))
}

func (s *Postgres) FindByNameAndRole(ctx context.Context, name string, role domain.PartyRole) (*models.Party, error) {
	return s.findOne(ctx, `WHERE p.name = $1 AND p.role = $2`, name, role.String())
}

func (s *Postgres) FindByContactEmail(ctx context.Context, address string) (*models.Party, error) {
	return s.findOne(ctx, `WHERE p.id = (SELECT party_id FROM party_emails WHERE email = $1)`, address)
}

func (s *Postgres) FindByDomain(ctx context.Context, emailDomain string) (*models.Party, error) {
	return s.findOne(ctx, `WHERE p.id = (SELECT party_id FROM party_domains WHERE domain = $1)`, emailDomain)
}

func (s *Postgres) findOne(ctx context.Context, where string, args ...any) (*models.Party, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT p.id, p.name, p.display_name, p.role, p.is_customer, p.shipment_count, p.created_at, p.updated_at
		FROM parties p `+where, args...)

	var p models.Party
	var id uuid.UUID
	var role string
	err := row.Scan(&id, &p.Name, &p.DisplayName, &role, &p.IsCustomer, &p.ShipmentCount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan party: %w", err)
	}
	p.ID = domain.PartyID(id)
	p.Role = domain.PartyRole(role)

	if p.EmailDomains, err = s.listValues(ctx, `SELECT domain FROM party_domains WHERE party_id = $1`, id); err != nil {
		return nil, err
	}
	if p.ContactEmails, err = s.listValues(ctx, `SELECT email FROM party_emails WHERE party_id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) listValues(ctx context.Context, query string, id uuid.UUID) ([]string, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list party values: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AddDomain claims a domain for a party. The primary key on domain makes the
// one-owner rule a write-time constraint; a claim by the current owner is a
// no-op, a claim on someone else's domain is a conflict.
func (s *Postgres) AddDomain(ctx context.Context, id domain.PartyID, emailDomain string) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO party_domains (domain, party_id) VALUES ($1, $2)
		ON CONFLICT (domain) DO NOTHING
	`, emailDomain, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("claim domain: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var owner uuid.UUID
		err := s.q(ctx).QueryRowContext(ctx, `SELECT party_id FROM party_domains WHERE domain = $1`, emailDomain).Scan(&owner)
		if err != nil {
			return fmt.Errorf("check domain owner: %w", err)
		}
		if owner != uuid.UUID(id) {
			return sentinel.ErrConflict
		}
	}
	return nil
}

func (s *Postgres) AddContactEmail(ctx context.Context, id domain.PartyID, address string) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO party_emails (email, party_id) VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
	`, address, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("add contact email: %w", err)
	}
	return nil
}

func (s *Postgres) IncrementShipmentCount(ctx context.Context, id domain.PartyID) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE parties SET shipment_count = shipment_count + 1, updated_at = NOW() WHERE id = $1
	`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("increment shipment count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
