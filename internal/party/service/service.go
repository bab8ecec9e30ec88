// Package service implements the party registry: it resolves free-text party
// descriptions and email-sender identity to canonical Party records.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"stevedore/internal/party/models"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
	emailpkg "stevedore/pkg/email"
	"stevedore/pkg/platform/sentinel"
	"stevedore/pkg/requestcontext"
)

// Store persists parties.
type Store interface {
	CreateIfAbsent(ctx context.Context, p *models.Party) error
	FindByID(ctx context.Context, id domain.PartyID) (*models.Party, error)
	FindByNameAndRole(ctx context.Context, name string, role domain.PartyRole) (*models.Party, error)
	FindByContactEmail(ctx context.Context, address string) (*models.Party, error)
	FindByDomain(ctx context.Context, emailDomain string) (*models.Party, error)
	AddDomain(ctx context.Context, id domain.PartyID, emailDomain string) error
	AddContactEmail(ctx context.Context, id domain.PartyID, address string) error
	IncrementShipmentCount(ctx context.Context, id domain.PartyID) error
}

// SelfIdentity describes the operating company, so its own name variants are
// not registered as counterparties on carrier-facing documents.
type SelfIdentity struct {
	// NameMarkers are normalized substrings that identify the company,
	// e.g. "ACME FORWARDING".
	NameMarkers []string
	// Domains are the company's own email domains.
	Domains []string
}

// IsSelfName reports whether a normalized party name is a variant of the
// operating company.
func (s SelfIdentity) IsSelfName(normalized string) bool {
	for _, marker := range s.NameMarkers {
		if marker != "" && strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// IsSelfDomain reports whether an email domain belongs to the operating
// company.
func (s SelfIdentity) IsSelfDomain(d string) bool {
	for _, own := range s.Domains {
		if own != "" && strings.EqualFold(own, d) {
			return true
		}
	}
	return false
}

// Service is the party registry.
type Service struct {
	store  Store
	self   SelfIdentity
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithSelfIdentity(self SelfIdentity) Option {
	return func(s *Service) { s.self = self }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveInput is one party sighting from a document extraction.
type ResolveInput struct {
	Name    string
	Address string // optional contact email seen alongside the name
	Role    domain.PartyRole
	// SourceType is the document type the sighting came from; it scopes the
	// self-organization exclusion.
	SourceType domain.DocumentType
}

// Resolve finds or creates the canonical Party for a free-text description.
//
// Matching order: exact (normalized name, role), then verified contact
// email. The operating company's own variants are excluded on carrier-facing
// documents, where self appears as shipper of record, but not on
// customer-facing ones, where the same legal entity may be the customer.
func (s *Service) Resolve(ctx context.Context, in ResolveInput) (*models.Resolution, error) {
	name := models.NormalizeName(in.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "party name is required")
	}
	if in.Role == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "party role is required")
	}

	if s.self.IsSelfName(name) && in.SourceType.IsCarrierFacing() &&
		(in.Role == domain.RoleShipper || in.Role == domain.RoleConsignee || in.Role == domain.RoleNotifyParty) {
		s.logger.DebugContext(ctx, "self organization excluded as counterparty",
			"name", name, "role", in.Role, "source_type", in.SourceType)
		return &models.Resolution{Excluded: true}, nil
	}

	existing, err := s.store.FindByNameAndRole(ctx, name, in.Role)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "party lookup failed")
	}
	if err != nil && in.Address != "" {
		existing, err = s.store.FindByContactEmail(ctx, emailpkg.Normalize(in.Address))
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeTransient, "party email lookup failed")
		}
	}

	if existing != nil && err == nil {
		if mergeErr := s.mergeSighting(ctx, existing, in.Address); mergeErr != nil {
			return nil, mergeErr
		}
		return &models.Resolution{PartyID: existing.ID}, nil
	}

	return s.create(ctx, name, in.Name, in.Role, in.Address, false)
}

// ResolveSender resolves an email sender to a Party: verified contact email
// first, then domain containment. The domain match can never be ambiguous
// because a domain maps to at most one party, enforced at write time.
func (s *Service) ResolveSender(ctx context.Context, address, displayName string) (*models.Resolution, error) {
	address = emailpkg.Normalize(address)
	if address == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sender address is required")
	}

	if existing, err := s.store.FindByContactEmail(ctx, address); err == nil {
		if mergeErr := s.mergeSighting(ctx, existing, address); mergeErr != nil {
			return nil, mergeErr
		}
		return &models.Resolution{PartyID: existing.ID}, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "sender email lookup failed")
	}

	senderDomain := emailpkg.Domain(address)
	if senderDomain != "" {
		if existing, err := s.store.FindByDomain(ctx, senderDomain); err == nil {
			if mergeErr := s.mergeSighting(ctx, existing, address); mergeErr != nil {
				return nil, mergeErr
			}
			return &models.Resolution{PartyID: existing.ID}, nil
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeTransient, "sender domain lookup failed")
		}
	}

	name := models.NormalizeName(displayName)
	if name == "" {
		name = models.NormalizeName(emailpkg.DeriveNameFromAddress(address))
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sender yields no usable party name")
	}
	return s.create(ctx, name, displayName, domain.RoleCustomer, address, true)
}

// GetParty returns a party by id.
func (s *Service) GetParty(ctx context.Context, id domain.PartyID) (*models.Party, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "party not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "party lookup failed")
	}
	return p, nil
}

func (s *Service) create(ctx context.Context, name, displayName string, role domain.PartyRole, address string, isCustomer bool) (*models.Resolution, error) {
	now := requestcontext.Now(ctx)
	p := &models.Party{
		ID:            domain.NewPartyID(),
		Name:          name,
		DisplayName:   strings.TrimSpace(displayName),
		Role:          role,
		IsCustomer:    isCustomer,
		ShipmentCount: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if address != "" {
		p.ContactEmails = []string{emailpkg.Normalize(address)}
		if d := emailpkg.Domain(address); d != "" && !s.self.IsSelfDomain(d) {
			p.EmailDomains = []string{d}
		}
	}

	if err := s.store.CreateIfAbsent(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Concurrent sighting created the same (name, role) first.
			winner, ferr := s.store.FindByNameAndRole(ctx, name, role)
			if ferr != nil {
				return nil, dErrors.Wrap(ferr, dErrors.CodeTransient, "party re-read failed")
			}
			if mergeErr := s.mergeSighting(ctx, winner, address); mergeErr != nil {
				return nil, mergeErr
			}
			return &models.Resolution{PartyID: winner.ID}, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			// The sender's domain already belongs to another party; fall
			// back to that owner rather than splitting identity.
			if d := emailpkg.Domain(address); d != "" {
				if owner, ferr := s.store.FindByDomain(ctx, d); ferr == nil {
					return &models.Resolution{PartyID: owner.ID}, nil
				}
			}
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "create party failed")
	}

	s.logger.InfoContext(ctx, "party created", "party_id", p.ID, "name", name, "role", role)
	return &models.Resolution{PartyID: p.ID, IsNew: true}, nil
}

// mergeSighting applies the on-match mutations: merge new domains and
// contact emails into the party (monotonically growing) and bump the
// shipment count.
func (s *Service) mergeSighting(ctx context.Context, p *models.Party, address string) error {
	if address != "" {
		address = emailpkg.Normalize(address)
		if err := s.store.AddContactEmail(ctx, p.ID, address); err != nil {
			return dErrors.Wrap(err, dErrors.CodeTransient, "add contact email failed")
		}
		if d := emailpkg.Domain(address); d != "" && !p.HasDomain(d) && !s.self.IsSelfDomain(d) {
			if err := s.store.AddDomain(ctx, p.ID, d); err != nil && !errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeTransient, "merge domain failed")
			}
		}
	}
	if err := s.store.IncrementShipmentCount(ctx, p.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransient, "increment shipment count failed")
	}
	return nil
}
