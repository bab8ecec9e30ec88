// Package service implements the shipment registry, the convergence point
// of the pipeline: the only place where identifiers produced by the email,
// document, and party registries and the extractor's field values are
// combined into one record keyed by booking number.
package service

import (
	"context"
	"errors"
	"log/slog"

	"stevedore/internal/extraction"
	"stevedore/internal/shipment/models"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
	"stevedore/pkg/platform/sentinel"
	"stevedore/pkg/requestcontext"
)

// Store persists shipments and their links.
type Store interface {
	CreateIfAbsent(ctx context.Context, sh *models.Shipment) error
	FindByBookingNumber(ctx context.Context, booking string) (*models.Shipment, error)
	FindByID(ctx context.Context, id domain.ShipmentID) (*models.Shipment, error)
	Update(ctx context.Context, sh *models.Shipment) error
	UpsertEmailLink(ctx context.Context, id domain.ShipmentID, emailID domain.EmailID) error
	UpsertDocumentLink(ctx context.Context, id domain.ShipmentID, docID domain.DocumentID) error
}

// Service is the shipment registry.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Linkage carries the upstream identifiers to attach to the shipment.
type Linkage struct {
	EmailID       domain.EmailID
	DocumentID    domain.DocumentID
	ShipperID     domain.PartyID
	ConsigneeID   domain.PartyID
	NotifyPartyID domain.PartyID
	CarrierID     domain.PartyID
}

// RegisterInput is one observation of a shipment.
type RegisterInput struct {
	BookingNumber string
	Fields        extraction.ShipmentFields
	// IsAmendment lets observed fields overwrite already-populated ones.
	IsAmendment bool
	Links       Linkage
}

// Register finds or creates the Shipment for the booking number and merges
// the observation into it.
//
// Field policy is first-write-wins unless amendment: a populated field is
// not overwritten by a later non-amendment signal. Container numbers are
// always unioned. Party links fill only when currently null. Email and
// document links are idempotent upserts, so redelivery of the same email
// never duplicates a link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.RegisterResult, error) {
	booking := models.NormalizeBookingNumber(in.BookingNumber)
	if booking == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "booking number is required")
	}

	sh, isNew, err := s.findOrCreate(ctx, booking)
	if err != nil {
		return nil, err
	}

	if in.IsAmendment {
		sh.AmendmentCount++
	}

	updated := s.applyFields(sh, in.Fields, in.IsAmendment)
	s.applyLinks(sh, in.Links)

	if err := s.store.Update(ctx, sh); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "update shipment failed")
	}

	if !in.Links.EmailID.IsNil() {
		if err := s.store.UpsertEmailLink(ctx, sh.ID, in.Links.EmailID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTransient, "link email failed")
		}
	}
	if !in.Links.DocumentID.IsNil() {
		if err := s.store.UpsertDocumentLink(ctx, sh.ID, in.Links.DocumentID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTransient, "link document failed")
		}
	}

	s.logger.InfoContext(ctx, "shipment registered",
		"booking_number", booking,
		"shipment_id", sh.ID,
		"new", isNew,
		"amendment", in.IsAmendment,
		"fields_updated", len(updated),
	)
	return &models.RegisterResult{
		ShipmentID:    sh.ID,
		IsNewShipment: isNew,
		IsAmendment:   in.IsAmendment,
		FieldsUpdated: updated,
	}, nil
}

// GetShipment returns a shipment by id.
func (s *Service) GetShipment(ctx context.Context, id domain.ShipmentID) (*models.Shipment, error) {
	sh, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "shipment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "shipment lookup failed")
	}
	return sh, nil
}

// GetByBookingNumber returns a shipment by (raw) booking number.
func (s *Service) GetByBookingNumber(ctx context.Context, booking string) (*models.Shipment, error) {
	sh, err := s.store.FindByBookingNumber(ctx, models.NormalizeBookingNumber(booking))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "shipment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "shipment lookup failed")
	}
	return sh, nil
}

func (s *Service) findOrCreate(ctx context.Context, booking string) (*models.Shipment, bool, error) {
	sh, err := s.store.FindByBookingNumber(ctx, booking)
	if err == nil {
		return sh, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, dErrors.Wrap(err, dErrors.CodeTransient, "shipment lookup failed")
	}

	now := requestcontext.Now(ctx)
	sh = &models.Shipment{
		ID:            domain.NewShipmentID(),
		BookingNumber: booking,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateIfAbsent(ctx, sh); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Concurrent unit resolving the same booking won; converge on
			// the winner's row.
			winner, ferr := s.store.FindByBookingNumber(ctx, booking)
			if ferr != nil {
				return nil, false, dErrors.Wrap(ferr, dErrors.CodeTransient, "shipment re-read failed")
			}
			return winner, false, nil
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeTransient, "create shipment failed")
	}
	return sh, true, nil
}

// applyFields merges observed values under the first-write-wins-unless-
// amendment policy and returns the names of fields that changed.
func (s *Service) applyFields(sh *models.Shipment, f extraction.ShipmentFields, amendment bool) []string {
	var updated []string
	set := func(name string, target *string, v *extraction.Value) {
		if !v.IsSet() {
			return
		}
		if *target != "" && !amendment {
			return
		}
		if *target == v.Get() {
			return
		}
		*target = v.Get()
		updated = append(updated, name)
	}

	set("bl_number", &sh.BLNumber, f.BillOfLadingNumber)
	set("carrier_name", &sh.CarrierName, f.CarrierName)
	set("origin_code", &sh.OriginCode, f.OriginCode)
	set("origin_name", &sh.OriginName, f.OriginName)
	set("destination_code", &sh.DestinationCode, f.DestinationCode)
	set("destination_name", &sh.DestinationName, f.DestinationName)
	set("vessel_name", &sh.VesselName, f.VesselName)
	set("voyage_number", &sh.VoyageNumber, f.VoyageNumber)
	set("etd", &sh.ETD, f.ETD)
	set("atd", &sh.ATD, f.ATD)
	set("eta", &sh.ETA, f.ETA)
	set("ata", &sh.ATA, f.ATA)
	set("cargo_cutoff", &sh.CargoCutoff, f.CargoCutoff)
	set("doc_cutoff", &sh.DocCutoff, f.DocCutoff)

	// Containers are the exception: always unioned, never overwritten.
	for _, c := range f.ContainerNumbers {
		c = models.NormalizeBookingNumber(c)
		if c != "" && !sh.HasContainer(c) {
			sh.Containers = append(sh.Containers, c)
			updated = append(updated, "containers")
		}
	}
	return updated
}

// applyLinks fills party references only when currently null; an amendment
// does not rebind parties.
func (s *Service) applyLinks(sh *models.Shipment, l Linkage) {
	if sh.ShipperID.IsNil() && !l.ShipperID.IsNil() {
		sh.ShipperID = l.ShipperID
	}
	if sh.ConsigneeID.IsNil() && !l.ConsigneeID.IsNil() {
		sh.ConsigneeID = l.ConsigneeID
	}
	if sh.NotifyPartyID.IsNil() && !l.NotifyPartyID.IsNil() {
		sh.NotifyPartyID = l.NotifyPartyID
	}
	if sh.CarrierID.IsNil() && !l.CarrierID.IsNil() {
		sh.CarrierID = l.CarrierID
	}
}
