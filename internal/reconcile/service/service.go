// Package service implements the reconciliation engine: it compares two
// documents' extracted fields under a per-pair config and derives the gate
// that permits or blocks the dependent business action.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"stevedore/internal/extraction"
	"stevedore/internal/reconcile/cache"
	recmetrics "stevedore/internal/reconcile/metrics"
	"stevedore/internal/reconcile/models"
	"stevedore/pkg/compare"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
	"stevedore/pkg/platform/sentinel"
	"stevedore/pkg/requestcontext"
)

// Store persists reconciliation records.
type Store interface {
	Create(ctx context.Context, r *models.ReconciliationRecord) error
	FindByID(ctx context.Context, id domain.ReconciliationID) (*models.ReconciliationRecord, error)
	ListByShipment(ctx context.Context, id domain.ShipmentID) ([]models.ReconciliationRecord, error)
	SetResolution(ctx context.Context, id domain.ReconciliationID, res models.Resolution) error
}

// Service is the reconciliation engine.
type Service struct {
	store   Store
	configs cache.Source
	logger  *slog.Logger
	metrics *recmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *recmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithConfigSource replaces the built-in field-config table, typically with
// a redis read-through cache over it.
func WithConfigSource(src cache.Source) Option {
	return func(s *Service) { s.configs = src }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, configs: cache.Static{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReconcileInput identifies the two documents being compared and carries
// their extracted fields.
type ReconcileInput struct {
	ShipmentID domain.ShipmentID
	PairKey    string
	DocAID     domain.DocumentID
	DocBID     domain.DocumentID
	ValuesA    extraction.ShipmentFields
	ValuesB    extraction.ShipmentFields
}

// gateOptions tightens the date tolerance: the gate requires same-day, where
// ad hoc comparisons allow a one-day window.
var gateOptions = compare.Options{DateToleranceDays: 0}

// Reconcile compares each configured field and persists the full per-field
// breakdown, gate outcome included, even when everything matches.
//
// The gate (CanProceed) is true iff the run produced zero critical-severity
// discrepancies; warnings and info never block.
func (s *Service) Reconcile(ctx context.Context, in ReconcileInput) (*models.ReconciliationRecord, error) {
	if in.ShipmentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "shipment id is required")
	}
	if in.PairKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "pair key is required")
	}

	cfgs, err := s.configs.FieldConfigs(ctx, in.PairKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "unknown reconciliation pair")
	}

	rec := &models.ReconciliationRecord{
		ID:         domain.NewReconciliationID(),
		ShipmentID: in.ShipmentID,
		PairKey:    in.PairKey,
		DocAID:     in.DocAID,
		DocBID:     in.DocBID,
		CreatedAt:  requestcontext.Now(ctx),
	}

	for _, cfg := range cfgs {
		a, okA := in.ValuesA.FieldValue(cfg.Name)
		b, okB := in.ValuesB.FieldValue(cfg.Name)
		if !okA || !okB {
			// Config names a field outside the extraction schema; skip rather
			// than compare garbage.
			s.logger.WarnContext(ctx, "reconciliation config names unknown field",
				"pair", in.PairKey, "field", cfg.Name)
			continue
		}

		result := compare.CompareWith(a, b, cfg.Compare, gateOptions)
		fr := models.FieldResult{
			Field:    cfg.Name,
			ValueA:   a,
			ValueB:   b,
			Matches:  result.Matches,
			Severity: cfg.Severity,
			Message:  result.Message,
		}
		rec.Fields = append(rec.Fields, fr)

		if result.Matches {
			rec.Matches++
			continue
		}
		rec.Discrepancies++
		switch cfg.Severity {
		case models.SeverityCritical:
			rec.Critical++
		case models.SeverityWarning:
			rec.Warnings++
		}
		if s.metrics != nil {
			s.metrics.IncDiscrepancy(string(cfg.Severity))
		}
	}

	rec.CanProceed = rec.Critical == 0

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "persist reconciliation failed")
	}

	if s.metrics != nil {
		s.metrics.ObserveRun(in.PairKey, rec.CanProceed)
	}
	s.logger.InfoContext(ctx, "reconciliation recorded",
		"shipment_id", in.ShipmentID,
		"pair", in.PairKey,
		"matches", rec.Matches,
		"discrepancies", rec.Discrepancies,
		"critical", rec.Critical,
		"can_proceed", rec.CanProceed,
	)
	return rec, nil
}

// Resolve attaches a manual resolution that forces the gate open. The
// original discrepancy breakdown stays on the record untouched.
func (s *Service) Resolve(ctx context.Context, id domain.ReconciliationID, resolvedBy, note string) (*models.ReconciliationRecord, error) {
	if strings.TrimSpace(resolvedBy) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "resolver identity is required")
	}
	if strings.TrimSpace(note) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "resolution note is required")
	}

	res := models.Resolution{
		ResolvedBy: strings.TrimSpace(resolvedBy),
		ResolvedAt: requestcontext.Now(ctx),
		Note:       strings.TrimSpace(note),
	}
	if err := s.store.SetResolution(ctx, id, res); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "reconciliation record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "save resolution failed")
	}
	if s.metrics != nil {
		s.metrics.IncResolution()
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "reload record failed")
	}
	s.logger.InfoContext(ctx, "reconciliation resolved",
		"record_id", id, "resolved_by", res.ResolvedBy)
	return rec, nil
}

// ListByShipment returns all reconciliation runs for a shipment, oldest
// first.
func (s *Service) ListByShipment(ctx context.Context, id domain.ShipmentID) ([]models.ReconciliationRecord, error) {
	recs, err := s.store.ListByShipment(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "list reconciliations failed")
	}
	return recs, nil
}

// Gate is the submission-gate answer for a shipment.
type Gate struct {
	CanProceed bool
	// Reason explains a closed gate ("no_reconciliation",
	// "critical_discrepancies") or how an open one opened ("clean",
	// "manually_resolved").
	Reason   string
	RecordID domain.ReconciliationID
}

// SubmissionGate answers "may the dependent action proceed" from the latest
// reconciliation run for the pair. No run at all means the check has not
// happened, which closes the gate.
func (s *Service) SubmissionGate(ctx context.Context, shipmentID domain.ShipmentID, pairKey string) (*Gate, error) {
	recs, err := s.store.ListByShipment(ctx, shipmentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "list reconciliations failed")
	}

	var latest *models.ReconciliationRecord
	for i := range recs {
		if recs[i].PairKey == pairKey {
			latest = &recs[i]
		}
	}
	if latest == nil {
		return &Gate{CanProceed: false, Reason: "no_reconciliation"}, nil
	}

	g := &Gate{RecordID: latest.ID}
	switch {
	case latest.CanProceed:
		g.CanProceed = true
		g.Reason = "clean"
	case latest.Resolution != nil:
		g.CanProceed = true
		g.Reason = "manually_resolved"
	default:
		g.Reason = "critical_discrepancies"
	}
	return g, nil
}
