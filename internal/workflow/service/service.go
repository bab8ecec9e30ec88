// Package service implements the workflow state registry: an append-only
// transition log per shipment plus a mutable current-state projection.
// Documents arriving out of order are the normal case, not an error, so a
// regression attempt is recorded nowhere and reported as rejected.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	wfmetrics "stevedore/internal/workflow/metrics"
	"stevedore/internal/workflow/models"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
	"stevedore/pkg/platform/sentinel"
	"stevedore/pkg/platform/tx"
	"stevedore/pkg/requestcontext"
)

// HistoryStore persists the immutable transition log.
type HistoryStore interface {
	Append(ctx context.Context, t *models.Transition) error
	ListByShipment(ctx context.Context, id domain.ShipmentID) ([]models.Transition, error)
}

// StateStore reads and conditionally advances the current-state projection
// on the shipment row. CompareAndSetCurrentState must only succeed for the
// writer that saw the latest state, which is what makes concurrent appends
// for the same shipment resolve to at most one accepted transition.
type StateStore interface {
	GetCurrentState(ctx context.Context, id domain.ShipmentID) (string, error)
	CompareAndSetCurrentState(ctx context.Context, id domain.ShipmentID, prev, next string) (bool, error)
}

// Service is the workflow state registry.
type Service struct {
	history HistoryStore
	states  StateStore
	runner  tx.Runner
	logger  *slog.Logger
	metrics *wfmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *wfmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) { s.runner = r }
}

func New(history HistoryStore, states StateStore, opts ...Option) (*Service, error) {
	if err := models.ValidateStates(); err != nil {
		return nil, err
	}
	s := &Service{history: history, states: states, runner: tx.NoopRunner{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SourceRefs carries the identifiers of whatever triggered the transition.
type SourceRefs struct {
	EmailID    domain.EmailID
	DocumentID domain.DocumentID
}

// RecordTransition maps (documentType, direction) to a candidate state and
// applies it if it advances the shipment. A candidate that is not strictly
// later than the current state is accepted only when it is amendment-class.
// Accepted transitions append one history row and then advance the
// projection with an optimistic compare-and-set; losing that race means a
// concurrent transition already moved the shipment, and this attempt is
// reported as rejected without a history row.
func (s *Service) RecordTransition(
	ctx context.Context,
	shipmentID domain.ShipmentID,
	docType domain.DocumentType,
	direction domain.Direction,
	refs SourceRefs,
) (*models.TransitionResult, error) {
	candidate, ok := models.CandidateState(docType, direction)
	if !ok {
		return &models.TransitionResult{Accepted: false, RejectReason: models.RejectNoSignal}, nil
	}

	current, err := s.states.GetCurrentState(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "shipment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "read current state failed")
	}

	if !candidate.AmendmentClass && candidate.Rank <= models.RankOf(current) {
		s.observeRejected(models.RejectNotLater)
		s.logger.DebugContext(ctx, "transition rejected",
			"shipment_id", shipmentID, "current", current, "candidate", candidate.Key)
		return &models.TransitionResult{
			Accepted:     false,
			FromState:    current,
			RejectReason: models.RejectNotLater,
		}, nil
	}

	return s.apply(ctx, shipmentID, current, candidate.Key, docType, direction, refs, "")
}

// OverrideState bypasses ordering for administrative correction. A reason is
// mandatory and the history row carries the manual_override document type, so
// overrides are never mistaken for organic transitions.
func (s *Service) OverrideState(
	ctx context.Context,
	shipmentID domain.ShipmentID,
	newState, reason string,
) (*models.TransitionResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "override reason is required")
	}
	if !models.IsKnownState(newState) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown workflow state %q", newState)
	}

	current, err := s.states.GetCurrentState(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "shipment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "read current state failed")
	}

	res, err := s.apply(ctx, shipmentID, current, newState,
		domain.DocTypeManualOverride, domain.DirectionInbound, SourceRefs{}, strings.TrimSpace(reason))
	if err == nil && res.Accepted && s.metrics != nil {
		s.metrics.IncOverride()
	}
	return res, err
}

// History returns the full transition log for a shipment, oldest first.
func (s *Service) History(ctx context.Context, shipmentID domain.ShipmentID) ([]models.Transition, error) {
	ts, err := s.history.ListByShipment(ctx, shipmentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "list transitions failed")
	}
	return ts, nil
}

// CurrentState returns the projection for a shipment.
func (s *Service) CurrentState(ctx context.Context, shipmentID domain.ShipmentID) (string, error) {
	state, err := s.states.GetCurrentState(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "shipment not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeTransient, "read current state failed")
	}
	return state, nil
}

func (s *Service) apply(
	ctx context.Context,
	shipmentID domain.ShipmentID,
	current, next string,
	docType domain.DocumentType,
	direction domain.Direction,
	refs SourceRefs,
	reason string,
) (*models.TransitionResult, error) {
	t := &models.Transition{
		ID:           domain.NewTransitionID(),
		ShipmentID:   shipmentID,
		FromState:    current,
		ToState:      next,
		DocumentType: docType,
		Direction:    direction,
		EmailID:      refs.EmailID,
		DocumentID:   refs.DocumentID,
		Reason:       reason,
		CreatedAt:    requestcontext.Now(ctx),
	}

	lostRace := false
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		// Winning the compare-and-set is what admits exactly one of any set
		// of concurrent writers that read the same previous state.
		swapped, err := s.states.CompareAndSetCurrentState(ctx, shipmentID, current, next)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeTransient, "advance state failed")
		}
		if !swapped {
			lostRace = true
			return nil
		}
		if err := s.history.Append(ctx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeTransient, "append transition failed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lostRace {
		s.observeRejected(models.RejectLostRace)
		return &models.TransitionResult{
			Accepted:     false,
			FromState:    current,
			RejectReason: models.RejectLostRace,
		}, nil
	}

	if s.metrics != nil {
		s.metrics.IncAccepted(next)
	}
	s.logger.InfoContext(ctx, "workflow transition recorded",
		"shipment_id", shipmentID,
		"from", current,
		"to", next,
		"document_type", docType,
		"manual", reason != "",
	)
	return &models.TransitionResult{
		Accepted:     true,
		FromState:    current,
		ToState:      next,
		TransitionID: t.ID,
	}, nil
}

func (s *Service) observeRejected(reason string) {
	if s.metrics != nil {
		s.metrics.IncRejected(reason)
	}
}
