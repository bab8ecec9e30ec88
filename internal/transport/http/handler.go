package httptransport

import (
	"context"
	"log/slog"

	"stevedore/internal/pipeline"
	recmodels "stevedore/internal/reconcile/models"
	recservice "stevedore/internal/reconcile/service"
	shipmodels "stevedore/internal/shipment/models"
	wfmodels "stevedore/internal/workflow/models"
	"stevedore/pkg/domain"
)

// Pipeline processes one unit of work.
type Pipeline interface {
	Process(ctx context.Context, u pipeline.Unit) *pipeline.Result
}

// ShipmentReader serves shipment queries.
type ShipmentReader interface {
	GetShipment(ctx context.Context, id domain.ShipmentID) (*shipmodels.Shipment, error)
}

// WorkflowService serves state queries and manual overrides.
type WorkflowService interface {
	CurrentState(ctx context.Context, id domain.ShipmentID) (string, error)
	History(ctx context.Context, id domain.ShipmentID) ([]wfmodels.Transition, error)
	OverrideState(ctx context.Context, id domain.ShipmentID, newState, reason string) (*wfmodels.TransitionResult, error)
}

// ReconcileService serves reconciliation runs, queries, and resolutions.
type ReconcileService interface {
	Reconcile(ctx context.Context, in recservice.ReconcileInput) (*recmodels.ReconciliationRecord, error)
	Resolve(ctx context.Context, id domain.ReconciliationID, resolvedBy, note string) (*recmodels.ReconciliationRecord, error)
	ListByShipment(ctx context.Context, id domain.ShipmentID) ([]recmodels.ReconciliationRecord, error)
	SubmissionGate(ctx context.Context, id domain.ShipmentID, pairKey string) (*recservice.Gate, error)
}

// Handler bundles the service dependencies of the HTTP layer.
type Handler struct {
	pipeline  Pipeline
	shipments ShipmentReader
	workflow  WorkflowService
	reconcile ReconcileService
	logger    *slog.Logger
}

func NewHandler(
	p Pipeline,
	shipments ShipmentReader,
	workflow WorkflowService,
	reconcile ReconcileService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		pipeline:  p,
		shipments: shipments,
		workflow:  workflow,
		reconcile: reconcile,
		logger:    logger,
	}
}
