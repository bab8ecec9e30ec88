package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"stevedore/internal/events/models"
	"stevedore/pkg/domain"
	"stevedore/pkg/requestcontext"
)

// Store is the outbox persistence the emitter and worker share.
type Store interface {
	Append(ctx context.Context, e *models.Event) error
	ListUnpublished(ctx context.Context, limit int) ([]models.Event, error)
	MarkPublished(ctx context.Context, ids []domain.EventID, at time.Time) error
}

// Emitter appends events to the outbox. Emission failures are logged and
// swallowed: an event is an announcement of a fact already durably recorded,
// and losing the announcement must not fail the unit of work.
type Emitter struct {
	store  Store
	logger *slog.Logger
}

func NewEmitter(store Store, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{store: store, logger: logger}
}

func (e *Emitter) Emit(ctx context.Context, kind models.Kind, shipmentID domain.ShipmentID, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		e.logger.ErrorContext(ctx, "marshal event payload", "kind", kind, "error", err)
		return
	}
	ev := &models.Event{
		ID:         domain.NewEventID(),
		Kind:       kind,
		ShipmentID: shipmentID,
		Payload:    raw,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := e.store.Append(ctx, ev); err != nil {
		e.logger.ErrorContext(ctx, "append outbox event", "kind", kind, "error", err)
	}
}
