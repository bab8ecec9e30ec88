package events

import (
	"context"
	"log/slog"
	"time"

	"stevedore/pkg/domain"
)

// Worker drains unpublished outbox events to the publisher on an interval.
// At-least-once: a crash after Publish but before MarkPublished redelivers,
// which consumers absorb via the event_id header.
type Worker struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(store Store, publisher Publisher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  2 * time.Second,
		batchSize: 100,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// DrainOnce publishes one batch of unpublished events.
func (w *Worker) DrainOnce(ctx context.Context) error {
	events, err := w.store.ListUnpublished(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := w.publisher.Publish(ctx, events); err != nil {
		return err
	}
	ids := make([]domain.EventID, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return w.store.MarkPublished(ctx, ids, time.Now())
}
