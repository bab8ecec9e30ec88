package store

import (
	"context"
	"sync"
	"time"

	"stevedore/internal/events/models"
	"stevedore/pkg/domain"
)

// InMemory is the slice-backed outbox, used in tests and when no broker is
// configured.
type InMemory struct {
	mu     sync.Mutex
	events []models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return nil
}

func (s *InMemory) ListUnpublished(_ context.Context, limit int) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		if e.PublishedAt == nil {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemory) MarkPublished(_ context.Context, ids []domain.EventID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[domain.EventID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for i := range s.events {
		if set[s.events[i].ID] {
			t := at
			s.events[i].PublishedAt = &t
		}
	}
	return nil
}

// All returns every appended event; test helper.
func (s *InMemory) All() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event(nil), s.events...)
}
