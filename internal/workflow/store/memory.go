package store

import (
	"context"
	"sort"
	"sync"

	"stevedore/internal/workflow/models"
	"stevedore/pkg/domain"
)

// InMemory holds the transition log. Append-only: nothing here mutates or
// removes a recorded row.
type InMemory struct {
	mu          sync.RWMutex
	transitions []models.Transition
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, t *models.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, *t)
	return nil
}

func (s *InMemory) ListByShipment(_ context.Context, id domain.ShipmentID) ([]models.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transition
	for _, t := range s.transitions {
		if t.ShipmentID == id {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
