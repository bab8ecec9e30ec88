package store

import (
	"context"
	"sort"
	"sync"

	"stevedore/internal/reconcile/models"
	"stevedore/pkg/domain"
	"stevedore/pkg/platform/sentinel"
)

// InMemory is the map-backed reconciliation record store.
type InMemory struct {
	mu      sync.RWMutex
	records map[domain.ReconciliationID]*models.ReconciliationRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[domain.ReconciliationID]*models.ReconciliationRecord)}
}

func (s *InMemory) Create(_ context.Context, r *models.ReconciliationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = clone(r)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.ReconciliationID) (*models.ReconciliationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(r), nil
}

func (s *InMemory) ListByShipment(_ context.Context, id domain.ShipmentID) ([]models.ReconciliationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReconciliationRecord
	for _, r := range s.records {
		if r.ShipmentID == id {
			out = append(out, *clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetResolution attaches a manual resolution. The field breakdown and counts
// are left untouched.
func (s *InMemory) SetResolution(_ context.Context, id domain.ReconciliationID, res models.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.Resolution = &res
	return nil
}

func clone(r *models.ReconciliationRecord) *models.ReconciliationRecord {
	cp := *r
	cp.Fields = append([]models.FieldResult(nil), r.Fields...)
	if r.Resolution != nil {
		res := *r.Resolution
		cp.Resolution = &res
	}
	return &cp
}
