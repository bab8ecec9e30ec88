package store

import (
	"context"
	"sync"

	"stevedore/internal/shipment/models"
	"stevedore/pkg/domain"
	"stevedore/pkg/platform/sentinel"
)

// InMemory is the map-backed shipment store.
type InMemory struct {
	mu         sync.RWMutex
	shipments  map[domain.ShipmentID]*models.Shipment
	byBooking  map[string]domain.ShipmentID
	emailLinks map[linkKey]struct{}
	docLinks   map[linkKey]struct{}
}

type linkKey struct {
	shipmentID domain.ShipmentID
	other      string
}

func NewInMemory() *InMemory {
	return &InMemory{
		shipments:  make(map[domain.ShipmentID]*models.Shipment),
		byBooking:  make(map[string]domain.ShipmentID),
		emailLinks: make(map[linkKey]struct{}),
		docLinks:   make(map[linkKey]struct{}),
	}
}

func (s *InMemory) CreateIfAbsent(_ context.Context, sh *models.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byBooking[sh.BookingNumber]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.shipments[sh.ID] = clone(sh)
	s.byBooking[sh.BookingNumber] = sh.ID
	return nil
}

func (s *InMemory) FindByBookingNumber(_ context.Context, booking string) (*models.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byBooking[booking]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.shipments[id]), nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.ShipmentID) (*models.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shipments[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(sh), nil
}

// Update writes everything except the workflow projection: CurrentState is
// owned by CompareAndSetCurrentState, so a caller holding a snapshot taken
// before a concurrent transition cannot write the stale state back.
func (s *InMemory) Update(_ context.Context, sh *models.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.shipments[sh.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cp := clone(sh)
	cp.CurrentState = stored.CurrentState
	s.shipments[sh.ID] = cp
	return nil
}

func (s *InMemory) UpsertEmailLink(_ context.Context, id domain.ShipmentID, emailID domain.EmailID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailLinks[linkKey{shipmentID: id, other: emailID.String()}] = struct{}{}
	return nil
}

func (s *InMemory) UpsertDocumentLink(_ context.Context, id domain.ShipmentID, docID domain.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docLinks[linkKey{shipmentID: id, other: docID.String()}] = struct{}{}
	return nil
}

// CountEmailLinks supports idempotency assertions in tests.
func (s *InMemory) CountEmailLinks(id domain.ShipmentID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.emailLinks {
		if k.shipmentID == id {
			n++
		}
	}
	return n
}

// GetCurrentState reads the workflow-state projection.
func (s *InMemory) GetCurrentState(_ context.Context, id domain.ShipmentID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shipments[id]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return sh.CurrentState, nil
}

// CompareAndSetCurrentState updates the projection only when the stored
// state still equals prev. Returns false when a concurrent transition won.
func (s *InMemory) CompareAndSetCurrentState(_ context.Context, id domain.ShipmentID, prev, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shipments[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if sh.CurrentState != prev {
		return false, nil
	}
	sh.CurrentState = next
	return true, nil
}

func clone(sh *models.Shipment) *models.Shipment {
	cp := *sh
	cp.Containers = append([]string(nil), sh.Containers...)
	return &cp
}
