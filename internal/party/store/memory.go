package store

import (
	"context"
	"sync"

	"stevedore/internal/party/models"
	"stevedore/pkg/domain"
	"stevedore/pkg/platform/sentinel"
)

// InMemory is the map-backed party store. A domain may map to at most one
// party; that constraint is enforced here the same way the Postgres schema
// does it.
type InMemory struct {
	mu        sync.RWMutex
	parties   map[domain.PartyID]*models.Party
	byKey     map[partyKey]domain.PartyID
	byEmail   map[string]domain.PartyID
	byDomain  map[string]domain.PartyID
}

type partyKey struct {
	name string
	role domain.PartyRole
}

func NewInMemory() *InMemory {
	return &InMemory{
		parties:  make(map[domain.PartyID]*models.Party),
		byKey:    make(map[partyKey]domain.PartyID),
		byEmail:  make(map[string]domain.PartyID),
		byDomain: make(map[string]domain.PartyID),
	}
}

func (s *InMemory) CreateIfAbsent(_ context.Context, p *models.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := partyKey{name: p.Name, role: p.Role}
	if _, exists := s.byKey[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	for _, d := range p.EmailDomains {
		if owner, taken := s.byDomain[d]; taken && owner != p.ID {
			return sentinel.ErrConflict
		}
	}
	cp := clone(p)
	s.parties[p.ID] = cp
	s.byKey[key] = p.ID
	for _, e := range p.ContactEmails {
		s.byEmail[e] = p.ID
	}
	for _, d := range p.EmailDomains {
		s.byDomain[d] = p.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.PartyID) (*models.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parties[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemory) FindByNameAndRole(_ context.Context, name string, role domain.PartyRole) (*models.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[partyKey{name: name, role: role}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.parties[id]), nil
}

func (s *InMemory) FindByContactEmail(_ context.Context, address string) (*models.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[address]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.parties[id]), nil
}

func (s *InMemory) FindByDomain(_ context.Context, emailDomain string) (*models.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byDomain[emailDomain]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.parties[id]), nil
}

// AddDomain claims an email domain for a party. A domain already owned by a
// different party is a conflict; re-claiming by the owner is a no-op.
func (s *InMemory) AddDomain(_ context.Context, id domain.PartyID, emailDomain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if owner, taken := s.byDomain[emailDomain]; taken {
		if owner == id {
			return nil
		}
		return sentinel.ErrConflict
	}
	s.byDomain[emailDomain] = id
	p.EmailDomains = append(p.EmailDomains, emailDomain)
	return nil
}

func (s *InMemory) AddContactEmail(_ context.Context, id domain.PartyID, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, exists := s.byEmail[address]; exists {
		return nil
	}
	s.byEmail[address] = id
	p.ContactEmails = append(p.ContactEmails, address)
	return nil
}

func (s *InMemory) IncrementShipmentCount(_ context.Context, id domain.PartyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.ShipmentCount++
	return nil
}

func clone(p *models.Party) *models.Party {
	cp := *p
	cp.EmailDomains = append([]string(nil), p.EmailDomains...)
	cp.ContactEmails = append([]string(nil), p.ContactEmails...)
	return &cp
}
