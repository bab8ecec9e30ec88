package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stevedore/internal/shipment/models"
	"stevedore/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) seed(booking string) *models.Shipment {
	sh := &models.Shipment{
		ID:            domain.NewShipmentID(),
		BookingNumber: booking,
		CreatedAt:     time.Now().UTC(),
	}
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, sh))
	return sh
}

// A shipment update carrying a snapshot taken before a concurrent workflow
// transition must not write the snapshot's state back over the projection.
func (s *InMemoryStoreSuite) TestUpdatePreservesCurrentState() {
	sh := s.seed("EBKG12345678")

	snapshot, err := s.store.FindByBookingNumber(s.ctx, "EBKG12345678")
	s.Require().NoError(err)
	s.Equal("", snapshot.CurrentState)

	swapped, err := s.store.CompareAndSetCurrentState(s.ctx, sh.ID, "", "booking_confirmed")
	s.Require().NoError(err)
	s.Require().True(swapped)

	snapshot.VesselName = "MAERSK SELETAR"
	s.Require().NoError(s.store.Update(s.ctx, snapshot))

	state, err := s.store.GetCurrentState(s.ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal("booking_confirmed", state)

	// The enrichment itself still landed.
	found, err := s.store.FindByID(s.ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal("MAERSK SELETAR", found.VesselName)
	s.Equal("booking_confirmed", found.CurrentState)
}

func (s *InMemoryStoreSuite) TestCompareAndSetLoserDoesNotAdvance() {
	sh := s.seed("EBKG87654321")

	swapped, err := s.store.CompareAndSetCurrentState(s.ctx, sh.ID, "", "booking_confirmed")
	s.Require().NoError(err)
	s.True(swapped)

	// A writer that still thinks the state is "" lost the race.
	swapped, err = s.store.CompareAndSetCurrentState(s.ctx, sh.ID, "", "si_submitted")
	s.Require().NoError(err)
	s.False(swapped)

	state, err := s.store.GetCurrentState(s.ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal("booking_confirmed", state)
}
