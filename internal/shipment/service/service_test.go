package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"stevedore/internal/extraction"
	"stevedore/internal/shipment/store"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
)

type ShipmentServiceSuite struct {
	suite.Suite
	svc   *Service
	store *store.InMemory
	ctx   context.Context
}

func (s *ShipmentServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.svc = New(s.store)
	s.ctx = context.Background()
}

func TestShipmentServiceSuite(t *testing.T) {
	suite.Run(t, new(ShipmentServiceSuite))
}

func val(text string) *extraction.Value {
	return &extraction.Value{Text: text, Confidence: 0.9}
}

func (s *ShipmentServiceSuite) TestConvergenceOnNormalizedBooking() {
	first, err := s.svc.Register(s.ctx, RegisterInput{BookingNumber: "ABC123"})
	s.Require().NoError(err)
	s.True(first.IsNewShipment)

	second, err := s.svc.Register(s.ctx, RegisterInput{BookingNumber: " abc 123 "})
	s.Require().NoError(err)
	s.False(second.IsNewShipment)
	s.Equal(first.ShipmentID, second.ShipmentID)
}

func (s *ShipmentServiceSuite) TestEmptyBookingRejected() {
	_, err := s.svc.Register(s.ctx, RegisterInput{BookingNumber: "   "})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ShipmentServiceSuite) TestFirstWriteWinsUnlessAmendment() {
	res, err := s.svc.Register(s.ctx, RegisterInput{
		BookingNumber: "ABC123",
		Fields:        extraction.ShipmentFields{ETD: val("2024-01-01")},
	})
	s.Require().NoError(err)

	// A later non-amendment signal does not overwrite.
	_, err = s.svc.Register(s.ctx, RegisterInput{
		BookingNumber: "ABC123",
		Fields:        extraction.ShipmentFields{ETD: val("2024-02-01")},
	})
	s.Require().NoError(err)
	sh, err := s.svc.GetShipment(s.ctx, res.ShipmentID)
	s.Require().NoError(err)
	s.Equal("2024-01-01", sh.ETD)

	// The same signal flagged as an amendment does.
	_, err = s.svc.Register(s.ctx, RegisterInput{
		BookingNumber: "ABC123",
		Fields:        extraction.ShipmentFields{ETD: val("2024-02-01")},
		IsAmendment:   true,
	})
	s.Require().NoError(err)
	sh, err = s.svc.GetShipment(s.ctx, res.ShipmentID)
	s.Require().NoError(err)
	s.Equal("2024-02-01", sh.ETD)
	s.Equal(1, sh.AmendmentCount)
}

func (s *ShipmentServiceSuite) TestContainersAlwaysUnion() {
	res, err := s.svc.Register(s.ctx, RegisterInput{
		BookingNumber: "ABC123",
		Fields:        extraction.ShipmentFields{ContainerNumbers: []string{"MSKU1234567"}},
	})
	s.Require().NoError(err)

	_, err = s.svc.Register(s.ctx, RegisterInput{
		BookingNumber: "ABC123",
		Fields:        extraction.ShipmentFields{ContainerNumbers: []string{"MSKU1234567", "TCLU7654321"}},
	})
	s.Require().NoError(err)

	sh, err := s.svc.GetShipment(s.ctx, res.ShipmentID)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"MSKU1234567", "TCLU7654321"}, sh.Containers)
}

func (s *ShipmentServiceSuite) TestPartyLinksFillOnlyWhenNull() {
	shipperA := domain.NewPartyID()
	shipperB := domain.NewPartyID()

	res, err := s.svc.Register(s.ctx, RegisterInput{
		BookingNumber: "ABC123",
		Links:         Linkage{ShipperID: shipperA},
	})
	s.Require().NoError(err)

	// Even an amendment does not rebind an already-linked party.
	_, err = s.svc.Register(s.ctx, RegisterInput{
		BookingNumber: "ABC123",
		Links:         Linkage{ShipperID: shipperB},
		IsAmendment:   true,
	})
	s.Require().NoError(err)

	sh, err := s.svc.GetShipment(s.ctx, res.ShipmentID)
	s.Require().NoError(err)
	s.Equal(shipperA, sh.ShipperID)
}

func (s *ShipmentServiceSuite) TestEmailLinkIdempotent() {
	emailID := domain.NewEmailID()
	res, err := s.svc.Register(s.ctx, RegisterInput{
		BookingNumber: "ABC123",
		Links:         Linkage{EmailID: emailID},
	})
	s.Require().NoError(err)

	// Redelivery of the same email must not create a second link.
	_, err = s.svc.Register(s.ctx, RegisterInput{
		BookingNumber: "ABC123",
		Links:         Linkage{EmailID: emailID},
	})
	s.Require().NoError(err)
	s.Equal(1, s.store.CountEmailLinks(res.ShipmentID))
}

func (s *ShipmentServiceSuite) TestEmptyExtractionIsNoNewInformation() {
	res, err := s.svc.Register(s.ctx, RegisterInput{BookingNumber: "ABC123"})
	s.Require().NoError(err)

	out, err := s.svc.Register(s.ctx, RegisterInput{BookingNumber: "ABC123"})
	s.Require().NoError(err)
	s.Equal(res.ShipmentID, out.ShipmentID)
	s.Empty(out.FieldsUpdated)
}
