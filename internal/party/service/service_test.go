package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"stevedore/internal/party/models"
	"stevedore/internal/party/store"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
)

type PartyServiceSuite struct {
	suite.Suite
	svc   *Service
	store *store.InMemory
	ctx   context.Context
}

func (s *PartyServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.svc = New(s.store, WithSelfIdentity(SelfIdentity{
		NameMarkers: []string{"ACME FORWARDING"},
		Domains:     []string{"acme-fwd.com"},
	}))
	s.ctx = context.Background()
}

func TestPartyServiceSuite(t *testing.T) {
	suite.Run(t, new(PartyServiceSuite))
}

func (s *PartyServiceSuite) TestResolveCreatesThenMatches() {
	first, err := s.svc.Resolve(s.ctx, ResolveInput{
		Name: "Globex Shipping GmbH", Role: domain.RoleShipper, SourceType: domain.DocTypeInvoice,
	})
	s.Require().NoError(err)
	s.True(first.IsNew)

	// Punctuation and case variants of the same name resolve to one party.
	second, err := s.svc.Resolve(s.ctx, ResolveInput{
		Name: "  GLOBEX   SHIPPING GMBH ", Role: domain.RoleShipper, SourceType: domain.DocTypeInvoice,
	})
	s.Require().NoError(err)
	s.False(second.IsNew)
	s.Equal(first.PartyID, second.PartyID)

	p, err := s.svc.GetParty(s.ctx, first.PartyID)
	s.Require().NoError(err)
	s.Equal(2, p.ShipmentCount, "each sighting bumps the count")
}

func (s *PartyServiceSuite) TestSameNameDifferentRoleIsDistinct() {
	shipper, err := s.svc.Resolve(s.ctx, ResolveInput{
		Name: "Globex Shipping", Role: domain.RoleShipper, SourceType: domain.DocTypeInvoice,
	})
	s.Require().NoError(err)
	consignee, err := s.svc.Resolve(s.ctx, ResolveInput{
		Name: "Globex Shipping", Role: domain.RoleConsignee, SourceType: domain.DocTypeInvoice,
	})
	s.Require().NoError(err)
	s.NotEqual(shipper.PartyID, consignee.PartyID)
}

func (s *PartyServiceSuite) TestSelfExcludedOnCarrierFacingDocs() {
	res, err := s.svc.Resolve(s.ctx, ResolveInput{
		Name: "ACME Forwarding Co., Ltd.", Role: domain.RoleShipper, SourceType: domain.DocTypeBookingConfirmation,
	})
	s.Require().NoError(err)
	s.True(res.Excluded)
	s.True(res.PartyID.IsNil())
}

func (s *PartyServiceSuite) TestSelfAllowedOnCustomerFacingDocs() {
	// The same legal entity may legitimately be the customer on an invoice.
	res, err := s.svc.Resolve(s.ctx, ResolveInput{
		Name: "ACME Forwarding Co., Ltd.", Role: domain.RoleCustomer, SourceType: domain.DocTypeInvoice,
	})
	s.Require().NoError(err)
	s.False(res.Excluded)
	s.False(res.PartyID.IsNil())
}

func (s *PartyServiceSuite) TestResolveSenderByDomain() {
	created, err := s.svc.ResolveSender(s.ctx, "ops@globex-shipping.com", "Globex Operations")
	s.Require().NoError(err)
	s.True(created.IsNew)

	// A different mailbox on the same domain resolves to the same party.
	matched, err := s.svc.ResolveSender(s.ctx, "docs@globex-shipping.com", "Globex Documentation")
	s.Require().NoError(err)
	s.False(matched.IsNew)
	s.Equal(created.PartyID, matched.PartyID)

	p, err := s.svc.GetParty(s.ctx, created.PartyID)
	s.Require().NoError(err)
	s.Contains(p.ContactEmails, "ops@globex-shipping.com")
	s.Contains(p.ContactEmails, "docs@globex-shipping.com")
	s.Equal([]string{"globex-shipping.com"}, p.EmailDomains)
}

func (s *PartyServiceSuite) TestResolveSenderDerivesNameFromAddress() {
	res, err := s.svc.ResolveSender(s.ctx, "jane.doe@example.org", "")
	s.Require().NoError(err)
	s.True(res.IsNew)

	p, err := s.svc.GetParty(s.ctx, res.PartyID)
	s.Require().NoError(err)
	s.Equal("JANE DOE", p.Name)
}

func (s *PartyServiceSuite) TestDomainsGrowMonotonically() {
	res, err := s.svc.Resolve(s.ctx, ResolveInput{
		Name: "Globex Shipping", Role: domain.RoleShipper, SourceType: domain.DocTypeInvoice,
		Address: "ops@globex.example",
	})
	s.Require().NoError(err)

	_, err = s.svc.Resolve(s.ctx, ResolveInput{
		Name: "Globex Shipping", Role: domain.RoleShipper, SourceType: domain.DocTypeInvoice,
		Address: "ops@globex-eu.example",
	})
	s.Require().NoError(err)

	p, err := s.svc.GetParty(s.ctx, res.PartyID)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"globex.example", "globex-eu.example"}, p.EmailDomains)
}

func (s *PartyServiceSuite) TestValidation() {
	_, err := s.svc.Resolve(s.ctx, ResolveInput{Name: "  ", Role: domain.RoleShipper})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.ResolveSender(s.ctx, "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *PartyServiceSuite) TestNormalizeName() {
	s.Equal("ACME EXPORTS PVT. LTD", models.NormalizeName("  Acme   Exports Pvt. Ltd  "))
	s.Equal("A-B & C, INC.", models.NormalizeName("a-b & c, inc."))
	s.Equal("ACME LTD", models.NormalizeName("Acme (Ltd)"))
}
