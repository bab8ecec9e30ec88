package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"stevedore/internal/extraction"
	"stevedore/internal/reconcile/models"
	"stevedore/internal/reconcile/store"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
)

type ReconcileServiceSuite struct {
	suite.Suite
	svc        *Service
	store      *store.InMemory
	shipmentID domain.ShipmentID
	ctx        context.Context
}

func (s *ReconcileServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.svc = New(s.store)
	s.shipmentID = domain.NewShipmentID()
	s.ctx = context.Background()
}

func TestReconcileServiceSuite(t *testing.T) {
	suite.Run(t, new(ReconcileServiceSuite))
}

func val(text string) *extraction.Value {
	return &extraction.Value{Text: text, Confidence: 0.9}
}

// siFields builds a typical SI-draft field set.
func siFields() extraction.ShipmentFields {
	return extraction.ShipmentFields{
		BookingNumber: val("EBKG12345678"),
		ShipperName:   val("ACME EXPORTS PVT LTD"),
		ConsigneeName: val("Globex Import GmbH"),
		OriginCode:    val("INNSA"),
	}
}

func (s *ReconcileServiceSuite) reconcile(a, b extraction.ShipmentFields) *models.ReconciliationRecord {
	rec, err := s.svc.Reconcile(s.ctx, ReconcileInput{
		ShipmentID: s.shipmentID,
		PairKey:    models.PairSIVsChecklist,
		ValuesA:    a,
		ValuesB:    b,
	})
	s.Require().NoError(err)
	return rec
}

func (s *ReconcileServiceSuite) TestCriticalMismatchClosesGate() {
	a := siFields()
	b := siFields()
	b.BookingNumber = val("EBKG99999999")

	rec := s.reconcile(a, b)
	s.False(rec.CanProceed)
	s.Equal(1, rec.Critical)
	s.Equal(len(rec.Fields)-1, rec.Matches)
}

func (s *ReconcileServiceSuite) TestNonCriticalMismatchesNeverBlock() {
	a := siFields()
	a.VesselName = val("MSC OSCAR")
	a.ETD = val("2024-03-01")
	b := siFields()
	b.VesselName = val("EVER GIVEN")
	b.ETD = val("2024-03-02")

	rec := s.reconcile(a, b)
	s.True(rec.CanProceed)
	s.Equal(0, rec.Critical)
	s.Equal(2, rec.Discrepancies)
}

func (s *ReconcileServiceSuite) TestFuzzyNameVariantsMatch() {
	a := siFields()
	b := siFields()
	b.ShipperName = val("Acme Exports Pvt. Ltd")

	rec := s.reconcile(a, b)
	s.True(rec.CanProceed)
	s.Equal(0, rec.Discrepancies)
}

func (s *ReconcileServiceSuite) TestGateDateToleranceIsSameDay() {
	a := siFields()
	a.ETD = val("2024-03-01")
	b := siFields()
	b.ETD = val("2024-03-02")

	rec := s.reconcile(a, b)
	// One day apart fails the gate's same-day tolerance; etd is a warning,
	// so the gate still opens.
	s.Equal(1, rec.Discrepancies)
	s.True(rec.CanProceed)
}

func (s *ReconcileServiceSuite) TestUnsetFieldsOnBothSidesMatch() {
	rec := s.reconcile(siFields(), siFields())
	s.True(rec.CanProceed)
	s.Equal(0, rec.Discrepancies)
	// Unset fields on both sides count as matches, not discrepancies.
	s.Equal(len(rec.Fields), rec.Matches)
}

func (s *ReconcileServiceSuite) TestBreakdownPersistedEvenWhenClean() {
	rec := s.reconcile(siFields(), siFields())

	stored, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.NotEmpty(stored.Fields)
	s.True(stored.CanProceed)
}

func (s *ReconcileServiceSuite) TestUnknownPairRejected() {
	_, err := s.svc.Reconcile(s.ctx, ReconcileInput{
		ShipmentID: s.shipmentID,
		PairKey:    "bl_vs_horoscope",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ReconcileServiceSuite) TestManualResolutionOpensGateKeepsRecord() {
	a := siFields()
	b := siFields()
	b.ConsigneeName = val("Completely Different Trading LLC")
	rec := s.reconcile(a, b)
	s.False(rec.CanProceed)

	_, err := s.svc.Resolve(s.ctx, rec.ID, "", "checked with ops")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	resolved, err := s.svc.Resolve(s.ctx, rec.ID, "ops@example.com", "consignee renamed after merger")
	s.Require().NoError(err)
	s.Require().NotNil(resolved.Resolution)
	s.Equal("ops@example.com", resolved.Resolution.ResolvedBy)
	// Resolution annotates; the discrepancy counts survive.
	s.False(resolved.CanProceed)
	s.Equal(1, resolved.Critical)
	s.True(resolved.GateOpen())
}

func (s *ReconcileServiceSuite) TestSubmissionGate() {
	gate, err := s.svc.SubmissionGate(s.ctx, s.shipmentID, models.PairSIVsChecklist)
	s.Require().NoError(err)
	s.False(gate.CanProceed)
	s.Equal("no_reconciliation", gate.Reason)

	a := siFields()
	b := siFields()
	b.OriginCode = val("INMUN")
	rec := s.reconcile(a, b)

	gate, err = s.svc.SubmissionGate(s.ctx, s.shipmentID, models.PairSIVsChecklist)
	s.Require().NoError(err)
	s.False(gate.CanProceed)
	s.Equal("critical_discrepancies", gate.Reason)

	_, err = s.svc.Resolve(s.ctx, rec.ID, "ops@example.com", "origin corrected on carrier side")
	s.Require().NoError(err)

	gate, err = s.svc.SubmissionGate(s.ctx, s.shipmentID, models.PairSIVsChecklist)
	s.Require().NoError(err)
	s.True(gate.CanProceed)
	s.Equal("manually_resolved", gate.Reason)

	// A later clean run supersedes the resolved one.
	s.reconcile(siFields(), siFields())
	gate, err = s.svc.SubmissionGate(s.ctx, s.shipmentID, models.PairSIVsChecklist)
	s.Require().NoError(err)
	s.True(gate.CanProceed)
	s.Equal("clean", gate.Reason)
}
