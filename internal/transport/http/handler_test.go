package httptransport_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	docservice "stevedore/internal/document/service"
	docstore "stevedore/internal/document/store"
	"stevedore/internal/extraction"
	partyservice "stevedore/internal/party/service"
	partystore "stevedore/internal/party/store"
	"stevedore/internal/pipeline"
	recmodels "stevedore/internal/reconcile/models"
	recservice "stevedore/internal/reconcile/service"
	recstore "stevedore/internal/reconcile/store"
	shipservice "stevedore/internal/shipment/service"
	shipstore "stevedore/internal/shipment/store"
	httptransport "stevedore/internal/transport/http"
	wfmodels "stevedore/internal/workflow/models"
	wfservice "stevedore/internal/workflow/service"
	wfstore "stevedore/internal/workflow/store"
	"stevedore/pkg/domain"
	"stevedore/pkg/testutil"
)

// HandlerSuite runs the router against real services on in-memory stores, so
// requests exercise the same code paths the server does.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	docs := docservice.New(docstore.NewInMemory())
	parties := partyservice.New(partystore.NewInMemory())
	shipStore := shipstore.NewInMemory()
	shipments := shipservice.New(shipStore)

	wf, err := wfservice.New(wfstore.NewInMemory(), shipStore)
	s.Require().NoError(err)

	reconcile := recservice.New(recstore.NewInMemory())

	orch := pipeline.New(docs, parties, shipments, wf,
		wfservice.NewDetector([]string{"acme-fwd.com"}))

	h := httptransport.NewHandler(orch, shipments, wf, reconcile, logger)
	s.router = httptransport.NewRouter(h, logger)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func val(text string) *extraction.Value {
	return &extraction.Value{Text: text, Confidence: 0.9}
}

type ingestBody struct {
	Email struct {
		FromAddress string    `json:"from_address"`
		FromDisplay string    `json:"from_display"`
		Subject     string    `json:"subject"`
		ReceivedAt  time.Time `json:"received_at"`
	} `json:"email"`
	Attachment *struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	} `json:"attachment,omitempty"`
	Classification extraction.Classification `json:"classification"`
	Fields         extraction.ShipmentFields `json:"fields"`
}

func bookingIngest() ingestBody {
	var b ingestBody
	b.Email.FromAddress = "noreply@maersk.com"
	b.Email.FromDisplay = "Maersk Notification"
	b.Email.Subject = "Booking confirmation EBKG12345678"
	b.Email.ReceivedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b.Classification = extraction.Classification{
		DocumentType:        domain.DocTypeBookingConfirmation,
		Confidence:          0.97,
		ReferenceCandidates: []string{"EBKG12345678"},
	}
	b.Fields = extraction.ShipmentFields{
		BookingNumber: val("EBKG12345678"),
		ShipperName:   val("ACME EXPORTS PVT LTD"),
		ConsigneeName: val("Globex Import GmbH"),
		VesselName:    val("MAERSK SELETAR"),
	}
	return b
}

type ingestResult struct {
	Success            bool   `json:"success"`
	Direction          string `json:"direction"`
	DocumentID         string `json:"document_id"`
	ShipmentID         string `json:"shipment_id"`
	IsNewShipment      bool   `json:"is_new_shipment"`
	TransitionAccepted bool   `json:"transition_accepted"`
	NewState           string `json:"new_state"`
}

// ingestBooking posts the fixture and returns the created shipment id.
func (s *HandlerSuite) ingestBooking() string {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/ingest", bookingIngest())
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	res := testutil.UnmarshalResponse[ingestResult](s.T(), rr)
	s.Require().NotEmpty(res.ShipmentID)
	return res.ShipmentID
}

func (s *HandlerSuite) TestIngestHappyPath() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/ingest", bookingIngest())
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusOK, rr.Code, rr.Body.String())
	res := testutil.UnmarshalResponse[ingestResult](s.T(), rr)
	s.True(res.Success)
	s.Equal("inbound", res.Direction)
	s.NotEmpty(res.DocumentID)
	s.True(res.IsNewShipment)
	s.True(res.TransitionAccepted)
	s.Equal(wfmodels.StateBookingConfirmed, res.NewState)
}

func (s *HandlerSuite) TestIngestRequiresFromAddress() {
	body := bookingIngest()
	body.Email.FromAddress = ""
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/ingest", body)
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusBadRequest, rr.Code)
	testutil.AssertJSONHasKey(s.T(), rr, "error")
}

func (s *HandlerSuite) TestIngestRejectsMalformedJSON() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/ingest", "{not json")
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestGetShipment() {
	id := s.ingestBooking()

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/shipments/"+id))
	s.Equal(http.StatusOK, rr.Code)
	testutil.AssertJSONContains(s.T(), rr, "booking_number", "EBKG12345678")
	testutil.AssertJSONContains(s.T(), rr, "current_state", wfmodels.StateBookingConfirmed)
}

func (s *HandlerSuite) TestGetShipmentBadID() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/shipments/not-a-uuid"))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestGetShipmentNotFound() {
	id := domain.NewShipmentID().String()
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/shipments/"+id))
	s.Equal(http.StatusNotFound, rr.Code)
}

func (s *HandlerSuite) TestStateAndHistory() {
	id := s.ingestBooking()

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/shipments/"+id+"/state"))
	s.Equal(http.StatusOK, rr.Code)
	testutil.AssertJSONContains(s.T(), rr, "current_state", wfmodels.StateBookingConfirmed)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/shipments/"+id+"/history"))
	s.Equal(http.StatusOK, rr.Code)

	type historyResult struct {
		Transitions []struct {
			FromState string `json:"from_state"`
			ToState   string `json:"to_state"`
		} `json:"transitions"`
	}
	res := testutil.UnmarshalResponse[historyResult](s.T(), rr)
	s.Require().Len(res.Transitions, 1)
	s.Equal("", res.Transitions[0].FromState)
	s.Equal(wfmodels.StateBookingConfirmed, res.Transitions[0].ToState)
}

func (s *HandlerSuite) TestStateOverride() {
	id := s.ingestBooking()

	body := map[string]string{"new_state": wfmodels.StateSISubmitted, "reason": "carrier portal shows SI lodged"}
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/shipments/"+id+"/state-override", body)
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusOK, rr.Code, rr.Body.String())
	testutil.AssertJSONContains(s.T(), rr, "accepted", true)
	testutil.AssertJSONContains(s.T(), rr, "to_state", wfmodels.StateSISubmitted)
}

func (s *HandlerSuite) TestStateOverrideRequiresReason() {
	id := s.ingestBooking()

	body := map[string]string{"new_state": wfmodels.StateSISubmitted}
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/shipments/"+id+"/state-override", body)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)
}

type reconcileBody struct {
	PairKey string                    `json:"pair_key"`
	ValuesA extraction.ShipmentFields `json:"values_a"`
	ValuesB extraction.ShipmentFields `json:"values_b"`
}

func (s *HandlerSuite) TestReconciliationLifecycle() {
	id := s.ingestBooking()
	base := "/shipments/" + id

	// Before any run the gate is closed.
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, base+"/submission-gate"))
	s.Equal(http.StatusOK, rr.Code)
	testutil.AssertJSONContains(s.T(), rr, "can_proceed", false)
	testutil.AssertJSONContains(s.T(), rr, "reason", "no_reconciliation")

	// Critical shipper mismatch closes the gate.
	body := reconcileBody{
		PairKey: recmodels.PairSIVsChecklist,
		ValuesA: extraction.ShipmentFields{
			BookingNumber: val("EBKG12345678"),
			ShipperName:   val("ACME EXPORTS PVT LTD"),
		},
		ValuesB: extraction.ShipmentFields{
			BookingNumber: val("EBKG12345678"),
			ShipperName:   val("Globex Trading LLC"),
		},
	}
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/reconciliations", body)
	rr = testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	type recResult struct {
		ID         string `json:"id"`
		Critical   int    `json:"critical"`
		CanProceed bool   `json:"can_proceed"`
	}
	rec := testutil.UnmarshalResponse[recResult](s.T(), rr)
	s.Equal(1, rec.Critical)
	s.False(rec.CanProceed)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, base+"/submission-gate"))
	testutil.AssertJSONContains(s.T(), rr, "can_proceed", false)
	testutil.AssertJSONContains(s.T(), rr, "reason", "critical_discrepancies")

	// Manual resolution opens it.
	resolve := map[string]string{"resolved_by": "ops@acme-fwd.com", "note": "shipper confirmed by phone"}
	req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/reconciliations/"+rec.ID+"/resolve", resolve)
	rr = testutil.DoRequest(s.router, req)
	s.Equal(http.StatusOK, rr.Code, rr.Body.String())
	testutil.AssertJSONContains(s.T(), rr, "resolved_by", "ops@acme-fwd.com")

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, base+"/submission-gate"))
	testutil.AssertJSONContains(s.T(), rr, "can_proceed", true)
	testutil.AssertJSONContains(s.T(), rr, "reason", "manually_resolved")

	// The run stays listed with its discrepancy counts intact.
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, base+"/reconciliations"))
	s.Equal(http.StatusOK, rr.Code)

	type listResult struct {
		Reconciliations []recResult `json:"reconciliations"`
	}
	list := testutil.UnmarshalResponse[listResult](s.T(), rr)
	s.Require().Len(list.Reconciliations, 1)
	s.Equal(1, list.Reconciliations[0].Critical)
}

func (s *HandlerSuite) TestReconciliationUnknownPair() {
	id := s.ingestBooking()
	body := reconcileBody{PairKey: "si_vs_unknown"}
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/shipments/"+id+"/reconciliations", body)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestResolveUnknownRecord() {
	resolve := map[string]string{"resolved_by": "ops", "note": "n/a"}
	target := "/reconciliations/" + domain.NewReconciliationID().String() + "/resolve"
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, target, resolve)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusNotFound, rr.Code)
}

func (s *HandlerSuite) TestHealthz() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	s.Equal(http.StatusOK, rr.Code)
	testutil.AssertJSONContains(s.T(), rr, "status", "ok")
}
