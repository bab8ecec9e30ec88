package httptransport

import (
	"net/http"
	"time"

	"stevedore/internal/extraction"
	"stevedore/internal/pipeline"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
	"stevedore/pkg/platform/httputil"
)

// ingestRequest is one (email, optional attachment) unit of work as the
// mail connector delivers it.
type ingestRequest struct {
	Email struct {
		FromAddress string    `json:"from_address"`
		FromDisplay string    `json:"from_display"`
		Subject     string    `json:"subject"`
		Direction   string    `json:"direction"`
		ReceivedAt  time.Time `json:"received_at"`
	} `json:"email"`
	Attachment *struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	} `json:"attachment"`
	Classification extraction.Classification `json:"classification"`
	Fields         extraction.ShipmentFields `json:"fields"`
}

type stepErrorResponse struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

type ingestResponse struct {
	Success   bool                `json:"success"`
	Direction string              `json:"direction"`
	Errors    []stepErrorResponse `json:"errors,omitempty"`

	DocumentID    string `json:"document_id,omitempty"`
	VersionNumber int    `json:"version_number,omitempty"`
	IsDuplicate   bool   `json:"is_duplicate,omitempty"`

	ShipmentID    string `json:"shipment_id,omitempty"`
	IsNewShipment bool   `json:"is_new_shipment,omitempty"`

	TransitionAccepted bool   `json:"transition_accepted"`
	NewState           string `json:"new_state,omitempty"`
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ingestRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Email.FromAddress == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "email.from_address is required"))
		return
	}

	unit := pipeline.Unit{
		Email: pipeline.Email{
			ID:                domain.NewEmailID(),
			FromAddress:       req.Email.FromAddress,
			FromDisplay:       req.Email.FromDisplay,
			Subject:           req.Email.Subject,
			DeclaredDirection: domain.Direction(req.Email.Direction),
			ReceivedAt:        req.Email.ReceivedAt,
		},
		Classification: req.Classification,
		Fields:         req.Fields,
	}
	if req.Attachment != nil {
		unit.Attachment = &pipeline.Attachment{
			ID:       domain.NewAttachmentID(),
			Filename: req.Attachment.Filename,
			Content:  req.Attachment.Content,
		}
	}

	res := h.pipeline.Process(ctx, unit)

	resp := ingestResponse{
		Success:   res.Success,
		Direction: res.Direction.String(),
	}
	for _, se := range res.Errors {
		resp.Errors = append(resp.Errors, stepErrorResponse{Step: se.Step, Error: se.Err.Error()})
	}
	if res.Document != nil {
		resp.DocumentID = res.Document.DocumentID.String()
		resp.VersionNumber = res.Document.VersionNumber
		resp.IsDuplicate = res.Document.IsDuplicate
	}
	if res.Shipment != nil {
		resp.ShipmentID = res.Shipment.ShipmentID.String()
		resp.IsNewShipment = res.Shipment.IsNewShipment
	}
	if res.Transition != nil {
		resp.TransitionAccepted = res.Transition.Accepted
		resp.NewState = res.Transition.ToState
	}

	// A unit with failed steps still reports what was durably recorded.
	status := http.StatusOK
	if !res.Success {
		status = http.StatusMultiStatus
	}
	httputil.WriteJSON(w, status, resp)
}
