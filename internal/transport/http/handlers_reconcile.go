package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"stevedore/internal/extraction"
	recmodels "stevedore/internal/reconcile/models"
	recservice "stevedore/internal/reconcile/service"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
	"stevedore/pkg/platform/httputil"
)

type runReconciliationRequest struct {
	PairKey string                    `json:"pair_key"`
	DocAID  string                    `json:"doc_a_id"`
	DocBID  string                    `json:"doc_b_id"`
	ValuesA extraction.ShipmentFields `json:"values_a"`
	ValuesB extraction.ShipmentFields `json:"values_b"`
}

type fieldResultResponse struct {
	Field    string `json:"field"`
	ValueA   string `json:"value_a"`
	ValueB   string `json:"value_b"`
	Matches  bool   `json:"matches"`
	Severity string `json:"severity"`
	Message  string `json:"message,omitempty"`
}

type reconciliationResponse struct {
	ID            string                `json:"id"`
	ShipmentID    string                `json:"shipment_id"`
	PairKey       string                `json:"pair_key"`
	Fields        []fieldResultResponse `json:"fields"`
	Matches       int                   `json:"matches"`
	Discrepancies int                   `json:"discrepancies"`
	Critical      int                   `json:"critical"`
	CanProceed    bool                  `json:"can_proceed"`
	ResolvedBy    string                `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time            `json:"resolved_at,omitempty"`
	Note          string                `json:"resolution_note,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

func toReconciliationResponse(rec *recmodels.ReconciliationRecord) reconciliationResponse {
	resp := reconciliationResponse{
		ID:            rec.ID.String(),
		ShipmentID:    rec.ShipmentID.String(),
		PairKey:       rec.PairKey,
		Matches:       rec.Matches,
		Discrepancies: rec.Discrepancies,
		Critical:      rec.Critical,
		CanProceed:    rec.CanProceed,
		CreatedAt:     rec.CreatedAt,
	}
	for _, f := range rec.Fields {
		resp.Fields = append(resp.Fields, fieldResultResponse{
			Field:    f.Field,
			ValueA:   f.ValueA,
			ValueB:   f.ValueB,
			Matches:  f.Matches,
			Severity: string(f.Severity),
			Message:  f.Message,
		})
	}
	if rec.Resolution != nil {
		resp.ResolvedBy = rec.Resolution.ResolvedBy
		at := rec.Resolution.ResolvedAt
		resp.ResolvedAt = &at
		resp.Note = rec.Resolution.Note
	}
	return resp
}

func (h *Handler) handleRunReconciliation(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req runReconciliationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	in := recservice.ReconcileInput{
		ShipmentID: id,
		PairKey:    req.PairKey,
		ValuesA:    req.ValuesA,
		ValuesB:    req.ValuesB,
	}
	if req.DocAID != "" {
		u, perr := uuid.Parse(req.DocAID)
		if perr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid doc_a_id"))
			return
		}
		in.DocAID = domain.DocumentID(u)
	}
	if req.DocBID != "" {
		u, perr := uuid.Parse(req.DocBID)
		if perr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid doc_b_id"))
			return
		}
		in.DocBID = domain.DocumentID(u)
	}

	rec, err := h.reconcile.Reconcile(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toReconciliationResponse(rec))
}

func (h *Handler) handleListReconciliations(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recs, err := h.reconcile.ListByShipment(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]reconciliationResponse, 0, len(recs))
	for i := range recs {
		out = append(out, toReconciliationResponse(&recs[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"shipment_id":     id.String(),
		"reconciliations": out,
	})
}

func (h *Handler) handleSubmissionGate(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		pair = recmodels.PairSIVsChecklist
	}
	gate, err := h.reconcile.SubmissionGate(r.Context(), id, pair)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := map[string]any{
		"shipment_id": id.String(),
		"pair_key":    pair,
		"can_proceed": gate.CanProceed,
		"reason":      gate.Reason,
	}
	if !gate.RecordID.IsNil() {
		resp["record_id"] = gate.RecordID.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type resolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
	Note       string `json:"note"`
}

func (h *Handler) handleResolveReconciliation(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseReconciliationID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid reconciliation id"))
		return
	}
	var req resolveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.reconcile.Resolve(r.Context(), id, req.ResolvedBy, req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toReconciliationResponse(rec))
}
