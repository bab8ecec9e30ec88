package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	shipmodels "stevedore/internal/shipment/models"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
	"stevedore/pkg/platform/httputil"
)

func shipmentIDFromPath(r *http.Request) (domain.ShipmentID, error) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "shipmentID"))
	if err != nil {
		return domain.ShipmentID{}, dErrors.New(dErrors.CodeBadRequest, "invalid shipment id")
	}
	return id, nil
}

type shipmentResponse struct {
	ID            string   `json:"id"`
	BookingNumber string   `json:"booking_number"`
	BLNumber      string   `json:"bl_number,omitempty"`
	CarrierName   string   `json:"carrier_name,omitempty"`
	OriginCode    string   `json:"origin_code,omitempty"`
	OriginName    string   `json:"origin_name,omitempty"`
	DestCode      string   `json:"destination_code,omitempty"`
	DestName      string   `json:"destination_name,omitempty"`
	VesselName    string   `json:"vessel_name,omitempty"`
	VoyageNumber  string   `json:"voyage_number,omitempty"`
	ETD           string   `json:"etd,omitempty"`
	ATD           string   `json:"atd,omitempty"`
	ETA           string   `json:"eta,omitempty"`
	ATA           string   `json:"ata,omitempty"`
	Containers    []string `json:"containers,omitempty"`
	CurrentState  string   `json:"current_state"`
	Amendments    int      `json:"amendment_count"`
}

func toShipmentResponse(sh *shipmodels.Shipment) shipmentResponse {
	return shipmentResponse{
		ID:            sh.ID.String(),
		BookingNumber: sh.BookingNumber,
		BLNumber:      sh.BLNumber,
		CarrierName:   sh.CarrierName,
		OriginCode:    sh.OriginCode,
		OriginName:    sh.OriginName,
		DestCode:      sh.DestinationCode,
		DestName:      sh.DestinationName,
		VesselName:    sh.VesselName,
		VoyageNumber:  sh.VoyageNumber,
		ETD:           sh.ETD,
		ATD:           sh.ATD,
		ETA:           sh.ETA,
		ATA:           sh.ATA,
		Containers:    sh.Containers,
		CurrentState:  sh.CurrentState,
		Amendments:    sh.AmendmentCount,
	}
}

func (h *Handler) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sh, err := h.shipments.GetShipment(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toShipmentResponse(sh))
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	state, err := h.workflow.CurrentState(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"shipment_id":   id.String(),
		"current_state": state,
	})
}

type transitionResponse struct {
	FromState    string    `json:"from_state"`
	ToState      string    `json:"to_state"`
	DocumentType string    `json:"document_type"`
	Direction    string    `json:"direction"`
	Reason       string    `json:"reason,omitempty"`
	At           time.Time `json:"at"`
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	history, err := h.workflow.History(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]transitionResponse, 0, len(history))
	for _, t := range history {
		out = append(out, transitionResponse{
			FromState:    t.FromState,
			ToState:      t.ToState,
			DocumentType: string(t.DocumentType),
			Direction:    t.Direction.String(),
			Reason:       t.Reason,
			At:           t.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"shipment_id": id.String(),
		"transitions": out,
	})
}

type overrideRequest struct {
	NewState string `json:"new_state"`
	Reason   string `json:"reason"`
}

func (h *Handler) handleStateOverride(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req overrideRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.workflow.OverrideState(r.Context(), id, req.NewState, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"accepted":   res.Accepted,
		"from_state": res.FromState,
		"to_state":   res.ToState,
	})
}
