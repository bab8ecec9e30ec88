package domain

// DocumentType labels a business document as classified upstream.
// This is a domain primitive: registries switch on it, the workflow state
// table maps it, and the reconciliation engine pairs on it.
type DocumentType string

const (
	DocTypeBookingConfirmation DocumentType = "booking_confirmation"
	DocTypeBookingAmendment    DocumentType = "booking_amendment"
	DocTypeShippingInstruction DocumentType = "shipping_instruction"
	DocTypeSIDraft             DocumentType = "si_draft"
	DocTypeChecklist           DocumentType = "checklist"
	DocTypeBLDraft             DocumentType = "bl_draft"
	DocTypeBillOfLading        DocumentType = "bill_of_lading"
	DocTypeDepartureNotice     DocumentType = "departure_notice"
	DocTypeArrivalNotice       DocumentType = "arrival_notice"
	DocTypeCustomsClearance    DocumentType = "customs_clearance"
	DocTypeDeliveryOrder       DocumentType = "delivery_order"
	DocTypeInvoice             DocumentType = "invoice"
	DocTypeManualOverride      DocumentType = "manual_override"
	DocTypeUnknown             DocumentType = "unknown"
)

func (t DocumentType) String() string { return string(t) }

// IsCarrierFacing reports whether the operating company appears as an
// intermediary (shipper of record) on this document type. On these documents
// the self organization must not be registered as a counterparty.
func (t DocumentType) IsCarrierFacing() bool {
	switch t {
	case DocTypeBookingConfirmation, DocTypeBookingAmendment,
		DocTypeShippingInstruction, DocTypeSIDraft, DocTypeChecklist,
		DocTypeBLDraft, DocTypeBillOfLading:
		return true
	}
	return false
}
