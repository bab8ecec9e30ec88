package models

import (
	"fmt"
	"sort"

	"stevedore/pkg/domain"
)

// StateDef is one workflow state. States and their order are data, not
// control flow: adding a state is a new entry here, never a change to the
// transition algorithm.
type StateDef struct {
	Key string
	// Rank defines the total order of the business progression. A normal
	// transition is accepted only into a strictly higher rank.
	Rank int
	// AmendmentClass states apply regardless of order, since amendments can
	// legitimately arrive for a state already passed.
	AmendmentClass bool
}

// StateInitial is the implicit state of a shipment with no recorded
// transitions. Its rank is below every defined state.
const StateInitial = ""

// State keys.
const (
	StateBookingConfirmed    = "booking_confirmed"
	StateBookingAmended      = "booking_amended"
	StateSISubmitted         = "si_submitted"
	StateChecklistReceived   = "checklist_received"
	StateSIAmended           = "si_amended"
	StateBLDraftReceived     = "bl_draft_received"
	StateBLIssued            = "bl_issued"
	StateDeparted            = "departed"
	StateArrivalNoticed      = "arrival_noticed"
	StateCustomsCleared      = "customs_cleared"
	StateDeliveryOrderIssued = "delivery_order_issued"
	StateManualOverride      = "manual_override"
)

// states is the declared progression: pre-shipment through delivery.
var states = []StateDef{
	{Key: StateBookingConfirmed, Rank: 10},
	{Key: StateBookingAmended, Rank: 15, AmendmentClass: true},
	{Key: StateSISubmitted, Rank: 20},
	{Key: StateChecklistReceived, Rank: 30},
	{Key: StateSIAmended, Rank: 35, AmendmentClass: true},
	{Key: StateBLDraftReceived, Rank: 40},
	{Key: StateBLIssued, Rank: 50},
	{Key: StateDeparted, Rank: 60},
	{Key: StateArrivalNoticed, Rank: 70},
	{Key: StateCustomsCleared, Rank: 80},
	{Key: StateDeliveryOrderIssued, Rank: 90},
}

type triggerKey struct {
	docType   domain.DocumentType
	direction domain.Direction
}

// transitions maps (triggering document type, direction) to the candidate
// state. No entry means the document carries no workflow signal.
var transitions = map[triggerKey]string{
	{domain.DocTypeBookingConfirmation, domain.DirectionInbound}: StateBookingConfirmed,
	{domain.DocTypeBookingAmendment, domain.DirectionInbound}:    StateBookingAmended,
	{domain.DocTypeShippingInstruction, domain.DirectionOutbound}: StateSISubmitted,
	{domain.DocTypeSIDraft, domain.DirectionOutbound}:             StateSISubmitted,
	{domain.DocTypeChecklist, domain.DirectionInbound}:            StateChecklistReceived,
	{domain.DocTypeBLDraft, domain.DirectionInbound}:              StateBLDraftReceived,
	{domain.DocTypeBillOfLading, domain.DirectionInbound}:         StateBLIssued,
	{domain.DocTypeDepartureNotice, domain.DirectionInbound}:      StateDeparted,
	{domain.DocTypeArrivalNotice, domain.DirectionInbound}:        StateArrivalNoticed,
	{domain.DocTypeCustomsClearance, domain.DirectionInbound}:     StateCustomsCleared,
	{domain.DocTypeDeliveryOrder, domain.DirectionInbound}:        StateDeliveryOrderIssued,
}

var stateByKey = func() map[string]StateDef {
	m := make(map[string]StateDef, len(states))
	for _, s := range states {
		m[s.Key] = s
	}
	return m
}()

// ValidateStates checks the declared state table at startup: keys unique,
// ranks unique and positive, every transition target defined.
func ValidateStates() error {
	seenKeys := make(map[string]bool)
	seenRanks := make(map[int]string)
	for _, s := range states {
		if s.Key == "" {
			return fmt.Errorf("workflow state with empty key")
		}
		if seenKeys[s.Key] {
			return fmt.Errorf("duplicate workflow state key %q", s.Key)
		}
		seenKeys[s.Key] = true
		if s.Rank <= 0 {
			return fmt.Errorf("workflow state %q has non-positive rank %d", s.Key, s.Rank)
		}
		if other, dup := seenRanks[s.Rank]; dup {
			return fmt.Errorf("workflow states %q and %q share rank %d", s.Key, other, s.Rank)
		}
		seenRanks[s.Rank] = s.Key
	}
	for trigger, target := range transitions {
		if _, ok := stateByKey[target]; !ok {
			return fmt.Errorf("transition for (%s, %s) targets undefined state %q",
				trigger.docType, trigger.direction, target)
		}
	}
	return nil
}

// CandidateState looks up the state a (document type, direction) pair
// triggers. ok is false when the pair carries no workflow signal.
func CandidateState(docType domain.DocumentType, direction domain.Direction) (StateDef, bool) {
	key, ok := transitions[triggerKey{docType: docType, direction: direction}]
	if !ok {
		return StateDef{}, false
	}
	return stateByKey[key], true
}

// RankOf returns the order index of a state key. The initial (empty) state
// ranks below everything; unknown keys do too.
func RankOf(key string) int {
	if s, ok := stateByKey[key]; ok {
		return s.Rank
	}
	return 0
}

// IsKnownState reports whether key is a declared state.
func IsKnownState(key string) bool {
	_, ok := stateByKey[key]
	return ok
}

// OrderedStates returns the declared states sorted by rank.
func OrderedStates() []StateDef {
	out := append([]StateDef(nil), states...)
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}
