package domain

// Direction records who authored a message: the operating company (outbound)
// or a counterparty/carrier (inbound).
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

func (d Direction) String() string { return string(d) }

// PartyRole is the role a party holds on one shipment. Roles are not types:
// the same party may be shipper on one shipment and consignee on another.
type PartyRole string

const (
	RoleShipper     PartyRole = "shipper"
	RoleConsignee   PartyRole = "consignee"
	RoleNotifyParty PartyRole = "notify_party"
	RoleCarrier     PartyRole = "carrier"
	RoleCustomer    PartyRole = "customer"
)

func (r PartyRole) String() string { return string(r) }
