package model

// GroupStatus is the lifecycle state of an ikimina.
type GroupStatus string

// Group status constants.
const (
	GroupActive   GroupStatus = "ACTIVE"
	GroupInactive GroupStatus = "INACTIVE"
)

// Group is an ikimina: a member savings group within a SACCO. Payments are
// routed to groups by the human-readable code carried in payment references.
type Group struct {
	ID      string
	SaccoID string
	Code    string
	Name    string
	Status  GroupStatus
}

// Member is a cooperative member within an ikimina.
type Member struct {
	ID         string
	SaccoID    string
	GroupID    string
	GroupName  string
	FullName   string
	MemberCode string
	MSISDN     string
}

// Candidate is a proposed (member, group) pairing for a payment, scored by
// the external suggestion service. Ephemeral; never persisted.
type Candidate struct {
	MemberID   string  `json:"member_id"`
	GroupID    string  `json:"ikimina_id"`
	MemberCode string  `json:"member_code,omitempty"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Suggestion is the scored match proposal for one payment: at most one
// primary candidate plus ranked alternatives.
type Suggestion struct {
	Primary      *Candidate  `json:"suggestion"`
	Alternatives []Candidate `json:"alternatives"`
}
