package model

import "time"

// ActionType identifies the kind of queued operator mutation.
type ActionType string

// Queued action types.
const (
	ActionUpdateStatus ActionType = "payments:update-status"
	ActionAssign       ActionType = "payments:assign"
)

// ActionState is the replay state of a queued action.
type ActionState string

// Action replay states. Completed entries are removed from the queue, so
// there is no terminal "done" state on disk.
const (
	ActionPending   ActionState = "pending"
	ActionReplaying ActionState = "replaying"
	ActionFailed    ActionState = "failed"
)

// ActionEntry is an operator-issued mutation captured while offline and
// replayed in FIFO order once connectivity returns. Entries are append and
// remove only; payload fields are never mutated after creation.
type ActionEntry struct {
	CreatedAt  time.Time
	ID         string
	SaccoID    string
	GroupID    string // assign target; empty for status updates
	MemberID   string // optional assign target member
	LastError  string
	PaymentIDs []string
	Summary    Label // display-only; plays no role in replay
	Type       ActionType
	State      ActionState
	NewStatus  PaymentStatus // update-status target; empty for assigns
	Attempts   int
}
