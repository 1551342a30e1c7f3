package tui

import (
	"time"

	"github.com/kbyiringiro/saccoflow/internal/model"
)

// Data loading messages.
type paymentsLoadedMsg struct {
	err      error
	payments []model.Payment
}

type queueCountMsg struct {
	err   error
	count int
}

// Async operation messages.
type suggestionMsg struct {
	err        error
	paymentID  string
	suggestion model.Suggestion
}

type membersFoundMsg struct {
	err     error
	term    string
	members []model.Member
}

type actionQueuedMsg struct {
	err   error
	entry *model.ActionEntry
}

// tickMsg drives the periodic refresh of connectivity state and the
// queued-action count. The queue's replay loop owns the connectivity
// change channel; the TUI only polls the last observed state.
type tickMsg time.Time

// Error handling.
type errorMsg struct {
	err error
}
