// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/kbyiringiro/saccoflow/internal/model"
)

// PaymentFilter defines filtering options for payment queries.
type PaymentFilter struct {
	Status  *model.PaymentStatus
	SaccoID string
	Limit   int
	Offset  int
}

// MemberSearch describes a fuzzy member lookup. Term is matched as a
// case-insensitive substring against name, MSISDN and member code. When
// GroupID is set the search is scoped to that ikimina; otherwise SaccoID
// scopes it to the tenant.
type MemberSearch struct {
	Term    string
	GroupID string
	SaccoID string
	Limit   int
}

// PaymentStore is the persistence contract for payment rows. Bulk writes
// report the affected-row count so callers can detect partial application.
type PaymentStore interface {
	SavePayments(ctx context.Context, payments []model.Payment) error
	GetPayments(ctx context.Context, filter PaymentFilter) ([]model.Payment, error)
	GetPaymentByID(ctx context.Context, id string) (*model.Payment, error)
	GetPaymentsByIDs(ctx context.Context, ids []string) ([]model.Payment, error)
	UpdatePaymentStatus(ctx context.Context, ids []string, status model.PaymentStatus, saccoID string) (int64, error)
	AssignPayments(ctx context.Context, ids []string, groupID, memberID, saccoID string) (int64, error)
}

// DirectoryStore is the member/group lookup contract.
type DirectoryStore interface {
	SearchMembers(ctx context.Context, search MemberSearch) ([]model.Member, error)
	GetGroupsByCode(ctx context.Context, code string, status model.GroupStatus, saccoID string) ([]model.Group, error)
	SaveGroups(ctx context.Context, groups []model.Group) error
	SaveMembers(ctx context.Context, members []model.Member) error
}

// InboxStore persists raw SMS source records.
type InboxStore interface {
	SaveSourceRecord(ctx context.Context, record *model.SourceRecord) error
	GetSourceRecord(ctx context.Context, id string) (*model.SourceRecord, error)
}

// ActionStore is the durable backing for the offline action queue. Entries
// are append/remove-only apart from replay-state bookkeeping.
type ActionStore interface {
	EnqueueAction(ctx context.Context, entry *model.ActionEntry) error
	ListActions(ctx context.Context) ([]model.ActionEntry, error)
	MarkAction(ctx context.Context, id string, state model.ActionState, attempts int, lastError string) error
	RemoveAction(ctx context.Context, id string) error
	ClearActions(ctx context.Context) error
}

// AuditEntry is one audit-trail record: what changed, on which entities,
// with an old/new diff payload.
type AuditEntry struct {
	Diff       map[string]any
	Action     string
	EntityType string
	EntityIDs  []string
}

// AuditLogger records audit trail entries. Implementations are fire-and-
// forget from the caller's perspective: a logging failure must never roll
// back the mutation it describes.
type AuditLogger interface {
	RecordAudit(ctx context.Context, entry AuditEntry) error
}

// Storage is the full persistence contract implemented by the SQLite store.
type Storage interface {
	PaymentStore
	DirectoryStore
	InboxStore
	ActionStore
	AuditLogger

	Migrate(ctx context.Context) error
	Close() error
}

// Scorer produces confidence-scored match suggestions for a payment. The
// scoring itself is an external network collaborator; its confidence values
// and reason text are treated as opaque.
type Scorer interface {
	Suggest(ctx context.Context, paymentID string) (model.Suggestion, error)
}

// Connectivity reports the online/offline state that drives queue replay.
// Changes delivers edge notifications; an offline-to-online transition
// triggers exactly one drain cycle.
type Connectivity interface {
	Online() bool
	Changes() <-chan bool
}

// RetryOptions configures retry behavior for transient failures.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
