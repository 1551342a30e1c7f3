package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

// Engine validation and resolution errors.
var (
	ErrNoPayments        = errors.New("no payment ids supplied")
	ErrNoSharedReference = errors.New("selected payments do not share the same reference")
	ErrGroupNotFound     = errors.New("no matching ikimina found for reference")
	ErrGroupAmbiguous    = errors.New("reference matches more than one ikimina")
	ErrMissingGroup      = errors.New("ikimina id is required")
)

// Engine applies payment status and assignment mutations. It is the only
// component allowed to write payment status or assignment; every successful
// mutation is followed by an audit trail entry.
type Engine struct {
	store   service.PaymentStore
	groups  service.DirectoryStore
	audit   service.AuditLogger
	saccoID string
}

// NewEngine creates a status transition engine scoped to a tenant.
func NewEngine(store service.PaymentStore, groups service.DirectoryStore, audit service.AuditLogger, saccoID string) *Engine {
	return &Engine{store: store, groups: groups, audit: audit, saccoID: saccoID}
}

// UpdateStatus sets the status on every payment in ids and returns the
// number of rows actually persisted. A count lower than len(ids) is reported
// as-is; callers must not assume success beyond it.
func (e *Engine) UpdateStatus(ctx context.Context, ids []string, status model.PaymentStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoPayments
	}
	if !status.Valid() {
		return 0, fmt.Errorf("invalid payment status %q (expected one of %v)", status, model.AllStatuses)
	}

	updated, err := e.store.UpdatePaymentStatus(ctx, ids, status, e.saccoID)
	if err != nil {
		return 0, fmt.Errorf("status update failed: %w", err)
	}
	if updated < int64(len(ids)) {
		slog.Warn("Status update touched fewer rows than requested",
			"requested", len(ids),
			"updated", updated,
			"status", status)
	}

	e.recordAudit(ctx, service.AuditEntry{
		Action:     "payments.update_status",
		EntityType: "payment",
		EntityIDs:  ids,
		Diff:       map[string]any{"status": string(status), "updated": updated},
	})
	return updated, nil
}

// Assign links every payment in ids to an ikimina and, optionally, a member.
func (e *Engine) Assign(ctx context.Context, ids []string, groupID, memberID string) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoPayments
	}
	if groupID == "" {
		return 0, ErrMissingGroup
	}

	updated, err := e.store.AssignPayments(ctx, ids, groupID, memberID, e.saccoID)
	if err != nil {
		return 0, fmt.Errorf("assignment failed: %w", err)
	}
	if updated < int64(len(ids)) {
		slog.Warn("Assignment touched fewer rows than requested",
			"requested", len(ids),
			"updated", updated,
			"group_id", groupID)
	}

	diff := map[string]any{"ikimina_id": groupID, "updated": updated}
	if memberID != "" {
		diff["member_id"] = memberID
	}
	e.recordAudit(ctx, service.AuditEntry{
		Action:     "payments.assign",
		EntityType: "payment",
		EntityIDs:  ids,
		Diff:       diff,
	})
	return updated, nil
}

// AssignByReference derives the target ikimina from the reference shared by
// every selected payment and assigns the group without an explicit member.
// Fails before any mutation when the references differ, the shared reference
// is too short, or the group code resolves to zero or multiple groups.
func (e *Engine) AssignByReference(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoPayments
	}

	payments, err := e.store.GetPaymentsByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load selected payments: %w", err)
	}
	if len(payments) != len(ids) {
		return 0, fmt.Errorf("%d of %d selected payments not found", len(ids)-len(payments), len(ids))
	}

	shared := ""
	for _, p := range payments {
		if p.Reference == "" {
			return 0, fmt.Errorf("%w: payment %s has no reference", ErrNoSharedReference, p.ID)
		}
		if shared == "" {
			shared = p.Reference
			continue
		}
		if p.Reference != shared {
			return 0, fmt.Errorf("%w: %q vs %q", ErrNoSharedReference, shared, p.Reference)
		}
	}

	ref, err := model.ParseReference(shared)
	if err != nil {
		return 0, err
	}

	groups, err := e.groups.GetGroupsByCode(ctx, ref.GroupCode(), model.GroupActive, e.saccoID)
	if err != nil {
		return 0, fmt.Errorf("ikimina lookup for code %q failed: %w", ref.GroupCode(), err)
	}
	switch len(groups) {
	case 0:
		return 0, fmt.Errorf("%w: code %q", ErrGroupNotFound, ref.GroupCode())
	case 1:
	default:
		return 0, fmt.Errorf("%w: code %q matches %d groups", ErrGroupAmbiguous, ref.GroupCode(), len(groups))
	}

	return e.Assign(ctx, ids, groups[0].ID, "")
}

// Apply replays a queued offline action through the same validation paths
// online mutations take.
func (e *Engine) Apply(ctx context.Context, entry model.ActionEntry) error {
	switch entry.Type {
	case model.ActionUpdateStatus:
		if len(entry.PaymentIDs) == 0 || entry.NewStatus == "" {
			return fmt.Errorf("invalid payload for status update action %s", entry.ID)
		}
		_, err := e.UpdateStatus(ctx, entry.PaymentIDs, entry.NewStatus)
		return err
	case model.ActionAssign:
		if len(entry.PaymentIDs) == 0 || entry.GroupID == "" {
			return fmt.Errorf("invalid payload for assign action %s", entry.ID)
		}
		_, err := e.Assign(ctx, entry.PaymentIDs, entry.GroupID, entry.MemberID)
		return err
	default:
		return fmt.Errorf("unknown action type %q", entry.Type)
	}
}

// recordAudit runs after a successful mutation. Audit failures are logged,
// never propagated: the mutation already happened.
func (e *Engine) recordAudit(ctx context.Context, entry service.AuditEntry) {
	if e.audit == nil {
		return
	}
	if err := e.audit.RecordAudit(ctx, entry); err != nil {
		slog.Error("Failed to record audit entry",
			"action", entry.Action,
			"entities", len(entry.EntityIDs),
			"error", err)
	}
}
