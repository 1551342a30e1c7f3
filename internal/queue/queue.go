// Package queue implements the durable offline action queue. Operator
// mutations issued while disconnected are captured locally and replayed in
// order once connectivity returns.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

// DefaultFailureThreshold is how many replay attempts an action gets before
// it is parked as failed and surfaced for manual review.
const DefaultFailureThreshold = 3

// Applier replays one queued action against the backend.
type Applier interface {
	Apply(ctx context.Context, entry model.ActionEntry) error
}

// Notifier receives queue lifecycle events. The TUI uses these to show
// pending counts and failure prompts; the CLI logs them.
type Notifier interface {
	ActionReplayed(entry model.ActionEntry)
	ActionFailed(entry model.ActionEntry)
}

// Queue is the offline action queue. Enqueue always succeeds locally; Drain
// replays entries strictly oldest-first against the backend.
type Queue struct {
	store            service.ActionStore
	applier          Applier
	notifier         Notifier
	saccoID          string
	failureThreshold int
	draining         sync.Mutex
}

// Config bundles the queue collaborators.
type Config struct {
	Store            service.ActionStore
	Applier          Applier
	Notifier         Notifier
	SaccoID          string
	FailureThreshold int
}

// New creates an offline action queue.
func New(cfg Config) (*Queue, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("action store is required")
	}
	if cfg.Applier == nil {
		return nil, fmt.Errorf("applier is required")
	}

	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}

	return &Queue{
		store:            cfg.Store,
		applier:          cfg.Applier,
		notifier:         cfg.Notifier,
		saccoID:          cfg.SaccoID,
		failureThreshold: threshold,
	}, nil
}

// EnqueueStatusUpdate captures a status change for later replay. The write
// is local-only and cannot fail for connectivity reasons.
func (q *Queue) EnqueueStatusUpdate(ctx context.Context, paymentIDs []string, status model.PaymentStatus) (*model.ActionEntry, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid payment status %q", status)
	}

	label := model.StatusLabel(status)
	entry := &model.ActionEntry{
		ID:         uuid.New().String(),
		SaccoID:    q.saccoID,
		Type:       model.ActionUpdateStatus,
		State:      model.ActionPending,
		PaymentIDs: paymentIDs,
		NewStatus:  status,
		Summary: model.Label{
			Primary:   fmt.Sprintf("Mark %d payment(s) %s", len(paymentIDs), label.Primary),
			Secondary: fmt.Sprintf("Gushyira ubwishyu %d kuri %s", len(paymentIDs), label.Secondary),
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := q.store.EnqueueAction(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to enqueue status update: %w", err)
	}

	slog.Info("Queued status update for replay",
		"action_id", entry.ID,
		"payments", len(paymentIDs),
		"status", status)
	return entry, nil
}

// EnqueueAssign captures a group/member assignment for later replay.
func (q *Queue) EnqueueAssign(ctx context.Context, paymentIDs []string, groupID, memberID string) (*model.ActionEntry, error) {
	if groupID == "" {
		return nil, fmt.Errorf("ikimina ID cannot be empty")
	}

	entry := &model.ActionEntry{
		ID:         uuid.New().String(),
		SaccoID:    q.saccoID,
		Type:       model.ActionAssign,
		State:      model.ActionPending,
		PaymentIDs: paymentIDs,
		GroupID:    groupID,
		MemberID:   memberID,
		Summary: model.Label{
			Primary:   fmt.Sprintf("Assign %d payment(s)", len(paymentIDs)),
			Secondary: fmt.Sprintf("Kugena ubwishyu %d", len(paymentIDs)),
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := q.store.EnqueueAction(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to enqueue assignment: %w", err)
	}

	slog.Info("Queued assignment for replay",
		"action_id", entry.ID,
		"payments", len(paymentIDs),
		"ikimina", groupID)
	return entry, nil
}

// Pending returns all queued entries in replay order.
func (q *Queue) Pending(ctx context.Context) ([]model.ActionEntry, error) {
	return q.store.ListActions(ctx)
}

// Clear discards every queued entry.
func (q *Queue) Clear(ctx context.Context) error {
	return q.store.ClearActions(ctx)
}

// RetryFailed moves parked entries back into the replay rotation. The
// attempt count resets so the entry gets a full set of retries; the last
// error is kept for the operator's context. Returns how many entries were
// reset.
func (q *Queue) RetryFailed(ctx context.Context) (int, error) {
	entries, err := q.store.ListActions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list queued actions: %w", err)
	}

	reset := 0
	for _, entry := range entries {
		if entry.State != model.ActionFailed {
			continue
		}
		if err := q.store.MarkAction(ctx, entry.ID, model.ActionPending, 0, entry.LastError); err != nil {
			return reset, fmt.Errorf("failed to reset action %s: %w", entry.ID, err)
		}
		slog.Info("Returned failed action to the queue",
			"action_id", entry.ID,
			"type", entry.Type)
		reset++
	}
	return reset, nil
}

// Drain replays queued actions oldest-first until the queue holds nothing
// but parked failures, or until the head entry fails without reaching its
// failure threshold. A below-threshold failure ends the cycle so the entry
// keeps its place for the next connectivity event instead of hot-looping.
// Entries enqueued while a drain is running are picked up by the same
// drain. Only one drain runs at a time.
func (q *Queue) Drain(ctx context.Context) error {
	q.draining.Lock()
	defer q.draining.Unlock()

	for {
		entries, err := q.store.ListActions(ctx)
		if err != nil {
			return fmt.Errorf("failed to list queued actions: %w", err)
		}

		entry, ok := nextReplayable(entries)
		if !ok {
			return nil
		}

		retryLater, err := q.replay(ctx, entry)
		if err != nil {
			return err
		}
		if retryLater {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// nextReplayable picks the oldest entry that has not been parked as failed.
func nextReplayable(entries []model.ActionEntry) (model.ActionEntry, bool) {
	for _, entry := range entries {
		if entry.State != model.ActionFailed {
			return entry, true
		}
	}
	return model.ActionEntry{}, false
}

// replay applies one entry. Success removes it; failure increments the
// attempt count and parks the entry once the threshold is reached.
// retryLater is true when the entry failed but stays pending.
func (q *Queue) replay(ctx context.Context, entry model.ActionEntry) (retryLater bool, err error) {
	attempts := entry.Attempts + 1
	if err := q.store.MarkAction(ctx, entry.ID, model.ActionReplaying, attempts, entry.LastError); err != nil {
		return false, fmt.Errorf("failed to mark action %s replaying: %w", entry.ID, err)
	}

	applyErr := q.applier.Apply(ctx, entry)
	if applyErr == nil {
		if err := q.store.RemoveAction(ctx, entry.ID); err != nil {
			return false, fmt.Errorf("failed to remove replayed action %s: %w", entry.ID, err)
		}
		slog.Info("Replayed queued action", "action_id", entry.ID, "type", entry.Type)
		if q.notifier != nil {
			entry.Attempts = attempts
			q.notifier.ActionReplayed(entry)
		}
		return false, nil
	}

	entry.Attempts = attempts
	entry.LastError = applyErr.Error()

	state := model.ActionPending
	if attempts >= q.failureThreshold {
		state = model.ActionFailed
		slog.Warn("Parking queued action after repeated failures",
			"action_id", entry.ID,
			"attempts", attempts,
			"error", applyErr)
		if q.notifier != nil {
			entry.State = state
			q.notifier.ActionFailed(entry)
		}
	} else {
		slog.Warn("Queued action replay failed, will retry",
			"action_id", entry.ID,
			"attempts", attempts,
			"error", applyErr)
	}

	if err := q.store.MarkAction(ctx, entry.ID, state, attempts, entry.LastError); err != nil {
		return false, fmt.Errorf("failed to mark action %s after replay: %w", entry.ID, err)
	}

	return state == model.ActionPending, nil
}

// Run watches connectivity and triggers one drain per offline-to-online
// transition. It blocks until ctx is cancelled.
func (q *Queue) Run(ctx context.Context, connectivity service.Connectivity) error {
	if connectivity.Online() {
		if err := q.Drain(ctx); err != nil {
			slog.Error("Initial queue drain failed", "error", err)
		}
	}

	online := connectivity.Online()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next, ok := <-connectivity.Changes():
			if !ok {
				return nil
			}
			if next && !online {
				if err := q.Drain(ctx); err != nil {
					slog.Error("Queue drain failed", "error", err)
				}
			}
			online = next
		}
	}
}
