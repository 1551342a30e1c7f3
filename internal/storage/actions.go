package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kbyiringiro/saccoflow/internal/common"
	"github.com/kbyiringiro/saccoflow/internal/model"
)

// EnqueueAction appends an operator action to the durable offline queue.
func (s *SQLiteStorage) EnqueueAction(ctx context.Context, entry *model.ActionEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateActionEntry(entry); err != nil {
		return err
	}

	paymentIDs, err := json.Marshal(entry.PaymentIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal payment ids: %w", err)
	}

	state := entry.State
	if state == "" {
		state = model.ActionPending
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO offline_actions (
			id, sacco_id, action_type, state, payment_ids,
			new_status, ikimina_id, member_id,
			summary_primary, summary_secondary,
			attempts, last_error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.SaccoID,
		string(entry.Type),
		string(state),
		string(paymentIDs),
		string(entry.NewStatus),
		entry.GroupID,
		entry.MemberID,
		entry.Summary.Primary,
		entry.Summary.Secondary,
		entry.Attempts,
		entry.LastError,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue action: %w", err)
	}

	return nil
}

// ListActions returns all queued actions in enqueue (FIFO) order.
func (s *SQLiteStorage) ListActions(ctx context.Context) ([]model.ActionEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sacco_id, action_type, state, payment_ids,
		       new_status, ikimina_id, member_id,
		       summary_primary, summary_secondary,
		       attempts, last_error, created_at
		FROM offline_actions
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.ActionEntry
	for rows.Next() {
		var entry model.ActionEntry
		var paymentIDs string
		var lastError sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.SaccoID,
			&entry.Type,
			&entry.State,
			&paymentIDs,
			&entry.NewStatus,
			&entry.GroupID,
			&entry.MemberID,
			&entry.Summary.Primary,
			&entry.Summary.Secondary,
			&entry.Attempts,
			&lastError,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}

		if err := json.Unmarshal([]byte(paymentIDs), &entry.PaymentIDs); err != nil {
			return nil, fmt.Errorf("failed to parse payment ids for action %s: %w", entry.ID, err)
		}
		entry.LastError = lastError.String

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// MarkAction records the replay state of a queued action. Only bookkeeping
// fields change; the action payload is immutable.
func (s *SQLiteStorage) MarkAction(ctx context.Context, id string, state model.ActionState, attempts int, lastError string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE offline_actions
		SET state = ?, attempts = ?, last_error = ?
		WHERE id = ?
	`, string(state), attempts, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to mark action: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check marked action: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// RemoveAction deletes a queued action, normally after successful replay.
func (s *SQLiteStorage) RemoveAction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM offline_actions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove action: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check removed action: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// ClearActions empties the offline queue.
func (s *SQLiteStorage) ClearActions(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM offline_actions`); err != nil {
		return fmt.Errorf("failed to clear actions: %w", err)
	}
	return nil
}
