package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kbyiringiro/saccoflow/internal/service"
)

// RecordAudit appends one audit-trail row. Callers treat failures as
// non-fatal; the mutation the entry describes has already been applied.
func (s *SQLiteStorage) RecordAudit(ctx context.Context, entry service.AuditEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(entry.Action, "entry.Action"); err != nil {
		return err
	}
	if err := validateString(entry.EntityType, "entry.EntityType"); err != nil {
		return err
	}

	entityIDs, err := json.Marshal(entry.EntityIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal entity ids: %w", err)
	}

	var diffJSON any
	if entry.Diff != nil {
		data, marshalErr := json.Marshal(entry.Diff)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal audit diff: %w", marshalErr)
		}
		diffJSON = string(data)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (action, entity_type, entity_ids, diff)
		VALUES (?, ?, ?, ?)
	`, entry.Action, entry.EntityType, string(entityIDs), diffJSON)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

// AuditRecord is one stored audit-trail row.
type AuditRecord struct {
	CreatedAt  time.Time
	Action     string
	EntityType string
	EntityIDs  []string
	Diff       map[string]any
	ID         int64
}

// ListAudit returns the most recent audit entries, newest first.
func (s *SQLiteStorage) ListAudit(ctx context.Context, limit int) ([]AuditRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, entity_type, entity_ids, diff, created_at
		FROM audit_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []AuditRecord
	for rows.Next() {
		var record AuditRecord
		var entityIDs string
		var diff sql.NullString

		if err := rows.Scan(&record.ID, &record.Action, &record.EntityType,
			&entityIDs, &diff, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if err := json.Unmarshal([]byte(entityIDs), &record.EntityIDs); err != nil {
			slog.Warn("skipping malformed audit entity ids", "id", record.ID, "error", err)
		}
		if diff.Valid {
			if err := json.Unmarshal([]byte(diff.String), &record.Diff); err != nil {
				slog.Warn("skipping malformed audit diff", "id", record.ID, "error", err)
			}
		}

		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit log: %w", err)
	}

	return records, nil
}
