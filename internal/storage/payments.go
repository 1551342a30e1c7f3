package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kbyiringiro/saccoflow/internal/common"
	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

const paymentColumns = `
	p.id, p.sacco_id, p.ikimina_id, p.member_id, p.source_id,
	p.status, p.amount, p.currency, p.reference, p.msisdn,
	p.txn_id, p.confidence, p.occurred_at,
	i.id, i.raw_text, i.msisdn, i.parsed, i.received_at`

// SavePayments inserts new payments, silently skipping ids already present.
// Re-ingesting the same SMS batch is expected and must not clobber
// reconciliation work done since.
func (s *SQLiteStorage) SavePayments(ctx context.Context, payments []model.Payment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePayments(payments); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO payments (
			id, sacco_id, ikimina_id, member_id, source_id,
			status, amount, currency, reference, msisdn,
			txn_id, confidence, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range payments {
		_, err = stmt.ExecContext(ctx,
			p.ID,
			p.SaccoID,
			nullString(p.GroupID),
			nullString(p.MemberID),
			nullString(p.SourceID),
			string(p.Status),
			p.Amount,
			p.Currency,
			p.Reference,
			p.MSISDN,
			p.TxnID,
			p.Confidence,
			p.OccurredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// GetPayments retrieves payments matching the filter, newest first.
func (s *SQLiteStorage) GetPayments(ctx context.Context, filter service.PaymentFilter) ([]model.Payment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		LEFT JOIN sms_inbox i ON p.source_id = i.id
		WHERE 1=1
	`
	args := []any{}

	if filter.SaccoID != "" {
		query += " AND p.sacco_id = ?"
		args = append(args, filter.SaccoID)
	}
	if filter.Status != nil {
		query += " AND p.status = ?"
		args = append(args, string(*filter.Status))
	}

	query += " ORDER BY p.occurred_at DESC, p.id"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanPayments(rows)
}

// GetPaymentByID retrieves a single payment by ID.
func (s *SQLiteStorage) GetPaymentByID(ctx context.Context, id string) (*model.Payment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p
		LEFT JOIN sms_inbox i ON p.source_id = i.id
		WHERE p.id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payments, err := scanPayments(rows)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, common.ErrNotFound
	}
	return &payments[0], nil
}

// GetPaymentsByIDs retrieves the payments whose ids appear in ids. Missing
// ids are simply absent from the result; callers compare lengths.
func (s *SQLiteStorage) GetPaymentsByIDs(ctx context.Context, ids []string) ([]model.Payment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateIDs(ids, "ids"); err != nil {
		return nil, err
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p
		LEFT JOIN sms_inbox i ON p.source_id = i.id
		WHERE p.id IN (`+placeholders(len(ids))+`)
		ORDER BY p.occurred_at DESC, p.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanPayments(rows)
}

// UpdatePaymentStatus sets the status of the given payments and returns the
// exact number of rows changed. Rows outside saccoID are never touched.
func (s *SQLiteStorage) UpdatePaymentStatus(ctx context.Context, ids []string, status model.PaymentStatus, saccoID string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateIDs(ids, "ids"); err != nil {
		return 0, err
	}
	if !status.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	if err := validateString(saccoID, "saccoID"); err != nil {
		return 0, err
	}

	args := make([]any, 0, len(ids)+2)
	args = append(args, string(status))
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, saccoID)

	result, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status = ?
		WHERE id IN (`+placeholders(len(ids))+`) AND sacco_id = ?
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update payment status: %w", err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count updated payments: %w", err)
	}
	return updated, nil
}

// AssignPayments routes the given payments to an ikimina and optionally a
// member, returning the exact number of rows changed.
func (s *SQLiteStorage) AssignPayments(ctx context.Context, ids []string, groupID, memberID, saccoID string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateIDs(ids, "ids"); err != nil {
		return 0, err
	}
	if err := validateString(groupID, "groupID"); err != nil {
		return 0, err
	}
	if err := validateString(saccoID, "saccoID"); err != nil {
		return 0, err
	}

	args := make([]any, 0, len(ids)+3)
	args = append(args, groupID, nullString(memberID))
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, saccoID)

	result, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET ikimina_id = ?, member_id = ?
		WHERE id IN (`+placeholders(len(ids))+`) AND sacco_id = ?
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to assign payments: %w", err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count assigned payments: %w", err)
	}
	return updated, nil
}

// TxnIDCounts returns how many payments carry each non-empty transaction id
// within the tenant. Duplicate exception display stays view-scoped; this is
// the cheap tenant-wide lookup.
func (s *SQLiteStorage) TxnIDCounts(ctx context.Context, saccoID string) (map[string]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(saccoID, "saccoID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT txn_id, COUNT(*)
		FROM payments
		WHERE sacco_id = ? AND txn_id != ''
		GROUP BY txn_id
	`, saccoID)
	if err != nil {
		return nil, fmt.Errorf("failed to count transaction ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var txnID string
		var count int
		if err := rows.Scan(&txnID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id count: %w", err)
		}
		counts[txnID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction id counts: %w", err)
	}

	return counts, nil
}

// scanPayments reads joined payment and sms_inbox rows.
func scanPayments(rows *sql.Rows) ([]model.Payment, error) {
	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		var groupID, memberID, sourceID sql.NullString
		var confidence sql.NullFloat64
		var srcID, srcRaw, srcMSISDN, srcParsed sql.NullString
		var srcReceived sql.NullTime

		err := rows.Scan(
			&p.ID,
			&p.SaccoID,
			&groupID,
			&memberID,
			&sourceID,
			&p.Status,
			&p.Amount,
			&p.Currency,
			&p.Reference,
			&p.MSISDN,
			&p.TxnID,
			&confidence,
			&p.OccurredAt,
			&srcID,
			&srcRaw,
			&srcMSISDN,
			&srcParsed,
			&srcReceived,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}

		p.GroupID = groupID.String
		p.MemberID = memberID.String
		p.SourceID = sourceID.String
		if confidence.Valid {
			v := confidence.Float64
			p.Confidence = &v
		}

		if srcID.Valid {
			record := &model.SourceRecord{
				ID:      srcID.String,
				RawText: srcRaw.String,
				MSISDN:  srcMSISDN.String,
			}
			if srcReceived.Valid {
				record.ReceivedAt = srcReceived.Time
			}
			if srcParsed.Valid && srcParsed.String != "" {
				var parsed model.ParsedSMS
				if err := json.Unmarshal([]byte(srcParsed.String), &parsed); err != nil {
					// Log but don't fail; an unreadable parse payload
					// degrades to a parser-failure exception.
					slog.Warn("Failed to parse source payload JSON", "error", err, "source_id", srcID.String)
				} else {
					record.Parsed = &parsed
				}
			}
			p.Source = record
		}

		payments = append(payments, p)
	}

	return payments, rows.Err()
}

// nullString maps empty strings to NULL so partial assignments stay NULL in
// the schema rather than becoming empty-string sentinels.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
