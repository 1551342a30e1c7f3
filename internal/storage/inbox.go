package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kbyiringiro/saccoflow/internal/common"
	"github.com/kbyiringiro/saccoflow/internal/model"
)

// SaveSourceRecord persists a raw inbound SMS. The parsed payload is stored
// as JSON; NULL means the parser could not read the message.
func (s *SQLiteStorage) SaveSourceRecord(ctx context.Context, record *model.SourceRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if err := validateString(record.ID, "record.ID"); err != nil {
		return err
	}
	if err := validateString(record.RawText, "record.RawText"); err != nil {
		return err
	}

	var parsedJSON any
	if record.Parsed != nil {
		data, err := json.Marshal(record.Parsed)
		if err != nil {
			return fmt.Errorf("failed to marshal parsed payload: %w", err)
		}
		parsedJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sms_inbox (id, raw_text, msisdn, parsed, received_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.ID, record.RawText, record.MSISDN, parsedJSON, record.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to save source record: %w", err)
	}

	return nil
}

// GetSourceRecord retrieves a raw SMS record by ID.
func (s *SQLiteStorage) GetSourceRecord(ctx context.Context, id string) (*model.SourceRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var record model.SourceRecord
	var parsed sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, raw_text, msisdn, parsed, received_at
		FROM sms_inbox
		WHERE id = ?
	`, id).Scan(&record.ID, &record.RawText, &record.MSISDN, &parsed, &record.ReceivedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source record: %w", err)
	}

	if parsed.Valid && parsed.String != "" {
		var payload model.ParsedSMS
		if err := json.Unmarshal([]byte(parsed.String), &payload); err != nil {
			return nil, fmt.Errorf("failed to parse source payload: %w", err)
		}
		record.Parsed = &payload
	}

	return &record, nil
}
