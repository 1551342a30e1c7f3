package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS sms_inbox (
					id TEXT PRIMARY KEY,
					raw_text TEXT NOT NULL,
					msisdn TEXT,
					parsed TEXT,
					received_at DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS payments (
					id TEXT PRIMARY KEY,
					sacco_id TEXT NOT NULL,
					ikimina_id TEXT,
					member_id TEXT,
					source_id TEXT,
					status TEXT NOT NULL,
					amount REAL NOT NULL,
					currency TEXT,
					reference TEXT,
					msisdn TEXT,
					txn_id TEXT,
					confidence REAL,
					occurred_at DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (source_id) REFERENCES sms_inbox(id)
				)`,
				`CREATE INDEX idx_payments_status ON payments(status)`,
				`CREATE INDEX idx_payments_occurred ON payments(occurred_at)`,
				`CREATE INDEX idx_payments_sacco ON payments(sacco_id)`,

				`CREATE TABLE IF NOT EXISTS ibimina (
					id TEXT PRIMARY KEY,
					sacco_id TEXT NOT NULL,
					code TEXT NOT NULL,
					name TEXT,
					status TEXT NOT NULL DEFAULT 'ACTIVE'
				)`,
				`CREATE INDEX idx_ibimina_code ON ibimina(code)`,

				`CREATE TABLE IF NOT EXISTS members (
					id TEXT PRIMARY KEY,
					sacco_id TEXT NOT NULL,
					ikimina_id TEXT,
					full_name TEXT NOT NULL,
					member_code TEXT,
					msisdn TEXT,
					FOREIGN KEY (ikimina_id) REFERENCES ibimina(id)
				)`,
				`CREATE INDEX idx_members_msisdn ON members(msisdn)`,
				`CREATE INDEX idx_members_code ON members(member_code)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add offline action queue",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS offline_actions (
					id TEXT PRIMARY KEY,
					sacco_id TEXT NOT NULL,
					action_type TEXT NOT NULL,
					state TEXT NOT NULL DEFAULT 'pending',
					payment_ids TEXT NOT NULL,
					new_status TEXT,
					ikimina_id TEXT,
					member_id TEXT,
					summary_primary TEXT,
					summary_secondary TEXT,
					attempts INTEGER NOT NULL DEFAULT 0,
					last_error TEXT,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_offline_actions_created ON offline_actions(created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add audit log",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS audit_log (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					action TEXT NOT NULL,
					entity_type TEXT NOT NULL,
					entity_ids TEXT NOT NULL,
					diff TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)
			`)
			return err
		},
	},
	{
		Version:     4,
		Description: "Index provider transaction ids for duplicate detection",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_payments_txn ON payments(txn_id) WHERE txn_id != ''`,
				`CREATE INDEX IF NOT EXISTS idx_payments_reference ON payments(reference)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
