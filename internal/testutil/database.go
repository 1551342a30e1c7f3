// Package testutil provides shared test helpers: isolated databases and
// directory fixtures.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
	"github.com/kbyiringiro/saccoflow/internal/storage"
)

// TestDB wraps a migrated throwaway database for a single test.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated SQLite database under the test's temp
// directory. Cleanup is registered automatically.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return &TestDB{Storage: store, t: t}
}

// SeedDirectory saves the given groups and members, failing the test on
// error.
func (db *TestDB) SeedDirectory(groups []model.Group, members []model.Member) {
	db.t.Helper()
	ctx := context.Background()

	if len(groups) > 0 {
		if err := db.Storage.SaveGroups(ctx, groups); err != nil {
			db.t.Fatalf("failed to seed groups: %v", err)
		}
	}
	if len(members) > 0 {
		if err := db.Storage.SaveMembers(ctx, members); err != nil {
			db.t.Fatalf("failed to seed members: %v", err)
		}
	}
}

// SeedPayments saves the given payments, failing the test on error.
func (db *TestDB) SeedPayments(payments []model.Payment) {
	db.t.Helper()

	if err := db.Storage.SavePayments(context.Background(), payments); err != nil {
		db.t.Fatalf("failed to seed payments: %v", err)
	}
}
