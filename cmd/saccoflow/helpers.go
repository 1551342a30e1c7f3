package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/kbyiringiro/saccoflow/internal/cli"
	"github.com/kbyiringiro/saccoflow/internal/config"
	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/queue"
	"github.com/kbyiringiro/saccoflow/internal/recon"
	"github.com/kbyiringiro/saccoflow/internal/service"
	"github.com/kbyiringiro/saccoflow/internal/storage"
	"github.com/kbyiringiro/saccoflow/internal/suggest"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// saccoID returns the configured tenant id. Every command that touches
// payment data is tenant-scoped.
func saccoID() (string, error) {
	id := viper.GetString("sacco.id")
	if id == "" {
		return "", fmt.Errorf("sacco id not configured (set sacco.id or pass --sacco)")
	}
	return id, nil
}

// newEngine wires the reconciliation engine for the configured tenant.
func newEngine(store service.Storage, tenant string) *recon.Engine {
	return recon.NewEngine(store, store, store, tenant)
}

// newQueue wires the offline action queue with a logging notifier.
func newQueue(store service.Storage, engine *recon.Engine, tenant string) (*queue.Queue, error) {
	return queue.New(queue.Config{
		Store:            store,
		Applier:          engine,
		Notifier:         logNotifier{},
		SaccoID:          tenant,
		FailureThreshold: viper.GetInt("queue.failure_threshold"),
	})
}

// newSuggestionCache builds the suggestion client and its cache from config.
func newSuggestionCache() (*suggest.Cache, error) {
	client, err := suggest.NewClient(viper.GetString("suggest.url"))
	if err != nil {
		return nil, err
	}
	return suggest.NewCache(client), nil
}

// newClassifier builds the exception classifier with the configured
// low-confidence threshold.
func newClassifier() *recon.Classifier {
	return recon.NewClassifier(viper.GetFloat64("recon.confidence_threshold"))
}

// drainIfOnline attempts one replay cycle right after an enqueue. A failed
// drain is not an error; the entry stays queued for the next cycle.
func drainIfOnline(ctx context.Context, q *queue.Queue) error {
	if err := q.Drain(ctx); err != nil {
		slog.Warn(cli.FormatWarning("Action queued; replay deferred"), "error", err)
	}
	return nil
}

// logNotifier reports queue lifecycle events on the CLI.
type logNotifier struct{}

func (logNotifier) ActionReplayed(entry model.ActionEntry) {
	slog.Info(cli.FormatSuccess("Replayed queued action"),
		"action", entry.Type,
		"payments", len(entry.PaymentIDs),
		"summary", entry.Summary.Primary)
}

func (logNotifier) ActionFailed(entry model.ActionEntry) {
	slog.Warn(cli.FormatWarning("Queued action parked after repeated failures"),
		"action", entry.Type,
		"attempts", entry.Attempts,
		"last_error", entry.LastError)
}
