package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kbyiringiro/saccoflow/internal/connectivity"
	"github.com/kbyiringiro/saccoflow/internal/recon"
	"github.com/kbyiringiro/saccoflow/internal/suggest"
	"github.com/kbyiringiro/saccoflow/internal/tui"
)

func reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Open the interactive reconciliation screen",
		Long: `Review payments in a full-screen terminal interface: filter
exceptions, select rows, assign members and queue status changes.
Actions taken while offline replay automatically on reconnect.`,
		RunE: runReview,
	}
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	tenant, err := saccoID()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	engine := newEngine(store, tenant)
	q, err := newQueue(store, engine, tenant)
	if err != nil {
		return err
	}

	opts := []tui.Option{
		tui.WithStorage(store),
		tui.WithEngine(engine),
		tui.WithQueue(q),
		tui.WithResolver(recon.NewResolver(store, tenant)),
		tui.WithClassifier(newClassifier()),
		tui.WithSaccoID(tenant),
	}

	// The suggestion service is optional; the review screen works without
	// it, minus the Enter-to-suggest flow.
	var cache *suggest.Cache
	if suggestURL := viper.GetString("suggest.url"); suggestURL != "" {
		cache, err = newSuggestionCache()
		if err != nil {
			return err
		}
		opts = append(opts, tui.WithSuggestions(cache))

		monitor := connectivity.NewMonitor(suggestURL,
			viper.GetDuration("connectivity.interval"), slog.Default())
		go monitor.Run(ctx)
		opts = append(opts, tui.WithConnectivity(monitor))

		// Replay queued actions on every offline-to-online edge while the
		// review screen is open.
		go func() {
			if runErr := q.Run(ctx, monitor); runErr != nil && ctx.Err() == nil {
				slog.Warn("queue replay loop stopped", "error", runErr)
			}
		}()
	} else {
		// No probe target; drain once at startup so earlier offline work
		// lands before review begins.
		if drainErr := q.Drain(ctx); drainErr != nil {
			slog.Warn("startup drain incomplete", "error", drainErr)
		}
	}

	return tui.Run(ctx, opts...)
}
