package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kbyiringiro/saccoflow/internal/cli"
)

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and replay the offline action queue",
	}

	cmd.AddCommand(queueListCmd())
	cmd.AddCommand(queueDrainCmd())
	cmd.AddCommand(queueRetryCmd())
	cmd.AddCommand(queueClearCmd())

	return cmd
}

func queueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued actions oldest-first",
		RunE:  runQueueList,
	}
}

func runQueueList(cmd *cobra.Command, _ []string) error {
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

	q, err := newQueue(store, newEngine(store, tenant), tenant)
	if err != nil {
		return err
	}

	entries, err := q.Pending(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		slog.Info(cli.FormatInfo("Queue is empty"))
		return nil
	}

	for _, entry := range entries {
		line := fmt.Sprintf("%-10s %-14s %2d attempt(s)  %s / %s",
			entry.State, entry.Type, entry.Attempts, entry.Summary.Primary, entry.Summary.Secondary)
		if entry.LastError != "" {
			line += "  " + cli.ErrorStyle.Render(entry.LastError)
		}
		fmt.Println(line)
	}
	return nil
}

func queueDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Replay queued actions oldest-first",
		RunE:  runQueueDrain,
	}
}

func runQueueDrain(cmd *cobra.Command, _ []string) error {
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

	q, err := newQueue(store, newEngine(store, tenant), tenant)
	if err != nil {
		return err
	}

	if err := q.Drain(ctx); err != nil {
		return fmt.Errorf("drain stopped: %w", err)
	}

	remaining, err := q.Pending(ctx)
	if err != nil {
		return err
	}
	slog.Info(cli.FormatSuccess("Drain cycle complete"), "remaining", len(remaining))
	return nil
}

func queueRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Return failed actions to the queue and replay",
		RunE:  runQueueRetry,
	}
}

func runQueueRetry(cmd *cobra.Command, _ []string) error {
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

	q, err := newQueue(store, newEngine(store, tenant), tenant)
	if err != nil {
		return err
	}

	reset, err := q.RetryFailed(ctx)
	if err != nil {
		return err
	}
	if reset == 0 {
		slog.Info(cli.FormatInfo("No failed actions to retry"))
		return nil
	}

	if err := q.Drain(ctx); err != nil {
		return fmt.Errorf("drain stopped: %w", err)
	}

	remaining, err := q.Pending(ctx)
	if err != nil {
		return err
	}
	slog.Info(cli.FormatSuccess(fmt.Sprintf("Retried %d failed action(s)", reset)),
		"remaining", len(remaining))
	return nil
}

func queueClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard every queued action",
		RunE:  runQueueClear,
	}
}

func runQueueClear(cmd *cobra.Command, _ []string) error {
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

	q, err := newQueue(store, newEngine(store, tenant), tenant)
	if err != nil {
		return err
	}

	if err := q.Clear(ctx); err != nil {
		return err
	}
	slog.Info(cli.FormatSuccess("Queue cleared"))
	return nil
}
