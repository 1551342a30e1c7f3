package tui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the review TUI and blocks until the operator quits.
func Run(ctx context.Context, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Storage == nil {
		return fmt.Errorf("storage is required")
	}
	if cfg.Queue == nil {
		return fmt.Errorf("queue is required")
	}
	if cfg.Classifier == nil {
		return fmt.Errorf("classifier is required")
	}
	if cfg.SaccoID == "" {
		return fmt.Errorf("sacco id is required")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	program := tea.NewProgram(newModel(cfg), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("review screen failed: %w", err)
	}
	return nil
}
