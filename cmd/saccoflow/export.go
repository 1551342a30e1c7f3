package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kbyiringiro/saccoflow/internal/cli"
	"github.com/kbyiringiro/saccoflow/internal/config"
	"github.com/kbyiringiro/saccoflow/internal/service"
	"github.com/kbyiringiro/saccoflow/internal/sheets"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export the reconciliation summary to Google Sheets",
		Long: `Write per-status totals, exception counts and the full payment
listing to the configured Google Sheets spreadsheet.

Authentication uses either a service account (sheets.service_account_path)
or OAuth2 (sheets.client_id / client_secret / refresh_token).`,
		RunE: runExport,
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	tenant, err := saccoID()
	if err != nil {
		return err
	}

	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return fmt.Errorf("sheets configuration invalid: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	payments, err := store.GetPayments(ctx, service.PaymentFilter{SaccoID: tenant})
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	if len(payments) == 0 {
		slog.Info(cli.FormatInfo("Nothing to export"))
		return nil
	}

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, newClassifier(), slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}

	if err := writer.Write(ctx, payments); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	slog.Info(cli.FormatSuccess(fmt.Sprintf("Exported %d payment(s) to %q", len(payments), sheetsConfig.SpreadsheetName)))
	return nil
}
