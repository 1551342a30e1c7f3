package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/kbyiringiro/saccoflow/internal/common"
	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/recon"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

// Writer exports reconciliation summaries to Google Sheets.
type Writer struct {
	service    *sheets.Service
	classifier *recon.Classifier
	logger     *slog.Logger
	config     Config
}

// NewWriter creates a Google Sheets summary writer.
func NewWriter(ctx context.Context, config Config, classifier *recon.Classifier, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:     config,
		service:    srv,
		classifier: classifier,
		logger:     logger,
	}, nil
}

// Write exports a summary of the given payments: per-status totals, exception
// counts, and a payment listing.
func (w *Writer) Write(ctx context.Context, payments []model.Payment) error {
	w.logger.Info("starting summary export", "payments", len(payments))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := w.prepareSummary(payments)

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	w.logger.Info("summary export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))
	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Reconciliation",
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)
	return created.SpreadsheetId, nil
}

// clearSheet clears all data from the sheet.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareSummary builds the sheet rows.
func (w *Writer) prepareSummary(payments []model.Payment) [][]any {
	type statusTotal struct {
		count  int
		amount float64
	}

	duplicates := recon.DuplicateTxnIDs(payments)
	byStatus := make(map[model.PaymentStatus]statusTotal)
	exceptionCounts := make(map[model.ReasonID]int)

	for _, p := range payments {
		total := byStatus[p.Status]
		total.count++
		total.amount += p.Amount
		byStatus[p.Status] = total

		for _, reason := range w.classifier.Classify(p, duplicates) {
			exceptionCounts[reason.ID]++
		}
	}

	values := make([][]any, 0, 16+len(model.AllReasons)+len(payments))
	values = append(values,
		[]any{"SACCO Reconciliation Summary", time.Now().Format("Jan 2, 2006 15:04")},
		[]any{},
		[]any{"Status Totals"},
		[]any{"Status", "Count", "Amount"},
	)

	for _, status := range model.AllStatuses {
		total, ok := byStatus[status]
		if !ok {
			continue
		}
		values = append(values, []any{
			string(status),
			total.count,
			total.amount,
		})
	}

	values = append(values,
		[]any{},
		[]any{"Exceptions"},
		[]any{"Reason", "Count"},
	)
	for _, reason := range model.AllReasons {
		if count := exceptionCounts[reason.ID]; count > 0 {
			values = append(values, []any{reason.Label.Primary, count})
		}
	}

	values = append(values,
		[]any{},
		[]any{"Payments"},
		[]any{"Date", "Amount", "Currency", "Status", "Reference", "MSISDN", "Txn ID"},
	)
	for _, p := range payments {
		values = append(values, []any{
			p.OccurredAt.Format("2006-01-02 15:04"),
			p.Amount,
			p.Currency,
			string(p.Status),
			p.Reference,
			p.MSISDN,
			p.TxnID,
		})
	}

	return values
}

// writeData writes the rows to the spreadsheet in one update.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	valueRange := &sheets.ValueRange{Values: values}

	_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, "A1", valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	return nil
}
