package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kbyiringiro/saccoflow/internal/cli"
	"github.com/kbyiringiro/saccoflow/internal/config"
	"github.com/kbyiringiro/saccoflow/internal/ingest"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a mobile money SMS export",
		Long: `Parse an exported batch of MoMo SMS notifications into payments.

Two file formats are accepted: a JSON array of
{"received_at": ..., "msisdn": ..., "text": ...} objects,
or plain text with one message per line. Messages that fail to parse
still produce a source record and an UNALLOCATED payment so no money
silently disappears.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("format", "json", "input format (json, text)")

	return cmd
}

// smsExportEntry is one message in a JSON export file.
type smsExportEntry struct {
	ReceivedAt time.Time `json:"received_at"`
	MSISDN     string    `json:"msisdn"`
	Text       string    `json:"text"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tenant, err := saccoID()
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	messages, err := readMessages(config.ExpandPath(args[0]), format)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		slog.Info(cli.FormatInfo("No messages in export"))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := progressbar.Default(int64(len(messages)), "Ingesting SMS")

	ingestor := ingest.NewIngestor(store, store, tenant)
	result, err := ingestor.Ingest(ctx, messages, func(int) {
		_ = bar.Add(1)
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	_ = bar.Finish()

	slog.Info(cli.FormatSuccess("Ingest complete"),
		"received", result.Received,
		"parsed", result.Parsed,
		"parse_failures", result.ParseFailures)
	if result.ParseFailures > 0 {
		slog.Warn(cli.FormatWarning(
			fmt.Sprintf("%d message(s) could not be parsed; review them with: saccoflow payments list", result.ParseFailures)))
	}
	return nil
}

func readMessages(path, format string) ([]ingest.Message, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	switch format {
	case "json":
		var entries []smsExportEntry
		if err := json.NewDecoder(file).Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		messages := make([]ingest.Message, 0, len(entries))
		for _, entry := range entries {
			messages = append(messages, ingest.Message{
				ReceivedAt: entry.ReceivedAt,
				MSISDN:     entry.MSISDN,
				Text:       entry.Text,
			})
		}
		return messages, nil

	case "text":
		var messages []ingest.Message
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			messages = append(messages, ingest.Message{Text: line})
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return messages, nil

	default:
		return nil, fmt.Errorf("invalid ingest format: %s", format)
	}
}
