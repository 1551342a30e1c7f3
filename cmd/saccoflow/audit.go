package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kbyiringiro/saccoflow/internal/cli"
	"github.com/kbyiringiro/saccoflow/internal/config"
	"github.com/kbyiringiro/saccoflow/internal/storage"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the reconciliation audit trail",
		RunE:  runAudit,
	}

	cmd.Flags().Int("limit", 50, "maximum entries to show")

	return cmd
}

func runAudit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}

	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.ListAudit(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		slog.Info(cli.FormatInfo("Audit trail is empty"))
		return nil
	}

	for _, record := range records {
		line := fmt.Sprintf("%s  %-24s %-8s %s",
			record.CreatedAt.Format("2006-01-02 15:04:05"),
			record.Action,
			record.EntityType,
			strings.Join(record.EntityIDs, ","))
		if record.Diff != nil {
			if diff, marshalErr := json.Marshal(record.Diff); marshalErr == nil {
				line += "  " + cli.SubtleStyle.Render(string(diff))
			}
		}
		fmt.Println(line)
	}
	return nil
}
