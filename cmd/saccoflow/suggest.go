package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kbyiringiro/saccoflow/internal/cli"
)

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <payment-id>",
		Short: "Ask the scoring service for a match suggestion",
		Args:  cobra.ExactArgs(1),
		RunE:  runSuggest,
	}
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	paymentID := args[0]

	cache, err := newSuggestionCache()
	if err != nil {
		return err
	}

	suggestion, err := cache.Suggest(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to score payment %s: %w", paymentID, err)
	}

	if suggestion.Primary == nil {
		slog.Info(cli.FormatInfo("No candidate met the scoring threshold"))
		return nil
	}

	primary := suggestion.Primary
	fmt.Println(cli.RenderBox("Suggested match", fmt.Sprintf(
		"Member:     %s\nIkimina:    %s\nConfidence: %.2f\n%s",
		primary.MemberID, primary.GroupID, primary.Confidence, primary.Reason)))

	for i, alt := range suggestion.Alternatives {
		fmt.Printf("alt %d: member %s in %s (%.2f)\n", i+1, alt.MemberID, alt.GroupID, alt.Confidence)
	}
	return nil
}
