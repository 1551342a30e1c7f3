package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbyiringiro/saccoflow/internal/cli"
	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/recon"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

func paymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Inspect and reconcile payments",
	}

	cmd.AddCommand(paymentsListCmd())
	cmd.AddCommand(paymentsStatusCmd())
	cmd.AddCommand(paymentsAssignCmd())
	cmd.AddCommand(paymentsAssignRefCmd())

	return cmd
}

func paymentsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments with exception reasons",
		RunE:  runPaymentsList,
	}

	cmd.Flags().String("status", "", "filter by status (UNALLOCATED, PENDING, POSTED, SETTLED, REJECTED)")
	cmd.Flags().Int("limit", 50, "maximum rows to show")
	cmd.Flags().Int("offset", 0, "rows to skip")

	return cmd
}

func runPaymentsList(cmd *cobra.Command, _ []string) error {
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

	filter := service.PaymentFilter{SaccoID: tenant}
	if raw, _ := cmd.Flags().GetString("status"); raw != "" {
		status, parseErr := model.ParseStatus(raw)
		if parseErr != nil {
			return parseErr
		}
		filter.Status = &status
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	filter.Offset, _ = cmd.Flags().GetInt("offset")

	payments, err := store.GetPayments(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list payments: %w", err)
	}
	if len(payments) == 0 {
		slog.Info(cli.FormatInfo("No payments found"))
		return nil
	}

	classifier := newClassifier()
	duplicates := recon.DuplicateTxnIDs(payments)

	header := fmt.Sprintf("%-12s %-11s %10s %-22s %-15s %-16s %s",
		"ID", "STATUS", "AMOUNT", "REFERENCE", "MSISDN", "OCCURRED", "REASONS")
	fmt.Println(cli.TableHeaderStyle.Render(header))

	for _, p := range payments {
		reasons := classifier.Classify(p, duplicates)
		tags := make([]string, 0, len(reasons))
		for _, reason := range reasons {
			tags = append(tags, string(reason.ID))
		}

		fmt.Printf("%-12s %-11s %10.0f %-22s %-15s %-16s %s\n",
			p.ID,
			p.Status,
			p.Amount,
			p.Reference,
			p.MSISDN,
			p.OccurredAt.Format("2006-01-02 15:04"),
			strings.Join(tags, ","),
		)
	}

	return nil
}

func paymentsStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <new-status> <payment-id>...",
		Short: "Queue a status change for one or more payments",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runPaymentsStatus,
	}
	return cmd
}

func runPaymentsStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	status, err := model.ParseStatus(args[0])
	if err != nil {
		return err
	}

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

	entry, err := q.EnqueueStatusUpdate(ctx, args[1:], status)
	if err != nil {
		return err
	}

	slog.Info(cli.FormatSuccess(entry.Summary.Primary), "secondary", entry.Summary.Secondary)
	return drainIfOnline(ctx, q)
}

func paymentsAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <payment-id>...",
		Short: "Queue an assignment of payments to an ikimina and member",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPaymentsAssign,
	}

	cmd.Flags().String("group", "", "target ikimina id (required)")
	cmd.Flags().String("member", "", "target member id (optional)")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func runPaymentsAssign(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tenant, err := saccoID()
	if err != nil {
		return err
	}

	groupID, _ := cmd.Flags().GetString("group")
	memberID, _ := cmd.Flags().GetString("member")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	q, err := newQueue(store, newEngine(store, tenant), tenant)
	if err != nil {
		return err
	}

	entry, err := q.EnqueueAssign(ctx, args, groupID, memberID)
	if err != nil {
		return err
	}

	slog.Info(cli.FormatSuccess(entry.Summary.Primary), "secondary", entry.Summary.Secondary)
	return drainIfOnline(ctx, q)
}

func paymentsAssignRefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign-ref <payment-id>...",
		Short: "Assign payments to the group named by their shared reference",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPaymentsAssignRef,
	}
}

func runPaymentsAssignRef(cmd *cobra.Command, args []string) error {
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
	assigned, err := engine.AssignByReference(ctx, args)
	if err != nil {
		return err
	}

	slog.Info(cli.FormatSuccess(fmt.Sprintf("Assigned %d payment(s) by reference", assigned)))
	return nil
}
