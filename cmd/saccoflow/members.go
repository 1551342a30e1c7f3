package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbyiringiro/saccoflow/internal/cli"
	"github.com/kbyiringiro/saccoflow/internal/config"
	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/recon"
)

func membersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage the member directory",
	}

	cmd.AddCommand(membersSearchCmd())
	cmd.AddCommand(membersImportCmd())

	return cmd
}

func membersSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search members by name, code or phone",
		Args:  cobra.ExactArgs(1),
		RunE:  runMembersSearch,
	}

	cmd.Flags().String("group", "", "restrict to one ikimina id")

	return cmd
}

func runMembersSearch(cmd *cobra.Command, args []string) error {
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

	groupID, _ := cmd.Flags().GetString("group")

	resolver := recon.NewResolver(store, tenant)
	members, err := resolver.Search(ctx, model.Payment{GroupID: groupID}, args[0])
	if err != nil {
		return err
	}
	if len(members) == 0 {
		slog.Info(cli.FormatInfo("No members matched"))
		return nil
	}

	for _, member := range members {
		fmt.Printf("%-12s %-24s %-10s %-15s %s\n",
			member.ID, member.FullName, member.MemberCode, member.MSISDN, member.GroupName)
	}
	return nil
}

func membersImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the member directory from CSV exports",
		Long: `Load groups and members from the core banking CSV exports.

The groups file has columns: id,code,name,status.
The members file has columns: id,ikimina_id,full_name,member_code,msisdn.
Existing rows are updated in place.`,
		RunE: runMembersImport,
	}

	cmd.Flags().String("groups", "", "groups CSV file")
	cmd.Flags().String("members", "", "members CSV file")

	return cmd
}

func runMembersImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	tenant, err := saccoID()
	if err != nil {
		return err
	}

	groupsPath, _ := cmd.Flags().GetString("groups")
	membersPath, _ := cmd.Flags().GetString("members")
	if groupsPath == "" && membersPath == "" {
		return fmt.Errorf("nothing to import (pass --groups and/or --members)")
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if groupsPath != "" {
		groups, readErr := readGroupsCSV(config.ExpandPath(groupsPath), tenant)
		if readErr != nil {
			return readErr
		}
		if err := store.SaveGroups(ctx, groups); err != nil {
			return fmt.Errorf("failed to save groups: %w", err)
		}
		slog.Info(cli.FormatSuccess(fmt.Sprintf("Imported %d group(s)", len(groups))))
	}

	if membersPath != "" {
		members, readErr := readMembersCSV(config.ExpandPath(membersPath), tenant)
		if readErr != nil {
			return readErr
		}
		if err := store.SaveMembers(ctx, members); err != nil {
			return fmt.Errorf("failed to save members: %w", err)
		}
		slog.Info(cli.FormatSuccess(fmt.Sprintf("Imported %d member(s)", len(members))))
	}

	return nil
}

func readGroupsCSV(path, tenant string) ([]model.Group, error) {
	records, err := readCSV(path, 4)
	if err != nil {
		return nil, err
	}

	groups := make([]model.Group, 0, len(records))
	for _, record := range records {
		groups = append(groups, model.Group{
			ID:      record[0],
			SaccoID: tenant,
			Code:    record[1],
			Name:    record[2],
			Status:  model.GroupStatus(record[3]),
		})
	}
	return groups, nil
}

func readMembersCSV(path, tenant string) ([]model.Member, error) {
	records, err := readCSV(path, 5)
	if err != nil {
		return nil, err
	}

	members := make([]model.Member, 0, len(records))
	for _, record := range records {
		members = append(members, model.Member{
			ID:         record[0],
			SaccoID:    tenant,
			GroupID:    record[1],
			FullName:   record[2],
			MemberCode: record[3],
			MSISDN:     record[4],
		})
	}
	return members, nil
}

// readCSV reads all rows of a headered CSV file, enforcing a column count.
func readCSV(path string, columns int) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = columns

	// Skip the header row.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}
