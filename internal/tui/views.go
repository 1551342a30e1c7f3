package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kbyiringiro/saccoflow/internal/cli"
	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/view"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.renderLoading()
	}

	switch m.state {
	case StateHelp:
		return m.renderHelp()
	case StateSuggest:
		return m.renderSuggest()
	case StateAssign:
		return m.renderAssign()
	default:
		return m.renderList()
	}
}

// renderLoading renders the loading screen.
func (m Model) renderLoading() string {
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		cli.TitleStyle.Render("SaccoFlow"),
		"",
		cli.SubtleStyle.Render("Loading payments..."),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderList renders the payment list with the filter and status lines.
func (m Model) renderList() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderFilterLine())
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(cli.SubtleStyle.Render("No payments match the active filters."))
		b.WriteString("\n")
	} else {
		end := m.offset + m.pageSize()
		if end > len(m.rows) {
			end = len(m.rows)
		}
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderRow(m.rows[i], i == m.cursor))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	title := cli.TitleStyle.UnsetMargins().Render("SaccoFlow Reconciliation")

	network := cli.ErrorStyle.Render("● offline")
	if m.online {
		network = cli.SuccessStyle.Render("● online")
	}

	queued := cli.SubtleStyle.Render(fmt.Sprintf("%s %d queued", cli.QueueIcon, m.pendingCount))

	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", network, "  ", queued)
}

func (m Model) renderFilterLine() string {
	var parts []string

	if m.statusIdx >= 0 && m.statusIdx < len(model.AllStatuses) {
		parts = append(parts, "status="+string(model.AllStatuses[m.statusIdx]))
	}
	if term := m.searchInput.Value(); term != "" {
		parts = append(parts, "search="+term)
	}
	if m.state == StateSearch {
		return cli.InfoStyle.Render("/ " + m.searchInput.View())
	}
	if len(parts) == 0 {
		return cli.SubtleStyle.Render("no filters (f status, D duplicates, L low-confidence, / search)")
	}
	return cli.InfoStyle.Render("filters: " + strings.Join(parts, "  "))
}

func (m Model) renderRow(row view.Row, current bool) string {
	marker := "  "
	if row.Selected {
		marker = cli.SuccessStyle.Render("✓ ")
	}

	p := row.Payment
	line := fmt.Sprintf("%s%-11s %10.0f %s  %-22s %-15s %s",
		marker,
		p.Status,
		p.Amount,
		p.Currency,
		truncate(p.Reference, 22),
		truncate(p.MSISDN, 15),
		p.OccurredAt.Format("2006-01-02 15:04"),
	)

	if len(row.Reasons) > 0 {
		tags := make([]string, 0, len(row.Reasons))
		for _, reason := range row.Reasons {
			tags = append(tags, string(reason.ID))
		}
		line += "  " + cli.WarningStyle.Render(strings.Join(tags, ","))
	}

	if current {
		return lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor).Render("> " + line)
	}
	return "  " + line
}

// renderStatusBar renders the bottom status line.
func (m Model) renderStatusBar() string {
	left := fmt.Sprintf("%d payments  %d selected", len(m.rows), m.controller.SelectionCount())

	middle := m.statusLine
	if m.lastError != nil {
		middle = cli.ErrorStyle.Render(m.lastError.Error())
	}

	right := "? help  q quit"
	return cli.SubtleStyle.Render(left) + "  " + middle + "  " + cli.SubtleStyle.Render(right)
}

// renderSuggest renders the suggestion panel for the focused payment.
func (m Model) renderSuggest() string {
	title := cli.TitleStyle.UnsetMargins().Render("Suggested match")

	var lines []string
	switch {
	case !m.suggestLoaded:
		lines = append(lines, cli.SubtleStyle.Render("Scoring payment "+m.suggestFor+"..."))
	case m.suggestion.Primary == nil:
		lines = append(lines, cli.SubtleStyle.Render("No candidate met the scoring threshold."))
	default:
		primary := m.suggestion.Primary
		lines = append(lines,
			fmt.Sprintf("Member %s  ikimina %s", primary.MemberID, primary.GroupID),
			fmt.Sprintf("Confidence %.2f", primary.Confidence),
			cli.SubtleStyle.Render(primary.Reason),
			"",
			cli.SuccessStyle.Render("y accept"),
		)
		for i, alt := range m.suggestion.Alternatives {
			lines = append(lines, cli.SubtleStyle.Render(
				fmt.Sprintf("alt %d: member %s (%.2f)", i+1, alt.MemberID, alt.Confidence)))
		}
	}
	lines = append(lines, "", cli.SubtleStyle.Render("Esc back"))

	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{title, ""}, lines...)...)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, cli.BoxStyle.Render(content))
}

// renderAssign renders the member search panel.
func (m Model) renderAssign() string {
	title := cli.TitleStyle.UnsetMargins().Render(
		fmt.Sprintf("Assign %d payment(s)", len(m.targetIDs())))

	lines := []string{title, "", m.memberInput.View(), ""}
	if len(m.members) == 0 {
		lines = append(lines, cli.SubtleStyle.Render("Type at least two characters to search members."))
	}
	for i, member := range m.members {
		entry := fmt.Sprintf("%-24s %-10s %s", truncate(member.FullName, 24), member.MemberCode, member.GroupName)
		if i == m.memberIdx {
			entry = lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor).Render("> " + entry)
		} else {
			entry = "  " + entry
		}
		lines = append(lines, entry)
	}
	lines = append(lines, "", cli.SubtleStyle.Render("Enter assign  Esc back"))

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, cli.BoxStyle.Render(content))
}

// renderHelp renders the help screen.
func (m Model) renderHelp() string {
	title := cli.TitleStyle.Render("SaccoFlow - Help")

	sections := []struct {
		title string
		items []string
	}{
		{
			"Navigation",
			[]string{
				"↑/k, ↓/j    Move up/down",
				"PgUp/PgDn   Page up/down",
				"g/G         Go to start/end",
			},
		},
		{
			"Selection",
			[]string{
				"x/Space     Toggle selection",
				"Ctrl+A      Select visible",
				"Ctrl+D      Deselect all",
			},
		},
		{
			"Filters",
			[]string{
				"f           Cycle status filter",
				"D           Duplicates only",
				"L           Low confidence only",
				"/           Search",
				"c           Clear filters",
			},
		},
		{
			"Actions",
			[]string{
				"Enter       Suggest a match",
				"a           Assign to member",
				"r           Assign by reference",
				"p/s/X       Mark posted/settled/rejected",
			},
		},
		{
			"Application",
			[]string{
				"Ctrl+R      Refresh",
				"q           Quit",
			},
		},
	}

	var content []string
	for _, section := range sections {
		content = append(content, cli.SubtitleStyle.UnsetMargins().Render(section.title))
		for _, item := range section.items {
			content = append(content, "  "+item)
		}
		content = append(content, "")
	}
	content = append(content, cli.SubtleStyle.Render("Press any key to close help"))

	body := lipgloss.JoinVertical(lipgloss.Left, append([]string{title, ""}, content...)...)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		cli.BoxStyle.Width(56).Render(body))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
