// Package tui implements the interactive reconciliation review screen.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/recon"
	"github.com/kbyiringiro/saccoflow/internal/view"
)

// State represents the current state of the TUI.
type State int

const (
	StateList State = iota
	StateSearch
	StateAssign
	StateSuggest
	StateHelp
)

// Model holds the main TUI state.
type Model struct {
	config     Config
	keymap     KeyMap
	controller *view.Controller

	rows   []view.Row
	cursor int
	offset int

	searchInput textinput.Model
	memberInput textinput.Model
	members     []model.Member
	memberIdx   int
	assignFor   model.Payment

	suggestion    model.Suggestion
	suggestFor    string
	suggestLoaded bool
	suggestCancel context.CancelFunc

	pendingCount int
	online       bool
	statusIdx    int // -1 means no status filter
	statusLine   string
	lastError    error

	width    int
	height   int
	state    State
	ready    bool
	quitting bool
}

// newModel creates a new model with the given configuration.
func newModel(cfg Config) Model {
	search := textinput.New()
	search.Placeholder = "reference, msisdn or txn id"
	search.CharLimit = 64

	member := textinput.New()
	member.Placeholder = "member name, code or msisdn"
	member.CharLimit = 64

	// Candidate lookups always go through the resolver so search terms,
	// group scoping and the result cap stay consistent with automatic
	// matching.
	if cfg.Resolver == nil && cfg.Storage != nil {
		cfg.Resolver = recon.NewResolver(cfg.Storage, cfg.SaccoID)
	}

	m := Model{
		config:      cfg,
		keymap:      DefaultKeyMap(),
		statusIdx:   -1,
		searchInput: search,
		memberInput: member,
		width:       cfg.Width,
		height:      cfg.Height,
		state:       StateList,
	}
	m.controller = view.NewController(cfg.Classifier, func(paymentID string) {
		if cfg.Suggestions != nil {
			cfg.Suggestions.Invalidate(paymentID)
		}
	})
	if cfg.Connectivity != nil {
		m.online = cfg.Connectivity.Online()
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		m.loadPayments(),
		m.loadQueueCount(),
	}
	cmds = append(cmds, m.tick())
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case paymentsLoadedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.controller.SetPayments(msg.payments)
		m.refreshRows()
		m.ready = true
		return m, nil

	case queueCountMsg:
		if msg.err == nil {
			m.pendingCount = msg.count
		}
		return m, nil

	case tickMsg:
		if m.config.Connectivity != nil {
			m.online = m.config.Connectivity.Online()
		}
		return m, tea.Batch(m.tick(), m.loadQueueCount())

	case suggestionMsg:
		// A result for a payment the operator already navigated away from
		// is dropped, not displayed.
		if msg.paymentID != m.suggestFor || m.state != StateSuggest {
			return m, nil
		}
		m.cancelSuggest()
		if msg.err != nil {
			m.lastError = msg.err
			m.state = StateList
			m.suggestFor = ""
			return m, nil
		}
		m.suggestion = msg.suggestion
		m.suggestLoaded = true
		return m, nil

	case membersFoundMsg:
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.members = msg.members
		m.memberIdx = 0
		return m, nil

	case actionQueuedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		// An assignment changes the payment's match state, so any cached
		// suggestion for it is stale.
		if msg.entry.Type == model.ActionAssign && m.config.Suggestions != nil {
			for _, paymentID := range msg.entry.PaymentIDs {
				m.config.Suggestions.Invalidate(paymentID)
			}
		}
		m.statusLine = msg.entry.Summary.Primary + " / " + msg.entry.Summary.Secondary
		m.controller.ClearSelection()
		m.state = StateList
		return m, tea.Batch(m.loadPayments(), m.loadQueueCount())

	case errorMsg:
		m.lastError = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey dispatches a key press to the active state.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if msg.String() == "ctrl+l" {
		return m, tea.ClearScreen
	}

	switch m.state {
	case StateSearch:
		return m.handleSearchKey(msg)
	case StateAssign:
		return m.handleAssignKey(msg)
	case StateSuggest:
		return m.handleSuggestKey(msg)
	case StateHelp:
		m.state = StateList
		return m, nil
	default:
		return m.handleListKey(msg)
	}
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keymap
	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, k.Help):
		m.state = StateHelp
		return m, nil

	case key.Matches(msg, k.Up):
		m.moveCursor(-1)
	case key.Matches(msg, k.Down):
		m.moveCursor(1)
	case key.Matches(msg, k.PageUp):
		m.moveCursor(-m.pageSize())
	case key.Matches(msg, k.PageDown):
		m.moveCursor(m.pageSize())
	case key.Matches(msg, k.Home):
		m.cursor = 0
		m.offset = 0
	case key.Matches(msg, k.End):
		m.moveCursor(len(m.rows))

	case key.Matches(msg, k.ToggleSelect):
		if row, ok := m.currentRow(); ok {
			m.controller.ToggleSelect(row.Payment.ID)
			m.refreshRows()
		}
	case key.Matches(msg, k.SelectAll):
		m.controller.SelectVisible()
		m.refreshRows()
	case key.Matches(msg, k.DeselectAll):
		m.controller.ClearSelection()
		m.refreshRows()

	case key.Matches(msg, k.CycleStatus):
		m.cycleStatusFilter()
	case key.Matches(msg, k.DuplicatesOnly):
		m.controller.ToggleDuplicatesOnly()
		m.refreshRows()
	case key.Matches(msg, k.LowConfidence):
		m.controller.ToggleLowConfidenceOnly()
		m.refreshRows()
	case key.Matches(msg, k.ClearFilters):
		m.statusIdx = -1
		m.searchInput.SetValue("")
		m.controller.ClearFilters()
		m.refreshRows()
	case key.Matches(msg, k.Search):
		m.state = StateSearch
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, k.Suggest):
		if row, ok := m.currentRow(); ok {
			m.cancelSuggest()
			ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
			m.suggestCancel = cancel
			m.state = StateSuggest
			m.suggestLoaded = false
			m.suggestFor = row.Payment.ID
			return m, m.fetchSuggestion(ctx, row.Payment.ID)
		}

	case key.Matches(msg, k.Assign):
		if len(m.targetIDs()) > 0 {
			m.state = StateAssign
			m.members = nil
			m.assignFor = model.Payment{}
			if row, ok := m.currentRow(); ok {
				m.assignFor = row.Payment
			}
			m.memberInput.SetValue("")
			m.memberInput.Focus()
			cmds := []tea.Cmd{textinput.Blink}
			// Prefill the search with the derived term so the operator sees
			// candidates immediately.
			if m.config.Resolver != nil {
				if term := m.config.Resolver.SearchTerm(m.assignFor); term != "" {
					m.memberInput.SetValue(term)
					m.memberInput.CursorEnd()
					cmds = append(cmds, m.searchMembers(term))
				}
			}
			return m, tea.Batch(cmds...)
		}

	case key.Matches(msg, k.AssignByRef):
		if ids := m.targetIDs(); len(ids) > 0 {
			return m, m.assignByReference(ids)
		}

	case key.Matches(msg, k.MarkPosted):
		return m, m.enqueueStatus(model.StatusPosted)
	case key.Matches(msg, k.MarkSettled):
		return m, m.enqueueStatus(model.StatusSettled)
	case key.Matches(msg, k.Reject):
		return m, m.enqueueStatus(model.StatusRejected)

	case key.Matches(msg, k.Refresh):
		return m, tea.Batch(m.loadPayments(), m.loadQueueCount())
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = StateList
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.state = StateList
		m.searchInput.Blur()
		m.controller.SetSearch(m.searchInput.Value())
		m.refreshRows()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.controller.SetSearch(m.searchInput.Value())
	m.refreshRows()
	return m, cmd
}

func (m Model) handleAssignKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = StateList
		m.memberInput.Blur()
		return m, nil
	case "up", "ctrl+k":
		if m.memberIdx > 0 {
			m.memberIdx--
		}
		return m, nil
	case "down", "ctrl+j":
		if m.memberIdx < len(m.members)-1 {
			m.memberIdx++
		}
		return m, nil
	case "enter":
		if len(m.members) > 0 {
			member := m.members[m.memberIdx]
			m.memberInput.Blur()
			return m, m.enqueueAssign(m.targetIDs(), member.GroupID, member.ID)
		}
		return m, m.searchMembers(m.memberInput.Value())
	}

	var cmd tea.Cmd
	m.memberInput, cmd = m.memberInput.Update(msg)
	if term := m.memberInput.Value(); len(term) >= 2 {
		return m, tea.Batch(cmd, m.searchMembers(term))
	}
	m.members = nil
	return m, cmd
}

func (m Model) handleSuggestKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		// Closing the panel aborts any fetch still in flight.
		m.cancelSuggest()
		m.state = StateList
		m.suggestFor = ""
		m.suggestLoaded = false
		return m, nil
	case key.Matches(msg, m.keymap.Accept):
		if m.suggestLoaded && m.suggestion.Primary != nil {
			primary := m.suggestion.Primary
			return m, m.enqueueAssign([]string{m.suggestFor}, primary.GroupID, primary.MemberID)
		}
	}
	return m, nil
}

// cancelSuggest aborts the outstanding suggestion fetch, if any.
func (m *Model) cancelSuggest() {
	if m.suggestCancel != nil {
		m.suggestCancel()
		m.suggestCancel = nil
	}
}

// targetIDs returns the payment ids an action applies to: the selection
// when non-empty, otherwise the row under the cursor.
func (m Model) targetIDs() []string {
	if selected := m.controller.Selected(); len(selected) > 0 {
		return selected
	}
	if row, ok := m.currentRow(); ok {
		return []string{row.Payment.ID}
	}
	return nil
}

func (m *Model) refreshRows() {
	m.rows = m.controller.Rows()
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampOffset()
}

func (m Model) currentRow() (view.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return view.Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor > len(m.rows)-1 {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampOffset()
}

func (m *Model) clampOffset() {
	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// pageSize is the number of list rows that fit on screen.
func (m Model) pageSize() int {
	size := m.height - 7 // header, filter line, status bar, borders
	if size < 1 {
		size = 1
	}
	return size
}

// cycleStatusFilter advances the status filter through all statuses and
// back to unfiltered.
func (m *Model) cycleStatusFilter() {
	m.statusIdx++
	if m.statusIdx >= len(model.AllStatuses) {
		m.statusIdx = -1
		m.controller.SetStatusFilter(nil)
	} else {
		status := model.AllStatuses[m.statusIdx]
		m.controller.SetStatusFilter(&status)
	}
	m.refreshRows()
}
