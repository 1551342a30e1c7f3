package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Selection
	ToggleSelect key.Binding
	SelectAll    key.Binding
	DeselectAll  key.Binding

	// Filters
	CycleStatus    key.Binding
	DuplicatesOnly key.Binding
	LowConfidence  key.Binding
	Search         key.Binding
	ClearFilters   key.Binding

	// Actions
	Suggest     key.Binding
	Assign      key.Binding
	AssignByRef key.Binding
	MarkPosted  key.Binding
	MarkSettled key.Binding
	Reject      key.Binding
	Accept      key.Binding

	// Application
	Help        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
	Refresh     key.Binding
	ClearScreen key.Binding
	Back        key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+b"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+f"),
			key.WithHelp("PgDn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("Home/g", "go to start"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("End/G", "go to end"),
		),

		ToggleSelect: key.NewBinding(
			key.WithKeys("x", " "),
			key.WithHelp("x/Space", "toggle selection"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("Ctrl+A", "select visible"),
		),
		DeselectAll: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("Ctrl+D", "deselect all"),
		),

		CycleStatus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "cycle status filter"),
		),
		DuplicatesOnly: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "duplicates only"),
		),
		LowConfidence: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "low confidence only"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		ClearFilters: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear filters"),
		),

		Suggest: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "suggest match"),
		),
		Assign: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "assign to member"),
		),
		AssignByRef: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "assign by reference"),
		),
		MarkPosted: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "mark posted"),
		),
		MarkSettled: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "mark settled"),
		),
		Reject: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "mark rejected"),
		),
		Accept: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "accept suggestion"),
		),

		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "force quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("Ctrl+R", "refresh"),
		),
		ClearScreen: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("Ctrl+L", "clear screen"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Suggest, k.ToggleSelect, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.ToggleSelect, k.SelectAll, k.DeselectAll},
		{k.CycleStatus, k.DuplicatesOnly, k.LowConfidence, k.Search},
		{k.Suggest, k.Assign, k.AssignByRef},
		{k.MarkPosted, k.MarkSettled, k.Reject},
		{k.Help, k.Quit},
	}
}
