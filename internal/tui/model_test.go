package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/recon"
	"github.com/kbyiringiro/saccoflow/internal/service"
	"github.com/kbyiringiro/saccoflow/internal/suggest"
)

func testModel(t *testing.T) Model {
	t.Helper()
	return newModel(Config{
		Classifier: recon.NewClassifier(0),
		SaccoID:    "sacco-1",
		Width:      120,
		Height:     40,
	})
}

func testPayments() []model.Payment {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	source := &model.SourceRecord{ID: "sms-1", Parsed: &model.ParsedSMS{}}
	return []model.Payment{
		{
			ID: "pay-a", SaccoID: "sacco-1", Status: model.StatusUnallocated, Amount: 5000,
			Currency: "RWF", Reference: "SACCO1.GRP7.M004", MSISDN: "+250788123456",
			TxnID: "TX-1", OccurredAt: base.Add(2 * time.Hour), Source: source,
		},
		{
			ID: "pay-b", SaccoID: "sacco-1", Status: model.StatusPosted, Amount: 3000,
			Currency: "RWF", Reference: "SACCO1.GRP2.M010", MSISDN: "+250722000111",
			TxnID: "TX-2", OccurredAt: base.Add(time.Hour), Source: source,
		},
		{
			ID: "pay-c", SaccoID: "sacco-1", Status: model.StatusPosted, Amount: 1000,
			Currency: "RWF", MSISDN: "+250733999888",
			TxnID: "TX-3", OccurredAt: base, Source: source,
		},
	}
}

func loaded(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(paymentsLoadedMsg{payments: testPayments()})
	next, ok := updated.(Model)
	require.True(t, ok)
	require.True(t, next.ready)
	return next
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.Msg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, _ := m.Update(msg)
		next, ok := updated.(Model)
		require.True(t, ok)
		m = next
	}
	return m
}

func TestModelLoadsPayments(t *testing.T) {
	m := loaded(t, testModel(t))

	require.Len(t, m.rows, 3)
	// Newest first.
	assert.Equal(t, "pay-a", m.rows[0].Payment.ID)
	assert.Equal(t, "pay-c", m.rows[2].Payment.ID)
}

func TestModelCursorNavigation(t *testing.T) {
	m := loaded(t, testModel(t))

	m = press(t, m, "j", "j")
	assert.Equal(t, 2, m.cursor)

	// Clamped at the end.
	m = press(t, m, "j")
	assert.Equal(t, 2, m.cursor)

	m = press(t, m, "g")
	assert.Equal(t, 0, m.cursor)

	m = press(t, m, "G")
	assert.Equal(t, 2, m.cursor)
}

func TestModelSelectionKeys(t *testing.T) {
	m := loaded(t, testModel(t))

	m = press(t, m, "x")
	assert.Equal(t, 1, m.controller.SelectionCount())
	assert.True(t, m.rows[0].Selected)

	m = press(t, m, "x")
	assert.Equal(t, 0, m.controller.SelectionCount())
}

func TestModelStatusFilterCycle(t *testing.T) {
	m := loaded(t, testModel(t))

	// First press filters to UNALLOCATED.
	m = press(t, m, "f")
	require.Len(t, m.rows, 1)
	assert.Equal(t, "pay-a", m.rows[0].Payment.ID)

	// Cycling through every status returns to unfiltered.
	for range model.AllStatuses {
		m = press(t, m, "f")
	}
	assert.Len(t, m.rows, 3)
}

func TestModelSearchState(t *testing.T) {
	m := loaded(t, testModel(t))

	m = press(t, m, "/")
	assert.Equal(t, StateSearch, m.state)

	m = press(t, m, "G", "R", "P", "7", "enter")
	assert.Equal(t, StateList, m.state)
	require.Len(t, m.rows, 1)
	assert.Equal(t, "pay-a", m.rows[0].Payment.ID)

	m = press(t, m, "c")
	assert.Len(t, m.rows, 3)
}

func TestModelHelpToggle(t *testing.T) {
	m := loaded(t, testModel(t))

	m = press(t, m, "?")
	assert.Equal(t, StateHelp, m.state)
	assert.Contains(t, m.View(), "Help")

	m = press(t, m, "?")
	assert.Equal(t, StateList, m.state)
}

func TestModelSuggestionFlow(t *testing.T) {
	m := loaded(t, testModel(t))

	m = press(t, m, "enter")
	require.Equal(t, StateSuggest, m.state)
	require.Equal(t, "pay-a", m.suggestFor)

	updated, _ := m.Update(suggestionMsg{
		paymentID: "pay-a",
		suggestion: model.Suggestion{
			Primary: &model.Candidate{MemberID: "mem-1", GroupID: "grp-1", Confidence: 0.91},
		},
	})
	next, ok := updated.(Model)
	require.True(t, ok)

	assert.True(t, next.suggestLoaded)
	out := next.View()
	assert.Contains(t, out, "mem-1")
	assert.Contains(t, out, "0.91")
}

func TestModelQueueFeedback(t *testing.T) {
	m := loaded(t, testModel(t))
	m = press(t, m, "x")

	updated, _ := m.Update(actionQueuedMsg{entry: &model.ActionEntry{
		Summary: model.Label{Primary: "Mark 1 payment(s) settled", Secondary: "Gushyira ubwishyu 1 kuri byarangije"},
	}})
	next, ok := updated.(Model)
	require.True(t, ok)

	assert.Equal(t, 0, next.controller.SelectionCount())
	assert.Contains(t, next.statusLine, "settled")
	assert.Contains(t, next.statusLine, "byarangije")
}

func TestModelViewRendersRows(t *testing.T) {
	m := loaded(t, testModel(t))

	out := m.View()
	assert.Contains(t, out, "SACCO1.GRP7.M004")
	assert.Contains(t, out, "UNALLOCATED")
	// pay-c carries the missing-reference tag.
	assert.Contains(t, out, string(model.MissingReference.ID))
	assert.False(t, strings.Contains(out, "Loading"))
}

func TestModelConnectivityRefresh(t *testing.T) {
	conn := &fakeConnectivity{}
	m := newModel(Config{
		Classifier:   recon.NewClassifier(0),
		SaccoID:      "sacco-1",
		Connectivity: conn,
	})
	assert.False(t, m.online)

	conn.online = true
	updated, _ := m.Update(tickMsg(time.Now()))
	next, ok := updated.(Model)
	require.True(t, ok)
	assert.True(t, next.online)
}

func TestModelAssignUsesResolver(t *testing.T) {
	directory := &fakeDirectory{members: []model.Member{{ID: "mem-1", FullName: "Mukamana Chantal"}}}
	m := newModel(Config{
		Classifier: recon.NewClassifier(0),
		Resolver:   recon.NewResolver(directory, "sacco-1"),
		SaccoID:    "sacco-1",
	})
	m = loaded(t, m)

	m = press(t, m, "a")
	require.Equal(t, StateAssign, m.state)
	assert.Equal(t, "pay-a", m.assignFor.ID)
	// The derived term prefills the search box: the sender MSISDN wins over
	// the reference member code.
	assert.Equal(t, "+250788123456", m.memberInput.Value())

	msg := m.searchMembers(m.memberInput.Value())()
	found, ok := msg.(membersFoundMsg)
	require.True(t, ok)
	require.NoError(t, found.err)
	assert.Len(t, found.members, 1)

	require.NotNil(t, directory.lastQuery)
	assert.Equal(t, "sacco-1", directory.lastQuery.SaccoID)
	assert.Equal(t, 8, directory.lastQuery.Limit)
}

func TestModelSuggestEscAbortsFetch(t *testing.T) {
	m := loaded(t, testModel(t))

	m = press(t, m, "enter")
	require.Equal(t, StateSuggest, m.state)
	require.NotNil(t, m.suggestCancel)

	aborted := false
	cancel := m.suggestCancel
	m.suggestCancel = func() { aborted = true; cancel() }

	m = press(t, m, "esc")
	assert.Equal(t, StateList, m.state)
	assert.True(t, aborted)
	assert.Nil(t, m.suggestCancel)
	assert.Empty(t, m.suggestFor)

	// A result landing after the panel closed is dropped.
	updated, _ := m.Update(suggestionMsg{
		paymentID:  "pay-a",
		suggestion: model.Suggestion{Primary: &model.Candidate{MemberID: "mem-1"}},
	})
	next, ok := updated.(Model)
	require.True(t, ok)
	assert.False(t, next.suggestLoaded)
}

func TestModelAssignInvalidatesSuggestion(t *testing.T) {
	cache := suggest.NewCache(&fakeScorer{
		suggestion: model.Suggestion{Primary: &model.Candidate{MemberID: "mem-1", GroupID: "grp-1"}},
	})
	_, err := cache.Suggest(context.Background(), "pay-a")
	require.NoError(t, err)
	_, cached := cache.Lookup("pay-a")
	require.True(t, cached)

	m := newModel(Config{
		Classifier:  recon.NewClassifier(0),
		Suggestions: cache,
		SaccoID:     "sacco-1",
	})
	m = loaded(t, m)

	updated, _ := m.Update(actionQueuedMsg{entry: &model.ActionEntry{
		Type:       model.ActionAssign,
		PaymentIDs: []string{"pay-a"},
		Summary:    model.Label{Primary: "Assign 1 payment(s)", Secondary: "Kugena ubwishyu 1"},
	}})
	next, ok := updated.(Model)
	require.True(t, ok)
	assert.Equal(t, StateList, next.state)

	_, cached = cache.Lookup("pay-a")
	assert.False(t, cached)
}

type fakeConnectivity struct {
	online  bool
	changes chan bool
}

func (f *fakeConnectivity) Online() bool         { return f.online }
func (f *fakeConnectivity) Changes() <-chan bool { return f.changes }

type fakeDirectory struct {
	lastQuery *service.MemberSearch
	members   []model.Member
}

func (f *fakeDirectory) SearchMembers(_ context.Context, search service.MemberSearch) ([]model.Member, error) {
	f.lastQuery = &search
	return f.members, nil
}

func (f *fakeDirectory) GetGroupsByCode(context.Context, string, model.GroupStatus, string) ([]model.Group, error) {
	return nil, nil
}

func (f *fakeDirectory) SaveGroups(context.Context, []model.Group) error   { return nil }
func (f *fakeDirectory) SaveMembers(context.Context, []model.Member) error { return nil }

type fakeScorer struct {
	suggestion model.Suggestion
}

func (f *fakeScorer) Suggest(context.Context, string) (model.Suggestion, error) {
	return f.suggestion, nil
}
