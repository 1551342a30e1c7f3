package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/recon"
)

func snapshot() []model.Payment {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	source := &model.SourceRecord{ID: "sms-1", Parsed: &model.ParsedSMS{Provider: "MTN"}}
	low := 0.3

	return []model.Payment{
		{
			ID: "pay-a", SaccoID: "sacco-1", Status: model.StatusPosted,
			Reference: "SACCO1.GRP7.M004", MSISDN: "+250788123456", TxnID: "TX-1",
			Amount: 5000, OccurredAt: base, Source: source,
		},
		{
			ID: "pay-b", SaccoID: "sacco-1", Status: model.StatusUnallocated,
			MSISDN: "+250722000111", TxnID: "TX-2",
			Amount: 2000, OccurredAt: base.Add(time.Hour), Source: source,
		},
		{
			ID: "pay-c", SaccoID: "sacco-1", Status: model.StatusPosted,
			Reference: "SACCO1.GRP7.M004", MSISDN: "+250788123456", TxnID: "TX-1",
			Amount: 5000, OccurredAt: base.Add(2 * time.Hour), Source: source,
		},
		{
			ID: "pay-d", SaccoID: "sacco-1", Status: model.StatusPending,
			Reference: "SACCO1.GRP8.M001", MSISDN: "2507****456", TxnID: "TX-3",
			Amount: 1000, OccurredAt: base.Add(3 * time.Hour), Source: source,
			Confidence: &low,
		},
	}
}

func newTestController(onDeselect func(string)) *Controller {
	c := NewController(recon.NewClassifier(0), onDeselect)
	c.SetPayments(snapshot())
	return c
}

func TestRowsSortedNewestFirst(t *testing.T) {
	c := newTestController(nil)

	rows := c.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, "pay-d", rows[0].Payment.ID)
	assert.Equal(t, "pay-a", rows[3].Payment.ID)
}

func TestStatusFilter(t *testing.T) {
	c := newTestController(nil)

	posted := model.StatusPosted
	c.SetStatusFilter(&posted)

	rows := c.Rows()
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, model.StatusPosted, row.Payment.Status)
	}

	c.SetStatusFilter(nil)
	assert.Len(t, c.Rows(), 4)
}

func TestDuplicatesOnly(t *testing.T) {
	c := newTestController(nil)

	c.ToggleDuplicatesOnly()
	rows := c.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "pay-c", rows[0].Payment.ID)
	assert.Equal(t, "pay-a", rows[1].Payment.ID)
}

func TestLowConfidenceOnly(t *testing.T) {
	c := newTestController(nil)

	c.ToggleLowConfidenceOnly()
	rows := c.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "pay-d", rows[0].Payment.ID)
}

func TestReasonFilterComposesWithStatus(t *testing.T) {
	c := newTestController(nil)

	c.ToggleReasonFilter(model.ReasonMissingReference)
	rows := c.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "pay-b", rows[0].Payment.ID)

	unallocated := model.StatusUnallocated
	c.SetStatusFilter(&unallocated)
	assert.Len(t, c.Rows(), 1)

	posted := model.StatusPosted
	c.SetStatusFilter(&posted)
	assert.Empty(t, c.Rows())
}

func TestSearch(t *testing.T) {
	c := newTestController(nil)

	tests := []struct {
		name string
		term string
		want []string
	}{
		{name: "by reference", term: "grp8", want: []string{"pay-d"}},
		{name: "by txn id", term: "TX-2", want: []string{"pay-b"}},
		{name: "by msisdn", term: "788123", want: []string{"pay-c", "pay-a"}},
		{name: "no match", term: "zzz", want: nil},
		{name: "blank shows all", term: "  ", want: []string{"pay-d", "pay-c", "pay-b", "pay-a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.SetSearch(tt.term)
			rows := c.Rows()
			var ids []string
			for _, row := range rows {
				ids = append(ids, row.Payment.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestClearFiltersKeepsSelection(t *testing.T) {
	c := newTestController(nil)
	c.ToggleSelect("pay-a")
	c.ToggleDuplicatesOnly()
	c.SetSearch("grp8")

	c.ClearFilters()

	assert.Len(t, c.Rows(), 4)
	assert.Equal(t, []string{"pay-a"}, c.Selected())
}

func TestSelection(t *testing.T) {
	c := newTestController(nil)

	c.ToggleSelect("pay-a")
	c.ToggleSelect("pay-c")
	assert.Equal(t, 2, c.SelectionCount())
	assert.Equal(t, []string{"pay-a", "pay-c"}, c.Selected())

	c.ToggleSelect("pay-a")
	assert.Equal(t, []string{"pay-c"}, c.Selected())

	// Unknown ids never enter the selection.
	c.ToggleSelect("missing")
	assert.Equal(t, 1, c.SelectionCount())
}

func TestSelectVisibleHonorsFilters(t *testing.T) {
	c := newTestController(nil)

	c.ToggleDuplicatesOnly()
	c.SelectVisible()

	assert.Equal(t, []string{"pay-a", "pay-c"}, c.Selected())
}

func TestSnapshotRefreshPrunesSelection(t *testing.T) {
	var dropped []string
	c := newTestController(func(id string) { dropped = append(dropped, id) })

	c.ToggleSelect("pay-a")
	c.ToggleSelect("pay-b")

	// pay-b vanished from the refreshed snapshot.
	refreshed := snapshot()[:1]
	c.SetPayments(refreshed)

	assert.Equal(t, []string{"pay-a"}, c.Selected())
	assert.Equal(t, []string{"pay-b"}, dropped)
}

func TestClearSelectionFiresHook(t *testing.T) {
	var dropped []string
	c := newTestController(func(id string) { dropped = append(dropped, id) })

	c.ToggleSelect("pay-a")
	c.ToggleSelect("pay-d")
	c.ClearSelection()

	assert.Zero(t, c.SelectionCount())
	assert.ElementsMatch(t, []string{"pay-a", "pay-d"}, dropped)
}

func TestSharedReference(t *testing.T) {
	c := newTestController(nil)

	t.Run("nothing selected", func(t *testing.T) {
		_, ok := c.SharedReference()
		assert.False(t, ok)
	})

	t.Run("same reference across selection", func(t *testing.T) {
		c.ToggleSelect("pay-a")
		c.ToggleSelect("pay-c")
		ref, ok := c.SharedReference()
		require.True(t, ok)
		assert.Equal(t, "SACCO1.GRP7.M004", ref)
	})

	t.Run("differing references", func(t *testing.T) {
		c.ToggleSelect("pay-d")
		_, ok := c.SharedReference()
		assert.False(t, ok)
		c.ToggleSelect("pay-d")
	})

	t.Run("missing reference", func(t *testing.T) {
		c.ToggleSelect("pay-b")
		_, ok := c.SharedReference()
		assert.False(t, ok)
	})
}

func TestReasonsExposedPerPayment(t *testing.T) {
	c := newTestController(nil)

	reasons := c.Reasons("pay-b")
	require.NotEmpty(t, reasons)
	assert.True(t, recon.HasReason(reasons, model.ReasonMissingReference))
	assert.True(t, recon.HasReason(reasons, model.ReasonNeedsMember))
}
