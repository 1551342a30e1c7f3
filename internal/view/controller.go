// Package view holds the reconciliation table state machine. It is pure
// bookkeeping over a payment snapshot; all I/O lives with the callers.
package view

import (
	"sort"
	"strings"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/recon"
)

// Row is one table line: the payment plus its classified exceptions and
// selection state.
type Row struct {
	Payment  model.Payment
	Reasons  []model.Reason
	Selected bool
}

// Controller tracks the reconciliation table: the current payment snapshot,
// active filters, search, and multi-selection. Filters compose with AND
// semantics. Duplicate detection is scoped to the snapshot, not the whole
// database.
type Controller struct {
	classifier *recon.Classifier

	payments   []model.Payment
	duplicates map[string]bool
	reasons    map[string][]model.Reason

	statusFilter    *model.PaymentStatus
	reasonFilters   map[model.ReasonID]bool
	search          string
	duplicatesOnly  bool
	lowConfOnly     bool
	selection       map[string]bool
	onDeselect      func(paymentID string)
}

// NewController creates a table controller. onDeselect, if non-nil, fires
// whenever a payment leaves the selection for any reason, including snapshot
// refreshes that drop it; callers hook suggestion-cache invalidation here.
func NewController(classifier *recon.Classifier, onDeselect func(paymentID string)) *Controller {
	return &Controller{
		classifier:    classifier,
		duplicates:    make(map[string]bool),
		reasons:       make(map[string][]model.Reason),
		reasonFilters: make(map[model.ReasonID]bool),
		selection:     make(map[string]bool),
		onDeselect:    onDeselect,
	}
}

// SetPayments replaces the table snapshot. Exceptions are reclassified
// against the new snapshot and selections of vanished payments are pruned.
func (c *Controller) SetPayments(payments []model.Payment) {
	c.payments = payments
	c.duplicates = recon.DuplicateTxnIDs(payments)

	c.reasons = make(map[string][]model.Reason, len(payments))
	present := make(map[string]bool, len(payments))
	for _, p := range payments {
		c.reasons[p.ID] = c.classifier.Classify(p, c.duplicates)
		present[p.ID] = true
	}

	for id := range c.selection {
		if !present[id] {
			c.deselect(id)
		}
	}
}

// SetStatusFilter keeps only payments in the given status; nil clears it.
func (c *Controller) SetStatusFilter(status *model.PaymentStatus) {
	c.statusFilter = status
}

// ToggleDuplicatesOnly flips the duplicates-only filter.
func (c *Controller) ToggleDuplicatesOnly() {
	c.duplicatesOnly = !c.duplicatesOnly
}

// ToggleLowConfidenceOnly flips the low-confidence-only filter.
func (c *Controller) ToggleLowConfidenceOnly() {
	c.lowConfOnly = !c.lowConfOnly
}

// ToggleReasonFilter flips filtering on a single exception reason.
func (c *Controller) ToggleReasonFilter(id model.ReasonID) {
	if c.reasonFilters[id] {
		delete(c.reasonFilters, id)
		return
	}
	c.reasonFilters[id] = true
}

// SetSearch sets the substring search over reference, MSISDN and txn id.
func (c *Controller) SetSearch(term string) {
	c.search = strings.ToLower(strings.TrimSpace(term))
}

// ClearFilters resets every filter and the search term, leaving the
// selection intact.
func (c *Controller) ClearFilters() {
	c.statusFilter = nil
	c.duplicatesOnly = false
	c.lowConfOnly = false
	c.reasonFilters = make(map[model.ReasonID]bool)
	c.search = ""
}

// Rows returns the visible table rows, newest first.
func (c *Controller) Rows() []Row {
	rows := make([]Row, 0, len(c.payments))
	for _, p := range c.payments {
		if !c.visible(p) {
			continue
		}
		rows = append(rows, Row{
			Payment:  p,
			Reasons:  c.reasons[p.ID],
			Selected: c.selection[p.ID],
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Payment.OccurredAt.Equal(rows[j].Payment.OccurredAt) {
			return rows[i].Payment.ID < rows[j].Payment.ID
		}
		return rows[i].Payment.OccurredAt.After(rows[j].Payment.OccurredAt)
	})
	return rows
}

func (c *Controller) visible(p model.Payment) bool {
	if c.statusFilter != nil && p.Status != *c.statusFilter {
		return false
	}

	reasons := c.reasons[p.ID]
	if c.duplicatesOnly && !recon.HasReason(reasons, model.ReasonDuplicate) {
		return false
	}
	if c.lowConfOnly && !recon.HasReason(reasons, model.ReasonLowConfidence) {
		return false
	}
	for id := range c.reasonFilters {
		if !recon.HasReason(reasons, id) {
			return false
		}
	}

	if c.search != "" {
		haystack := strings.ToLower(p.Reference + " " + p.MSISDN + " " + p.TxnID)
		if !strings.Contains(haystack, c.search) {
			return false
		}
	}

	return true
}

// Reasons returns the classified exceptions for one payment.
func (c *Controller) Reasons(paymentID string) []model.Reason {
	return c.reasons[paymentID]
}

// ToggleSelect flips selection for one payment. Selecting a payment that is
// not in the snapshot is a no-op.
func (c *Controller) ToggleSelect(paymentID string) {
	if c.selection[paymentID] {
		c.deselect(paymentID)
		return
	}
	if _, ok := c.reasons[paymentID]; !ok {
		return
	}
	c.selection[paymentID] = true
}

// SelectVisible adds every currently visible payment to the selection.
func (c *Controller) SelectVisible() {
	for _, row := range c.Rows() {
		c.selection[row.Payment.ID] = true
	}
}

// ClearSelection empties the selection, firing the deselect hook per entry.
func (c *Controller) ClearSelection() {
	for id := range c.selection {
		c.deselect(id)
	}
}

func (c *Controller) deselect(paymentID string) {
	delete(c.selection, paymentID)
	if c.onDeselect != nil {
		c.onDeselect(paymentID)
	}
}

// Selected returns the selected payment ids in stable snapshot order.
func (c *Controller) Selected() []string {
	ids := make([]string, 0, len(c.selection))
	for _, p := range c.payments {
		if c.selection[p.ID] {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// SelectionCount reports how many payments are selected.
func (c *Controller) SelectionCount() int {
	return len(c.selection)
}

// SharedReference returns the one reference every selected payment carries.
// ok is false when nothing is selected, any selected payment lacks a
// reference, or references differ; assign-by-reference is offered only when
// ok is true.
func (c *Controller) SharedReference() (string, bool) {
	ids := c.Selected()
	if len(ids) == 0 {
		return "", false
	}

	var shared string
	for _, p := range c.payments {
		if !c.selection[p.ID] {
			continue
		}
		if p.Reference == "" {
			return "", false
		}
		if shared == "" {
			shared = p.Reference
			continue
		}
		if p.Reference != shared {
			return "", false
		}
	}
	return shared, true
}
