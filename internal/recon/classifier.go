// Package recon implements the payment reconciliation core: exception
// classification, match candidate resolution and status transitions.
package recon

import "github.com/kbyiringiro/saccoflow/internal/model"

// DefaultConfidenceThreshold is the score below which a payment is tagged
// low-confidence.
const DefaultConfidenceThreshold = 0.8

// Classifier derives exception reasons for payments. Pure and deterministic;
// no I/O.
type Classifier struct {
	threshold float64
}

// NewClassifier creates a classifier with the given low-confidence
// threshold. A non-positive threshold falls back to the default.
func NewClassifier(threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Classifier{threshold: threshold}
}

// DuplicateTxnIDs returns the set of transaction ids that appear on more
// than one payment in the view. Computed once per view render, not per row.
func DuplicateTxnIDs(payments []model.Payment) map[string]bool {
	counts := make(map[string]int, len(payments))
	for _, p := range payments {
		if p.TxnID == "" {
			continue
		}
		counts[p.TxnID]++
	}
	duplicates := make(map[string]bool)
	for txnID, count := range counts {
		if count > 1 {
			duplicates[txnID] = true
		}
	}
	return duplicates
}

// Classify evaluates every exception rule against the payment and returns
// the union of matches in rule-declaration order. duplicates is the
// precomputed set from DuplicateTxnIDs over the active view.
func (c *Classifier) Classify(p model.Payment, duplicates map[string]bool) []model.Reason {
	var reasons []model.Reason

	if p.Reference == "" {
		reasons = append(reasons, model.MissingReference)
	}

	if p.Status == model.StatusUnallocated {
		reasons = append(reasons, model.NeedsMember)
	}

	if p.TxnID != "" && duplicates[p.TxnID] {
		reasons = append(reasons, model.Duplicate)
	}

	if p.Status == model.StatusPending {
		reasons = append(reasons, model.ManualReview)
	}

	if p.Source == nil || p.Source.Parsed == nil {
		reasons = append(reasons, model.ParserFailure)
	}

	if p.MaskedMSISDN() {
		reasons = append(reasons, model.MSISDNMismatch)
	}

	// An absent confidence score passes: only a present score below the
	// threshold is flagged.
	if p.Confidence != nil && *p.Confidence < c.threshold {
		reasons = append(reasons, model.LowConfidence)
	}

	return reasons
}

// HasReason reports whether reasons contains the given id. Matching is by
// id, never by position.
func HasReason(reasons []model.Reason, id model.ReasonID) bool {
	for _, reason := range reasons {
		if reason.ID == id {
			return true
		}
	}
	return false
}
