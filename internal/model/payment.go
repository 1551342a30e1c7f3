// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// PaymentStatus is the lifecycle state of an inbound payment.
type PaymentStatus string

// Payment status constants.
const (
	StatusUnallocated PaymentStatus = "UNALLOCATED"
	StatusPending     PaymentStatus = "PENDING"
	StatusPosted      PaymentStatus = "POSTED"
	StatusSettled     PaymentStatus = "SETTLED"
	StatusRejected    PaymentStatus = "REJECTED"
)

// AllStatuses lists every valid payment status in lifecycle order.
var AllStatuses = []PaymentStatus{
	StatusUnallocated,
	StatusPending,
	StatusPosted,
	StatusSettled,
	StatusRejected,
}

// Valid reports whether s is one of the known payment statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusUnallocated, StatusPending, StatusPosted, StatusSettled, StatusRejected:
		return true
	}
	return false
}

// ParseStatus converts operator input into a PaymentStatus.
func ParseStatus(value string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid payment status %q (expected one of %v)", value, AllStatuses)
	}
	return status, nil
}

// Terminal reports whether no further transitions are expected.
func (s PaymentStatus) Terminal() bool {
	return s == StatusSettled || s == StatusRejected
}

// statusLabels carries the bilingual operator-facing status copy.
var statusLabels = map[PaymentStatus]Label{
	StatusUnallocated: {Primary: "unallocated", Secondary: "bitaragabanywa"},
	StatusPending:     {Primary: "pending", Secondary: "birategereje"},
	StatusPosted:      {Primary: "posted", Secondary: "byemejwe"},
	StatusSettled:     {Primary: "settled", Secondary: "byarangije"},
	StatusRejected:    {Primary: "rejected", Secondary: "byanzwe"},
}

// StatusLabel returns the bilingual display label for a status.
func StatusLabel(s PaymentStatus) Label {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	lower := strings.ToLower(string(s))
	return Label{Primary: lower, Secondary: lower}
}

// Payment represents a single inbound mobile-money transaction awaiting
// reconciliation.
type Payment struct {
	OccurredAt time.Time
	Confidence *float64
	Source     *SourceRecord
	ID         string
	SaccoID    string
	GroupID    string // ikimina; empty until assigned
	MemberID   string // empty until allocated
	SourceID   string // originating sms_inbox record, if any
	Currency   string
	Reference  string // dot-delimited routing code; empty when missing
	MSISDN     string // sender phone, possibly masked by the provider
	TxnID      string // provider transaction id; collisions are flagged, not rejected
	Status     PaymentStatus
	Amount     float64
}

// Mask markers emitted by MoMo providers when the sender MSISDN is withheld.
const (
	maskRune     = "✱"
	maskSequence = "****"
)

// MaskedMSISDN reports whether the sender phone number is absent or masked.
func (p *Payment) MaskedMSISDN() bool {
	if p.MSISDN == "" {
		return true
	}
	return strings.Contains(p.MSISDN, maskRune) || strings.Contains(p.MSISDN, maskSequence)
}

// CleanMSISDN strips everything except digits and a leading plus sign.
// Returns an empty string when the MSISDN is masked.
func (p *Payment) CleanMSISDN() string {
	if p.MaskedMSISDN() {
		return ""
	}
	var b strings.Builder
	for i, r := range p.MSISDN {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
