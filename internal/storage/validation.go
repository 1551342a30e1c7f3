// Package storage provides the SQLite persistence layer for saccoflow.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kbyiringiro/saccoflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrEmptySlice    = errors.New("slice cannot be empty")
	ErrInvalidStatus = errors.New("invalid payment status")
	ErrInvalidPayment = errors.New("invalid payment")
	ErrInvalidMember  = errors.New("invalid member")
	ErrInvalidGroup   = errors.New("invalid ikimina")
	ErrInvalidAction  = errors.New("invalid queued action")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateIDs ensures an id slice is non-empty with no blank entries.
func validateIDs(ids []string, paramName string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySlice, paramName)
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: %s[%d]", ErrEmptyString, paramName, i)
		}
	}
	return nil
}

// validatePayments validates a slice of payments.
func validatePayments(payments []model.Payment) error {
	if payments == nil {
		return fmt.Errorf("%w: payments", ErrNilParameter)
	}
	if len(payments) == 0 {
		return fmt.Errorf("%w: payments", ErrEmptySlice)
	}

	for i, p := range payments {
		if err := validatePayment(&p); err != nil {
			return fmt.Errorf("payment at index %d: %w", i, err)
		}
	}
	return nil
}

// validatePayment validates a single payment.
func validatePayment(p *model.Payment) error {
	if p == nil {
		return fmt.Errorf("%w: payment", ErrNilParameter)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPayment)
	}
	if p.SaccoID == "" {
		return fmt.Errorf("%w: missing sacco ID", ErrInvalidPayment)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, p.Status)
	}
	if p.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing occurred-at timestamp", ErrInvalidPayment)
	}
	if p.Confidence != nil && (*p.Confidence < 0 || *p.Confidence > 1) {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidPayment)
	}
	return nil
}

// validateGroups validates a slice of ibimina.
func validateGroups(groups []model.Group) error {
	if len(groups) == 0 {
		return fmt.Errorf("%w: groups", ErrEmptySlice)
	}
	for i, g := range groups {
		if g.ID == "" {
			return fmt.Errorf("%w: missing ID at index %d", ErrInvalidGroup, i)
		}
		if strings.TrimSpace(g.Code) == "" {
			return fmt.Errorf("%w: missing code at index %d", ErrInvalidGroup, i)
		}
	}
	return nil
}

// validateMembers validates a slice of members.
func validateMembers(members []model.Member) error {
	if len(members) == 0 {
		return fmt.Errorf("%w: members", ErrEmptySlice)
	}
	for i, m := range members {
		if m.ID == "" {
			return fmt.Errorf("%w: missing ID at index %d", ErrInvalidMember, i)
		}
		if strings.TrimSpace(m.FullName) == "" {
			return fmt.Errorf("%w: missing full name at index %d", ErrInvalidMember, i)
		}
	}
	return nil
}

// validateActionEntry validates a queued action before persisting it.
func validateActionEntry(entry *model.ActionEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if entry.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidAction)
	}
	if len(entry.PaymentIDs) == 0 {
		return fmt.Errorf("%w: no payment IDs", ErrInvalidAction)
	}

	switch entry.Type {
	case model.ActionUpdateStatus:
		if !entry.NewStatus.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidStatus, entry.NewStatus)
		}
	case model.ActionAssign:
		if entry.GroupID == "" {
			return fmt.Errorf("%w: assign without ikimina", ErrInvalidAction)
		}
	default:
		return fmt.Errorf("%w: unknown type %s", ErrInvalidAction, entry.Type)
	}
	return nil
}
