package recon

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

// Candidate search bounds. Searches shorter than minSearchTermLength return
// nothing rather than scanning the directory.
const (
	candidatePageSize   = 8
	minSearchTermLength = 2
	minMSISDNDigits     = 6
)

// Resolver finds member candidates for a payment by phone number, member
// code or free text. Scoring of candidates is left to the external
// suggestion service; the resolver only shapes the query and caps results.
type Resolver struct {
	directory service.DirectoryStore
	saccoID   string
}

// NewResolver creates a resolver scoped to the given tenant. An empty
// saccoID leaves searches unscoped, which only a system operator should do.
func NewResolver(directory service.DirectoryStore, saccoID string) *Resolver {
	return &Resolver{directory: directory, saccoID: saccoID}
}

// SearchTerm derives the automatic candidate search term for a payment:
// the unmasked sender MSISDN when it has enough digits, else the member
// code carried in the reference, else empty (no automatic search).
func (r *Resolver) SearchTerm(p model.Payment) string {
	msisdn := p.CleanMSISDN()
	if digitCount(msisdn) >= minMSISDNDigits {
		return msisdn
	}
	return model.MemberCodeHint(p.Reference)
}

// Resolve searches the member directory for candidates matching the
// payment's derived search term. Returns the candidates, the term used, and
// any query error. A query error always yields an empty candidate set; a
// too-short term yields an empty set without touching the store.
func (r *Resolver) Resolve(ctx context.Context, p model.Payment) ([]model.Member, string, error) {
	term := r.SearchTerm(p)
	return r.search(ctx, p, term)
}

// Search runs a candidate lookup with an operator-supplied term, scoped the
// same way Resolve scopes automatic lookups.
func (r *Resolver) Search(ctx context.Context, p model.Payment, term string) ([]model.Member, error) {
	members, _, err := r.search(ctx, p, term)
	return members, err
}

func (r *Resolver) search(ctx context.Context, p model.Payment, term string) ([]model.Member, string, error) {
	term = strings.TrimSpace(term)
	if len(term) < minSearchTermLength {
		return nil, term, nil
	}

	// The term is passed through raw; the storage layer owns LIKE escaping.
	search := service.MemberSearch{
		Term:    term,
		SaccoID: r.saccoID,
		Limit:   candidatePageSize,
	}
	// A payment already pinned to an ikimina narrows the search to that
	// group's members.
	if p.GroupID != "" {
		search.GroupID = p.GroupID
	}

	members, err := r.directory.SearchMembers(ctx, search)
	if err != nil {
		return nil, term, fmt.Errorf("member search for %q failed: %w", term, err)
	}
	return members, term, nil
}

func digitCount(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}
