package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

const loadTimeout = 30 * time.Second

// loadPayments loads the tenant's payments from storage.
func (m Model) loadPayments() tea.Cmd {
	return func() tea.Msg {
		if m.config.Storage == nil {
			return paymentsLoadedMsg{err: fmt.Errorf("storage not configured")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		payments, err := m.config.Storage.GetPayments(ctx, service.PaymentFilter{
			SaccoID: m.config.SaccoID,
		})
		return paymentsLoadedMsg{payments: payments, err: err}
	}
}

// loadQueueCount counts queued offline actions for the status bar.
func (m Model) loadQueueCount() tea.Cmd {
	return func() tea.Msg {
		if m.config.Queue == nil {
			return queueCountMsg{}
		}

		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		entries, err := m.config.Queue.Pending(ctx)
		return queueCountMsg{count: len(entries), err: err}
	}
}

// refreshInterval is how often the status bar re-reads connectivity and
// the queue depth.
const refreshInterval = 5 * time.Second

// tick schedules the next periodic refresh.
func (m Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchSuggestion asks the suggestion cache for a match proposal. The
// context comes from the model so closing the panel cancels the fetch.
func (m Model) fetchSuggestion(ctx context.Context, paymentID string) tea.Cmd {
	return func() tea.Msg {
		if m.config.Suggestions == nil {
			return suggestionMsg{paymentID: paymentID, err: fmt.Errorf("suggestions not configured")}
		}

		suggestion, err := m.config.Suggestions.Suggest(ctx, paymentID)
		return suggestionMsg{paymentID: paymentID, suggestion: suggestion, err: err}
	}
}

// searchMembers runs a candidate lookup through the resolver, scoped to the
// payment the assign panel was opened for.
func (m Model) searchMembers(term string) tea.Cmd {
	payment := m.assignFor
	return func() tea.Msg {
		if m.config.Resolver == nil {
			return membersFoundMsg{term: term, err: fmt.Errorf("resolver not configured")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		members, err := m.config.Resolver.Search(ctx, payment, term)
		return membersFoundMsg{term: term, members: members, err: err}
	}
}

// enqueueStatus queues a status update for the current targets.
func (m Model) enqueueStatus(status model.PaymentStatus) tea.Cmd {
	ids := m.targetIDs()
	return func() tea.Msg {
		if len(ids) == 0 {
			return nil
		}
		if m.config.Queue == nil {
			return actionQueuedMsg{err: fmt.Errorf("queue not configured")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		entry, err := m.config.Queue.EnqueueStatusUpdate(ctx, ids, status)
		return actionQueuedMsg{entry: entry, err: err}
	}
}

// enqueueAssign queues an assignment to a member's group.
func (m Model) enqueueAssign(ids []string, groupID, memberID string) tea.Cmd {
	return func() tea.Msg {
		if len(ids) == 0 {
			return nil
		}
		if m.config.Queue == nil {
			return actionQueuedMsg{err: fmt.Errorf("queue not configured")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		entry, err := m.config.Queue.EnqueueAssign(ctx, ids, groupID, memberID)
		return actionQueuedMsg{entry: entry, err: err}
	}
}

// assignByReference resolves the shared reference of the selection to an
// active group and queues the assignment. Selections with differing
// references are rejected before any lookup.
func (m Model) assignByReference(ids []string) tea.Cmd {
	reference, ok := m.controller.SharedReference()
	return func() tea.Msg {
		if !ok {
			return errorMsg{err: fmt.Errorf("selected payments do not share a reference")}
		}
		if m.config.Storage == nil {
			return actionQueuedMsg{err: fmt.Errorf("storage not configured")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		parsed, err := model.ParseReference(reference)
		if err != nil {
			return errorMsg{err: err}
		}

		groups, err := m.config.Storage.GetGroupsByCode(ctx, parsed.GroupCode(), model.GroupActive, m.config.SaccoID)
		if err != nil {
			return errorMsg{err: err}
		}
		if len(groups) != 1 {
			return errorMsg{err: fmt.Errorf("reference %q matches %d active groups", reference, len(groups))}
		}

		entry, err := m.config.Queue.EnqueueAssign(ctx, ids, groups[0].ID, "")
		return actionQueuedMsg{entry: entry, err: err}
	}
}
