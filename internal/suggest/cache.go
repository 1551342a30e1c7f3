package suggest

import (
	"context"
	"sync"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

// inflightCall tracks one in-progress fetch so that concurrent requests for
// the same payment share a single network call.
type inflightCall struct {
	done       chan struct{}
	suggestion model.Suggestion
	err        error
}

// Cache memoizes suggestion responses for the lifetime of a review session.
// Entries never expire on their own; they are dropped when the payment's
// match state changes or the session ends. A fetch that completes after its
// payment was invalidated is discarded rather than cached, so a stale
// response can never resurface for a re-selected payment.
type Cache struct {
	scorer   service.Scorer
	entries  map[string]model.Suggestion
	inflight map[string]*inflightCall
	mu       sync.Mutex
}

// NewCache wraps a scorer with session-scoped memoization.
func NewCache(scorer service.Scorer) *Cache {
	return &Cache{
		scorer:   scorer,
		entries:  make(map[string]model.Suggestion),
		inflight: make(map[string]*inflightCall),
	}
}

// Suggest returns the cached suggestion for paymentID, joining an in-flight
// fetch or starting one as needed. Errors are returned to every waiter and
// never cached.
func (c *Cache) Suggest(ctx context.Context, paymentID string) (model.Suggestion, error) {
	c.mu.Lock()

	if suggestion, ok := c.entries[paymentID]; ok {
		c.mu.Unlock()
		return suggestion, nil
	}

	if call, ok := c.inflight[paymentID]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.suggestion, call.err
		case <-ctx.Done():
			return model.Suggestion{}, ctx.Err()
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	c.inflight[paymentID] = call
	c.mu.Unlock()

	call.suggestion, call.err = c.scorer.Suggest(ctx, paymentID)
	close(call.done)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Cache only if this call is still the registered fetch for the
	// payment. Invalidate swaps the registration out from under a stale
	// fetch, which turns its completion into a no-op.
	if current, ok := c.inflight[paymentID]; ok && current == call {
		delete(c.inflight, paymentID)
		if call.err == nil {
			c.entries[paymentID] = call.suggestion
		}
	}

	return call.suggestion, call.err
}

// Lookup peeks at the cache without triggering a fetch.
func (c *Cache) Lookup(paymentID string) (model.Suggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	suggestion, ok := c.entries[paymentID]
	return suggestion, ok
}

// Invalidate drops the cached entry for a payment and orphans any fetch
// still in flight for it.
func (c *Cache) Invalidate(paymentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, paymentID)
	delete(c.inflight, paymentID)
}

// Clear empties the cache, ending the memoization session.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]model.Suggestion)
	c.inflight = make(map[string]*inflightCall)
}

// Len reports the number of cached suggestions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
