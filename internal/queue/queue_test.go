package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbyiringiro/saccoflow/internal/common"
	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

type fakeActionStore struct {
	mu      sync.Mutex
	entries map[string]*model.ActionEntry
}

func newFakeActionStore() *fakeActionStore {
	return &fakeActionStore{entries: make(map[string]*model.ActionEntry)}
}

func (s *fakeActionStore) EnqueueAction(_ context.Context, entry *model.ActionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *entry
	s.entries[entry.ID] = &clone
	return nil
}

func (s *fakeActionStore) ListActions(_ context.Context) ([]model.ActionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ActionEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fakeActionStore) MarkAction(_ context.Context, id string, state model.ActionState, attempts int, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return common.ErrNotFound
	}
	entry.State = state
	entry.Attempts = attempts
	entry.LastError = lastError
	return nil
}

func (s *fakeActionStore) RemoveAction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *fakeActionStore) ClearActions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*model.ActionEntry)
	return nil
}

type fakeApplier struct {
	mu      sync.Mutex
	applied []string
	fail    map[string]error
	onApply func(entry model.ActionEntry)
}

func (a *fakeApplier) Apply(_ context.Context, entry model.ActionEntry) error {
	a.mu.Lock()
	a.applied = append(a.applied, entry.ID)
	onApply := a.onApply
	err := a.fail[entry.ID]
	a.mu.Unlock()
	if onApply != nil {
		onApply(entry)
	}
	return err
}

func (a *fakeApplier) appliedIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.applied...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	replayed []string
	failed   []string
}

func (n *fakeNotifier) ActionReplayed(entry model.ActionEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replayed = append(n.replayed, entry.ID)
}

func (n *fakeNotifier) ActionFailed(entry model.ActionEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, entry.ID)
}

type fakeConnectivity struct {
	online  bool
	changes chan bool
}

func (c *fakeConnectivity) Online() bool         { return c.online }
func (c *fakeConnectivity) Changes() <-chan bool { return c.changes }

func newTestQueue(t *testing.T, store service.ActionStore, applier Applier, notifier Notifier) *Queue {
	t.Helper()
	q, err := New(Config{
		Store:    store,
		Applier:  applier,
		Notifier: notifier,
		SaccoID:  "sacco-1",
	})
	require.NoError(t, err)
	return q
}

func seedEntries(t *testing.T, q *Queue, count int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, count)
	for i := 0; i < count; i++ {
		entry, err := q.EnqueueStatusUpdate(ctx, []string{"pay-1"}, model.StatusPosted)
		require.NoError(t, err)
		ids[i] = entry.ID
		// Distinct timestamps keep replay order deterministic.
		time.Sleep(time.Millisecond)
	}
	return ids
}

func TestEnqueueAlwaysSucceedsLocally(t *testing.T) {
	store := newFakeActionStore()
	q := newTestQueue(t, store, &fakeApplier{}, nil)
	ctx := context.Background()

	entry, err := q.EnqueueStatusUpdate(ctx, []string{"pay-1", "pay-2"}, model.StatusSettled)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, model.ActionPending, entry.State)
	assert.Contains(t, entry.Summary.Primary, "settled")
	assert.Contains(t, entry.Summary.Secondary, "byarangije")

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestEnqueueAssignRequiresGroup(t *testing.T) {
	q := newTestQueue(t, newFakeActionStore(), &fakeApplier{}, nil)

	_, err := q.EnqueueAssign(context.Background(), []string{"pay-1"}, "", "")
	assert.Error(t, err)
}

func TestDrainReplaysFIFO(t *testing.T) {
	store := newFakeActionStore()
	applier := &fakeApplier{}
	q := newTestQueue(t, store, applier, nil)
	ids := seedEntries(t, q, 3)

	require.NoError(t, q.Drain(context.Background()))

	assert.Equal(t, ids, applier.appliedIDs())
	pending, err := q.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainStopsOnTransientFailure(t *testing.T) {
	store := newFakeActionStore()
	applier := &fakeApplier{fail: map[string]error{}}
	q := newTestQueue(t, store, applier, nil)
	ids := seedEntries(t, q, 2)
	applier.fail[ids[0]] = errors.New("backend down")

	require.NoError(t, q.Drain(context.Background()))

	// Head entry failed once and stays pending; the drain ended without
	// touching the entry behind it.
	assert.Equal(t, []string{ids[0]}, applier.appliedIDs())

	pending, err := q.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, model.ActionPending, pending[0].State)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "backend down", pending[0].LastError)
	assert.Zero(t, pending[1].Attempts)
}

func TestDrainParksEntryAtThreshold(t *testing.T) {
	store := newFakeActionStore()
	applier := &fakeApplier{fail: map[string]error{}}
	notifier := &fakeNotifier{}
	q := newTestQueue(t, store, applier, notifier)
	ids := seedEntries(t, q, 2)
	applier.fail[ids[0]] = errors.New("payments not found")

	ctx := context.Background()
	for i := 0; i < DefaultFailureThreshold; i++ {
		require.NoError(t, q.Drain(ctx))
	}

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.ActionFailed, pending[0].State)
	assert.Equal(t, DefaultFailureThreshold, pending[0].Attempts)

	// The final drain skipped the parked entry and replayed the one
	// behind it.
	assert.Contains(t, applier.appliedIDs(), ids[1])
	assert.Equal(t, []string{ids[0]}, notifier.failed)
	assert.Equal(t, []string{ids[1]}, notifier.replayed)
}

func TestRetryFailedReturnsParkedEntries(t *testing.T) {
	store := newFakeActionStore()
	applier := &fakeApplier{fail: map[string]error{}}
	q := newTestQueue(t, store, applier, nil)
	ids := seedEntries(t, q, 2)
	applier.fail[ids[0]] = errors.New("member not found")

	ctx := context.Background()
	for i := 0; i < DefaultFailureThreshold; i++ {
		require.NoError(t, q.Drain(ctx))
	}

	// The head entry is parked; draining again must not touch it.
	applied := len(applier.appliedIDs())
	require.NoError(t, q.Drain(ctx))
	assert.Len(t, applier.appliedIDs(), applied)

	reset, err := q.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.ActionPending, pending[0].State)
	assert.Zero(t, pending[0].Attempts)
	assert.Equal(t, "member not found", pending[0].LastError)

	// With the underlying fault cleared the returned entry replays.
	delete(applier.fail, ids[0])
	require.NoError(t, q.Drain(ctx))
	pending, err = q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRetryFailedNoParkedEntries(t *testing.T) {
	q := newTestQueue(t, newFakeActionStore(), &fakeApplier{}, nil)
	seedEntries(t, q, 1)

	reset, err := q.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, reset)
}

func TestDrainPicksUpMidDrainEnqueues(t *testing.T) {
	store := newFakeActionStore()
	applier := &fakeApplier{}
	q := newTestQueue(t, store, applier, nil)
	seedEntries(t, q, 1)

	var once sync.Once
	applier.onApply = func(model.ActionEntry) {
		once.Do(func() {
			_, err := q.EnqueueStatusUpdate(context.Background(), []string{"pay-9"}, model.StatusRejected)
			require.NoError(t, err)
		})
	}

	require.NoError(t, q.Drain(context.Background()))

	assert.Len(t, applier.appliedIDs(), 2)
	pending, err := q.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunDrainsOnReconnect(t *testing.T) {
	store := newFakeActionStore()
	applier := &fakeApplier{}
	q := newTestQueue(t, store, applier, nil)
	seedEntries(t, q, 1)

	conn := &fakeConnectivity{online: false, changes: make(chan bool)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx, conn)
	}()

	// Offline: nothing replays.
	assert.Empty(t, applier.appliedIDs())

	conn.changes <- true
	require.Eventually(t, func() bool {
		return len(applier.appliedIDs()) == 1
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestRunIgnoresOnlineToOnline(t *testing.T) {
	store := newFakeActionStore()
	applier := &fakeApplier{}
	q := newTestQueue(t, store, applier, nil)

	conn := &fakeConnectivity{online: true, changes: make(chan bool)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx, conn)
	}()

	// Initial drain ran against an empty queue. Enqueue while online and
	// deliver an online edge that is not a transition.
	time.Sleep(10 * time.Millisecond)
	seedEntries(t, q, 1)
	conn.changes <- true
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, applier.appliedIDs())

	// A real offline-to-online transition drains.
	conn.changes <- false
	conn.changes <- true
	require.Eventually(t, func() bool {
		return len(applier.appliedIDs()) == 1
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}
