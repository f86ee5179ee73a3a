package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/erdlab/collab/store"
	"github.com/erdlab/collab/testutil"
	"github.com/erdlab/collab/types"
)

const (
	userA = types.Identity("alice@example.com")
	userB = types.Identity("bob@example.com")
)

func newTestManager(t *testing.T, opts ...Option) (Manager, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	opts = append([]Option{WithSweeper(false)}, opts...)
	m := NewManager(st, opts...)
	t.Cleanup(func() { _ = m.Close() })
	return m, st
}

func TestAcquireGrantsFirstCallerOnly(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	granted, err := m.Acquire(ctx, "table-100", userA)
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, granted, "first acquire should be granted")

	granted, err = m.Acquire(ctx, "table-100", userB)
	testutil.RequireNoError(t, err)
	testutil.AssertFalse(t, granted, "contended acquire should be denied without error")

	// Re-acquiring one's own held lock is still a denial: acquire is
	// try-once, not reentrant.
	granted, err = m.Acquire(ctx, "table-100", userA)
	testutil.RequireNoError(t, err)
	testutil.AssertFalse(t, granted)
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	const contenders = 32
	var wg sync.WaitGroup
	grants := make(chan types.Identity, contenders)

	for i := 0; i < contenders; i++ {
		identity := types.Identity(string(rune('a'+i)) + "@example.com")
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted, err := m.Acquire(ctx, "table-100", identity)
			if err != nil {
				t.Errorf("acquire returned error: %v", err)
				return
			}
			if granted {
				grants <- identity
			}
		}()
	}
	wg.Wait()
	close(grants)

	var winners []types.Identity
	for id := range grants {
		winners = append(winners, id)
	}
	testutil.AssertLen(t, winners, 1, "exactly one contender may win")

	owner, held, err := m.OwnerOf(ctx, "table-100")
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, held)
	testutil.AssertEqual(t, winners[0], owner)
}

func TestReleaseIsOwnerGated(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	granted, err := m.Acquire(ctx, "table-100", userA)
	testutil.RequireNoError(t, err)
	testutil.RequireTrue(t, granted)

	// A stale unlock from another client is a silent no-op.
	testutil.AssertNoError(t, m.Release(ctx, "table-100", userB))

	owner, held, err := m.OwnerOf(ctx, "table-100")
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, held, "lock must survive a non-owner release")
	testutil.AssertEqual(t, userA, owner)

	testutil.AssertNoError(t, m.Release(ctx, "table-100", userA))

	_, held, err = m.OwnerOf(ctx, "table-100")
	testutil.RequireNoError(t, err)
	testutil.AssertFalse(t, held)

	// Releasing an unheld lock is also a no-op.
	testutil.AssertNoError(t, m.Release(ctx, "table-100", userA))
}

func TestValidateRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	testutil.AssertErrorIs(t, m.Validate(ctx, "table-100", userA), ErrLockAbsent)

	granted, err := m.Acquire(ctx, "table-100", userA)
	testutil.RequireNoError(t, err)
	testutil.RequireTrue(t, granted)

	testutil.AssertNoError(t, m.Validate(ctx, "table-100", userA))
	testutil.AssertErrorIs(t, m.Validate(ctx, "table-100", userB), ErrNotLockOwner)

	testutil.RequireNoError(t, m.Release(ctx, "table-100", userA))
	testutil.AssertErrorIs(t, m.Validate(ctx, "table-100", userA), ErrLockAbsent)
}

func TestHeartbeatIsOwnerGated(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	testutil.AssertErrorIs(t, m.Heartbeat(ctx, "table-100", userA), ErrLockAbsent)

	granted, err := m.Acquire(ctx, "table-100", userA)
	testutil.RequireNoError(t, err)
	testutil.RequireTrue(t, granted)

	testutil.AssertNoError(t, m.Heartbeat(ctx, "table-100", userA))
	testutil.AssertErrorIs(t, m.Heartbeat(ctx, "table-100", userB), ErrNotLockOwner)
}

func TestHeartbeatRefreshesLivenessMarker(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	st := store.NewMemoryStoreWithClock(func() time.Time { return now })
	m := NewManager(st, WithSweeper(false), WithHeartbeatTTL(10*time.Second))
	t.Cleanup(func() { _ = m.Close() })

	granted, err := m.Acquire(ctx, "table-100", userA)
	testutil.RequireNoError(t, err)
	testutil.RequireTrue(t, granted)

	// A refresh inside the window pushes the expiry out.
	now = now.Add(8 * time.Second)
	testutil.RequireNoError(t, m.Heartbeat(ctx, "table-100", userA))

	now = now.Add(8 * time.Second)
	alive, err := st.Exists(ctx, "erd:lock:heartbeat:table-100")
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, alive, "refreshed marker must outlive the original TTL")

	// Without further refreshes the marker lapses while the lock stays.
	now = now.Add(11 * time.Second)
	alive, err = st.Exists(ctx, "erd:lock:heartbeat:table-100")
	testutil.RequireNoError(t, err)
	testutil.AssertFalse(t, alive)

	locked, err := m.IsLocked(ctx, "table-100")
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, locked, "lock itself never expires, only the marker")
}

func TestReleaseAllForReleasesOnlyOwnedLocks(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	for _, id := range []types.ElementID{"table-1", "table-2", "table-3"} {
		granted, err := m.Acquire(ctx, id, userA)
		testutil.RequireNoError(t, err)
		testutil.RequireTrue(t, granted)
	}
	granted, err := m.Acquire(ctx, "table-4", userB)
	testutil.RequireNoError(t, err)
	testutil.RequireTrue(t, granted)

	released, err := m.ReleaseAllFor(ctx, userA)
	testutil.RequireNoError(t, err)

	sort.Slice(released, func(i, j int) bool { return released[i] < released[j] })
	testutil.AssertEqual(t, []types.ElementID{"table-1", "table-2", "table-3"}, released)

	for _, id := range released {
		locked, err := m.IsLocked(ctx, id)
		testutil.RequireNoError(t, err)
		testutil.AssertFalse(t, locked, "element %s should be unlocked", id)
	}

	owner, held, err := m.OwnerOf(ctx, "table-4")
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, held, "other users' locks must be untouched")
	testutil.AssertEqual(t, userB, owner)

	// A second pass finds nothing.
	released, err = m.ReleaseAllFor(ctx, userA)
	testutil.RequireNoError(t, err)
	testutil.AssertLen(t, released, 0)
}

func TestOperationsFailClosedWhenStoreDown(t *testing.T) {
	ctx := context.Background()
	m := NewManager(failingStore{}, WithSweeper(false))
	t.Cleanup(func() { _ = m.Close() })

	granted, err := m.Acquire(ctx, "table-100", userA)
	testutil.AssertFalse(t, granted)
	testutil.AssertErrorIs(t, err, ErrStoreUnavailable)

	testutil.AssertErrorIs(t, m.Validate(ctx, "table-100", userA), ErrStoreUnavailable)
	testutil.AssertErrorIs(t, m.Heartbeat(ctx, "table-100", userA), ErrStoreUnavailable)
	testutil.AssertErrorIs(t, m.Release(ctx, "table-100", userA), ErrStoreUnavailable)

	_, err = m.ReleaseAllFor(ctx, userA)
	testutil.AssertErrorIs(t, err, ErrStoreUnavailable)

	_, err = m.IsLocked(ctx, "table-100")
	testutil.AssertErrorIs(t, err, ErrStoreUnavailable)

	_, _, err = m.OwnerOf(ctx, "table-100")
	testutil.AssertErrorIs(t, err, ErrStoreUnavailable)
}

func TestAcquireRollsBackOnPartialFailure(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemoryStore()
	flaky := &failSetStore{Store: inner, failAfter: 0}
	m := NewManager(flaky, WithSweeper(false))
	t.Cleanup(func() { _ = m.Close() })

	granted, err := m.Acquire(ctx, "table-100", userA)
	testutil.AssertFalse(t, granted)
	testutil.AssertErrorIs(t, err, ErrStoreUnavailable)

	// The half-written lock must not survive, or the element would be
	// locked forever with no introspectable owner.
	exists, err := inner.Exists(ctx, "erd:lock:element:table-100")
	testutil.RequireNoError(t, err)
	testutil.AssertFalse(t, exists, "partial acquire must be rolled back")
}

var errStoreDown = errors.New("store down")

// failingStore fails every operation, simulating an unreachable store.
type failingStore struct{}

func (failingStore) SetIfAbsent(context.Context, string, string, time.Duration) (bool, error) {
	return false, errStoreDown
}
func (failingStore) Set(context.Context, string, string, time.Duration) error { return errStoreDown }
func (failingStore) Get(context.Context, string) (string, error)              { return "", errStoreDown }
func (failingStore) Delete(context.Context, ...string) error                  { return errStoreDown }
func (failingStore) Exists(context.Context, string) (bool, error)             { return false, errStoreDown }
func (failingStore) Scan(context.Context, string, func(string) error) error   { return errStoreDown }
func (failingStore) Close() error                                             { return nil }

// failSetStore delegates to a real store but fails Set calls after the
// first failAfter successes, to exercise partial-acquire rollback.
type failSetStore struct {
	store.Store
	failAfter int
	sets      int
}

func (s *failSetStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.sets >= s.failAfter {
		return errStoreDown
	}
	s.sets++
	return s.Store.Set(ctx, key, value, ttl)
}
