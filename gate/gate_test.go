package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erdlab/collab/lock"
	"github.com/erdlab/collab/store"
	"github.com/erdlab/collab/testutil"
	"github.com/erdlab/collab/types"
)

const (
	userA = types.Identity("alice@example.com")
	userB = types.Identity("bob@example.com")
)

func newTestGate(t *testing.T) (*Gate, lock.Manager) {
	t.Helper()
	locks := lock.NewManager(store.NewMemoryStore(), lock.WithSweeper(false))
	t.Cleanup(func() { _ = locks.Close() })
	return New(locks, nil), locks
}

func TestOperationClassification(t *testing.T) {
	important := []Operation{
		OpRenameElement, OpDeleteElement, OpCreateColumn, OpDeleteColumn,
		OpChangeColumnType, OpToggleKey, OpCreateRelation, OpDeleteRelation,
	}
	for _, op := range important {
		testutil.AssertTrue(t, op.Important(), "%s should be important", op)
	}

	cosmetic := []Operation{OpMoveElement, OpRecolorElement, OpReorderColumns}
	for _, op := range cosmetic {
		testutil.AssertFalse(t, op.Important(), "%s should be cosmetic", op)
	}

	// Unclassified operations fail closed.
	testutil.AssertTrue(t, Operation("brand_new_op").Important())
}

func TestCosmeticOperationsBypassLocking(t *testing.T) {
	ctx := context.Background()
	g, locks := newTestGate(t)

	// No lock held anywhere.
	testutil.AssertNoError(t, g.Check(ctx, OpMoveElement, "table-100", userA))

	// Even a lock held by someone else does not block cosmetic ops.
	granted, err := locks.Acquire(ctx, "table-100", userB)
	testutil.RequireNoError(t, err)
	testutil.RequireTrue(t, granted)
	testutil.AssertNoError(t, g.Check(ctx, OpRecolorElement, "table-100", userA))
}

func TestCosmeticOperationsSkipTheStore(t *testing.T) {
	// A gate over an unreachable store still admits cosmetic mutations,
	// proving they never consult it.
	locks := lock.NewManager(deadStore{}, lock.WithSweeper(false))
	t.Cleanup(func() { _ = locks.Close() })
	g := New(locks, nil)

	testutil.AssertNoError(t, g.Check(context.Background(), OpMoveElement, "table-100", userA))
}

func TestImportantOperationsRequireOwnership(t *testing.T) {
	ctx := context.Background()
	g, locks := newTestGate(t)

	err := g.Check(ctx, OpRenameElement, "table-100", userA)
	testutil.AssertErrorIs(t, err, lock.ErrLockAbsent)

	granted, err := locks.Acquire(ctx, "table-100", userA)
	testutil.RequireNoError(t, err)
	testutil.RequireTrue(t, granted)

	testutil.AssertNoError(t, g.Check(ctx, OpRenameElement, "table-100", userA))

	err = g.Check(ctx, OpDeleteColumn, "table-100", userB)
	testutil.AssertErrorIs(t, err, lock.ErrNotLockOwner)
}

func TestImportantOperationsFailClosedOnStoreFailure(t *testing.T) {
	locks := lock.NewManager(deadStore{}, lock.WithSweeper(false))
	t.Cleanup(func() { _ = locks.Close() })
	g := New(locks, nil)

	err := g.Check(context.Background(), OpToggleKey, "table-100", userA)
	testutil.AssertErrorIs(t, err, lock.ErrStoreUnavailable)
}

var errDead = errors.New("store down")

// deadStore fails every operation.
type deadStore struct{}

func (deadStore) SetIfAbsent(context.Context, string, string, time.Duration) (bool, error) {
	return false, errDead
}
func (deadStore) Set(context.Context, string, string, time.Duration) error { return errDead }
func (deadStore) Get(context.Context, string) (string, error)              { return "", errDead }
func (deadStore) Delete(context.Context, ...string) error                  { return errDead }
func (deadStore) Exists(context.Context, string) (bool, error)             { return false, errDead }
func (deadStore) Scan(context.Context, string, func(string) error) error   { return errDead }
func (deadStore) Close() error                                             { return nil }

