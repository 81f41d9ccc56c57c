package transaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/ogm/types"
)

type hookRecorder struct {
	commits   int
	rollbacks int
	releases  int
	commitErr error
}

func (h *hookRecorder) hooks() Hooks {
	return Hooks{
		OnCommit: func(ctx context.Context) error {
			h.commits++
			return h.commitErr
		},
		OnRollback: func(ctx context.Context) error {
			h.rollbacks++
			return nil
		},
		OnRelease: func(ctx context.Context) error {
			h.releases++
			return nil
		},
	}
}

func TestBase_CommitFromOpen(t *testing.T) {
	rec := &hookRecorder{}
	tx := NewBase(false, rec.hooks())
	ctx := context.Background()

	assert.Equal(t, StatusOpen, tx.Status())
	assert.NotEmpty(t, tx.ID())
	assert.False(t, tx.IsAutoCommit())

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, StatusCommitted, tx.Status())
	assert.Equal(t, 1, rec.commits)
}

func TestBase_CommitAfterClose(t *testing.T) {
	rec := &hookRecorder{}
	tx := NewBase(false, rec.hooks())
	ctx := context.Background()

	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Close(ctx))

	err := tx.Commit(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrCodeTxClosed, types.CodeOf(err))

	err = tx.Rollback(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrCodeTxClosed, types.CodeOf(err))
}

func TestBase_RollbackAfterCommit(t *testing.T) {
	rec := &hookRecorder{}
	tx := NewBase(false, rec.hooks())
	ctx := context.Background()

	require.NoError(t, tx.Commit(ctx))

	err := tx.Rollback(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrCodeTxInvalidState, types.CodeOf(err))
	assert.Equal(t, 0, rec.rollbacks)
}

func TestBase_CloseRollsBackOpenTransaction(t *testing.T) {
	rec := &hookRecorder{}
	tx := NewBase(false, rec.hooks())
	ctx := context.Background()

	require.NoError(t, tx.Close(ctx))
	assert.Equal(t, StatusClosed, tx.Status())
	assert.Equal(t, 1, rec.rollbacks)
	assert.Equal(t, 1, rec.releases)
}

func TestBase_CloseIdempotent(t *testing.T) {
	rec := &hookRecorder{}
	tx := NewBase(true, rec.hooks())
	ctx := context.Background()

	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Close(ctx))
	require.NoError(t, tx.Close(ctx))
	assert.Equal(t, 1, rec.releases)
}

func TestBase_FailedCommitRollsBackStatus(t *testing.T) {
	boom := errors.New("backend gone")
	rec := &hookRecorder{commitErr: boom}
	tx := NewBase(false, rec.hooks())

	err := tx.Commit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusRolledBack, tx.Status())

	// The backend transaction was actually rolled back, not just recorded so.
	assert.Equal(t, 1, rec.rollbacks)
}

type fakeFactory struct {
	created []*Base
	err     error
}

func (f *fakeFactory) NewTransaction(ctx context.Context, autoCommit bool) (Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	tx := NewBase(autoCommit, Hooks{})
	f.created = append(f.created, tx)
	return tx, nil
}

func TestManager_OpenTransaction(t *testing.T) {
	mgr := NewManager(&fakeFactory{})
	ctx := context.Background()

	tx, err := mgr.OpenTransaction(ctx)
	require.NoError(t, err)
	assert.False(t, tx.IsAutoCommit())
	assert.Same(t, tx, mgr.Current(ctx))
}

func TestManager_NestedOpenFails(t *testing.T) {
	mgr := NewManager(&fakeFactory{})
	ctx := context.Background()

	_, err := mgr.OpenTransaction(ctx)
	require.NoError(t, err)

	_, err = mgr.OpenTransaction(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrCodeTxNested, types.CodeOf(err))

	_, err = mgr.OpenAutoCommit(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrCodeTxNested, types.CodeOf(err))
}

func TestManager_CloseClearsCurrent(t *testing.T) {
	mgr := NewManager(&fakeFactory{})
	ctx := context.Background()

	tx, err := mgr.OpenTransaction(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Close(ctx))
	assert.Nil(t, mgr.Current(ctx))

	// A new unit of work can begin.
	_, err = mgr.OpenTransaction(ctx)
	require.NoError(t, err)
}

func TestManager_OpenAutoCommit(t *testing.T) {
	mgr := NewManager(&fakeFactory{})
	ctx := context.Background()

	tx, err := mgr.OpenAutoCommit(ctx)
	require.NoError(t, err)
	assert.True(t, tx.IsAutoCommit())
}

func TestManager_ContextTransactionTakesPrecedence(t *testing.T) {
	mgr := NewManager(&fakeFactory{})
	outer := NewBase(false, Hooks{})
	ctx := WithTransaction(context.Background(), outer)

	assert.Same(t, Transaction(outer), mgr.Current(ctx))

	// Opening while a context transaction is ambient counts as nesting.
	_, err := mgr.OpenTransaction(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrCodeTxNested, types.CodeOf(err))

	// A closed context transaction is no longer ambient.
	require.NoError(t, outer.Close(ctx))
	assert.Nil(t, mgr.Current(ctx))
}

func TestManager_FactoryError(t *testing.T) {
	boom := errors.New("no connection")
	mgr := NewManager(&fakeFactory{err: boom})

	_, err := mgr.OpenTransaction(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, mgr.Current(context.Background()))
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	tx := NewBase(false, Hooks{})
	got, ok := FromContext(WithTransaction(context.Background(), tx))
	require.True(t, ok)
	assert.Same(t, Transaction(tx), got)
}
