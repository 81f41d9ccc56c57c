// Package transaction owns the transaction state machine and the ambient
// transaction for one unit of work.
//
// A Manager is session-scoped and thread-confined, like the session itself.
// Caller-managed transactions additionally travel as a context value (see
// WithTransaction) so the request pipeline can join a transaction begun
// higher up the call stack. Autocommit transactions are opened implicitly by
// drivers when no transaction is ambient and are committed and closed when
// the response that owns them is closed.
//
// Nested transactions are rejected: opening a transaction while one is
// already open fails with TRANSACTION_NESTED rather than extending a
// reference count.
package transaction

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusPending    Status = "PENDING"
	StatusCommitted  Status = "COMMITTED"
	StatusRolledBack Status = "ROLLEDBACK"
	StatusClosed     Status = "CLOSED"
)

// Transaction is one backend transaction. Implementations are supplied by
// drivers; the state machine lives in Base so every backend behaves the same.
type Transaction interface {
	// ID is the transaction identity, unique within the process.
	ID() string

	// Status returns the current lifecycle state.
	Status() Status

	// IsAutoCommit reports whether this transaction was opened implicitly
	// by the request pipeline.
	IsAutoCommit() bool

	// Commit commits the transaction. Valid only from OPEN.
	Commit(ctx context.Context) error

	// Rollback rolls the transaction back. Valid only from OPEN.
	Rollback(ctx context.Context) error

	// Close releases backend resources and transitions to CLOSED. It is
	// idempotent and must be reachable from every exit path. A transaction
	// still OPEN at close time is rolled back first.
	Close(ctx context.Context) error
}

// Hooks are the backend callbacks a driver supplies to Base. Any hook may be
// nil when the backend has nothing to do for that transition.
type Hooks struct {
	OnCommit   func(ctx context.Context) error
	OnRollback func(ctx context.Context) error
	// OnRelease frees backend cursors and handles. Called exactly once,
	// from Close.
	OnRelease func(ctx context.Context) error
}

// Base implements the Transaction state machine over driver-supplied hooks.
type Base struct {
	id         string
	autoCommit bool
	hooks      Hooks

	mu     sync.Mutex
	status Status
}

// NewBase creates an OPEN transaction with the given hooks.
func NewBase(autoCommit bool, hooks Hooks) *Base {
	return &Base{
		id:         uuid.NewString(),
		autoCommit: autoCommit,
		hooks:      hooks,
		status:     StatusOpen,
	}
}

// ID implements Transaction.
func (b *Base) ID() string { return b.id }

// Status implements Transaction.
func (b *Base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// IsAutoCommit implements Transaction.
func (b *Base) IsAutoCommit() bool { return b.autoCommit }

// Commit implements Transaction.
func (b *Base) Commit(ctx context.Context) error {
	b.mu.Lock()
	if b.status != StatusOpen {
		status := b.status
		b.mu.Unlock()
		return stateError("commit", status)
	}
	b.status = StatusPending
	b.mu.Unlock()

	if b.hooks.OnCommit != nil {
		if err := b.hooks.OnCommit(ctx); err != nil {
			// A failed commit may leave the backend transaction open; roll
			// it back so the recorded status matches the backend.
			if b.hooks.OnRollback != nil {
				if rbErr := b.hooks.OnRollback(ctx); rbErr != nil {
					err = errors.Join(err, rbErr)
				}
			}
			b.setStatus(StatusRolledBack)
			return err
		}
	}
	b.setStatus(StatusCommitted)
	return nil
}

// Rollback implements Transaction.
func (b *Base) Rollback(ctx context.Context) error {
	b.mu.Lock()
	if b.status != StatusOpen {
		status := b.status
		b.mu.Unlock()
		return stateError("rollback", status)
	}
	b.status = StatusPending
	b.mu.Unlock()

	var err error
	if b.hooks.OnRollback != nil {
		err = b.hooks.OnRollback(ctx)
	}
	b.setStatus(StatusRolledBack)
	return err
}

// Close implements Transaction.
func (b *Base) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.status == StatusClosed {
		b.mu.Unlock()
		return nil
	}
	open := b.status == StatusOpen
	b.mu.Unlock()

	// Never leave an open backend transaction dangling.
	var err error
	if open {
		err = b.Rollback(ctx)
	}

	if b.hooks.OnRelease != nil {
		if releaseErr := b.hooks.OnRelease(ctx); err == nil {
			err = releaseErr
		}
	}
	b.setStatus(StatusClosed)
	return err
}

func (b *Base) setStatus(s Status) {
	b.mu.Lock()
	b.status = s
	b.mu.Unlock()
}
