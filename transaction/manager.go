package transaction

import (
	"context"
	"sync"

	"github.com/zero-day-ai/ogm/types"
)

// Factory creates backend transactions. Implemented by drivers.
type Factory interface {
	NewTransaction(ctx context.Context, autoCommit bool) (Transaction, error)
}

// Manager owns the ambient transaction for one unit of work. It is created
// per session and, like the session, must not be shared between goroutines.
type Manager struct {
	factory Factory

	mu      sync.Mutex
	current Transaction
}

// NewManager creates a Manager minting transactions from the given factory.
func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory}
}

// OpenTransaction opens a caller-managed transaction and registers it as
// current. It fails with TRANSACTION_NESTED when a transaction is already
// ambient.
func (m *Manager) OpenTransaction(ctx context.Context) (Transaction, error) {
	return m.open(ctx, false)
}

// OpenAutoCommit opens an implicit transaction on behalf of the request
// pipeline. The pipeline calls this when no transaction is ambient; the
// transaction is committed and closed by the response's Close.
func (m *Manager) OpenAutoCommit(ctx context.Context) (Transaction, error) {
	return m.open(ctx, true)
}

func (m *Manager) open(ctx context.Context, autoCommit bool) (Transaction, error) {
	if current := m.Current(ctx); current != nil {
		return nil, types.NewError(ErrCodeTxNested,
			"a transaction is already open for this unit of work")
	}

	tx, err := m.factory.NewTransaction(ctx, autoCommit)
	if err != nil {
		return nil, err
	}

	managed := &managedTransaction{Transaction: tx, manager: m}
	m.mu.Lock()
	m.current = managed
	m.mu.Unlock()
	return managed, nil
}

// Current returns the ambient transaction, or nil when none is open. A
// transaction carried by the context (see WithTransaction) takes precedence
// over the manager's own registration.
func (m *Manager) Current(ctx context.Context) Transaction {
	if tx, ok := FromContext(ctx); ok && tx.Status() != StatusClosed {
		return tx
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.Status() == StatusClosed {
		m.current = nil
	}
	return m.current
}

func (m *Manager) deregister(tx Transaction) {
	m.mu.Lock()
	if m.current == tx {
		m.current = nil
	}
	m.mu.Unlock()
}

// managedTransaction deregisters itself from the manager on Close so the
// next unit of work starts with a clean ambient context.
type managedTransaction struct {
	Transaction
	manager *Manager
}

func (t *managedTransaction) Close(ctx context.Context) error {
	err := t.Transaction.Close(ctx)
	t.manager.deregister(t)
	return err
}

type contextKey string

// currentTransaction carries a caller-managed transaction through the call
// stack so the request pipeline can join it.
const currentTransaction contextKey = "ogm.transaction"

// WithTransaction returns a context carrying tx as the ambient transaction.
func WithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, currentTransaction, tx)
}

// FromContext retrieves the transaction carried by ctx, if any.
func FromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(currentTransaction).(Transaction)
	return tx, ok && tx != nil
}
