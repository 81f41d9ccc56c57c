// Package embedded provides the in-process driver: an in-memory property
// graph engine behind the standard Driver/Request/Response contract.
//
// The engine executes the statement vocabulary the mapping layer generates,
// with snapshot-based transactions. It exists for the same reason the
// original embedded backends do: tests and tools get a real, transactional
// backend without a server. Unlike the stateless remote endpoints, this
// backend has to manage autocommit transaction completion itself, which is
// why responses commit-and-close autocommit transactions on Close.
package embedded

import (
	"context"
	"log/slog"
	"sync"

	"github.com/zero-day-ai/ogm/config"
	"github.com/zero-day-ai/ogm/driver"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/transaction"
)

// DriverName is the registry name of the embedded driver.
const DriverName = "embedded"

func init() {
	driver.Register(DriverName, func() driver.Driver { return New() })
}

// Driver is the embedded in-process driver.
type Driver struct {
	mu         sync.Mutex
	conf       config.Configuration
	configured bool
	engine     *engine
}

// New creates an unconfigured embedded driver.
func New() *Driver {
	return &Driver{}
}

// Configure implements driver.Driver. The first call creates the in-memory
// store; reconfiguration with the same configuration is a no-op and never
// discards data.
func (d *Driver) Configure(conf config.Configuration) error {
	if err := conf.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.configured && d.conf == conf {
		return nil
	}
	d.conf = conf
	d.configured = true
	if d.engine == nil {
		d.engine = newEngine()
	}
	return nil
}

// Configuration implements driver.Driver.
func (d *Driver) Configuration() config.Configuration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conf
}

// NewTransaction implements transaction.Factory with snapshot semantics:
// commit keeps the mutated state, rollback restores the snapshot taken at
// open.
func (d *Driver) NewTransaction(ctx context.Context, autoCommit bool) (transaction.Transaction, error) {
	d.mu.Lock()
	eng := d.engine
	d.mu.Unlock()
	if eng == nil {
		return nil, errNotConfigured()
	}

	snap := eng.takeSnapshot()
	return transaction.NewBase(autoCommit, transaction.Hooks{
		OnRollback: func(ctx context.Context) error {
			eng.restore(snap)
			return nil
		},
	}), nil
}

// Request implements driver.Driver.
func (d *Driver) Request(mgr *transaction.Manager) request.Request {
	return &embeddedRequest{driver: d, manager: mgr}
}

// Close implements driver.Driver. The in-memory store is discarded.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.engine != nil {
		slog.Debug("embedded driver closed, discarding in-memory graph")
	}
	d.engine = nil
	d.configured = false
	return nil
}
