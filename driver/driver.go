// Package driver defines the pluggable transport backend contract and the
// process-wide driver registry.
//
// A Driver supplies three capabilities: it can be configured (idempotently)
// against an equality-comparable configuration, it opens backend
// transactions, and it hands out Request executors bound to a transaction
// manager. Implementations register themselves by name in an init function,
// the way database/sql drivers do; the session factory selects one by the
// Driver field of its configuration.
package driver

import (
	"context"
	"sync"

	"github.com/zero-day-ai/ogm/config"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/transaction"
	"github.com/zero-day-ai/ogm/types"
)

// Driver is a transport-specific backend connector.
type Driver interface {
	transaction.Factory

	// Configure connects the driver to its backend. Calling Configure
	// again with the same configuration is a no-op.
	Configure(conf config.Configuration) error

	// Configuration returns the configuration the driver was configured
	// with. The zero value before Configure.
	Configuration() config.Configuration

	// Request returns a statement executor that joins the ambient
	// transaction of the given manager, opening an autocommit transaction
	// when none is ambient.
	Request(mgr *transaction.Manager) request.Request

	// Close releases the backend connection.
	Close(ctx context.Context) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Driver)
)

// Register makes a driver constructor available under the given name.
// Called from driver package init functions.
func Register(name string, factory func() Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New constructs an unconfigured driver by registered name.
func New(name string) (Driver, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, types.NewError(types.DRIVER_NOT_REGISTERED, "no driver registered under "+name)
	}
	return factory(), nil
}
