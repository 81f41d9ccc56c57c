// Package bolt provides the Bolt transport driver, backed by the official
// Neo4j Go driver.
//
// Caller-managed transactions map to explicit driver transactions on a
// dedicated Neo4j session; without an ambient transaction each statement runs
// in its own autocommit session and the server owns completion.
package bolt

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/zero-day-ai/ogm/config"
	"github.com/zero-day-ai/ogm/driver"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/transaction"
	"github.com/zero-day-ai/ogm/types"
)

// DriverName is the registry name of the Bolt driver.
const DriverName = "bolt"

func init() {
	driver.Register(DriverName, func() driver.Driver { return New() })
}

// Driver is the Bolt transport driver.
type Driver struct {
	mu         sync.Mutex
	conf       config.Configuration
	configured bool
	delegate   neo4j.DriverWithContext
	// open maps transaction IDs to their backend handles. The request
	// pipeline sees transactions through wrappers, so the handle is keyed
	// by identity rather than carried on a concrete type.
	open map[string]*boltHandle
}

// boltHandle is the backend side of one explicit transaction: the Neo4j
// session it lives on and the transaction itself.
type boltHandle struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
}

// New creates an unconfigured Bolt driver.
func New() *Driver {
	return &Driver{open: make(map[string]*boltHandle)}
}

// Configure implements driver.Driver. Connection establishment retries with
// exponential backoff up to the configured connection timeout.
func (d *Driver) Configure(conf config.Configuration) error {
	if err := conf.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.configured && d.conf == conf {
		return nil
	}
	if d.delegate != nil {
		_ = d.delegate.Close(context.Background())
	}

	auth := neo4j.BasicAuth(conf.Username, conf.Password, "")
	delegate, err := neo4j.NewDriverWithContext(conf.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = conf.MaxConnectionPoolSize
		c.ConnectionAcquisitionTimeout = conf.ConnectionTimeout
	})
	if err != nil {
		return types.WrapError(types.DRIVER_CONNECTION_FAILED, "cannot create bolt driver", err)
	}

	d.conf = conf
	d.configured = true
	d.delegate = delegate
	return nil
}

// Verify checks connectivity, retrying with exponential backoff until the
// configured connection timeout elapses.
func (d *Driver) Verify(ctx context.Context) error {
	d.mu.Lock()
	delegate := d.delegate
	timeout := d.conf.ConnectionTimeout
	d.mu.Unlock()
	if delegate == nil {
		return errNotConfigured()
	}

	var lastErr error
	baseDelay := 100 * time.Millisecond
	maxRetries := 5

	for attempt := 0; attempt < maxRetries; attempt++ {
		if lastErr = delegate.VerifyConnectivity(ctx); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return types.WrapError(types.DRIVER_CONNECTION_FAILED,
				"connectivity check cancelled", ctx.Err())
		}

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > timeout {
			delay = timeout
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return types.WrapError(types.DRIVER_CONNECTION_FAILED,
				"connectivity check cancelled", ctx.Err())
		}
	}
	return types.WrapError(types.DRIVER_CONNECTION_FAILED,
		fmt.Sprintf("failed to connect after %d attempts", maxRetries), lastErr)
}

// Configuration implements driver.Driver.
func (d *Driver) Configuration() config.Configuration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conf
}

// NewTransaction implements transaction.Factory. Each transaction gets a
// dedicated Neo4j session; the session is closed when the transaction is.
func (d *Driver) NewTransaction(ctx context.Context, autoCommit bool) (transaction.Transaction, error) {
	d.mu.Lock()
	delegate := d.delegate
	database := d.conf.Database
	d.mu.Unlock()
	if delegate == nil {
		return nil, errNotConfigured()
	}

	session := delegate.NewSession(ctx, neo4j.SessionConfig{DatabaseName: database})
	backendTx, err := session.BeginTransaction(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, types.WrapError(types.DRIVER_CONNECTION_FAILED, "cannot begin transaction", err)
	}
	handle := &boltHandle{session: session, tx: backendTx}

	var txID string
	tx := transaction.NewBase(autoCommit, transaction.Hooks{
		OnCommit: func(ctx context.Context) error {
			if err := handle.tx.Commit(ctx); err != nil {
				return cypherError(err)
			}
			return nil
		},
		OnRollback: func(ctx context.Context) error {
			if err := handle.tx.Rollback(ctx); err != nil {
				return cypherError(err)
			}
			return nil
		},
		OnRelease: func(ctx context.Context) error {
			d.mu.Lock()
			delete(d.open, txID)
			d.mu.Unlock()
			return handle.session.Close(ctx)
		},
	})
	txID = tx.ID()

	d.mu.Lock()
	d.open[txID] = handle
	d.mu.Unlock()
	return tx, nil
}

// handle returns the backend handle of the given open transaction.
func (d *Driver) handle(txID string) (*boltHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.open[txID]
	return h, ok
}

// Request implements driver.Driver.
func (d *Driver) Request(mgr *transaction.Manager) request.Request {
	return &boltRequest{driver: d, manager: mgr}
}

// Close implements driver.Driver.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	delegate := d.delegate
	d.delegate = nil
	d.configured = false
	d.mu.Unlock()

	if delegate == nil {
		return nil
	}
	if err := delegate.Close(ctx); err != nil {
		return types.WrapError(types.DRIVER_CONNECTION_FAILED, "cannot close bolt driver", err)
	}
	return nil
}

func errNotConfigured() error {
	return types.NewError(types.DRIVER_CLOSED, "bolt driver is not configured")
}
