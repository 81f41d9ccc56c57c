// Package httpdriver provides the HTTP transport driver, speaking the JSON
// transactional endpoint protocol.
//
// Statements travel as {"statements":[{"statement":...,"parameters":...}]}.
// When no transaction is ambient the request goes straight to the stateless
// commit endpoint and the server owns the transaction; when a caller-managed
// transaction is ambient, statements are POSTed to the transaction's own URL
// and commit/rollback map to the endpoint's commit POST and DELETE.
package httpdriver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/zero-day-ai/ogm/config"
	"github.com/zero-day-ai/ogm/driver"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/transaction"
	"github.com/zero-day-ai/ogm/types"
)

// DriverName is the registry name of the HTTP driver.
const DriverName = "http"

func init() {
	driver.Register(DriverName, func() driver.Driver { return New() })
}

// Driver is the HTTP transactional-endpoint driver.
type Driver struct {
	mu         sync.Mutex
	conf       config.Configuration
	configured bool
	client     *http.Client
	// locations maps open transaction IDs to their server-side URLs. The
	// request pipeline sees transactions through wrappers, so the URL is
	// keyed by identity rather than carried on a concrete type.
	locations map[string]string
}

// New creates an unconfigured HTTP driver.
func New() *Driver {
	return &Driver{locations: make(map[string]string)}
}

// Configure implements driver.Driver.
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
	d.client = &http.Client{Timeout: conf.ConnectionTimeout}
	return nil
}

// Configuration implements driver.Driver.
func (d *Driver) Configuration() config.Configuration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conf
}

// endpoint returns the transactional endpoint base URL.
func (d *Driver) endpoint() string {
	d.mu.Lock()
	uri := d.conf.URI
	d.mu.Unlock()
	return strings.TrimRight(uri, "/") + "/db/data/transaction"
}

// NewTransaction implements transaction.Factory: POST to the endpoint opens
// a server-side transaction whose URL arrives in the Location header.
func (d *Driver) NewTransaction(ctx context.Context, autoCommit bool) (transaction.Transaction, error) {
	d.mu.Lock()
	client := d.client
	d.mu.Unlock()
	if client == nil {
		return nil, types.NewError(types.DRIVER_CLOSED, "http driver is not configured")
	}

	resp, err := d.post(ctx, d.endpoint(), payload{})
	if err != nil {
		return nil, err
	}
	location := resp.location
	if location == "" {
		return nil, types.NewError(types.DRIVER_CONNECTION_FAILED,
			"transaction endpoint returned no location")
	}

	var txID string
	tx := transaction.NewBase(autoCommit, transaction.Hooks{
		OnCommit: func(ctx context.Context) error {
			_, err := d.post(ctx, location+"/commit", payload{})
			return err
		},
		OnRollback: func(ctx context.Context) error {
			return d.delete(ctx, location)
		},
		OnRelease: func(ctx context.Context) error {
			d.mu.Lock()
			delete(d.locations, txID)
			d.mu.Unlock()
			return nil
		},
	})
	txID = tx.ID()

	d.mu.Lock()
	d.locations[txID] = location
	d.mu.Unlock()
	return tx, nil
}

// location returns the server-side URL of the given open transaction.
func (d *Driver) location(txID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	loc, ok := d.locations[txID]
	return loc, ok
}

// Request implements driver.Driver.
func (d *Driver) Request(mgr *transaction.Manager) request.Request {
	return &httpRequest{driver: d, manager: mgr}
}

// Close implements driver.Driver.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		d.client.CloseIdleConnections()
	}
	d.client = nil
	d.configured = false
	d.locations = make(map[string]string)
	return nil
}

func (d *Driver) delete(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return types.WrapError(types.DRIVER_CONNECTION_FAILED, "cannot build request", err)
	}
	d.authorize(req)

	resp, err := d.httpClient().Do(req)
	if err != nil {
		return types.WrapError(types.DRIVER_CONNECTION_FAILED, "rollback request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return types.NewError(types.DRIVER_CONNECTION_FAILED,
			fmt.Sprintf("rollback returned status %d", resp.StatusCode))
	}
	return nil
}

func (d *Driver) authorize(req *http.Request) {
	d.mu.Lock()
	username, password := d.conf.Username, d.conf.Password
	d.mu.Unlock()
	if username != "" {
		req.SetBasicAuth(username, password)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func (d *Driver) httpClient() *http.Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return &http.Client{}
	}
	return d.client
}
