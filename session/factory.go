package session

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/ogm/autoindex"
	"github.com/zero-day-ai/ogm/config"
	"github.com/zero-day-ai/ogm/driver"
	"github.com/zero-day-ai/ogm/event"
	"github.com/zero-day-ai/ogm/metadata"
	"github.com/zero-day-ai/ogm/transaction"
)

// driverCache reuses configured drivers across factories keyed by
// configuration equality, so re-creating a factory with an unchanged
// configuration does not redo the backend handshake.
var driverCache = struct {
	sync.Mutex
	drivers map[config.Configuration]driver.Driver
}{drivers: make(map[config.Configuration]driver.Driver)}

// Factory is the process-scoped entry point: it owns the domain metadata,
// the shared listener registry, and the configured driver, and mints
// unit-of-work sessions bound to them.
type Factory struct {
	conf      config.Configuration
	meta      *metadata.MetaData
	driver    driver.Driver
	listeners *event.Registry
	tracer    trace.Tracer
}

// Option customizes a Factory.
type Option func(*Factory)

// WithTracer instruments session operations with the given tracer. Tracing
// is disabled by default.
func WithTracer(tracer trace.Tracer) Option {
	return func(f *Factory) { f.tracer = tracer }
}

// NewFactory creates a Factory for the given configuration and domain
// metadata. An unchanged configuration reuses the already-configured driver
// of an earlier factory; a changed one configures a fresh driver. When
// auto-indexing is enabled the declared indexes are built once here,
// fire-and-forget.
func NewFactory(ctx context.Context, conf config.Configuration, meta *metadata.MetaData, opts ...Option) (*Factory, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	d, err := cachedDriver(conf)
	if err != nil {
		return nil, err
	}

	f := &Factory{
		conf:      conf,
		meta:      meta,
		driver:    d,
		listeners: event.NewRegistry(),
	}
	for _, opt := range opts {
		opt(f)
	}

	if conf.AutoIndex {
		req := d.Request(transaction.NewManager(d))
		if err := autoindex.NewManager(meta, req).Build(ctx); err != nil {
			slog.Warn("auto-index build incomplete", "error", err)
		}
	}
	return f, nil
}

func cachedDriver(conf config.Configuration) (driver.Driver, error) {
	driverCache.Lock()
	defer driverCache.Unlock()

	if d, ok := driverCache.drivers[conf]; ok {
		// Configure is idempotent for an unchanged configuration.
		if err := d.Configure(conf); err != nil {
			return nil, err
		}
		return d, nil
	}

	d, err := driver.New(conf.Driver)
	if err != nil {
		return nil, err
	}
	if err := d.Configure(conf); err != nil {
		return nil, err
	}
	driverCache.drivers[conf] = d
	return d, nil
}

// OpenSession mints a new unit-of-work session sharing this factory's
// driver, metadata and listener registry.
func (f *Factory) OpenSession() *Session {
	return newSession(f.meta, f.driver, f.listeners, f.tracer)
}

// MetaData returns the domain metadata this factory was built with.
func (f *Factory) MetaData() *metadata.MetaData { return f.meta }

// Configuration returns the factory's configuration.
func (f *Factory) Configuration() config.Configuration { return f.conf }

// Register adds a lifecycle listener shared by every session of this
// factory, including already-open ones.
func (f *Factory) Register(l event.Listener) { f.listeners.Register(l) }

// Deregister removes a previously registered listener.
func (f *Factory) Deregister(l event.Listener) { f.listeners.Deregister(l) }

// Close releases the factory's driver and evicts it from the reuse cache.
func (f *Factory) Close(ctx context.Context) error {
	driverCache.Lock()
	if driverCache.drivers[f.conf] == f.driver {
		delete(driverCache.drivers, f.conf)
	}
	driverCache.Unlock()

	return f.driver.Close(ctx)
}
