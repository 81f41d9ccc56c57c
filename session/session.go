// Package session provides the identity-mapped unit of work and the factory
// that mints it.
//
// A Session coordinates loads, saves and deletes for one logical unit of
// work: it tracks an identity map so each backend identifier materializes as
// exactly one object instance, converts entity mutations into parameterized
// statements, and fires lifecycle events around each confirmed mutation.
// Sessions are cheap to create, discarded after use, and not safe for
// concurrent use. Factory-scoped state (metadata, listener registry, driver)
// is shared by reference across all sessions of one factory.
package session

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/ogm/driver"
	"github.com/zero-day-ai/ogm/entity"
	"github.com/zero-day-ai/ogm/event"
	"github.com/zero-day-ai/ogm/metadata"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/transaction"
)

// Session is the unit-of-work facade over one driver connection.
type Session struct {
	meta     *metadata.MetaData
	driver   driver.Driver
	req      request.Request
	txMgr    *transaction.Manager
	events   *event.Registry
	tracer   trace.Tracer
	nodes    map[int64]entity.Node
	rels     map[int64]entity.Relationship
	snapshot map[entity.Entity]string
	// merged remembers plain edges already ensured this session so an
	// unchanged save does not re-issue their statements.
	merged map[edgeKey]struct{}
}

type edgeKey struct {
	startID int64
	endID   int64
	relType string
}

func newSession(meta *metadata.MetaData, d driver.Driver, events *event.Registry, tracer trace.Tracer) *Session {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("ogm")
	}
	s := &Session{
		meta:     meta,
		events:   events,
		tracer:   tracer,
		nodes:    make(map[int64]entity.Node),
		rels:     make(map[int64]entity.Relationship),
		snapshot: make(map[entity.Entity]string),
		merged:   make(map[edgeKey]struct{}),
	}
	s.SetDriver(d)
	return s
}

// SetDriver swaps the transport backend. Intended for tests that substitute
// a scripted request/response pair for the real backend; the identity map
// and the listener registry are unaffected.
func (s *Session) SetDriver(d driver.Driver) {
	s.driver = d
	s.txMgr = transaction.NewManager(d)
	s.req = d.Request(s.txMgr)
}

// BeginTransaction opens a caller-managed transaction and returns it along
// with a context carrying it, so the transaction survives across API
// boundaries that only pass contexts. The caller owns commit, rollback and
// close.
func (s *Session) BeginTransaction(ctx context.Context) (transaction.Transaction, context.Context, error) {
	tx, err := s.txMgr.OpenTransaction(ctx)
	if err != nil {
		return nil, ctx, err
	}
	return tx, transaction.WithTransaction(ctx, tx), nil
}

// Clear forgets all tracked entities. Subsequent loads materialize fresh
// instances.
func (s *Session) Clear() {
	s.nodes = make(map[int64]entity.Node)
	s.rels = make(map[int64]entity.Relationship)
	s.snapshot = make(map[entity.Entity]string)
	s.merged = make(map[edgeKey]struct{})
}

func (s *Session) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// takeSnapshot records the entity's persistent state so a later save can
// detect that nothing changed.
func (s *Session) takeSnapshot(e entity.Entity) {
	s.snapshot[e] = propertyFingerprint(e.Properties())
}

// dirty reports whether the entity's persistent state differs from the last
// load or save. Entities never snapshotted count as dirty.
func (s *Session) dirty(e entity.Entity) bool {
	prev, ok := s.snapshot[e]
	if !ok {
		return true
	}
	return prev != propertyFingerprint(e.Properties())
}

// propertyFingerprint canonicalizes a property map. JSON object keys are
// emitted sorted, so equal maps produce equal fingerprints.
func propertyFingerprint(props map[string]any) string {
	data, err := json.Marshal(props)
	if err != nil {
		return ""
	}
	return string(data)
}

func (s *Session) dispatch(subject any, t event.Type) {
	s.events.Dispatch(event.Event{Subject: subject, Type: t})
}

// asID coerces a backend identifier value. Remote transports deliver JSON
// numbers as float64; the embedded and bolt backends deliver int64.
func asID(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case json.Number:
		id, err := n.Int64()
		return id, err == nil
	default:
		return 0, false
	}
}

// runReturningID executes a statement whose single return value is a backend
// identifier, draining and closing the response.
func (s *Session) runReturningID(ctx context.Context, stmt *request.Statement) (int64, bool, error) {
	resp, err := s.req.QueryRows(ctx, stmt)
	if err != nil {
		return 0, false, err
	}

	var id int64
	var found bool
	if row, ok := resp.Next(); ok && len(row.Values) > 0 {
		id, found = asID(row.Values[0])
	}
	if err := resp.Close(ctx); err != nil {
		return 0, false, err
	}
	return id, found, nil
}
