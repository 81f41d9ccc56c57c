// Package request turns parameterized statements into typed, lazily-consumed
// result streams.
//
// A Request is the transport-facing executor a driver hands to the session:
// one method per desired result shape. Every method returns a Response, a
// forward-only single-pass sequence with an explicit Close contract. Session
// code is transport-agnostic: backends that must drain their cursor up front
// still present the same lazy surface.
package request

import (
	"context"
	"encoding/json"

	"github.com/zero-day-ai/ogm/model"
)

// Statement is an immutable query plus named parameters. Statements are
// produced by the mapping layer, never authored by callers of the session.
// Parameter values may be scalars, sequences, or nested parameter maps.
type Statement struct {
	text       string
	parameters map[string]any
}

// NewStatement creates a Statement. The parameter map is referenced, not
// copied; the mapping layer never mutates it after construction.
func NewStatement(text string, parameters map[string]any) *Statement {
	if parameters == nil {
		parameters = map[string]any{}
	}
	return &Statement{text: text, parameters: parameters}
}

// Text returns the query text.
func (s *Statement) Text() string { return s.text }

// Parameters returns the named parameter map.
func (s *Statement) Parameters() map[string]any { return s.parameters }

// MarshalJSON renders the externally observable wire shape
// {"statement": ..., "parameters": {...}}.
func (s *Statement) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Statement  string         `json:"statement"`
		Parameters map[string]any `json:"parameters"`
	}{s.text, s.parameters})
}

// Response is a lazy, forward-only, single-pass sequence of result values.
//
// Next returns the next value and true, or the zero value and false once the
// sequence is exhausted; exhaustion is not an error. Close releases the
// backend cursor and, for responses running under an autocommit transaction,
// commits and closes that transaction; it is idempotent and must be called
// on every exit path.
type Response[T any] interface {
	Next() (T, bool)
	Close(ctx context.Context) error
	Columns() []string
}

// Request executes statements against one transport backend, keyed by the
// desired result shape.
type Request interface {
	// QueryGraph executes a statement expecting graph-shaped rows.
	QueryGraph(ctx context.Context, s *Statement) (Response[model.GraphModel], error)

	// QueryRows executes a statement expecting tabular rows.
	QueryRows(ctx context.Context, s *Statement) (Response[model.RowModel], error)

	// QueryGraphRows executes a statement expecting paired graph and row
	// data per result row.
	QueryGraphRows(ctx context.Context, s *Statement) (Response[model.GraphRowModel], error)

	// QueryRest executes a statement expecting REST-format rows.
	QueryRest(ctx context.Context, s *Statement) (Response[model.RestModel], error)

	// Execute runs several statements in one logical call, returning their
	// concatenated rows. A failure in any statement aborts the whole batch.
	Execute(ctx context.Context, statements ...*Statement) (Response[model.RowModel], error)
}

// response is the canonical Response implementation over a drained result
// set. Drivers that stream natively can implement Response themselves;
// drivers that must collect up front wrap the collected values here.
type response[T any] struct {
	values  []T
	columns []string
	pos     int
	closed  bool
	onClose func(ctx context.Context) error
}

// NewResponse wraps already-materialized values in the lazy Response surface.
// onClose, if non-nil, runs exactly once on the first Close call; it is where
// autocommit transactions get committed.
func NewResponse[T any](values []T, columns []string, onClose func(ctx context.Context) error) Response[T] {
	return &response[T]{values: values, columns: columns, onClose: onClose}
}

// EmptyResponse returns a Response that yields nothing. Used to short-circuit
// empty statement text without touching the backend.
func EmptyResponse[T any]() Response[T] {
	return &response[T]{}
}

func (r *response[T]) Next() (T, bool) {
	var zero T
	if r.closed || r.pos >= len(r.values) {
		return zero, false
	}
	v := r.values[r.pos]
	r.pos++
	return v, true
}

func (r *response[T]) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.onClose != nil {
		return r.onClose(ctx)
	}
	return nil
}

func (r *response[T]) Columns() []string { return r.columns }

// CollectGraphRows drains resp into the fully materialized list shape and
// closes it. Callers that need the whole result at once use this instead of
// walking the stream themselves.
func CollectGraphRows(ctx context.Context, resp Response[model.GraphRowModel]) (model.GraphRowListModel, error) {
	var list model.GraphRowListModel
	for {
		pair, ok := resp.Next()
		if !ok {
			break
		}
		list.Rows = append(list.Rows, pair)
	}
	if err := resp.Close(ctx); err != nil {
		return model.GraphRowListModel{}, err
	}
	return list, nil
}
