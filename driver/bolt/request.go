package bolt

import (
	"context"
	"errors"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/zero-day-ai/ogm/model"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/transaction"
	"github.com/zero-day-ai/ogm/types"
)

// boltRequest executes statements through the Neo4j driver, joining the
// ambient transaction when one exists.
type boltRequest struct {
	driver  *Driver
	manager *transaction.Manager
}

// run executes one statement and drains its records. On failure the ambient
// transaction is rolled back before the error surfaces.
func (r *boltRequest) run(ctx context.Context, s *request.Statement) ([]*neo4j.Record, []string, error) {
	tx := r.manager.Current(ctx)
	slog.Debug("bolt request", "statement", s.Text(), "params", s.Parameters())

	if tx == nil {
		return r.runAutocommit(ctx, s)
	}
	if tx.Status() != transaction.StatusOpen {
		return nil, nil, types.NewError(transaction.ErrCodeTxClosed, "transaction is already closed")
	}
	handle, ok := r.driver.handle(tx.ID())
	if !ok {
		return nil, nil, types.NewError(types.DRIVER_CONNECTION_FAILED,
			"ambient transaction does not belong to this driver")
	}

	result, runErr := handle.tx.Run(ctx, s.Text(), s.Parameters())
	records, columns, err := drain(ctx, result, runErr)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.Warn("rollback after failed statement", "error", rbErr)
		}
		return nil, nil, err
	}
	return records, columns, nil
}

// runAutocommit runs the statement in its own short-lived session; the
// backend owns transaction completion.
func (r *boltRequest) runAutocommit(ctx context.Context, s *request.Statement) ([]*neo4j.Record, []string, error) {
	r.driver.mu.Lock()
	delegate := r.driver.delegate
	database := r.driver.conf.Database
	r.driver.mu.Unlock()
	if delegate == nil {
		return nil, nil, errNotConfigured()
	}

	session := delegate.NewSession(ctx, neo4j.SessionConfig{DatabaseName: database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, s.Text(), s.Parameters())
	return drain(ctx, result, err)
}

// drain materializes a backend result so the cursor never outlives its
// session.
func drain(ctx context.Context, result neo4j.ResultWithContext, err error) ([]*neo4j.Record, []string, error) {
	if err != nil {
		return nil, nil, cypherError(err)
	}
	columns, err := result.Keys()
	if err != nil {
		return nil, nil, cypherError(err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, nil, cypherError(err)
	}
	return records, columns, nil
}

// cypherError translates backend failures: server-side statement errors keep
// their status code, everything else becomes a generic execution failure.
func cypherError(err error) error {
	var neoErr *db.Neo4jError
	if errors.As(err, &neoErr) {
		return request.NewCypherError(neoErr.Code, neoErr.Msg, err)
	}
	return types.WrapError(request.ErrCodeExecutionFailed, "statement execution failed", err)
}

// QueryGraph implements request.Request.
func (r *boltRequest) QueryGraph(ctx context.Context, s *request.Statement) (request.Response[model.GraphModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.GraphModel](), nil
	}
	records, columns, err := r.run(ctx, s)
	if err != nil {
		return nil, err
	}

	graphs := make([]model.GraphModel, 0, len(records))
	for _, record := range records {
		graphs = append(graphs, recordGraph(record))
	}
	return request.NewResponse(graphs, columns, nil), nil
}

// QueryRows implements request.Request.
func (r *boltRequest) QueryRows(ctx context.Context, s *request.Statement) (request.Response[model.RowModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.RowModel](), nil
	}
	records, columns, err := r.run(ctx, s)
	if err != nil {
		return nil, err
	}
	return request.NewResponse(recordRows(records), columns, nil), nil
}

// QueryGraphRows implements request.Request.
func (r *boltRequest) QueryGraphRows(ctx context.Context, s *request.Statement) (request.Response[model.GraphRowModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.GraphRowModel](), nil
	}
	records, columns, err := r.run(ctx, s)
	if err != nil {
		return nil, err
	}

	pairs := make([]model.GraphRowModel, 0, len(records))
	for _, record := range records {
		pairs = append(pairs, model.GraphRowModel{
			Graph: recordGraph(record),
			Row:   recordValues(record),
		})
	}
	return request.NewResponse(pairs, columns, nil), nil
}

// QueryRest implements request.Request.
func (r *boltRequest) QueryRest(ctx context.Context, s *request.Statement) (request.Response[model.RestModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.RestModel](), nil
	}
	records, columns, err := r.run(ctx, s)
	if err != nil {
		return nil, err
	}

	rest := make([]model.RestModel, 0, len(records))
	for _, record := range records {
		values := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			values[key] = record.Values[i]
		}
		rest = append(rest, model.RestModel{Values: values})
	}
	return request.NewResponse(rest, columns, nil), nil
}

// Execute implements request.Request. Statements run sequentially under the
// ambient transaction; without one, each statement autocommits on its own.
func (r *boltRequest) Execute(ctx context.Context, statements ...*request.Statement) (request.Response[model.RowModel], error) {
	var rows []model.RowModel
	var columns []string
	ran := false
	for _, s := range statements {
		if s.Text() == "" {
			continue
		}
		records, cols, err := r.run(ctx, s)
		if err != nil {
			return nil, err
		}
		ran = true
		if columns == nil {
			columns = cols
		}
		rows = append(rows, recordRows(records)...)
	}
	if !ran {
		return request.EmptyResponse[model.RowModel](), nil
	}
	return request.NewResponse(rows, columns, nil), nil
}

func recordRows(records []*neo4j.Record) []model.RowModel {
	rows := make([]model.RowModel, 0, len(records))
	for _, record := range records {
		rows = append(rows, model.RowModel{Values: recordValues(record)})
	}
	return rows
}

func recordValues(record *neo4j.Record) []any {
	values := make([]any, len(record.Values))
	copy(values, record.Values)
	return values
}

// recordGraph collects the nodes and relationships mentioned anywhere in the
// record, deduplicated by graph identity.
func recordGraph(record *neo4j.Record) model.GraphModel {
	b := graphBuilder{
		nodes: make(map[int64]struct{}),
		rels:  make(map[int64]struct{}),
	}
	for _, value := range record.Values {
		b.add(value)
	}
	return b.graph
}

type graphBuilder struct {
	graph model.GraphModel
	nodes map[int64]struct{}
	rels  map[int64]struct{}
}

func (b *graphBuilder) add(value any) {
	switch v := value.(type) {
	case dbtype.Node:
		b.addNode(v)
	case dbtype.Relationship:
		b.addRelationship(v)
	case dbtype.Path:
		for _, n := range v.Nodes {
			b.addNode(n)
		}
		for _, rel := range v.Relationships {
			b.addRelationship(rel)
		}
	case []any:
		for _, item := range v {
			b.add(item)
		}
	}
}

func (b *graphBuilder) addNode(n dbtype.Node) {
	if _, seen := b.nodes[n.Id]; seen {
		return
	}
	b.nodes[n.Id] = struct{}{}
	b.graph.Nodes = append(b.graph.Nodes, model.Node{
		ID:         n.Id,
		Labels:     n.Labels,
		Properties: n.Props,
	})
}

func (b *graphBuilder) addRelationship(rel dbtype.Relationship) {
	if _, seen := b.rels[rel.Id]; seen {
		return
	}
	b.rels[rel.Id] = struct{}{}
	b.graph.Relationships = append(b.graph.Relationships, model.Relationship{
		ID:         rel.Id,
		Type:       rel.Type,
		StartNode:  rel.StartId,
		EndNode:    rel.EndId,
		Properties: rel.Props,
	})
}
