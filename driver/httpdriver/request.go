package httpdriver

import (
	"context"
	"log/slog"

	"github.com/zero-day-ai/ogm/model"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/transaction"
	"github.com/zero-day-ai/ogm/types"
)

// httpRequest executes statements over the transactional endpoint. With no
// ambient transaction it uses the stateless commit URL and the server owns
// transaction completion; with an ambient transaction it posts to the
// transaction's own URL.
type httpRequest struct {
	driver  *Driver
	manager *transaction.Manager
}

// run executes one batch of statements and returns the per-statement
// results. On a backend-reported error the ambient transaction is rolled
// back before the CypherError surfaces.
func (r *httpRequest) run(ctx context.Context, contents []string, statements ...*request.Statement) ([]wireResult, error) {
	tx := r.manager.Current(ctx)

	url := r.driver.endpoint() + "/commit"
	if tx != nil {
		if tx.Status() != transaction.StatusOpen {
			return nil, types.NewError(transaction.ErrCodeTxClosed, "transaction is already closed")
		}
		loc, ok := r.driver.location(tx.ID())
		if !ok {
			return nil, types.NewError(types.DRIVER_CONNECTION_FAILED,
				"ambient transaction does not belong to this driver")
		}
		url = loc
	}

	body := payload{}
	for _, s := range statements {
		body.Statements = append(body.Statements, wireStatement{
			Statement:          s.Text(),
			Parameters:         s.Parameters(),
			ResultDataContents: contents,
		})
		slog.Debug("http request", "statement", s.Text(), "params", s.Parameters())
	}

	resp, err := r.driver.post(ctx, url, body)
	if err != nil {
		if tx != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.Warn("rollback after failed request", "error", rbErr)
			}
		}
		return nil, err
	}
	if cypherErr := resp.cypherError(); cypherErr != nil {
		// The server discards its transaction on statement failure; the
		// local state machine must follow before the error surfaces.
		if tx != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.Warn("rollback after rejected statement", "error", rbErr)
			}
		}
		return nil, cypherErr
	}
	return resp.Results, nil
}

// QueryGraph implements request.Request.
func (r *httpRequest) QueryGraph(ctx context.Context, s *request.Statement) (request.Response[model.GraphModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.GraphModel](), nil
	}
	results, err := r.run(ctx, []string{"graph"}, s)
	if err != nil {
		return nil, err
	}

	var graphs []model.GraphModel
	var columns []string
	for _, res := range results {
		columns = res.Columns
		for _, datum := range res.Data {
			graphs = append(graphs, datum.Graph.toModel())
		}
	}
	return request.NewResponse(graphs, columns, nil), nil
}

// QueryRows implements request.Request.
func (r *httpRequest) QueryRows(ctx context.Context, s *request.Statement) (request.Response[model.RowModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.RowModel](), nil
	}
	results, err := r.run(ctx, []string{"row"}, s)
	if err != nil {
		return nil, err
	}
	rows, columns := collectRows(results)
	return request.NewResponse(rows, columns, nil), nil
}

// QueryGraphRows implements request.Request.
func (r *httpRequest) QueryGraphRows(ctx context.Context, s *request.Statement) (request.Response[model.GraphRowModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.GraphRowModel](), nil
	}
	results, err := r.run(ctx, []string{"graph", "row"}, s)
	if err != nil {
		return nil, err
	}

	var pairs []model.GraphRowModel
	var columns []string
	for _, res := range results {
		columns = res.Columns
		for _, datum := range res.Data {
			pairs = append(pairs, model.GraphRowModel{Graph: datum.Graph.toModel(), Row: datum.Row})
		}
	}
	return request.NewResponse(pairs, columns, nil), nil
}

// QueryRest implements request.Request.
func (r *httpRequest) QueryRest(ctx context.Context, s *request.Statement) (request.Response[model.RestModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.RestModel](), nil
	}
	results, err := r.run(ctx, []string{"rest"}, s)
	if err != nil {
		return nil, err
	}

	var rest []model.RestModel
	var columns []string
	for _, res := range results {
		columns = res.Columns
		for _, datum := range res.Data {
			rest = append(rest, model.RestModel{Values: datum.Rest})
		}
	}
	return request.NewResponse(rest, columns, nil), nil
}

// Execute implements request.Request. All statements travel in one endpoint
// call, so a failure in any aborts the whole batch server-side.
func (r *httpRequest) Execute(ctx context.Context, statements ...*request.Statement) (request.Response[model.RowModel], error) {
	var nonEmpty []*request.Statement
	for _, s := range statements {
		if s.Text() != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return request.EmptyResponse[model.RowModel](), nil
	}

	results, err := r.run(ctx, []string{"row"}, nonEmpty...)
	if err != nil {
		return nil, err
	}
	rows, columns := collectRows(results)
	return request.NewResponse(rows, columns, nil), nil
}

func collectRows(results []wireResult) ([]model.RowModel, []string) {
	var rows []model.RowModel
	var columns []string
	for _, res := range results {
		if columns == nil {
			columns = res.Columns
		}
		for _, datum := range res.Data {
			rows = append(rows, model.RowModel{Values: datum.Row})
		}
	}
	return rows, columns
}
