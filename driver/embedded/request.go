package embedded

import (
	"context"
	"log/slog"

	"github.com/zero-day-ai/ogm/model"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/transaction"
	"github.com/zero-day-ai/ogm/types"
)

func errNotConfigured() error {
	return types.NewError(types.DRIVER_CLOSED, "embedded driver is not configured")
}

// embeddedRequest executes statements against the in-memory engine under the
// ambient transaction, opening an autocommit transaction when none exists.
type embeddedRequest struct {
	driver  *Driver
	manager *transaction.Manager
}

// execute resolves the ambient transaction, runs the statement, and returns
// the drained result plus the transaction the statement ran under. On
// failure the ambient transaction is rolled back (and closed, if this call
// opened it) before the error surfaces.
func (r *embeddedRequest) execute(ctx context.Context, s *request.Statement) (engineResult, transaction.Transaction, error) {
	r.driver.mu.Lock()
	eng := r.driver.engine
	r.driver.mu.Unlock()
	if eng == nil {
		return engineResult{}, nil, errNotConfigured()
	}

	tx := r.manager.Current(ctx)
	opened := false
	if tx == nil {
		var err error
		tx, err = r.manager.OpenAutoCommit(ctx)
		if err != nil {
			return engineResult{}, nil, err
		}
		opened = true
	} else if tx.Status() != transaction.StatusOpen {
		return engineResult{}, nil, types.NewError(transaction.ErrCodeTxClosed,
			"transaction is already closed")
	}

	slog.Debug("embedded request", "statement", s.Text(), "params", s.Parameters())

	res, err := eng.execute(s)
	if err != nil {
		// Never leave the transaction in an ambiguous state: roll back
		// before surfacing the backend error.
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.Warn("rollback after failed statement", "error", rbErr)
		}
		// The pipeline owns autocommit transactions, whether this call or
		// an earlier statement of the batch opened one.
		if opened || tx.IsAutoCommit() {
			_ = tx.Close(ctx)
		}
		return engineResult{}, nil, err
	}
	return res, tx, nil
}

// completeOnClose commits and closes the transaction when it is an
// autocommit one. Runs from Response.Close exactly once.
func completeOnClose(tx transaction.Transaction) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if tx == nil || !tx.IsAutoCommit() {
			return nil
		}
		if tx.Status() == transaction.StatusOpen {
			if err := tx.Commit(ctx); err != nil {
				_ = tx.Close(ctx)
				return err
			}
		}
		return tx.Close(ctx)
	}
}

// QueryGraph implements request.Request.
func (r *embeddedRequest) QueryGraph(ctx context.Context, s *request.Statement) (request.Response[model.GraphModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.GraphModel](), nil
	}
	res, tx, err := r.execute(ctx, s)
	if err != nil {
		return nil, err
	}
	return request.NewResponse(res.graphs, res.columns, completeOnClose(tx)), nil
}

// QueryRows implements request.Request.
func (r *embeddedRequest) QueryRows(ctx context.Context, s *request.Statement) (request.Response[model.RowModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.RowModel](), nil
	}
	res, tx, err := r.execute(ctx, s)
	if err != nil {
		return nil, err
	}
	return request.NewResponse(rowModels(res), res.columns, completeOnClose(tx)), nil
}

// QueryGraphRows implements request.Request.
func (r *embeddedRequest) QueryGraphRows(ctx context.Context, s *request.Statement) (request.Response[model.GraphRowModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.GraphRowModel](), nil
	}
	res, tx, err := r.execute(ctx, s)
	if err != nil {
		return nil, err
	}

	pairs := make([]model.GraphRowModel, 0, len(res.graphs))
	for i, graph := range res.graphs {
		pair := model.GraphRowModel{Graph: graph}
		if i < len(res.rows) {
			pair.Row = res.rows[i]
		}
		pairs = append(pairs, pair)
	}
	return request.NewResponse(pairs, res.columns, completeOnClose(tx)), nil
}

// QueryRest implements request.Request.
func (r *embeddedRequest) QueryRest(ctx context.Context, s *request.Statement) (request.Response[model.RestModel], error) {
	if s.Text() == "" {
		return request.EmptyResponse[model.RestModel](), nil
	}
	res, tx, err := r.execute(ctx, s)
	if err != nil {
		return nil, err
	}

	rest := make([]model.RestModel, 0, len(res.rows))
	for _, row := range res.rows {
		values := make(map[string]any, len(res.columns))
		for i, col := range res.columns {
			if i < len(row) {
				values[col] = row[i]
			}
		}
		rest = append(rest, model.RestModel{Values: values})
	}
	return request.NewResponse(rest, res.columns, completeOnClose(tx)), nil
}

// Execute implements request.Request. All statements run under one
// transaction; any failure aborts the whole batch.
func (r *embeddedRequest) Execute(ctx context.Context, statements ...*request.Statement) (request.Response[model.RowModel], error) {
	var (
		rows    []model.RowModel
		columns []string
		tx      transaction.Transaction
	)
	for _, s := range statements {
		if s.Text() == "" {
			continue
		}
		res, stmtTx, err := r.execute(ctx, s)
		if err != nil {
			return nil, err
		}
		tx = stmtTx
		if columns == nil {
			columns = res.columns
		}
		rows = append(rows, rowModels(res)...)
	}
	if tx == nil {
		return request.EmptyResponse[model.RowModel](), nil
	}
	return request.NewResponse(rows, columns, completeOnClose(tx)), nil
}

func rowModels(res engineResult) []model.RowModel {
	rows := make([]model.RowModel, 0, len(res.rows))
	for _, row := range res.rows {
		rows = append(rows, model.RowModel{Values: row})
	}
	return rows
}
