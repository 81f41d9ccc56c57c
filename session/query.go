package session

import (
	"context"

	"github.com/zero-day-ai/ogm/model"
	"github.com/zero-day-ai/ogm/request"
)

// Query runs a caller-authored statement and returns its drained graph and
// row content. Graph fragments in the result are reconciled against the
// identity map exactly as a load would be, so mapped entities mentioned by
// the rows come back tracked by this session.
func (s *Session) Query(ctx context.Context, text string, params map[string]any) (list model.GraphRowListModel, err error) {
	ctx, span := s.span(ctx, "session.query")
	defer func() { endSpan(span, err) }()

	resp, err := s.req.QueryGraphRows(ctx, request.NewStatement(text, params))
	if err != nil {
		return model.GraphRowListModel{}, err
	}
	list, err = request.CollectGraphRows(ctx, resp)
	if err != nil {
		return model.GraphRowListModel{}, err
	}

	touched := make(map[int64]struct{})
	for _, pair := range list.Rows {
		s.hydrateGraph(pair.Graph, touched)
	}
	return list, nil
}
