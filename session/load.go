package session

import (
	"context"
	"log/slog"
	"sort"

	"github.com/zero-day-ai/ogm/cypher"
	"github.com/zero-day-ai/ogm/entity"
	"github.com/zero-day-ai/ogm/model"
	"github.com/zero-day-ai/ogm/request"
)

// Load fetches the node with the given backend identifier and hydrates its
// neighbourhood to depth (default 1). Loading an identifier already tracked
// by this session enriches and returns the existing instance rather than
// materializing a duplicate. Returns nil when no such node exists.
func (s *Session) Load(ctx context.Context, id int64, depth ...int) (n entity.Node, err error) {
	ctx, span := s.span(ctx, "session.load")
	defer func() { endSpan(span, err) }()

	horizon := defaultLoadDepth
	if len(depth) > 0 {
		horizon = depth[0]
	}

	if _, err = s.hydrateQuery(ctx, cypher.LoadByID(id, horizon)); err != nil {
		return nil, err
	}
	return s.nodes[id], nil
}

// LoadAll fetches every node with the given label, hydrated to depth
// (default 1), ordered by backend identifier.
func (s *Session) LoadAll(ctx context.Context, label string, depth ...int) (nodes []entity.Node, err error) {
	ctx, span := s.span(ctx, "session.loadAll")
	defer func() { endSpan(span, err) }()

	horizon := defaultLoadDepth
	if len(depth) > 0 {
		horizon = depth[0]
	}

	touched, err := s.hydrateQuery(ctx, cypher.LoadAllByLabel(label, horizon))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(touched))
	for id := range touched {
		if n, ok := s.nodes[id]; ok && n.Label() == label {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		nodes = append(nodes, s.nodes[id])
	}
	return nodes, nil
}

// LoadAllByIDs fetches the nodes with the given identifiers, hydrated to
// depth (default 1), in the order requested. Identifiers with no backing
// node are skipped. Identifiers already tracked are enriched in place.
func (s *Session) LoadAllByIDs(ctx context.Context, ids []int64, depth ...int) (nodes []entity.Node, err error) {
	ctx, span := s.span(ctx, "session.loadAllByIDs")
	defer func() { endSpan(span, err) }()

	if len(ids) == 0 {
		return nil, nil
	}
	horizon := defaultLoadDepth
	if len(depth) > 0 {
		horizon = depth[0]
	}

	if _, err = s.hydrateQuery(ctx, cypher.LoadAllByIDs(ids, horizon)); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// hydrateQuery runs a graph-shaped statement and reconciles every returned
// fragment against the identity map. It returns the set of node identifiers
// the response mentioned.
func (s *Session) hydrateQuery(ctx context.Context, stmt *request.Statement) (map[int64]struct{}, error) {
	resp, err := s.req.QueryGraph(ctx, stmt)
	if err != nil {
		return nil, err
	}

	touched := make(map[int64]struct{})
	for {
		g, ok := resp.Next()
		if !ok {
			break
		}
		s.hydrateGraph(g, touched)
	}
	if err := resp.Close(ctx); err != nil {
		return nil, err
	}
	return touched, nil
}

// hydrateGraph maps one graph fragment into domain entities: nodes first,
// then relationships between the nodes now known to the identity map.
func (s *Session) hydrateGraph(g model.GraphModel, touched map[int64]struct{}) {
	for _, mn := range g.Nodes {
		touched[mn.ID] = struct{}{}
		if existing, ok := s.nodes[mn.ID]; ok {
			existing.ApplyProperties(mn.Properties)
			s.takeSnapshot(existing)
			continue
		}

		info, ok := s.meta.NodeInfoForLabels(mn.Labels)
		if !ok {
			slog.Debug("skipping unmapped node", "id", mn.ID, "labels", mn.Labels)
			continue
		}
		n := info.New()
		n.BindGraphID(mn.ID)
		n.ApplyProperties(mn.Properties)
		s.nodes[mn.ID] = n
		s.takeSnapshot(n)
	}

	for _, mr := range g.Relationships {
		start, ok := s.nodes[mr.StartNode]
		if !ok {
			continue
		}
		end, ok := s.nodes[mr.EndNode]
		if !ok {
			continue
		}

		if info, mapped := s.meta.RelationshipInfo(mr.Type); mapped {
			s.hydrateRelationshipEntity(info.New, mr, start, end)
			continue
		}

		// Plain edge: record it as already ensured so a later save of an
		// untouched graph issues nothing.
		start.Attach(mr.Type, end)
		s.merged[edgeKey{startID: mr.StartNode, endID: mr.EndNode, relType: mr.Type}] = struct{}{}
	}
}

func (s *Session) hydrateRelationshipEntity(construct func() entity.Relationship, mr model.Relationship, start, end entity.Node) {
	if existing, ok := s.rels[mr.ID]; ok {
		existing.ApplyProperties(mr.Properties)
		existing.BindEnds(start, end)
		start.AddRelationshipEntity(existing)
		end.AddRelationshipEntity(existing)
		s.takeSnapshot(existing)
		return
	}

	rel := construct()
	rel.BindGraphID(mr.ID)
	rel.ApplyProperties(mr.Properties)
	rel.BindEnds(start, end)
	start.AddRelationshipEntity(rel)
	end.AddRelationshipEntity(rel)
	s.rels[mr.ID] = rel
	s.takeSnapshot(rel)
}
