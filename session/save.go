package session

import (
	"context"

	"github.com/zero-day-ai/ogm/cypher"
	"github.com/zero-day-ai/ogm/entity"
	"github.com/zero-day-ai/ogm/event"
	"github.com/zero-day-ai/ogm/types"
)

const (
	// defaultSaveDepth cascades a save through the whole reachable graph.
	defaultSaveDepth = -1
	// defaultLoadDepth loads an entity and its immediate neighbourhood.
	defaultLoadDepth = 1
)

// Save persists obj and its reachable related entities, bounded by depth
// (default: unbounded). Nodes are written before relationship entities.
// Entities whose persistent state is unchanged since their last load or save
// are skipped entirely and fire no events; every effectively-mutated entity
// fires exactly one PRE_SAVE before its statement executes and one POST_SAVE
// after the backend confirms it. A failed statement propagates without
// firing the POST_SAVE.
func (s *Session) Save(ctx context.Context, obj entity.Entity, depth ...int) (err error) {
	ctx, span := s.span(ctx, "session.save")
	defer func() { endSpan(span, err) }()

	horizon := defaultSaveDepth
	if len(depth) > 0 {
		horizon = depth[0]
	}

	scope := newSaveScope()
	switch e := obj.(type) {
	case entity.Node:
		scope.addNode(e, horizon)
	case entity.Relationship:
		scope.addRelationship(e, horizon)
	default:
		return types.NewError(types.SESSION_TYPE_UNMAPPED, "entity is neither a node nor a relationship")
	}

	for _, n := range scope.nodes {
		if err = s.saveNode(ctx, n); err != nil {
			return err
		}
	}
	if err = s.mergePlainEdges(ctx, scope.nodes); err != nil {
		return err
	}
	for _, rel := range scope.rels {
		if err = s.saveRelationship(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}

// saveScope is the depth-bounded set of entities one save touches, in visit
// order.
type saveScope struct {
	nodes     []entity.Node
	rels      []entity.Relationship
	seenNodes map[entity.Node]struct{}
	seenRels  map[entity.Relationship]struct{}
}

func newSaveScope() *saveScope {
	return &saveScope{
		seenNodes: make(map[entity.Node]struct{}),
		seenRels:  make(map[entity.Relationship]struct{}),
	}
}

func (sc *saveScope) addNode(n entity.Node, depth int) {
	if n == nil {
		return
	}
	if _, seen := sc.seenNodes[n]; seen {
		return
	}
	sc.seenNodes[n] = struct{}{}
	sc.nodes = append(sc.nodes, n)

	if depth == 0 {
		return
	}
	for _, ends := range n.Related() {
		for _, end := range ends {
			sc.addNode(end, depth-1)
		}
	}
	for _, rel := range n.RelationshipEntities() {
		sc.addRelationship(rel, depth)
	}
}

func (sc *saveScope) addRelationship(rel entity.Relationship, depth int) {
	if rel == nil {
		return
	}
	if _, seen := sc.seenRels[rel]; seen {
		return
	}
	sc.seenRels[rel] = struct{}{}

	// Both endpoints must be persisted before the relationship itself, even
	// at a zero horizon; the decrement must not cross into the unbounded
	// sentinel.
	endDepth := depth - 1
	if depth == 0 {
		endDepth = 0
	}
	sc.addNode(rel.Start(), endDepth)
	sc.addNode(rel.End(), endDepth)
	sc.rels = append(sc.rels, rel)
}

func (s *Session) saveNode(ctx context.Context, n entity.Node) error {
	id, persisted := n.GraphID()
	if !persisted {
		s.dispatch(n, event.PreSave)
		newID, found, err := s.runReturningID(ctx, cypher.CreateNode(n.Label(), n.Properties()))
		if err != nil {
			return err
		}
		if !found {
			return types.NewError(types.SESSION_ENTITY_UNSAVED, "backend returned no identifier for created node")
		}
		n.BindGraphID(newID)
		s.nodes[newID] = n
		s.takeSnapshot(n)
		s.dispatch(n, event.PostSave)
		return nil
	}

	if !s.dirty(n) {
		return nil
	}
	s.dispatch(n, event.PreSave)
	if _, _, err := s.runReturningID(ctx, cypher.UpdateNode(id, n.Properties())); err != nil {
		return err
	}
	s.nodes[id] = n
	s.takeSnapshot(n)
	s.dispatch(n, event.PostSave)
	return nil
}

func (s *Session) saveRelationship(ctx context.Context, rel entity.Relationship) error {
	startID, endID, err := relationshipEnds(rel)
	if err != nil {
		return err
	}

	id, persisted := rel.GraphID()
	if !persisted {
		s.dispatch(rel, event.PreSave)
		newID, found, err := s.runReturningID(ctx,
			cypher.CreateRelationship(startID, endID, rel.RelType(), rel.Properties()))
		if err != nil {
			return err
		}
		if !found {
			return types.NewError(types.SESSION_ENTITY_UNSAVED, "backend returned no identifier for created relationship")
		}
		rel.BindGraphID(newID)
		s.rels[newID] = rel
		s.takeSnapshot(rel)
		s.dispatch(rel, event.PostSave)
		return nil
	}

	if !s.dirty(rel) {
		return nil
	}
	s.dispatch(rel, event.PreSave)
	if _, _, err := s.runReturningID(ctx, cypher.UpdateRelationship(id, rel.Properties())); err != nil {
		return err
	}
	s.rels[id] = rel
	s.takeSnapshot(rel)
	s.dispatch(rel, event.PostSave)
	return nil
}

// mergePlainEdges ensures the plain (entity-less) edges between saved nodes
// exist. Merging is idempotent on the backend and fires no events; edges
// already ensured this session are skipped. Edges to endpoints outside the
// save horizon are left for a deeper save.
func (s *Session) mergePlainEdges(ctx context.Context, nodes []entity.Node) error {
	for _, n := range nodes {
		startID, ok := n.GraphID()
		if !ok {
			continue
		}
		for relType, ends := range n.Related() {
			for _, end := range ends {
				endID, ok := end.GraphID()
				if !ok {
					continue
				}
				key := edgeKey{startID: startID, endID: endID, relType: relType}
				if _, done := s.merged[key]; done {
					continue
				}
				if _, _, err := s.runReturningID(ctx, cypher.MergeRelationship(startID, endID, relType)); err != nil {
					return err
				}
				s.merged[key] = struct{}{}
			}
		}
	}
	return nil
}

func relationshipEnds(rel entity.Relationship) (int64, int64, error) {
	start, end := rel.Start(), rel.End()
	if start == nil || end == nil {
		return 0, 0, types.NewError(types.SESSION_ENTITY_UNSAVED, "relationship entity is missing an endpoint")
	}
	startID, ok := start.GraphID()
	if !ok {
		return 0, 0, types.NewError(types.SESSION_ENTITY_UNSAVED, "relationship start node is not persisted")
	}
	endID, ok := end.GraphID()
	if !ok {
		return 0, 0, types.NewError(types.SESSION_ENTITY_UNSAVED, "relationship end node is not persisted")
	}
	return startID, endID, nil
}
