package session

import (
	"context"

	"github.com/zero-day-ai/ogm/cypher"
	"github.com/zero-day-ai/ogm/entity"
	"github.com/zero-day-ai/ogm/event"
	"github.com/zero-day-ai/ogm/types"
)

// Delete removes obj from the backend. Deleting a node detaches and deletes
// it. Deleting a relationship entity deletes the relationship and then
// re-saves both endpoint nodes, whose in-memory collections the removal
// mutated; the event sequence is PRE_DELETE and POST_DELETE for the
// relationship followed by an adjacent PRE_SAVE/POST_SAVE pair per endpoint.
func (s *Session) Delete(ctx context.Context, obj entity.Entity) (err error) {
	ctx, span := s.span(ctx, "session.delete")
	defer func() { endSpan(span, err) }()

	switch e := obj.(type) {
	case entity.Relationship:
		return s.deleteRelationship(ctx, e)
	case entity.Node:
		return s.deleteNode(ctx, e)
	default:
		return types.NewError(types.SESSION_TYPE_UNMAPPED, "entity is neither a node nor a relationship")
	}
}

func (s *Session) deleteNode(ctx context.Context, n entity.Node) error {
	id, persisted := n.GraphID()
	if !persisted {
		return nil
	}

	s.dispatch(n, event.PreDelete)
	resp, err := s.req.QueryRows(ctx, cypher.DeleteNode(id))
	if err != nil {
		return err
	}
	if err := resp.Close(ctx); err != nil {
		return err
	}

	delete(s.nodes, id)
	delete(s.snapshot, n)
	n.ClearGraphID()
	s.dispatch(n, event.PostDelete)
	return nil
}

func (s *Session) deleteRelationship(ctx context.Context, rel entity.Relationship) error {
	id, persisted := rel.GraphID()
	if !persisted {
		return nil
	}

	s.dispatch(rel, event.PreDelete)
	resp, err := s.req.QueryRows(ctx, cypher.DeleteRelationship(id))
	if err != nil {
		return err
	}
	if err := resp.Close(ctx); err != nil {
		return err
	}

	delete(s.rels, id)
	delete(s.snapshot, rel)
	rel.ClearGraphID()

	start, end := rel.Start(), rel.End()
	if start != nil {
		start.RemoveRelationshipEntity(rel)
	}
	if end != nil {
		end.RemoveRelationshipEntity(rel)
	}
	s.dispatch(rel, event.PostDelete)

	// The endpoints changed in memory even when their properties did not;
	// they are re-saved unconditionally.
	for _, n := range []entity.Node{start, end} {
		if n == nil {
			continue
		}
		if err := s.forceSaveNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// forceSaveNode writes the node and fires its save events regardless of the
// change snapshot.
func (s *Session) forceSaveNode(ctx context.Context, n entity.Node) error {
	id, persisted := n.GraphID()
	if !persisted {
		return s.saveNode(ctx, n)
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
