package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/ogm/config"
	_ "github.com/zero-day-ai/ogm/driver/embedded"
	"github.com/zero-day-ai/ogm/entity"
	"github.com/zero-day-ai/ogm/event"
	"github.com/zero-day-ai/ogm/metadata"
)

// person is the node entity the tests map.
type person struct {
	entity.NodeBase
	Name string
}

func (p *person) Label() string { return "Person" }

func (p *person) Properties() map[string]any {
	return map[string]any{"name": p.Name}
}

func (p *person) ApplyProperties(props map[string]any) {
	if v, ok := props["name"].(string); ok {
		p.Name = v
	}
}

// friendship is the relationship entity the tests map.
type friendship struct {
	entity.RelationshipBase
	Since int64
}

func (f *friendship) RelType() string { return "FRIEND_OF" }

func (f *friendship) Properties() map[string]any {
	return map[string]any{"since": f.Since}
}

func (f *friendship) ApplyProperties(props map[string]any) {
	if v, ok := props["since"]; ok {
		if n, ok := asID(v); ok {
			f.Since = n
		}
	}
}

func testMetaData() *metadata.MetaData {
	meta := metadata.NewMetaData("domain")
	meta.RegisterNode(metadata.NodeInfo{
		Label:             "Person",
		IndexedProperties: []string{"name"},
		New:               func() entity.Node { return &person{} },
	})
	meta.RegisterRelationship(metadata.RelationshipInfo{
		Type: "FRIEND_OF",
		New:  func() entity.Relationship { return &friendship{} },
	})
	return meta
}

// recorder captures dispatched lifecycle events in order.
type recorder struct {
	events []event.Event
}

func (r *recorder) HandleEvent(e event.Event) { r.events = append(r.events, e) }

func (r *recorder) reset() { r.events = nil }

func (r *recorder) pairs() []event.Event { return r.events }

// newTestFactory builds a factory on an embedded backend isolated per test
// through the configuration cache key.
func newTestFactory(t *testing.T) (*Factory, *recorder) {
	t.Helper()

	conf := config.DefaultConfiguration()
	conf.Database = t.Name()

	f, err := NewFactory(context.Background(), conf, testMetaData())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close(context.Background()) })

	rec := &recorder{}
	f.Register(rec)
	return f, rec
}

func savedFriendshipGraph(t *testing.T, s *Session) (*person, *person, *friendship) {
	t.Helper()
	ctx := context.Background()

	bruce := &person{Name: "Bruce"}
	stan := &person{Name: "Stan"}
	rel := &friendship{Since: 1999}
	rel.BindEnds(bruce, stan)
	bruce.AddRelationshipEntity(rel)
	stan.AddRelationshipEntity(rel)

	require.NoError(t, s.Save(ctx, bruce))
	return bruce, stan, rel
}

func TestSession_UnchangedSaveFiresNoEvents(t *testing.T) {
	f, rec := newTestFactory(t)
	s := f.OpenSession()
	bruce, _, _ := savedFriendshipGraph(t, s)
	rec.reset()

	require.NoError(t, s.Save(context.Background(), bruce))
	assert.Empty(t, rec.events)
}

func TestSession_RelationshipUpdateFiresTwoEvents(t *testing.T) {
	f, rec := newTestFactory(t)
	s := f.OpenSession()
	_, _, rel := savedFriendshipGraph(t, s)
	rec.reset()

	rel.Since = 2001
	require.NoError(t, s.Save(context.Background(), rel))

	require.Len(t, rec.events, 2)
	assert.Equal(t, event.PreSave, rec.events[0].Type)
	assert.Same(t, rel, rec.events[0].Subject)
	assert.Equal(t, event.PostSave, rec.events[1].Type)
	assert.Same(t, rel, rec.events[1].Subject)
}

func TestSession_DeleteRelationshipFiresSixOrderedEvents(t *testing.T) {
	f, rec := newTestFactory(t)
	s := f.OpenSession()
	bruce, stan, rel := savedFriendshipGraph(t, s)
	rec.reset()

	require.NoError(t, s.Delete(context.Background(), rel))

	require.Len(t, rec.events, 6)
	assert.Equal(t, event.PreDelete, rec.events[0].Type)
	assert.Same(t, rel, rec.events[0].Subject)
	assert.Equal(t, event.PostDelete, rec.events[1].Type)
	assert.Same(t, rel, rec.events[1].Subject)

	// Each endpoint gets an adjacent PRE_SAVE/POST_SAVE pair.
	for i := 2; i < 6; i += 2 {
		assert.Equal(t, event.PreSave, rec.events[i].Type)
		assert.Equal(t, event.PostSave, rec.events[i+1].Type)
		assert.Same(t, rec.events[i].Subject, rec.events[i+1].Subject)
	}
	saved := []any{rec.events[2].Subject, rec.events[4].Subject}
	assert.ElementsMatch(t, []any{bruce, stan}, saved)

	// The in-memory collections no longer hold the relationship.
	assert.Empty(t, bruce.RelationshipEntities())
	assert.Empty(t, stan.RelationshipEntities())
	_, persisted := rel.GraphID()
	assert.False(t, persisted)
}

func TestSession_NewRelationshipCascadeFiresSixEvents(t *testing.T) {
	f, rec := newTestFactory(t)
	s := f.OpenSession()

	bruce := &person{Name: "Bruce"}
	stan := &person{Name: "Stan"}
	rel := &friendship{Since: 1999}
	rel.BindEnds(bruce, stan)
	bruce.AddRelationshipEntity(rel)

	require.NoError(t, s.Save(context.Background(), bruce))

	require.Len(t, rec.events, 6)
	// Endpoints are persisted before the relationship entity.
	assert.Same(t, bruce, rec.events[0].Subject)
	assert.Equal(t, event.PreSave, rec.events[0].Type)
	assert.Same(t, bruce, rec.events[1].Subject)
	assert.Equal(t, event.PostSave, rec.events[1].Type)
	assert.Same(t, stan, rec.events[2].Subject)
	assert.Same(t, stan, rec.events[3].Subject)
	assert.Same(t, rel, rec.events[4].Subject)
	assert.Equal(t, event.PreSave, rec.events[4].Type)
	assert.Same(t, rel, rec.events[5].Subject)
	assert.Equal(t, event.PostSave, rec.events[5].Type)

	for _, e := range []entity.Entity{bruce, stan, rel} {
		_, persisted := e.GraphID()
		assert.True(t, persisted)
	}
}

func TestSession_IdentityMapReturnsSameInstance(t *testing.T) {
	f, _ := newTestFactory(t)
	ctx := context.Background()

	writer := f.OpenSession()
	bruce, _, _ := savedFriendshipGraph(t, writer)
	id, _ := bruce.GraphID()

	reader := f.OpenSession()
	first, err := reader.Load(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := reader.Load(ctx, id)
	require.NoError(t, err)
	assert.Same(t, first, second)

	all, err := reader.LoadAll(ctx, "Person")
	require.NoError(t, err)
	for _, n := range all {
		if got, _ := n.GraphID(); got == id {
			assert.Same(t, first, n)
		}
	}
}

func TestSession_SaveAfterLoadFiresNoEvents(t *testing.T) {
	f, rec := newTestFactory(t)
	writer := f.OpenSession()
	bruce, _, _ := savedFriendshipGraph(t, writer)
	id, _ := bruce.GraphID()

	reader := f.OpenSession()
	loaded, err := reader.Load(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	rec.reset()

	require.NoError(t, reader.Save(context.Background(), loaded))
	assert.Empty(t, rec.events)
}

func TestSession_RoundTrip(t *testing.T) {
	f, _ := newTestFactory(t)
	ctx := context.Background()

	writer := f.OpenSession()
	bruce := &person{Name: "Bruce"}
	stan := &person{Name: "Stan"}
	rel := &friendship{Since: 1999}
	rel.BindEnds(bruce, stan)
	bruce.AddRelationshipEntity(rel)
	bruce.Attach("COLLEAGUE_OF", stan)
	require.NoError(t, writer.Save(ctx, bruce))

	id, _ := bruce.GraphID()

	reader := f.OpenSession()
	loaded, err := reader.Load(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	got := loaded.(*person)
	assert.Equal(t, "Bruce", got.Name)

	rels := got.RelationshipEntities()
	require.Len(t, rels, 1)
	friend := rels[0].(*friendship)
	assert.Equal(t, int64(1999), friend.Since)
	assert.Equal(t, "Stan", friend.End().(*person).Name)

	// The plain edge and the relationship entity resolve to the same
	// endpoint instance.
	colleagues := got.Related()["COLLEAGUE_OF"]
	require.Len(t, colleagues, 1)
	assert.Same(t, friend.End(), colleagues[0])
}

func TestSession_SaveRelationshipDepthZeroStopsAtEndpoints(t *testing.T) {
	f, rec := newTestFactory(t)
	s := f.OpenSession()
	ctx := context.Background()

	bruce := &person{Name: "Bruce"}
	stan := &person{Name: "Stan"}
	carol := &person{Name: "Carol"}
	rel := &friendship{Since: 1999}
	rel.BindEnds(bruce, stan)
	bruce.AddRelationshipEntity(rel)
	bruce.Attach("COLLEAGUE_OF", carol)

	require.NoError(t, s.Save(ctx, rel, 0))

	// A zero horizon still persists both endpoints, but nothing beyond them.
	for _, e := range []entity.Entity{bruce, stan, rel} {
		_, persisted := e.GraphID()
		assert.True(t, persisted)
	}
	_, persisted := carol.GraphID()
	assert.False(t, persisted)
	assert.Len(t, rec.events, 6)
}

func TestSession_LoadMissingReturnsNil(t *testing.T) {
	f, _ := newTestFactory(t)
	s := f.OpenSession()

	n, err := s.Load(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestSession_CallerManagedTransactionRollback(t *testing.T) {
	f, _ := newTestFactory(t)
	ctx := context.Background()

	s := f.OpenSession()
	tx, txCtx, err := s.BeginTransaction(ctx)
	require.NoError(t, err)

	ghost := &person{Name: "Ghost"}
	require.NoError(t, s.Save(txCtx, ghost))
	id, persisted := ghost.GraphID()
	require.True(t, persisted)

	require.NoError(t, tx.Rollback(txCtx))
	require.NoError(t, tx.Close(txCtx))

	reader := f.OpenSession()
	n, err := reader.Load(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestSession_LoadAllByIDsKeepsRequestedOrder(t *testing.T) {
	f, _ := newTestFactory(t)
	ctx := context.Background()

	writer := f.OpenSession()
	var ids []int64
	for _, name := range []string{"A", "B", "C"} {
		p := &person{Name: name}
		require.NoError(t, writer.Save(ctx, p))
		id, _ := p.GraphID()
		ids = append(ids, id)
	}

	reader := f.OpenSession()
	nodes, err := reader.LoadAllByIDs(ctx, []int64{ids[2], ids[0]})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "C", nodes[0].(*person).Name)
	assert.Equal(t, "A", nodes[1].(*person).Name)
}
