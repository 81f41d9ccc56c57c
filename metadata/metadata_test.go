package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/ogm/entity"
)

type movie struct {
	entity.NodeBase
	Title string
}

func (m *movie) Label() string { return "Movie" }

func (m *movie) Properties() map[string]any { return map[string]any{"title": m.Title} }

func (m *movie) ApplyProperties(props map[string]any) {
	if v, ok := props["title"].(string); ok {
		m.Title = v
	}
}

type actedIn struct {
	entity.RelationshipBase
	Role string
}

func (a *actedIn) RelType() string { return "ACTED_IN" }

func (a *actedIn) Properties() map[string]any { return map[string]any{"role": a.Role} }

func (a *actedIn) ApplyProperties(props map[string]any) {
	if v, ok := props["role"].(string); ok {
		a.Role = v
	}
}

func TestMetaData_NodeLookup(t *testing.T) {
	meta := NewMetaData("example.domain")
	meta.RegisterNode(NodeInfo{
		Label:             "Movie",
		IndexedProperties: []string{"title"},
		New:               func() entity.Node { return &movie{} },
	})

	assert.Equal(t, []string{"example.domain"}, meta.Packages())

	info, ok := meta.NodeInfo("Movie")
	require.True(t, ok)
	assert.Equal(t, []string{"title"}, info.IndexedProperties)
	assert.IsType(t, &movie{}, info.New())

	_, ok = meta.NodeInfo("Unknown")
	assert.False(t, ok)
}

func TestMetaData_NodeInfoForLabels(t *testing.T) {
	meta := NewMetaData()
	meta.RegisterNode(NodeInfo{Label: "Movie", New: func() entity.Node { return &movie{} }})

	// Backends may return more labels than the domain maps.
	info, ok := meta.NodeInfoForLabels([]string{"Entity", "Movie"})
	require.True(t, ok)
	assert.Equal(t, "Movie", info.Label)

	_, ok = meta.NodeInfoForLabels([]string{"Entity"})
	assert.False(t, ok)
}

func TestMetaData_RelationshipLookup(t *testing.T) {
	meta := NewMetaData()
	meta.RegisterRelationship(RelationshipInfo{
		Type: "ACTED_IN",
		New:  func() entity.Relationship { return &actedIn{} },
	})

	info, ok := meta.RelationshipInfo("ACTED_IN")
	require.True(t, ok)
	assert.IsType(t, &actedIn{}, info.New())

	_, ok = meta.RelationshipInfo("DIRECTED")
	assert.False(t, ok)
}

func TestMetaData_ReplacementAndLabels(t *testing.T) {
	meta := NewMetaData()
	meta.RegisterNode(NodeInfo{Label: "Movie", IndexedProperties: []string{"title"}})
	meta.RegisterNode(NodeInfo{Label: "Movie", IndexedProperties: []string{"released"}})

	info, _ := meta.NodeInfo("Movie")
	assert.Equal(t, []string{"released"}, info.IndexedProperties)
	assert.Equal(t, []string{"Movie"}, meta.NodeLabels())
}
