package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	NodeBase
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

type knows struct {
	RelationshipBase
	Since int64
}

func (k *knows) RelType() string { return "KNOWS" }

func (k *knows) Properties() map[string]any {
	return map[string]any{"since": k.Since}
}

func (k *knows) ApplyProperties(props map[string]any) {
	if v, ok := props["since"].(int64); ok {
		k.Since = v
	}
}

func TestNodeBase_GraphID(t *testing.T) {
	p := &person{Name: "Jim"}

	_, ok := p.GraphID()
	assert.False(t, ok)

	p.BindGraphID(42)
	id, ok := p.GraphID()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	p.ClearGraphID()
	_, ok = p.GraphID()
	assert.False(t, ok)
}

func TestNodeBase_AttachDetach(t *testing.T) {
	a := &person{Name: "a"}
	b := &person{Name: "b"}

	a.Attach("FRIEND_OF", b)
	a.Attach("FRIEND_OF", b) // duplicate attach is a no-op
	require.Len(t, a.Related()["FRIEND_OF"], 1)

	a.Detach("FRIEND_OF", b)
	assert.Empty(t, a.Related()["FRIEND_OF"])

	// Detaching an unattached end is a no-op.
	a.Detach("FRIEND_OF", b)
	a.Attach("FRIEND_OF", nil)
	assert.Empty(t, a.Related()["FRIEND_OF"])
}

func TestNodeBase_RelationshipEntities(t *testing.T) {
	jim := &person{Name: "Jim"}
	lee := &person{Name: "Lee"}
	k := &knows{Since: 2010}
	k.BindEnds(jim, lee)

	jim.AddRelationshipEntity(k)
	jim.AddRelationshipEntity(k) // duplicate is a no-op
	require.Len(t, jim.RelationshipEntities(), 1)

	assert.Same(t, jim, k.Start().(*person))
	assert.Same(t, lee, k.End().(*person))

	jim.RemoveRelationshipEntity(k)
	assert.Empty(t, jim.RelationshipEntities())
	jim.RemoveRelationshipEntity(k) // no-op
}

func TestApplyProperties_PartialHydration(t *testing.T) {
	p := &person{Name: "Jim"}

	// Absent keys leave fields untouched, unknown keys are ignored.
	p.ApplyProperties(map[string]any{"age": 40})
	assert.Equal(t, "Jim", p.Name)

	p.ApplyProperties(map[string]any{"name": "James"})
	assert.Equal(t, "James", p.Name)
}
