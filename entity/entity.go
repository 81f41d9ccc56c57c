// Package entity defines the contract between domain objects and the mapping
// layer.
//
// The mapper performs no reflection: a domain type participates by embedding
// NodeBase or RelationshipBase for the generic state (backend identifier,
// attached edges) and implementing the handful of self-describing methods
// (Label, Properties, ApplyProperties) itself. This keeps the mapping
// explicit and the domain types plain Go structs.
package entity

// Entity is implemented by every mapped domain object, node or relationship.
type Entity interface {
	// GraphID returns the backend-assigned identifier and whether the
	// entity has ever been persisted.
	GraphID() (int64, bool)

	// BindGraphID records the backend-assigned identifier after a create.
	BindGraphID(id int64)

	// ClearGraphID forgets the backend identifier after a delete.
	ClearGraphID()

	// Properties renders the entity's persistent state as a property map.
	Properties() map[string]any

	// ApplyProperties hydrates the entity's state from a property map.
	// Unknown keys are ignored; absent keys leave fields untouched so a
	// partial load can be enriched later.
	ApplyProperties(props map[string]any)
}

// Node is a mapped node entity.
type Node interface {
	Entity

	// Label returns the node label this type maps to.
	Label() string

	// Related returns the plain outgoing edges by relationship type.
	Related() map[string][]Node

	// Attach records a plain outgoing edge. Attaching an already-attached
	// end is a no-op.
	Attach(relType string, end Node)

	// Detach removes a plain outgoing edge, matched by identity.
	Detach(relType string, end Node)

	// RelationshipEntities returns the rich relationships this node holds.
	RelationshipEntities() []Relationship

	// AddRelationshipEntity records a rich relationship on this node.
	AddRelationshipEntity(rel Relationship)

	// RemoveRelationshipEntity removes a rich relationship, matched by
	// identity.
	RemoveRelationshipEntity(rel Relationship)
}

// Relationship is a mapped relationship entity: a relationship carrying its
// own identity and properties, with node entities at both ends.
type Relationship interface {
	Entity

	// RelType returns the relationship type this entity maps to.
	RelType() string

	// Start and End return the endpoint node entities.
	Start() Node
	End() Node

	// BindEnds sets both endpoints. Used during hydration and by domain
	// constructors.
	BindEnds(start, end Node)
}

// NodeBase supplies the generic node state. Embed it by pointer-receiver
// value in domain structs:
//
//	type Actor struct {
//	    entity.NodeBase
//	    Name string
//	}
type NodeBase struct {
	id      int64
	hasID   bool
	related map[string][]Node
	rels    []Relationship
}

// GraphID implements Entity.
func (b *NodeBase) GraphID() (int64, bool) { return b.id, b.hasID }

// BindGraphID implements Entity.
func (b *NodeBase) BindGraphID(id int64) {
	b.id = id
	b.hasID = true
}

// ClearGraphID implements Entity.
func (b *NodeBase) ClearGraphID() {
	b.id = 0
	b.hasID = false
}

// Related implements Node.
func (b *NodeBase) Related() map[string][]Node { return b.related }

// Attach implements Node.
func (b *NodeBase) Attach(relType string, end Node) {
	if end == nil {
		return
	}
	if b.related == nil {
		b.related = make(map[string][]Node)
	}
	for _, existing := range b.related[relType] {
		if existing == end {
			return
		}
	}
	b.related[relType] = append(b.related[relType], end)
}

// Detach implements Node.
func (b *NodeBase) Detach(relType string, end Node) {
	ends := b.related[relType]
	for i, existing := range ends {
		if existing == end {
			b.related[relType] = append(append([]Node(nil), ends[:i]...), ends[i+1:]...)
			return
		}
	}
}

// RelationshipEntities implements Node.
func (b *NodeBase) RelationshipEntities() []Relationship { return b.rels }

// AddRelationshipEntity implements Node.
func (b *NodeBase) AddRelationshipEntity(rel Relationship) {
	if rel == nil {
		return
	}
	for _, existing := range b.rels {
		if existing == rel {
			return
		}
	}
	b.rels = append(b.rels, rel)
}

// RemoveRelationshipEntity implements Node.
func (b *NodeBase) RemoveRelationshipEntity(rel Relationship) {
	for i, existing := range b.rels {
		if existing == rel {
			b.rels = append(append([]Relationship(nil), b.rels[:i]...), b.rels[i+1:]...)
			return
		}
	}
}

// RelationshipBase supplies the generic relationship-entity state.
type RelationshipBase struct {
	id    int64
	hasID bool
	start Node
	end   Node
}

// GraphID implements Entity.
func (b *RelationshipBase) GraphID() (int64, bool) { return b.id, b.hasID }

// BindGraphID implements Entity.
func (b *RelationshipBase) BindGraphID(id int64) {
	b.id = id
	b.hasID = true
}

// ClearGraphID implements Entity.
func (b *RelationshipBase) ClearGraphID() {
	b.id = 0
	b.hasID = false
}

// Start implements Relationship.
func (b *RelationshipBase) Start() Node { return b.start }

// End implements Relationship.
func (b *RelationshipBase) End() Node { return b.end }

// BindEnds implements Relationship.
func (b *RelationshipBase) BindEnds(start, end Node) {
	b.start = start
	b.end = end
}
