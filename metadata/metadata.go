// Package metadata resolves domain types to their persistence mappings.
//
// A MetaData instance is built once per session factory from a list of
// package names and explicit type registrations, then consumed as an opaque
// lookup service by the session and the auto-index manager. There is no
// classpath to scan in Go, so the package names are descriptive and the
// mappings themselves are registered programmatically, typically from an
// init function next to the domain types.
package metadata

import (
	"sync"

	"github.com/zero-day-ai/ogm/entity"
)

// NodeInfo is the persistence mapping for a node entity type.
type NodeInfo struct {
	// Label is the node label the type maps to.
	Label string

	// IndexedProperties lists property names the auto-index manager
	// should ensure indexes for.
	IndexedProperties []string

	// New constructs an empty instance for hydration.
	New func() entity.Node
}

// RelationshipInfo is the persistence mapping for a relationship entity type.
type RelationshipInfo struct {
	// Type is the relationship type the entity maps to.
	Type string

	// New constructs an empty instance for hydration.
	New func() entity.Relationship
}

// MetaData holds the domain mappings for one session factory.
// Safe for concurrent lookup.
type MetaData struct {
	mu       sync.RWMutex
	packages []string
	nodes    map[string]NodeInfo
	rels     map[string]RelationshipInfo
}

// NewMetaData creates a MetaData covering the given domain packages.
func NewMetaData(packages ...string) *MetaData {
	return &MetaData{
		packages: append([]string(nil), packages...),
		nodes:    make(map[string]NodeInfo),
		rels:     make(map[string]RelationshipInfo),
	}
}

// Packages returns the domain package names this MetaData was built from.
func (m *MetaData) Packages() []string {
	return append([]string(nil), m.packages...)
}

// RegisterNode records the mapping for a node label. A later registration
// for the same label replaces the earlier one.
func (m *MetaData) RegisterNode(info NodeInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[info.Label] = info
}

// RegisterRelationship records the mapping for a relationship type.
func (m *MetaData) RegisterRelationship(info RelationshipInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rels[info.Type] = info
}

// NodeInfo looks up the mapping for a node label.
func (m *MetaData) NodeInfo(label string) (NodeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.nodes[label]
	return info, ok
}

// NodeInfoForLabels returns the mapping for the first registered label in
// labels. Backends may return more labels than the domain maps.
func (m *MetaData) NodeInfoForLabels(labels []string) (NodeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, label := range labels {
		if info, ok := m.nodes[label]; ok {
			return info, true
		}
	}
	return NodeInfo{}, false
}

// RelationshipInfo looks up the mapping for a relationship type.
func (m *MetaData) RelationshipInfo(relType string) (RelationshipInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.rels[relType]
	return info, ok
}

// NodeLabels returns all registered node labels. Used by the auto-index
// manager to walk the schema.
func (m *MetaData) NodeLabels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	labels := make([]string, 0, len(m.nodes))
	for label := range m.nodes {
		labels = append(labels, label)
	}
	return labels
}
