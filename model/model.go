// Package model defines the transport-neutral result shapes streamed back by
// the request pipeline.
//
// Every driver converts its backend's native records into these shapes so the
// session layer never sees transport types. Nodes and relationships here are
// wire-level fragments keyed by backend-assigned identifiers; the session is
// responsible for reconciling them against its identity map.
package model

// Node is a wire-level graph node fragment.
type Node struct {
	// ID is the backend-assigned node identifier.
	ID int64 `json:"id"`

	// Labels are the node labels, e.g. ["Actor"].
	Labels []string `json:"labels"`

	// Properties contains the node property map.
	Properties map[string]any `json:"properties,omitempty"`
}

// Relationship is a wire-level relationship fragment between two nodes.
type Relationship struct {
	// ID is the backend-assigned relationship identifier.
	ID int64 `json:"id"`

	// Type is the relationship type, e.g. "KNOWS".
	Type string `json:"type"`

	// StartNode and EndNode are the backend identifiers of the endpoints.
	StartNode int64 `json:"startNode"`
	EndNode   int64 `json:"endNode"`

	// Properties contains the relationship property map.
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphModel is a graph-shaped result fragment: the nodes and relationships
// matched by one result row.
type GraphModel struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

// RowModel is a single tabular result row. Column names travel on the
// response, not on each row.
type RowModel struct {
	Values []any `json:"row"`
}

// GraphRowModel pairs the graph fragment of a row with its raw column values.
type GraphRowModel struct {
	Graph GraphModel `json:"graph"`
	Row   []any      `json:"row"`
}

// GraphRowListModel is the fully drained list shape: every graph/row pair of
// one result, materialized at once.
type GraphRowListModel struct {
	Rows []GraphRowModel `json:"rows"`
}

// RestModel is a REST-format result row: column name to value, with graph
// entities rendered as nested maps.
type RestModel struct {
	Values map[string]any `json:"rest"`
}
