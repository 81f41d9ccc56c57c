// Package cypher builds the parameterized statements the mapping layer sends
// to the drivers.
//
// The vocabulary is deliberately small and stable: every statement the
// session or the auto-index manager can emit comes from a builder in this
// package. Remote drivers ship the text verbatim; the embedded driver
// recognizes the same shapes and executes them against its in-memory graph.
package cypher

import (
	"fmt"

	"github.com/zero-day-ai/ogm/request"
)

// CreateNode builds the statement creating a node with the given label and
// properties, returning its backend identifier.
func CreateNode(label string, props map[string]any) *request.Statement {
	return request.NewStatement(
		fmt.Sprintf("CREATE (n:`%s`) SET n = $props RETURN id(n)", label),
		map[string]any{"props": props},
	)
}

// UpdateNode builds the statement replacing the properties of an existing
// node.
func UpdateNode(id int64, props map[string]any) *request.Statement {
	return request.NewStatement(
		"MATCH (n) WHERE id(n) = $id SET n += $props RETURN id(n)",
		map[string]any{"id": id, "props": props},
	)
}

// DeleteNode builds the statement deleting a node and all its relationships.
func DeleteNode(id int64) *request.Statement {
	return request.NewStatement(
		"MATCH (n) WHERE id(n) = $id DETACH DELETE n",
		map[string]any{"id": id},
	)
}

// CreateRelationship builds the statement creating a typed relationship
// between two existing nodes, returning its backend identifier.
func CreateRelationship(startID, endID int64, relType string, props map[string]any) *request.Statement {
	return request.NewStatement(
		fmt.Sprintf("MATCH (a), (b) WHERE id(a) = $startId AND id(b) = $endId "+
			"CREATE (a)-[r:`%s`]->(b) SET r = $props RETURN id(r)", relType),
		map[string]any{"startId": startID, "endId": endID, "props": props},
	)
}

// MergeRelationship builds the statement idempotently ensuring a plain
// relationship exists between two nodes.
func MergeRelationship(startID, endID int64, relType string) *request.Statement {
	return request.NewStatement(
		fmt.Sprintf("MATCH (a), (b) WHERE id(a) = $startId AND id(b) = $endId "+
			"MERGE (a)-[r:`%s`]->(b) RETURN id(r)", relType),
		map[string]any{"startId": startID, "endId": endID},
	)
}

// UpdateRelationship builds the statement replacing the properties of an
// existing relationship.
func UpdateRelationship(id int64, props map[string]any) *request.Statement {
	return request.NewStatement(
		"MATCH ()-[r]->() WHERE id(r) = $id SET r += $props RETURN id(r)",
		map[string]any{"id": id, "props": props},
	)
}

// DeleteRelationship builds the statement deleting a relationship by
// identifier.
func DeleteRelationship(id int64) *request.Statement {
	return request.NewStatement(
		"MATCH ()-[r]->() WHERE id(r) = $id DELETE r",
		map[string]any{"id": id},
	)
}

// LoadByID builds the graph-shaped load of one node and its neighbourhood to
// the given depth. Depth < 0 loads the whole reachable subgraph.
func LoadByID(id int64, depth int) *request.Statement {
	return request.NewStatement(
		fmt.Sprintf("MATCH p = (n)-[%s]-() WHERE id(n) = $id RETURN p", varLength(depth)),
		map[string]any{"id": id},
	)
}

// LoadAllByLabel builds the graph-shaped load of every node with the given
// label and their neighbourhoods to the given depth.
func LoadAllByLabel(label string, depth int) *request.Statement {
	return request.NewStatement(
		fmt.Sprintf("MATCH p = (n:`%s`)-[%s]-() RETURN p", label, varLength(depth)),
		map[string]any{},
	)
}

// LoadAllByIDs builds the graph-shaped load of the nodes with the given
// identifiers and their neighbourhoods.
func LoadAllByIDs(ids []int64, depth int) *request.Statement {
	return request.NewStatement(
		fmt.Sprintf("MATCH p = (n)-[%s]-() WHERE id(n) IN $ids RETURN p", varLength(depth)),
		map[string]any{"ids": ids},
	)
}

// CreateIndex builds the statement ensuring an index on one property of a
// label.
func CreateIndex(label, property string) *request.Statement {
	return request.NewStatement(
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS FOR (n:`%s`) ON (n.`%s`)", label, property),
		map[string]any{},
	)
}

func varLength(depth int) string {
	if depth < 0 {
		return "*0.."
	}
	return fmt.Sprintf("*0..%d", depth)
}
