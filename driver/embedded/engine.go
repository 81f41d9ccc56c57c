package embedded

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/zero-day-ai/ogm/model"
	"github.com/zero-day-ai/ogm/request"
)

// The engine executes the statement vocabulary produced by the cypher
// package against an in-memory property graph. It is not a Cypher
// interpreter: statements outside the vocabulary are rejected the way a real
// backend rejects a syntax error.
var (
	createNodeRe  = regexp.MustCompile("^CREATE \\(n:`([^`]+)`\\) SET n = \\$props RETURN id\\(n\\)$")
	updateNodeRe  = regexp.MustCompile(`^MATCH \(n\) WHERE id\(n\) = \$id SET n \+= \$props RETURN id\(n\)$`)
	deleteNodeRe  = regexp.MustCompile(`^MATCH \(n\) WHERE id\(n\) = \$id DETACH DELETE n$`)
	createRelRe   = regexp.MustCompile("^MATCH \\(a\\), \\(b\\) WHERE id\\(a\\) = \\$startId AND id\\(b\\) = \\$endId CREATE \\(a\\)-\\[r:`([^`]+)`\\]->\\(b\\) SET r = \\$props RETURN id\\(r\\)$")
	mergeRelRe    = regexp.MustCompile("^MATCH \\(a\\), \\(b\\) WHERE id\\(a\\) = \\$startId AND id\\(b\\) = \\$endId MERGE \\(a\\)-\\[r:`([^`]+)`\\]->\\(b\\) RETURN id\\(r\\)$")
	updateRelRe   = regexp.MustCompile(`^MATCH \(\)-\[r\]->\(\) WHERE id\(r\) = \$id SET r \+= \$props RETURN id\(r\)$`)
	deleteRelRe   = regexp.MustCompile(`^MATCH \(\)-\[r\]->\(\) WHERE id\(r\) = \$id DELETE r$`)
	loadByIDRe    = regexp.MustCompile(`^MATCH p = \(n\)-\[\*0\.\.(\d*)\]-\(\) WHERE id\(n\) = \$id RETURN p$`)
	loadByLabelRe = regexp.MustCompile("^MATCH p = \\(n:`([^`]+)`\\)-\\[\\*0\\.\\.(\\d*)\\]-\\(\\) RETURN p$")
	loadByIDsRe   = regexp.MustCompile(`^MATCH p = \(n\)-\[\*0\.\.(\d*)\]-\(\) WHERE id\(n\) IN \$ids RETURN p$`)
	createIndexRe = regexp.MustCompile("^CREATE INDEX IF NOT EXISTS FOR \\(n:`([^`]+)`\\) ON \\(n\\.`([^`]+)`\\)$")
)

type storedNode struct {
	id     int64
	labels []string
	props  map[string]any
}

type storedRel struct {
	id      int64
	relType string
	start   int64
	end     int64
	props   map[string]any
}

// engineResult is the neutral drained result the request layer reshapes into
// the typed response surfaces.
type engineResult struct {
	columns []string
	rows    [][]any
	graphs  []model.GraphModel
}

type engine struct {
	mu     sync.Mutex
	nodes  map[int64]*storedNode
	rels   map[int64]*storedRel
	nextID int64
}

func newEngine() *engine {
	return &engine{
		nodes:  make(map[int64]*storedNode),
		rels:   make(map[int64]*storedRel),
		nextID: 1,
	}
}

// snapshot captures the full graph state for transactional rollback.
type snapshot struct {
	nodes  map[int64]*storedNode
	rels   map[int64]*storedRel
	nextID int64
}

func (e *engine) takeSnapshot() *snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &snapshot{
		nodes:  make(map[int64]*storedNode, len(e.nodes)),
		rels:   make(map[int64]*storedRel, len(e.rels)),
		nextID: e.nextID,
	}
	for id, n := range e.nodes {
		s.nodes[id] = &storedNode{id: n.id, labels: append([]string(nil), n.labels...), props: copyProps(n.props)}
	}
	for id, r := range e.rels {
		s.rels[id] = &storedRel{id: r.id, relType: r.relType, start: r.start, end: r.end, props: copyProps(r.props)}
	}
	return s
}

func (e *engine) restore(s *snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nodes = s.nodes
	e.rels = s.rels
	e.nextID = s.nextID
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// execute runs one statement from the vocabulary. Unrecognized statements
// and references to missing entities surface as CypherErrors, mirroring a
// backend-reported statement failure.
func (e *engine) execute(s *request.Statement) (engineResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	text := s.Text()
	params := s.Parameters()

	switch {
	case createNodeRe.MatchString(text):
		label := createNodeRe.FindStringSubmatch(text)[1]
		node := &storedNode{
			id:     e.allocateID(),
			labels: []string{label},
			props:  copyProps(asProps(params["props"])),
		}
		e.nodes[node.id] = node
		return idResult("id(n)", node.id), nil

	case updateNodeRe.MatchString(text):
		node, ok := e.nodes[asID(params["id"])]
		if !ok {
			return engineResult{}, entityNotFound("node", params["id"])
		}
		for k, v := range asProps(params["props"]) {
			node.props[k] = v
		}
		return idResult("id(n)", node.id), nil

	case deleteNodeRe.MatchString(text):
		id := asID(params["id"])
		if _, ok := e.nodes[id]; !ok {
			return engineResult{}, entityNotFound("node", params["id"])
		}
		delete(e.nodes, id)
		for relID, rel := range e.rels {
			if rel.start == id || rel.end == id {
				delete(e.rels, relID)
			}
		}
		return engineResult{}, nil

	case createRelRe.MatchString(text):
		relType := createRelRe.FindStringSubmatch(text)[1]
		return e.insertRel(relType, params, asProps(params["props"]), false)

	case mergeRelRe.MatchString(text):
		relType := mergeRelRe.FindStringSubmatch(text)[1]
		return e.insertRel(relType, params, map[string]any{}, true)

	case updateRelRe.MatchString(text):
		rel, ok := e.rels[asID(params["id"])]
		if !ok {
			return engineResult{}, entityNotFound("relationship", params["id"])
		}
		for k, v := range asProps(params["props"]) {
			rel.props[k] = v
		}
		return idResult("id(r)", rel.id), nil

	case deleteRelRe.MatchString(text):
		id := asID(params["id"])
		if _, ok := e.rels[id]; !ok {
			return engineResult{}, entityNotFound("relationship", params["id"])
		}
		delete(e.rels, id)
		return engineResult{}, nil

	case loadByIDRe.MatchString(text):
		depth := parseDepth(loadByIDRe.FindStringSubmatch(text)[1])
		node, ok := e.nodes[asID(params["id"])]
		if !ok {
			return engineResult{graphs: []model.GraphModel{}}, nil
		}
		return e.graphResult([]*storedNode{node}, depth), nil

	case loadByLabelRe.MatchString(text):
		m := loadByLabelRe.FindStringSubmatch(text)
		label, depth := m[1], parseDepth(m[2])
		var roots []*storedNode
		for _, node := range e.nodes {
			if hasLabel(node, label) {
				roots = append(roots, node)
			}
		}
		return e.graphResult(roots, depth), nil

	case loadByIDsRe.MatchString(text):
		depth := parseDepth(loadByIDsRe.FindStringSubmatch(text)[1])
		var roots []*storedNode
		for _, id := range asIDs(params["ids"]) {
			if node, ok := e.nodes[id]; ok {
				roots = append(roots, node)
			}
		}
		return e.graphResult(roots, depth), nil

	case createIndexRe.MatchString(text):
		// Index structures are not modelled; the statement succeeds.
		return engineResult{}, nil
	}

	return engineResult{}, request.NewCypherError(
		"Neo.ClientError.Statement.SyntaxError",
		fmt.Sprintf("unrecognized statement: %s", text), nil)
}

func (e *engine) allocateID() int64 {
	id := e.nextID
	e.nextID++
	return id
}

func (e *engine) insertRel(relType string, params map[string]any, props map[string]any, merge bool) (engineResult, error) {
	start, end := asID(params["startId"]), asID(params["endId"])
	if _, ok := e.nodes[start]; !ok {
		return engineResult{}, entityNotFound("node", start)
	}
	if _, ok := e.nodes[end]; !ok {
		return engineResult{}, entityNotFound("node", end)
	}

	if merge {
		for _, rel := range e.rels {
			if rel.start == start && rel.end == end && rel.relType == relType {
				return idResult("id(r)", rel.id), nil
			}
		}
	}

	rel := &storedRel{
		id:      e.allocateID(),
		relType: relType,
		start:   start,
		end:     end,
		props:   copyProps(props),
	}
	e.rels[rel.id] = rel
	return idResult("id(r)", rel.id), nil
}

// graphResult walks each root's neighbourhood breadth-first to the given
// relationship depth and renders one GraphModel per root.
func (e *engine) graphResult(roots []*storedNode, depth int) engineResult {
	res := engineResult{columns: []string{"p"}, graphs: []model.GraphModel{}}

	for _, root := range roots {
		visited := map[int64]bool{root.id: true}
		relSeen := map[int64]bool{}
		frontier := []int64{root.id}
		graph := model.GraphModel{Nodes: []model.Node{wireNode(root)}}

		for hop := 0; (depth < 0 || hop < depth) && len(frontier) > 0; hop++ {
			var next []int64
			for _, nodeID := range frontier {
				for _, rel := range e.rels {
					if rel.start != nodeID && rel.end != nodeID {
						continue
					}
					if !relSeen[rel.id] {
						relSeen[rel.id] = true
						graph.Relationships = append(graph.Relationships, wireRel(rel))
					}
					other := rel.start
					if other == nodeID {
						other = rel.end
					}
					if !visited[other] {
						visited[other] = true
						graph.Nodes = append(graph.Nodes, wireNode(e.nodes[other]))
						next = append(next, other)
					}
				}
			}
			frontier = next
		}

		res.graphs = append(res.graphs, graph)
		res.rows = append(res.rows, []any{root.id})
	}
	return res
}

func wireNode(n *storedNode) model.Node {
	return model.Node{ID: n.id, Labels: append([]string(nil), n.labels...), Properties: copyProps(n.props)}
}

func wireRel(r *storedRel) model.Relationship {
	return model.Relationship{ID: r.id, Type: r.relType, StartNode: r.start, EndNode: r.end, Properties: copyProps(r.props)}
}

func hasLabel(n *storedNode, label string) bool {
	for _, l := range n.labels {
		if l == label {
			return true
		}
	}
	return false
}

func idResult(column string, id int64) engineResult {
	return engineResult{columns: []string{column}, rows: [][]any{{id}}}
}

func entityNotFound(kind string, id any) error {
	return request.NewCypherError(
		"Neo.ClientError.Statement.EntityNotFound",
		fmt.Sprintf("%s %v does not exist", kind, id), nil)
}

func parseDepth(raw string) int {
	if raw == "" {
		return -1
	}
	depth, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return depth
}

func asProps(v any) map[string]any {
	if props, ok := v.(map[string]any); ok {
		return props
	}
	return map[string]any{}
}

func asID(v any) int64 {
	switch id := v.(type) {
	case int64:
		return id
	case int:
		return int64(id)
	case float64:
		return int64(id)
	}
	return -1
}

func asIDs(v any) []int64 {
	switch ids := v.(type) {
	case []int64:
		return ids
	case []any:
		out := make([]int64, 0, len(ids))
		for _, id := range ids {
			out = append(out, asID(id))
		}
		return out
	}
	return nil
}
