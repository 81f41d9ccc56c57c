package httpdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/zero-day-ai/ogm/model"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/types"
)

// payload is the request body of the transactional endpoint.
type payload struct {
	Statements []wireStatement `json:"statements"`
}

type wireStatement struct {
	Statement          string         `json:"statement"`
	Parameters         map[string]any `json:"parameters"`
	ResultDataContents []string       `json:"resultDataContents,omitempty"`
}

// endpointResponse is the parsed reply of one endpoint call.
type endpointResponse struct {
	location string
	Results  []wireResult `json:"results"`
	Errors   []wireError  `json:"errors"`
}

type wireResult struct {
	Columns []string    `json:"columns"`
	Data    []wireDatum `json:"data"`
}

type wireDatum struct {
	Row   []any          `json:"row"`
	Graph wireGraph      `json:"graph"`
	Rest  map[string]any `json:"rest"`
}

type wireGraph struct {
	Nodes         []wireNode `json:"nodes"`
	Relationships []wireRel  `json:"relationships"`
}

// The endpoint renders graph identifiers as strings.
type wireNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

type wireRel struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	StartNode  string         `json:"startNode"`
	EndNode    string         `json:"endNode"`
	Properties map[string]any `json:"properties"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// post sends one JSON payload and parses the reply. Backend-reported errors
// are not interpreted here; callers decide what to roll back.
func (d *Driver) post(ctx context.Context, url string, body payload) (endpointResponse, error) {
	if body.Statements == nil {
		body.Statements = []wireStatement{}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return endpointResponse{}, types.WrapError(request.ErrCodeExecutionFailed, "cannot encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return endpointResponse{}, types.WrapError(types.DRIVER_CONNECTION_FAILED, "cannot build request", err)
	}
	d.authorize(req)

	resp, err := d.httpClient().Do(req)
	if err != nil {
		return endpointResponse{}, types.WrapError(types.DRIVER_CONNECTION_FAILED, "endpoint request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return endpointResponse{}, types.WrapError(request.ErrCodeExecutionFailed, "cannot read endpoint reply", err)
	}

	parsed := endpointResponse{location: resp.Header.Get("Location")}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return endpointResponse{}, types.WrapError(request.ErrCodeExecutionFailed, "cannot parse endpoint reply", err)
		}
	}
	return parsed, nil
}

// cypherError converts the first backend-reported error to a CypherError.
func (r endpointResponse) cypherError() error {
	if len(r.Errors) == 0 {
		return nil
	}
	first := r.Errors[0]
	return request.NewCypherError(first.Code, first.Message, nil)
}

func (g wireGraph) toModel() model.GraphModel {
	out := model.GraphModel{}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, model.Node{
			ID:         parseWireID(n.ID),
			Labels:     n.Labels,
			Properties: n.Properties,
		})
	}
	for _, r := range g.Relationships {
		out.Relationships = append(out.Relationships, model.Relationship{
			ID:         parseWireID(r.ID),
			Type:       r.Type,
			StartNode:  parseWireID(r.StartNode),
			EndNode:    parseWireID(r.EndNode),
			Properties: r.Properties,
		})
	}
	return out
}

func parseWireID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return -1
	}
	return id
}
