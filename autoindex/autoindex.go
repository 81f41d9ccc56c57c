// Package autoindex derives index definitions from the registered domain
// mappings and ensures they exist in the backend.
package autoindex

import (
	"context"
	"log/slog"
	"sort"

	"github.com/zero-day-ai/ogm/cypher"
	"github.com/zero-day-ai/ogm/metadata"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/types"
)

// Manager builds the indexes declared by the domain mappings. It is created
// by the session factory when auto-indexing is enabled.
type Manager struct {
	meta *metadata.MetaData
	req  request.Request
}

// NewManager creates a Manager reading definitions from meta and applying
// them through req.
func NewManager(meta *metadata.MetaData, req request.Request) *Manager {
	return &Manager{meta: meta, req: req}
}

// Statements returns the index statements the manager would apply, in
// deterministic order. Useful for dumping the derived schema.
func (m *Manager) Statements() []*request.Statement {
	labels := m.meta.NodeLabels()
	sort.Strings(labels)

	var statements []*request.Statement
	for _, label := range labels {
		info, ok := m.meta.NodeInfo(label)
		if !ok {
			continue
		}
		props := append([]string(nil), info.IndexedProperties...)
		sort.Strings(props)
		for _, prop := range props {
			statements = append(statements, cypher.CreateIndex(label, prop))
		}
	}
	return statements
}

// Build ensures every declared index exists. Individual failures are logged
// and the remaining indexes are still attempted; the first failure is
// returned after the pass completes.
func (m *Manager) Build(ctx context.Context) error {
	var firstErr error
	for _, s := range m.Statements() {
		resp, err := m.req.QueryRows(ctx, s)
		if err == nil {
			err = resp.Close(ctx)
		}
		if err != nil {
			slog.Warn("index creation failed", "statement", s.Text(), "error", err)
			if firstErr == nil {
				firstErr = types.WrapError(types.INDEX_BUILD_FAILED, "auto-index build failed", err)
			}
		}
	}
	return firstErr
}
