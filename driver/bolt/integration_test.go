//go:build integration
// +build integration

package bolt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zero-day-ai/ogm/config"
	"github.com/zero-day-ai/ogm/cypher"
	"github.com/zero-day-ai/ogm/request"
	"github.com/zero-day-ai/ogm/transaction"
)

// setupNeo4jContainer starts a Neo4j container and returns a configured
// driver against it.
func setupNeo4jContainer(t *testing.T, ctx context.Context) *Driver {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration test")
	}
	if err := provider.Health(ctx); err != nil {
		t.Skip("Docker not running, skipping integration test")
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "neo4j:5",
			ExposedPorts: []string{"7687/tcp"},
			Env: map[string]string{
				"NEO4J_AUTH": "none",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("7687/tcp"),
				wait.ForLog("Started."),
			).WithDeadline(120 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Neo4j container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7687")
	require.NoError(t, err)

	conf := config.Configuration{
		Driver:                DriverName,
		URI:                   fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		Username:              "neo4j",
		Password:              "ignored",
		MaxConnectionPoolSize: 10,
		ConnectionTimeout:     30 * time.Second,
	}

	d := New()
	require.NoError(t, d.Configure(conf))
	require.NoError(t, d.Verify(ctx))
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	return d
}

func TestIntegration_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	d := setupNeo4jContainer(t, ctx)

	mgr := transaction.NewManager(d)
	req := d.Request(mgr)

	resp, err := req.QueryRows(ctx, cypher.CreateNode("Actor", map[string]any{"name": "Bruce"}))
	require.NoError(t, err)
	row, ok := resp.Next()
	require.True(t, ok)
	id := row.Values[0].(int64)
	require.NoError(t, resp.Close(ctx))

	graphResp, err := req.QueryGraph(ctx, cypher.LoadByID(id, 0))
	require.NoError(t, err)
	defer graphResp.Close(ctx)

	g, ok := graphResp.Next()
	require.True(t, ok)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "Bruce", g.Nodes[0].Properties["name"])
}

func TestIntegration_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	d := setupNeo4jContainer(t, ctx)

	mgr := transaction.NewManager(d)
	req := d.Request(mgr)

	tx, err := mgr.OpenTransaction(ctx)
	require.NoError(t, err)

	resp, err := req.QueryRows(ctx, cypher.CreateNode("Ghost", map[string]any{"name": "Nobody"}))
	require.NoError(t, err)
	row, ok := resp.Next()
	require.True(t, ok)
	id := row.Values[0].(int64)
	require.NoError(t, resp.Close(ctx))

	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Close(ctx))

	loadResp, err := req.QueryGraph(ctx, cypher.LoadByID(id, 0))
	require.NoError(t, err)
	defer loadResp.Close(ctx)
	_, ok = loadResp.Next()
	assert.False(t, ok)
}

func TestIntegration_FailedStatementSurfacesCypherError(t *testing.T) {
	ctx := context.Background()
	d := setupNeo4jContainer(t, ctx)

	mgr := transaction.NewManager(d)
	req := d.Request(mgr)

	_, err := req.QueryRows(ctx, request.NewStatement("THIS IS NOT CYPHER", nil))
	require.Error(t, err)
	var cypherErr *request.CypherError
	require.ErrorAs(t, err, &cypherErr)
	assert.Contains(t, cypherErr.StatusCode, "SyntaxError")
}
