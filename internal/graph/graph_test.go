package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raildex/retrieval-engine/internal/store"
)

func TestDependencyGraph_RegisterAndDuality(t *testing.T) {
	g := New()
	ctx := context.Background()

	require.NoError(t, g.Register(ctx, "User", "model", []store.GraphEdge{{To: "Account", Kind: "associates"}}))
	require.NoError(t, g.Register(ctx, "Account", "model", nil))

	deps, err := g.DependenciesOf(ctx, "User")
	require.NoError(t, err)
	assert.Equal(t, []string{"Account"}, deps)

	dependents, err := g.DependentsOf(ctx, "Account")
	require.NoError(t, err)
	assert.Equal(t, []string{"User"}, dependents)
}

func TestDependencyGraph_RegisterIsIdempotent(t *testing.T) {
	g := New()
	ctx := context.Background()

	require.NoError(t, g.Register(ctx, "User", "model", []store.GraphEdge{{To: "Account"}}))
	require.NoError(t, g.Register(ctx, "User", "model", []store.GraphEdge{{To: "Profile"}}))

	deps, err := g.DependenciesOf(ctx, "User")
	require.NoError(t, err)
	assert.Equal(t, []string{"Profile"}, deps)

	dependents, err := g.DependentsOf(ctx, "Account")
	require.NoError(t, err)
	assert.Empty(t, dependents)

	types, err := g.SubgraphForTypes(ctx, []string{"model"})
	require.NoError(t, err)
	assert.Contains(t, types, "User")
}

func TestDependencyGraph_TraverseAndShortestPath(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.Register(ctx, "A", "model", []store.GraphEdge{{To: "B"}}))
	require.NoError(t, g.Register(ctx, "B", "model", []store.GraphEdge{{To: "C"}}))
	require.NoError(t, g.Register(ctx, "C", "model", nil))

	forward, err := g.TraverseForward(ctx, "A", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, forward)

	path, err := g.ShortestPath(ctx, "A", "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, path)

	_, err = g.ShortestPath(ctx, "C", "A")
	assert.Error(t, err)
}

func TestDependencyGraph_AffectedBy(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.Register(ctx, "Controller", "controller", []store.GraphEdge{{To: "Service"}}))
	require.NoError(t, g.Register(ctx, "Service", "service", []store.GraphEdge{{To: "Model"}}))
	require.NoError(t, g.Register(ctx, "Model", "model", nil))

	affected := g.AffectedBy([]string{"Model"})
	assert.Equal(t, []string{"Controller", "Service"}, affected)
}

func TestDependencyGraph_ToMapFromMapRoundTrip(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.Register(ctx, "A", "model", []store.GraphEdge{{To: "B", Kind: "calls"}}))
	require.NoError(t, g.Register(ctx, "B", "model", nil))

	m := g.ToMap()
	rebuilt := FromMap(m)

	deps, err := rebuilt.DependenciesOf(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, deps)
}

func TestDependencyGraph_PageRank_SumsToApproximatelyOne(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.Register(ctx, "A", "model", []store.GraphEdge{{To: "B"}}))
	require.NoError(t, g.Register(ctx, "B", "model", []store.GraphEdge{{To: "A"}}))

	ranks := g.PageRank()
	require.Len(t, ranks, 2)
	sum := ranks["A"] + ranks["B"]
	assert.InDelta(t, 1.0, sum, 0.01)
}

func TestDependencyGraph_Analyze_OrphansDeadEndsHubsCycles(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.Register(ctx, "Lonely", "model", nil))
	require.NoError(t, g.Register(ctx, "Hub", "model", nil))
	require.NoError(t, g.Register(ctx, "A", "model", []store.GraphEdge{{To: "Hub"}, {To: "B"}}))
	require.NoError(t, g.Register(ctx, "B", "model", []store.GraphEdge{{To: "A"}, {To: "Hub"}}))

	report := g.Analyze(1)
	assert.Contains(t, report.Orphans, "Lonely")
	assert.Contains(t, report.DeadEnds, "Lonely")
	assert.NotContains(t, report.DeadEnds, "Hub")
	require.Len(t, report.Hubs, 1)
	assert.Equal(t, "Hub", report.Hubs[0])

	require.Len(t, report.Cycles, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, report.Cycles[0])
}

func TestDependencyGraph_Analyze_Bridges(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.Register(ctx, "A", "model", []store.GraphEdge{{To: "B"}}))
	require.NoError(t, g.Register(ctx, "B", "model", []store.GraphEdge{{To: "C"}}))
	require.NoError(t, g.Register(ctx, "C", "model", nil))

	report := g.Analyze(0)
	require.Len(t, report.Bridges, 2)
	assert.False(t, report.BridgesSampled)
}
