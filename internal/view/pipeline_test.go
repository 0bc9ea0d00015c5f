package view

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopegraph/scope-go/internal/graph"
)

func buildSampleGraph() *graph.CodeGraph {
	return graph.Build(
		[]*graph.GraphNode{
			{ID: "file-a", Name: "app.py", Type: graph.NodeFile, FilePath: "src/app.py"},
			{ID: "fn-a", Name: "run", Type: graph.NodeFunction, FilePath: "src/app.py"},
			{ID: "fn-b", Name: "helper", Type: graph.NodeFunction, FilePath: "src/app.py"},
		},
		[]*graph.GraphEdge{
			{ID: "e1", SourceID: "fn-a", TargetID: "fn-b", Type: graph.EdgeCalls},
			{ID: "e2", SourceID: "fn-a", TargetID: "ghost", Type: graph.EdgeCalls},
		},
	)
}

func TestMaterialize_NilGraph(t *testing.T) {
	t.Parallel()

	out := Materialize(nil, NewViewState(), DefaultOptions())

	assert.NotNil(t, out.Nodes)
	assert.NotNil(t, out.Edges)
	assert.Empty(t, out.Nodes)
	assert.Empty(t, out.Edges)
	assert.False(t, out.Truncated)
}

func TestMaterialize_FullRun(t *testing.T) {
	t.Parallel()

	state := NewViewState()
	state.ZoomLevel = ZoomFunctions

	out := Materialize(buildSampleGraph(), state, DefaultOptions())

	require.Len(t, out.Nodes, 3)
	require.Len(t, out.Edges, 1)
	assert.Equal(t, "e1", out.Edges[0].ID)
	assert.Equal(t, LayoutHierarchical, out.Layout)
	assert.False(t, out.Truncated)

	for _, n := range out.Nodes {
		assert.Equal(t, "default", n.Style.Tier)
		assert.NotEmpty(t, n.Style.BorderColor)
	}
}

func TestMaterialize_ZoomDropsEdges(t *testing.T) {
	t.Parallel()

	// Modules zoom hides the functions, so their calls edge must go too.
	out := Materialize(buildSampleGraph(), NewViewState(), DefaultOptions())

	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "file-a", out.Nodes[0].ID)
	assert.Empty(t, out.Edges)
}

func TestMaterialize_EdgeEndpointsAlwaysVisible(t *testing.T) {
	t.Parallel()

	var nodes []*graph.GraphNode
	var edges []*graph.GraphEdge
	for i := 0; i < 40; i++ {
		typ := graph.NodeFunction
		if i%2 == 0 {
			typ = graph.NodeImport
		}
		nodes = append(nodes, &graph.GraphNode{ID: fmt.Sprintf("n-%d", i), Name: fmt.Sprintf("n%d", i), Type: typ, FilePath: "a.py"})
	}
	for i := 0; i < 39; i++ {
		edges = append(edges, &graph.GraphEdge{
			ID:       fmt.Sprintf("e-%d", i),
			SourceID: fmt.Sprintf("n-%d", i),
			TargetID: fmt.Sprintf("n-%d", i+1),
			Type:     graph.EdgeCalls,
		})
	}
	for j := 0; j < 5; j++ {
		edges = append(edges, &graph.GraphEdge{
			ID:       fmt.Sprintf("f-%d", j),
			SourceID: fmt.Sprintf("n-%d", 2*j+1),
			TargetID: fmt.Sprintf("n-%d", 2*j+3),
			Type:     graph.EdgeCalls,
		})
	}
	g := graph.Build(nodes, edges)

	state := NewViewState()
	state.ZoomLevel = ZoomFunctions
	opts := DefaultOptions()
	opts.MaxNodes = 10

	out := Materialize(g, state, opts)

	require.True(t, out.Truncated)
	require.Len(t, out.Nodes, 10)
	require.NotEmpty(t, out.Edges)

	visible := make(map[string]bool, len(out.Nodes))
	for _, n := range out.Nodes {
		visible[n.ID] = true
	}
	for _, e := range out.Edges {
		assert.True(t, visible[e.SourceID], "edge %s has hidden source", e.ID)
		assert.True(t, visible[e.TargetID], "edge %s has hidden target", e.ID)
	}
}

func TestMaterialize_Idempotent(t *testing.T) {
	t.Parallel()

	g := buildSampleGraph()
	state := NewViewState()
	state.ZoomLevel = ZoomFunctions
	state.FlowTrace = Trace("fn-a", g.Edges())

	first := Materialize(g, state, DefaultOptions())
	second := Materialize(g, state, DefaultOptions())

	assert.Equal(t, first, second)
}

func TestMaterialize_TraceWinsOverImpact(t *testing.T) {
	t.Parallel()

	g := buildSampleGraph()
	state := NewViewState()
	state.ZoomLevel = ZoomFunctions
	state.FlowTrace = Trace("fn-a", g.Edges())
	state.ImpactNodeIDs = []string{"fn-b"}
	state.Impact = &ImpactResult{Selected: []ImpactNode{{ID: "fn-b"}}}

	out := Materialize(g, state, DefaultOptions())

	for _, n := range out.Nodes {
		switch n.ID {
		case "fn-a":
			assert.Equal(t, "trace-origin", n.Style.Tier)
		case "fn-b":
			assert.Equal(t, "trace", n.Style.Tier)
		default:
			assert.Equal(t, string(TierDimmed), n.Style.Tier)
		}
	}
}

func TestMaterialize_ImpactOverlay(t *testing.T) {
	t.Parallel()

	g := buildSampleGraph()
	state := NewViewState()
	state.ZoomLevel = ZoomFunctions
	state.ImpactNodeIDs = []string{"fn-a"}
	state.Impact = &ImpactResult{
		DirectlyAffected: []ImpactNode{{ID: "fn-b"}},
	}

	out := Materialize(g, state, DefaultOptions())

	tiers := make(map[string]string)
	for _, n := range out.Nodes {
		tiers[n.ID] = n.Style.Tier
	}
	assert.Equal(t, string(TierSelected), tiers["fn-a"])
	assert.Equal(t, string(TierDirect), tiers["fn-b"])
	assert.Equal(t, string(TierDimmed), tiers["file-a"])
}
