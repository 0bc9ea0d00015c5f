package view

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopegraph/scope-go/internal/graph"
)

func makeNodes(n int) []*graph.GraphNode {
	nodes := make([]*graph.GraphNode, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, &graph.GraphNode{ID: fmt.Sprintf("n-%d", i), Type: graph.NodeFunction})
	}
	return nodes
}

func TestChooseLayout(t *testing.T) {
	t.Parallel()

	t.Run("SmallGraphAlwaysHierarchical", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, LayoutHierarchical, ChooseLayout(makeNodes(10), nil))
		assert.Equal(t, LayoutHierarchical, ChooseLayout(nil, nil))
	})

	t.Run("LargeEdgelessGraphGrid", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, LayoutGrid, ChooseLayout(makeNodes(11), nil))
	})

	t.Run("MostlyDisconnectedGrid", func(t *testing.T) {
		t.Parallel()
		nodes := makeNodes(12)
		// 2 of 12 connected: 10/12 disconnected > 0.5.
		edges := []*graph.GraphEdge{
			{ID: "e1", SourceID: "n-0", TargetID: "n-1", Type: graph.EdgeCalls},
		}
		assert.Equal(t, LayoutGrid, ChooseLayout(nodes, edges))
	})

	t.Run("MostlyConnectedHierarchical", func(t *testing.T) {
		t.Parallel()
		nodes := makeNodes(12)
		var edges []*graph.GraphEdge
		for i := 0; i < 8; i++ {
			edges = append(edges, &graph.GraphEdge{
				ID:       fmt.Sprintf("e-%d", i),
				SourceID: fmt.Sprintf("n-%d", i),
				TargetID: fmt.Sprintf("n-%d", i+1),
				Type:     graph.EdgeCalls,
			})
		}
		// 9 of 12 connected: 3/12 disconnected.
		assert.Equal(t, LayoutHierarchical, ChooseLayout(nodes, edges))
	})
}

func TestGridLayout(t *testing.T) {
	t.Parallel()

	cfg := DefaultLayoutConfig()
	nodes := makeNodes(12)

	positions, kind := Layout(nodes, nil, cfg)

	require.Equal(t, LayoutGrid, kind)
	require.Len(t, positions, 12)

	// ceil(sqrt(12)) = 4 columns, row-major in input order.
	pitchX := cfg.NodeWidth + cfg.GridGapX
	pitchY := cfg.NodeHeight + cfg.GridGapY

	assert.Equal(t, Point{X: cfg.MarginX, Y: cfg.MarginY}, positions["n-0"])
	assert.Equal(t, Point{X: cfg.MarginX + 3*pitchX, Y: cfg.MarginY}, positions["n-3"])
	assert.Equal(t, Point{X: cfg.MarginX, Y: cfg.MarginY + pitchY}, positions["n-4"])
	assert.Equal(t, Point{X: cfg.MarginX + pitchX, Y: cfg.MarginY + 2*pitchY}, positions["n-9"])
}

func TestHierarchicalLayout_Chain(t *testing.T) {
	t.Parallel()

	cfg := DefaultLayoutConfig()
	nodes := []*graph.GraphNode{
		{ID: "a", Type: graph.NodeFunction},
		{ID: "b", Type: graph.NodeFunction},
		{ID: "c", Type: graph.NodeFunction},
	}
	edges := []*graph.GraphEdge{
		{ID: "e1", SourceID: "a", TargetID: "b", Type: graph.EdgeCalls},
		{ID: "e2", SourceID: "b", TargetID: "c", Type: graph.EdgeCalls},
	}

	positions, kind := Layout(nodes, edges, cfg)

	require.Equal(t, LayoutHierarchical, kind)
	require.Len(t, positions, 3)

	// One node per rank: aligned on X, descending ranks on Y.
	assert.Equal(t, positions["a"].X, positions["b"].X)
	assert.Equal(t, positions["b"].X, positions["c"].X)
	assert.Less(t, positions["a"].Y, positions["b"].Y)
	assert.Less(t, positions["b"].Y, positions["c"].Y)

	// Rank separation is box height plus RankSep.
	assert.Equal(t, cfg.NodeHeight+cfg.RankSep, positions["b"].Y-positions["a"].Y)
}

func TestHierarchicalLayout_LeftRight(t *testing.T) {
	t.Parallel()

	cfg := DefaultLayoutConfig()
	cfg.Direction = DirectionLR
	nodes := []*graph.GraphNode{
		{ID: "a", Type: graph.NodeFunction},
		{ID: "b", Type: graph.NodeFunction},
	}
	edges := []*graph.GraphEdge{
		{ID: "e1", SourceID: "a", TargetID: "b", Type: graph.EdgeCalls},
	}

	positions, _ := Layout(nodes, edges, cfg)

	// Ranks advance along X in LR mode.
	assert.Less(t, positions["a"].X, positions["b"].X)
	assert.Equal(t, positions["a"].Y, positions["b"].Y)
}

func TestHierarchicalLayout_CycleSafe(t *testing.T) {
	t.Parallel()

	nodes := []*graph.GraphNode{
		{ID: "a", Type: graph.NodeFunction},
		{ID: "b", Type: graph.NodeFunction},
	}
	edges := []*graph.GraphEdge{
		{ID: "e1", SourceID: "a", TargetID: "b", Type: graph.EdgeCalls},
		{ID: "e2", SourceID: "b", TargetID: "a", Type: graph.EdgeCalls},
		{ID: "e3", SourceID: "a", TargetID: "a", Type: graph.EdgeCalls},
	}

	positions, kind := Layout(nodes, edges, DefaultLayoutConfig())

	require.Equal(t, LayoutHierarchical, kind)
	require.Len(t, positions, 2)
	// The back edge is dropped, so a still ranks before b.
	assert.Less(t, positions["a"].Y, positions["b"].Y)
}

func TestHierarchicalLayout_BarycenterReducesCrossing(t *testing.T) {
	t.Parallel()

	// Two parents, two children crossing in input order: p0 -> c1, p1 -> c0.
	// Barycenter ordering aligns each child under its parent.
	nodes := []*graph.GraphNode{
		{ID: "p0", Type: graph.NodeFunction},
		{ID: "p1", Type: graph.NodeFunction},
		{ID: "c0", Type: graph.NodeFunction},
		{ID: "c1", Type: graph.NodeFunction},
	}
	edges := []*graph.GraphEdge{
		{ID: "e1", SourceID: "p0", TargetID: "c1", Type: graph.EdgeCalls},
		{ID: "e2", SourceID: "p1", TargetID: "c0", Type: graph.EdgeCalls},
	}

	positions, _ := Layout(nodes, edges, DefaultLayoutConfig())

	assert.Equal(t, positions["p0"].X, positions["c1"].X)
	assert.Equal(t, positions["p1"].X, positions["c0"].X)
}

func TestLayout_Deterministic(t *testing.T) {
	t.Parallel()

	nodes := makeNodes(8)
	var edges []*graph.GraphEdge
	for i := 0; i < 7; i++ {
		edges = append(edges, &graph.GraphEdge{
			ID:       fmt.Sprintf("e-%d", i),
			SourceID: fmt.Sprintf("n-%d", i/2),
			TargetID: fmt.Sprintf("n-%d", i+1),
			Type:     graph.EdgeCalls,
		})
	}

	first, firstKind := Layout(nodes, edges, DefaultLayoutConfig())
	second, secondKind := Layout(nodes, edges, DefaultLayoutConfig())

	assert.Equal(t, firstKind, secondKind)
	assert.Equal(t, first, second)
}

func TestLayout_Empty(t *testing.T) {
	t.Parallel()

	positions, kind := Layout(nil, nil, DefaultLayoutConfig())

	assert.Empty(t, positions)
	assert.Equal(t, LayoutHierarchical, kind)
}
