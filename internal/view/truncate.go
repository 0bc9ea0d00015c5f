package view

import (
	"sort"

	"github.com/scopegraph/scope-go/internal/graph"
)

// Default render caps. Policy constants, not derived.
const (
	DefaultMaxNodes = 300
	DefaultMaxEdges = 500
)

// nodeTypePriority orders node types for truncation; lower survives first.
var nodeTypePriority = map[graph.NodeType]int{
	graph.NodeClass:    0,
	graph.NodeFile:     1,
	graph.NodeFunction: 2,
	graph.NodeVariable: 3,
	graph.NodeImport:   4,
	graph.NodeModule:   5,
}

// edgeTypePriority orders edge types for truncation; lower survives first.
var edgeTypePriority = map[graph.EdgeType]int{
	graph.EdgeCalls:    0,
	graph.EdgeInherits: 1,
	graph.EdgeImports:  2,
	graph.EdgeComposes: 3,
	graph.EdgeReads:    4,
	graph.EdgeWrites:   5,
	graph.EdgeTests:    6,
}

const unknownTypePriority = 9

func nodePriority(t graph.NodeType) int {
	if p, ok := nodeTypePriority[t]; ok {
		return p
	}
	return unknownTypePriority
}

func edgePriority(t graph.EdgeType) int {
	if p, ok := edgeTypePriority[t]; ok {
		return p
	}
	return unknownTypePriority
}

// Truncate caps the node and edge counts to performance-safe bounds.
//
// When the node count exceeds maxNodes, nodes are stable-sorted by ascending
// type priority and the first maxNodes are kept. Edges are then filtered to
// those whose both endpoints survived, independent of the edge cap; only if
// the survivors still exceed maxEdges are they stable-sorted by edge type
// priority and capped. Ties always keep input order, so truncation is
// deterministic for identical input ordering.
func Truncate(nodes []*graph.GraphNode, edges []*graph.GraphEdge, maxNodes, maxEdges int) ([]*graph.GraphNode, []*graph.GraphEdge, bool) {
	truncated := false

	if len(nodes) > maxNodes {
		ranked := make([]*graph.GraphNode, len(nodes))
		copy(ranked, nodes)
		sort.SliceStable(ranked, func(i, j int) bool {
			return nodePriority(ranked[i].Type) < nodePriority(ranked[j].Type)
		})
		nodes = ranked[:maxNodes]
		truncated = true
	}

	edges = VisibleEdges(edges, nodes)

	if len(edges) > maxEdges {
		ranked := make([]*graph.GraphEdge, len(edges))
		copy(ranked, edges)
		sort.SliceStable(ranked, func(i, j int) bool {
			return edgePriority(ranked[i].Type) < edgePriority(ranked[j].Type)
		})
		edges = ranked[:maxEdges]
		truncated = true
	}

	return nodes, edges, truncated
}
