package graph

// CodeGraph is an in-memory snapshot of one raw graph fetch.
//
// Nodes and edges keep their backend insertion order, which downstream view
// stages rely on for deterministic truncation and layout. Lookups by ID and
// adjacency queries are backed by secondary indexes.
//
// A CodeGraph is not safe for concurrent mutation; the view store serializes
// access to it.
type CodeGraph struct {
	nodes  []*GraphNode
	edges  []*GraphEdge
	byID   map[string]*GraphNode
	edgeID map[string]*GraphEdge

	outgoing map[string][]*GraphEdge
	incoming map[string][]*GraphEdge
}

// NewCodeGraph creates an empty graph.
func NewCodeGraph() *CodeGraph {
	return &CodeGraph{
		byID:     make(map[string]*GraphNode),
		edgeID:   make(map[string]*GraphEdge),
		outgoing: make(map[string][]*GraphEdge),
		incoming: make(map[string][]*GraphEdge),
	}
}

// Build constructs a graph from backend node and edge slices, preserving
// their order. A node with a duplicate ID replaces the earlier occurrence in
// the index but keeps the original slice position.
func Build(nodes []*GraphNode, edges []*GraphEdge) *CodeGraph {
	g := NewCodeGraph()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		g.AddEdge(e)
	}
	return g
}

// AddNode appends a node to the graph.
func (g *CodeGraph) AddNode(node *GraphNode) {
	if _, exists := g.byID[node.ID]; !exists {
		g.nodes = append(g.nodes, node)
	}
	g.byID[node.ID] = node
}

// AddEdge appends an edge to the graph. Edges referencing unknown nodes are
// kept: the view pipeline drops them from derived output by endpoint check,
// never as an error.
func (g *CodeGraph) AddEdge(edge *GraphEdge) {
	if _, exists := g.edgeID[edge.ID]; !exists {
		g.edges = append(g.edges, edge)
	}
	g.edgeID[edge.ID] = edge
	g.outgoing[edge.SourceID] = append(g.outgoing[edge.SourceID], edge)
	g.incoming[edge.TargetID] = append(g.incoming[edge.TargetID], edge)
}

// Node returns the node with the given ID, or nil.
func (g *CodeGraph) Node(id string) *GraphNode {
	return g.byID[id]
}

// Nodes returns all nodes in insertion order. The returned slice is shared;
// callers must not mutate it.
func (g *CodeGraph) Nodes() []*GraphNode {
	return g.nodes
}

// Edges returns all edges in insertion order. The returned slice is shared;
// callers must not mutate it.
func (g *CodeGraph) Edges() []*GraphEdge {
	return g.edges
}

// Outgoing returns edges originating from the node, optionally restricted to
// one edge type, in insertion order.
func (g *CodeGraph) Outgoing(nodeID string, edgeType ...EdgeType) []*GraphEdge {
	return filterEdges(g.outgoing[nodeID], edgeType)
}

// Incoming returns edges targeting the node, optionally restricted to one
// edge type, in insertion order.
func (g *CodeGraph) Incoming(nodeID string, edgeType ...EdgeType) []*GraphEdge {
	return filterEdges(g.incoming[nodeID], edgeType)
}

func filterEdges(edges []*GraphEdge, edgeType []EdgeType) []*GraphEdge {
	if len(edgeType) == 0 || edgeType[0] == "" {
		return edges
	}
	var result []*GraphEdge
	for _, e := range edges {
		if e.Type == edgeType[0] {
			result = append(result, e)
		}
	}
	return result
}

// NodeCount returns the number of nodes.
func (g *CodeGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *CodeGraph) EdgeCount() int {
	return len(g.edges)
}

// FindByName returns nodes whose name matches exactly, in insertion order.
func (g *CodeGraph) FindByName(name string) []*GraphNode {
	var result []*GraphNode
	for _, n := range g.nodes {
		if n.Name == name {
			result = append(result, n)
		}
	}
	return result
}

// Stats summarizes a graph snapshot for status output.
type Stats struct {
	Files           int `json:"file_count"`
	Functions       int `json:"function_count"`
	Classes         int `json:"class_count"`
	Variables       int `json:"variable_count"`
	Imports         int `json:"import_count"`
	TestFiles       int `json:"test_file_count"`
	CoveragePercent int `json:"coverage_percent"`
	Nodes           int `json:"node_count"`
	Edges           int `json:"edge_count"`
}

// ComputeStats counts nodes per type and estimates test coverage: the share
// of production functions whose name appears in the recorded calls of a
// function living in a test file.
func (g *CodeGraph) ComputeStats() Stats {
	stats := Stats{Nodes: len(g.nodes), Edges: len(g.edges)}

	tested := make(map[string]bool)
	var testable int

	for _, n := range g.nodes {
		switch n.Type {
		case NodeFile:
			stats.Files++
			if IsTestFile(n.FilePath) {
				stats.TestFiles++
			}
		case NodeFunction:
			stats.Functions++
			if IsTestFile(n.FilePath) {
				for _, callee := range n.Metadata.Calls {
					tested[callee] = true
				}
			} else {
				testable++
			}
		case NodeClass:
			stats.Classes++
		case NodeVariable:
			stats.Variables++
		case NodeImport:
			stats.Imports++
		}
	}

	if testable > 0 {
		covered := 0
		for _, n := range g.nodes {
			if n.Type == NodeFunction && !IsTestFile(n.FilePath) && tested[n.Name] {
				covered++
			}
		}
		stats.CoveragePercent = covered * 100 / testable
	}

	return stats
}
