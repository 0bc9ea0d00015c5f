package view

import "github.com/scopegraph/scope-go/internal/graph"

// TraceStep is one discovered node in a flow trace chain.
type TraceStep struct {
	// NodeID is the discovered node.
	NodeID string `json:"node_id"`

	// Depth is the BFS depth from the origin (origin's callees are depth 1).
	Depth int `json:"depth"`

	// Order is the global discovery order, starting at 1.
	Order int `json:"order"`

	// ParentEdgeID is the calls edge that discovered this node.
	ParentEdgeID string `json:"parent_edge_id"`
}

// FlowTraceResult is the ordered downstream call chain from an origin node.
type FlowTraceResult struct {
	// Origin is the node the trace started from. Origin itself is never
	// part of the chain.
	Origin string `json:"origin"`

	// Chain lists discovered nodes in BFS discovery order.
	Chain []TraceStep `json:"chain"`

	// EdgeOrder maps each discovering edge ID to its discovery order.
	EdgeOrder map[string]int `json:"edge_order"`
}

// Trace runs a breadth-first search over calls edges from the origin node.
//
// Order is assigned the moment a node is first discovered, not when it is
// dequeued. At each node the outgoing edges are explored in input edge
// order; there is no further tie-break. Nodes unreachable from the origin
// are absent from the chain. An origin without outgoing calls edges yields
// an empty chain, not an error.
func Trace(origin string, edges []*graph.GraphEdge) *FlowTraceResult {
	adjacency := make(map[string][]*graph.GraphEdge)
	for _, e := range edges {
		if e.Type == graph.EdgeCalls {
			adjacency[e.SourceID] = append(adjacency[e.SourceID], e)
		}
	}

	result := &FlowTraceResult{
		Origin:    origin,
		Chain:     []TraceStep{},
		EdgeOrder: make(map[string]int),
	}

	visited := map[string]bool{origin: true}
	type queued struct {
		id    string
		depth int
	}
	queue := []queued{{origin, 0}}
	order := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range adjacency[current.id] {
			if visited[edge.TargetID] {
				continue
			}
			visited[edge.TargetID] = true
			order++
			result.Chain = append(result.Chain, TraceStep{
				NodeID:       edge.TargetID,
				Depth:        current.depth + 1,
				Order:        order,
				ParentEdgeID: edge.ID,
			})
			result.EdgeOrder[edge.ID] = order
			queue = append(queue, queued{edge.TargetID, current.depth + 1})
		}
	}

	return result
}

// Members returns the set of node IDs on the trace, origin included.
func (r *FlowTraceResult) Members() map[string]bool {
	if r == nil {
		return nil
	}
	members := make(map[string]bool, len(r.Chain)+1)
	members[r.Origin] = true
	for _, step := range r.Chain {
		members[step.NodeID] = true
	}
	return members
}

// StepOrder returns the discovery order for a node, or 0 when the node is
// not on the chain.
func (r *FlowTraceResult) StepOrder(nodeID string) int {
	if r == nil {
		return 0
	}
	for _, step := range r.Chain {
		if step.NodeID == nodeID {
			return step.Order
		}
	}
	return 0
}
