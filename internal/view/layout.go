package view

import (
	"math"
	"sort"

	"github.com/scopegraph/scope-go/internal/graph"
)

// LayoutKind names the position-assignment strategy used for a render pass.
type LayoutKind string

const (
	LayoutHierarchical LayoutKind = "hierarchical"
	LayoutGrid         LayoutKind = "grid"
)

// Direction is the rank axis of the hierarchical layout.
type Direction string

const (
	DirectionTB Direction = "TB"
	DirectionLR Direction = "LR"
)

// Point is a 2-D position. Render positions are top-left corners.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayoutConfig holds box size, spacing and margins for both strategies.
type LayoutConfig struct {
	Direction  Direction
	NodeWidth  float64
	NodeHeight float64

	// NodeSep separates nodes within a rank, RankSep separates ranks.
	NodeSep float64
	RankSep float64

	MarginX float64
	MarginY float64

	// GridGapX and GridGapY pad grid cells beyond the node box.
	GridGapX float64
	GridGapY float64
}

// DefaultLayoutConfig returns the spacing used by the rendering surface.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Direction:  DirectionTB,
		NodeWidth:  180,
		NodeHeight: 60,
		NodeSep:    50,
		RankSep:    100,
		MarginX:    40,
		MarginY:    40,
		GridGapX:   60,
		GridGapY:   40,
	}
}

// ChooseLayout picks the strategy: grid when the graph is larger than ten
// nodes and either has no edges or more than half of its nodes are
// disconnected; hierarchical otherwise.
func ChooseLayout(nodes []*graph.GraphNode, edges []*graph.GraphEdge) LayoutKind {
	if len(nodes) <= 10 {
		return LayoutHierarchical
	}
	if len(edges) == 0 {
		return LayoutGrid
	}

	connected := make(map[string]bool, len(nodes))
	for _, e := range edges {
		connected[e.SourceID] = true
		connected[e.TargetID] = true
	}
	disconnected := 0
	for _, n := range nodes {
		if !connected[n.ID] {
			disconnected++
		}
	}
	if float64(disconnected)/float64(len(nodes)) > 0.5 {
		return LayoutGrid
	}
	return LayoutHierarchical
}

// Layout assigns a position to every node using the chosen strategy. Both
// strategies are deterministic for identical input node and edge order.
func Layout(nodes []*graph.GraphNode, edges []*graph.GraphEdge, cfg LayoutConfig) (map[string]Point, LayoutKind) {
	kind := ChooseLayout(nodes, edges)
	if kind == LayoutGrid {
		return gridLayout(nodes, cfg), kind
	}
	return hierarchicalLayout(nodes, edges, cfg), kind
}

// gridLayout places nodes row-major in input order over ceil(sqrt(n))
// columns.
func gridLayout(nodes []*graph.GraphNode, cfg LayoutConfig) map[string]Point {
	positions := make(map[string]Point, len(nodes))
	if len(nodes) == 0 {
		return positions
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	pitchX := cfg.NodeWidth + cfg.GridGapX
	pitchY := cfg.NodeHeight + cfg.GridGapY

	for i, n := range nodes {
		positions[n.ID] = Point{
			X: cfg.MarginX + float64(i%cols)*pitchX,
			Y: cfg.MarginY + float64(i/cols)*pitchY,
		}
	}
	return positions
}

// hierarchicalLayout is a layered (Sugiyama-style) layout: back edges are
// dropped via a DFS in input order, ranks come from longest-path over the
// remaining DAG, and in-rank order is refined with barycenter sweeps before
// coordinates are assigned along the configured direction. The returned
// coordinate is the node's top-left corner.
func hierarchicalLayout(nodes []*graph.GraphNode, edges []*graph.GraphEdge, cfg LayoutConfig) map[string]Point {
	positions := make(map[string]Point, len(nodes))
	if len(nodes) == 0 {
		return positions
	}

	forward := acyclicEdges(nodes, edges)

	// Longest-path ranking over the DAG.
	out := make(map[string][]string)
	indegree := make(map[string]int, len(nodes))
	for _, e := range forward {
		out[e.SourceID] = append(out[e.SourceID], e.TargetID)
		indegree[e.TargetID]++
	}

	rank := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range out[id] {
			if rank[id]+1 > rank[next] {
				rank[next] = rank[id] + 1
			}
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	// Group into ranks, initial in-rank order = input order.
	maxRank := 0
	for _, r := range rank {
		if r > maxRank {
			maxRank = r
		}
	}
	ranks := make([][]string, maxRank+1)
	for _, n := range nodes {
		r := rank[n.ID]
		ranks[r] = append(ranks[r], n.ID)
	}

	orderBarycenter(ranks, forward)

	// Coordinate assignment: center each rank, then convert node centers to
	// top-left corners by subtracting half the box size.
	var widest float64
	for _, layer := range ranks {
		if w := rankExtent(len(layer), cfg); w > widest {
			widest = w
		}
	}

	for r, layer := range ranks {
		extent := rankExtent(len(layer), cfg)
		start := (widest - extent) / 2
		for i, id := range layer {
			along := start + float64(i)*(nodePitch(cfg)) + nodeBox(cfg)/2
			across := float64(r)*(rankPitch(cfg)) + rankBox(cfg)/2

			var cx, cy float64
			if cfg.Direction == DirectionLR {
				cx, cy = across+cfg.MarginX, along+cfg.MarginY
			} else {
				cx, cy = along+cfg.MarginX, across+cfg.MarginY
			}
			positions[id] = Point{X: cx - cfg.NodeWidth/2, Y: cy - cfg.NodeHeight/2}
		}
	}

	return positions
}

// acyclicEdges drops back edges found by a DFS in input order, so ranking
// terminates on call graphs with cycles.
func acyclicEdges(nodes []*graph.GraphNode, edges []*graph.GraphEdge) []*graph.GraphEdge {
	out := make(map[string][]*graph.GraphEdge)
	for _, e := range edges {
		out[e.SourceID] = append(out[e.SourceID], e)
	}

	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(nodes))
	back := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		state[id] = onStack
		for _, e := range out[id] {
			switch state[e.TargetID] {
			case onStack:
				back[e.ID] = true
			case unvisited:
				visit(e.TargetID)
			}
		}
		state[id] = done
	}
	for _, n := range nodes {
		if state[n.ID] == unvisited {
			visit(n.ID)
		}
	}

	forward := make([]*graph.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if !back[e.ID] && !selfLoop(e) {
			forward = append(forward, e)
		}
	}
	return forward
}

func selfLoop(e *graph.GraphEdge) bool {
	return e.SourceID == e.TargetID
}

// orderBarycenter runs two down-up sweeps, stable-sorting each rank by the
// mean position of its neighbors in the adjacent rank.
func orderBarycenter(ranks [][]string, edges []*graph.GraphEdge) {
	parents := make(map[string][]string)
	children := make(map[string][]string)
	for _, e := range edges {
		children[e.SourceID] = append(children[e.SourceID], e.TargetID)
		parents[e.TargetID] = append(parents[e.TargetID], e.SourceID)
	}

	position := func(layer []string) map[string]int {
		pos := make(map[string]int, len(layer))
		for i, id := range layer {
			pos[id] = i
		}
		return pos
	}

	sweep := func(layer []string, neighborPos map[string]int, neighbors map[string][]string) {
		sort.SliceStable(layer, func(i, j int) bool {
			return barycenter(layer[i], neighborPos, neighbors) < barycenter(layer[j], neighborPos, neighbors)
		})
	}

	for pass := 0; pass < 2; pass++ {
		for r := 1; r < len(ranks); r++ {
			sweep(ranks[r], position(ranks[r-1]), parents)
		}
		for r := len(ranks) - 2; r >= 0; r-- {
			sweep(ranks[r], position(ranks[r+1]), children)
		}
	}
}

// barycenter is the mean index of a node's neighbors in the adjacent rank;
// nodes without neighbors keep a large sentinel so they sink to the end
// stably.
func barycenter(id string, neighborPos map[string]int, neighbors map[string][]string) float64 {
	sum, count := 0, 0
	for _, n := range neighbors[id] {
		if p, ok := neighborPos[n]; ok {
			sum += p
			count++
		}
	}
	if count == 0 {
		return math.MaxFloat64
	}
	return float64(sum) / float64(count)
}

func nodePitch(cfg LayoutConfig) float64 { return nodeBox(cfg) + cfg.NodeSep }
func rankPitch(cfg LayoutConfig) float64 { return rankBox(cfg) + cfg.RankSep }

// nodeBox is the box extent along a rank; rankBox is the extent across
// ranks. They swap with the layout direction.
func nodeBox(cfg LayoutConfig) float64 {
	if cfg.Direction == DirectionLR {
		return cfg.NodeHeight
	}
	return cfg.NodeWidth
}

func rankBox(cfg LayoutConfig) float64 {
	if cfg.Direction == DirectionLR {
		return cfg.NodeWidth
	}
	return cfg.NodeHeight
}

func rankExtent(count int, cfg LayoutConfig) float64 {
	if count == 0 {
		return 0
	}
	return float64(count)*nodeBox(cfg) + float64(count-1)*cfg.NodeSep
}
