package view

import "github.com/scopegraph/scope-go/internal/graph"

// Options bounds and configures a materialization run.
type Options struct {
	MaxNodes int
	MaxEdges int
	Layout   LayoutConfig
}

// DefaultOptions returns the default render caps and layout spacing.
func DefaultOptions() Options {
	return Options{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
		Layout:   DefaultLayoutConfig(),
	}
}

// RenderNode is an ephemeral, fully derived view record. It owns no
// cross-run identity beyond the underlying GraphNode ID.
type RenderNode struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     graph.NodeType `json:"type"`
	FilePath string         `json:"file_path"`
	Position Point          `json:"position"`
	Style    NodeStyle      `json:"style"`
	Badges   Badges         `json:"badges"`
}

// RenderEdge is the edge counterpart of RenderNode.
type RenderEdge struct {
	ID       string         `json:"id"`
	SourceID string         `json:"source_id"`
	TargetID string         `json:"target_id"`
	Type     graph.EdgeType `json:"type"`
	Style    EdgeStyle      `json:"style"`
}

// RenderGraph is the output of one pipeline run, ready for the rendering
// surface.
type RenderGraph struct {
	Nodes     []RenderNode `json:"nodes"`
	Edges     []RenderEdge `json:"edges"`
	Layout    LayoutKind   `json:"layout"`
	Truncated bool         `json:"truncated"`
}

// ViewState is the full view-mode input of the pipeline.
type ViewState struct {
	ZoomLevel     ZoomLevel
	SelectedFiles []string

	ImpactNodeIDs []string
	Impact        *ImpactResult

	FlowTrace *FlowTraceResult
}

// NewViewState returns the initial view state.
func NewViewState() ViewState {
	return ViewState{ZoomLevel: ZoomModules}
}

// Materialize runs the full pipeline: Filter -> Truncate -> Overlay ->
// Style -> Layout. It is a pure function of the raw graph and view state;
// identical inputs always yield identical output, and it never fails.
func Materialize(g *graph.CodeGraph, state ViewState, opts Options) RenderGraph {
	if g == nil {
		return RenderGraph{Nodes: []RenderNode{}, Edges: []RenderEdge{}, Layout: LayoutHierarchical}
	}

	nodes := Filter(g.Nodes(), state.ZoomLevel, state.SelectedFiles)
	edges := VisibleEdges(g.Edges(), nodes)
	nodes, edges, truncated := Truncate(nodes, edges, opts.MaxNodes, opts.MaxEdges)

	badges := ComputeBadges(nodes, edges)
	positions, layout := Layout(nodes, edges, opts.Layout)

	// Flow trace wins over impact in the styling precedence; both are held
	// independently on the state.
	trace := state.FlowTrace
	var impact *impactIndex
	if trace == nil {
		impact = newImpactIndex(state.ImpactNodeIDs, state.Impact)
	}
	traceMembers := trace.Members()
	large := len(nodes) > largeGraphThreshold

	out := RenderGraph{
		Nodes:     make([]RenderNode, 0, len(nodes)),
		Edges:     make([]RenderEdge, 0, len(edges)),
		Layout:    layout,
		Truncated: truncated,
	}

	for _, n := range nodes {
		out.Nodes = append(out.Nodes, RenderNode{
			ID:       n.ID,
			Name:     n.Name,
			Type:     n.Type,
			FilePath: n.FilePath,
			Position: positions[n.ID],
			Style:    resolveNodeStyle(n, trace, traceMembers, impact),
			Badges:   badges[n.ID],
		})
	}
	for _, e := range edges {
		out.Edges = append(out.Edges, RenderEdge{
			ID:       e.ID,
			SourceID: e.SourceID,
			TargetID: e.TargetID,
			Type:     e.Type,
			Style:    resolveEdgeStyle(e, trace, large),
		})
	}

	return out
}
