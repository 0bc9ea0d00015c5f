package view

import (
	"strconv"

	"github.com/scopegraph/scope-go/internal/graph"
)

// largeGraphThreshold is the visible-node count above which calls edges stop
// animating for performance.
const largeGraphThreshold = 150

// dimmedOpacity is applied to nodes and edges outside the active overlay.
const dimmedOpacity = 0.3

// NodeStyle carries the resolved visual attributes of a render node.
type NodeStyle struct {
	// Tier names the winning style source: "trace-origin", "trace",
	// an impact tier, or "default".
	Tier string `json:"tier"`

	BorderColor string  `json:"border_color"`
	BorderWidth float64 `json:"border_width"`
	Opacity     float64 `json:"opacity"`
}

// EdgeStyle carries the resolved visual attributes of a render edge.
type EdgeStyle struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`

	// DashArray is the SVG stroke dash pattern, empty for solid strokes.
	DashArray string `json:"dash_array,omitempty"`

	Animated bool    `json:"animated"`
	Opacity  float64 `json:"opacity"`

	// Label is the trace discovery order while a flow trace is active.
	Label string `json:"label,omitempty"`
}

// Badges are per-node metrics derived from the visible edge set only.
type Badges struct {
	// Incoming and Outgoing count visible edges touching the node.
	Incoming int `json:"incoming"`
	Outgoing int `json:"outgoing"`

	// TestCovered is set on function and class nodes targeted by a calls
	// edge originating in a test file.
	TestCovered bool `json:"test_covered"`

	// EntryPoint flags function nodes with many outgoing and few incoming
	// calls, suggesting a top-level driver.
	EntryPoint bool `json:"entry_point"`
}

// nodePalette maps node types to their default border color.
var nodePalette = map[graph.NodeType]string{
	graph.NodeClass:    "#8b5cf6",
	graph.NodeFunction: "#3b82f6",
	graph.NodeVariable: "#10b981",
	graph.NodeImport:   "#f59e0b",
	graph.NodeFile:     "#6366f1",
	graph.NodeModule:   "#64748b",
}

// edgePalette maps edge types to their default stroke color.
var edgePalette = map[graph.EdgeType]string{
	graph.EdgeCalls:    "#3b82f6",
	graph.EdgeInherits: "#8b5cf6",
	graph.EdgeImports:  "#f59e0b",
	graph.EdgeComposes: "#ec4899",
	graph.EdgeReads:    "#10b981",
	graph.EdgeWrites:   "#ef4444",
	graph.EdgeTests:    "#22c55e",
}

// tierPalette maps impact tiers to their border color.
var tierPalette = map[ImpactTier]string{
	TierSelected: "#f97316",
	TierDirect:   "#ef4444",
	TierIndirect: "#f59e0b",
}

// edgeDashes gives inherits, imports and reads (and tests) distinct dash
// patterns; calls and writes stay solid.
var edgeDashes = map[graph.EdgeType]string{
	graph.EdgeInherits: "8,4",
	graph.EdgeImports:  "4,4",
	graph.EdgeReads:    "2,3",
	graph.EdgeTests:    "1,4",
}

const (
	traceOriginColor = "#f97316"
	traceChainColor  = "#06b6d4"
	fallbackColor    = "#9ca3af"
)

// ComputeBadges derives per-node metrics from the visible edge set. The full
// raw graph never participates: badges describe what is on screen.
func ComputeBadges(nodes []*graph.GraphNode, edges []*graph.GraphEdge) map[string]Badges {
	byID := make(map[string]*graph.GraphNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	badges := make(map[string]Badges, len(nodes))
	for _, e := range edges {
		src := badges[e.SourceID]
		src.Outgoing++
		badges[e.SourceID] = src

		dst := badges[e.TargetID]
		dst.Incoming++
		if e.Type == graph.EdgeCalls {
			if source, ok := byID[e.SourceID]; ok && graph.IsTestFile(source.FilePath) {
				if target, ok := byID[e.TargetID]; ok &&
					(target.Type == graph.NodeFunction || target.Type == graph.NodeClass) {
					dst.TestCovered = true
				}
			}
		}
		badges[e.TargetID] = dst
	}

	for _, n := range nodes {
		b := badges[n.ID]
		if n.Type == graph.NodeFunction && b.Outgoing >= 3 && b.Incoming <= 1 {
			b.EntryPoint = true
		}
		badges[n.ID] = b
	}

	return badges
}

// resolveNodeStyle applies the overlay precedence: flow trace beats impact
// beats default type coloring.
func resolveNodeStyle(node *graph.GraphNode, trace *FlowTraceResult, traceMembers map[string]bool, impact *impactIndex) NodeStyle {
	if trace != nil {
		if node.ID == trace.Origin {
			return NodeStyle{Tier: "trace-origin", BorderColor: traceOriginColor, BorderWidth: 3, Opacity: 1}
		}
		if traceMembers[node.ID] {
			return NodeStyle{Tier: "trace", BorderColor: traceChainColor, BorderWidth: 2, Opacity: 1}
		}
		return NodeStyle{Tier: string(TierDimmed), BorderColor: typeColor(node.Type), BorderWidth: 1, Opacity: dimmedOpacity}
	}

	if impact != nil {
		tier := impact.tier(node.ID)
		if tier == TierDimmed {
			return NodeStyle{Tier: string(tier), BorderColor: typeColor(node.Type), BorderWidth: 1, Opacity: dimmedOpacity}
		}
		return NodeStyle{Tier: string(tier), BorderColor: tierPalette[tier], BorderWidth: 2, Opacity: 1}
	}

	return NodeStyle{Tier: "default", BorderColor: typeColor(node.Type), BorderWidth: 1, Opacity: 1}
}

// resolveEdgeStyle styles an edge. Calls edges animate unless the visible
// graph is large or a trace is active; trace edges always animate while
// non-trace edges render dimmed and solid for the duration of the trace.
func resolveEdgeStyle(edge *graph.GraphEdge, trace *FlowTraceResult, large bool) EdgeStyle {
	style := EdgeStyle{
		Stroke:      edgeColor(edge.Type),
		StrokeWidth: 1.5,
		DashArray:   edgeDashes[edge.Type],
		Opacity:     1,
	}

	if trace != nil {
		if order, ok := trace.EdgeOrder[edge.ID]; ok {
			style.Stroke = traceChainColor
			style.StrokeWidth = 2.5
			style.Animated = true
			style.Label = strconv.Itoa(order)
			return style
		}
		style.Opacity = dimmedOpacity
		style.DashArray = ""
		return style
	}

	if edge.Type == graph.EdgeCalls && !large {
		style.Animated = true
	}
	return style
}

func typeColor(t graph.NodeType) string {
	if c, ok := nodePalette[t]; ok {
		return c
	}
	return fallbackColor
}

func edgeColor(t graph.EdgeType) string {
	if c, ok := edgePalette[t]; ok {
		return c
	}
	return fallbackColor
}

