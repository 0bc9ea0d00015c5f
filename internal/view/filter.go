// Package view implements the graph view materialization engine for Scope.
//
// The engine is a pure, synchronous transformation from a raw graph snapshot
// plus the current view state to a bounded, positioned, styled render graph:
// Filter -> Truncate -> Overlay -> Style -> Layout. Every stage is a total
// function over its inputs; malformed input (missing nodes, dangling edges)
// is handled by omission, never by error.
package view

import (
	"strings"

	"github.com/scopegraph/scope-go/internal/graph"
)

// ZoomLevel is a coarse-to-fine semantic filter over node types.
type ZoomLevel string

const (
	ZoomModules   ZoomLevel = "modules"
	ZoomFiles     ZoomLevel = "files"
	ZoomFunctions ZoomLevel = "functions"
)

// MaxSelectedFiles bounds the ordered set of selected file paths.
const MaxSelectedFiles = 5

// Filter derives the semantically visible node subset from the zoom level
// and file selection.
//
// modules keeps only file nodes, files keeps file and class nodes, functions
// keeps everything. A non-empty selection further restricts to nodes whose
// file path equals a selected path or ends with "/"+path, which tolerates
// absolute-vs-relative mismatches between backend and caller. No match
// yields an empty subset.
func Filter(nodes []*graph.GraphNode, zoom ZoomLevel, selectedFiles []string) []*graph.GraphNode {
	visible := make([]*graph.GraphNode, 0, len(nodes))
	for _, n := range nodes {
		if !zoomAdmits(zoom, n.Type) {
			continue
		}
		if len(selectedFiles) > 0 && !matchesSelection(n.FilePath, selectedFiles) {
			continue
		}
		visible = append(visible, n)
	}
	return visible
}

func zoomAdmits(zoom ZoomLevel, t graph.NodeType) bool {
	switch zoom {
	case ZoomModules:
		return t == graph.NodeFile
	case ZoomFiles:
		return t == graph.NodeFile || t == graph.NodeClass
	default:
		return true
	}
}

func matchesSelection(filePath string, selected []string) bool {
	for _, sel := range selected {
		if filePath == sel || strings.HasSuffix(filePath, "/"+sel) {
			return true
		}
	}
	return false
}

// VisibleEdges returns the edges whose both endpoints are present in the
// given node set, in input order. Dangling edges are dropped silently.
func VisibleEdges(edges []*graph.GraphEdge, nodes []*graph.GraphNode) []*graph.GraphEdge {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}

	visible := make([]*graph.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if present[e.SourceID] && present[e.TargetID] {
			visible = append(visible, e)
		}
	}
	return visible
}
