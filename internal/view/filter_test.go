package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scopegraph/scope-go/internal/graph"
)

func sampleNodes() []*graph.GraphNode {
	return []*graph.GraphNode{
		{ID: "file-a", Name: "app.py", Type: graph.NodeFile, FilePath: "src/app.py"},
		{ID: "file-b", Name: "util.py", Type: graph.NodeFile, FilePath: "src/util.py"},
		{ID: "class-a", Name: "Widget", Type: graph.NodeClass, FilePath: "src/app.py"},
		{ID: "fn-a", Name: "run", Type: graph.NodeFunction, FilePath: "src/app.py"},
		{ID: "fn-b", Name: "helper", Type: graph.NodeFunction, FilePath: "src/util.py"},
		{ID: "var-a", Name: "DEBUG", Type: graph.NodeVariable, FilePath: "src/app.py"},
	}
}

func TestFilter_ZoomLevels(t *testing.T) {
	t.Parallel()

	nodes := sampleNodes()

	t.Run("ModulesKeepsFilesOnly", func(t *testing.T) {
		t.Parallel()
		visible := Filter(nodes, ZoomModules, nil)

		assert.Len(t, visible, 2)
		for _, n := range visible {
			assert.Equal(t, graph.NodeFile, n.Type)
		}
	})

	t.Run("FilesKeepsFilesAndClasses", func(t *testing.T) {
		t.Parallel()
		visible := Filter(nodes, ZoomFiles, nil)

		assert.Len(t, visible, 3)
		assert.Equal(t, "class-a", visible[2].ID)
	})

	t.Run("FunctionsKeepsEverything", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, Filter(nodes, ZoomFunctions, nil), len(nodes))
	})

	t.Run("PreservesInputOrder", func(t *testing.T) {
		t.Parallel()
		visible := Filter(nodes, ZoomFunctions, nil)
		for i, n := range nodes {
			assert.Equal(t, n.ID, visible[i].ID)
		}
	})
}

func TestFilter_Selection(t *testing.T) {
	t.Parallel()

	nodes := sampleNodes()

	t.Run("ExactPathMatch", func(t *testing.T) {
		t.Parallel()
		visible := Filter(nodes, ZoomFunctions, []string{"src/app.py"})

		assert.Len(t, visible, 4)
		for _, n := range visible {
			assert.Equal(t, "src/app.py", n.FilePath)
		}
	})

	t.Run("SuffixMatchToleratesAbsolutePaths", func(t *testing.T) {
		t.Parallel()
		abs := []*graph.GraphNode{
			{ID: "fn-1", Name: "run", Type: graph.NodeFunction, FilePath: "/home/dev/proj/src/app.py"},
			{ID: "fn-2", Name: "other", Type: graph.NodeFunction, FilePath: "/home/dev/proj/src/other.py"},
		}
		visible := Filter(abs, ZoomFunctions, []string{"src/app.py"})

		assert.Len(t, visible, 1)
		assert.Equal(t, "fn-1", visible[0].ID)
	})

	t.Run("NoPartialSegmentMatch", func(t *testing.T) {
		t.Parallel()
		nodes := []*graph.GraphNode{
			{ID: "fn-1", Name: "run", Type: graph.NodeFunction, FilePath: "src/snapp.py"},
		}
		assert.Empty(t, Filter(nodes, ZoomFunctions, []string{"app.py"}))
	})

	t.Run("NoMatchYieldsEmpty", func(t *testing.T) {
		t.Parallel()
		visible := Filter(nodes, ZoomFunctions, []string{"src/missing.py"})
		assert.Empty(t, visible)
	})
}

func TestVisibleEdges(t *testing.T) {
	t.Parallel()

	nodes := []*graph.GraphNode{
		{ID: "a", Name: "a", Type: graph.NodeFunction, FilePath: "a.py"},
		{ID: "b", Name: "b", Type: graph.NodeFunction, FilePath: "a.py"},
	}
	edges := []*graph.GraphEdge{
		{ID: "e1", SourceID: "a", TargetID: "b", Type: graph.EdgeCalls},
		{ID: "e2", SourceID: "a", TargetID: "ghost", Type: graph.EdgeCalls},
		{ID: "e3", SourceID: "ghost", TargetID: "b", Type: graph.EdgeCalls},
	}

	visible := VisibleEdges(edges, nodes)

	assert.Len(t, visible, 1)
	assert.Equal(t, "e1", visible[0].ID)
}
