package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopegraph/scope-go/internal/graph"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()

	store := NewSnapshotStore()
	require.NoError(t, store.Initialize(t.TempDir(), false))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Nodes: []*graph.GraphNode{
			{ID: "file-1", Name: "app.py", Type: graph.NodeFile, FilePath: "src/app.py"},
			{ID: "fn-1", Name: "run", Type: graph.NodeFunction, FilePath: "src/app.py"},
		},
		Edges: []*graph.GraphEdge{
			{ID: "e1", SourceID: "file-1", TargetID: "fn-1", Type: graph.EdgeCalls},
		},
	}
}

func TestSnapshotStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGraph(ctx, "demo", testSnapshot()))

	loaded, err := store.LoadGraph(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, "run", loaded.Nodes[1].Name)
	require.Len(t, loaded.Edges, 1)
	assert.Equal(t, graph.EdgeCalls, loaded.Edges[0].Type)
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	loaded, err := store.LoadGraph(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSnapshotStore_Meta(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGraph(ctx, "demo", testSnapshot()))

	meta, err := store.GetMeta(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "demo", meta.ProjectID)
	assert.False(t, meta.FetchedAt.IsZero())
	assert.Equal(t, 2, meta.Stats.Nodes)
	assert.Equal(t, 1, meta.Stats.Files)
	assert.Equal(t, 1, meta.Stats.Functions)

	missing, err := store.GetMeta(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSnapshotStore_ListProjects(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGraph(ctx, "alpha", testSnapshot()))
	require.NoError(t, store.SaveGraph(ctx, "beta", testSnapshot()))

	metas, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)

	ids := []string{metas[0].ProjectID, metas[1].ProjectID}
	assert.Contains(t, ids, "alpha")
	assert.Contains(t, ids, "beta")
}

func TestSnapshotStore_Remove(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGraph(ctx, "demo", testSnapshot()))
	require.NoError(t, store.Remove(ctx, "demo"))

	loaded, err := store.LoadGraph(ctx, "demo")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	meta, err := store.GetMeta(ctx, "demo")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestSnapshotStore_OverwriteReplaces(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGraph(ctx, "demo", testSnapshot()))
	require.NoError(t, store.SaveGraph(ctx, "demo", &Snapshot{
		Nodes: []*graph.GraphNode{
			{ID: "only", Name: "only", Type: graph.NodeFunction, FilePath: "a.py"},
		},
	}))

	loaded, err := store.LoadGraph(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, "only", loaded.Nodes[0].ID)
}

func TestSnapshotStore_NotInitialized(t *testing.T) {
	t.Parallel()

	store := NewSnapshotStore()

	_, err := store.LoadGraph(context.Background(), "demo")
	assert.Error(t, err)

	err = store.SaveGraph(context.Background(), "demo", testSnapshot())
	assert.Error(t, err)

	assert.NoError(t, store.Close())
}
