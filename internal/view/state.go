package view

import (
	"sync"

	"github.com/scopegraph/scope-go/internal/graph"
)

// Store holds the last-fetched raw graph and the current view state, and
// re-materializes the render graph on every mutation.
//
// Each transition is explicit; there are no ambient globals. Listeners are
// invoked synchronously on the mutating goroutine with the fresh render
// graph, matching the engine's single-writer model. The pipeline never
// patches prior output incrementally.
type Store struct {
	mu        sync.Mutex
	graph     *graph.CodeGraph
	state     ViewState
	opts      Options
	last      RenderGraph
	listeners map[int]func(RenderGraph)
	nextID    int
}

// NewStore creates a store with the given options and an empty graph.
func NewStore(opts Options) *Store {
	s := &Store{
		state:     NewViewState(),
		opts:      opts,
		listeners: make(map[int]func(RenderGraph)),
	}
	s.last = Materialize(nil, s.state, opts)
	return s
}

// Subscribe registers a listener for pipeline re-runs. The returned function
// unregisters it.
func (s *Store) Subscribe(fn func(RenderGraph)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// State returns a copy of the current view state.
func (s *Store) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Render returns the output of the most recent pipeline run.
func (s *Store) Render() RenderGraph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Graph returns the raw graph snapshot currently held.
func (s *Store) Graph() *graph.CodeGraph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// SetGraph replaces the raw graph and resets overlays; selections and zoom
// survive a refetch of the same project.
func (s *Store) SetGraph(g *graph.CodeGraph) {
	s.mutate(func() {
		s.graph = g
		s.state.Impact = nil
		s.state.ImpactNodeIDs = nil
		s.state.FlowTrace = nil
	})
}

// SetZoom changes the zoom level.
func (s *Store) SetZoom(zoom ZoomLevel) {
	s.mutate(func() {
		s.state.ZoomLevel = zoom
	})
}

// ToggleFile adds or removes a file from the selection. Selecting a file
// forces the zoom to functions so its internal structure becomes visible;
// clearing the last selection reverts to modules on large graphs and to
// functions otherwise. Additions beyond the selection cap are ignored.
func (s *Store) ToggleFile(path string) {
	s.mutate(func() {
		for i, sel := range s.state.SelectedFiles {
			if sel == path {
				s.state.SelectedFiles = append(s.state.SelectedFiles[:i:i], s.state.SelectedFiles[i+1:]...)
				if len(s.state.SelectedFiles) == 0 {
					s.state.ZoomLevel = s.zoomAfterClearLocked()
				}
				return
			}
		}
		if len(s.state.SelectedFiles) >= MaxSelectedFiles {
			return
		}
		s.state.SelectedFiles = append(s.state.SelectedFiles, path)
		s.state.ZoomLevel = ZoomFunctions
	})
}

// ClearSelection drops all selected files and reverts the zoom level.
func (s *Store) ClearSelection() {
	s.mutate(func() {
		if len(s.state.SelectedFiles) == 0 {
			return
		}
		s.state.SelectedFiles = nil
		s.state.ZoomLevel = s.zoomAfterClearLocked()
	})
}

// zoomAfterClearLocked picks the zoom to revert to when the selection
// empties: modules when the raw graph exceeds the render cap, functions
// otherwise.
func (s *Store) zoomAfterClearLocked() ZoomLevel {
	if s.graph != nil && s.graph.NodeCount() > s.opts.MaxNodes {
		return ZoomModules
	}
	return ZoomFunctions
}

// SetImpact installs a backend-computed impact result. An active flow trace
// still wins the styling precedence until cleared.
func (s *Store) SetImpact(nodeIDs []string, result *ImpactResult) {
	s.mutate(func() {
		s.state.ImpactNodeIDs = nodeIDs
		s.state.Impact = result
	})
}

// ClearImpact removes the impact overlay.
func (s *Store) ClearImpact() {
	s.mutate(func() {
		s.state.ImpactNodeIDs = nil
		s.state.Impact = nil
	})
}

// StartTrace computes a flow trace from the origin over the raw graph's
// calls edges and installs it as the active overlay.
func (s *Store) StartTrace(originID string) *FlowTraceResult {
	var result *FlowTraceResult
	s.mutate(func() {
		if s.graph == nil {
			result = Trace(originID, nil)
		} else {
			result = Trace(originID, s.graph.Edges())
		}
		s.state.FlowTrace = result
	})
	return result
}

// ClearTrace removes the flow trace overlay.
func (s *Store) ClearTrace() {
	s.mutate(func() {
		s.state.FlowTrace = nil
	})
}

// mutate applies a transition, re-runs the pipeline and notifies listeners,
// all under the store lock.
func (s *Store) mutate(apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apply()
	s.last = Materialize(s.graph, s.state, s.opts)
	for _, fn := range s.listeners {
		fn(s.last)
	}
}
