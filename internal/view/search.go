package view

import (
	"strings"
	"sync"
	"time"

	"github.com/scopegraph/scope-go/internal/graph"
)

// Search caps follow the rendering surface: partial matches are capped at
// ten, the combined result at fifteen.
const (
	maxPartialMatches = 10
	maxSearchResults  = 15
)

// SearchResult is one node matched by a name search.
type SearchResult struct {
	NodeID   string         `json:"id"`
	Name     string         `json:"name"`
	Type     graph.NodeType `json:"type"`
	FilePath string         `json:"file_path"`

	// Exact marks case-insensitive whole-name matches, which always rank
	// before partial matches.
	Exact bool `json:"exact"`
}

// Search matches nodes by name, case-insensitively: exact matches first in
// insertion order, then substring matches. An empty query yields no results.
func Search(g *graph.CodeGraph, query string) []SearchResult {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || g == nil {
		return nil
	}

	var exact, partial []SearchResult
	for _, n := range g.Nodes() {
		name := strings.ToLower(n.Name)
		switch {
		case name == query:
			exact = append(exact, SearchResult{NodeID: n.ID, Name: n.Name, Type: n.Type, FilePath: n.FilePath, Exact: true})
		case strings.Contains(name, query) && len(partial) < maxPartialMatches:
			partial = append(partial, SearchResult{NodeID: n.ID, Name: n.Name, Type: n.Type, FilePath: n.FilePath})
		}
	}

	results := append(exact, partial...)
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	return results
}

// SearchDebounceDelay is the cooperative settle time for interactive search.
const SearchDebounceDelay = 300 * time.Millisecond

// Debouncer coalesces rapid triggers into one callback after a quiet
// period. Each Trigger restarts the timer; only the last callback runs.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given settle delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn to run after the settle delay, cancelling any
// previously scheduled callback.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
