// Package cmd provides CLI command implementations for Scope.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/scopegraph/scope-go/internal/backend"
	"github.com/scopegraph/scope-go/internal/graph"
	"github.com/scopegraph/scope-go/internal/storage"
	"github.com/scopegraph/scope-go/internal/view"
	"github.com/scopegraph/scope-go/internal/watch"
	"github.com/scopegraph/scope-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// FetchCmd pulls a project graph from the analysis backend into the cache.
type FetchCmd struct {
	Project string `arg:"" help:"Project ID"`
	Backend string `default:"http://localhost:8000" help:"Analysis backend base URL"`
	Tab     string `help:"Backend-side filter: classes|functions|variables|tests|imports" enum:",classes,functions,variables,tests,imports" default:""`
}

// Run executes the fetch command.
func (c *FetchCmd) Run() error {
	ctx := context.Background()

	store, err := openCache(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client := backend.NewClient(c.Backend)
	payload, err := client.FetchGraph(ctx, c.Project, c.Tab)
	if err != nil {
		return fmt.Errorf("fetching graph: %w", err)
	}

	snap := &storage.Snapshot{Nodes: payload.Nodes, Edges: payload.Edges}
	if err := store.SaveGraph(ctx, c.Project, snap); err != nil {
		return fmt.Errorf("caching snapshot: %w", err)
	}

	stats := graph.Build(payload.Nodes, payload.Edges).ComputeStats()

	color.Green("✓ Fetched %s", c.Project)
	fmt.Printf("  Nodes:      %d\n", stats.Nodes)
	fmt.Printf("  Edges:      %d\n", stats.Edges)
	fmt.Printf("  Files:      %d (%d test)\n", stats.Files, stats.TestFiles)
	fmt.Printf("  Functions:  %d\n", stats.Functions)
	fmt.Printf("  Classes:    %d\n", stats.Classes)

	return nil
}

// RenderCmd materializes a render-ready view of a cached project graph.
type RenderCmd struct {
	Project   string   `arg:"" help:"Project ID"`
	Zoom      string   `help:"Zoom level" enum:"modules,files,functions" default:"functions"`
	Files     []string `short:"f" help:"Selected file paths (max 5); forces functions zoom"`
	Origin    string   `help:"Start a flow trace from this node ID or symbol name"`
	Impact    []string `help:"Node IDs for a backend impact overlay"`
	Backend   string   `default:"http://localhost:8000" help:"Analysis backend base URL (for --impact)"`
	Direction string   `help:"Layout direction" enum:"TB,LR" default:"TB"`
	MaxNodes  int      `default:"300" help:"Render cap for nodes"`
	MaxEdges  int      `default:"500" help:"Render cap for edges"`
	Out       string   `short:"o" help:"Write render JSON to file instead of stdout"`
}

// Run executes the render command.
func (c *RenderCmd) Run() error {
	ctx := context.Background()

	g, err := loadCachedGraph(ctx, c.Project)
	if err != nil {
		return err
	}

	opts := view.DefaultOptions()
	opts.MaxNodes = c.MaxNodes
	opts.MaxEdges = c.MaxEdges
	opts.Layout.Direction = view.Direction(c.Direction)

	store := view.NewStore(opts)
	store.SetGraph(g)
	store.SetZoom(view.ZoomLevel(c.Zoom))
	for _, f := range c.Files {
		store.ToggleFile(f)
	}

	if len(c.Impact) > 0 {
		client := backend.NewClient(c.Backend)
		result, err := client.FetchImpact(ctx, c.Project, c.Impact)
		if err != nil {
			return fmt.Errorf("fetching impact: %w", err)
		}
		store.SetImpact(c.Impact, result)
	}

	if c.Origin != "" {
		store.StartTrace(resolveOrigin(g, c.Origin))
	}

	rendered := store.Render()
	data, err := json.MarshalIndent(rendered, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling render graph: %w", err)
	}

	if c.Out != "" {
		if err := os.WriteFile(c.Out, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", c.Out, err)
		}
		color.Green("✓ Wrote %d nodes, %d edges (%s layout) to %s",
			len(rendered.Nodes), len(rendered.Edges), rendered.Layout, c.Out)
		return nil
	}

	fmt.Println(string(data))
	return nil
}

// TraceCmd prints the downstream call chain from an origin node.
type TraceCmd struct {
	Project string `arg:"" help:"Project ID"`
	Origin  string `arg:"" help:"Origin node ID or symbol name"`
}

// Run executes the trace command.
func (c *TraceCmd) Run() error {
	ctx := context.Background()

	g, err := loadCachedGraph(ctx, c.Project)
	if err != nil {
		return err
	}

	originID := resolveOrigin(g, c.Origin)
	if g.Node(originID) == nil {
		fmt.Printf("Node '%s' not found in the cached graph.\n", c.Origin)
		return nil
	}

	result := view.Trace(originID, g.Edges())

	origin := g.Node(originID)
	fmt.Printf("## Flow trace from: **%s** (%s)\n\n", origin.Name, origin.Type)

	if len(result.Chain) == 0 {
		fmt.Println("No outgoing calls from this node.")
		return nil
	}

	for _, step := range result.Chain {
		name := step.NodeID
		if n := g.Node(step.NodeID); n != nil {
			name = fmt.Sprintf("%s (%s) in %s", n.Name, n.Type, n.FilePath)
		}
		fmt.Printf("%2d. depth %d  %s\n", step.Order, step.Depth, name)
	}
	fmt.Printf("\n%d nodes reached over calls edges.\n", len(result.Chain))

	return nil
}

// ImpactCmd shows the backend-computed blast radius for nodes.
type ImpactCmd struct {
	Project string   `arg:"" help:"Project ID"`
	Nodes   []string `arg:"" help:"Node IDs or symbol names to analyze"`
	Backend string   `default:"http://localhost:8000" help:"Analysis backend base URL"`
}

// Run executes the impact command.
func (c *ImpactCmd) Run() error {
	ctx := context.Background()

	g, err := loadCachedGraph(ctx, c.Project)
	if err != nil {
		return err
	}

	nodeIDs := make([]string, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		nodeIDs = append(nodeIDs, resolveOrigin(g, n))
	}

	client := backend.NewClient(c.Backend)
	result, err := client.FetchImpact(ctx, c.Project, nodeIDs)
	if err != nil {
		return fmt.Errorf("fetching impact: %w", err)
	}

	fmt.Printf("## Impact Analysis (%d selected)\n\n", len(nodeIDs))
	fmt.Printf("  Directly affected:    %d\n", result.Summary.DirectlyAffected)
	fmt.Printf("  Indirectly affected:  %d\n", result.Summary.IndirectlyAffected)
	fmt.Printf("  Tests needing update: %d\n\n", result.Summary.TestsNeedingUpdate)

	printTier := func(title string, nodes []view.ImpactNode) {
		if len(nodes) == 0 {
			return
		}
		fmt.Printf("### %s (%d)\n", title, len(nodes))
		for _, n := range nodes {
			fmt.Printf("- %s (%s) in %s\n", n.Name, n.Type, n.FilePath)
		}
		fmt.Println()
	}
	printTier("Directly affected", result.DirectlyAffected)
	printTier("Indirectly affected", result.IndirectlyAffected)
	printTier("Tests needing update", result.TestsNeedingUpdate)

	fmt.Println("Tip: Review each affected symbol before making changes.")
	return nil
}

// SearchCmd searches cached graph nodes by name.
type SearchCmd struct {
	Project string `arg:"" help:"Project ID"`
	Query   string `arg:"" help:"Search query"`
}

// Run executes the search command.
func (c *SearchCmd) Run() error {
	ctx := context.Background()

	g, err := loadCachedGraph(ctx, c.Project)
	if err != nil {
		return err
	}

	results := view.Search(g, c.Query)
	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}

	for i, r := range results {
		marker := ""
		if r.Exact {
			marker = " (exact)"
		}
		fmt.Printf("\n%d. %s (%s)%s\n", i+1, r.Name, r.Type, marker)
		fmt.Printf("   File: %s\n", r.FilePath)
	}
	return nil
}

// WatchCmd re-fetches and re-renders when the analyzed repository changes.
type WatchCmd struct {
	Project string `arg:"" help:"Project ID"`
	Path    string `arg:"" optional:"" default:"." help:"Repository path to watch"`
	Backend string `default:"http://localhost:8000" help:"Analysis backend base URL"`
	Out     string `short:"o" default:"scope-view.json" help:"Render JSON output file"`
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	repoPath, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-osSignalChannel()
		fmt.Println("\nStopping watch mode...")
		cancel()
	}()

	client := backend.NewClient(c.Backend)
	opts := view.DefaultOptions()
	viewStore := view.NewStore(opts)
	viewStore.SetZoom(view.ZoomFunctions)

	unsubscribe := viewStore.Subscribe(func(rendered view.RenderGraph) {
		data, err := json.MarshalIndent(rendered, "", "  ")
		if err != nil {
			return
		}
		if err := os.WriteFile(c.Out, append(data, '\n'), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", c.Out, err)
			return
		}
		fmt.Printf("  Rendered %d nodes, %d edges (%s layout) to %s\n",
			len(rendered.Nodes), len(rendered.Edges), rendered.Layout, c.Out)
	})
	defer unsubscribe()

	refresh := func() {
		payload, err := client.FetchGraph(ctx, c.Project, "")
		if err != nil {
			// Last good render stays in place on transport failure.
			fmt.Fprintf(os.Stderr, "Fetch error (keeping last view): %v\n", err)
			return
		}
		viewStore.SetGraph(graph.Build(payload.Nodes, payload.Edges))
	}

	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n\n", repoPath)
	refresh()

	err = watch.Repo(ctx, repoPath, func(changed []string) {
		fmt.Printf("Re-fetching after %d changed file(s)...\n", len(changed))
		refresh()
	})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Println("Watch mode stopped.")
	return nil
}

// StatusCmd lists cached project snapshots.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run() error {
	ctx := context.Background()

	store, err := openCache(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	metas, err := store.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("No cached projects. Run 'scope-go fetch <project>' first.")
		return nil
	}

	fmt.Println("Cached projects:")
	for _, m := range metas {
		fmt.Printf("\n  %s\n", m.ProjectID)
		fmt.Printf("    Fetched:    %s\n", m.FetchedAt.Format("2006-01-02 15:04:05 UTC"))
		fmt.Printf("    Nodes:      %d\n", m.Stats.Nodes)
		fmt.Printf("    Edges:      %d\n", m.Stats.Edges)
		fmt.Printf("    Functions:  %d (coverage ~%d%%)\n", m.Stats.Functions, m.Stats.CoveragePercent)
	}
	return nil
}

// CleanCmd deletes a cached project snapshot, or the whole cache.
type CleanCmd struct {
	Project string `arg:"" optional:"" help:"Project ID (omit to delete the entire cache)"`
	Force   bool   `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run() error {
	if c.Project != "" {
		store, err := openCache(false)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := store.Remove(context.Background(), c.Project); err != nil {
			return fmt.Errorf("removing snapshot: %w", err)
		}
		color.Green("Removed cached snapshot for %s", c.Project)
		return nil
	}

	dir, err := cacheDir()
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no cache found at %s. Nothing to clean", dir)
	}

	if !c.Force {
		fmt.Printf("Delete cache at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting cache: %w", err)
	}
	color.Green("Deleted %s", dir)
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct {
	Backend string `help:"Analysis backend base URL (enables impact and node-detail tools)"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run() error {
	ctx := context.Background()

	store, err := openCache(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var source mcp.BackendSource
	if c.Backend != "" {
		source = backend.NewClient(c.Backend)
	}

	server := mcp.NewServer(store, source)

	// Note: No output to stderr - MCP server uses stdio for JSON-RPC only
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// ServeCmd starts the MCP server with optional repository watching.
type ServeCmd struct {
	Backend string `default:"http://localhost:8000" help:"Analysis backend base URL"`
	Watch   bool   `short:"w" help:"Watch the current repository and re-fetch on change"`
	Project string `help:"Project ID to keep fresh while watching"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx := context.Background()

	store, err := openCache(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client := backend.NewClient(c.Backend)
	server := mcp.NewServer(store, client)

	if c.Watch && c.Project != "" {
		fmt.Fprintln(os.Stderr, "Starting MCP server with watch mode...")

		repoPath, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			err := watch.Repo(watchCtx, repoPath, func(changed []string) {
				payload, err := client.FetchGraph(watchCtx, c.Project, "")
				if err != nil {
					fmt.Fprintf(os.Stderr, "Fetch error: %v\n", err)
					return
				}
				snap := &storage.Snapshot{Nodes: payload.Nodes, Edges: payload.Edges}
				if err := store.SaveGraph(watchCtx, c.Project, snap); err != nil {
					fmt.Fprintf(os.Stderr, "Cache error: %v\n", err)
				}
			})
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()

		fmt.Fprintln(os.Stderr, "File watching enabled")
	} else {
		fmt.Fprintln(os.Stderr, "Starting MCP server...")
	}

	return server.Run(ctx, os.Stdin, os.Stdout)
}

// SetupCmd configures MCP for AI clients.
type SetupCmd struct {
	Claude   bool   `help:"Configure for Claude Code"`
	Cursor   bool   `help:"Configure for Cursor"`
	Global   bool   `help:"Create global configuration"`
	FilePath string `help:"Custom directory for configuration"`
}

// Run executes the setup command.
func (c *SetupCmd) Run() error {
	config := map[string]any{
		"mcpServers": map[string]any{
			"scope-go": map[string]any{
				"command": "scope-go",
				"args":    []string{"serve", "--watch"},
			},
		},
	}

	if !c.Claude && !c.Cursor {
		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	write := func(client, fileName string) error {
		var dir string
		switch {
		case c.FilePath != "":
			dir = c.FilePath
		case c.Global:
			home, err := os.UserHomeDir()
			if err != nil {
				home = os.Getenv("HOME")
			}
			dir = filepath.Join(home, "."+client)
		default:
			dir = "." + client
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}

		configPath := filepath.Join(dir, fileName)
		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(configPath, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		color.Green("✓ Created %s MCP config at %s", client, configPath)
		return nil
	}

	if c.Claude {
		if err := write("claude", "settings.json"); err != nil {
			return err
		}
	}
	if c.Cursor {
		if err := write("cursor", "mcp.json"); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// cacheDir is where snapshot data lives.
func cacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".scope", "cache"), nil
}

// openCache opens the snapshot store, creating the cache directory when
// writing.
func openCache(readOnly bool) (*storage.SnapshotStore, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}

	if readOnly {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("no cache found at %s. Run 'scope-go fetch' first", dir)
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	store := storage.NewSnapshotStore()
	if err := store.Initialize(dir, readOnly); err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}
	return store, nil
}

// loadCachedGraph builds a CodeGraph from the cached snapshot of a project.
func loadCachedGraph(ctx context.Context, projectID string) (*graph.CodeGraph, error) {
	store, err := openCache(true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	snap, err := store.LoadGraph(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("no cached snapshot for project %q. Run 'scope-go fetch %s' first", projectID, projectID)
	}
	return graph.Build(snap.Nodes, snap.Edges), nil
}

// resolveOrigin accepts a node ID or a symbol name.
func resolveOrigin(g *graph.CodeGraph, origin string) string {
	if g.Node(origin) != nil {
		return origin
	}
	if matches := g.FindByName(origin); len(matches) > 0 {
		return matches[0].ID
	}
	return origin
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose output"`
	Quiet   bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Fetch  FetchCmd  `cmd:"" help:"Fetch a project graph from the analysis backend"`
	Render RenderCmd `cmd:"" help:"Materialize a render-ready view of a project graph"`
	Trace  TraceCmd  `cmd:"" help:"Flow trace: downstream call chain from an origin node"`
	Impact ImpactCmd `cmd:"" help:"Show blast radius of changing nodes"`
	Search SearchCmd `cmd:"" help:"Search graph nodes by name"`
	Watch  WatchCmd  `cmd:"" help:"Re-fetch and re-render on repository changes"`
	Serve  ServeCmd  `cmd:"" help:"Start MCP server with optional watch mode"`
	MCP    MCPCmd    `cmd:"" help:"Start MCP server (stdio transport)"`
	Status StatusCmd `cmd:"" help:"List cached project snapshots"`
	Clean  CleanCmd  `cmd:"" help:"Delete cached snapshots"`
	Setup  SetupCmd  `cmd:"" help:"Configure MCP for Claude Code / Cursor"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("scope-go"),
		kong.Description("Graph view materialization engine for code-relationship graphs"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	return kongCtx.Run()
}
