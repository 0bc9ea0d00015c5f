// Package mcp provides the MCP (Model Context Protocol) server for Scope.
//
// It exposes the view materialization engine over stdio: rendering a bounded
// positioned view of a cached graph snapshot, flow tracing, impact overlays
// and node search.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/scopegraph/scope-go/internal/backend"
	"github.com/scopegraph/scope-go/internal/graph"
	"github.com/scopegraph/scope-go/internal/storage"
	"github.com/scopegraph/scope-go/internal/view"
)

// SnapshotSource supplies cached graph snapshots.
type SnapshotSource interface {
	LoadGraph(ctx context.Context, projectID string) (*storage.Snapshot, error)
	GetMeta(ctx context.Context, projectID string) (*storage.Meta, error)
	ListProjects(ctx context.Context) ([]storage.Meta, error)
}

// BackendSource supplies backend-computed results. Nil when the server runs
// offline against the snapshot cache only.
type BackendSource interface {
	FetchImpact(ctx context.Context, projectID string, nodeIDs []string) (*view.ImpactResult, error)
	FetchNodeDetail(ctx context.Context, projectID, nodeID string) (*backend.NodeDetail, error)
}

// Server represents the MCP server.
type Server struct {
	snapshots SnapshotSource
	backend   BackendSource
	opts      view.Options
	server    *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server. backendSource may be nil for
// cache-only operation.
func NewServer(snapshots SnapshotSource, backendSource BackendSource) *Server {
	s := &Server{
		snapshots: snapshots,
		backend:   backendSource,
		opts:      view.DefaultOptions(),
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "scope-go",
		Version: "0.1.0",
	}, nil)

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "scope_render",
			Description: "Materialize a bounded, positioned, styled view of a project graph. Returns render-ready nodes and edges as JSON.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"project": {Type: "string", Description: "Project ID"},
					"zoom":    {Type: "string", Description: "Zoom level: modules|files|functions"},
					"files": {
						Type:        "array",
						Items:       &jsonschema.Schema{Type: "string"},
						Description: "Selected file paths (max 5); forces functions zoom",
					},
					"direction": {Type: "string", Description: "Layout direction: TB|LR"},
				},
				Required: []string{"project"},
			},
		},
		{
			Name:        "scope_trace",
			Description: "Flow trace: breadth-first downstream call chain from an origin node, with discovery order per edge.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"project": {Type: "string", Description: "Project ID"},
					"origin":  {Type: "string", Description: "Origin node ID or symbol name"},
				},
				Required: []string{"project", "origin"},
			},
		},
		{
			Name:        "scope_impact",
			Description: "Blast radius overlay: classify visible nodes into selected/direct/indirect/dimmed tiers for the given nodes.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"project": {Type: "string", Description: "Project ID"},
					"nodes": {
						Type:        "array",
						Items:       &jsonschema.Schema{Type: "string"},
						Description: "Node IDs to analyze",
					},
				},
				Required: []string{"project", "nodes"},
			},
		},
		{
			Name:        "scope_search",
			Description: "Search graph nodes by name. Exact matches rank before partial matches.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"project": {Type: "string", Description: "Project ID"},
					"query":   {Type: "string", Description: "Search query"},
				},
				Required: []string{"project", "query"},
			},
		},
		{
			Name:        "scope_node_detail",
			Description: "Fetch the detail payload for one node: code snippet, connections and test status.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"project": {Type: "string", Description: "Project ID"},
					"node":    {Type: "string", Description: "Node ID"},
				},
				Required: []string{"project", "node"},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "scope://overview",
			Name:        "Cached Projects Overview",
			Description: "Per-project statistics for every cached graph snapshot",
			MimeType:    "text/plain",
		},
		{
			URI:         "scope://schema",
			Name:        "Graph Schema",
			Description: "Description of the Scope graph and render data model",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "scope_render":
		return s.handleRender(ctx, args)
	case "scope_trace":
		return s.handleTrace(ctx, args)
	case "scope_impact":
		return s.handleImpact(ctx, args)
	case "scope_search":
		return s.handleSearch(ctx, args)
	case "scope_node_detail":
		return s.handleNodeDetail(ctx, args)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "scope://overview":
		return s.getOverview(ctx)
	case "scope://schema":
		return getSchema(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// loadGraph builds a CodeGraph from the snapshot cache.
func (s *Server) loadGraph(ctx context.Context, projectID string) (*graph.CodeGraph, error) {
	snap, err := s.snapshots.LoadGraph(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("no cached snapshot for project %q; run 'scope-go fetch' first", projectID)
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

func (s *Server) handleRender(ctx context.Context, args map[string]any) (string, error) {
	projectID, _ := args["project"].(string)
	g, err := s.loadGraph(ctx, projectID)
	if err != nil {
		return "", err
	}

	state := view.NewViewState()
	if zoom, _ := args["zoom"].(string); zoom != "" {
		state.ZoomLevel = view.ZoomLevel(zoom)
	} else {
		state.ZoomLevel = view.ZoomFunctions
	}
	if files, _ := args["files"].([]any); len(files) > 0 {
		for _, f := range files {
			if path, ok := f.(string); ok && len(state.SelectedFiles) < view.MaxSelectedFiles {
				state.SelectedFiles = append(state.SelectedFiles, path)
			}
		}
		state.ZoomLevel = view.ZoomFunctions
	}

	opts := s.opts
	if dir, _ := args["direction"].(string); dir == string(view.DirectionLR) {
		opts.Layout.Direction = view.DirectionLR
	}

	rendered := view.Materialize(g, state, opts)
	data, err := json.Marshal(rendered)
	if err != nil {
		return "", fmt.Errorf("marshaling render graph: %w", err)
	}
	return string(data), nil
}

func (s *Server) handleTrace(ctx context.Context, args map[string]any) (string, error) {
	projectID, _ := args["project"].(string)
	origin, _ := args["origin"].(string)

	g, err := s.loadGraph(ctx, projectID)
	if err != nil {
		return "", err
	}

	originID := resolveOrigin(g, origin)
	result := view.Trace(originID, g.Edges())

	var sb strings.Builder
	originNode := g.Node(originID)
	if originNode != nil {
		fmt.Fprintf(&sb, "## Flow trace from **%s** (%s)\n\n", originNode.Name, originNode.Type)
	} else {
		fmt.Fprintf(&sb, "## Flow trace from %s\n\n", originID)
	}

	if len(result.Chain) == 0 {
		sb.WriteString("No outgoing calls from this node.\n")
		return sb.String(), nil
	}

	for _, step := range result.Chain {
		name := step.NodeID
		if n := g.Node(step.NodeID); n != nil {
			name = fmt.Sprintf("%s (%s)", n.Name, n.FilePath)
		}
		fmt.Fprintf(&sb, "%d. depth %d: %s\n", step.Order, step.Depth, name)
	}
	return sb.String(), nil
}

func (s *Server) handleImpact(ctx context.Context, args map[string]any) (string, error) {
	if s.backend == nil {
		return "Impact analysis requires a configured backend. Start the server with --backend.", nil
	}

	projectID, _ := args["project"].(string)
	nodesArg, _ := args["nodes"].([]any)
	nodeIDs := make([]string, 0, len(nodesArg))
	for _, n := range nodesArg {
		if id, ok := n.(string); ok {
			nodeIDs = append(nodeIDs, id)
		}
	}
	if len(nodeIDs) == 0 {
		return "No nodes specified", nil
	}

	result, err := s.backend.FetchImpact(ctx, projectID, nodeIDs)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Impact Analysis (%d selected)\n\n", len(nodeIDs))
	fmt.Fprintf(&sb, "Directly affected: %d\n", result.Summary.DirectlyAffected)
	fmt.Fprintf(&sb, "Indirectly affected: %d\n", result.Summary.IndirectlyAffected)
	fmt.Fprintf(&sb, "Tests needing update: %d\n\n", result.Summary.TestsNeedingUpdate)

	writeTier := func(title string, nodes []view.ImpactNode) {
		if len(nodes) == 0 {
			return
		}
		fmt.Fprintf(&sb, "### %s\n", title)
		for _, n := range nodes {
			fmt.Fprintf(&sb, "- %s (%s) in %s\n", n.Name, n.Type, n.FilePath)
		}
		sb.WriteString("\n")
	}
	writeTier("Directly affected", result.DirectlyAffected)
	writeTier("Indirectly affected", result.IndirectlyAffected)
	writeTier("Tests needing update", result.TestsNeedingUpdate)

	return sb.String(), nil
}

func (s *Server) handleSearch(ctx context.Context, args map[string]any) (string, error) {
	projectID, _ := args["project"].(string)
	query, _ := args["query"].(string)

	g, err := s.loadGraph(ctx, projectID)
	if err != nil {
		return "", err
	}

	results := view.Search(g, query)
	if len(results) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results for '%s':\n\n", len(results), query)
	for i, r := range results {
		marker := ""
		if r.Exact {
			marker = " (exact)"
		}
		fmt.Fprintf(&sb, "%d. **%s** (%s)%s\n   File: %s\n\n", i+1, r.Name, r.Type, marker, r.FilePath)
	}
	sb.WriteString("Next: Use `scope_node_detail` or `scope_trace` on a result.")
	return sb.String(), nil
}

func (s *Server) handleNodeDetail(ctx context.Context, args map[string]any) (string, error) {
	if s.backend == nil {
		return "Node detail requires a configured backend. Start the server with --backend.", nil
	}

	projectID, _ := args["project"].(string)
	nodeID, _ := args["node"].(string)

	detail, err := s.backend.FetchNodeDetail(ctx, projectID, nodeID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s (%s)\n\n", detail.Node.Name, detail.Node.Type)
	fmt.Fprintf(&sb, "**File:** %s\n", detail.Node.FilePath)
	if detail.Node.LineStart > 0 {
		fmt.Fprintf(&sb, "**Lines:** %d-%d\n", detail.Node.LineStart, detail.Node.LineEnd)
	}
	if detail.TestStatus != "" {
		fmt.Fprintf(&sb, "**Test status:** %s\n", detail.TestStatus)
	}
	sb.WriteString("\n")

	if len(detail.Calls) > 0 {
		fmt.Fprintf(&sb, "### Calls (%d)\n", len(detail.Calls))
		for _, c := range detail.Calls {
			fmt.Fprintf(&sb, "- %s (%s) in %s\n", c.Name, c.Type, c.FilePath)
		}
		sb.WriteString("\n")
	}
	if len(detail.CalledBy) > 0 {
		fmt.Fprintf(&sb, "### Called by (%d)\n", len(detail.CalledBy))
		for _, c := range detail.CalledBy {
			fmt.Fprintf(&sb, "- %s (%s) in %s\n", c.Name, c.Type, c.FilePath)
		}
		sb.WriteString("\n")
	}
	if detail.Code != "" {
		code := detail.Code
		if len(code) > 2000 {
			code = code[:2000] + "\n..."
		}
		fmt.Fprintf(&sb, "```\n%s\n```\n", code)
	}
	return sb.String(), nil
}

func (s *Server) getOverview(ctx context.Context) (string, error) {
	metas, err := s.snapshots.ListProjects(ctx)
	if err != nil {
		return "", err
	}
	if len(metas) == 0 {
		return "No cached projects. Run 'scope-go fetch <project>' first.", nil
	}

	var sb strings.Builder
	sb.WriteString("## Cached Projects\n\n")
	for _, m := range metas {
		fmt.Fprintf(&sb, "### %s\n", m.ProjectID)
		fmt.Fprintf(&sb, "  Fetched:   %s\n", m.FetchedAt.Format("2006-01-02 15:04:05 UTC"))
		fmt.Fprintf(&sb, "  Nodes:     %d\n", m.Stats.Nodes)
		fmt.Fprintf(&sb, "  Edges:     %d\n", m.Stats.Edges)
		fmt.Fprintf(&sb, "  Files:     %d (%d test)\n", m.Stats.Files, m.Stats.TestFiles)
		fmt.Fprintf(&sb, "  Functions: %d (coverage ~%d%%)\n\n", m.Stats.Functions, m.Stats.CoveragePercent)
	}
	return sb.String(), nil
}

func getSchema() string {
	return `Scope graph schema:

Nodes: id, name, type (class|function|variable|import|file|module),
language, file_path, line_start, line_end, parent_id, metadata.

Edges: id, source_id, target_id,
type (calls|inherits|imports|composes|reads|writes|tests), metadata.

Render output: nodes with top-left positions, resolved styles (border color,
opacity, tier) and badges (in/out degree, test coverage, entry-point flag);
edges with stroke, dash pattern and animation flags. Views are bounded to
300 nodes / 500 edges with deterministic type-priority truncation.`
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "scope-go",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		_ = json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
