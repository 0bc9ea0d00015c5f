// Package backend provides the HTTP client for the external code-analysis
// backend that produces graph snapshots and impact results.
//
// The engine never computes graphs or blast radii itself; it fetches them
// here and renders them. Responses superseded by a newer request for the
// same project are dropped, so a slow stale fetch can never overwrite
// fresher state.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/scopegraph/scope-go/internal/graph"
	"github.com/scopegraph/scope-go/internal/view"
)

// GraphPayload is the raw node/edge collection returned by the backend.
type GraphPayload struct {
	Nodes []*graph.GraphNode `json:"nodes"`
	Edges []*graph.GraphEdge `json:"edges"`
}

// Connection is one edge endpoint in a node detail response.
type Connection struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	FilePath  string `json:"file_path"`
	LineStart int    `json:"line_start,omitempty"`
}

// NodeDetail is the backend's detailed node payload: code snippet plus
// resolved connections and test status.
type NodeDetail struct {
	Node       *graph.GraphNode `json:"node"`
	Code       string           `json:"code"`
	Calls      []Connection     `json:"calls"`
	CalledBy   []Connection     `json:"called_by"`
	TestStatus string           `json:"test_status"`
}

// errorEnvelope is the backend's error body shape.
type errorEnvelope struct {
	Detail string `json:"detail"`
}

// Client talks to the code-analysis backend.
type Client struct {
	baseURL string
	http    *http.Client

	// generation discards responses superseded by a newer FetchGraph.
	generation atomic.Uint64
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchGraph retrieves the full or tab-filtered graph for a project. Tab may
// be empty or one of classes|functions|variables|tests|imports.
//
// If a newer FetchGraph starts before this one completes, the stale result
// is discarded and ErrSuperseded is returned.
func (c *Client) FetchGraph(ctx context.Context, projectID, tab string) (*GraphPayload, error) {
	gen := c.generation.Add(1)

	endpoint := fmt.Sprintf("%s/api/project/%s/graph", c.baseURL, url.PathEscape(projectID))
	if tab != "" {
		endpoint += "?tab=" + url.QueryEscape(tab)
	}

	var payload GraphPayload
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	if c.generation.Load() != gen {
		return nil, ErrSuperseded
	}
	return &payload, nil
}

// FetchImpact asks the backend for the blast radius of the given nodes.
func (c *Client) FetchImpact(ctx context.Context, projectID string, nodeIDs []string) (*view.ImpactResult, error) {
	endpoint := fmt.Sprintf("%s/api/project/%s/impact", c.baseURL, url.PathEscape(projectID))

	body, err := json.Marshal(map[string][]string{"node_ids": nodeIDs})
	if err != nil {
		return nil, fmt.Errorf("marshaling impact request: %w", err)
	}

	var result view.ImpactResult
	if err := c.postJSON(ctx, endpoint, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchNodeDetail retrieves the detail payload for one node.
func (c *Client) FetchNodeDetail(ctx context.Context, projectID, nodeID string) (*NodeDetail, error) {
	endpoint := fmt.Sprintf("%s/api/project/%s/node/%s",
		c.baseURL, url.PathEscape(projectID), url.PathEscape(nodeID))

	var detail NodeDetail
	if err := c.getJSON(ctx, endpoint, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ErrSuperseded marks a response discarded because a newer request for the
// same concern started before it completed.
var ErrSuperseded = fmt.Errorf("response superseded by a newer request")

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope errorEnvelope
		if json.Unmarshal(data, &envelope) == nil && envelope.Detail != "" {
			return fmt.Errorf("backend: %s (status %d)", envelope.Detail, resp.StatusCode)
		}
		return fmt.Errorf("backend: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
