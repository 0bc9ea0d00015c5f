// Package graph provides the code-relationship graph data model for Scope.
//
// It defines the node and edge types produced by the external code-analysis
// backend (functions, classes, files, variables, imports and their
// call/inherit/import/read/write edges) together with an in-memory container
// that preserves insertion order and offers indexed adjacency lookups.
package graph

import (
	"encoding/json"
	"path"
	"strings"
)

// NodeType represents the semantic category of a graph node.
type NodeType string

const (
	NodeClass    NodeType = "class"
	NodeFunction NodeType = "function"
	NodeVariable NodeType = "variable"
	NodeImport   NodeType = "import"
	NodeFile     NodeType = "file"
	NodeModule   NodeType = "module"
)

// EdgeType represents the semantic category of a graph edge.
type EdgeType string

const (
	EdgeCalls    EdgeType = "calls"
	EdgeInherits EdgeType = "inherits"
	EdgeImports  EdgeType = "imports"
	EdgeComposes EdgeType = "composes"
	EdgeReads    EdgeType = "reads"
	EdgeWrites   EdgeType = "writes"
	EdgeTests    EdgeType = "tests"
)

// NodeMeta holds analyzer metadata attached to a node. Well-known keys are
// promoted to typed fields; anything else the analyzer emits is preserved
// in Extra.
type NodeMeta struct {
	// ParentClass is the enclosing class name for methods.
	ParentClass string

	// MethodCount is the number of methods (for class nodes).
	MethodCount int

	// Calls lists callee names recorded by the analyzer (for test-coverage
	// estimation on file stats).
	Calls []string

	// Extra holds unrecognized analyzer metadata verbatim.
	Extra map[string]any
}

// UnmarshalJSON decodes the open metadata mapping, promoting known keys.
func (m *NodeMeta) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		switch key {
		case "parent_class":
			if s, ok := val.(string); ok {
				m.ParentClass = s
			}
		case "method_count":
			if n, ok := val.(float64); ok {
				m.MethodCount = int(n)
			}
		case "calls":
			if list, ok := val.([]any); ok {
				for _, item := range list {
					if s, ok := item.(string); ok {
						m.Calls = append(m.Calls, s)
					}
				}
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[key] = val
		}
	}
	return nil
}

// MarshalJSON re-encodes the metadata as the open mapping the backend uses.
func (m NodeMeta) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, len(m.Extra)+3)
	for key, val := range m.Extra {
		raw[key] = val
	}
	if m.ParentClass != "" {
		raw["parent_class"] = m.ParentClass
	}
	if m.MethodCount != 0 {
		raw["method_count"] = m.MethodCount
	}
	if len(m.Calls) > 0 {
		raw["calls"] = m.Calls
	}
	return json.Marshal(raw)
}

// EdgeMeta holds analyzer metadata attached to an edge.
type EdgeMeta struct {
	// IsExternal marks edges that cross the project boundary.
	IsExternal bool

	// Extra holds unrecognized analyzer metadata verbatim.
	Extra map[string]any
}

// UnmarshalJSON decodes the open metadata mapping, promoting known keys.
func (m *EdgeMeta) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		switch key {
		case "is_external":
			if b, ok := val.(bool); ok {
				m.IsExternal = b
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[key] = val
		}
	}
	return nil
}

// MarshalJSON re-encodes the metadata as the open mapping the backend uses.
func (m EdgeMeta) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, len(m.Extra)+1)
	for key, val := range m.Extra {
		raw[key] = val
	}
	if m.IsExternal {
		raw["is_external"] = true
	}
	return json.Marshal(raw)
}

// GraphNode represents a node in the code-relationship graph.
type GraphNode struct {
	// ID is the unique, stable identifier for the node.
	ID string `json:"id"`

	// Name is the name of the entity (function name, class name, file name).
	Name string `json:"name"`

	// Type is the semantic category of the node.
	Type NodeType `json:"type"`

	// Language is the programming language, empty when unknown.
	Language string `json:"language,omitempty"`

	// FilePath is the path of the file containing this entity.
	FilePath string `json:"file_path"`

	// LineStart is the starting line number, zero when unknown.
	LineStart int `json:"line_start,omitempty"`

	// LineEnd is the ending line number, zero when unknown.
	LineEnd int `json:"line_end,omitempty"`

	// ParentID is a back-reference to an enclosing node, not an ownership edge.
	ParentID string `json:"parent_id,omitempty"`

	// Metadata holds analyzer metadata.
	Metadata NodeMeta `json:"metadata,omitempty"`
}

// GraphEdge represents a directed edge in the code-relationship graph.
type GraphEdge struct {
	// ID is the unique identifier for the edge.
	ID string `json:"id"`

	// SourceID is the ID of the source node.
	SourceID string `json:"source_id"`

	// TargetID is the ID of the target node.
	TargetID string `json:"target_id"`

	// Type is the semantic category of the edge.
	Type EdgeType `json:"type"`

	// Metadata holds analyzer metadata.
	Metadata EdgeMeta `json:"metadata,omitempty"`
}

// testDirNames are path segments that mark everything below them as tests.
var testDirNames = map[string]bool{
	"tests":     true,
	"test":      true,
	"__tests__": true,
	"spec":      true,
}

// IsTestFile reports whether a file path looks like a test file.
//
// A file is a test file if its stem (final segment minus extension) starts
// with "test_", ends with "_test", "_spec", ".test" or ".spec", or starts
// with "test" (excluding the bare stem "test"), or if any path segment is a
// known test directory name.
func IsTestFile(filePath string) bool {
	base := path.Base(strings.ReplaceAll(filePath, "\\", "/"))
	stem := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))

	switch {
	case strings.HasPrefix(stem, "test_"),
		strings.HasSuffix(stem, "_test"),
		strings.HasPrefix(stem, "test") && stem != "test",
		strings.HasSuffix(stem, "_spec"),
		strings.HasSuffix(stem, ".test"),
		strings.HasSuffix(stem, ".spec"):
		return true
	}

	for _, part := range strings.Split(strings.ReplaceAll(filePath, "\\", "/"), "/") {
		if testDirNames[strings.ToLower(part)] {
			return true
		}
	}
	return false
}
