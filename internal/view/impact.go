package view

import "github.com/scopegraph/scope-go/internal/graph"

// ImpactNode is one affected node in a backend impact result.
type ImpactNode struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     graph.NodeType `json:"type"`
	FilePath string         `json:"file_path"`

	// Chain is the dependency path from a selected node, as symbol names.
	Chain []string `json:"chain,omitempty"`
}

// ImpactSummary carries the backend's aggregate counts.
type ImpactSummary struct {
	DirectlyAffected   int `json:"directly_affected"`
	IndirectlyAffected int `json:"indirectly_affected"`
	TestsNeedingUpdate int `json:"tests_needing_update"`
}

// ImpactResult is the blast-radius result computed by the external backend.
// The engine consumes and renders it; it never computes one itself.
type ImpactResult struct {
	Selected           []ImpactNode  `json:"selected"`
	DirectlyAffected   []ImpactNode  `json:"directly_affected"`
	IndirectlyAffected []ImpactNode  `json:"indirectly_affected"`
	TestsNeedingUpdate []ImpactNode  `json:"tests_needing_update"`
	Summary            ImpactSummary `json:"summary"`
}

// ImpactTier classifies a visible node under an active impact overlay.
type ImpactTier string

const (
	TierSelected ImpactTier = "selected"
	TierDirect   ImpactTier = "direct"
	TierIndirect ImpactTier = "indirect"
	TierDimmed   ImpactTier = "dimmed"
)

// impactIndex precomputes membership sets for tier classification.
type impactIndex struct {
	selected map[string]bool
	direct   map[string]bool
	indirect map[string]bool
}

func newImpactIndex(impactNodeIDs []string, result *ImpactResult) *impactIndex {
	if result == nil {
		return nil
	}
	idx := &impactIndex{
		selected: make(map[string]bool, len(impactNodeIDs)),
		direct:   make(map[string]bool, len(result.DirectlyAffected)),
		indirect: make(map[string]bool, len(result.IndirectlyAffected)),
	}
	for _, id := range impactNodeIDs {
		idx.selected[id] = true
	}
	for _, n := range result.DirectlyAffected {
		idx.direct[n.ID] = true
	}
	for _, n := range result.IndirectlyAffected {
		idx.indirect[n.ID] = true
	}
	return idx
}

// tier classifies a node: selected beats direct beats indirect; everything
// else is dimmed while the overlay is active.
func (idx *impactIndex) tier(nodeID string) ImpactTier {
	switch {
	case idx.selected[nodeID]:
		return TierSelected
	case idx.direct[nodeID]:
		return TierDirect
	case idx.indirect[nodeID]:
		return TierIndirect
	default:
		return TierDimmed
	}
}
