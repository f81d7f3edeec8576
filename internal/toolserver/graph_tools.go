package toolserver

import (
	"context"
	"fmt"
	"sort"

	"github.com/raildex/retrieval-engine/internal/graph"
	"github.com/raildex/retrieval-engine/internal/rerr"
)

// PageRankTool wraps DependencyGraph.PageRank, spec.md §6.3's `pagerank`.
// It holds the concrete *graph.DependencyGraph rather than the
// store.GraphStore interface, since PageRank is not part of that
// interface's contract — the same scope line internal/retrieve draws
// around its own Structure pass-through.
type PageRankTool struct {
	g *graph.DependencyGraph
}

func NewPageRankTool(g *graph.DependencyGraph) *PageRankTool { return &PageRankTool{g: g} }

func (t *PageRankTool) Name() string        { return "pagerank" }
func (t *PageRankTool) Description() string { return "Returns every unit's PageRank score over the dependency graph, highest first." }
func (t *PageRankTool) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"limit": map[string]any{"type": "integer"}},
	}
}

type rankedNode struct {
	Identifier string  `json:"identifier"`
	Score      float64 `json:"score"`
}

func (t *PageRankTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	scores := t.g.PageRank()
	ranked := make([]rankedNode, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, rankedNode{Identifier: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Identifier < ranked[j].Identifier
	})
	limit := paramInt(params, "limit", 0)
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// analysisKinds enumerates graph_analysis's valid `analysis` values, a
// superset alias "all" included.
var analysisKinds = map[string]struct{}{
	"orphans": {}, "dead_ends": {}, "hubs": {}, "cycles": {}, "bridges": {}, "all": {},
}

// GraphAnalysisTool wraps DependencyGraph.Analyze, spec.md §6.3's
// `graph_analysis`.
type GraphAnalysisTool struct {
	g *graph.DependencyGraph
}

func NewGraphAnalysisTool(g *graph.DependencyGraph) *GraphAnalysisTool { return &GraphAnalysisTool{g: g} }

func (t *GraphAnalysisTool) Name() string { return "graph_analysis" }
func (t *GraphAnalysisTool) Description() string {
	return "Runs structural analysis over the dependency graph: orphans, dead ends, hubs, cycles, or bridges."
}
func (t *GraphAnalysisTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"analysis": map[string]any{"type": "string", "enum": []string{"orphans", "dead_ends", "hubs", "cycles", "bridges", "all"}},
			"limit":    map[string]any{"type": "integer"},
		},
	}
}

func (t *GraphAnalysisTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	analysis := "all"
	if raw, ok := params["analysis"].(string); ok && raw != "" {
		if _, known := analysisKinds[raw]; !known {
			return nil, rerr.New(rerr.KindValidation, "toolserver.GraphAnalysis", fmt.Errorf("unknown analysis %q", raw))
		}
		analysis = raw
	}

	report := t.g.Analyze(paramInt(params, "limit", 0))
	switch analysis {
	case "orphans":
		return report.Orphans, nil
	case "dead_ends":
		return report.DeadEnds, nil
	case "hubs":
		return report.Hubs, nil
	case "cycles":
		return report.Cycles, nil
	case "bridges":
		return report.Bridges, nil
	default:
		return report, nil
	}
}
