package toolserver

import (
	"context"
	"fmt"

	"github.com/raildex/retrieval-engine/internal/retrieve"
	"github.com/raildex/retrieval-engine/internal/rerr"
)

// StructureTool wraps Retriever.Structure, spec.md §6.3's `structure`.
type StructureTool struct {
	retriever *retrieve.Retriever
}

func NewStructureTool(retriever *retrieve.Retriever) *StructureTool {
	return &StructureTool{retriever: retriever}
}

func (t *StructureTool) Name() string        { return "structure" }
func (t *StructureTool) Description() string { return "Returns a unit/type-level catalog sample: a few units per type (summary) or every unit (full)." }
func (t *StructureTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"detail": map[string]any{"type": "string", "enum": []string{"summary", "full"}},
		},
	}
}

func (t *StructureTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	detail := retrieve.StructureSummary
	if raw, ok := params["detail"].(string); ok && raw != "" {
		switch retrieve.StructureDetail(raw) {
		case retrieve.StructureSummary, retrieve.StructureFull:
			detail = retrieve.StructureDetail(raw)
		default:
			return nil, rerr.New(rerr.KindValidation, "toolserver.Structure", fmt.Errorf("unknown detail %q", raw))
		}
	}
	return t.retriever.Structure(ctx, detail)
}

// RecentChangesTool wraps Retriever.RecentChanges, spec.md §6.3's
// `recent_changes`.
type RecentChangesTool struct {
	retriever *retrieve.Retriever
}

func NewRecentChangesTool(retriever *retrieve.Retriever) *RecentChangesTool {
	return &RecentChangesTool{retriever: retriever}
}

func (t *RecentChangesTool) Name() string { return "recent_changes" }
func (t *RecentChangesTool) Description() string {
	return "Lists the most recently modified units, optionally filtered by type."
}
func (t *RecentChangesTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"limit": map[string]any{"type": "integer"},
			"type":  map[string]any{"type": "string"},
		},
	}
}

func (t *RecentChangesTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	typ, _ := params["type"].(string)
	return t.retriever.RecentChanges(ctx, paramInt(params, "limit", 20), typ)
}
