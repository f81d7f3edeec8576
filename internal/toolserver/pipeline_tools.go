package toolserver

import (
	"context"
	"fmt"

	"github.com/raildex/retrieval-engine/internal/indexer"
	"github.com/raildex/retrieval-engine/internal/operator"
	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/unit"
)

func runMode(params map[string]any) (string, error) {
	mode, err := paramString(params, "mode")
	if err != nil {
		return "", err
	}
	if mode != "full" && mode != "incremental" {
		return "", rerr.New(rerr.KindValidation, "toolserver.runMode", fmt.Errorf("mode must be %q or %q, got %q", "full", "incremental", mode))
	}
	return mode, nil
}

// ExtractTool triggers a re-sync of the in-memory unit catalog against
// the on-disk extraction tree, spec.md §6.3's `extract`. Actual
// file-level extraction is performed by an external, non-Go process;
// this tool's full scope is the cooldown/lock-gated Reload, the same
// boundary internal/operator's repair operations draw.
type ExtractTool struct {
	guard *operator.PipelineGuard
	lock  *operator.PipelineLock
	units unit.Store
}

func NewExtractTool(guard *operator.PipelineGuard, lock *operator.PipelineLock, units unit.Store) *ExtractTool {
	return &ExtractTool{guard: guard, lock: lock, units: units}
}

func (t *ExtractTool) Name() string        { return "extract" }
func (t *ExtractTool) Description() string { return "Re-syncs the in-memory unit catalog from the on-disk extraction tree, full or incremental." }
func (t *ExtractTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mode":    map[string]any{"type": "string", "enum": []string{"full", "incremental"}},
			"dry_run": map[string]any{"type": "boolean"},
		},
		"required": []string{"mode"},
	}
}

func (t *ExtractTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	mode, err := runMode(params)
	if err != nil {
		return nil, err
	}
	if dryRun, _ := params["dry_run"].(bool); dryRun {
		return t.units.Manifest(ctx)
	}

	if mode == "full" {
		if err := t.guard.CheckAndRecord(ctx, operator.RunExtract); err != nil {
			return nil, err
		}
	}
	if err := t.lock.Acquire(ctx, "extractor", "extract:"+mode); err != nil {
		return nil, err
	}
	defer t.lock.Release(ctx)

	if err := t.units.Reload(ctx); err != nil {
		return nil, err
	}
	return t.units.Manifest(ctx)
}

// EmbedTool wraps Indexer.IndexAll/IndexIncremental, spec.md §6.3's
// `embed`.
type EmbedTool struct {
	guard *operator.PipelineGuard
	lock  *operator.PipelineLock
	index *indexer.Indexer
}

func NewEmbedTool(guard *operator.PipelineGuard, lock *operator.PipelineLock, index *indexer.Indexer) *EmbedTool {
	return &EmbedTool{guard: guard, lock: lock, index: index}
}

func (t *EmbedTool) Name() string        { return "embed" }
func (t *EmbedTool) Description() string { return "Re-embeds and upserts units, full or incremental over a given identifier list." }
func (t *EmbedTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mode":        map[string]any{"type": "string", "enum": []string{"full", "incremental"}},
			"identifiers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"mode"},
	}
}

func (t *EmbedTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	mode, err := runMode(params)
	if err != nil {
		return nil, err
	}

	if mode == "full" {
		if err := t.guard.CheckAndRecord(ctx, operator.RunEmbed); err != nil {
			return nil, err
		}
	}
	if err := t.lock.Acquire(ctx, "embedder", "embed:"+mode); err != nil {
		return nil, err
	}
	defer t.lock.Release(ctx)

	if mode == "full" {
		return t.index.IndexAll(ctx)
	}
	ids := paramStringSlice(params, "identifiers")
	if len(ids) == 0 {
		return nil, rerr.New(rerr.KindValidation, "toolserver.Embed", fmt.Errorf("incremental embed requires identifiers"))
	}
	return t.index.IndexIncremental(ctx, ids)
}
