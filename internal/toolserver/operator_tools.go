package toolserver

import (
	"context"
	"fmt"

	"github.com/raildex/retrieval-engine/internal/operator"
	"github.com/raildex/retrieval-engine/internal/rerr"
)

// PipelineStatusTool wraps StatusReporter.Report, spec.md §6.3's
// `pipeline_status`.
type PipelineStatusTool struct {
	status *operator.StatusReporter
}

func NewPipelineStatusTool(status *operator.StatusReporter) *PipelineStatusTool {
	return &PipelineStatusTool{status: status}
}

func (t *PipelineStatusTool) Name() string        { return "pipeline_status" }
func (t *PipelineStatusTool) Description() string { return "Reports the aggregated pipeline and subsystem health snapshot." }
func (t *PipelineStatusTool) Schema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t *PipelineStatusTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	return t.status.Report(ctx)
}

// DiagnoseTool wraps IndexValidator.Validate, spec.md §6.3's `diagnose`.
// A `checks` parameter is accepted for forward compatibility with
// additional check names but is not yet used to filter: validation
// today only runs the one checkpoint-vs-catalog comparison.
type DiagnoseTool struct {
	validator *operator.IndexValidator
}

func NewDiagnoseTool(validator *operator.IndexValidator) *DiagnoseTool {
	return &DiagnoseTool{validator: validator}
}

func (t *DiagnoseTool) Name() string        { return "diagnose" }
func (t *DiagnoseTool) Description() string { return "Validates the unit catalog against the last embed checkpoint." }
func (t *DiagnoseTool) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"checks": map[string]any{"type": "array", "items": map[string]any{"type": "string"}}},
	}
}

func (t *DiagnoseTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	return t.validator.Validate(ctx)
}

// validRepairIssues mirrors operator.Issue's vocabulary for param
// validation at this boundary.
var validRepairIssues = map[string]operator.Issue{
	"missing_embeddings": operator.IssueMissingEmbeddings,
	"orphaned_vectors":   operator.IssueOrphanedVectors,
	"count_mismatch":     operator.IssueCountMismatch,
	"stale_units":        operator.IssueStaleUnits,
}

// RepairTool wraps Repairer.Repair, spec.md §6.3's `repair`.
type RepairTool struct {
	repairer *operator.Repairer
}

func NewRepairTool(repairer *operator.Repairer) *RepairTool { return &RepairTool{repairer: repairer} }

func (t *RepairTool) Name() string        { return "repair" }
func (t *RepairTool) Description() string { return "Performs one scoped repair operation, holding the pipeline lock for its duration." }
func (t *RepairTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"issue":       map[string]any{"type": "string", "enum": []string{"stale_units", "missing_embeddings", "orphaned_vectors", "count_mismatch"}},
			"identifiers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"issue"},
	}
}

func (t *RepairTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	raw, err := paramString(params, "issue")
	if err != nil {
		return nil, err
	}
	issue, ok := validRepairIssues[raw]
	if !ok {
		return nil, rerr.New(rerr.KindValidation, "toolserver.Repair", fmt.Errorf("unknown repair issue %q", raw))
	}
	identifiers := paramStringSlice(params, "identifiers")
	if err := t.repairer.Repair(ctx, issue, identifiers); err != nil {
		return nil, err
	}
	return map[string]any{"issue": raw, "repaired": len(identifiers)}, nil
}
