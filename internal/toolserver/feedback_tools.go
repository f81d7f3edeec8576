package toolserver

import (
	"context"
	"fmt"

	"github.com/raildex/retrieval-engine/internal/feedback"
	"github.com/raildex/retrieval-engine/internal/retrieve"
	"github.com/raildex/retrieval-engine/internal/rerr"
)

var validRatings = map[string]feedback.Rating{
	"helpful":   feedback.RatingHelpful,
	"partial":   feedback.RatingPartial,
	"unhelpful": feedback.RatingUnhelpful,
	"wrong":     feedback.RatingWrong,
}

// RateRetrievalTool wraps FeedbackStore.RecordRating, spec.md §6.3's
// `rate_retrieval`.
type RateRetrievalTool struct {
	store *feedback.FeedbackStore
}

func NewRateRetrievalTool(store *feedback.FeedbackStore) *RateRetrievalTool {
	return &RateRetrievalTool{store: store}
}

func (t *RateRetrievalTool) Name() string        { return "rate_retrieval" }
func (t *RateRetrievalTool) Description() string { return "Records an operator's rating of a retrieval result." }
func (t *RateRetrievalTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":   map[string]any{"type": "string"},
			"rating":  map[string]any{"type": "string", "enum": []string{"helpful", "partial", "unhelpful", "wrong"}},
			"missing": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"notes":   map[string]any{"type": "string"},
		},
		"required": []string{"query", "rating"},
	}
}

func (t *RateRetrievalTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	query, err := paramString(params, "query")
	if err != nil {
		return nil, err
	}
	raw, err := paramString(params, "rating")
	if err != nil {
		return nil, err
	}
	rating, ok := validRatings[raw]
	if !ok {
		return nil, rerr.New(rerr.KindValidation, "toolserver.RateRetrieval", fmt.Errorf("unknown rating %q", raw))
	}
	notes, _ := params["notes"].(string)
	entry := feedback.RatingEntry{
		Query:   query,
		Rating:  rating,
		Missing: paramStringSlice(params, "missing"),
		Notes:   notes,
	}
	if err := t.store.RecordRating(ctx, entry); err != nil {
		return nil, err
	}
	return map[string]any{"recorded": true}, nil
}

// ReportGapTool wraps FeedbackStore.RecordGap, spec.md §6.3's
// `report_gap`.
type ReportGapTool struct {
	store *feedback.FeedbackStore
}

func NewReportGapTool(store *feedback.FeedbackStore) *ReportGapTool { return &ReportGapTool{store: store} }

func (t *ReportGapTool) Name() string        { return "report_gap" }
func (t *ReportGapTool) Description() string { return "Records a retrieval gap: something expected but not returned." }
func (t *ReportGapTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description":         map[string]any{"type": "string"},
			"query":               map[string]any{"type": "string"},
			"expected_type":       map[string]any{"type": "string"},
			"expected_identifier": map[string]any{"type": "string"},
		},
		"required": []string{"description"},
	}
}

func (t *ReportGapTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	description, err := paramString(params, "description")
	if err != nil {
		return nil, err
	}
	query, _ := params["query"].(string)
	expectedType, _ := params["expected_type"].(string)
	expectedIdentifier, _ := params["expected_identifier"].(string)
	entry := feedback.GapReportEntry{
		Description:        description,
		Query:              query,
		ExpectedType:       expectedType,
		ExpectedIdentifier: expectedIdentifier,
	}
	if err := t.store.RecordGap(ctx, entry); err != nil {
		return nil, err
	}
	return map[string]any{"recorded": true}, nil
}

// RetrievalExplainTool runs the full retrieval pipeline with tracing
// forced on, records the trace to the feedback log, and returns it
// untrimmed, spec.md §6.3's `retrieval_explain` and SPEC_FULL.md §C's
// refinement of it.
type RetrievalExplainTool struct {
	retriever *retrieve.Retriever
	store     *feedback.FeedbackStore
}

func NewRetrievalExplainTool(retriever *retrieve.Retriever, store *feedback.FeedbackStore) *RetrievalExplainTool {
	return &RetrievalExplainTool{retriever: retriever, store: store}
}

func (t *RetrievalExplainTool) Name() string        { return "retrieval_explain" }
func (t *RetrievalExplainTool) Description() string { return "Runs retrieval with the full stage trace and records it for gap analysis." }
func (t *RetrievalExplainTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":  map[string]any{"type": "string"},
			"budget": map[string]any{"type": "integer"},
		},
		"required": []string{"query"},
	}
}

func (t *RetrievalExplainTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	query, err := paramString(params, "query")
	if err != nil {
		return nil, err
	}
	budget := paramInt(params, "budget", 0)
	result, err := t.retriever.Retrieve(ctx, query, retrieve.Options{Budget: budget, Trace: true})
	if err != nil {
		return nil, err
	}

	var topScore float64
	if len(result.AttributedSources) > 0 {
		topScore = result.AttributedSources[0].Score
	}
	steps := make([]feedback.TraceStepRecord, 0, len(result.Trace))
	for _, s := range result.Trace {
		steps = append(steps, feedback.TraceStepRecord{Stage: s.Stage, Detail: s.Detail})
	}
	_ = t.store.RecordExplain(ctx, feedback.ExplainEntry{
		Query:       query,
		Budget:      budget,
		Steps:       steps,
		ResultCount: len(result.AttributedSources),
		TopScore:    topScore,
	})
	return result, nil
}

// SuggestImprovementsTool runs GapDetector over the trailing 7-day
// feedback window, spec.md §4.11 + SPEC_FULL.md §C's `suggest_improvements`.
type SuggestImprovementsTool struct {
	detector *feedback.GapDetector
}

func NewSuggestImprovementsTool(detector *feedback.GapDetector) *SuggestImprovementsTool {
	return &SuggestImprovementsTool{detector: detector}
}

func (t *SuggestImprovementsTool) Name() string        { return "suggest_improvements" }
func (t *SuggestImprovementsTool) Description() string { return "Scans the trailing feedback window for prioritized quality-gap signals." }
func (t *SuggestImprovementsTool) Schema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t *SuggestImprovementsTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	return t.detector.Detect(ctx)
}
