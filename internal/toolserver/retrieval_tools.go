package toolserver

import (
	"context"
	"fmt"

	"github.com/raildex/retrieval-engine/internal/retrieve"
	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/security"
	"github.com/raildex/retrieval-engine/internal/store"
)

func paramString(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", rerr.New(rerr.KindValidation, "toolserver.paramString", fmt.Errorf("missing required parameter %q", key))
	}
	s, ok := v.(string)
	if !ok {
		return "", rerr.New(rerr.KindValidation, "toolserver.paramString", fmt.Errorf("parameter %q must be a string", key))
	}
	return s, nil
}

func paramInt(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

func paramStringSlice(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// RetrieveTool wraps Retriever.Retrieve, spec.md §6.3's `retrieve`.
type RetrieveTool struct {
	retriever *retrieve.Retriever
}

// NewRetrieveTool builds a RetrieveTool over retriever.
func NewRetrieveTool(retriever *retrieve.Retriever) *RetrieveTool {
	return &RetrieveTool{retriever: retriever}
}

func (t *RetrieveTool) Name() string        { return "retrieve" }
func (t *RetrieveTool) Description() string { return "Retrieves a budgeted, ranked context for a natural-language query." }
func (t *RetrieveTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":                map[string]any{"type": "string"},
			"budget":               map[string]any{"type": "integer"},
			"previously_retrieved": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"query"},
	}
}

func (t *RetrieveTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	query, err := paramString(params, "query")
	if err != nil {
		return nil, err
	}
	return t.retriever.Retrieve(ctx, query, retrieve.Options{
		Budget:              paramInt(params, "budget", 0),
		PreviouslyRetrieved: paramStringSlice(params, "previously_retrieved"),
	})
}

// LookupTool wraps Retriever.Lookup, spec.md §6.3's `lookup`.
type LookupTool struct {
	retriever *retrieve.Retriever
}

func NewLookupTool(retriever *retrieve.Retriever) *LookupTool { return &LookupTool{retriever: retriever} }

func (t *LookupTool) Name() string        { return "lookup" }
func (t *LookupTool) Description() string { return "Fetches one identifier directly and formats it at full detail." }
func (t *LookupTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identifier": map[string]any{"type": "string"},
			"budget":     map[string]any{"type": "integer"},
		},
		"required": []string{"identifier"},
	}
}

func (t *LookupTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	identifier, err := paramString(params, "identifier")
	if err != nil {
		return nil, err
	}
	if err := security.ValidateIdentifier(identifier); err != nil {
		return nil, rerr.New(rerr.KindValidation, "toolserver.Lookup", err)
	}
	return t.retriever.Lookup(ctx, identifier, paramInt(params, "budget", 0))
}

// DependenciesTool wraps Retriever.Dependencies, spec.md §6.3's `dependencies`.
type DependenciesTool struct {
	retriever *retrieve.Retriever
}

func NewDependenciesTool(retriever *retrieve.Retriever) *DependenciesTool {
	return &DependenciesTool{retriever: retriever}
}

func (t *DependenciesTool) Name() string        { return "dependencies" }
func (t *DependenciesTool) Description() string { return "Traverses forward dependency edges from an identifier." }
func (t *DependenciesTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identifier": map[string]any{"type": "string"},
			"depth":      map[string]any{"type": "integer"},
		},
		"required": []string{"identifier"},
	}
}

func (t *DependenciesTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	identifier, err := paramString(params, "identifier")
	if err != nil {
		return nil, err
	}
	return t.retriever.Dependencies(ctx, identifier, paramInt(params, "depth", 1))
}

// DependentsTool wraps Retriever.Dependents, spec.md §6.3's `dependents`.
type DependentsTool struct {
	retriever *retrieve.Retriever
}

func NewDependentsTool(retriever *retrieve.Retriever) *DependentsTool {
	return &DependentsTool{retriever: retriever}
}

func (t *DependentsTool) Name() string        { return "dependents" }
func (t *DependentsTool) Description() string { return "Traverses reverse dependency edges from an identifier." }
func (t *DependentsTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identifier": map[string]any{"type": "string"},
			"depth":      map[string]any{"type": "integer"},
		},
		"required": []string{"identifier"},
	}
}

func (t *DependentsTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	identifier, err := paramString(params, "identifier")
	if err != nil {
		return nil, err
	}
	return t.retriever.Dependents(ctx, identifier, paramInt(params, "depth", 1))
}

// FrameworkTool wraps Retriever.Retrieve, phrasing concept/gem as a query
// the classifier's framework heuristics will naturally route to the
// framework search strategy, spec.md §6.3's `framework`.
type FrameworkTool struct {
	retriever *retrieve.Retriever
}

func NewFrameworkTool(retriever *retrieve.Retriever) *FrameworkTool {
	return &FrameworkTool{retriever: retriever}
}

func (t *FrameworkTool) Name() string        { return "framework" }
func (t *FrameworkTool) Description() string { return "Explains what a framework or gem provides for a given concept." }
func (t *FrameworkTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"concept": map[string]any{"type": "string"},
			"gem":     map[string]any{"type": "string"},
			"budget":  map[string]any{"type": "integer"},
		},
		"required": []string{"concept"},
	}
}

func (t *FrameworkTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	concept, err := paramString(params, "concept")
	if err != nil {
		return nil, err
	}
	gem, _ := params["gem"].(string)
	query := fmt.Sprintf("what options does %s implement for %s", gem, concept)
	if gem == "" {
		query = fmt.Sprintf("how does rails implement %s", concept)
	}
	return t.retriever.Retrieve(ctx, query, retrieve.Options{Budget: paramInt(params, "budget", 0)})
}

// SearchTool wraps MetadataStore.SearchKeywords directly, spec.md §6.3's
// `search`, distinct from `retrieve`'s full classify→rank pipeline.
type SearchTool struct {
	metadata store.MetadataStore
}

func NewSearchTool(metadata store.MetadataStore) *SearchTool { return &SearchTool{metadata: metadata} }

func (t *SearchTool) Name() string        { return "search" }
func (t *SearchTool) Description() string { return "Keyword search over indexed identifier, method, association, column, and route fields." }
func (t *SearchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"keywords": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"fields":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"limit":    map[string]any{"type": "integer"},
		},
		"required": []string{"keywords"},
	}
}

func (t *SearchTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	keywords := paramStringSlice(params, "keywords")
	if len(keywords) == 0 {
		return nil, rerr.New(rerr.KindValidation, "toolserver.Search", fmt.Errorf("keywords must be non-empty"))
	}
	if _, err := security.ValidateKeywords(keywords); err != nil {
		return nil, rerr.New(rerr.KindValidation, "toolserver.Search", err)
	}
	limit := paramInt(params, "limit", 20)
	fields := paramStringSlice(params, "fields")
	return t.metadata.SearchKeywords(ctx, keywords, fields, nil, limit)
}
