// Package retrieve implements the Retriever facade of spec.md §4.8: the
// single entry point that chains classification, search, ranking, and
// context assembly, plus the thin identifier-oriented pass-throughs that
// still route through the assembler for uniform output.
package retrieve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/raildex/retrieval-engine/internal/assemble"
	"github.com/raildex/retrieval-engine/internal/classify"
	"github.com/raildex/retrieval-engine/internal/rank"
	"github.com/raildex/retrieval-engine/internal/search"
	"github.com/raildex/retrieval-engine/internal/store"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// defaultDeadline is the overall request deadline the Retriever assigns
// when the caller's context carries none; sub-calls share it as is,
// spec.md §5's suspension-point rule.
const defaultDeadline = 30 * time.Second

// TraceStep is one stage of a retrieval's optional trace.
type TraceStep struct {
	Stage  string
	Detail string
}

// Result is the Retriever's output, spec.md §3's RetrievalResult.
type Result struct {
	Context           string
	TokensUsed        int
	TokenBudget       int
	AttributedSources []assemble.EmittedUnit
	Classification    classify.Classification
	Strategy          search.Strategy
	Trace             []TraceStep
}

// Options configures a single Retrieve call.
type Options struct {
	// Budget overrides the default token budget; the Retriever forwards
	// it verbatim to the ContextAssembler (spec.md §4.8: never
	// hardcoded).
	Budget int
	// PreviouslyRetrieved identifiers are filtered out of this call's
	// candidates, letting a caller page through results across turns.
	PreviouslyRetrieved []string
	// Trace requests the optional stage-by-stage trace be populated.
	Trace bool
}

// Retriever wires the classify → search → rank → assemble pipeline.
type Retriever struct {
	classifier *classify.Classifier
	executor   *search.Executor
	ranker     *rank.Ranker
	assembler  *assemble.Assembler
	units      unit.Store
	graph      store.GraphStore
}

// Config bundles the Retriever's collaborators.
type Config struct {
	Classifier *classify.Classifier
	Executor   *search.Executor
	Ranker     *rank.Ranker
	Assembler  *assemble.Assembler
	Units      unit.Store
	Graph      store.GraphStore
}

// New builds a Retriever from cfg.
func New(cfg Config) *Retriever {
	return &Retriever{
		classifier: cfg.Classifier,
		executor:   cfg.Executor,
		ranker:     cfg.Ranker,
		assembler:  cfg.Assembler,
		units:      cfg.Units,
		graph:      cfg.Graph,
	}
}

func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultDeadline)
}

// Retrieve runs the full pipeline: classify, select and execute a
// strategy, re-rank, and assemble the final budgeted context.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (*Result, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	var trace []TraceStep
	addTrace := func(stage, detail string) {
		if opts.Trace {
			trace = append(trace, TraceStep{Stage: stage, Detail: detail})
		}
	}

	classification := r.classifier.Classify(query)
	addTrace("classify", fmt.Sprintf("intent=%s scope=%s target_type=%s framework_context=%t",
		classification.Intent, classification.Scope, classification.TargetType, classification.FrameworkContext))

	searchResult, err := r.executor.Execute(ctx, query, classification)
	if err != nil {
		return nil, err
	}
	addTrace("search", fmt.Sprintf("strategy=%s candidates=%d degraded=%v", searchResult.Strategy, len(searchResult.Candidates), searchResult.Degraded))

	candidates := excludePreviouslyRetrieved(searchResult.Candidates, opts.PreviouslyRetrieved)

	ranked, err := r.ranker.Rank(ctx, candidates, searchResult.SourceRanks, classification)
	if err != nil {
		return nil, err
	}
	addTrace("rank", fmt.Sprintf("ranked=%d", len(ranked)))

	assembled, err := r.assembler.Assemble(ctx, ranked, classification, opts.Budget)
	if err != nil {
		return nil, err
	}
	addTrace("assemble", fmt.Sprintf("tokens_used=%d budget=%d emitted=%d", assembled.TokensUsed, assembled.Budget, len(assembled.Attribution)))

	return &Result{
		Context:           assembled.Text,
		TokensUsed:        assembled.TokensUsed,
		TokenBudget:       assembled.Budget,
		AttributedSources: assembled.Attribution,
		Classification:    classification,
		Strategy:          searchResult.Strategy,
		Trace:             trace,
	}, nil
}

func excludePreviouslyRetrieved(candidates []search.Candidate, seen []string) []search.Candidate {
	if len(seen) == 0 {
		return candidates
	}
	excluded := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		excluded[id] = struct{}{}
	}
	out := make([]search.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := excluded[c.Identifier]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Lookup fetches identifier directly from UnitStore and formats it at
// full detail through the assembler, subject to an optional budget
// override.
func (r *Retriever) Lookup(ctx context.Context, identifier string, budget int) (*Result, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	u, err := r.units.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	ranked := []rank.Ranked{unitToRanked(u, 1.0, search.SourceDirect)}

	assembled, err := r.assembler.Assemble(ctx, ranked, classify.Classification{}, budget)
	if err != nil {
		return nil, err
	}
	return resultFromAssembled(assembled, search.StrategyDirectGraph), nil
}

// Dependencies is a thin pass-through: traverse forward from id to depth
// and format every reached unit through the assembler.
func (r *Retriever) Dependencies(ctx context.Context, id string, depth int) (*Result, error) {
	return r.traverse(ctx, id, depth, r.graph.TraverseForward)
}

// Dependents is Dependencies' reverse-edge counterpart.
func (r *Retriever) Dependents(ctx context.Context, id string, depth int) (*Result, error) {
	return r.traverse(ctx, id, depth, r.graph.TraverseReverse)
}

func (r *Retriever) traverse(ctx context.Context, id string, depth int, walk func(context.Context, string, int) ([]string, error)) (*Result, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	ids, err := walk(ctx, id, depth)
	if err != nil {
		return nil, err
	}
	ranked := r.idsToRanked(ctx, ids)
	assembled, err := r.assembler.Assemble(ctx, ranked, classify.Classification{}, 0)
	if err != nil {
		return nil, err
	}
	return resultFromAssembled(assembled, search.StrategyDirectGraph), nil
}

// StructureDetail selects how much structural context Structure returns.
type StructureDetail string

const (
	StructureSummary StructureDetail = "summary"
	StructureFull    StructureDetail = "full"
)

// Structure is a thin pass-through over the unit catalog: summary detail
// samples a handful of units per type, full detail includes every unit.
// Deep graph analysis (pagerank, orphans/hubs/cycles/bridges) is exposed
// separately by the operator tool-server directly against the concrete
// DependencyGraph, not through this facade.
func (r *Retriever) Structure(ctx context.Context, detail StructureDetail) (*Result, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	all, err := r.units.All(ctx)
	if err != nil {
		return nil, err
	}

	const summarySamplePerType = 3
	byType := make(map[string][]*unit.ExtractedUnit)
	for _, u := range all {
		byType[u.Type] = append(byType[u.Type], u)
	}

	var selected []*unit.ExtractedUnit
	for _, group := range byType {
		if detail == StructureFull {
			selected = append(selected, group...)
			continue
		}
		n := summarySamplePerType
		if n > len(group) {
			n = len(group)
		}
		selected = append(selected, group[:n]...)
	}

	ranked := make([]rank.Ranked, 0, len(selected))
	for i, u := range selected {
		ranked = append(ranked, unitToRanked(u, 1.0-float64(i)*0.0001, search.SourceDirect))
	}

	assembled, err := r.assembler.Assemble(ctx, ranked, classify.Classification{}, 0)
	if err != nil {
		return nil, err
	}
	return resultFromAssembled(assembled, search.StrategyDirectGraph), nil
}

// RecentChanges is a thin pass-through: the limit most recently modified
// units of the given type (any type if empty), newest first.
func (r *Retriever) RecentChanges(ctx context.Context, limit int, typ string) (*Result, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	all, err := r.units.All(ctx)
	if err != nil {
		return nil, err
	}
	var filtered []*unit.ExtractedUnit
	for _, u := range all {
		if typ == "" || u.Type == typ {
			filtered = append(filtered, u)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Git.LastModified.After(filtered[j].Git.LastModified)
	})
	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}

	ranked := make([]rank.Ranked, 0, len(filtered))
	for i, u := range filtered {
		ranked = append(ranked, unitToRanked(u, 1.0-float64(i)*0.0001, search.SourceDirect))
	}

	assembled, err := r.assembler.Assemble(ctx, ranked, classify.Classification{}, 0)
	if err != nil {
		return nil, err
	}
	return resultFromAssembled(assembled, search.StrategyDirectGraph), nil
}

func (r *Retriever) idsToRanked(ctx context.Context, ids []string) []rank.Ranked {
	ranked := make([]rank.Ranked, 0, len(ids))
	for i, id := range ids {
		u, err := r.units.Get(ctx, id)
		if err != nil {
			continue
		}
		score := graphExpansionScore(i)
		ranked = append(ranked, unitToRanked(u, score, search.SourceGraphExpansion))
	}
	return ranked
}

func graphExpansionScore(depthIndex int) float64 {
	score := 0.5 - float64(depthIndex)*0.01
	if score < 0.1 {
		return 0.1
	}
	return score
}

func unitToRanked(u *unit.ExtractedUnit, score float64, source search.Source) rank.Ranked {
	return rank.Ranked{
		Candidate: search.Candidate{
			Identifier: u.Identifier,
			Score:      score,
			Sources:    map[search.Source]struct{}{source: {}},
			Metadata: map[string]any{
				"type":      u.Type,
				"namespace": u.Namespace,
				"file_path": u.FilePath,
			},
		},
		FinalScore:      score,
		UnitType:        u.Type,
		Namespace:       u.Namespace,
		ChangeFrequency: string(u.Git.ChangeFrequency),
	}
}

func resultFromAssembled(a *assemble.Assembled, strategy search.Strategy) *Result {
	return &Result{
		Context:           a.Text,
		TokensUsed:        a.TokensUsed,
		TokenBudget:       a.Budget,
		AttributedSources: a.Attribution,
		Strategy:          strategy,
	}
}
