package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raildex/retrieval-engine/internal/classify"
	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/observability"
	"github.com/raildex/retrieval-engine/internal/resilience"
	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/store"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// Strategy names the dispatch decision SearchExecutor made, carried into
// the retrieval trace.
type Strategy string

const (
	StrategyFramework         Strategy = "framework_vector"
	StrategyDirectGraph       Strategy = "direct_then_graph"
	StrategyDirectThenKeyword Strategy = "direct_then_keyword"
	StrategyGraphTraversal    Strategy = "graph_traversal"
	StrategyHybrid            Strategy = "hybrid"
)

// Result is the SearchExecutor's output: the merged, deduplicated
// candidate list plus which strategy produced it, whether any backend was
// degraded along the way, and the per-source rank lists the Ranker needs
// to compute Reciprocal Rank Fusion (spec.md §4.5) — information that
// mergeCandidates necessarily discards once it collapses sources into a
// single deduplicated list.
type Result struct {
	Candidates  []Candidate
	Strategy    Strategy
	Degraded    []string
	SourceRanks map[Source][]string
}

// rankList sorts a strategy's own candidates by score descending and
// returns their identifiers in that order, the per-strategy rank list RRF
// fuses across.
func rankList(candidates []Candidate) []string {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sortCandidatesByScore(sorted)
	ids := make([]string, len(sorted))
	for i, c := range sorted {
		ids[i] = c.Identifier
	}
	return ids
}

// Executor dispatches a classified query to one or more search
// strategies, fanning independent strategies out concurrently via
// errgroup and merging their results, per spec.md §4.4.
type Executor struct {
	units    unit.Store
	vectors  store.VectorStore
	metadata store.MetadataStore
	graph    store.GraphStore
	embedder embedding.Provider

	vectorBreaker  *resilience.CircuitBreaker
	keywordBreaker *resilience.CircuitBreaker
	graphBreaker   *resilience.CircuitBreaker

	logger *observability.Logger
}

// Config bundles Executor's collaborators.
type Config struct {
	Units    unit.Store
	Vectors  store.VectorStore
	Metadata store.MetadataStore
	Graph    store.GraphStore
	Embedder embedding.Provider

	VectorBreaker  *resilience.CircuitBreaker
	KeywordBreaker *resilience.CircuitBreaker
	GraphBreaker   *resilience.CircuitBreaker

	Logger *observability.Logger
}

// New builds an Executor from cfg, constructing default circuit breakers
// for any left nil.
func New(cfg Config) *Executor {
	onTransition := func(component string, from, to resilience.State) {
		if cfg.Logger != nil {
			cfg.Logger.LogCircuitTransition(context.Background(), component, from.String(), to.String())
		}
	}
	if cfg.VectorBreaker == nil {
		cfg.VectorBreaker = resilience.NewCircuitBreaker("vector_store", 5, defaultBreakerCooldown, onTransition)
	}
	if cfg.KeywordBreaker == nil {
		cfg.KeywordBreaker = resilience.NewCircuitBreaker("metadata_store", 5, defaultBreakerCooldown, onTransition)
	}
	if cfg.GraphBreaker == nil {
		cfg.GraphBreaker = resilience.NewCircuitBreaker("graph_store", 5, defaultBreakerCooldown, onTransition)
	}
	return &Executor{
		units:          cfg.Units,
		vectors:        cfg.Vectors,
		metadata:       cfg.Metadata,
		graph:          cfg.Graph,
		embedder:       cfg.Embedder,
		vectorBreaker:  cfg.VectorBreaker,
		keywordBreaker: cfg.KeywordBreaker,
		graphBreaker:   cfg.GraphBreaker,
		logger:         cfg.Logger,
	}
}

const defaultLimit = 20

// Execute dispatches query against classification and returns the merged
// candidate set, selecting a strategy per spec.md §4.4's table.
func (e *Executor) Execute(ctx context.Context, query string, c classify.Classification) (*Result, error) {
	switch {
	case c.Intent == classify.IntentFramework || c.FrameworkContext:
		return e.executeFramework(ctx, query, c)
	case hasKnownIdentifier(c):
		return e.executeDirectThenGraph(ctx, c)
	case (c.Intent == classify.IntentReference || c.Intent == classify.IntentLocate) && c.Scope == classify.ScopePinpoint:
		return e.executeDirectThenKeyword(ctx, query, c)
	case c.Intent == classify.IntentTrace:
		return e.executeTrace(ctx, query, c)
	default:
		return e.executeHybrid(ctx, query, c)
	}
}

func hasKnownIdentifier(c classify.Classification) bool {
	return len(c.Entities) > 0
}

func (e *Executor) executeFramework(ctx context.Context, query string, c classify.Classification) (*Result, error) {
	filters := filtersFromClassification(c)
	filters["type"] = "framework"
	candidates, degraded, err := e.runVector(ctx, query, filters, defaultLimit)
	if err != nil {
		return nil, err
	}
	return &Result{
		Candidates:  candidates,
		Strategy:    StrategyFramework,
		Degraded:    degraded,
		SourceRanks: map[Source][]string{SourceVector: rankList(candidates)},
	}, nil
}

func (e *Executor) executeDirectThenGraph(ctx context.Context, c classify.Classification) (*Result, error) {
	var direct []Candidate
	for _, entity := range c.Entities {
		cand, err := directLookup(ctx, e.units, entity)
		if err != nil {
			continue
		}
		direct = append(direct, *cand)
	}
	if len(direct) == 0 {
		return &Result{Strategy: StrategyDirectGraph}, nil
	}
	expanded, degraded := e.runGraphExpansion(ctx, direct, defaultGraphExpansionTopK)
	merged := mergeCandidates(direct, expanded)
	return &Result{
		Candidates: merged,
		Strategy:   StrategyDirectGraph,
		Degraded:   degraded,
		SourceRanks: map[Source][]string{
			SourceDirect:         rankList(direct),
			SourceGraphExpansion: rankList(expanded),
		},
	}, nil
}

func (e *Executor) executeDirectThenKeyword(ctx context.Context, query string, c classify.Classification) (*Result, error) {
	var direct []Candidate
	for _, entity := range c.Entities {
		cand, err := directLookup(ctx, e.units, entity)
		if err == nil {
			direct = append(direct, *cand)
		}
	}
	keywordResults, degraded, err := e.runKeyword(ctx, query, filtersFromClassification(c), defaultLimit)
	if err != nil {
		return nil, err
	}
	merged := mergeCandidates(direct, keywordResults)
	return &Result{
		Candidates: merged,
		Strategy:   StrategyDirectThenKeyword,
		Degraded:   degraded,
		SourceRanks: map[Source][]string{
			SourceDirect:  rankList(direct),
			SourceKeyword: rankList(keywordResults),
		},
	}, nil
}

func (e *Executor) executeTrace(ctx context.Context, query string, c classify.Classification) (*Result, error) {
	if len(c.Entities) > 0 {
		entry := c.Entities[0]
		if e.graphBreaker.Allow() {
			forward, err := e.graph.TraverseForward(ctx, entry, 0)
			if err == nil {
				e.graphBreaker.RecordSuccess()
				candidates := make([]Candidate, 0, len(forward)+1)
				candidates = append(candidates, Candidate{Identifier: entry, Score: 1.0, Sources: sourceSet(SourceDirect)})
				for _, id := range forward {
					candidates = append(candidates, Candidate{Identifier: id, Score: graphExpansionDepth1Score, Sources: sourceSet(SourceGraphExpansion), ExpandedFrom: entry})
				}
				return &Result{
					Candidates: candidates,
					Strategy:   StrategyGraphTraversal,
					SourceRanks: map[Source][]string{
						SourceDirect:         {entry},
						SourceGraphExpansion: forward,
					},
				}, nil
			}
			e.graphBreaker.RecordFailure()
		}
	}
	return e.executeHybrid(ctx, query, c)
}

func (e *Executor) executeHybrid(ctx context.Context, query string, c classify.Classification) (*Result, error) {
	filters := filtersFromClassification(c)

	var vectorResults, keywordResults []Candidate
	var vectorDegraded, keywordDegraded []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorResults, vectorDegraded, err = e.runVector(gctx, query, filters, defaultLimit)
		return err
	})
	g.Go(func() error {
		var err error
		keywordResults, keywordDegraded, err = e.runKeyword(gctx, query, filters, defaultLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	degraded := append(vectorDegraded, keywordDegraded...)
	if len(vectorResults) == 0 && len(keywordResults) == 0 && len(degraded) >= 2 {
		return nil, rerr.New(rerr.KindCircuitOpen, "search.Execute", fmt.Errorf("all search backends unavailable"))
	}

	seeds := mergeCandidates(vectorResults, keywordResults)
	sortCandidatesByScore(seeds)
	expanded, graphDegraded := e.runGraphExpansion(ctx, seeds, defaultGraphExpansionTopK)
	degraded = append(degraded, graphDegraded...)

	merged := mergeCandidates(seeds, expanded)
	return &Result{
		Candidates: merged,
		Strategy:   StrategyHybrid,
		Degraded:   degraded,
		SourceRanks: map[Source][]string{
			SourceVector:         rankList(vectorResults),
			SourceKeyword:        rankList(keywordResults),
			SourceGraphExpansion: rankList(expanded),
		},
	}, nil
}

// runVector guards vectorSearch with the vector circuit breaker, per
// spec.md §4.4's degrade-on-failure rule: a tripped breaker yields an
// empty result plus a degradation note instead of failing the whole
// request.
func (e *Executor) runVector(ctx context.Context, query string, filters map[string]any, limit int) ([]Candidate, []string, error) {
	if !e.vectorBreaker.Allow() {
		return nil, []string{"vector"}, nil
	}
	candidates, err := vectorSearch(ctx, e.embedder, e.vectors, query, filters, limit)
	if err != nil {
		e.vectorBreaker.RecordFailure()
		return nil, []string{"vector"}, nil
	}
	e.vectorBreaker.RecordSuccess()
	return candidates, nil, nil
}

func (e *Executor) runKeyword(ctx context.Context, query string, filters map[string]any, limit int) ([]Candidate, []string, error) {
	if !e.keywordBreaker.Allow() {
		return nil, []string{"keyword"}, nil
	}
	keywords := strings.Fields(strings.ToLower(query))
	candidates, err := keywordSearch(ctx, e.metadata, keywords, filters, limit)
	if err != nil {
		e.keywordBreaker.RecordFailure()
		return nil, []string{"keyword"}, nil
	}
	e.keywordBreaker.RecordSuccess()
	return candidates, nil, nil
}

func (e *Executor) runGraphExpansion(ctx context.Context, seeds []Candidate, topK int) ([]Candidate, []string) {
	if !e.graphBreaker.Allow() {
		return nil, []string{"graph"}
	}
	expanded, err := graphExpansion(ctx, e.graph, seeds, topK)
	if err != nil {
		e.graphBreaker.RecordFailure()
		return nil, []string{"graph"}
	}
	e.graphBreaker.RecordSuccess()
	return expanded, nil
}

func sortCandidatesByScore(candidates []Candidate) {
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].Score > candidates[j-1].Score; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
}

// defaultBreakerCooldown is the default circuit-breaker open duration
// before a half-open trial call is allowed.
const defaultBreakerCooldown = 30 * time.Second
