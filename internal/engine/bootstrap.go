// Package engine wires every collaborator package into one running
// instance from a loaded Config. cmd/retrieval-engine uses it to serve
// the tool-server loop; cmd/retrieval-cli uses it to run a single
// operator command and exit. The teacher wires everything inline inside
// cmd/conexus/main.go's func main(); this module factors that wiring
// into a package because two binaries, not one, need it.
package engine

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/raildex/retrieval-engine/internal/assemble"
	"github.com/raildex/retrieval-engine/internal/chunk"
	"github.com/raildex/retrieval-engine/internal/classify"
	"github.com/raildex/retrieval-engine/internal/config"
	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/feedback"
	"github.com/raildex/retrieval-engine/internal/graph"
	"github.com/raildex/retrieval-engine/internal/indexer"
	"github.com/raildex/retrieval-engine/internal/observability"
	"github.com/raildex/retrieval-engine/internal/operator"
	"github.com/raildex/retrieval-engine/internal/rank"
	"github.com/raildex/retrieval-engine/internal/resilience"
	"github.com/raildex/retrieval-engine/internal/retrieve"
	"github.com/raildex/retrieval-engine/internal/search"
	"github.com/raildex/retrieval-engine/internal/store"
	"github.com/raildex/retrieval-engine/internal/toolserver"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// chunkTokenCeiling bounds chunk size independent of the embedding
// provider's own dimensionality, matching the 2000-token ceiling the
// indexer's own tests exercise.
const chunkTokenCeiling = 2000

// Engine holds every long-lived collaborator plus the assembled tool
// registry.
type Engine struct {
	Config   *config.Config
	Logger   *observability.Logger
	Metrics  *observability.MetricsCollector
	Tracer   *observability.TracerProvider
	Registry *toolserver.Registry

	Units    unit.Store
	Vectors  store.VectorStore
	Metadata store.MetadataStore
	Graph    *graph.DependencyGraph
	Indexer  *indexer.Indexer
}

// Close shuts down the tracer provider. The Redis signal cache client
// that Build opens when Redis is enabled is not closed here.
func (e *Engine) Close(ctx context.Context) error {
	if e.Tracer == nil {
		return nil
	}
	return e.Tracer.Shutdown(ctx)
}

// Build constructs a fully wired Engine from cfg and logger/metrics the
// caller already set up (each binary builds its own logger, writing to
// stderr because stdout carries its JSON output, so construction of
// those two is left to the caller rather than duplicated here).
func Build(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.MetricsCollector) (*Engine, error) {
	e := &Engine{Config: cfg, Logger: logger, Metrics: metrics}
	metrics.SetSystemStartTime(time.Now())

	tracer, err := observability.NewTracerProvider(observability.TracerConfig{
		ServiceName:  "retrieval-engine",
		Environment:  cfg.Observability.Sentry.Environment,
		SamplingRate: cfg.Observability.Tracing.SampleRate,
		Enabled:      cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("build engine: tracer: %w", err)
	}
	e.Tracer = tracer

	units, err := unit.NewFileStore(ctx, cfg.Extraction.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("build engine: open unit store: %w", err)
	}
	e.Units = units

	vectors := store.NewMemoryVectorStore()
	metadata := store.NewMemoryMetadataStore()
	e.Vectors = vectors
	e.Metadata = metadata

	g := graph.New()
	e.Graph = g
	if err := seedGraph(ctx, units, g); err != nil {
		return nil, fmt.Errorf("build engine: seed graph: %w", err)
	}

	embedders := embedding.NewDefaultRegistry()
	factory, err := embedders.Get(cfg.Embedding.Provider)
	if err != nil {
		return nil, fmt.Errorf("build engine: resolve embedding provider %q: %w", cfg.Embedding.Provider, err)
	}
	embedder, err := factory.Create(map[string]any{
		"model":      cfg.Embedding.Model,
		"dimensions": cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("build engine: create embedding provider: %w", err)
	}

	onTransition := func(component string, from, to resilience.State) {
		logger.LogCircuitTransition(context.Background(), component, from.String(), to.String())
		metrics.RecordCircuitTransition(component, from.String(), to.String())
	}
	vectorBreaker := resilience.NewCircuitBreaker("vector_store", cfg.Resilience.FailureThreshold, cfg.Resilience.OpenDuration, onTransition)
	keywordBreaker := resilience.NewCircuitBreaker("keyword_store", cfg.Resilience.FailureThreshold, cfg.Resilience.OpenDuration, onTransition)
	graphBreaker := resilience.NewCircuitBreaker("graph_store", cfg.Resilience.FailureThreshold, cfg.Resilience.OpenDuration, onTransition)

	executor := search.New(search.Config{
		Units:          units,
		Vectors:        vectors,
		Metadata:       metadata,
		Graph:          g,
		Embedder:       embedder,
		VectorBreaker:  vectorBreaker,
		KeywordBreaker: keywordBreaker,
		GraphBreaker:   graphBreaker,
		Logger:         logger,
	})

	retriever := retrieve.New(retrieve.Config{
		Classifier: classify.New(),
		Executor:   executor,
		Ranker:     rank.New(metadata, rank.DefaultWeights()),
		Assembler:  assemble.New(units, assemble.MarkdownAdapter{}),
		Units:      units,
		Graph:      g,
	})

	idx := indexer.New(indexer.Config{
		Units:       units,
		Chunker:     chunk.NewChunker(chunkTokenCeiling),
		Preparer:    chunk.NewTextPreparer(chunkTokenCeiling),
		Embedder:    embedder,
		Vectors:     vectors,
		Metadata:    metadata,
		Graph:       g,
		Checkpoints: indexer.NewFileCheckpointStore(cfg.Extraction.OutputDir + "/.checkpoint.json"),
		Retry: resilience.RetryPolicy{
			MaxRetries:  cfg.Resilience.MaxRetries,
			BaseBackoff: cfg.Resilience.BaseBackoff,
			MaxBackoff:  cfg.Resilience.MaxBackoff,
		},
		BatchSize: cfg.Embedding.BatchSize,
		Logger:    logger,
		Metrics:   metrics,
	})
	e.Indexer = idx

	guard := operator.NewPipelineGuard(cfg.Operator.LockDir+"/guard.json", cfg.Operator.CooldownDuration)
	guard.SetMetrics(metrics)
	lock := operator.NewPipelineLock(cfg.Operator.LockDir+"/pipeline.lock", cfg.Operator.LockStaleThreshold)
	lock.SetMetrics(metrics)

	breakers := map[string]*resilience.CircuitBreaker{
		"vector_store":  vectorBreaker,
		"keyword_store": keywordBreaker,
		"graph_store":   graphBreaker,
	}
	reporter := operator.NewStatusReporter(operator.StatusConfig{
		Units:          units,
		GuardStatePath: cfg.Operator.LockDir + "/guard.json",
		Breakers:       breakers,
	})
	reporter.SetMetrics(metrics)
	validator := operator.NewIndexValidator(units, cfg.Extraction.OutputDir+"/.checkpoint.json")
	repairer := operator.NewRepairer(operator.RepairConfig{
		Lock:     lock,
		Units:    units,
		Vectors:  vectors,
		Embedder: embedder,
	})

	feedbackStore := feedback.NewFeedbackStore(cfg.Operator.FeedbackDir)
	var signalCache *feedback.RedisSignalCache
	if cfg.Store.Redis.Enabled {
		signalCache, err = feedback.NewRedisSignalCache(feedback.RedisCacheConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			TTL:      time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("build engine: redis signal cache: %w", err)
		}
	}
	gapDetector := feedback.NewGapDetector(feedbackStore, 7*24*time.Hour, signalCache)

	e.Registry = toolserver.BuildRegistry(toolserver.Bundle{
		Retriever:      retriever,
		Metadata:       metadata,
		Graph:          g,
		Units:          units,
		Indexer:        idx,
		PipelineGuard:  guard,
		PipelineLock:   lock,
		StatusReporter: reporter,
		IndexValidator: validator,
		Repairer:       repairer,
		Feedback:       feedbackStore,
		GapDetector:    gapDetector,
	})

	return e, nil
}

// ApplySpecEnv layers the environment contract both binaries document
// (OUTPUT_DIR, LOG_LEVEL, DEADLINE_MS) onto the RETRIEVAL_*-namespaced
// variables internal/config actually reads, so neither cmd/retrieval-cli
// nor cmd/retrieval-engine has to duplicate the reconciliation. Provider
// API keys pass through untouched; the embedding factories read those
// directly from the environment.
func ApplySpecEnv() {
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		os.Setenv("RETRIEVAL_OUTPUT_DIR", v)
	} else if os.Getenv("RETRIEVAL_OUTPUT_DIR") == "" {
		if cwd, err := os.Getwd(); err == nil {
			os.Setenv("RETRIEVAL_OUTPUT_DIR", cwd+"/tmp/codebase_index")
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		os.Setenv("RETRIEVAL_LOG_LEVEL", v)
	}
	if v := os.Getenv("DEADLINE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			os.Setenv("RETRIEVAL_BUDGET_OVERALL_DEADLINE", (time.Duration(ms) * time.Millisecond).String())
		}
	}
}

// seedGraph registers every unit the store already holds so the
// dependency graph reflects the on-disk extraction tree at startup,
// without waiting for the first embed to populate it.
func seedGraph(ctx context.Context, units unit.Store, g *graph.DependencyGraph) error {
	ids, err := units.List(ctx, "")
	if err != nil {
		return err
	}
	for _, id := range ids {
		u, err := units.Get(ctx, id)
		if err != nil {
			return err
		}
		edges := make([]store.GraphEdge, len(u.Dependencies))
		for i, dep := range u.Dependencies {
			edges[i] = store.GraphEdge{To: dep.TargetIdentifier, Kind: string(dep.RelationKind)}
		}
		if err := g.Register(ctx, u.Identifier, u.Type, edges); err != nil {
			return err
		}
	}
	return nil
}
