package retrieve

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raildex/retrieval-engine/internal/assemble"
	"github.com/raildex/retrieval-engine/internal/classify"
	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/graph"
	"github.com/raildex/retrieval-engine/internal/rank"
	"github.com/raildex/retrieval-engine/internal/resilience"
	"github.com/raildex/retrieval-engine/internal/search"
	"github.com/raildex/retrieval-engine/internal/store"
	"github.com/raildex/retrieval-engine/internal/unit"
)

type fakeUnitStore struct {
	units map[string]*unit.ExtractedUnit
}

func newFakeUnitStore(units ...*unit.ExtractedUnit) *fakeUnitStore {
	fs := &fakeUnitStore{units: make(map[string]*unit.ExtractedUnit)}
	for _, u := range units {
		fs.units[u.Identifier] = u
	}
	return fs
}

func (f *fakeUnitStore) Get(ctx context.Context, id string) (*unit.ExtractedUnit, error) {
	u, ok := f.units[id]
	if !ok {
		return nil, fmt.Errorf("unit %q not found", id)
	}
	return u, nil
}

func (f *fakeUnitStore) List(ctx context.Context, typ string) ([]string, error) {
	var out []string
	for id, u := range f.units {
		if typ == "" || u.Type == typ {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeUnitStore) All(ctx context.Context) ([]*unit.ExtractedUnit, error) {
	var out []*unit.ExtractedUnit
	for _, u := range f.units {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUnitStore) Manifest(ctx context.Context) (*unit.Manifest, error) {
	return &unit.Manifest{GitSHA: "deadbeef", Counts: map[string]int{"model": len(f.units)}}, nil
}

func (f *fakeUnitStore) Reload(ctx context.Context) error { return nil }

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) (*embedding.Embedding, error) {
	return &embedding.Embedding{Text: text, Vector: embedding.Vector{1, 0, 0}, Model: "fake-embed"}, nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*embedding.Embedding, error) {
	out := make([]*embedding.Embedding, 0, len(texts))
	for _, t := range texts {
		e, _ := f.Embed(ctx, t)
		out = append(out, e)
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }
func (fakeEmbedder) Model() string   { return "fake-embed" }

func newTestRetriever(t *testing.T, units *fakeUnitStore, vectors store.VectorStore, metadata store.MetadataStore, g *graph.DependencyGraph) *Retriever {
	t.Helper()
	noopTransition := func(component string, from, to resilience.State) {}
	ex := search.New(search.Config{
		Units:          units,
		Vectors:        vectors,
		Metadata:       metadata,
		Graph:          g,
		Embedder:       fakeEmbedder{},
		VectorBreaker:  resilience.NewCircuitBreaker("vector_store", 3, time.Minute, noopTransition),
		KeywordBreaker: resilience.NewCircuitBreaker("metadata_store", 3, time.Minute, noopTransition),
		GraphBreaker:   resilience.NewCircuitBreaker("graph_store", 3, time.Minute, noopTransition),
	})
	return New(Config{
		Classifier: classify.New(),
		Executor:   ex,
		Ranker:     rank.New(metadata, rank.Weights{}),
		Assembler:  assemble.New(units, assemble.MarkdownAdapter{}),
		Units:      units,
		Graph:      g,
	})
}

func seedUnit(id, typ string) *unit.ExtractedUnit {
	return &unit.ExtractedUnit{
		Identifier: id,
		Type:       typ,
		FilePath:   "app/models/" + id + ".rb",
		Namespace:  "App",
		SourceCode: "class " + id + "; end",
	}
}

func TestRetriever_Retrieve_RunsFullPipelineAndReturnsContext(t *testing.T) {
	ctx := context.Background()
	units := newFakeUnitStore(seedUnit("Order", "model"))
	vectors := store.NewMemoryVectorStore()
	require.NoError(t, vectors.Upsert(ctx, "Order", embedding.Vector{1, 0, 0}, map[string]any{"type": "model", "parent": "Order"}))
	metadata := store.NewMemoryMetadataStore()
	require.NoError(t, metadata.Upsert(ctx, "Order", map[string]any{"type": "model", "namespace": "App", "change_frequency": "hot", "importance": "high"}))
	g := graph.New()
	require.NoError(t, g.Register(ctx, "Order", "model", nil))

	r := newTestRetriever(t, units, vectors, metadata, g)

	result, err := r.Retrieve(ctx, "explain how orders work", Options{Budget: assemble.DefaultBudget})
	require.NoError(t, err)
	assert.Contains(t, result.Context, "Order")
	assert.Equal(t, classify.IntentUnderstand, result.Classification.Intent)
	assert.NotEmpty(t, result.Strategy)
}

func TestRetriever_Retrieve_FiltersPreviouslyRetrievedCandidates(t *testing.T) {
	ctx := context.Background()
	units := newFakeUnitStore(seedUnit("Order", "model"), seedUnit("Invoice", "model"))
	vectors := store.NewMemoryVectorStore()
	require.NoError(t, vectors.Upsert(ctx, "Order", embedding.Vector{1, 0, 0}, map[string]any{"type": "model"}))
	require.NoError(t, vectors.Upsert(ctx, "Invoice", embedding.Vector{1, 0, 0}, map[string]any{"type": "model"}))
	metadata := store.NewMemoryMetadataStore()
	g := graph.New()

	r := newTestRetriever(t, units, vectors, metadata, g)

	result, err := r.Retrieve(ctx, "explain billing", Options{Budget: assemble.DefaultBudget, PreviouslyRetrieved: []string{"Order", "Invoice"}})
	require.NoError(t, err)
	assert.NotContains(t, result.Context, "class Order")
	assert.NotContains(t, result.Context, "class Invoice")
}

func TestRetriever_Retrieve_PopulatesTraceWhenRequested(t *testing.T) {
	ctx := context.Background()
	units := newFakeUnitStore(seedUnit("Order", "model"))
	vectors := store.NewMemoryVectorStore()
	require.NoError(t, vectors.Upsert(ctx, "Order", embedding.Vector{1, 0, 0}, map[string]any{"type": "model"}))

	r := newTestRetriever(t, units, vectors, store.NewMemoryMetadataStore(), graph.New())

	result, err := r.Retrieve(ctx, "explain orders", Options{Budget: assemble.DefaultBudget, Trace: true})
	require.NoError(t, err)
	require.NotEmpty(t, result.Trace)
	var stages []string
	for _, step := range result.Trace {
		stages = append(stages, step.Stage)
	}
	assert.Equal(t, []string{"classify", "search", "rank", "assemble"}, stages)
}

func TestRetriever_Lookup_ReturnsUnitAtFullDetail(t *testing.T) {
	units := newFakeUnitStore(seedUnit("Order", "model"))
	r := newTestRetriever(t, units, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), graph.New())

	result, err := r.Lookup(context.Background(), "Order", 0)
	require.NoError(t, err)
	assert.Contains(t, result.Context, "class Order")
}

func TestRetriever_Lookup_ReturnsErrorForUnknownIdentifier(t *testing.T) {
	units := newFakeUnitStore()
	r := newTestRetriever(t, units, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), graph.New())

	_, err := r.Lookup(context.Background(), "Ghost", 0)
	assert.Error(t, err)
}

func TestRetriever_Dependencies_FollowsForwardEdges(t *testing.T) {
	ctx := context.Background()
	units := newFakeUnitStore(seedUnit("OrdersController", "controller"), seedUnit("OrderService", "service"))
	g := graph.New()
	require.NoError(t, g.Register(ctx, "OrdersController", "controller", []store.GraphEdge{{To: "OrderService", Kind: "calls"}}))
	require.NoError(t, g.Register(ctx, "OrderService", "service", nil))

	r := newTestRetriever(t, units, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), g)

	result, err := r.Dependencies(ctx, "OrdersController", 2)
	require.NoError(t, err)
	assert.Contains(t, result.Context, "OrderService")
}

func TestRetriever_Dependents_FollowsReverseEdges(t *testing.T) {
	ctx := context.Background()
	units := newFakeUnitStore(seedUnit("OrdersController", "controller"), seedUnit("OrderService", "service"))
	g := graph.New()
	require.NoError(t, g.Register(ctx, "OrdersController", "controller", []store.GraphEdge{{To: "OrderService", Kind: "calls"}}))
	require.NoError(t, g.Register(ctx, "OrderService", "service", nil))

	r := newTestRetriever(t, units, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), g)

	result, err := r.Dependents(ctx, "OrderService", 2)
	require.NoError(t, err)
	assert.Contains(t, result.Context, "OrdersController")
}

func TestRetriever_Structure_SummarySamplesPerType(t *testing.T) {
	units := newFakeUnitStore(
		seedUnit("Order", "model"), seedUnit("Invoice", "model"), seedUnit("Payment", "model"), seedUnit("Refund", "model"),
		seedUnit("OrdersController", "controller"),
	)
	r := newTestRetriever(t, units, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), graph.New())

	result, err := r.Structure(context.Background(), StructureSummary)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.AttributedSources), 4)
}

func TestRetriever_Structure_FullIncludesEveryUnit(t *testing.T) {
	units := newFakeUnitStore(seedUnit("Order", "model"), seedUnit("Invoice", "model"))
	r := newTestRetriever(t, units, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), graph.New())

	result, err := r.Structure(context.Background(), StructureFull)
	require.NoError(t, err)
	assert.Len(t, result.AttributedSources, 2)
}

func TestRetriever_RecentChanges_OrdersNewestFirstAndRespectsLimit(t *testing.T) {
	older := seedUnit("Invoice", "model")
	older.Git.LastModified = time.Now().Add(-48 * time.Hour)
	newer := seedUnit("Order", "model")
	newer.Git.LastModified = time.Now()

	units := newFakeUnitStore(older, newer)
	r := newTestRetriever(t, units, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), graph.New())

	result, err := r.RecentChanges(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, result.AttributedSources, 1)
	assert.Equal(t, "Order", result.AttributedSources[0].Identifier)
}

func TestRetriever_RecentChanges_FiltersByType(t *testing.T) {
	units := newFakeUnitStore(seedUnit("Order", "model"), seedUnit("OrdersController", "controller"))
	r := newTestRetriever(t, units, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), graph.New())

	result, err := r.RecentChanges(context.Background(), 0, "controller")
	require.NoError(t, err)
	require.Len(t, result.AttributedSources, 1)
	assert.Equal(t, "OrdersController", result.AttributedSources[0].Identifier)
}
