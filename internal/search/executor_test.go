package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raildex/retrieval-engine/internal/classify"
	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/graph"
	"github.com/raildex/retrieval-engine/internal/resilience"
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
	return &unit.Manifest{}, nil
}

func (f *fakeUnitStore) Reload(ctx context.Context) error { return nil }

// fakeEmbedder always succeeds unless failAlways is set.
type fakeEmbedder struct {
	failAlways bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) (*embedding.Embedding, error) {
	if f.failAlways {
		return nil, errors.New("embedding backend unavailable")
	}
	return &embedding.Embedding{Text: text, Vector: embedding.Vector{1, 0, 0}, Model: "fake-embed"}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*embedding.Embedding, error) {
	out := make([]*embedding.Embedding, 0, len(texts))
	for _, t := range texts {
		e, err := f.Embed(ctx, t)
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }
func (f *fakeEmbedder) Model() string   { return "fake-embed" }

// failingVectorStore always errors on Search, leaving every other
// VectorStore method a no-op, enough surface for a breaker-trip test.
type failingVectorStore struct {
	store.VectorStore
}

func (f *failingVectorStore) Search(ctx context.Context, vector embedding.Vector, filters map[string]any, limit int) ([]store.VectorRecord, error) {
	return nil, errors.New("vector store down")
}

type failingMetadataStore struct {
	store.MetadataStore
}

func (f *failingMetadataStore) SearchKeywords(ctx context.Context, keywords []string, fields []string, filters map[string]any, limit int) ([]store.MetadataRecord, error) {
	return nil, errors.New("metadata store down")
}

func newTestExecutor(t *testing.T, vectors store.VectorStore, metadata store.MetadataStore, g store.GraphStore, units unit.Store, embedder embedding.Provider) *Executor {
	t.Helper()
	noopTransition := func(component string, from, to resilience.State) {}
	return New(Config{
		Units:          units,
		Vectors:        vectors,
		Metadata:       metadata,
		Graph:          g,
		Embedder:       embedder,
		VectorBreaker:  resilience.NewCircuitBreaker("vector_store", 1, time.Minute, noopTransition),
		KeywordBreaker: resilience.NewCircuitBreaker("metadata_store", 1, time.Minute, noopTransition),
		GraphBreaker:   resilience.NewCircuitBreaker("graph_store", 1, time.Minute, noopTransition),
	})
}

func seedUnit(id, typ string) *unit.ExtractedUnit {
	return &unit.ExtractedUnit{Identifier: id, Type: typ, FilePath: "app/models/" + id + ".rb", Namespace: "App"}
}

func TestExecutor_Execute_DirectLookupForKnownEntity(t *testing.T) {
	units := newFakeUnitStore(seedUnit("UserController", "controller"))
	g := graph.New()
	require.NoError(t, g.Register(context.Background(), "UserController", "controller", nil))

	ex := newTestExecutor(t, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), g, units, &fakeEmbedder{})

	c := classify.Classification{Intent: classify.IntentDebug, Entities: []string{"UserController"}}
	result, err := ex.Execute(context.Background(), "why does UserController fail", c)
	require.NoError(t, err)
	assert.Equal(t, StrategyDirectGraph, result.Strategy)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "UserController", result.Candidates[0].Identifier)
	assert.Equal(t, 1.0, result.Candidates[0].Score)
}

func TestExecutor_Execute_PinpointReferenceUsesDirectThenKeyword(t *testing.T) {
	units := newFakeUnitStore(seedUnit("validate_email", "method"))
	metadata := store.NewMemoryMetadataStore()
	require.NoError(t, metadata.Upsert(context.Background(), "validate_email", map[string]any{"identifier": "validate_email"}))

	ex := newTestExecutor(t, store.NewMemoryVectorStore(), metadata, graph.New(), units, &fakeEmbedder{})

	c := classify.Classification{Intent: classify.IntentReference, Scope: classify.ScopePinpoint}
	result, err := ex.Execute(context.Background(), "signature of the validate_email method", c)
	require.NoError(t, err)
	assert.Equal(t, StrategyDirectThenKeyword, result.Strategy)
}

func TestExecutor_Execute_TraceWithKnownEntityRoutesDirectThenGraph(t *testing.T) {
	g := graph.New()
	ctx := context.Background()
	require.NoError(t, g.Register(ctx, "OrdersController", "controller", []store.GraphEdge{{To: "OrderService", Kind: "calls"}}))
	require.NoError(t, g.Register(ctx, "OrderService", "service", nil))

	units := newFakeUnitStore(seedUnit("OrdersController", "controller"), seedUnit("OrderService", "service"))
	ex := newTestExecutor(t, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), g, units, &fakeEmbedder{})

	c := classify.Classification{Intent: classify.IntentTrace, Entities: []string{"OrdersController"}}
	result, err := ex.Execute(ctx, "trace the call flow from OrdersController", c)
	require.NoError(t, err)
	assert.Equal(t, StrategyDirectGraph, result.Strategy, "entities present routes through direct-then-graph ahead of trace dispatch")
	_ = result
}

func TestExecutor_Execute_TraceFallsBackToHybridWithoutEntities(t *testing.T) {
	g := graph.New()
	units := newFakeUnitStore()
	ex := newTestExecutor(t, store.NewMemoryVectorStore(), store.NewMemoryMetadataStore(), g, units, &fakeEmbedder{})

	c := classify.Classification{Intent: classify.IntentTrace}
	result, err := ex.Execute(context.Background(), "trace what happens during checkout", c)
	require.NoError(t, err)
	assert.Equal(t, StrategyHybrid, result.Strategy)
}

func TestExecutor_Execute_HybridMergesVectorAndKeywordCandidates(t *testing.T) {
	ctx := context.Background()
	vectors := store.NewMemoryVectorStore()
	require.NoError(t, vectors.Upsert(ctx, "Order", embedding.Vector{1, 0, 0}, map[string]any{"type": "model"}))
	metadata := store.NewMemoryMetadataStore()
	require.NoError(t, metadata.Upsert(ctx, "Order", map[string]any{"identifier": "Order"}))

	ex := newTestExecutor(t, vectors, metadata, graph.New(), newFakeUnitStore(), &fakeEmbedder{})

	c := classify.Classification{Intent: classify.IntentUnderstand, Scope: classify.ScopeExploratory}
	result, err := ex.Execute(ctx, "explain how orders work", c)
	require.NoError(t, err)
	assert.Equal(t, StrategyHybrid, result.Strategy)
	var found bool
	for _, cand := range result.Candidates {
		if cand.Identifier == "Order" {
			found = true
			_, hasVector := cand.Sources[SourceVector]
			_, hasKeyword := cand.Sources[SourceKeyword]
			assert.True(t, hasVector || hasKeyword)
		}
	}
	assert.True(t, found)
}

func TestExecutor_Execute_HybridDegradesWhenVectorStoreDown(t *testing.T) {
	ctx := context.Background()
	metadata := store.NewMemoryMetadataStore()
	require.NoError(t, metadata.Upsert(ctx, "Order", map[string]any{"identifier": "Order"}))

	ex := newTestExecutor(t, &failingVectorStore{}, metadata, graph.New(), newFakeUnitStore(), &fakeEmbedder{})

	c := classify.Classification{Intent: classify.IntentUnderstand}
	result, err := ex.Execute(ctx, "explain orders", c)
	require.NoError(t, err)
	assert.Contains(t, result.Degraded, "vector")
}

func TestExecutor_Execute_HybridFailsHardWhenVectorAndKeywordBothDown(t *testing.T) {
	ex := newTestExecutor(t, &failingVectorStore{}, &failingMetadataStore{}, graph.New(), newFakeUnitStore(), &fakeEmbedder{})

	c := classify.Classification{Intent: classify.IntentUnderstand}
	_, err := ex.Execute(context.Background(), "explain orders", c)
	require.Error(t, err)
}

func TestExecutor_Execute_FrameworkIntentUsesFrameworkStrategy(t *testing.T) {
	ctx := context.Background()
	vectors := store.NewMemoryVectorStore()
	require.NoError(t, vectors.Upsert(ctx, "ActiveRecord::Validations", embedding.Vector{1, 0, 0}, map[string]any{"type": "framework"}))

	ex := newTestExecutor(t, vectors, store.NewMemoryMetadataStore(), graph.New(), newFakeUnitStore(), &fakeEmbedder{})

	c := classify.Classification{Intent: classify.IntentFramework, FrameworkContext: true}
	result, err := ex.Execute(ctx, "what options does ActiveRecord validation support", c)
	require.NoError(t, err)
	assert.Equal(t, StrategyFramework, result.Strategy)
}
