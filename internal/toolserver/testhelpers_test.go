package toolserver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raildex/retrieval-engine/internal/assemble"
	"github.com/raildex/retrieval-engine/internal/classify"
	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/graph"
	"github.com/raildex/retrieval-engine/internal/rank"
	"github.com/raildex/retrieval-engine/internal/resilience"
	"github.com/raildex/retrieval-engine/internal/retrieve"
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

// newTestRetriever builds a real Retriever over in-memory stores, the
// same seam internal/retrieve's own tests use.
func newTestRetriever(t *testing.T, units *fakeUnitStore, vectors store.VectorStore, metadata store.MetadataStore, g *graph.DependencyGraph) *retrieve.Retriever {
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
	return retrieve.New(retrieve.Config{
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

func newTestRetrieverWithOrder(t *testing.T) *retrieve.Retriever {
	t.Helper()
	ctx := context.Background()
	units := newFakeUnitStore(seedUnit("Order", "model"))
	vectors := store.NewMemoryVectorStore()
	require.NoError(t, vectors.Upsert(ctx, "Order", embedding.Vector{1, 0, 0}, map[string]any{"type": "model", "parent": "Order"}))
	metadata := store.NewMemoryMetadataStore()
	require.NoError(t, metadata.Upsert(ctx, "Order", map[string]any{"type": "model", "namespace": "App", "change_frequency": "hot", "importance": "high"}))
	g := graph.New()
	require.NoError(t, g.Register(ctx, "Order", "model", nil))
	return newTestRetriever(t, units, vectors, metadata, g)
}
