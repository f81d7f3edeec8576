// Package store defines the VectorStore, MetadataStore, and GraphStore
// interfaces of spec.md §6.2, plus an in-memory implementation of the
// first two used by default and by every other package's tests. A
// sqlite-backed implementation lives in sqlite.go for operators who need
// on-disk persistence across process restarts.
package store

import (
	"context"
	"time"

	"github.com/raildex/retrieval-engine/internal/embedding"
)

// VectorRecord is what VectorStore.Search returns: an id, its similarity
// to the query vector, and the metadata snapshot captured at upsert time.
type VectorRecord struct {
	ID         string
	Similarity float32
	Metadata   map[string]any
}

// VectorStore persists chunk vectors and a metadata snapshot, and serves
// filtered similarity search. Filter keys are validated by
// internal/validation before ever reaching an implementation.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector embedding.Vector, metadata map[string]any) error
	UpsertBatch(ctx context.Context, items []VectorUpsert) error
	Search(ctx context.Context, vector embedding.Vector, filters map[string]any, limit int) ([]VectorRecord, error)
	Delete(ctx context.Context, ids []string) error
	DeleteByFilter(ctx context.Context, filters map[string]any) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// VectorUpsert is one item of a VectorStore.UpsertBatch call.
type VectorUpsert struct {
	ID       string
	Vector   embedding.Vector
	Metadata map[string]any
}

// MetadataRecord is what MetadataStore.SearchKeywords returns.
type MetadataRecord struct {
	ID            string
	MatchScore    float64
	MatchedFields []string
	Metadata      map[string]any
}

// MetadataStore persists full unit/chunk metadata and serves keyword and
// structured-filter queries. Keywords are passed unescaped: each
// implementation runs internal/security.ValidateKeywords on them itself
// and matches the trimmed raw tokens by substring containment.
type MetadataStore interface {
	Upsert(ctx context.Context, id string, metadata map[string]any) error
	Find(ctx context.Context, id string) (map[string]any, error)
	SearchKeywords(ctx context.Context, keywords []string, fields []string, filters map[string]any, limit int) ([]MetadataRecord, error)
	Query(ctx context.Context, filters map[string]any, limit int) ([]string, error)
	ListByType(ctx context.Context, typ string, limit int) ([]string, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// KeywordFields is the indexed field set MetadataStore.SearchKeywords
// matches against, per spec.md §4.4.
var KeywordFields = []string{"identifier", "method_names", "association_names", "column_names", "route_paths"}

// fieldPriority breaks keyword-match ties; lower index wins.
var fieldPriority = map[string]int{
	"identifier":         0,
	"method_names":       1,
	"association_names":  2,
	"column_names":       3,
	"route_paths":        4,
}

// timestamped is embedded by in-memory records to support Stats-style
// reporting without every backend re-deriving it.
type timestamped struct {
	createdAt time.Time
	updatedAt time.Time
}

// GraphEdge is one forward dependency edge exposed by GraphStore.
type GraphEdge struct {
	To   string
	Kind string
}

// GraphStore persists the dependency graph's node registry and forward
// edges, and serves the traversal/path operations of spec.md §6.2.
// internal/graph's DependencyGraph is the in-memory implementation;
// registration there recomputes the reverse adjacency itself rather than
// trusting a stored copy, for the same duality reason internal/unit's
// FileStore does.
type GraphStore interface {
	Register(ctx context.Context, id, typ string, edges []GraphEdge) error
	DependenciesOf(ctx context.Context, id string) ([]string, error)
	DependentsOf(ctx context.Context, id string) ([]string, error)
	TraverseForward(ctx context.Context, start string, maxDepth int) ([]string, error)
	TraverseReverse(ctx context.Context, start string, maxDepth int) ([]string, error)
	ShortestPath(ctx context.Context, from, to string) ([]string, error)
	SubgraphForTypes(ctx context.Context, types []string) ([]string, error)
}
