package search

import (
	"context"

	"github.com/raildex/retrieval-engine/internal/classify"
	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/store"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// graphExpansionDepth1Score is the fixed score spec.md §4.4 assigns to
// every graph-expansion candidate, regardless of its source candidate's
// own score.
const graphExpansionDepth1Score = 0.5

// defaultGraphExpansionTopK is the number of top-scoring candidates
// whose forward dependencies are expanded, spec.md §4.4's default K.
const defaultGraphExpansionTopK = 5

// keywordFields is the indexed field set MetadataStore.SearchKeywords
// scans, per spec.md §4.4.
var keywordFields = []string{"identifier", "method_names", "association_names", "column_names", "route_paths"}

// vectorSearch embeds query once and calls VectorStore.Search with the
// filters classification implies. filters must already be validated
// against the allow-list by the caller (internal/validation).
func vectorSearch(ctx context.Context, embedder embedding.Provider, vectors store.VectorStore, query string, filters map[string]any, limit int) ([]Candidate, error) {
	embedded, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	records, err := vectors.Search(ctx, embedded.Vector, filters, limit)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(records))
	for _, r := range records {
		candidates = append(candidates, Candidate{
			Identifier: r.ID,
			Score:      float64(r.Similarity),
			Sources:    sourceSet(SourceVector),
			Metadata:   r.Metadata,
		})
	}
	return candidates, nil
}

// keywordSearch searches the fixed keyword field set with the given
// terms, per spec.md §4.4.
func keywordSearch(ctx context.Context, metadata store.MetadataStore, keywords []string, filters map[string]any, limit int) ([]Candidate, error) {
	records, err := metadata.SearchKeywords(ctx, keywords, keywordFields, filters, limit)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(records))
	for _, r := range records {
		candidates = append(candidates, Candidate{
			Identifier:    r.ID,
			Score:         r.MatchScore,
			Sources:       sourceSet(SourceKeyword),
			Metadata:      r.Metadata,
			MatchedFields: r.MatchedFields,
		})
	}
	return candidates, nil
}

// graphExpansion includes, for each of the top-K seed candidates, its
// forward dependencies at depth 1, scored at the fixed
// graphExpansionDepth1Score and tagged with the seed they expanded from.
func graphExpansion(ctx context.Context, graph store.GraphStore, seeds []Candidate, topK int) ([]Candidate, error) {
	if topK <= 0 {
		topK = defaultGraphExpansionTopK
	}
	if topK > len(seeds) {
		topK = len(seeds)
	}
	var expanded []Candidate
	for _, seed := range seeds[:topK] {
		deps, err := graph.DependenciesOf(ctx, seed.Identifier)
		if err != nil {
			continue
		}
		for _, dep := range deps {
			expanded = append(expanded, Candidate{
				Identifier:   dep,
				Score:        graphExpansionDepth1Score,
				Sources:      sourceSet(SourceGraphExpansion),
				ExpandedFrom: seed.Identifier,
			})
		}
	}
	return expanded, nil
}

// directLookup fetches identifier from the unit store and returns a
// single Candidate scored 1.0, the spec's direct-lookup contract.
func directLookup(ctx context.Context, units unit.Store, identifier string) (*Candidate, error) {
	u, err := units.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return &Candidate{
		Identifier: u.Identifier,
		Score:      1.0,
		Sources:    sourceSet(SourceDirect),
		Metadata: map[string]any{
			"type":      u.Type,
			"namespace": u.Namespace,
			"file_path": u.FilePath,
		},
	}, nil
}

func sourceSet(s Source) map[Source]struct{} {
	return map[Source]struct{}{s: {}}
}

// filtersFromClassification derives the VectorStore/MetadataStore filter
// map the spec's strategy table implies from a classification, applying
// only fields the allow-list (internal/validation) actually recognizes.
func filtersFromClassification(c classify.Classification) map[string]any {
	filters := make(map[string]any)
	if c.TargetType != "" && c.TargetType != classify.TargetUnknown {
		filters["type"] = string(c.TargetType)
	}
	return filters
}
