package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/security"
	"github.com/raildex/retrieval-engine/internal/validation"
)

// MemoryVectorStore is a thread-safe in-memory VectorStore, the default
// backend for small repos and for every package's tests.
type MemoryVectorStore struct {
	mu      sync.RWMutex
	vectors map[string]embedding.Vector
	meta    map[string]map[string]any
	order   []string
}

// NewMemoryVectorStore creates an empty in-memory vector store.
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{
		vectors: make(map[string]embedding.Vector),
		meta:    make(map[string]map[string]any),
	}
}

func (s *MemoryVectorStore) Upsert(ctx context.Context, id string, vector embedding.Vector, metadata map[string]any) error {
	if id == "" {
		return rerr.New(rerr.KindValidation, "store.VectorStore.Upsert", fmt.Errorf("empty id"))
	}
	if err := validation.ValidateFilters(subsetAllowed(metadata)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vectors[id]; !exists {
		s.order = append(s.order, id)
	}
	s.vectors[id] = vector
	s.meta[id] = metadata
	return nil
}

func (s *MemoryVectorStore) UpsertBatch(ctx context.Context, items []VectorUpsert) error {
	for _, item := range items {
		if err := s.Upsert(ctx, item.ID, item.Vector, item.Metadata); err != nil {
			return fmt.Errorf("upsert %s: %w", item.ID, err)
		}
	}
	return nil
}

func (s *MemoryVectorStore) Search(ctx context.Context, vector embedding.Vector, filters map[string]any, limit int) ([]VectorRecord, error) {
	if err := validation.ValidateFilters(filters); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]VectorRecord, 0, len(s.order))
	for _, id := range s.order {
		md := s.meta[id]
		if !matchesFilters(md, filters) {
			continue
		}
		sim := cosineSimilarity(vector, s.vectors[id])
		results = append(results, VectorRecord{ID: id, Similarity: sim, Metadata: md})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryVectorStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	toRemove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		toRemove[id] = struct{}{}
		delete(s.vectors, id)
		delete(s.meta, id)
	}
	s.order = filterOut(s.order, toRemove)
	return nil
}

func (s *MemoryVectorStore) DeleteByFilter(ctx context.Context, filters map[string]any) error {
	if err := validation.ValidateFilters(filters); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	toRemove := make(map[string]struct{})
	for _, id := range s.order {
		if matchesFilters(s.meta[id], filters) {
			toRemove[id] = struct{}{}
		}
	}
	for id := range toRemove {
		delete(s.vectors, id)
		delete(s.meta, id)
	}
	s.order = filterOut(s.order, toRemove)
	return nil
}

func (s *MemoryVectorStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.order)), nil
}

func (s *MemoryVectorStore) Close() error { return nil }

func filterOut(order []string, remove map[string]struct{}) []string {
	out := order[:0:0]
	for _, id := range order {
		if _, gone := remove[id]; !gone {
			out = append(out, id)
		}
	}
	return out
}

func cosineSimilarity(a, b embedding.Vector) float32 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float32
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB))))
}

func matchesFilters(md map[string]any, filters map[string]any) bool {
	if len(filters) == 0 {
		return true
	}
	for key, want := range filters {
		got, ok := md[key]
		if !ok {
			return false
		}
		if !valueMatches(got, want) {
			return false
		}
	}
	return true
}

func valueMatches(got, want any) bool {
	switch w := want.(type) {
	case []string:
		for _, v := range w {
			if fmt.Sprint(got) == v {
				return true
			}
		}
		return false
	case []any:
		for _, v := range w {
			if fmt.Sprint(got) == fmt.Sprint(v) {
				return true
			}
		}
		return false
	default:
		return fmt.Sprint(got) == fmt.Sprint(want)
	}
}

// subsetAllowed extracts only the keys of metadata that appear in
// validation.AllowedFilterKeys, since VectorStore metadata snapshots
// carry more fields than may ever be filtered on (§4.3's snapshot is
// wider than §6.2's filter allow-list).
func subsetAllowed(metadata map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range metadata {
		if _, ok := validation.AllowedFilterKeys[k]; ok {
			out[k] = v
		}
	}
	return out
}

// MemoryMetadataStore is a thread-safe in-memory MetadataStore.
type MemoryMetadataStore struct {
	mu   sync.RWMutex
	data map[string]map[string]any
	ts   map[string]timestamped
}

// NewMemoryMetadataStore creates an empty in-memory metadata store.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		data: make(map[string]map[string]any),
		ts:   make(map[string]timestamped),
	}
}

func (s *MemoryMetadataStore) Upsert(ctx context.Context, id string, metadata map[string]any) error {
	if id == "" {
		return rerr.New(rerr.KindValidation, "store.MetadataStore.Upsert", fmt.Errorf("empty id"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	t := s.ts[id]
	if t.createdAt.IsZero() {
		t.createdAt = now
	}
	t.updatedAt = now
	s.ts[id] = t
	s.data[id] = metadata
	return nil
}

func (s *MemoryMetadataStore) Find(ctx context.Context, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md, ok := s.data[id]
	if !ok {
		return nil, rerr.New(rerr.KindNotFound, "store.MetadataStore.Find", fmt.Errorf("id %q not found", id))
	}
	return md, nil
}

// SearchKeywords matches keywords against the declared field set,
// scoring by number of matched fields (§4.4) and breaking ties by field
// priority, then by id for determinism.
func (s *MemoryMetadataStore) SearchKeywords(ctx context.Context, keywords []string, fields []string, filters map[string]any, limit int) ([]MetadataRecord, error) {
	if err := validation.ValidateFilters(filters); err != nil {
		return nil, err
	}
	escaped, err := sanitizeKeywords(keywords)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = KeywordFields
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []MetadataRecord
	for id, md := range s.data {
		if !matchesFilters(md, filters) {
			continue
		}
		matched := matchedFields(md, fields, escaped)
		if len(matched) == 0 {
			continue
		}
		results = append(results, MetadataRecord{
			ID:            id,
			MatchScore:    matchScore(len(matched)),
			MatchedFields: matched,
			Metadata:      md,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].MatchScore != results[j].MatchScore {
			return results[i].MatchScore > results[j].MatchScore
		}
		pi, pj := bestFieldPriority(results[i].MatchedFields), bestFieldPriority(results[j].MatchedFields)
		if pi != pj {
			return pi < pj
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryMetadataStore) Query(ctx context.Context, filters map[string]any, limit int) ([]string, error) {
	if err := validation.ValidateFilters(filters); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, md := range s.data {
		if matchesFilters(md, filters) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *MemoryMetadataStore) ListByType(ctx context.Context, typ string, limit int) ([]string, error) {
	return s.Query(ctx, map[string]any{"type": typ}, limit)
}

func (s *MemoryMetadataStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	delete(s.ts, id)
	return nil
}

func (s *MemoryMetadataStore) Close() error { return nil }

// sanitizeKeywords runs the ReDoS guard required by §6.2
// (security.ValidateKeywords) so direct MetadataStore callers can never
// bypass it, but matches here are plain substring containment rather than
// pattern compilation, so the trimmed pre-escape tokens are what gets
// returned for matching — the escaped backslashes security.ValidateKeywords
// adds are meaningless to strings.Contains.
func sanitizeKeywords(keywords []string) ([]string, error) {
	if _, err := security.ValidateKeywords(keywords); err != nil {
		return nil, rerr.New(rerr.KindValidation, "store.MetadataStore.SearchKeywords", err)
	}
	trimmed := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		trimmed = append(trimmed, strings.TrimSpace(kw))
	}
	return trimmed, nil
}

func matchedFields(md map[string]any, fields, keywords []string) []string {
	var matched []string
	for _, field := range fields {
		v, ok := md[field]
		if !ok {
			continue
		}
		haystack := strings.ToLower(fmt.Sprint(v))
		for _, kw := range keywords {
			if strings.Contains(haystack, strings.ToLower(kw)) {
				matched = append(matched, field)
				break
			}
		}
	}
	return matched
}

func matchScore(matchedFieldCount int) float64 {
	score := 0.25 * float64(matchedFieldCount)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func bestFieldPriority(matched []string) int {
	best := len(fieldPriority)
	for _, f := range matched {
		if p, ok := fieldPriority[f]; ok && p < best {
			best = p
		}
	}
	return best
}
