// Package indexer implements the Indexer component of spec.md §4.2:
// materializing embeddings and metadata copies from ExtractedUnits into
// the VectorStore, MetadataStore, and GraphStore, gated by a persisted
// checkpoint of content hashes.
package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raildex/retrieval-engine/internal/chunk"
	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/observability"
	"github.com/raildex/retrieval-engine/internal/resilience"
	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/store"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// Report summarizes one IndexAll/IndexIncremental run.
type Report struct {
	UnitsProcessed int
	ChunksEmbedded int
	ChunksSkipped  int
	ChunksFailed   int
	UnitsDeleted   int
	Duration       time.Duration
}

// Indexer coordinates chunking, embedding, and upserting across the
// three backing stores, maintaining the checkpoint that gates
// re-embedding on content-hash change.
type Indexer struct {
	units       unit.Store
	chunker     *chunk.Chunker
	preparer    *chunk.TextPreparer
	embedder    embedding.Provider
	vectors     store.VectorStore
	metadata    store.MetadataStore
	graph       store.GraphStore
	checkpoints CheckpointStore
	retry       resilience.RetryPolicy
	batchSize   int
	logger      *observability.Logger
	metrics     *observability.MetricsCollector
}

// Config bundles Indexer's collaborators. BatchSize of zero defaults to
// 16, matching the embedding provider's typical batch ceiling.
type Config struct {
	Units       unit.Store
	Chunker     *chunk.Chunker
	Preparer    *chunk.TextPreparer
	Embedder    embedding.Provider
	Vectors     store.VectorStore
	Metadata    store.MetadataStore
	Graph       store.GraphStore
	Checkpoints CheckpointStore
	Retry       resilience.RetryPolicy
	BatchSize   int
	Logger      *observability.Logger
	Metrics     *observability.MetricsCollector
}

// New builds an Indexer from cfg.
func New(cfg Config) *Indexer {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Indexer{
		units:       cfg.Units,
		chunker:     cfg.Chunker,
		preparer:    cfg.Preparer,
		embedder:    cfg.Embedder,
		vectors:     cfg.Vectors,
		metadata:    cfg.Metadata,
		graph:       cfg.Graph,
		checkpoints: cfg.Checkpoints,
		retry:       cfg.Retry,
		batchSize:   batchSize,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

// IndexAll builds the full index over every unit the Store currently
// holds, and removes stores' entries for units the checkpoint remembers
// but the current extraction no longer has.
func (ix *Indexer) IndexAll(ctx context.Context) (*Report, error) {
	units, err := ix.units.All(ctx)
	if err != nil {
		return nil, rerr.New(rerr.KindInternal, "indexer.IndexAll", err)
	}
	return ix.run(ctx, units, true)
}

// IndexIncremental recomputes embeddings and metadata for exactly the
// listed unit identifiers, leaving the rest of the index untouched.
func (ix *Indexer) IndexIncremental(ctx context.Context, ids []string) (*Report, error) {
	units := make([]*unit.ExtractedUnit, 0, len(ids))
	for _, id := range ids {
		u, err := ix.units.Get(ctx, id)
		if err != nil {
			return nil, rerr.New(rerr.KindNotFound, "indexer.IndexIncremental", err)
		}
		units = append(units, u)
	}
	return ix.run(ctx, units, false)
}

func (ix *Indexer) run(ctx context.Context, units []*unit.ExtractedUnit, fullRun bool) (*Report, error) {
	start := time.Now()
	cp, err := ix.checkpoints.Load(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	present := make(map[string]struct{}, len(units))
	for _, u := range units {
		present[u.Identifier] = struct{}{}
		if err := ix.indexUnit(ctx, u, cp, report); err != nil {
			if ix.logger != nil {
				ix.logger.Error("index unit failed", "unit", u.Identifier, "error", err)
			}
		}
		report.UnitsProcessed++
	}

	if fullRun {
		ix.cleanupDeleted(ctx, present, cp, report)
	}

	cp.EmbeddedAt = time.Now()
	if ix.embedder != nil {
		cp.ProviderModel = ix.embedder.Model()
		cp.Dimensions = ix.embedder.Dimensions()
	}
	if err := ix.checkpoints.Save(ctx, cp); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	mode := "incremental"
	if fullRun {
		mode = "full"
	}
	status := "success"
	if report.ChunksFailed > 0 {
		status = "degraded"
	}
	if ix.logger != nil {
		ix.logger.LogIndexOperation(ctx, mode, report.UnitsProcessed, report.ChunksSkipped, report.Duration)
	}
	if ix.metrics != nil {
		ix.metrics.RecordIndexerOperation(mode, status, report.Duration)
		ix.metrics.RecordIndexedUnits(report.UnitsProcessed)
		ix.metrics.RecordIndexedChunks(report.ChunksEmbedded)
		if report.ChunksFailed > 0 {
			ix.metrics.RecordIndexerError(status)
		}
	}
	return report, nil
}

// indexUnit chunks u, registers its graph edges and metadata snapshot
// unconditionally (cheap, idempotent), then embeds only chunks whose
// content hash differs from the checkpoint.
func (ix *Indexer) indexUnit(ctx context.Context, u *unit.ExtractedUnit, cp *Checkpoint, report *Report) error {
	chunks := ix.chunker.Chunk(u)

	edges := make([]store.GraphEdge, 0, len(u.Dependencies))
	for _, d := range u.Dependencies {
		edges = append(edges, store.GraphEdge{To: d.TargetIdentifier, Kind: string(d.RelationKind)})
	}
	if err := ix.graph.Register(ctx, u.Identifier, u.Type, edges); err != nil {
		return fmt.Errorf("register graph: %w", err)
	}

	importance := u.DeriveImportance()
	fullMetadata := map[string]any{
		"type":             u.Type,
		"namespace":        u.Namespace,
		"file_path":        u.FilePath,
		"change_frequency": string(u.Git.ChangeFrequency),
		"importance":       string(importance),
	}
	if err := ix.metadata.Upsert(ctx, u.Identifier, fullMetadata); err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}

	type pending struct {
		chunk unit.Chunk
		text  string
		vec   embedding.Vector
	}
	var queue []*pending
	for _, c := range chunks {
		if cp.ChunkHashes[c.ChunkID] == c.ContentHash {
			report.ChunksSkipped++
			continue
		}
		queue = append(queue, &pending{chunk: c, text: ix.preparer.Prepare(u, c)})
	}
	if len(queue) == 0 {
		cp.UnitHashes[u.Identifier] = u.SourceHash
		return nil
	}

	allSucceeded := true
	for start := 0; start < len(queue); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(queue) {
			end = len(queue)
		}
		batch := queue[start:end]

		errs := resilience.RetryBatch(ctx, ix.retry, batch, func(p *pending) error {
			embedded, err := ix.embedder.Embed(ctx, p.text)
			if err != nil {
				return err
			}
			p.vec = embedded.Vector
			return nil
		})

		for i, p := range batch {
			if errs[i] != nil {
				report.ChunksFailed++
				allSucceeded = false
				if ix.logger != nil {
					ix.logger.Error("embed chunk failed", "chunk", p.chunk.ChunkID, "error", errs[i])
				}
				continue
			}
			vectorMetadata := map[string]any{
				"type":             u.Type,
				"namespace":        u.Namespace,
				"file_path":        u.FilePath,
				"change_frequency": string(u.Git.ChangeFrequency),
				"importance":       string(importance),
				"parent":           u.Identifier,
				"chunk_kind":       string(p.chunk.ChunkKind),
			}
			// Durability ordering (spec.md §5): vector upsert commits before
			// the checkpoint records the chunk as embedded.
			if err := ix.vectors.Upsert(ctx, p.chunk.ChunkID, p.vec, vectorMetadata); err != nil {
				report.ChunksFailed++
				allSucceeded = false
				continue
			}
			cp.ChunkHashes[p.chunk.ChunkID] = p.chunk.ContentHash
			report.ChunksEmbedded++
		}
	}

	if allSucceeded {
		cp.UnitHashes[u.Identifier] = u.SourceHash
	}
	return nil
}

// cleanupDeleted removes store entries for units the checkpoint still
// remembers but the current extraction no longer has.
func (ix *Indexer) cleanupDeleted(ctx context.Context, present map[string]struct{}, cp *Checkpoint, report *Report) {
	for id := range cp.UnitHashes {
		if _, ok := present[id]; ok {
			continue
		}
		if err := ix.vectors.DeleteByFilter(ctx, map[string]any{"parent": id}); err != nil {
			if ix.logger != nil {
				ix.logger.Error("delete vectors for removed unit failed", "unit", id, "error", err)
			}
			continue
		}
		if err := ix.metadata.Delete(ctx, id); err != nil {
			if ix.logger != nil {
				ix.logger.Error("delete metadata for removed unit failed", "unit", id, "error", err)
			}
			continue
		}
		delete(cp.UnitHashes, id)
		for chunkID := range cp.ChunkHashes {
			if strings.HasPrefix(chunkID, id+"::") {
				delete(cp.ChunkHashes, chunkID)
			}
		}
		report.UnitsDeleted++
	}
}
