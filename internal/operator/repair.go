package operator

import (
	"context"
	"fmt"

	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/store"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// Issue is the fixed vocabulary of scoped repair operations, spec.md §4.9.
type Issue string

const (
	IssueMissingEmbeddings Issue = "missing_embeddings"
	IssueOrphanedVectors   Issue = "orphaned_vectors"
	IssueCountMismatch     Issue = "count_mismatch"
	IssueStaleUnits        Issue = "stale_units"
)

// Repairer performs the scoped repair operations of spec.md §4.9. Every
// operation holds the PipelineLock for its duration.
type Repairer struct {
	lock     *PipelineLock
	units    unit.Store
	vectors  store.VectorStore
	embedder embedding.Provider
}

// RepairConfig bundles Repairer's collaborators.
type RepairConfig struct {
	Lock     *PipelineLock
	Units    unit.Store
	Vectors  store.VectorStore
	Embedder embedding.Provider
}

// NewRepairer builds a Repairer from cfg.
func NewRepairer(cfg RepairConfig) *Repairer {
	return &Repairer{lock: cfg.Lock, units: cfg.Units, vectors: cfg.Vectors, embedder: cfg.Embedder}
}

// Repair performs issue against identifiers, holding the pipeline lock
// for the full operation.
func (r *Repairer) Repair(ctx context.Context, issue Issue, identifiers []string) error {
	if err := r.lock.Acquire(ctx, "repair", string(issue)); err != nil {
		return err
	}
	defer r.lock.Release(ctx)

	switch issue {
	case IssueMissingEmbeddings:
		return r.repairMissingEmbeddings(ctx, identifiers)
	case IssueOrphanedVectors:
		return r.repairOrphanedVectors(ctx, identifiers)
	case IssueCountMismatch:
		return r.repairCountMismatch(ctx)
	case IssueStaleUnits:
		return r.repairStaleUnits(ctx, identifiers)
	default:
		return rerr.New(rerr.KindValidation, "operator.Repair", fmt.Errorf("unknown repair issue %q", issue))
	}
}

// repairMissingEmbeddings re-embeds each identifier's source and upserts
// the result, covering units the checkpoint never recorded a vector for.
func (r *Repairer) repairMissingEmbeddings(ctx context.Context, identifiers []string) error {
	for _, id := range identifiers {
		u, err := r.units.Get(ctx, id)
		if err != nil {
			return err
		}
		emb, err := r.embedder.Embed(ctx, u.SourceCode)
		if err != nil {
			return rerr.New(rerr.KindTransient, "operator.repairMissingEmbeddings", err)
		}
		if err := r.vectors.Upsert(ctx, id, emb.Vector, map[string]any{"type": u.Type, "namespace": u.Namespace}); err != nil {
			return rerr.New(rerr.KindTransient, "operator.repairMissingEmbeddings", err)
		}
	}
	return nil
}

// repairOrphanedVectors deletes vector records whose owning unit no
// longer exists.
func (r *Repairer) repairOrphanedVectors(ctx context.Context, identifiers []string) error {
	if len(identifiers) == 0 {
		return nil
	}
	if err := r.vectors.Delete(ctx, identifiers); err != nil {
		return rerr.New(rerr.KindTransient, "operator.repairOrphanedVectors", err)
	}
	return nil
}

// repairCountMismatch forces an incremental reload of the unit catalog.
// Re-extraction itself runs outside this process (an external extractor
// writes the on-disk tree); this repair only re-synchronizes the
// in-memory snapshot against whatever is currently on disk.
func (r *Repairer) repairCountMismatch(ctx context.Context) error {
	return r.units.Reload(ctx)
}

// repairStaleUnits is identical in scope to repairCountMismatch: it
// cannot re-run extraction for specific identifiers from inside this
// process, so it re-synchronizes the snapshot and leaves the actual
// re-extraction to the external extractor the operator invokes
// separately.
func (r *Repairer) repairStaleUnits(ctx context.Context, identifiers []string) error {
	if len(identifiers) == 0 {
		return rerr.New(rerr.KindValidation, "operator.repairStaleUnits", fmt.Errorf("no identifiers given"))
	}
	return r.units.Reload(ctx)
}
