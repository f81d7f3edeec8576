package operator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/store"
	"github.com/raildex/retrieval-engine/internal/unit"
)

func newTestRepairer(t *testing.T, units *fakeUnitStore, vectors store.VectorStore) *Repairer {
	t.Helper()
	lock := NewPipelineLock(filepath.Join(t.TempDir(), ".pipeline.lock"), time.Hour)
	return NewRepairer(RepairConfig{
		Lock:     lock,
		Units:    units,
		Vectors:  vectors,
		Embedder: embedding.NewMock(3),
	})
}

func TestRepairer_Repair_MissingEmbeddingsUpsertsVector(t *testing.T) {
	units := newFakeUnitStore(&unit.ExtractedUnit{Identifier: "Order", Type: "model", SourceCode: "class Order; end"})
	vectors := store.NewMemoryVectorStore()
	r := newTestRepairer(t, units, vectors)

	err := r.Repair(context.Background(), IssueMissingEmbeddings, []string{"Order"})
	require.NoError(t, err)

	count, err := vectors.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepairer_Repair_OrphanedVectorsDeletesListedIDs(t *testing.T) {
	ctx := context.Background()
	vectors := store.NewMemoryVectorStore()
	require.NoError(t, vectors.Upsert(ctx, "Order::stale::0", embedding.Vector{1, 0, 0}, nil))

	units := newFakeUnitStore()
	r := newTestRepairer(t, units, vectors)

	err := r.Repair(ctx, IssueOrphanedVectors, []string{"Order::stale::0"})
	require.NoError(t, err)

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRepairer_Repair_CountMismatchReloadsUnitStore(t *testing.T) {
	units := newFakeUnitStore()
	r := newTestRepairer(t, units, store.NewMemoryVectorStore())

	err := r.Repair(context.Background(), IssueCountMismatch, nil)
	assert.NoError(t, err)
}

func TestRepairer_Repair_StaleUnitsRequiresIdentifiers(t *testing.T) {
	units := newFakeUnitStore()
	r := newTestRepairer(t, units, store.NewMemoryVectorStore())

	err := r.Repair(context.Background(), IssueStaleUnits, nil)
	assert.Error(t, err)
}

func TestRepairer_Repair_UnknownIssueIsRejected(t *testing.T) {
	units := newFakeUnitStore()
	r := newTestRepairer(t, units, store.NewMemoryVectorStore())

	err := r.Repair(context.Background(), Issue("not_a_real_issue"), nil)
	assert.Error(t, err)
}
