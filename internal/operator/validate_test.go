package operator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func writeCheckpoint(t *testing.T, path string, cp Checkpoint) {
	t.Helper()
	data, err := json.Marshal(cp)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestIndexValidator_Validate_DetectsHashMismatch(t *testing.T) {
	order := &unit.ExtractedUnit{Identifier: "Order", Type: "model", SourceCode: "class Order; end"}
	units := newFakeUnitStore(order)
	checkpointPath := filepath.Join(t.TempDir(), "checkpoint.json")
	writeCheckpoint(t, checkpointPath, Checkpoint{
		Units: map[string]UnitCheckpoint{"Order": {SourceHash: "stale-hash"}},
	})

	v := NewIndexValidator(units, checkpointPath)
	report, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.HashMismatch, "Order")
}

func TestIndexValidator_Validate_DetectsMissingUnit(t *testing.T) {
	units := newFakeUnitStore() // Order was extracted before, now gone
	checkpointPath := filepath.Join(t.TempDir(), "checkpoint.json")
	writeCheckpoint(t, checkpointPath, Checkpoint{
		Units: map[string]UnitCheckpoint{"Order": {SourceHash: "abc"}},
	})

	v := NewIndexValidator(units, checkpointPath)
	report, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Missing, "Order")
}

func TestIndexValidator_Validate_DetectsOrphanedAndStaleChunks(t *testing.T) {
	order := &unit.ExtractedUnit{
		Identifier: "Order",
		Type:       "model",
		SourceCode: "class Order; end",
		Chunks: []unit.Chunk{
			{ChunkID: "Order::body::0", ContentHash: "new-hash"},
		},
	}
	units := newFakeUnitStore(order)
	checkpointPath := filepath.Join(t.TempDir(), "checkpoint.json")
	writeCheckpoint(t, checkpointPath, Checkpoint{
		Units: map[string]UnitCheckpoint{
			"Order": {
				SourceHash: order.ComputeSourceHash(),
				Chunks: map[string]string{
					"Order::body::0":        "old-hash",
					"Order::validations::0": "gone-hash",
				},
			},
		},
	})

	v := NewIndexValidator(units, checkpointPath)
	report, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.StaleVectors, "Order::body::0")
	assert.Contains(t, report.Orphaned, "Order::validations::0")
}

func TestIndexValidator_Validate_NoDiscrepanciesWhenInSync(t *testing.T) {
	order := &unit.ExtractedUnit{Identifier: "Order", Type: "model", SourceCode: "class Order; end"}
	units := newFakeUnitStore(order)
	checkpointPath := filepath.Join(t.TempDir(), "checkpoint.json")
	writeCheckpoint(t, checkpointPath, Checkpoint{
		Units: map[string]UnitCheckpoint{"Order": {SourceHash: order.ComputeSourceHash()}},
	})

	v := NewIndexValidator(units, checkpointPath)
	report, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.HashMismatch)
	assert.Empty(t, report.Orphaned)
	assert.Empty(t, report.StaleVectors)
}

func TestIndexValidator_Validate_MissingCheckpointFileTreatedAsEmpty(t *testing.T) {
	units := newFakeUnitStore(&unit.ExtractedUnit{Identifier: "Order", Type: "model"})
	v := NewIndexValidator(units, filepath.Join(t.TempDir(), "does-not-exist.json"))

	report, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.HashMismatch)
}
