package operator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raildex/retrieval-engine/internal/resilience"
	"github.com/raildex/retrieval-engine/internal/unit"
)

type manifestOnlyUnitStore struct {
	manifest *unit.Manifest
}

func (m manifestOnlyUnitStore) Get(ctx context.Context, id string) (*unit.ExtractedUnit, error) {
	return nil, nil
}
func (m manifestOnlyUnitStore) List(ctx context.Context, typ string) ([]string, error) { return nil, nil }
func (m manifestOnlyUnitStore) All(ctx context.Context) ([]*unit.ExtractedUnit, error)  { return nil, nil }
func (m manifestOnlyUnitStore) Manifest(ctx context.Context) (*unit.Manifest, error)    { return m.manifest, nil }
func (m manifestOnlyUnitStore) Reload(ctx context.Context) error                        { return nil }

func TestStatusReporter_Report_SummarizesManifestAndComponents(t *testing.T) {
	units := manifestOnlyUnitStore{manifest: &unit.Manifest{
		SchemaVersion: 3,
		GitSHA:        "abc123",
		Counts:        map[string]int{"model": 10},
		ExtractedAt:   time.Now().Add(-time.Hour),
	}}

	breaker := resilience.NewCircuitBreaker("vector_store", 5, time.Minute, nil)
	reporter := NewStatusReporter(StatusConfig{
		Units:          units,
		GuardStatePath: filepath.Join(t.TempDir(), ".pipeline_guard.json"),
		Breakers:       map[string]*resilience.CircuitBreaker{"vector_store": breaker},
		CurrentGitSHA:  func() string { return "abc123" },
	})

	status, err := reporter.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", status.GitSHA)
	assert.Equal(t, 3, status.SchemaVersion)
	assert.Equal(t, "abc123", status.CurrentSHA)
	require.Len(t, status.Components, 1)
	assert.True(t, status.Components[0].Healthy)
}

func TestStatusReporter_Report_MarksComponentUnhealthyWhenBreakerOpen(t *testing.T) {
	units := manifestOnlyUnitStore{manifest: &unit.Manifest{Counts: map[string]int{}}}
	breaker := resilience.NewCircuitBreaker("metadata_store", 1, time.Minute, nil)
	breaker.RecordFailure()

	reporter := NewStatusReporter(StatusConfig{
		Units:          units,
		GuardStatePath: filepath.Join(t.TempDir(), ".pipeline_guard.json"),
		Breakers:       map[string]*resilience.CircuitBreaker{"metadata_store": breaker},
	})

	status, err := reporter.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, status.Components, 1)
	assert.False(t, status.Components[0].Healthy)
}
