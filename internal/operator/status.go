package operator

import (
	"context"
	"os"
	"time"

	"github.com/raildex/retrieval-engine/internal/observability"
	"github.com/raildex/retrieval-engine/internal/resilience"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// ComponentHealth is one subsystem's probed state.
type ComponentHealth struct {
	Name    string
	Healthy bool
	Detail  string
}

// Status is StatusReporter's aggregated snapshot, spec.md §4.9.
type Status struct {
	LastRun        time.Time
	Mode           string
	GitSHA         string
	UnitCounts     map[string]int
	RetryQueueSize int
	Staleness      time.Duration
	ManifestSHA    string
	CurrentSHA     string
	SchemaVersion  int
	Components     []ComponentHealth
}

// RetryQueueSizer reports the embedding pipeline's current in-flight
// backlog, spec.md §5's backpressure surface.
type RetryQueueSizer func() int

// StatusReporter aggregates pipeline state and subsystem health into one
// snapshot for the `pipeline_status` tool-server operation.
type StatusReporter struct {
	units          unit.Store
	guardStatePath string
	breakers       map[string]*resilience.CircuitBreaker
	retryQueueSize RetryQueueSizer
	currentGitSHA  func() string

	metrics *observability.MetricsCollector
}

// SetMetrics attaches a collector so Report keeps the per-component
// system_health gauge current as it probes each breaker. Optional.
func (r *StatusReporter) SetMetrics(m *observability.MetricsCollector) {
	r.metrics = m
}

// Config bundles StatusReporter's collaborators.
type StatusConfig struct {
	Units          unit.Store
	GuardStatePath string
	Breakers       map[string]*resilience.CircuitBreaker
	RetryQueueSize RetryQueueSizer
	CurrentGitSHA  func() string
}

// NewStatusReporter builds a StatusReporter from cfg.
func NewStatusReporter(cfg StatusConfig) *StatusReporter {
	return &StatusReporter{
		units:          cfg.Units,
		guardStatePath: cfg.GuardStatePath,
		breakers:       cfg.Breakers,
		retryQueueSize: cfg.RetryQueueSize,
		currentGitSHA:  cfg.CurrentGitSHA,
	}
}

// Report aggregates the manifest, guard state, circuit breaker health,
// and retry queue depth into one Status.
func (r *StatusReporter) Report(ctx context.Context) (*Status, error) {
	manifest, err := r.units.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Mode:          "unknown",
		GitSHA:        manifest.GitSHA,
		UnitCounts:    manifest.Counts,
		ManifestSHA:   manifest.GitSHA,
		SchemaVersion: manifest.SchemaVersion,
		Staleness:     time.Since(manifest.ExtractedAt),
		LastRun:       manifest.ExtractedAt,
	}

	if r.currentGitSHA != nil {
		status.CurrentSHA = r.currentGitSHA()
	}
	if r.retryQueueSize != nil {
		status.RetryQueueSize = r.retryQueueSize()
	}

	guard := NewPipelineGuard(r.guardStatePath, 0)
	if state, err := guard.readState(); err == nil {
		if state.LastFullExtract.After(status.LastRun) {
			status.LastRun = state.LastFullExtract
		}
	}

	for name, breaker := range r.breakers {
		healthy := breaker.State() != resilience.Open
		status.Components = append(status.Components, ComponentHealth{
			Name:    name,
			Healthy: healthy,
			Detail:  breaker.State().String(),
		})
		if r.metrics != nil {
			r.metrics.SetComponentHealth(name, healthy)
		}
	}

	if _, err := os.Stat(r.guardStatePath); err == nil {
		status.Mode = "idle"
	}

	return status, nil
}
