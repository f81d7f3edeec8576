package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector holds every Prometheus metric the engine exposes.
type MetricsCollector struct {
	RetrievalRequestsTotal  *prometheus.CounterVec
	RetrievalDuration       *prometheus.HistogramVec
	RetrievalResultCount    *prometheus.HistogramVec
	RetrievalDegradedTotal  *prometheus.CounterVec

	StrategyDispatchTotal *prometheus.CounterVec

	IndexerOperationsTotal *prometheus.CounterVec
	IndexerDuration        *prometheus.HistogramVec
	IndexedUnitsTotal      prometheus.Counter
	IndexedChunksTotal     prometheus.Counter
	IndexerErrorsTotal     *prometheus.CounterVec
	CheckpointLagSeconds   prometheus.Gauge

	EmbeddingRequestsTotal *prometheus.CounterVec
	EmbeddingDuration      *prometheus.HistogramVec
	EmbeddingErrorsTotal   *prometheus.CounterVec

	CircuitTransitionsTotal *prometheus.CounterVec
	CircuitStateGauge       *prometheus.GaugeVec

	PipelineLockHeld   *prometheus.GaugeVec
	PipelineCooldownRemainingSeconds prometheus.Gauge

	SystemStartTime prometheus.Gauge
	SystemHealth    *prometheus.GaugeVec
}

// NewMetricsCollector registers metrics against the default registerer.
func NewMetricsCollector(namespace string) *MetricsCollector {
	return NewMetricsCollectorWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry registers metrics against reg, so tests
// can use a fresh prometheus.NewRegistry() instead of the global default.
func NewMetricsCollectorWithRegistry(namespace string, reg prometheus.Registerer) *MetricsCollector {
	if namespace == "" {
		namespace = "retrieval"
	}

	counterVec := func(name, help string, labels []string) *prometheus.CounterVec {
		return promauto.With(reg).NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogramVec := func(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
		return promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}
	gaugeVec := func(name, help string, labels []string) *prometheus.GaugeVec {
		return promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	counter := func(name, help string) prometheus.Counter {
		return promauto.With(reg).NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return promauto.With(reg).NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	return &MetricsCollector{
		RetrievalRequestsTotal: counterVec("retrieval_requests_total",
			"Total number of retrieve() calls by strategy and status", []string{"strategy", "status"}),
		RetrievalDuration: histogramVec("retrieval_duration_seconds",
			"Retrieval pipeline duration in seconds", []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}, []string{"strategy"}),
		RetrievalResultCount: histogramVec("retrieval_result_count",
			"Number of candidates returned per retrieval", []float64{0, 1, 5, 10, 25, 50, 100}, []string{"strategy"}),
		RetrievalDegradedTotal: counterVec("retrieval_degraded_total",
			"Total number of retrievals that ran in a degraded mode", []string{"reason"}),

		StrategyDispatchTotal: counterVec("strategy_dispatch_total",
			"Total number of SearchExecutor strategy dispatches", []string{"strategy"}),

		IndexerOperationsTotal: counterVec("indexer_operations_total",
			"Total number of indexer passes by mode and status", []string{"mode", "status"}),
		IndexerDuration: histogramVec("indexer_operation_duration_seconds",
			"Indexer pass duration in seconds", []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300}, []string{"mode"}),
		IndexedUnitsTotal:  counter("indexed_units_total", "Total number of units re-indexed"),
		IndexedChunksTotal: counter("indexed_chunks_total", "Total number of chunks re-embedded"),
		IndexerErrorsTotal: counterVec("indexer_errors_total",
			"Total number of indexer errors by kind", []string{"error_kind"}),
		CheckpointLagSeconds: gauge("checkpoint_lag_seconds",
			"Seconds since the last successful checkpoint write"),

		EmbeddingRequestsTotal: counterVec("embedding_requests_total",
			"Total number of embedding provider calls by status", []string{"provider", "status"}),
		EmbeddingDuration: histogramVec("embedding_duration_seconds",
			"Embedding batch duration in seconds", []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5}, []string{"provider"}),
		EmbeddingErrorsTotal: counterVec("embedding_errors_total",
			"Total number of embedding errors by provider and kind", []string{"provider", "error_kind"}),

		CircuitTransitionsTotal: counterVec("circuit_transitions_total",
			"Total number of circuit breaker state transitions", []string{"component", "from", "to"}),
		CircuitStateGauge: gaugeVec("circuit_state",
			"Current circuit breaker state (0=closed, 1=half_open, 2=open)", []string{"component"}),

		PipelineLockHeld: gaugeVec("pipeline_lock_held",
			"Whether the pipeline lock is currently held (1) or not (0)", []string{"holder"}),
		PipelineCooldownRemainingSeconds: gauge("pipeline_cooldown_remaining_seconds",
			"Seconds remaining before a full pipeline run is permitted again"),

		SystemStartTime: gauge("system_start_time_seconds", "Unix timestamp when the engine started"),
		SystemHealth:    gaugeVec("system_health_status", "Component health (1=healthy, 0=unhealthy)", []string{"component"}),
	}
}

func (m *MetricsCollector) RecordRetrieval(strategy, status string, degraded bool, resultCount int, duration time.Duration) {
	m.RetrievalRequestsTotal.WithLabelValues(strategy, status).Inc()
	m.RetrievalDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.RetrievalResultCount.WithLabelValues(strategy).Observe(float64(resultCount))
	if degraded {
		m.RetrievalDegradedTotal.WithLabelValues(strategy).Inc()
	}
}

func (m *MetricsCollector) RecordStrategyDispatch(strategy string) {
	m.StrategyDispatchTotal.WithLabelValues(strategy).Inc()
}

func (m *MetricsCollector) RecordIndexerOperation(mode, status string, duration time.Duration) {
	m.IndexerOperationsTotal.WithLabelValues(mode, status).Inc()
	m.IndexerDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordIndexedUnits(count int)  { m.IndexedUnitsTotal.Add(float64(count)) }
func (m *MetricsCollector) RecordIndexedChunks(count int) { m.IndexedChunksTotal.Add(float64(count)) }
func (m *MetricsCollector) RecordIndexerError(kind string) {
	m.IndexerErrorsTotal.WithLabelValues(kind).Inc()
}
func (m *MetricsCollector) SetCheckpointLag(lag time.Duration) {
	m.CheckpointLagSeconds.Set(lag.Seconds())
}

func (m *MetricsCollector) RecordEmbedding(provider, status string, duration time.Duration) {
	m.EmbeddingRequestsTotal.WithLabelValues(provider, status).Inc()
	m.EmbeddingDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
func (m *MetricsCollector) RecordEmbeddingError(provider, kind string) {
	m.EmbeddingErrorsTotal.WithLabelValues(provider, kind).Inc()
}

func (m *MetricsCollector) RecordCircuitTransition(component, from, to string) {
	m.CircuitTransitionsTotal.WithLabelValues(component, from, to).Inc()
	var v float64
	switch to {
	case "half_open":
		v = 1
	case "open":
		v = 2
	}
	m.CircuitStateGauge.WithLabelValues(component).Set(v)
}

func (m *MetricsCollector) SetPipelineLockHeld(holder string, held bool) {
	v := 0.0
	if held {
		v = 1.0
	}
	m.PipelineLockHeld.WithLabelValues(holder).Set(v)
}

func (m *MetricsCollector) SetCooldownRemaining(remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	m.PipelineCooldownRemainingSeconds.Set(remaining.Seconds())
}

func (m *MetricsCollector) SetSystemStartTime(t time.Time) { m.SystemStartTime.Set(float64(t.Unix())) }

func (m *MetricsCollector) SetComponentHealth(component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.SystemHealth.WithLabelValues(component).Set(v)
}
