package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerConfig configures OpenTelemetry tracing for the retrieval engine.
type TracerConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRate   float64
	Enabled        bool
}

// DefaultTracerConfig returns a disabled-by-default tracer configuration.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{
		ServiceName:    "retrieval-engine",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SamplingRate:   1.0,
		Enabled:        false,
	}
}

// TracerProvider wraps the OpenTelemetry tracer the engine's pipeline
// stages instrument against.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracerProvider builds a TracerProvider. When cfg.Enabled is false it
// returns a no-op tracer so instrumentation call sites never need to
// branch on whether tracing is configured.
func NewTracerProvider(cfg TracerConfig) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build tracer resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(provider)

	return &TracerProvider{provider: provider, tracer: provider.Tracer(cfg.ServiceName)}, nil
}

func (tp *TracerProvider) Tracer() trace.Tracer { return tp.tracer }

func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

func (tp *TracerProvider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, name, opts...)
}

func SpanFromContext(ctx context.Context) trace.Span { return trace.SpanFromContext(ctx) }

func SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

func SetSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// InstrumentClassify wraps QueryClassifier.Classify.
func InstrumentClassify(ctx context.Context, tracer trace.Tracer, query string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "retrieve.classify",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("retrieve.query_length", len(query))),
	)
}

// InstrumentSearch wraps SearchExecutor.Execute for a given strategy.
func InstrumentSearch(ctx context.Context, tracer trace.Tracer, strategy string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "retrieve.search",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("retrieve.strategy", strategy)),
	)
}

// InstrumentRank wraps Ranker.Rank.
func InstrumentRank(ctx context.Context, tracer trace.Tracer, candidateCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "retrieve.rank",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("retrieve.candidate_count", candidateCount)),
	)
}

// InstrumentAssemble wraps ContextAssembler.Assemble.
func InstrumentAssemble(ctx context.Context, tracer trace.Tracer, budget int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "retrieve.assemble",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("retrieve.budget_tokens", budget)),
	)
}

// InstrumentEmbedding wraps an EmbeddingProvider call.
func InstrumentEmbedding(ctx context.Context, tracer trace.Tracer, provider string, batchSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, fmt.Sprintf("embedding.%s", provider),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("embedding.provider", provider), attribute.Int("embedding.batch_size", batchSize)),
	)
}

// InstrumentIndexerOperation wraps an Indexer pass.
func InstrumentIndexerOperation(ctx context.Context, tracer trace.Tracer, mode string) (context.Context, trace.Span) {
	return tracer.Start(ctx, fmt.Sprintf("indexer.%s", mode),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("indexer.mode", mode)),
	)
}
