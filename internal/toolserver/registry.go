package toolserver

import (
	"github.com/raildex/retrieval-engine/internal/feedback"
	"github.com/raildex/retrieval-engine/internal/graph"
	"github.com/raildex/retrieval-engine/internal/indexer"
	"github.com/raildex/retrieval-engine/internal/operator"
	"github.com/raildex/retrieval-engine/internal/retrieve"
	"github.com/raildex/retrieval-engine/internal/store"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// Bundle collects every collaborator a fully-populated Registry needs,
// mirroring the Config-bundling convention used throughout this module
// (indexer.Config, operator's constructors, and so on).
type Bundle struct {
	Retriever      *retrieve.Retriever
	Metadata       store.MetadataStore
	Graph          *graph.DependencyGraph
	Units          unit.Store
	Indexer        *indexer.Indexer
	PipelineGuard  *operator.PipelineGuard
	PipelineLock   *operator.PipelineLock
	StatusReporter *operator.StatusReporter
	IndexValidator *operator.IndexValidator
	Repairer       *operator.Repairer
	Feedback       *feedback.FeedbackStore
	GapDetector    *feedback.GapDetector
}

// BuildRegistry assembles a Registry carrying every spec.md §6.3 tool,
// each wrapping the corresponding collaborator from the bundle rather
// than reimplementing its logic.
func BuildRegistry(b Bundle) *Registry {
	r := NewRegistry()

	r.Register(NewRetrieveTool(b.Retriever))
	r.Register(NewLookupTool(b.Retriever))
	r.Register(NewDependenciesTool(b.Retriever))
	r.Register(NewDependentsTool(b.Retriever))
	r.Register(NewFrameworkTool(b.Retriever))
	r.Register(NewSearchTool(b.Metadata))
	r.Register(NewStructureTool(b.Retriever))
	r.Register(NewRecentChangesTool(b.Retriever))

	r.Register(NewPageRankTool(b.Graph))
	r.Register(NewGraphAnalysisTool(b.Graph))

	r.Register(NewExtractTool(b.PipelineGuard, b.PipelineLock, b.Units))
	r.Register(NewEmbedTool(b.PipelineGuard, b.PipelineLock, b.Indexer))
	r.Register(NewPipelineStatusTool(b.StatusReporter))
	r.Register(NewDiagnoseTool(b.IndexValidator))
	r.Register(NewRepairTool(b.Repairer))

	r.Register(NewRateRetrievalTool(b.Feedback))
	r.Register(NewReportGapTool(b.Feedback))
	r.Register(NewRetrievalExplainTool(b.Retriever, b.Feedback))
	r.Register(NewSuggestImprovementsTool(b.GapDetector))

	return r
}
