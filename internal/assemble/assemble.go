// Package assemble implements the ContextAssembler of spec.md §4.6: it
// allocates a token budget across structural, primary, supporting
// (graph-expansion), and framework layers, formats each emitted unit
// through a pluggable adapter, and returns the assembled context plus its
// per-unit attribution.
package assemble

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/raildex/retrieval-engine/internal/classify"
	"github.com/raildex/retrieval-engine/internal/rank"
	"github.com/raildex/retrieval-engine/internal/search"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// DefaultBudget is B, the overall token budget, when a call does not
// override it.
const DefaultBudget = 8000

// minTruncationBudget is the minimum remaining layer budget (in tokens)
// worth spending on a truncated inclusion; below it a candidate is
// dropped instead of emitted as a near-empty fragment.
const minTruncationBudget = 200

// maxDependencyArrows bounds how many of a unit's own forward
// dependencies are listed in its trailer, matching the compact header
// convention chunk.TextPreparer uses for embedding-time context.
const maxDependencyArrows = 3

// Layer names which of the four allocation buckets a unit landed in.
type Layer string

const (
	LayerStructural Layer = "structural"
	LayerPrimary    Layer = "primary"
	LayerSupporting Layer = "supporting"
	LayerFramework  Layer = "framework"
)

// EmittedUnit is one attribution record: what was actually included in
// the assembled context, per spec.md §4.6 step 5.
type EmittedUnit struct {
	Identifier string
	Type       string
	Score      float64
	FilePath   string
	Layer      Layer
	Truncated  bool
}

// Assembled is the ContextAssembler's output.
type Assembled struct {
	Text        string
	Attribution []EmittedUnit
	Budget      int
	TokensUsed  int
}

// Assembler allocates and formats the assembled context.
type Assembler struct {
	units   unit.Store
	adapter Adapter
}

// New builds an Assembler that resolves candidate content via units and
// renders through adapter.
func New(units unit.Store, adapter Adapter) *Assembler {
	if adapter == nil {
		adapter = MarkdownAdapter{}
	}
	return &Assembler{units: units, adapter: adapter}
}

// Assemble lays out ranked into the four layers and renders the result
// within budget tokens (DefaultBudget if budget <= 0).
func (a *Assembler) Assemble(ctx context.Context, ranked []rank.Ranked, classification classify.Classification, budget int) (*Assembled, error) {
	if budget <= 0 {
		budget = DefaultBudget
	}

	primary, supporting, framework := partitionLayers(ranked)
	frameworkNeeded := classification.FrameworkContext || len(framework) > 0

	var b strings.Builder
	var attribution []EmittedUnit

	structuralBudget := budget / 10
	structuralText := a.adapter.FormatStructural(ctx, a.units)
	b.WriteString(structuralText)
	used := unit.EstimateTokens(structuralText)

	remainder := budget - structuralBudget
	if remainder < 0 {
		remainder = 0
	}

	var primaryShare, supportingShare, frameworkShare int
	if frameworkNeeded {
		primaryShare = remainder * 55 / 100
		supportingShare = remainder * 25 / 100
		frameworkShare = remainder - primaryShare - supportingShare
	} else {
		primaryShare = remainder * 65 / 100
		supportingShare = remainder - primaryShare
		frameworkShare = 0
	}

	primaryText, primaryAttr, primaryTokens := a.fillLayer(ctx, LayerPrimary, primary, primaryShare)
	b.WriteString(primaryText)
	attribution = append(attribution, primaryAttr...)
	used += primaryTokens

	supportingText, supportingAttr, supportingTokens := a.fillLayer(ctx, LayerSupporting, supporting, supportingShare)
	b.WriteString(supportingText)
	attribution = append(attribution, supportingAttr...)
	used += supportingTokens

	if frameworkNeeded && frameworkShare > 0 {
		frameworkText, frameworkAttr, frameworkTokens := a.fillLayer(ctx, LayerFramework, framework, frameworkShare)
		b.WriteString(frameworkText)
		attribution = append(attribution, frameworkAttr...)
		used += frameworkTokens
	}

	return &Assembled{
		Text:        b.String(),
		Attribution: attribution,
		Budget:      budget,
		TokensUsed:  used,
	}, nil
}

// partitionLayers splits ranked into primary (direct/vector/keyword
// hits), supporting (candidates that only arrived via graph expansion),
// and framework (unit type "framework"), preserving rank order within
// each bucket.
func partitionLayers(ranked []rank.Ranked) (primary, supporting, framework []rank.Ranked) {
	for _, r := range ranked {
		switch {
		case r.UnitType == "framework":
			framework = append(framework, r)
		case onlyGraphExpansion(r.Candidate):
			supporting = append(supporting, r)
		default:
			primary = append(primary, r)
		}
	}
	return primary, supporting, framework
}

func onlyGraphExpansion(c search.Candidate) bool {
	if len(c.Sources) == 0 {
		return c.ExpandedFrom != ""
	}
	for s := range c.Sources {
		if s != search.SourceGraphExpansion {
			return false
		}
	}
	return true
}

// fillLayer implements spec.md §4.6 step 3: in score order, include each
// candidate in full if it fits the remaining layer budget, truncated if
// the remainder is still worth spending, or stop once neither applies.
func (a *Assembler) fillLayer(ctx context.Context, layer Layer, candidates []rank.Ranked, layerBudget int) (string, []EmittedUnit, int) {
	sorted := make([]rank.Ranked, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FinalScore > sorted[j].FinalScore })

	var b strings.Builder
	var attribution []EmittedUnit
	remaining := layerBudget
	overhead := a.adapter.Overhead()

	for _, r := range sorted {
		content, deps, err := a.resolveContent(ctx, r.Candidate)
		if err != nil || content == "" {
			continue
		}
		fullTokens := overhead + unit.EstimateTokens(content)
		if fullTokens <= remaining {
			b.WriteString(a.adapter.FormatUnit(r, layer, content, false, deps))
			attribution = append(attribution, newEmittedUnit(r, layer, false))
			remaining -= fullTokens
			continue
		}
		if remaining-overhead >= minTruncationBudget {
			budgetChars := (remaining - overhead) * 4
			truncated := truncateMiddle(content, budgetChars)
			b.WriteString(a.adapter.FormatUnit(r, layer, truncated, true, deps))
			attribution = append(attribution, newEmittedUnit(r, layer, true))
			remaining = 0
			break
		}
		break
	}

	used := layerBudget - remaining
	if used < 0 {
		used = 0
	}
	return b.String(), attribution, used
}

func newEmittedUnit(r rank.Ranked, layer Layer, truncated bool) EmittedUnit {
	filePath, _ := r.Metadata["file_path"].(string)
	return EmittedUnit{
		Identifier: r.Identifier,
		Type:       r.UnitType,
		Score:      r.FinalScore,
		FilePath:   filePath,
		Layer:      layer,
		Truncated:  truncated,
	}
}

// resolveContent fetches the verbatim source text a candidate refers to:
// a specific chunk's content if the candidate identifies one, otherwise
// the owning unit's whole source. Trailing whitespace and CRLF line
// endings are normalized, the only transformation the formatting
// contract (spec.md §4.6) permits on code bodies. It also returns the
// owning unit's top forward dependencies, so the adapter can render the
// per-unit dependency trailer without a second lookup.
func (a *Assembler) resolveContent(ctx context.Context, c search.Candidate) (string, []string, error) {
	unitID := c.Identifier
	if parent, ok := c.Metadata["parent"].(string); ok && parent != "" {
		unitID = parent
	}
	u, err := a.units.Get(ctx, unitID)
	if err != nil {
		return "", nil, err
	}
	deps := u.TopDependencies(maxDependencyArrows)
	if unitID != c.Identifier {
		for _, chunk := range u.Chunks {
			if chunk.ChunkID == c.Identifier {
				return normalizeBody(chunk.Content), deps, nil
			}
		}
	}
	return normalizeBody(u.SourceCode), deps, nil
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// truncateMiddle preserves budgetChars worth of head and tail, inserting
// an explicit marker noting the number of omitted lines and the body's
// full length, per spec.md §4.6's truncation-annotation requirement.
func truncateMiddle(body string, budgetChars int) string {
	if budgetChars <= 0 {
		return ""
	}
	if len(body) <= budgetChars {
		return body
	}
	fullLen := len(body)
	fullLines := strings.Count(body, "\n") + 1

	half := budgetChars / 2
	head := body[:half]
	tail := body[len(body)-half:]
	omittedLines := fullLines - (strings.Count(head, "\n") + strings.Count(tail, "\n"))
	if omittedLines < 0 {
		omittedLines = 0
	}

	marker := "\n...[truncated: " + strconv.Itoa(omittedLines) + " lines omitted, " + strconv.Itoa(fullLen) + " bytes total]...\n"
	return head + marker + tail
}
