package assemble

import (
	"context"
	"fmt"
	"strings"

	"github.com/raildex/retrieval-engine/internal/rank"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// Adapter renders the structural block and individual units into one of
// the formatting contract's wire shapes (XML, Markdown, plain), per
// spec.md §4.6. Overhead is the per-unit cost from the format-adapter
// overhead table; it is charged against a layer's budget together with
// each unit's content as that unit is placed.
type Adapter interface {
	Name() string
	Overhead() int
	FormatStructural(ctx context.Context, units unit.Store) string
	FormatUnit(r rank.Ranked, layer Layer, content string, truncated bool, deps []string) string
}

// MarkdownAdapter renders units as fenced code blocks under a metadata
// header line, ~30 tokens of overhead per unit.
type MarkdownAdapter struct{}

func (MarkdownAdapter) Name() string  { return "markdown" }
func (MarkdownAdapter) Overhead() int { return 30 }

func (MarkdownAdapter) FormatStructural(ctx context.Context, units unit.Store) string {
	manifest, err := units.Manifest(ctx)
	if err != nil {
		return "## Project overview\n\n(manifest unavailable)\n\n"
	}
	var b strings.Builder
	b.WriteString("## Project overview\n\n")
	fmt.Fprintf(&b, "- git_sha: %s\n", manifest.GitSHA)
	for typ, count := range manifest.Counts {
		fmt.Fprintf(&b, "- %s: %d\n", typ, count)
	}
	b.WriteString("\n")
	return b.String()
}

func (MarkdownAdapter) FormatUnit(r rank.Ranked, layer Layer, content string, truncated bool, deps []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s (%s)\n", r.Identifier, r.UnitType)
	fmt.Fprintf(&b, "- relevance: %.3f\n", r.FinalScore)
	fmt.Fprintf(&b, "- change_frequency: %s\n", changeFrequencyOf(r))
	fmt.Fprintf(&b, "- layer: %s\n", layer)
	if truncated {
		b.WriteString("- truncated: true\n")
	}
	b.WriteString("\n```\n")
	b.WriteString(content)
	b.WriteString("\n```\n")
	if trailer := dependencyArrows(r, deps); trailer != "" {
		fmt.Fprintf(&b, "\n%s\n", trailer)
	}
	b.WriteString("\n")
	return b.String()
}

// XMLAdapter renders units inside <unit> elements with metadata
// attributes, ~40 tokens of overhead per unit.
type XMLAdapter struct{}

func (XMLAdapter) Name() string  { return "xml" }
func (XMLAdapter) Overhead() int { return 40 }

func (XMLAdapter) FormatStructural(ctx context.Context, units unit.Store) string {
	manifest, err := units.Manifest(ctx)
	if err != nil {
		return "<overview/>\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<overview git_sha=%q>\n", manifest.GitSHA)
	for typ, count := range manifest.Counts {
		fmt.Fprintf(&b, "  <count type=%q value=\"%d\"/>\n", typ, count)
	}
	b.WriteString("</overview>\n")
	return b.String()
}

func (XMLAdapter) FormatUnit(r rank.Ranked, layer Layer, content string, truncated bool, deps []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<unit identifier=%q type=%q relevance=%.3f change_frequency=%q layer=%q truncated=\"%t\">\n",
		r.Identifier, r.UnitType, r.FinalScore, changeFrequencyOf(r), layer, truncated)
	b.WriteString(content)
	b.WriteString("\n")
	if trailer := dependencyArrows(r, deps); trailer != "" {
		fmt.Fprintf(&b, "%s\n", trailer)
	}
	b.WriteString("</unit>\n")
	return b.String()
}

// PlainAdapter renders units with a bare key: value metadata header and
// no markup, ~20 tokens of overhead per unit.
type PlainAdapter struct{}

func (PlainAdapter) Name() string  { return "plain" }
func (PlainAdapter) Overhead() int { return 20 }

func (PlainAdapter) FormatStructural(ctx context.Context, units unit.Store) string {
	manifest, err := units.Manifest(ctx)
	if err != nil {
		return "PROJECT OVERVIEW (unavailable)\n\n"
	}
	var b strings.Builder
	b.WriteString("PROJECT OVERVIEW\n")
	fmt.Fprintf(&b, "git_sha: %s\n", manifest.GitSHA)
	for typ, count := range manifest.Counts {
		fmt.Fprintf(&b, "%s: %d\n", typ, count)
	}
	b.WriteString("\n")
	return b.String()
}

func (PlainAdapter) FormatUnit(r rank.Ranked, layer Layer, content string, truncated bool, deps []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "UNIT %s TYPE %s RELEVANCE %.3f LAYER %s TRUNCATED %t\n", r.Identifier, r.UnitType, r.FinalScore, layer, truncated)
	b.WriteString(content)
	b.WriteString("\n")
	if trailer := dependencyArrows(r, deps); trailer != "" {
		fmt.Fprintf(&b, "%s\n", trailer)
	}
	b.WriteString("\n")
	return b.String()
}

func changeFrequencyOf(r rank.Ranked) string {
	if r.ChangeFrequency == "" {
		return string(unit.ChangeFrequencyUnknown)
	}
	return r.ChangeFrequency
}

// dependencyArrows renders the compact arrow-notation trailer spec.md
// §4.6 requires at the end of each emitted unit: the unit's own forward
// dependencies (e.g. "CheckoutService → Order, PaymentGateway"), for
// every unit that has any, plus a second line naming the graph-expansion
// seed a supporting unit was pulled in from, when that provenance is
// known.
func dependencyArrows(r rank.Ranked, deps []string) string {
	var lines []string
	if len(deps) > 0 {
		lines = append(lines, fmt.Sprintf("%s → %s", r.Identifier, strings.Join(deps, ", ")))
	}
	if r.ExpandedFrom != "" {
		lines = append(lines, fmt.Sprintf("%s -> %s", r.ExpandedFrom, r.Identifier))
	}
	return strings.Join(lines, "\n")
}
