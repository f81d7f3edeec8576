package chunk

import (
	"fmt"
	"strings"

	"github.com/raildex/retrieval-engine/internal/unit"
)

// TextPreparer renders the string embedded for a chunk and the string
// formatted into assembled context, both sharing the §4.1 header so an
// embedding stays grounded in the same framing the reader later sees.
type TextPreparer struct {
	// charCeiling is the maximum rendered text length; zero disables
	// enforcement. On overflow the body is truncated, never the header.
	charCeiling int
}

// NewTextPreparer builds a TextPreparer for a provider whose per-text
// token ceiling is providerTokenCeiling, converted via unit.TokenDivisor.
func NewTextPreparer(providerTokenCeiling int) *TextPreparer {
	ceiling := 0
	if providerTokenCeiling > 0 {
		ceiling = int(float64(providerTokenCeiling) * unit.TokenDivisor)
	}
	return &TextPreparer{charCeiling: ceiling}
}

// Prepare renders the header-prefixed text for one chunk of u. Embedding
// text and context text are identical in this engine (§4.1's additive
// hierarchical-embedding scheme is not adopted; see spec.md §9 open
// question 2 — headers alone satisfy the requirement).
func (p *TextPreparer) Prepare(u *unit.ExtractedUnit, c unit.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Unit: %s (%s)\n", u.Identifier, u.Type)
	fmt.Fprintf(&b, "# File: %s\n", u.FilePath)
	fmt.Fprintf(&b, "# Section: %s\n", c.ChunkKind)

	if deps := u.TopDependencies(3); len(deps) > 0 {
		fmt.Fprintf(&b, "# Dependencies: %s\n", strings.Join(deps, ", "))
	}

	if c.ChunkKind == unit.ChunkKindWhole || c.ChunkKind == unit.ChunkKindSummary {
		p.writeSummaryHeader(&b, u)
	}

	body := c.Content
	if p.charCeiling > 0 {
		headerLen := b.Len()
		budget := p.charCeiling - headerLen
		if budget < 0 {
			budget = 0
		}
		if len(body) > budget {
			body = truncateMiddle(body, budget)
		}
	}
	b.WriteString(body)
	return b.String()
}

// writeSummaryHeader appends the additional header lines §4.1 requires for
// whole-unit/summary embeddings: column list, association/dependent
// counts, and change frequency. Missing or miscast metadata is skipped
// silently rather than failing the chunk (§4.1's malformed-metadata
// failure mode).
func (p *TextPreparer) writeSummaryHeader(b *strings.Builder, u *unit.ExtractedUnit) {
	if columns := metaStringList(u.Metadata, "columns"); len(columns) > 0 {
		fmt.Fprintf(b, "# Columns: %s\n", strings.Join(columns, ", "))
	}
	fmt.Fprintf(b, "# Associations: %d\n", u.CountAssociations())
	fmt.Fprintf(b, "# Dependents: %d\n", len(u.Dependents))
	if u.Git.ChangeFrequency != "" {
		fmt.Fprintf(b, "# Change frequency: %s\n", u.Git.ChangeFrequency)
	}
}

// truncateMiddle preserves a head and tail of body within budget
// characters, per §4.1's overflow rule for both the Chunker and the
// TextPreparer.
func truncateMiddle(body string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if len(body) <= budget {
		return body
	}
	marker := "\n...[truncated]...\n"
	if budget <= len(marker) {
		return body[:budget]
	}
	remaining := budget - len(marker)
	half := remaining / 2
	return body[:half] + marker + body[len(body)-(remaining-half):]
}
