// Package chunk implements the Chunker and TextPreparer of spec.md §4.1:
// splitting an ExtractedUnit into semantically coherent Chunks tuned for
// embedding, and rendering the embed-ready and context-framed text for a
// chunk with a shared header format.
package chunk

import (
	"fmt"
	"strings"

	"github.com/raildex/retrieval-engine/internal/unit"
)

const (
	modelWholeLOCCeiling = 100
	modelSplitLOCCeiling = 500
	controllerActionMin  = 5
	graphqlFieldMin      = 10
	fieldGroupSize       = 10
)

// Chunker partitions a unit into chunks by a policy keyed on unit kind.
// It is deterministic: unchanged SourceCode and Metadata always produce
// identical chunk ids and content hashes (the "chunk stability" property).
type Chunker struct {
	// providerCharCeiling is the maximum chunk content length in
	// characters, derived from the embedding provider's token ceiling via
	// unit.TokenDivisor. Zero means no ceiling is enforced.
	providerCharCeiling int
}

// NewChunker builds a Chunker for a provider whose per-text token ceiling
// is providerTokenCeiling. A ceiling of zero disables truncation.
func NewChunker(providerTokenCeiling int) *Chunker {
	ceiling := 0
	if providerTokenCeiling > 0 {
		ceiling = int(float64(providerTokenCeiling) * unit.TokenDivisor)
	}
	return &Chunker{providerCharCeiling: ceiling}
}

// Chunk computes the chunk set for a unit per its type's policy, never
// failing on malformed metadata: missing or miscast metadata fields just
// narrow the policy to its fallback (a single whole chunk).
func (c *Chunker) Chunk(u *unit.ExtractedUnit) []unit.Chunk {
	var raw []rawChunk

	switch u.Type {
	case "model":
		raw = c.chunkModel(u)
	case "controller":
		raw = c.chunkController(u)
	case "graphql_type":
		raw = c.chunkGraphQLType(u)
	default:
		raw = []rawChunk{{kind: unit.ChunkKindWhole, suffix: "", content: u.SourceCode}}
	}

	chunks := make([]unit.Chunk, 0, len(raw))
	for _, r := range raw {
		content := c.enforceCeiling(r.content)
		if strings.TrimSpace(content) == "" {
			continue
		}
		chunks = append(chunks, unit.Chunk{
			ChunkID:       chunkID(u.Identifier, r.kind, r.suffix),
			ChunkKind:     r.kind,
			Content:       content,
			ContentHash:   unit.HashContent(content),
			TokenEstimate: unit.EstimateTokens(content),
		})
	}
	return chunks
}

type rawChunk struct {
	kind    unit.ChunkKind
	suffix  string
	content string
}

func chunkID(identifier string, kind unit.ChunkKind, suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("%s::%s", identifier, kind)
	}
	return fmt.Sprintf("%s::%s::%s", identifier, kind, suffix)
}

func countLOC(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// chunkModel implements §4.1's model policy: whole below 100 loc, a fixed
// section set between 100 and 500 loc, and additionally split oversize
// concerns above 500 loc.
func (c *Chunker) chunkModel(u *unit.ExtractedUnit) []rawChunk {
	loc := countLOC(u.SourceCode)
	if loc <= modelWholeLOCCeiling {
		return []rawChunk{{kind: unit.ChunkKindWhole, content: u.SourceCode}}
	}

	var raw []rawChunk
	if s := metaSection(u, "summary"); s != "" {
		raw = append(raw, rawChunk{kind: unit.ChunkKindSummary, content: s})
	}
	if s := metaSection(u, "associations"); s != "" {
		raw = append(raw, rawChunk{kind: unit.ChunkKindAssociations, content: s})
	}
	if s := metaSection(u, "callbacks"); s != "" {
		raw = append(raw, rawChunk{kind: unit.ChunkKindCallbacks, content: s})
	}
	if s := metaSection(u, "validations"); s != "" {
		raw = append(raw, rawChunk{kind: unit.ChunkKindValidations, content: s})
	}
	if s := metaSection(u, "scopes"); s != "" {
		raw = append(raw, rawChunk{kind: unit.ChunkKindScopes, content: s})
	}

	for _, name := range metaStringList(u.Metadata, "concerns") {
		body := metaSection(u, "concern:"+name)
		if body == "" {
			continue
		}
		if loc > modelSplitLOCCeiling && c.providerCharCeiling > 0 && len(body) > c.providerCharCeiling {
			for i, part := range splitAtNaturalBoundaries(body, c.providerCharCeiling) {
				raw = append(raw, rawChunk{kind: unit.ChunkKindConcern, suffix: fmt.Sprintf("%s.%d", name, i), content: part})
			}
			continue
		}
		raw = append(raw, rawChunk{kind: unit.ChunkKindConcern, suffix: name, content: body})
	}

	if len(raw) == 0 {
		return []rawChunk{{kind: unit.ChunkKindWhole, content: u.SourceCode}}
	}
	return raw
}

// chunkController implements §4.1's controller policy: one chunk per
// action when the controller has 5 or more actions, else whole.
func (c *Chunker) chunkController(u *unit.ExtractedUnit) []rawChunk {
	actions := metaStringList(u.Metadata, "actions")
	if len(actions) < controllerActionMin {
		return []rawChunk{{kind: unit.ChunkKindWhole, content: u.SourceCode}}
	}

	raw := make([]rawChunk, 0, len(actions))
	for _, action := range actions {
		var b strings.Builder
		if route := metaSection(u, "route:"+action); route != "" {
			fmt.Fprintf(&b, "# Route: %s\n", route)
		}
		if filters := metaSection(u, "filters:"+action); filters != "" {
			fmt.Fprintf(&b, "# Filters: %s\n", filters)
		}
		if params := metaSection(u, "permitted_params:"+action); params != "" {
			fmt.Fprintf(&b, "# Permitted params: %s\n", params)
		}
		if body := metaSection(u, "action:"+action); body != "" {
			b.WriteString(body)
		}
		raw = append(raw, rawChunk{kind: unit.ChunkKindAction, suffix: action, content: b.String()})
	}
	return raw
}

// chunkGraphQLType implements §4.1's GraphQL policy: a summary, field-group
// chunks of 10 fields, and an arguments chunk, when the type has more than
// 10 fields; else whole.
func (c *Chunker) chunkGraphQLType(u *unit.ExtractedUnit) []rawChunk {
	fields := metaStringList(u.Metadata, "fields")
	if len(fields) <= graphqlFieldMin {
		return []rawChunk{{kind: unit.ChunkKindWhole, content: u.SourceCode}}
	}

	var raw []rawChunk
	if s := metaSection(u, "summary"); s != "" {
		raw = append(raw, rawChunk{kind: unit.ChunkKindSummary, content: s})
	}
	for i := 0; i < len(fields); i += fieldGroupSize {
		end := i + fieldGroupSize
		if end > len(fields) {
			end = len(fields)
		}
		group := strings.Join(fields[i:end], "\n")
		raw = append(raw, rawChunk{kind: unit.ChunkKindFieldGroup, suffix: fmt.Sprintf("%d", i/fieldGroupSize), content: group})
	}
	if s := metaSection(u, "arguments"); s != "" {
		raw = append(raw, rawChunk{kind: unit.ChunkKindFieldGroup, suffix: "arguments", content: s})
	}
	return raw
}

// enforceCeiling truncates content from the middle, preserving a head and
// tail, when it still exceeds the provider's character ceiling after
// natural-boundary splitting has already been applied by the caller.
func (c *Chunker) enforceCeiling(content string) string {
	if c.providerCharCeiling <= 0 || len(content) <= c.providerCharCeiling {
		return content
	}
	half := c.providerCharCeiling / 2
	head := content[:half]
	tail := content[len(content)-half:]
	return head + "\n...[truncated]...\n" + tail
}

// splitAtNaturalBoundaries breaks body into parts no larger than ceiling,
// preferring blank-line boundaries, falling back to a hard cut.
func splitAtNaturalBoundaries(body string, ceiling int) []string {
	paragraphs := strings.Split(body, "\n\n")
	var parts []string
	var current strings.Builder
	for _, p := range paragraphs {
		if current.Len() > 0 && current.Len()+len(p)+2 > ceiling {
			parts = append(parts, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
		for current.Len() > ceiling {
			parts = append(parts, current.String()[:ceiling])
			remainder := current.String()[ceiling:]
			current.Reset()
			current.WriteString(remainder)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	if len(parts) == 0 {
		parts = []string{body}
	}
	return parts
}

func metaSection(u *unit.ExtractedUnit, key string) string {
	v, ok := u.Metadata[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// metaStringList reads a []string-shaped metadata field, tolerating the
// []any shape produced by generic JSON decoding.
func metaStringList(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

