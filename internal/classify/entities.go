package classify

import "regexp"

// camelCaseToken matches a CamelCase or PascalCase identifier token,
// e.g. "ActiveRecord" or "UserController" — spec.md §4.3 step 6's first
// entity class.
var camelCaseToken = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]*(?:[A-Z][a-z0-9]+)+\b|\b[A-Z][a-zA-Z0-9]{2,}\b`)

// snakeCaseMethodToken matches a snake_case identifier that looks like a
// method or column name (at least one underscore, no leading digit).
var snakeCaseMethodToken = regexp.MustCompile(`\b[a-z][a-z0-9]*(?:_[a-z0-9]+)+[?!]?\b`)

// quotedIdiom matches an explicit quoted string, which the spec treats
// as carrying column/route idioms verbatim.
var quotedIdiom = regexp.MustCompile(`["']([^"']+)["']`)

// routePathIdiom matches a literal URL path segment, e.g. "/users/:id".
var routePathIdiom = regexp.MustCompile(`/[a-zA-Z0-9_\-/:]+`)

// stopWords are common English words that must never be mistaken for a
// CamelCase entity or target-type head, even though they can appear
// capitalized at a sentence's start.
var stopWords = map[string]struct{}{
	"The": {}, "How": {}, "What": {}, "Where": {}, "Why": {}, "When": {},
	"Is": {}, "Are": {}, "Does": {}, "Do": {}, "Find": {}, "Show": {},
	"List": {}, "Explain": {}, "Which": {}, "Who": {},
}

// extractEntities pulls CamelCase identifiers, snake_case method/column
// tokens, quoted idioms, and route paths out of the original (not
// lowercased) query text, deduplicating while preserving first-seen
// order.
func extractEntities(original string) []string {
	seen := make(map[string]struct{})
	var entities []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		entities = append(entities, s)
	}

	for _, m := range camelCaseToken.FindAllString(original, -1) {
		if _, stop := stopWords[m]; stop {
			continue
		}
		add(m)
	}
	for _, m := range snakeCaseMethodToken.FindAllString(original, -1) {
		add(m)
	}
	for _, m := range quotedIdiom.FindAllStringSubmatch(original, -1) {
		add(m[1])
	}
	for _, m := range routePathIdiom.FindAllString(original, -1) {
		add(m)
	}
	return entities
}
