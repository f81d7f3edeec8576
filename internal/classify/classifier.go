package classify

import (
	"regexp"
	"strings"
)

// punctuationStrip removes punctuation tokens during normalization,
// leaving word characters, whitespace, and the underscore/colon/slash
// characters entity extraction still needs downstream.
var punctuationStrip = regexp.MustCompile(`[^\w\s_:/'"-]`)

// Classifier implements the QueryClassifier of spec.md §4.3. It never
// blocks on I/O or embedding calls: every step is a regex match or a
// bounded string scan, so Classify never waits on anything external and
// its running time grows linearly with the query length.
type Classifier struct{}

// New builds a Classifier. It carries no state: every pattern set is a
// package-level constant, matching the fact that classification is a
// pure function of the query text.
func New() *Classifier {
	return &Classifier{}
}

// Classify derives a full Classification from query's free text.
func (c *Classifier) Classify(query string) Classification {
	normalized := normalize(query)

	intent, intentScore := classifyIntent(normalized)
	scope, scopeScore := classifyScope(normalized, query)
	frameworkContext := matchesFrameworkContext(normalized)
	entities := extractEntities(query)
	targetType, targetScore := classifyTarget(normalized, entities)

	if frameworkContext && intent == IntentUnderstand {
		intent = IntentFramework
		intentScore = 0.9
	}

	return Classification{
		Intent:           intent,
		Scope:            scope,
		TargetType:       targetType,
		FrameworkContext: frameworkContext,
		Entities:         entities,
		Confidences: map[string]float64{
			"intent":      intentScore,
			"scope":       scopeScore,
			"target_type": targetScore,
		},
	}
}

// normalize lowercases the query and strips punctuation tokens, per
// spec.md §4.3 step 1. CamelCase preservation for entity extraction
// happens separately against the original query text.
func normalize(query string) string {
	lowered := strings.ToLower(query)
	stripped := punctuationStrip.ReplaceAllString(lowered, " ")
	return strings.Join(strings.Fields(stripped), " ")
}

// classifyIntent walks intentPatterns in priority order; the first match
// wins, defaulting to understand when nothing matches.
func classifyIntent(normalized string) (Intent, float64) {
	for _, p := range intentPatterns {
		if p.regex.MatchString(normalized) {
			return p.intent, p.score
		}
	}
	return IntentUnderstand, 0.5
}

// classifyScope applies spec.md §4.3 step 3's ordered rules: breadth
// words win outright, then the "how does X work" shape, then a
// definite-article singular noun phrase, defaulting to exploratory.
func classifyScope(normalized, original string) (Scope, float64) {
	for _, w := range breadthWords {
		if containsWord(normalized, w) {
			return ScopeComprehensive, 0.85
		}
	}
	if howWorksPattern.MatchString(normalized) {
		return ScopeFocused, 0.8
	}
	if definiteArticlePattern.MatchString(strings.TrimRight(original, "?.! ")) {
		return ScopePinpoint, 0.75
	}
	return ScopeExploratory, 0.4
}

// matchesFrameworkContext reports whether any of frameworkPatterns
// matches the normalized query, per spec.md §4.3 step 5.
func matchesFrameworkContext(normalized string) bool {
	for _, re := range frameworkPatterns {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// classifyTarget looks for a literal head noun from targetHeads first
// (an explicit override), then falls back to treating a resolved
// CamelCase entity as an implicit model/class reference. Missing
// resolution returns unknown, per spec.md §4.3 step 4.
func classifyTarget(normalized string, entities []string) (TargetType, float64) {
	for phrase, t := range targetHeads {
		if containsWord(normalized, phrase) {
			return t, 0.85
		}
	}
	if len(entities) > 0 {
		return TargetModel, 0.4
	}
	return TargetUnknown, 0.3
}

// containsWord reports whether phrase appears in normalized as a
// whole-word (or whole-phrase) match, not merely as a substring of a
// longer token.
func containsWord(normalized, phrase string) bool {
	words := strings.Fields(normalized)
	phraseWords := strings.Fields(phrase)
	if len(phraseWords) == 1 {
		for _, w := range words {
			if w == phrase {
				return true
			}
		}
		return false
	}
	joined := " " + strings.Join(words, " ") + " "
	return strings.Contains(joined, " "+phrase+" ")
}
