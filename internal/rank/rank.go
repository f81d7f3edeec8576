// Package rank implements the Ranker of spec.md §4.5: Reciprocal Rank
// Fusion across a query's per-strategy rank lists, followed by a
// weighted linear combination of normalized signals and a greedy,
// diversity-penalized selection pass.
package rank

import (
	"context"

	"github.com/raildex/retrieval-engine/internal/classify"
	"github.com/raildex/retrieval-engine/internal/search"
	"github.com/raildex/retrieval-engine/internal/store"
)

// Weights are the tunable coefficients of the final-score formula,
// spec.md §4.5.
type Weights struct {
	RRF        float64
	Keyword    float64
	Recency    float64
	Importance float64
	TypeMatch  float64
	Diversity  float64
}

// DefaultWeights returns spec.md §4.5's tuned defaults.
func DefaultWeights() Weights {
	return Weights{
		RRF:        0.40,
		Keyword:    0.20,
		Recency:    0.15,
		Importance: 0.10,
		TypeMatch:  0.10,
		Diversity:  0.05,
	}
}

// rrfK is the Reciprocal Rank Fusion smoothing constant, spec.md §4.5.
const rrfK = 60

// Ranked is one candidate after scoring, carrying the signal breakdown
// for tracing and the winning selection order.
type Ranked struct {
	search.Candidate
	FinalScore float64
	RRFScore   float64
	Recency    float64
	Importance float64
	TypeMatch  float64
	Keyword    float64
	Diversity  float64
	UnitType   string
	Namespace  string
	// ChangeFrequency is carried through verbatim (rather than reverse-
	// derived from Recency) so downstream formatting never has to map a
	// float score back to its originating enum value.
	ChangeFrequency string
}

// Ranker re-scores and orders a merged candidate set.
type Ranker struct {
	metadata store.MetadataStore
	weights  Weights
}

// New builds a Ranker over metadata, using weights (DefaultWeights() if
// the caller passes the zero value).
func New(metadata store.MetadataStore, weights Weights) *Ranker {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Ranker{metadata: metadata, weights: weights}
}

// Rank fuses sourceRanks via RRF, blends in the per-unit signals fetched
// from MetadataStore (exactly one Find call per candidate, cached within
// this invocation), and returns candidates in final selection order.
func (r *Ranker) Rank(ctx context.Context, candidates []search.Candidate, sourceRanks map[search.Source][]string, classification classify.Classification) ([]Ranked, error) {
	rrfScores := fuseRRF(sourceRanks)

	cache := make(map[string]map[string]any, len(candidates))
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		unitID := resolveUnitID(c)
		meta, ok := cache[unitID]
		if !ok {
			fetched, err := r.metadata.Find(ctx, unitID)
			if err == nil {
				meta = fetched
			}
			cache[unitID] = meta
		}

		rc := Ranked{
			Candidate:  c,
			RRFScore:   rrfScores[c.Identifier],
			Recency:    recencyScore(meta),
			Importance: importanceScore(meta),
			TypeMatch:  typeMatchScore(meta, classification),
			Keyword:    keywordScore(c.MatchedFields),
		}
		if meta != nil {
			if t, ok := meta["type"].(string); ok {
				rc.UnitType = t
			}
			if ns, ok := meta["namespace"].(string); ok {
				rc.Namespace = ns
			}
			if cf, ok := meta["change_frequency"].(string); ok {
				rc.ChangeFrequency = cf
			}
		}
		ranked = append(ranked, rc)
	}

	return r.selectInOrder(ranked), nil
}

// resolveUnitID maps a candidate back to the unit identifier its
// MetadataStore record is keyed on. Vector-search candidates identify a
// chunk, not a unit, so they carry their parent unit's id in Metadata
// (set by the Indexer at upsert time); every other strategy already
// addresses units directly.
func resolveUnitID(c search.Candidate) string {
	if c.Metadata != nil {
		if parent, ok := c.Metadata["parent"].(string); ok && parent != "" {
			return parent
		}
	}
	return c.Identifier
}

// fuseRRF computes Σ 1/(k + rank) for each identifier across every
// strategy's rank list, spec.md §4.5's RRF formula. rank is 1-based.
func fuseRRF(sourceRanks map[search.Source][]string) map[string]float64 {
	scores := make(map[string]float64)
	for _, ids := range sourceRanks {
		for i, id := range ids {
			rank := i + 1
			scores[id] += 1.0 / float64(rrfK+rank)
		}
	}
	return scores
}

var recencyWeights = map[string]float64{
	"hot":     1.0,
	"active":  0.8,
	"new":     0.7,
	"stable":  0.5,
	"dormant": 0.3,
	"unknown": 0.5,
}

func recencyScore(meta map[string]any) float64 {
	if meta == nil {
		return recencyWeights["unknown"]
	}
	freq, _ := meta["change_frequency"].(string)
	if w, ok := recencyWeights[freq]; ok {
		return w
	}
	return recencyWeights["unknown"]
}

var importanceWeights = map[string]float64{
	"high":   1.0,
	"medium": 0.6,
	"low":    0.3,
}

func importanceScore(meta map[string]any) float64 {
	if meta == nil {
		return importanceWeights["medium"]
	}
	imp, _ := meta["importance"].(string)
	if w, ok := importanceWeights[imp]; ok {
		return w
	}
	return importanceWeights["medium"]
}

// typeMatchScore implements spec.md §4.5's three-way type_match rule.
func typeMatchScore(meta map[string]any, classification classify.Classification) float64 {
	if classification.TargetType == "" || classification.TargetType == classify.TargetUnknown {
		return 0.5
	}
	if meta == nil {
		return 0.3
	}
	unitType, _ := meta["type"].(string)
	if unitType == string(classification.TargetType) {
		return 1.0
	}
	return 0.3
}

// keywordScore implements spec.md §4.5's keyword signal: min(0.25 * matched fields, 1.0).
func keywordScore(matchedFields []string) float64 {
	score := 0.25 * float64(len(matchedFields))
	if score > 1.0 {
		return 1.0
	}
	return score
}

const (
	diversityIncrement = 0.1
	diversityCap       = 0.5
)

// selectInOrder greedily selects candidates highest-final-score-first,
// recomputing each remaining candidate's diversity penalty against the
// (namespace, type) pairs already selected before each pick — spec.md
// §4.5's "computed during selection" diversity_penalty. Candidates tied
// on score break by identifier, lexicographically smallest first, so the
// winner never depends on merge-insertion order.
func (r *Ranker) selectInOrder(ranked []Ranked) []Ranked {
	remaining := make([]Ranked, len(ranked))
	copy(remaining, ranked)

	selected := make([]Ranked, 0, len(ranked))
	selectedGroups := make(map[string]int)

	for len(remaining) > 0 {
		bestIdx := -1
		var bestScore float64
		for i, c := range remaining {
			penalty := diversityPenalty(c, selectedGroups)
			score := r.weights.RRF*c.RRFScore +
				r.weights.Recency*c.Recency +
				r.weights.Importance*c.Importance +
				r.weights.TypeMatch*c.TypeMatch +
				r.weights.Keyword*c.Keyword -
				r.weights.Diversity*penalty
			better := bestIdx == -1 || score > bestScore ||
				(score == bestScore && c.Identifier < remaining[bestIdx].Identifier)
			if better {
				bestIdx = i
				bestScore = score
				remaining[i].Diversity = penalty
			}
		}
		winner := remaining[bestIdx]
		winner.FinalScore = bestScore
		selected = append(selected, winner)
		selectedGroups[groupKey(winner)]++
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func groupKey(c Ranked) string {
	return c.Namespace + "\x00" + c.UnitType
}

func diversityPenalty(c Ranked, selectedGroups map[string]int) float64 {
	count := selectedGroups[groupKey(c)]
	penalty := diversityIncrement * float64(count)
	if penalty > diversityCap {
		return diversityCap
	}
	return penalty
}
