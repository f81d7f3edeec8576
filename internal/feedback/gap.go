package feedback

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Priority is a signal's urgency bucket, spec.md §4.11.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// priorityRank orders Signal slices high-to-low for a stable report.
var priorityRank = map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// minTopScore and minRepeatedGapReports are the thresholds spec.md §4.11
// names for the low-top-score and repeated-identifier-gap signals.
const (
	minTopScore           = 0.60
	minRepeatedGapReports = 3
	minChronicTruncations = 3
)

// Signal is one prioritized gap-detector finding.
type Signal struct {
	Kind     string   `json:"kind"`
	Priority Priority `json:"priority"`
	Detail   string   `json:"detail"`
	Count    int      `json:"count"`
}

// GapDetector scans a trailing window of feedback entries and emits the
// prioritized signal list spec.md §4.11 names: zero-result queries,
// low-top-score queries, repeated identifier gaps, and chronic truncation
// on specific units.
type GapDetector struct {
	store  *FeedbackStore
	window time.Duration
	cache  *RedisSignalCache
}

// NewGapDetector builds a detector scanning the trailing window of
// feedback recorded in store. cache may be nil to disable cross-replica
// signal caching.
func NewGapDetector(store *FeedbackStore, window time.Duration, cache *RedisSignalCache) *GapDetector {
	return &GapDetector{store: store, window: window, cache: cache}
}

// Detect runs the scan, consulting the shared cache first when one is
// configured.
func (d *GapDetector) Detect(ctx context.Context) ([]Signal, error) {
	since := time.Now().UTC().Add(-d.window)
	cacheKey := fmt.Sprintf("gap-signals:%s", since.Format(time.RFC3339))

	if d.cache != nil {
		if signals, ok, err := d.cache.Get(ctx, cacheKey); err == nil && ok {
			return signals, nil
		}
	}

	entries, err := d.store.Window(ctx, since)
	if err != nil {
		return nil, err
	}
	signals := detectSignals(entries)

	if d.cache != nil {
		_ = d.cache.Set(ctx, cacheKey, signals)
	}
	return signals, nil
}

func detectSignals(entries []Entry) []Signal {
	zeroResultCounts := map[string]int{}
	lowScoreCounts := map[string]int{}
	gapIdentifierCounts := map[string]int{}
	truncationCounts := map[string]int{}

	for _, e := range entries {
		switch e.Kind {
		case EntryExplain:
			if e.Explain == nil {
				continue
			}
			if e.Explain.ResultCount == 0 {
				zeroResultCounts[e.Explain.Query]++
			} else if e.Explain.TopScore < minTopScore {
				lowScoreCounts[e.Explain.Query]++
			}
		case EntryRating:
			if e.Rating == nil {
				continue
			}
			if e.Rating.ResultCount == 0 {
				zeroResultCounts[e.Rating.Query]++
			} else if e.Rating.TopScore < minTopScore {
				lowScoreCounts[e.Rating.Query]++
			}
			for _, id := range e.Rating.Truncated {
				truncationCounts[id]++
			}
		case EntryGap:
			if e.Gap == nil || e.Gap.ExpectedIdentifier == "" {
				continue
			}
			gapIdentifierCounts[e.Gap.ExpectedIdentifier]++
		}
	}

	var signals []Signal
	for query, count := range zeroResultCounts {
		signals = append(signals, Signal{
			Kind:     "zero_result_query",
			Priority: PriorityHigh,
			Detail:   query,
			Count:    count,
		})
	}
	for query, count := range lowScoreCounts {
		signals = append(signals, Signal{
			Kind:     "low_top_score_query",
			Priority: PriorityMedium,
			Detail:   query,
			Count:    count,
		})
	}
	for identifier, count := range gapIdentifierCounts {
		if count < minRepeatedGapReports {
			continue
		}
		signals = append(signals, Signal{
			Kind:     "repeated_identifier_gap",
			Priority: PriorityHigh,
			Detail:   identifier,
			Count:    count,
		})
	}
	for identifier, count := range truncationCounts {
		if count < minChronicTruncations {
			continue
		}
		signals = append(signals, Signal{
			Kind:     "chronic_truncation",
			Priority: PriorityLow,
			Detail:   identifier,
			Count:    count,
		})
	}

	sort.Slice(signals, func(i, j int) bool {
		if priorityRank[signals[i].Priority] != priorityRank[signals[j].Priority] {
			return priorityRank[signals[i].Priority] < priorityRank[signals[j].Priority]
		}
		if signals[i].Count != signals[j].Count {
			return signals[i].Count > signals[j].Count
		}
		return signals[i].Detail < signals[j].Detail
	})
	return signals
}
