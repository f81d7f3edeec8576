// Package feedback implements the append-only feedback log and gap
// detector of spec.md §4.11: operator-reported ratings, gap reports, and
// retrieval explain traces are persisted as newline-delimited JSON under
// one file per UTC day, then scanned for prioritized quality signals.
package feedback

import (
	"time"

	"github.com/google/uuid"
)

// Rating is the fixed vocabulary for rate_retrieval, spec.md §6.3.
type Rating string

const (
	RatingHelpful   Rating = "helpful"
	RatingPartial   Rating = "partial"
	RatingUnhelpful Rating = "unhelpful"
	RatingWrong     Rating = "wrong"
)

// EntryKind tags which of the three feedback shapes an Entry carries.
type EntryKind string

const (
	EntryRating  EntryKind = "rating"
	EntryGap     EntryKind = "gap"
	EntryExplain EntryKind = "explain"
)

// RatingEntry is one rate_retrieval call.
type RatingEntry struct {
	Query       string   `json:"query"`
	Rating      Rating   `json:"rating"`
	Missing     []string `json:"missing,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	ResultCount int      `json:"result_count"`
	TopScore    float64  `json:"top_score"`
	Truncated   []string `json:"truncated,omitempty"` // unit ids truncated in the assembled context
}

// GapReportEntry is one report_gap call.
type GapReportEntry struct {
	Description        string `json:"description"`
	Query              string `json:"query,omitempty"`
	ExpectedType       string `json:"expected_type,omitempty"`
	ExpectedIdentifier string `json:"expected_identifier,omitempty"`
}

// TraceStepRecord mirrors retrieve.TraceStep without importing that
// package, keeping this package usable by callers that never touch
// internal/retrieve directly.
type TraceStepRecord struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

// ExplainEntry is one retrieval_explain call's recorded trace.
type ExplainEntry struct {
	Query       string            `json:"query"`
	Budget      int               `json:"budget"`
	Steps       []TraceStepRecord `json:"steps"`
	ResultCount int               `json:"result_count"`
	TopScore    float64           `json:"top_score"`
}

// Entry is the on-disk envelope written to one JSONL line. Exactly one of
// Rating/Gap/Explain is populated, selected by Kind.
type Entry struct {
	Kind      EntryKind       `json:"kind"`
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Rating    *RatingEntry    `json:"rating,omitempty"`
	Gap       *GapReportEntry `json:"gap,omitempty"`
	Explain   *ExplainEntry   `json:"explain,omitempty"`
}

func newEntry(kind EntryKind) Entry {
	return Entry{Kind: kind, ID: uuid.NewString(), Timestamp: time.Now().UTC()}
}
