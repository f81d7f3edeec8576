package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGapDetector_Detect_FlagsZeroResultQueries(t *testing.T) {
	dir := t.TempDir()
	s := NewFeedbackStore(dir)
	ctx := context.Background()
	require.NoError(t, s.RecordExplain(ctx, ExplainEntry{Query: "nonexistent thing", ResultCount: 0}))

	d := NewGapDetector(s, 24*time.Hour, nil)
	signals, err := d.Detect(ctx)
	require.NoError(t, err)

	require.Len(t, signals, 1)
	assert.Equal(t, "zero_result_query", signals[0].Kind)
	assert.Equal(t, PriorityHigh, signals[0].Priority)
	assert.Equal(t, "nonexistent thing", signals[0].Detail)
}

func TestGapDetector_Detect_FlagsLowTopScoreQueries(t *testing.T) {
	dir := t.TempDir()
	s := NewFeedbackStore(dir)
	ctx := context.Background()
	require.NoError(t, s.RecordRating(ctx, RatingEntry{Query: "vague query", Rating: RatingPartial, ResultCount: 4, TopScore: 0.3}))

	d := NewGapDetector(s, 24*time.Hour, nil)
	signals, err := d.Detect(ctx)
	require.NoError(t, err)

	require.Len(t, signals, 1)
	assert.Equal(t, "low_top_score_query", signals[0].Kind)
	assert.Equal(t, PriorityMedium, signals[0].Priority)
}

func TestGapDetector_Detect_RequiresThreeRepeatsForIdentifierGap(t *testing.T) {
	dir := t.TempDir()
	s := NewFeedbackStore(dir)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		require.NoError(t, s.RecordGap(ctx, GapReportEntry{Description: "missing", ExpectedIdentifier: "PaymentGateway"}))
	}

	d := NewGapDetector(s, 24*time.Hour, nil)
	signals, err := d.Detect(ctx)
	require.NoError(t, err)
	assert.Empty(t, signals, "two reports should not yet cross the repeated-gap threshold")

	require.NoError(t, s.RecordGap(ctx, GapReportEntry{Description: "missing", ExpectedIdentifier: "PaymentGateway"}))
	signals, err = d.Detect(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "repeated_identifier_gap", signals[0].Kind)
	assert.Equal(t, PriorityHigh, signals[0].Priority)
	assert.Equal(t, 3, signals[0].Count)
}

func TestGapDetector_Detect_RequiresThreeOccurrencesForChronicTruncation(t *testing.T) {
	dir := t.TempDir()
	s := NewFeedbackStore(dir)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordRating(ctx, RatingEntry{
			Query: "q", Rating: RatingPartial, ResultCount: 1, TopScore: 0.9,
			Truncated: []string{"BigController"},
		}))
	}

	d := NewGapDetector(s, 24*time.Hour, nil)
	signals, err := d.Detect(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "chronic_truncation", signals[0].Kind)
	assert.Equal(t, PriorityLow, signals[0].Priority)
	assert.Equal(t, "BigController", signals[0].Detail)
}

func TestGapDetector_Detect_OrdersHighBeforeMediumBeforeLow(t *testing.T) {
	dir := t.TempDir()
	s := NewFeedbackStore(dir)
	ctx := context.Background()
	require.NoError(t, s.RecordRating(ctx, RatingEntry{Query: "low score", ResultCount: 2, TopScore: 0.1}))
	require.NoError(t, s.RecordExplain(ctx, ExplainEntry{Query: "zero result", ResultCount: 0}))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordRating(ctx, RatingEntry{Query: "q2", ResultCount: 1, TopScore: 0.9, Truncated: []string{"Unit"}}))
	}

	d := NewGapDetector(s, 24*time.Hour, nil)
	signals, err := d.Detect(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 3)
	assert.Equal(t, PriorityHigh, signals[0].Priority)
	assert.Equal(t, PriorityMedium, signals[1].Priority)
	assert.Equal(t, PriorityLow, signals[2].Priority)
}

func TestGapDetector_Detect_OnlyScansWithinWindow(t *testing.T) {
	dir := t.TempDir()
	s := NewFeedbackStore(dir)
	ctx := context.Background()

	old := newEntry(EntryExplain)
	old.Timestamp = time.Now().UTC().Add(-10 * 24 * time.Hour)
	old.Explain = &ExplainEntry{Query: "ancient", ResultCount: 0}
	require.NoError(t, s.append(old))

	d := NewGapDetector(s, 24*time.Hour, nil)
	signals, err := d.Detect(ctx)
	require.NoError(t, err)
	assert.Empty(t, signals)
}
