package feedback

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackStore_RecordRating_AppendsUnderTodaysDayFile(t *testing.T) {
	dir := t.TempDir()
	s := NewFeedbackStore(dir)

	err := s.RecordRating(context.Background(), RatingEntry{
		Query:       "how does checkout work",
		Rating:      RatingHelpful,
		ResultCount: 3,
		TopScore:    0.82,
	})
	require.NoError(t, err)

	path := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".jsonl")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFeedbackStore_RecordGap_And_RecordExplain_Append(t *testing.T) {
	dir := t.TempDir()
	s := NewFeedbackStore(dir)
	ctx := context.Background()

	require.NoError(t, s.RecordGap(ctx, GapReportEntry{Description: "missing PaymentGateway", ExpectedIdentifier: "PaymentGateway"}))
	require.NoError(t, s.RecordExplain(ctx, ExplainEntry{Query: "checkout", ResultCount: 2, TopScore: 0.5}))

	entries, err := s.Window(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	kinds := map[EntryKind]bool{}
	for _, e := range entries {
		kinds[e.Kind] = true
	}
	assert.True(t, kinds[EntryGap])
	assert.True(t, kinds[EntryExplain])
}

func TestFeedbackStore_Window_SpansMultipleDayFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFeedbackStore(dir)
	ctx := context.Background()

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	e := newEntry(EntryRating)
	e.Timestamp = yesterday
	e.Rating = &RatingEntry{Query: "yesterday query", ResultCount: 1, TopScore: 0.9}
	require.NoError(t, s.append(e))

	require.NoError(t, s.RecordRating(ctx, RatingEntry{Query: "today query", ResultCount: 1, TopScore: 0.9}))

	entries, err := s.Window(ctx, yesterday.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFeedbackStore_Window_TreatsMissingDayFilesAsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewFeedbackStore(dir)

	entries, err := s.Window(context.Background(), time.Now().UTC().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
