package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raildex/retrieval-engine/internal/embedding"
)

func newTestSQLiteStores(t *testing.T) (*SQLiteVectorStore, *SQLiteMetadataStore) {
	t.Helper()
	vectors, metadata, err := NewSQLiteStores(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, vectors.Close())
	})
	return vectors, metadata
}

func TestNewSQLiteStores(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		vectors, metadata, err := NewSQLiteStores(":memory:")
		require.NoError(t, err)
		defer vectors.Close()

		assert.NotNil(t, vectors)
		assert.NotNil(t, metadata)
	})

	t.Run("file-based database", func(t *testing.T) {
		path := t.TempDir() + "/index.db"
		vectors, _, err := NewSQLiteStores(path)
		require.NoError(t, err)
		defer vectors.Close()
	})

	t.Run("shared connection closes once", func(t *testing.T) {
		vectors, metadata, err := NewSQLiteStores(":memory:")
		require.NoError(t, err)
		assert.NoError(t, vectors.Close())
		assert.NoError(t, metadata.Close())
	})
}

func TestSQLiteVectorStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	vectors, _ := newTestSQLiteStores(t)

	require.NoError(t, vectors.Upsert(ctx, "unit_a", embedding.Vector{1, 0, 0}, map[string]any{"type": "class"}))
	require.NoError(t, vectors.Upsert(ctx, "unit_b", embedding.Vector{0, 1, 0}, map[string]any{"type": "module"}))

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	results, err := vectors.Search(ctx, embedding.Vector{1, 0, 0}, nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "unit_a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)

	filtered, err := vectors.Search(ctx, embedding.Vector{1, 0, 0}, map[string]any{"type": "module"}, 10)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "unit_b", filtered[0].ID)
}

func TestSQLiteVectorStore_UpsertBatchAndDelete(t *testing.T) {
	ctx := context.Background()
	vectors, _ := newTestSQLiteStores(t)

	err := vectors.UpsertBatch(ctx, []VectorUpsert{
		{ID: "unit_a", Vector: embedding.Vector{1, 0}, Metadata: map[string]any{"type": "class"}},
		{ID: "unit_b", Vector: embedding.Vector{0, 1}, Metadata: map[string]any{"type": "class"}},
	})
	require.NoError(t, err)

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, vectors.Delete(ctx, []string{"unit_a"}))
	count, err = vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, vectors.DeleteByFilter(ctx, map[string]any{"type": "class"}))
	count, err = vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSQLiteMetadataStore_UpsertFindAndQuery(t *testing.T) {
	ctx := context.Background()
	_, metadata := newTestSQLiteStores(t)

	require.NoError(t, metadata.Upsert(ctx, "unit_a", map[string]any{
		"type":       "class",
		"identifier": "Widget",
	}))
	require.NoError(t, metadata.Upsert(ctx, "unit_b", map[string]any{
		"type":       "module",
		"identifier": "Helpers",
	}))

	md, err := metadata.Find(ctx, "unit_a")
	require.NoError(t, err)
	assert.Equal(t, "Widget", md["identifier"])

	_, err = metadata.Find(ctx, "missing")
	assert.Error(t, err)

	ids, err := metadata.ListByType(ctx, "class", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"unit_a"}, ids)

	require.NoError(t, metadata.Delete(ctx, "unit_a"))
	_, err = metadata.Find(ctx, "unit_a")
	assert.Error(t, err)
}

func TestSQLiteMetadataStore_SearchKeywords(t *testing.T) {
	ctx := context.Background()
	_, metadata := newTestSQLiteStores(t)

	require.NoError(t, metadata.Upsert(ctx, "unit_a", map[string]any{
		"identifier":   "WidgetController",
		"method_names": "index show",
	}))
	require.NoError(t, metadata.Upsert(ctx, "unit_b", map[string]any{
		"identifier":   "Helpers",
		"method_names": "format_widget",
	}))

	results, err := metadata.SearchKeywords(ctx, []string{"widget"}, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "unit_a", results[0].ID, "identifier match outranks method_names match")
}
