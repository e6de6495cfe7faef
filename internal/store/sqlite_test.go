package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"
)

func keywordEmbedder(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	v := []float32{0, 0, 0}
	if strings.Contains(lower, "cat") {
		v[0] = 1
	}
	if strings.Contains(lower, "dog") {
		v[1] = 1
	}
	if strings.Contains(lower, "fish") {
		v[2] = 1
	}
	return v, nil
}

func newTestStore(t *testing.T, embedder Embedder) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", embedder, zaptest.NewLogger(t), WithEmbedLimiter(rate.NewLimiter(rate.Inf, 1)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_RequiresEmbedder(t *testing.T) {
	_, err := NewSQLiteStore(":memory:", nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestValidCollectionName(t *testing.T) {
	assert.True(t, ValidCollectionName("fib_upc"))
	assert.True(t, ValidCollectionName("a-b"))
	assert.False(t, ValidCollectionName("ab"))
	assert.False(t, ValidCollectionName("has.dot"))
	assert.False(t, ValidCollectionName(strings.Repeat("a", 64)))
}

func TestUpsertAndQuery(t *testing.T) {
	s := newTestStore(t, keywordEmbedder)
	ctx := context.Background()

	err := s.Upsert(ctx, "pets", []DocumentChunk{
		{ID: "1", Content: "All about cats", Metadata: map[string]any{"chunk_index": 0}},
		{ID: "2", Content: "All about dogs", Metadata: map[string]any{"chunk_index": 1}},
		{ID: "3", Content: "Cats and dogs together", Metadata: map[string]any{"chunk_index": 2}},
	})
	require.NoError(t, err)

	exists, err := s.CollectionExists(ctx, "pets")
	require.NoError(t, err)
	assert.True(t, exists)

	docs, err := s.Query(ctx, "pets", "tell me about the cat", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "All about cats", docs[0].Content)
	assert.Equal(t, "Cats and dogs together", docs[1].Content)
	assert.LessOrEqual(t, docs[0].Distance, docs[1].Distance)
	assert.EqualValues(t, 0, docs[0].Metadata["chunk_index"])
}

func TestUpsert_ReplacesExistingID(t *testing.T) {
	s := newTestStore(t, keywordEmbedder)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "pets", []DocumentChunk{{ID: "1", Content: "cat"}}))
	require.NoError(t, s.Upsert(ctx, "pets", []DocumentChunk{{ID: "1", Content: "fish"}}))

	docs, err := s.Query(ctx, "pets", "fish", 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "fish", docs[0].Content)
}

func TestUpsert_InvalidCollection(t *testing.T) {
	s := newTestStore(t, keywordEmbedder)
	err := s.Upsert(context.Background(), "x", []DocumentChunk{{ID: "1", Content: "cat"}})
	assert.ErrorIs(t, err, ErrInvalidCollectionName)
}

func TestUpsert_EmptyContentRejected(t *testing.T) {
	s := newTestStore(t, keywordEmbedder)
	err := s.Upsert(context.Background(), "pets", []DocumentChunk{{ID: "1", Content: ""}})
	assert.Error(t, err)

	exists, err := s.CollectionExists(context.Background(), "pets")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpsert_EmbedderFailureWritesNothing(t *testing.T) {
	calls := 0
	s := newTestStore(t, func(ctx context.Context, text string) ([]float32, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("quota exceeded")
		}
		return keywordEmbedder(ctx, text)
	})

	err := s.Upsert(context.Background(), "pets", []DocumentChunk{
		{ID: "1", Content: "cat"},
		{ID: "2", Content: "dog"},
	})
	require.Error(t, err)

	exists, err := s.CollectionExists(context.Background(), "pets")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestQuery_UnknownCollection(t *testing.T) {
	s := newTestStore(t, keywordEmbedder)
	_, err := s.Query(context.Background(), "nowhere", "cat", 5)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestQuery_InvalidK(t *testing.T) {
	s := newTestStore(t, keywordEmbedder)
	_, err := s.Query(context.Background(), "pets", "cat", 0)
	assert.Error(t, err)
}

func TestQuery_SharesEmbeddingThrottle(t *testing.T) {
	calls := 0
	counting := func(ctx context.Context, text string) ([]float32, error) {
		calls++
		return keywordEmbedder(ctx, text)
	}
	s, err := NewSQLiteStore(":memory:", counting, zaptest.NewLogger(t),
		WithEmbedLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Upsert(context.Background(), "pets", []DocumentChunk{{ID: "1", Content: "cats"}}))
	require.Equal(t, 1, calls)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Query(ctx, "pets", "cat", 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding throttle")
	assert.Equal(t, 1, calls, "query embedding waited on the same limiter")
}
