package weaviate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "ragserver/internal/adapter/weaviate"
	"ragserver/internal/testutils"
	"ragserver/internal/vector"
)

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	store := adapter.NewStore(s.Weaviate)
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))
	// Idempotent on a second call.
	require.NoError(t, store.EnsureSchema(ctx))

	now := time.Now().UTC()
	points := []vector.Point{
		{ChunkID: "c1", URL: "https://example.com/a", Text: "robotics curriculum", Position: 0, Title: "A", Vector: unitVec(0), CreatedAt: now},
		{ChunkID: "c2", URL: "https://example.com/a", Text: "admission requirements", Position: 1, Title: "A", Vector: unitVec(1), CreatedAt: now},
		{ChunkID: "c3", URL: "https://example.com/b", Text: "faculty profiles", Position: 0, Title: "B", Vector: unitVec(2), CreatedAt: now},
	}
	require.NoError(t, store.UpsertChunks(ctx, points))

	// Re-upserting the same chunk IDs must not grow the collection.
	require.NoError(t, store.UpsertChunks(ctx, points))
	count, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := store.Search(ctx, unitVec(0), 2, 0.0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "robotics curriculum", results[0].Text)
	assert.Equal(t, "c1", results[0].ChunkID)

	// Page shrank to one chunk; the tail chunk goes away.
	require.NoError(t, store.DeleteStaleChunks(ctx, "https://example.com/a", 1))
	count, err = store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.DeleteChunksByURLPrefix(ctx, "https://example.com/"))
	count, err = store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// unitVec returns a 768-dim basis vector with a 1 at index i.
func unitVec(i int) []float32 {
	v := make([]float32, 768)
	v[i] = 1
	return v
}
