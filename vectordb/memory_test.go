package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frauddesk/fraudqa/schema"
)

func chunk(id string) schema.DocumentChunk {
	return schema.DocumentChunk{ID: id, Content: id, Source: "test.pdf", Page: 1}
}

func seed(t *testing.T, m *MemoryProvider, vectors map[string][]float32, order []string) {
	t.Helper()
	for _, id := range order {
		require.NoError(t, m.AddChunks(context.Background(),
			[]schema.DocumentChunk{chunk(id)}, [][]float32{vectors[id]}))
	}
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	m := NewMemoryProvider(2)
	seed(t, m, map[string][]float32{
		"far":    {0, 1},
		"close":  {1, 0.1},
		"closer": {1, 0},
	}, []string{"far", "close", "closer"})

	hits, err := m.SearchChunks(context.Background(), []float32{1, 0}, &SearchOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "closer", hits[0].Chunk.ID)
	assert.Equal(t, "close", hits[1].Chunk.ID)
	assert.Equal(t, "far", hits[2].Chunk.ID)
	for i, h := range hits {
		assert.Equal(t, i+1, h.Rank)
	}
}

func TestSearchThresholdFloor(t *testing.T) {
	m := NewMemoryProvider(2)
	seed(t, m, map[string][]float32{
		"relevant":   {1, 0},
		"orthogonal": {0, 1},
	}, []string{"relevant", "orthogonal"})

	hits, err := m.SearchChunks(context.Background(), []float32{1, 0}, &SearchOptions{TopK: 10, Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "relevant", hits[0].Chunk.ID)
}

func TestSearchTieBreakFirstIndexed(t *testing.T) {
	// Identical vectors score identically; insertion order must decide.
	m := NewMemoryProvider(2)
	seed(t, m, map[string][]float32{
		"first":  {1, 0},
		"second": {1, 0},
		"third":  {1, 0},
	}, []string{"first", "second", "third"})

	for i := 0; i < 5; i++ {
		hits, err := m.SearchChunks(context.Background(), []float32{1, 0}, &SearchOptions{TopK: 2})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "first", hits[0].Chunk.ID)
		assert.Equal(t, "second", hits[1].Chunk.ID)
	}
}

func TestSearchTopKCut(t *testing.T) {
	m := NewMemoryProvider(2)
	seed(t, m, map[string][]float32{
		"a": {1, 0}, "b": {0.9, 0.1}, "c": {0.8, 0.2},
	}, []string{"a", "b", "c"})

	hits, err := m.SearchChunks(context.Background(), []float32{1, 0}, &SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Chunk.ID)
}

func TestAddChunksDimensionMismatch(t *testing.T) {
	m := NewMemoryProvider(3)
	err := m.AddChunks(context.Background(), []schema.DocumentChunk{chunk("x")}, [][]float32{{1, 0}})
	assert.Error(t, err)

	err = m.AddChunks(context.Background(), []schema.DocumentChunk{chunk("x")}, nil)
	assert.Error(t, err)
}

func TestDeleteBySource(t *testing.T) {
	m := NewMemoryProvider(2)
	require.NoError(t, m.AddChunks(context.Background(),
		[]schema.DocumentChunk{
			{ID: "a", Content: "a", Source: "guide.pdf", Page: 1},
			{ID: "b", Content: "b", Source: "notes.md", Page: 1},
			{ID: "c", Content: "c", Source: "guide.pdf", Page: 2},
		},
		[][]float32{{1, 0}, {1, 0}, {1, 0}},
	))

	require.NoError(t, m.DeleteBySource(context.Background(), "guide.pdf"))

	n, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Re-added chunks sort after the survivor on equal similarity.
	require.NoError(t, m.AddChunks(context.Background(),
		[]schema.DocumentChunk{{ID: "a2", Content: "a2", Source: "guide.pdf", Page: 1}},
		[][]float32{{1, 0}},
	))
	hits, err := m.SearchChunks(context.Background(), []float32{1, 0}, &SearchOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b", hits[0].Chunk.ID)
	assert.Equal(t, "a2", hits[1].Chunk.ID)
}

func TestCount(t *testing.T) {
	m := NewMemoryProvider(2)
	seed(t, m, map[string][]float32{"a": {1, 0}, "b": {0, 1}}, []string{"a", "b"})
	n, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
