package vectordb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frauddesk/fraudqa/schema"
)

func TestRankSearchHitsTieBreaksByInsertionOrder(t *testing.T) {
	hits := []searchHit{
		{chunk: schema.DocumentChunk{ID: "later"}, score: 0.8, seq: 7},
		{chunk: schema.DocumentChunk{ID: "best"}, score: 0.9, seq: 5},
		{chunk: schema.DocumentChunk{ID: "earlier"}, score: 0.8, seq: 2},
	}

	out := rankSearchHits(hits)
	require.Len(t, out, 3)
	assert.Equal(t, "best", out[0].Chunk.ID)
	assert.Equal(t, "earlier", out[1].Chunk.ID)
	assert.Equal(t, "later", out[2].Chunk.ID)
	for i, p := range out {
		assert.Equal(t, i+1, p.Rank)
	}
}

func TestRankSearchHitsEmpty(t *testing.T) {
	assert.Empty(t, rankSearchHits(nil))
}
