package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frauddesk/fraudqa/vectordb"
)

type fakeEmbedder struct {
	batches int
}

func (f *fakeEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.GetEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) GetEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.batches++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		// Deterministic toy vector keyed on length and first byte.
		v := []float32{float32(len(t)), 0, 1}
		if len(t) > 0 {
			v[1] = float32(t[0])
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

func TestIndexDocuments(t *testing.T) {
	store := vectordb.NewMemoryProvider(3)

	embed := &fakeEmbedder{}
	ix := NewIndexer(embed, store)
	ix.BatchSize = 2
	ix.Splitter = NewSplitter(120, 20)

	docs := []Document{
		{Source: "Bhatla.pdf", Page: 3, Content: strings.Repeat("Card-not-present fraud grows with online volume. ", 8)},
		{Source: "notes.md", Page: 1, Content: "Chargebacks shift liability."},
	}

	n, err := ix.IndexDocuments(context.Background(), docs)
	require.NoError(t, err)
	assert.Greater(t, n, 2)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)
	// BatchSize 2 forces multiple embedding calls.
	assert.Greater(t, embed.batches, 1)
}

func TestReindexFileReplacesChunks(t *testing.T) {
	store := vectordb.NewMemoryProvider(3)
	ix := NewIndexer(&fakeEmbedder{}, store)
	ix.Splitter = NewSplitter(120, 20)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("Skimming clones magnetic stripes at the terminal. ", 6)), 0o644))

	first, err := ix.ReindexFile(context.Background(), path)
	require.NoError(t, err)
	require.Greater(t, first, 1)

	// Re-indexing the unchanged file must not grow the index.
	again, err := ix.ReindexFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(first), count)

	// A shrunken rewrite drops the stale chunks too.
	require.NoError(t, os.WriteFile(path, []byte("Skimming clones magnetic stripes."), 0o644))
	n, err := ix.ReindexFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	count, err = store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIndexDocumentsEmpty(t *testing.T) {
	store := vectordb.NewMemoryProvider(3)

	ix := NewIndexer(&fakeEmbedder{}, store)
	n, err := ix.IndexDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
