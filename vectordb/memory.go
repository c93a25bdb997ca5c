package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/frauddesk/fraudqa/schema"
)

// MemoryProvider keeps the index in process memory. It backs tests and
// single-node runs where a Milvus deployment would be overkill.
type MemoryProvider struct {
	mu   sync.RWMutex
	dim  int
	rows []memoryRow
	next int // monotonic seq counter, never reused after deletes
}

type memoryRow struct {
	chunk  schema.DocumentChunk
	vector []float32
	seq    int // insertion order, used for deterministic tie-breaking
}

// NewMemoryProvider creates an in-memory vector store for dim-sized vectors.
func NewMemoryProvider(dim int) *MemoryProvider {
	return &MemoryProvider{dim: dim}
}

func (m *MemoryProvider) AddChunks(_ context.Context, chunks []schema.DocumentChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range chunks {
		if m.dim > 0 && len(vectors[i]) != m.dim {
			return fmt.Errorf("vector dimension mismatch for chunk %s: want %d, got %d", c.ID, m.dim, len(vectors[i]))
		}
		m.rows = append(m.rows, memoryRow{chunk: c, vector: vectors[i], seq: m.next})
		m.next++
	}
	return nil
}

func (m *MemoryProvider) DeleteBySource(_ context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.chunk.Source != source {
			kept = append(kept, r)
		}
	}
	m.rows = kept
	return nil
}

func (m *MemoryProvider) SearchChunks(_ context.Context, vector []float32, opts *SearchOptions) ([]schema.RetrievedPassage, error) {
	topK := 10
	threshold := 0.0
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		threshold = opts.Threshold
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		row   memoryRow
		score float64
	}
	hits := make([]scored, 0, len(m.rows))
	for _, r := range m.rows {
		s := cosine(vector, r.vector)
		if s < threshold {
			continue
		}
		hits = append(hits, scored{row: r, score: s})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		// first-indexed wins on equal similarity
		return hits[i].row.seq < hits[j].row.seq
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]schema.RetrievedPassage, len(hits))
	for i, h := range hits {
		out[i] = schema.RetrievedPassage{Chunk: h.row.chunk, Score: h.score, Rank: i + 1}
	}
	return out, nil
}

func (m *MemoryProvider) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.rows)), nil
}

func (m *MemoryProvider) Close() error { return nil }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
