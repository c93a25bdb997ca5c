package vectordb

import (
	"context"
	"fmt"
	"strings"

	"github.com/frauddesk/fraudqa/config"
	"github.com/frauddesk/fraudqa/schema"
)

// SearchOptions bound a nearest-neighbor search.
type SearchOptions struct {
	TopK int
	// Threshold is the minimum similarity a hit must clear. Hits below it
	// are dropped; an empty result is valid, not an error.
	Threshold float64
}

// VectorStoreProvider is the document-index backend. Chunks are written
// once at ingestion time and read-only afterwards.
type VectorStoreProvider interface {
	// AddChunks stores chunks with their embedding vectors. vectors[i]
	// belongs to chunks[i].
	AddChunks(ctx context.Context, chunks []schema.DocumentChunk, vectors [][]float32) error

	// SearchChunks returns the nearest chunks ordered by descending
	// similarity, ties broken by insertion order (first-indexed wins).
	SearchChunks(ctx context.Context, vector []float32, opts *SearchOptions) ([]schema.RetrievedPassage, error)

	// DeleteBySource removes every chunk ingested from the given source
	// document, so a changed file can be re-indexed without duplicates.
	DeleteBySource(ctx context.Context, source string) error

	// Count reports how many chunks the index holds.
	Count(ctx context.Context) (int64, error)

	Close() error
}

// NewVectorDBProvider creates a vector store provider based on configuration
func NewVectorDBProvider(cfg *config.VectorDBConfig, dim int) (VectorStoreProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "milvus":
		return newMilvusProvider(cfg, dim)
	case "memory":
		return NewMemoryProvider(dim), nil
	default:
		return nil, fmt.Errorf("unsupported vectordb provider: %s", cfg.Provider)
	}
}
