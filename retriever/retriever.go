package retriever

import (
	"context"

	"github.com/frauddesk/fraudqa/common/logger"
	"github.com/frauddesk/fraudqa/embedding"
	"github.com/frauddesk/fraudqa/schema"
	"github.com/frauddesk/fraudqa/vectordb"
)

// Retriever produces ranked document passages for a question. Each call is
// independent: no cursor state survives between calls, and an empty result
// is valid evidence ("no supporting text"), not an error.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]schema.RetrievedPassage, error)
}

// VectorRetriever embeds the question with the same embedding model used
// to build the index and runs a nearest-neighbor search over it.
type VectorRetriever struct {
	Embed embedding.Provider
	Store vectordb.VectorStoreProvider
	TopK  int
	// Threshold is the minimum-similarity floor; hits below it are dropped.
	Threshold float64
}

func (r *VectorRetriever) Retrieve(ctx context.Context, question string, k int) ([]schema.RetrievedPassage, error) {
	if k <= 0 {
		if r.TopK > 0 {
			k = r.TopK
		} else {
			k = 5
		}
	}

	vec, err := r.Embed.GetEmbedding(ctx, question)
	if err != nil {
		return nil, schema.NewFailure(schema.FailRetrieval, "embed question", err)
	}

	opts := &vectordb.SearchOptions{TopK: k, Threshold: r.Threshold}
	passages, err := r.Store.SearchChunks(ctx, vec, opts)
	if err != nil {
		return nil, schema.NewFailure(schema.FailRetrieval, "index search", err)
	}

	logger.Infof("retriever: k=%d hits=%d", k, len(passages))
	return passages, nil
}
