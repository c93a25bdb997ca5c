package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/frauddesk/fraudqa/common/httpx"
	"github.com/frauddesk/fraudqa/config"
)

// Provider turns text into fixed-dimension vectors. The same provider (and
// model) must be used at ingestion time and at query time: similarity
// scores between vectors from different embedding spaces are meaningless.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// NewEmbeddingProvider creates an embedding provider based on configuration
func NewEmbeddingProvider(cfg config.EmbeddingConfig, hc *httpx.Client) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIEmbedding(cfg, hc), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
