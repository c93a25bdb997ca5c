package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/frauddesk/fraudqa/common/httpx"
	"github.com/frauddesk/fraudqa/config"
)

// Provider is the single request/response inference surface used by the
// router, the synthesizer and the composer. The endpoint is treated as an
// untrusted black box: callers validate every output before acting on it.
type Provider interface {
	// GenerateCompletion sends one system+user prompt pair and returns the
	// generated text.
	GenerateCompletion(ctx context.Context, system, user string) (string, error)
	GetProviderType() string
}

// NewLLMProvider creates an LLM provider based on configuration
func NewLLMProvider(cfg config.LLMConfig, hc *httpx.Client) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIProvider(cfg, hc), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
