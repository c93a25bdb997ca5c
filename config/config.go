package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the fraudqa service.
type Config struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	VectorDB  VectorDBConfig  `json:"vectordb" yaml:"vectordb"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	// HTTP tunes the shared outbound HTTP client. If nil, defaults apply.
	HTTP *HTTPClientConfig `json:"http,omitempty" yaml:"http,omitempty"`
}

// LLMConfig defines configuration for the chat-completion endpoint
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // Available options: openai
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// EmbeddingConfig defines configuration for the embedding model. The model
// and dimensions must match what was used to build the document index;
// mismatched embedding spaces invalidate every similarity score.
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: openai
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// VectorDBConfig defines configuration for the document index backend
type VectorDBConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: milvus, memory
	Host       string `json:"host,omitempty" yaml:"host,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
}

// StoreConfig defines the read-only transaction store.
type StoreConfig struct {
	Driver         string `json:"driver" yaml:"driver"` // Available options: sqlite3
	Path           string `json:"path" yaml:"path"`
	Table          string `json:"table,omitempty" yaml:"table,omitempty"`
	DefaultLimit   int    `json:"default_limit,omitempty" yaml:"default_limit,omitempty"`
	MaxRows        int    `json:"max_rows,omitempty" yaml:"max_rows,omitempty"`
	QueryTimeoutMs int    `json:"query_timeout_ms,omitempty" yaml:"query_timeout_ms,omitempty"`
}

// RetrievalConfig tunes the document-evidence branch.
type RetrievalConfig struct {
	TopK      int     `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"` // minimum-similarity floor
}

// PipelineConfig bounds each phase of the controller. A phase that exceeds
// its budget converts into a typed failure instead of blocking the request.
type PipelineConfig struct {
	RouteTimeoutMs    int `json:"route_timeout_ms,omitempty" yaml:"route_timeout_ms,omitempty"`
	AnalyzeTimeoutMs  int `json:"analyze_timeout_ms,omitempty" yaml:"analyze_timeout_ms,omitempty"`
	RetrieveTimeoutMs int `json:"retrieve_timeout_ms,omitempty" yaml:"retrieve_timeout_ms,omitempty"`
	ComposeTimeoutMs  int `json:"compose_timeout_ms,omitempty" yaml:"compose_timeout_ms,omitempty"`
	// EvidenceTokenBudget caps the evidence text placed into the composer
	// prompt, measured with tiktoken.
	EvidenceTokenBudget int `json:"evidence_token_budget,omitempty" yaml:"evidence_token_budget,omitempty"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// HTTPClientConfig tunes the shared resilient HTTP client.
type HTTPClientConfig struct {
	TimeoutMs              int      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry                  int      `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs           int      `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs           int      `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	HostAllowlist          []string `json:"host_allowlist,omitempty" yaml:"host_allowlist,omitempty"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int      `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// Default returns a configuration with every tunable at its default.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			Temperature: 0,
			MaxTokens:   2048,
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		VectorDB: VectorDBConfig{
			Provider:   "memory",
			Collection: "fraud_documents",
		},
		Store: StoreConfig{
			Driver:         "sqlite3",
			Path:           "data/processed/fraud.db",
			Table:          "transactions",
			DefaultLimit:   50,
			MaxRows:        200,
			QueryTimeoutMs: 5000,
		},
		Retrieval: RetrievalConfig{
			TopK:      5,
			Threshold: 0.25,
		},
		Pipeline: PipelineConfig{
			RouteTimeoutMs:      15000,
			AnalyzeTimeoutMs:    45000,
			RetrieveTimeoutMs:   15000,
			ComposeTimeoutMs:    60000,
			EvidenceTokenBudget: 6000,
		},
		Server: ServerConfig{Addr: ":8085"},
	}
}

// Load reads a YAML config file, overlays environment variables for
// secrets and endpoints, and validates the result. path may be empty, in
// which case only defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays secrets and endpoint addresses from the environment so
// that keys never need to live in the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("FRAUDQA_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("FRAUDQA_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("FRAUDQA_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("FRAUDQA_EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("FRAUDQA_EMBEDDING_BASE_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("FRAUDQA_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}
}
