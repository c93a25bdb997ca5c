package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("found %d configuration error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Message))
	}
	return b.String()
}

// Validate validates the complete configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateLLM()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateVectorDB()...)
	errs = append(errs, c.validateStore()...)
	errs = append(errs, c.validateRetrieval()...)
	errs = append(errs, c.validatePipeline()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateLLM() ValidationErrors {
	var errs ValidationErrors

	if c.LLM.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: "llm provider is required",
		})
	}
	if c.LLM.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.model",
			Message: "llm model is required",
		})
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "llm.temperature",
			Message: fmt.Sprintf("llm temperature must be in [0, 2], got %.2f", c.LLM.Temperature),
		})
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "llm.max_tokens",
			Message: fmt.Sprintf("llm max_tokens must be non-negative, got %d", c.LLM.MaxTokens),
		})
	}

	return errs
}

func (c *Config) validateEmbedding() ValidationErrors {
	var errs ValidationErrors

	if c.Embedding.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: "embedding provider is required",
		})
	}
	if c.Embedding.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.model",
			Message: "embedding model is required",
		})
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, ValidationError{
			Field:   "embedding.dimensions",
			Message: fmt.Sprintf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions),
		})
	}
	// Validate dimensions are reasonable (typical range: 128-4096)
	if c.Embedding.Dimensions > 0 && (c.Embedding.Dimensions < 128 || c.Embedding.Dimensions > 4096) {
		errs = append(errs, ValidationError{
			Field:   "embedding.dimensions",
			Message: fmt.Sprintf("embedding dimensions %d is outside typical range [128, 4096]", c.Embedding.Dimensions),
		})
	}

	return errs
}

func (c *Config) validateVectorDB() ValidationErrors {
	var errs ValidationErrors

	if c.VectorDB.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "vectordb.provider",
			Message: "vectordb provider is required",
		})
	}

	switch strings.ToLower(c.VectorDB.Provider) {
	case "milvus":
		if c.VectorDB.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.host",
				Message: "vectordb host is required for milvus provider",
			})
		}
		if c.VectorDB.Collection == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.collection",
				Message: "collection name is required for milvus provider",
			})
		}
	case "memory":
		// no settings required
	case "":
		// already flagged above
	default:
		errs = append(errs, ValidationError{
			Field:   "vectordb.provider",
			Message: fmt.Sprintf("unsupported vectordb provider: %s (available: milvus, memory)", c.VectorDB.Provider),
		})
	}

	return errs
}

func (c *Config) validateStore() ValidationErrors {
	var errs ValidationErrors

	if c.Store.Driver == "" {
		errs = append(errs, ValidationError{
			Field:   "store.driver",
			Message: "store driver is required",
		})
	}
	if c.Store.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "store.path",
			Message: "store path is required",
		})
	}
	if c.Store.DefaultLimit <= 0 {
		errs = append(errs, ValidationError{
			Field:   "store.default_limit",
			Message: fmt.Sprintf("store default_limit must be positive, got %d", c.Store.DefaultLimit),
		})
	}
	if c.Store.MaxRows <= 0 {
		errs = append(errs, ValidationError{
			Field:   "store.max_rows",
			Message: fmt.Sprintf("store max_rows must be positive, got %d", c.Store.MaxRows),
		})
	}
	if c.Store.DefaultLimit > c.Store.MaxRows {
		errs = append(errs, ValidationError{
			Field:   "store.default_limit",
			Message: fmt.Sprintf("store default_limit (%d) must not exceed max_rows (%d)", c.Store.DefaultLimit, c.Store.MaxRows),
		})
	}

	return errs
}

func (c *Config) validateRetrieval() ValidationErrors {
	var errs ValidationErrors

	if c.Retrieval.TopK <= 0 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.top_k",
			Message: fmt.Sprintf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK),
		})
	}
	if c.Retrieval.TopK > 100 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.top_k",
			Message: fmt.Sprintf("retrieval.top_k %d is too large (max recommended: 100)", c.Retrieval.TopK),
		})
	}
	if c.Retrieval.Threshold < 0 || c.Retrieval.Threshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.threshold",
			Message: fmt.Sprintf("retrieval.threshold must be in [0, 1], got %.2f", c.Retrieval.Threshold),
		})
	}

	return errs
}

func (c *Config) validatePipeline() ValidationErrors {
	var errs ValidationErrors

	check := func(field string, v int) {
		if v < 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s must be non-negative, got %d", field, v),
			})
		}
	}
	check("pipeline.route_timeout_ms", c.Pipeline.RouteTimeoutMs)
	check("pipeline.analyze_timeout_ms", c.Pipeline.AnalyzeTimeoutMs)
	check("pipeline.retrieve_timeout_ms", c.Pipeline.RetrieveTimeoutMs)
	check("pipeline.compose_timeout_ms", c.Pipeline.ComposeTimeoutMs)
	check("pipeline.evidence_token_budget", c.Pipeline.EvidenceTokenBudget)

	return errs
}
