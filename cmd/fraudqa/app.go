package main

import (
	"fmt"

	"github.com/frauddesk/fraudqa/common/httpx"
	"github.com/frauddesk/fraudqa/composer"
	"github.com/frauddesk/fraudqa/config"
	"github.com/frauddesk/fraudqa/embedding"
	"github.com/frauddesk/fraudqa/llm"
	"github.com/frauddesk/fraudqa/pipeline"
	"github.com/frauddesk/fraudqa/retriever"
	"github.com/frauddesk/fraudqa/router"
	"github.com/frauddesk/fraudqa/store"
	"github.com/frauddesk/fraudqa/synthesizer"
	"github.com/frauddesk/fraudqa/vectordb"
)

// app holds the wired pipeline and the handles that need closing.
type app struct {
	cfg        *config.Config
	controller *pipeline.Controller
	retriever  *retriever.VectorRetriever
	embed      embedding.Provider
	vec        vectordb.VectorStoreProvider
	store      *store.Store
}

// buildApp loads configuration and wires every phase of the pipeline.
func buildApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	hc := httpx.NewFromConfig(cfg.HTTP)

	llmProvider, err := llm.NewLLMProvider(cfg.LLM, hc)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	embedProvider, err := embedding.NewEmbeddingProvider(cfg.Embedding, hc)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	vec, err := vectordb.NewVectorDBProvider(&cfg.VectorDB, embedProvider.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open transaction store: %w", err)
	}

	retr := &retriever.VectorRetriever{
		Embed:     embedProvider,
		Store:     vec,
		TopK:      cfg.Retrieval.TopK,
		Threshold: cfg.Retrieval.Threshold,
	}

	controller := pipeline.New(
		router.NewLLMRouter(llmProvider),
		synthesizer.New(llmProvider, st, cfg.Store.DefaultLimit),
		retr,
		composer.New(llmProvider, cfg.Pipeline.EvidenceTokenBudget),
		cfg.Pipeline,
		cfg.Retrieval.TopK,
	)

	return &app{
		cfg:        cfg,
		controller: controller,
		retriever:  retr,
		embed:      embedProvider,
		vec:        vec,
		store:      st,
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.vec != nil {
		a.vec.Close()
	}
}
