package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/siteqa/internal/chunking"
	"github.com/jonathan/siteqa/internal/config"
	"github.com/jonathan/siteqa/internal/crawling"
	"github.com/jonathan/siteqa/internal/db"
	"github.com/jonathan/siteqa/internal/embedding"
	"github.com/jonathan/siteqa/internal/fetch"
	"github.com/jonathan/siteqa/internal/llm"
	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/pipeline"
	"github.com/jonathan/siteqa/internal/vectorindex"
)

// needs selects which optional collaborators a command requires.
type needs struct {
	embedder bool
	answerer bool
}

// app is a pipeline service plus the resources to release when the command ends.
type app struct {
	service *pipeline.Service
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Warnf("[CLI] Cleanup failed: %v", err)
		}
	}
}

// newApp builds the service described by cfg and restores persisted state into it.
func newApp(ctx context.Context, cfg *config.Config, n needs) (*app, error) {
	a := &app{}

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.Timeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	fetchOpts.UseBrowser = !cfg.StaticOnly
	if cfg.UserAgent != "" {
		fetchOpts.UserAgent = cfg.UserAgent
	}
	fetcher := fetch.NewFetcher(fetchOpts, nil)

	crawler := crawling.New(fetcher,
		crawling.WithDelay(time.Duration(cfg.RateLimitMS)*time.Millisecond),
		crawling.WithFetchTimeout(2*fetchOpts.Timeout),
	)

	tokenizer, err := chunking.NewTiktokenTokenizer(cfg.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	chunker := chunking.New(tokenizer,
		chunking.WithMaxTokens(cfg.MaxTokens),
		chunking.WithOverlap(cfg.OverlapTokens),
	)

	opts := pipeline.Options{
		Crawler:     crawler,
		Chunker:     chunker,
		Index:       vectorindex.New(cfg.Dimension),
		IndexPrefix: cfg.IndexPrefix,
		TopK:        cfg.TopK,
	}

	if n.embedder {
		provider, closeFn, err := newEmbeddingProvider(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		if closeFn != nil {
			a.closers = append(a.closers, closeFn)
		}
		opts.Embedder = embedding.NewBatcher(provider)
	}

	if n.answerer {
		if cfg.APIKey == "" {
			a.Close()
			return nil, fmt.Errorf("API key required: set --api-key flag or GEMINI_API_KEY environment variable")
		}
		llmConfig := llm.DefaultConfig()
		if cfg.AnswerModel != "" {
			llmConfig = llmConfig.WithModel(llm.TierStandard, cfg.AnswerModel)
		}
		client, err := llm.NewClient(ctx, llmConfig, cfg.APIKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		opts.Answerer = llm.NewAnswerGenerator(client)
	}

	if cfg.DatabaseURL != "" {
		archive, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logging.Warnf("[CLI] Failed to open crawl archive: %v", err)
			logging.Warnf("[CLI] Continuing without crawl archive...")
		} else {
			a.closers = append(a.closers, archive.Close)
			opts.Archive = archive
		}
	}

	service, err := pipeline.New(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	service.Open(ctx)

	a.service = service
	return a, nil
}

func newEmbeddingProvider(ctx context.Context, cfg *config.Config) (embedding.Provider, func() error, error) {
	switch cfg.EmbeddingProvider {
	case "hashing":
		return embedding.NewHashingProvider(cfg.Dimension), nil, nil
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, nil, fmt.Errorf("API key required: set --api-key flag or GEMINI_API_KEY environment variable")
		}
		if cfg.Dimension != embedding.GeminiDimension && cfg.EmbeddingModel == embedding.DefaultGeminiModel {
			logging.Warnf("[CLI] %s produces %d-dimensional vectors but the index is configured for %d",
				cfg.EmbeddingModel, embedding.GeminiDimension, cfg.Dimension)
		}
		provider, err := embedding.NewGeminiProvider(ctx, cfg.APIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		return provider, provider.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}
