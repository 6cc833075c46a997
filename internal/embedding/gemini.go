package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// DefaultGeminiModel is the embedding model used when none is configured.
	DefaultGeminiModel = "text-embedding-004"
	// GeminiDimension is the output size of DefaultGeminiModel.
	GeminiDimension = 768
)

// GeminiProvider embeds texts with the Gemini batch embedding API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider for model ("" selects DefaultGeminiModel).
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Embed sends texts as one batch request.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) > MaxBatchSize {
		return nil, &ProviderError{Message: fmt.Sprintf("batch of %d exceeds limit of %d", len(texts), MaxBatchSize)}
	}

	em := p.client.EmbeddingModel(p.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, &ProviderError{Message: "batch embed request failed", Cause: err}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &ProviderError{Message: fmt.Sprintf("got %d embeddings for %d texts", len(resp.Embeddings), len(texts))}
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, &ProviderError{Message: fmt.Sprintf("empty embedding at position %d", i)}
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
