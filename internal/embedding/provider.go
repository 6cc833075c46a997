// Package embedding turns chunk and question text into vectors through a pluggable provider.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/siteqa/internal/logging"
)

const (
	// MaxBatchSize is the most texts sent to a provider in one call.
	MaxBatchSize = 100
	// DefaultConcurrency is how many batches may be in flight at once.
	DefaultConcurrency = 4
)

// Provider embeds a batch of texts. It returns one vector per input, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ProviderError wraps a failed or malformed provider response.
type ProviderError struct {
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("embedding provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("embedding provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Batcher splits texts into provider-sized batches and reassembles the results in order.
type Batcher struct {
	provider    Provider
	batchSize   int
	concurrency int
}

// BatcherOption configures a Batcher.
type BatcherOption func(*Batcher)

// WithBatchSize sets the batch size. Values outside 1..MaxBatchSize are ignored.
func WithBatchSize(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 && n <= MaxBatchSize {
			b.batchSize = n
		}
	}
}

// WithConcurrency sets how many batches run at once.
func WithConcurrency(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatcher creates a batcher around provider.
func NewBatcher(provider Provider, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		provider:    provider,
		batchSize:   MaxBatchSize,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Embed embeds every non-blank text, trimmed, and returns the vectors in the order of those texts.
// Blank texts are skipped, so the result can be shorter than texts.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	inputs := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			inputs = append(inputs, t)
		}
	}
	if len(inputs) == 0 {
		logging.Warnf("[EMBED] No non-empty texts to embed")
		return [][]float32{}, nil
	}

	numBatches := (len(inputs) + b.batchSize - 1) / b.batchSize
	logging.Infof("[EMBED] Generating embeddings for %d texts in %d batches", len(inputs), numBatches)

	out := make([][]float32, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i := 0; i < numBatches; i++ {
		start := i * b.batchSize
		end := min(start+b.batchSize, len(inputs))
		batchNum := i + 1

		g.Go(func() error {
			vectors, err := b.provider.Embed(gctx, inputs[start:end])
			if err != nil {
				return &ProviderError{Message: fmt.Sprintf("batch %d/%d failed", batchNum, numBatches), Cause: err}
			}
			if len(vectors) != end-start {
				return &ProviderError{Message: fmt.Sprintf("batch %d/%d returned %d vectors for %d texts", batchNum, numBatches, len(vectors), end-start)}
			}
			copy(out[start:end], vectors)
			logging.Debugf("[EMBED] Finished batch %d/%d", batchNum, numBatches)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Infof("[EMBED] Generated %d embeddings", len(out))
	return out, nil
}
