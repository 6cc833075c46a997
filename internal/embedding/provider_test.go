package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoProvider encodes each text's position marker into a one-element vector and records batch sizes.
type echoProvider struct {
	mu      sync.Mutex
	batches []int
	failOn  int32
	calls   atomic.Int32
	short   bool
}

func (p *echoProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	call := p.calls.Add(1)
	if p.failOn != 0 && call == p.failOn {
		return nil, errors.New("rate limited")
	}
	p.mu.Lock()
	p.batches = append(p.batches, len(texts))
	p.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		var n int
		_, _ = fmt.Sscanf(t, "text-%d", &n)
		out[i] = []float32{float32(n)}
	}
	if p.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func numbered(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}
	return texts
}

func TestBatcher_SplitsIntoBatchesAndKeepsOrder(t *testing.T) {
	provider := &echoProvider{}
	vectors, err := NewBatcher(provider).Embed(context.Background(), numbered(250))
	require.NoError(t, err)

	require.Len(t, vectors, 250)
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0])
	}
	assert.ElementsMatch(t, []int{100, 100, 50}, provider.batches)
}

func TestBatcher_FiltersBlankTexts(t *testing.T) {
	provider := &echoProvider{}
	vectors, err := NewBatcher(provider).Embed(context.Background(), []string{"  text-1 ", "", "   ", "text-3"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1}, {3}}, vectors)
	assert.Equal(t, []int{2}, provider.batches)
}

func TestBatcher_AllBlankSkipsProvider(t *testing.T) {
	provider := &echoProvider{}
	vectors, err := NewBatcher(provider).Embed(context.Background(), []string{"", " \n"})
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Equal(t, int32(0), provider.calls.Load())
}

func TestBatcher_ProviderErrorIsWrapped(t *testing.T) {
	provider := &echoProvider{failOn: 2}
	_, err := NewBatcher(provider, WithBatchSize(10), WithConcurrency(1)).Embed(context.Background(), numbered(30))

	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestBatcher_CountMismatchIsAnError(t *testing.T) {
	_, err := NewBatcher(&echoProvider{short: true}).Embed(context.Background(), numbered(3))
	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, err.Error(), "returned 2 vectors for 3 texts")
}

func TestBatcher_OptionBounds(t *testing.T) {
	b := NewBatcher(&echoProvider{}, WithBatchSize(500), WithConcurrency(0))
	assert.Equal(t, MaxBatchSize, b.batchSize)
	assert.Equal(t, DefaultConcurrency, b.concurrency)

	b = NewBatcher(&echoProvider{}, WithBatchSize(7), WithConcurrency(2))
	assert.Equal(t, 7, b.batchSize)
	assert.Equal(t, 2, b.concurrency)
}

func TestHashingProvider(t *testing.T) {
	p := NewHashingProvider(64)
	vectors, err := p.Embed(context.Background(), []string{"Opening hours", "opening HOURS!", "pricing plans", ""})
	require.NoError(t, err)
	require.Len(t, vectors, 4)

	for _, v := range vectors {
		assert.Len(t, v, 64)
	}
	assert.Equal(t, vectors[0], vectors[1], "tokenization is case and punctuation insensitive")
	assert.NotEqual(t, vectors[0], vectors[2])
	assert.Equal(t, make([]float32, 64), vectors[3])

	var norm float64
	for _, x := range vectors[0] {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashingProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashingProvider(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGeminiProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "")
	assert.Error(t, err)
}
