package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

var hashTokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashingProvider is an offline provider that maps word tokens into a fixed number of buckets
// (the hashing trick) and L2-normalizes the result. Texts sharing words land near each other.
type HashingProvider struct {
	dimension int
}

// NewHashingProvider creates a hashing provider producing vectors of the given dimension.
func NewHashingProvider(dimension int) *HashingProvider {
	if dimension <= 0 {
		dimension = GeminiDimension
	}
	return &HashingProvider{dimension: dimension}
}

// Dimension returns the vector length.
func (p *HashingProvider) Dimension() int {
	return p.dimension
}

// Embed hashes every text. It never fails unless ctx is done.
func (p *HashingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = p.vector(t)
	}
	return vectors, nil
}

func (p *HashingProvider) vector(text string) []float32 {
	v := make([]float32, p.dimension)
	for _, tok := range hashTokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(p.dimension))
		// the top bit picks the sign so collisions tend to cancel
		if sum>>63 == 1 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}
