package vectorindex

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/types"
)

// DefaultDimension matches the Gemini text-embedding-004 output size.
const DefaultDimension = 768

// Filter restricts search candidates. Empty fields match everything.
type Filter struct {
	ContentType string
	Domain      string
}

func (f *Filter) matches(c *types.Chunk) bool {
	if f == nil {
		return true
	}
	if f.ContentType != "" && c.ContentType != f.ContentType {
		return false
	}
	if f.Domain != "" && c.Metadata.Domain != f.Domain && c.Metadata.SourceDomain != f.Domain {
		return false
	}
	return true
}

// Index pairs a flat L2 matrix with the chunks its rows belong to.
// Mutations take the write lock; searches share the read lock.
type Index struct {
	mu        sync.RWMutex
	dimension int
	matrix    *flatL2
	chunks    []types.Chunk
}

// New creates an empty index. A non-positive dimension selects DefaultDimension.
func New(dimension int) *Index {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Index{dimension: dimension, chunks: []types.Chunk{}}
}

// Dimension returns the embedding length the index accepts.
func (ix *Index) Dimension() int {
	return ix.dimension
}

// Size returns the number of stored chunks.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// IsEmpty reports whether the index holds no chunks.
func (ix *Index) IsEmpty() bool {
	return ix.Size() == 0
}

// Insert appends chunks with their embeddings. Counts and dimensions are checked before anything changes.
// Each stored chunk keeps its own copy of its embedding.
func (ix *Index) Insert(embeddings [][]float32, chunks []types.Chunk) error {
	if err := ix.validate(embeddings, chunks); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		logging.Warnf("[INDEX] No embeddings to add")
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.insertLocked(embeddings, chunks)

	logging.Infof("[INDEX] Added %d embeddings. Total: %d", len(embeddings), len(ix.chunks))
	return nil
}

// ReplaceDomain removes domain's chunks (as DeleteByDomain does) and inserts the new ones under a
// single write lock, so searches never observe the domain half replaced. Nothing changes if the
// new embeddings are invalid.
func (ix *Index) ReplaceDomain(domain string, embeddings [][]float32, chunks []types.Chunk) (int, error) {
	if err := ix.validate(embeddings, chunks); err != nil {
		return 0, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	removed := 0
	if domain != "" && len(ix.chunks) > 0 {
		kept := make([]types.Chunk, 0, len(ix.chunks))
		for _, c := range ix.chunks {
			if !belongsTo(&c, domain) {
				kept = append(kept, c)
			}
		}
		removed = len(ix.chunks) - len(kept)
		if removed > 0 {
			ix.rebuild(kept)
		}
	}
	if len(embeddings) > 0 {
		ix.insertLocked(embeddings, chunks)
	}

	logging.Infof("[INDEX] Replaced %d chunks for domain %q with %d. Total: %d", removed, domain, len(chunks), len(ix.chunks))
	return removed, nil
}

func (ix *Index) validate(embeddings [][]float32, chunks []types.Chunk) error {
	if len(embeddings) != len(chunks) {
		return &ValidationError{Message: fmt.Sprintf("got %d embeddings for %d chunks", len(embeddings), len(chunks))}
	}
	for i, e := range embeddings {
		if len(e) != ix.dimension {
			return &ValidationError{Message: fmt.Sprintf("embedding %d has dimension %d, want %d", i, len(e), ix.dimension)}
		}
	}
	return nil
}

// insertLocked appends validated rows. Callers hold the write lock.
func (ix *Index) insertLocked(embeddings [][]float32, chunks []types.Chunk) {
	if ix.matrix == nil {
		ix.matrix = newFlatL2(ix.dimension)
		logging.Infof("[INDEX] Created flat L2 index with dimension %d", ix.dimension)
	}

	rows := make([][]float32, len(embeddings))
	for i := range chunks {
		vec := append([]float32(nil), embeddings[i]...)
		rows[i] = vec
		chunk := chunks[i]
		chunk.Embedding = vec
		ix.chunks = append(ix.chunks, chunk)
	}
	ix.matrix.add(rows)
}

type candidate struct {
	pos      int
	distance float64
}

// Search returns up to topK chunks closest to query by squared L2 distance, nearest first.
// Equal distances keep insertion order. A filter narrows the candidates before topK is applied.
// An empty index returns no results for any query; otherwise the query dimension must match.
func (ix *Index) Search(query []float32, topK int, filter *Filter) ([]types.SearchResult, error) {
	if topK <= 0 {
		return nil, &ValidationError{Message: fmt.Sprintf("top_k must be positive, got %d", topK)}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.matrix == nil || len(ix.chunks) == 0 {
		logging.Warnf("[INDEX] Search on empty index")
		return []types.SearchResult{}, nil
	}
	if len(query) != ix.dimension {
		return nil, &ValidationError{Message: fmt.Sprintf("query has dimension %d, want %d", len(query), ix.dimension)}
	}

	candidates := make([]candidate, 0, len(ix.chunks))
	for i := range ix.chunks {
		if !filter.matches(&ix.chunks[i]) {
			continue
		}
		candidates = append(candidates, candidate{pos: i, distance: ix.matrix.distance(i, query)})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].distance < candidates[b].distance
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]types.SearchResult, len(candidates))
	for rank, c := range candidates {
		results[rank] = types.SearchResult{
			Chunk:           cloneChunk(ix.chunks[c.pos]),
			SimilarityScore: c.distance,
			Rank:            rank + 1,
		}
	}

	logging.Debugf("[INDEX] Found %d similar chunks", len(results))
	return results, nil
}

// DeleteByDomain removes every chunk whose domain or source domain equals domain, or whose URL contains it,
// then rebuilds the matrix from the survivors. It returns the number of chunks removed by the match.
func (ix *Index) DeleteByDomain(domain string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if domain == "" || len(ix.chunks) == 0 {
		return 0
	}

	kept := make([]types.Chunk, 0, len(ix.chunks))
	for _, c := range ix.chunks {
		if !belongsTo(&c, domain) {
			kept = append(kept, c)
		}
	}
	removed := len(ix.chunks) - len(kept)
	if removed == 0 {
		logging.Infof("[INDEX] No chunks found for domain %q", domain)
		return 0
	}

	ix.rebuild(kept)
	logging.Infof("[INDEX] Deleted %d chunks for domain %q. Remaining: %d", removed, domain, len(ix.chunks))
	return removed
}

func belongsTo(c *types.Chunk, domain string) bool {
	return c.Metadata.Domain == domain ||
		c.Metadata.SourceDomain == domain ||
		(c.URL != "" && strings.Contains(c.URL, domain))
}

// rebuild replaces the matrix with one built from chunks, dropping chunks that lost their embedding.
// Callers hold the write lock.
func (ix *Index) rebuild(chunks []types.Chunk) {
	valid := make([]types.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == ix.dimension {
			valid = append(valid, c)
		}
	}
	if len(valid) < len(chunks) {
		logging.Warnf("[INDEX] %d chunks are missing a usable embedding and were dropped during rebuild", len(chunks)-len(valid))
	}

	if len(valid) == 0 {
		ix.matrix = nil
		ix.chunks = []types.Chunk{}
		return
	}

	matrix := newFlatL2(ix.dimension)
	rows := make([][]float32, len(valid))
	for i := range valid {
		rows[i] = valid[i].Embedding
	}
	matrix.add(rows)

	ix.matrix = matrix
	ix.chunks = valid
}

// Clear removes everything from the index.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.matrix = nil
	ix.chunks = []types.Chunk{}
	logging.Infof("[INDEX] Cleared")
}

// Chunks returns a copy of the stored chunks in index order.
func (ix *Index) Chunks() []types.Chunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]types.Chunk, len(ix.chunks))
	for i, c := range ix.chunks {
		out[i] = cloneChunk(c)
	}
	return out
}

func cloneChunk(c types.Chunk) types.Chunk {
	c.Embedding = append([]float32(nil), c.Embedding...)
	c.Metadata.JSONKeys = append([]string(nil), c.Metadata.JSONKeys...)
	return c
}
