package vectorindex

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/siteqa/internal/types"
)

func chunkFor(domain, path string, id int) types.Chunk {
	return types.Chunk{
		Text:        fmt.Sprintf("%s%s #%d", domain, path, id),
		Tokens:      3,
		URL:         "https://" + domain + path,
		ChunkID:     id,
		ContentType: types.ContentTypeText,
		Metadata: types.ChunkMetadata{
			Domain:       domain,
			SourceDomain: domain,
			Title:        path,
			PageURL:      "https://" + domain + path,
		},
	}
}

func TestNew_DefaultDimension(t *testing.T) {
	assert.Equal(t, DefaultDimension, New(0).Dimension())
	assert.Equal(t, 3, New(3).Dimension())
	assert.True(t, New(3).IsEmpty())
}

func TestInsert_CountMismatch(t *testing.T) {
	ix := New(2)
	err := ix.Insert([][]float32{{1, 2}}, []types.Chunk{chunkFor("a.com", "/", 0), chunkFor("a.com", "/x", 0)})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 0, ix.Size())
}

func TestInsert_DimensionMismatchLeavesIndexUntouched(t *testing.T) {
	ix := New(2)
	require.NoError(t, ix.Insert([][]float32{{0, 0}}, []types.Chunk{chunkFor("a.com", "/", 0)}))

	err := ix.Insert(
		[][]float32{{1, 1}, {1, 1, 1}},
		[]types.Chunk{chunkFor("a.com", "/x", 0), chunkFor("a.com", "/y", 0)},
	)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 1, ix.Size())
	assert.Equal(t, 1, ix.matrix.rows())
}

func TestInsert_EmptyIsNoop(t *testing.T) {
	ix := New(2)
	assert.NoError(t, ix.Insert(nil, nil))
	assert.True(t, ix.IsEmpty())
	assert.Nil(t, ix.matrix)
}

func TestInsert_AttachesCopiedEmbeddings(t *testing.T) {
	ix := New(2)
	vec := []float32{1, 2}
	require.NoError(t, ix.Insert([][]float32{vec}, []types.Chunk{chunkFor("a.com", "/", 0)}))

	vec[0] = 99
	chunks := ix.Chunks()
	assert.Equal(t, []float32{1, 2}, chunks[0].Embedding)
}

func TestSearch_OrderedByDistance(t *testing.T) {
	ix := New(2)
	require.NoError(t, ix.Insert(
		[][]float32{{5, 5}, {1, 0}, {0, 0}, {3, 4}},
		[]types.Chunk{chunkFor("a.com", "/far", 0), chunkFor("a.com", "/near", 0), chunkFor("a.com", "/origin", 0), chunkFor("a.com", "/mid", 0)},
	))

	results, err := ix.Search([]float32{0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "/origin", results[0].Metadata.Title)
	assert.Equal(t, 0.0, results[0].SimilarityScore)
	assert.Equal(t, "/near", results[1].Metadata.Title)
	assert.Equal(t, 1.0, results[1].SimilarityScore)
	assert.Equal(t, "/mid", results[2].Metadata.Title)
	assert.Equal(t, 25.0, results[2].SimilarityScore)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	ix := New(1)
	require.NoError(t, ix.Insert(
		[][]float32{{1}, {-1}, {1}},
		[]types.Chunk{chunkFor("a.com", "/first", 0), chunkFor("a.com", "/second", 0), chunkFor("a.com", "/third", 0)},
	))

	results, err := ix.Search([]float32{0}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "/first", results[0].Metadata.Title)
	assert.Equal(t, "/second", results[1].Metadata.Title)
	assert.Equal(t, "/third", results[2].Metadata.Title)
}

func TestSearch_EmptyIndex(t *testing.T) {
	results, err := New(2).Search([]float32{0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmptyIndexIgnoresQueryDimension(t *testing.T) {
	results, err := New(2).Search([]float32{1, 2, 3}, 5, nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_ValidatesInput(t *testing.T) {
	ix := New(2)
	require.NoError(t, ix.Insert([][]float32{{1, 1}}, []types.Chunk{chunkFor("a.com", "/", 0)}))
	var vErr *ValidationError

	_, err := ix.Search([]float32{0}, 5, nil)
	assert.ErrorAs(t, err, &vErr)

	_, err = ix.Search([]float32{0, 0}, 0, nil)
	assert.ErrorAs(t, err, &vErr)
}

func TestSearch_Filters(t *testing.T) {
	ix := New(1)
	jsonChunk := chunkFor("b.com", "/api/x", 0)
	jsonChunk.ContentType = types.ContentTypeJSON
	require.NoError(t, ix.Insert(
		[][]float32{{0}, {1}, {2}},
		[]types.Chunk{chunkFor("a.com", "/", 0), jsonChunk, chunkFor("b.com", "/", 0)},
	))

	results, err := ix.Search([]float32{0}, 5, &Filter{Domain: "b.com"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "b.com", results[0].Metadata.Domain)

	results, err = ix.Search([]float32{0}, 5, &Filter{ContentType: types.ContentTypeJSON})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/api/x", results[0].Metadata.Title)

	results, err = ix.Search([]float32{0}, 1, &Filter{ContentType: types.ContentTypeText, Domain: "b.com"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://b.com/", results[0].URL)
}

func TestSearch_ResultsAreCopies(t *testing.T) {
	ix := New(1)
	require.NoError(t, ix.Insert([][]float32{{0}}, []types.Chunk{chunkFor("a.com", "/", 0)}))

	results, err := ix.Search([]float32{0}, 1, nil)
	require.NoError(t, err)
	results[0].Embedding[0] = 42

	again, err := ix.Search([]float32{0}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, float32(0), again[0].Embedding[0])
}

func TestSearch_PropertySortedAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const dim = 8
	ix := New(dim)

	for batch := 0; batch < 5; batch++ {
		n := 1 + rng.Intn(20)
		embeddings := make([][]float32, n)
		chunks := make([]types.Chunk, n)
		for i := range embeddings {
			embeddings[i] = randomVector(rng, dim)
			chunks[i] = chunkFor(fmt.Sprintf("d%d.com", rng.Intn(3)), fmt.Sprintf("/%d/%d", batch, i), i)
		}
		require.NoError(t, ix.Insert(embeddings, chunks))
		assert.Equal(t, ix.Size(), ix.matrix.rows())

		for _, topK := range []int{1, 5, 50} {
			results, err := ix.Search(randomVector(rng, dim), topK, nil)
			require.NoError(t, err)
			assert.Len(t, results, min(topK, ix.Size()))
			assert.True(t, sort.SliceIsSorted(results, func(a, b int) bool {
				return results[a].SimilarityScore < results[b].SimilarityScore
			}))
		}
	}
}

func TestDeleteByDomain_Scenario(t *testing.T) {
	ix := New(2)
	require.NoError(t, ix.Insert(
		[][]float32{{0, 0}, {1, 1}, {2, 2}},
		[]types.Chunk{chunkFor("a.com", "/1", 0), chunkFor("a.com", "/2", 0), chunkFor("b.com", "/1", 0)},
	))

	removed := ix.DeleteByDomain("a.com")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, ix.Size())
	assert.Equal(t, 1, ix.matrix.rows())

	results, err := ix.Search([]float32{0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b.com", results[0].Metadata.Domain)
	assert.Equal(t, 8.0, results[0].SimilarityScore)
}

func TestDeleteByDomain_MatchesSourceDomainAndURL(t *testing.T) {
	ix := New(1)
	bySource := chunkFor("x.org", "/", 0)
	bySource.Metadata.Domain = ""
	bySource.Metadata.SourceDomain = "target.io"
	byURL := chunkFor("y.org", "/", 0)
	byURL.Metadata = types.ChunkMetadata{}
	byURL.URL = "https://docs.target.io/page"
	require.NoError(t, ix.Insert(
		[][]float32{{0}, {1}, {2}},
		[]types.Chunk{bySource, byURL, chunkFor("keep.net", "/", 0)},
	))

	assert.Equal(t, 2, ix.DeleteByDomain("target.io"))
	chunks := ix.Chunks()
	require.Len(t, chunks, 1)
	assert.Equal(t, "keep.net", chunks[0].Metadata.Domain)
}

func TestDeleteByDomain_UnknownDomainIsNoop(t *testing.T) {
	ix := New(1)
	require.NoError(t, ix.Insert([][]float32{{0}}, []types.Chunk{chunkFor("a.com", "/", 0)}))
	before := ix.matrix

	assert.Equal(t, 0, ix.DeleteByDomain("missing.com"))
	assert.Equal(t, 0, ix.DeleteByDomain(""))
	assert.Equal(t, 1, ix.Size())
	assert.Same(t, before, ix.matrix)
}

func TestDeleteByDomain_RemovingEverything(t *testing.T) {
	ix := New(1)
	require.NoError(t, ix.Insert([][]float32{{0}, {1}}, []types.Chunk{chunkFor("a.com", "/", 0), chunkFor("a.com", "/x", 1)}))

	assert.Equal(t, 2, ix.DeleteByDomain("a.com"))
	assert.True(t, ix.IsEmpty())
	assert.Nil(t, ix.matrix)

	results, err := ix.Search([]float32{0}, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteByDomain_DropsChunksWithoutEmbedding(t *testing.T) {
	ix := New(1)
	require.NoError(t, ix.Insert(
		[][]float32{{0}, {1}, {2}},
		[]types.Chunk{chunkFor("a.com", "/", 0), chunkFor("b.com", "/", 0), chunkFor("c.com", "/", 0)},
	))
	// simulate a corrupted entry
	ix.chunks[2].Embedding = nil

	assert.Equal(t, 1, ix.DeleteByDomain("a.com"))
	assert.Equal(t, 1, ix.Size())
	assert.Equal(t, ix.Size(), ix.matrix.rows())
	assert.Equal(t, "b.com", ix.Chunks()[0].Metadata.Domain)
}

func TestInvariant_RandomInsertDelete(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	ix := New(4)
	domains := []string{"a.com", "b.com", "c.com"}

	for step := 0; step < 60; step++ {
		if rng.Intn(3) == 0 {
			d := domains[rng.Intn(len(domains))]
			ix.DeleteByDomain(d)
			for _, c := range ix.Chunks() {
				assert.NotEqual(t, d, c.Metadata.Domain)
			}
		} else {
			n := rng.Intn(5)
			embeddings := make([][]float32, n)
			chunks := make([]types.Chunk, n)
			for i := range embeddings {
				embeddings[i] = randomVector(rng, 4)
				chunks[i] = chunkFor(domains[rng.Intn(len(domains))], fmt.Sprintf("/%d", step), i)
			}
			require.NoError(t, ix.Insert(embeddings, chunks))
		}

		rows := 0
		if ix.matrix != nil {
			rows = ix.matrix.rows()
		}
		require.Equal(t, ix.Size(), rows, "step %d", step)
	}
}

func TestConcurrentSearchAndInsert(t *testing.T) {
	ix := New(2)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = ix.Insert([][]float32{{float32(w), float32(i)}}, []types.Chunk{chunkFor("a.com", fmt.Sprintf("/%d/%d", w, i), i)})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := ix.Search([]float32{0, 0}, 3, nil)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, ix.Size())
	assert.Equal(t, 100, ix.matrix.rows())
}

func TestClearAndStats(t *testing.T) {
	ix := New(1)
	img := chunkFor("b.com", "/logo.png", 0)
	img.ContentType = types.ContentTypeImage
	noDomain := chunkFor("", "/", 0)
	noDomain.Metadata = types.ChunkMetadata{}
	require.NoError(t, ix.Insert(
		[][]float32{{0}, {1}, {2}, {3}},
		[]types.Chunk{chunkFor("a.com", "/", 0), chunkFor("a.com", "/x", 1), img, noDomain},
	))

	stats := ix.Stats()
	assert.Equal(t, 4, stats.TotalChunks)
	assert.Equal(t, 1, stats.Dimension)
	assert.Equal(t, map[string]int{"text": 3, "image": 1}, stats.ContentTypes)
	assert.Equal(t, map[string]int{"a.com": 2, "b.com": 1, "unknown": 1}, stats.Domains)

	ix.Clear()
	assert.True(t, ix.IsEmpty())
	assert.Equal(t, 0, ix.Stats().TotalChunks)
}

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func TestReplaceDomain(t *testing.T) {
	ix := New(2)
	require.NoError(t, ix.Insert(
		[][]float32{{0, 0}, {1, 1}, {5, 5}},
		[]types.Chunk{chunkFor("a.com", "/", 0), chunkFor("a.com", "/old", 0), chunkFor("b.com", "/", 0)},
	))

	removed, err := ix.ReplaceDomain("a.com", [][]float32{{2, 2}}, []types.Chunk{chunkFor("a.com", "/new", 0)})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	require.Equal(t, 2, ix.Size())

	chunks := ix.Chunks()
	assert.Equal(t, "https://b.com/", chunks[0].URL)
	assert.Equal(t, "https://a.com/new", chunks[1].URL)

	results, err := ix.Search([]float32{2, 2}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/new", results[0].URL)
	assert.Equal(t, 0.0, results[0].SimilarityScore)
}

func TestReplaceDomain_InvalidInputChangesNothing(t *testing.T) {
	ix := New(2)
	require.NoError(t, ix.Insert([][]float32{{0, 0}}, []types.Chunk{chunkFor("a.com", "/", 0)}))

	_, err := ix.ReplaceDomain("a.com", [][]float32{{1, 2, 3}}, []types.Chunk{chunkFor("a.com", "/new", 0)})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 1, ix.Size())
	assert.Equal(t, "https://a.com/", ix.Chunks()[0].URL)
}

func TestReplaceDomain_NewDomainOnEmptyIndex(t *testing.T) {
	ix := New(2)
	removed, err := ix.ReplaceDomain("c.com", [][]float32{{1, 0}}, []types.Chunk{chunkFor("c.com", "/", 0)})
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, 1, ix.Size())
}
