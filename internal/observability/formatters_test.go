package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/siteqa/internal/crawling"
	"github.com/jonathan/siteqa/internal/pipeline"
	"github.com/jonathan/siteqa/internal/types"
	"github.com/jonathan/siteqa/internal/vectorindex"
)

func TestPrintStructure(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintStructure(&types.SiteStructure{
		Domain:             "example.com",
		StartURL:           "https://example.com",
		TotalPages:         3,
		TotalInternalLinks: 7,
		TotalExternalLinks: 2,
		ContentTypes:       []string{"json", "text"},
		ExternalDomains:    []string{"a.com", "b.com", "c.com", "d.com", "e.com", "f.com"},
		DepthDistribution:  map[int]int{1: 2, 0: 1},
	})
	output := buf.String()

	assert.Contains(t, output, "SITE STRUCTURE")
	assert.Contains(t, output, "example.com")
	assert.Contains(t, output, "Internal links:  7")
	assert.Contains(t, output, "json, text")
	assert.Less(t, strings.Index(output, "depth 0: 1 pages"), strings.Index(output, "depth 1: 2 pages"))
	assert.Contains(t, output, "... and 1 more")
}

func TestPrintStructure_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintStructure(nil)

	assert.Empty(t, buf.String())
}

func TestPrintIngestReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintIngestReport(&pipeline.IngestReport{Domain: "example.com", PagesScraped: 4, ChunksCreated: 9, EmbeddingsStored: 9})
	output := buf.String()

	assert.Contains(t, output, "INGEST COMPLETE")
	assert.Contains(t, output, "Pages scraped:      4")
	assert.Contains(t, output, "Embeddings stored:  9")
	assert.NotContains(t, output, "Chunks replaced")
}

func TestPrintSearchResults(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSearchResults([]types.SearchResult{
		{Chunk: types.Chunk{URL: "https://example.com/a", Text: "first\nchunk   text", ContentType: "text", Tokens: 3}, SimilarityScore: 0.25, Rank: 1},
		{Chunk: types.Chunk{URL: "https://example.com/b", Text: strings.Repeat("word ", 40), ContentType: "json"}, SimilarityScore: 1.5, Rank: 2},
	})
	output := buf.String()

	assert.Contains(t, output, "#1  https://example.com/a")
	assert.Contains(t, output, "Distance: 0.2500")
	assert.Contains(t, output, "first chunk text")
	assert.Contains(t, output, "#2  https://example.com/b")
	assert.Contains(t, output, "...")
}

func TestPrintSearchResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSearchResults(nil)
	assert.Contains(t, buf.String(), "No matching chunks")
}

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnswer(&pipeline.Answer{Answer: "We open at seven.", Sources: []string{"https://bakery.test/hours"}})
	output := buf.String()

	assert.True(t, strings.HasPrefix(output, "We open at seven.\n"))
	assert.Contains(t, output, "Sources:")
	assert.Contains(t, output, "• https://bakery.test/hours")

	buf.Reset()
	p.PrintAnswer(&pipeline.Answer{Answer: "No idea."})
	assert.Equal(t, "No idea.\n", buf.String())
}

func TestPrintSites(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSites(nil)
	assert.Contains(t, buf.String(), "No sites crawled yet")

	buf.Reset()
	p.PrintSites([]crawling.SiteSummary{
		{Domain: "a.com", TotalPages: 2, ScrapedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)},
		{Domain: "b.com", TotalPages: 1},
	})
	output := buf.String()
	assert.Contains(t, output, "Total sites: 2")
	assert.Contains(t, output, "a.com  (2 pages, 2026-01-02 03:04)")
	assert.Contains(t, output, "b.com  (1 pages)")
}

func TestPrintIndexStats(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintIndexStats(vectorindex.Stats{
		TotalChunks:  5,
		Dimension:    768,
		ContentTypes: map[string]int{"text": 4, "json": 1},
		Domains:      map[string]int{"a.com": 5},
	})
	output := buf.String()

	assert.Contains(t, output, "Total chunks:  5")
	assert.Contains(t, output, "Dimension:     768")
	assert.Less(t, strings.Index(output, "json: 1"), strings.Index(output, "text: 4"))
	assert.Contains(t, output, "a.com: 5")
}

func TestPrintDeleteReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDeleteReport(&pipeline.DeleteReport{Domain: "gone.com"})
	assert.Contains(t, buf.String(), "Nothing stored for gone.com")

	buf.Reset()
	p.PrintDeleteReport(&pipeline.DeleteReport{Domain: "a.com", ChunksRemoved: 3, RegistryRemoved: true})
	output := buf.String()
	assert.Contains(t, output, "Chunks removed:    3")
	assert.Contains(t, output, "Registry entry:    removed")
	assert.Contains(t, output, "Archive entry:     not present")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("é", 100))
	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)))
	}
}
