package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/siteqa/internal/chunking"
	"github.com/jonathan/siteqa/internal/crawling"
	"github.com/jonathan/siteqa/internal/fetch"
	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/types"
)

// IngestReport summarizes one ingest run.
type IngestReport struct {
	Domain           string               `json:"domain"`
	PagesScraped     int                  `json:"pages_scraped"`
	ChunksCreated    int                  `json:"chunks_created"`
	EmbeddingsStored int                  `json:"embeddings_stored"`
	ChunksReplaced   int                  `json:"chunks_replaced"`
	Structure        *types.SiteStructure `json:"structure"`
}

// Crawl crawls startURL and archives the result when an archive is configured.
// Archive failures are logged, not returned.
func (s *Service) Crawl(ctx context.Context, startURL string, maxDepth int) (*types.CrawlResult, error) {
	result, err := s.crawler.Crawl(ctx, startURL, maxDepth)
	if err != nil {
		return result, &Error{Stage: StageCrawl, Message: "crawl of " + startURL + " did not complete", Cause: err}
	}

	if s.archive != nil && result.Structure != nil {
		if _, err := s.archive.SaveCrawl(ctx, result.Structure.Domain, result); err != nil {
			logging.Warnf("[PIPELINE] Failed to archive crawl of %s: %v", result.Structure.Domain, err)
		}
	}
	return result, nil
}

// Ingest crawls startURL, chunks every page with content, embeds the chunks and stores them in the
// index, replacing whatever the index held for the domain. The snapshot is persisted afterwards.
func (s *Service) Ingest(ctx context.Context, startURL string, maxDepth int) (*IngestReport, error) {
	if s.embedder == nil {
		return nil, &Error{Stage: StageEmbed, Message: "no embedding provider configured"}
	}
	logging.Infof("[PIPELINE] Starting ingest of %s with depth %d", startURL, maxDepth)

	result, err := s.Crawl(ctx, startURL, maxDepth)
	if err != nil {
		return nil, err
	}
	if len(result.Pages) == 0 {
		return nil, &Error{Stage: StageCrawl, Message: "no content could be scraped from the website"}
	}
	domain := result.Structure.Domain

	chunks := BuildPageChunks(s.chunker, domain, result)
	if len(chunks) == 0 {
		return nil, &Error{Stage: StageChunk, Message: "no content chunks could be created from the scraped pages"}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, &Error{Stage: StageEmbed, Message: "failed to generate embeddings", Cause: err}
	}
	if len(embeddings) != len(chunks) {
		return nil, &Error{Stage: StageEmbed, Message: fmt.Sprintf("got %d embeddings for %d chunks", len(embeddings), len(chunks))}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	replaced, err := s.Index().ReplaceDomain(domain, embeddings, chunks)
	if err != nil {
		return nil, &Error{Stage: StageIndex, Message: "failed to store embeddings", Cause: err}
	}
	if err := s.persist(); err != nil {
		return nil, err
	}

	report := &IngestReport{
		Domain:           domain,
		PagesScraped:     len(result.Pages),
		ChunksCreated:    len(chunks),
		EmbeddingsStored: len(embeddings),
		ChunksReplaced:   replaced,
		Structure:        result.Structure,
	}
	logging.Infof("[PIPELINE] Processed %d pages, created %d chunks for %s", report.PagesScraped, report.ChunksCreated, domain)
	return report, nil
}

// BuildPageChunks chunks every successful page of result that has content. Each page's image and
// API links are appended to its text so they can be retrieved too.
func BuildPageChunks(chunker *chunking.Chunker, domain string, result *types.CrawlResult) []types.Chunk {
	sourceDomain := domain
	if result.Structure != nil && result.Structure.Domain != "" {
		sourceDomain = result.Structure.Domain
	}

	var chunks []types.Chunk
	for _, page := range result.Pages {
		if page == nil || !page.Success || page.Content == "" {
			continue
		}

		contentType := page.ContentType
		if contentType == "" {
			contentType = types.ContentTypeText
		}

		metadata := types.ChunkMetadata{
			Domain:       crawling.DomainOf(page.URL),
			SourceDomain: sourceDomain,
			Title:        page.Title,
			Depth:        page.Depth,
			PageURL:      page.URL,
		}
		switch contentType {
		case types.ContentTypeJSON:
			metadata.JSONKeys = page.JSONKeys()
		case types.ContentTypeImage:
			metadata.ImageFilename = fetch.ImageFilename(page.URL)
		}

		chunks = append(chunks, chunker.Chunk(withLinkLists(page), page.URL, contentType, metadata)...)
	}
	return chunks
}

func withLinkLists(page *types.PageRecord) string {
	var sb strings.Builder
	sb.WriteString(page.Content)
	if len(page.Links.Images) > 0 {
		sb.WriteString("\nImage links found on this page:\n")
		sb.WriteString(strings.Join(page.Links.Images, "\n"))
	}
	if len(page.Links.API) > 0 {
		sb.WriteString("\nAPI links found on this page:\n")
		sb.WriteString(strings.Join(page.Links.API, "\n"))
	}
	return sb.String()
}
