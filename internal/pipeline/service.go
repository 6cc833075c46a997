// Package pipeline wires crawling, chunking, embedding and the vector index into the ingest and
// question-answering flows.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/siteqa/internal/chunking"
	"github.com/jonathan/siteqa/internal/crawling"
	"github.com/jonathan/siteqa/internal/db"
	"github.com/jonathan/siteqa/internal/embedding"
	"github.com/jonathan/siteqa/internal/llm"
	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/types"
	"github.com/jonathan/siteqa/internal/vectorindex"
)

// DefaultTopK is how many chunks are retrieved for a question when none is requested.
const DefaultTopK = 5

// Answerer turns a question and retrieved context into an answer.
type Answerer interface {
	Answer(ctx context.Context, question string, chunks []llm.ContextChunk) (string, error)
}

// Options holds the collaborators a Service is built from.
type Options struct {
	Crawler  *crawling.Crawler  // Required
	Chunker  *chunking.Chunker  // Required
	Embedder embedding.Provider // Required for Ingest, Search and Ask; usually an *embedding.Batcher
	Answerer Answerer           // Required for Ask
	Index    *vectorindex.Index // Optional: defaults to an empty index of vectorindex.DefaultDimension
	Archive  db.Archive         // Optional: crawl archive

	IndexPrefix string // Snapshot path prefix; empty disables persistence
	TopK        int
}

// Service owns the site registry and the vector index and runs every pipeline operation on them.
type Service struct {
	crawler  *crawling.Crawler
	chunker  *chunking.Chunker
	embedder embedding.Provider
	answerer Answerer
	archive  db.Archive
	prefix   string
	topK     int

	// writeMu pairs each index mutation with the snapshot write that follows it.
	writeMu sync.Mutex

	mu    sync.RWMutex
	index *vectorindex.Index
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Crawler == nil {
		return nil, fmt.Errorf("crawler is required")
	}
	if opts.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}

	index := opts.Index
	if index == nil {
		index = vectorindex.New(vectorindex.DefaultDimension)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Service{
		crawler:  opts.Crawler,
		chunker:  opts.Chunker,
		embedder: opts.Embedder,
		answerer: opts.Answerer,
		archive:  opts.Archive,
		prefix:   opts.IndexPrefix,
		topK:     topK,
		index:    index,
	}, nil
}

// Index returns the live vector index.
func (s *Service) Index() *vectorindex.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Registry returns the registry of crawled sites.
func (s *Service) Registry() *crawling.Registry {
	return s.crawler.Registry()
}

// Sites lists the crawled sites ordered by domain.
func (s *Service) Sites() []crawling.SiteSummary {
	return s.crawler.Registry().Summary()
}

// IndexStats summarizes the chunks currently indexed.
func (s *Service) IndexStats() vectorindex.Stats {
	return s.Index().Stats()
}

// Open prepares a service for use by a fresh process: it loads the persisted index snapshot, if
// one exists, and restores the site registry from the archive. Failures are logged and leave the
// affected store empty.
func (s *Service) Open(ctx context.Context) {
	if s.prefix != "" && vectorindex.SnapshotExists(s.prefix) {
		if err := s.ReloadIndex(); err != nil {
			logging.Warnf("[PIPELINE] Starting with an empty index: %v", err)
		}
	}
	if s.archive != nil {
		if n, err := s.RestoreRegistry(ctx); err != nil {
			logging.Warnf("[PIPELINE] Could not restore sites from archive: %v", err)
		} else {
			logging.Debugf("[PIPELINE] Restored %d sites from archive", n)
		}
	}
}

// ReloadIndex loads the persisted snapshot into a new index and swaps it in. When loading fails the
// new index is empty; it is swapped in anyway and the error is returned.
func (s *Service) ReloadIndex() error {
	if s.prefix == "" {
		return &Error{Stage: StagePersist, Message: "no index prefix configured"}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	fresh := vectorindex.New(s.Index().Dimension())
	err := fresh.Load(s.prefix)

	s.mu.Lock()
	s.index = fresh
	s.mu.Unlock()

	if err != nil {
		return &Error{Stage: StagePersist, Message: "failed to load index snapshot", Cause: err}
	}
	logging.Infof("[PIPELINE] Loaded %d chunks from %s", fresh.Size(), s.prefix)
	return nil
}

// RestoreRegistry fills the site registry from the crawl archive. Archived pages carry no content,
// so restored sites serve structure questions and listings only.
func (s *Service) RestoreRegistry(ctx context.Context) (int, error) {
	if s.archive == nil {
		return 0, nil
	}
	sites, err := s.archive.ListSites(ctx)
	if err != nil {
		return 0, &Error{Stage: StageArchive, Message: "failed to list archived sites", Cause: err}
	}

	registry := s.crawler.Registry()
	for _, site := range sites {
		if _, ok := registry.Get(site.Domain); ok {
			continue
		}
		_, pages, err := s.archive.GetSite(ctx, site.Domain)
		if err != nil {
			return 0, &Error{Stage: StageArchive, Message: "failed to read archived site " + site.Domain, Cause: err}
		}
		registry.Put(site.Domain, crawlFromArchive(site, pages))
	}
	return len(sites), nil
}

func crawlFromArchive(site db.Site, pages []db.Page) *types.CrawlResult {
	result := &types.CrawlResult{
		Pages:     make([]*types.PageRecord, 0, len(pages)),
		Structure: site.Structure,
		Success:   true,
		ScrapedAt: site.CrawledAt,
	}
	for _, p := range pages {
		result.Pages = append(result.Pages, &types.PageRecord{
			URL:         p.URL,
			Title:       p.Title,
			ContentType: p.ContentType,
			Links:       types.EmptyLinkSet(),
			Depth:       p.Depth,
			Success:     p.Success,
			Error:       p.Error,
		})
	}
	return result
}

// persist writes the index snapshot when a prefix is configured.
func (s *Service) persist() error {
	if s.prefix == "" {
		return nil
	}
	if err := s.Index().Persist(s.prefix); err != nil {
		return &Error{Stage: StagePersist, Message: "failed to save index snapshot", Cause: err}
	}
	return nil
}
