package crawling

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/types"
)

const (
	// DefaultMaxDepth is the link distance from the start URL explored when none is given
	DefaultMaxDepth = 2
	// DefaultRateLimitDelay is the pause enforced between successive page fetches
	DefaultRateLimitDelay = 500 * time.Millisecond
)

// PageFetcher retrieves one URL. Implementations record failures on the returned page instead of erroring.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) *types.PageRecord
}

// Crawler walks a site breadth-first from a start URL up to a maximum depth.
// A single crawl is sequential; the crawler itself can be reused across crawls.
type Crawler struct {
	fetcher      PageFetcher
	registry     *Registry
	delay        time.Duration
	fetchTimeout time.Duration
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithDelay sets the politeness delay between fetches. Zero disables throttling.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithRegistry stores finished crawls in r instead of a private registry.
func WithRegistry(r *Registry) Option {
	return func(c *Crawler) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithFetchTimeout bounds each individual page fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// New creates a crawler that fetches pages with fetcher.
func New(fetcher PageFetcher, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher: fetcher,
		delay:   DefaultRateLimitDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	return c
}

// Registry returns the registry that receives finished crawls.
func (c *Crawler) Registry() *Registry {
	return c.registry
}

// frontierItem is a URL waiting to be visited, with its distance from the start URL.
type frontierItem struct {
	url   string
	depth int
}

// Crawl visits startURL and every internal page reachable within maxDepth links.
// A page keeps the depth at which it was first discovered. Fetch failures are recorded on
// the page and never stop the crawl. If ctx is cancelled the partial result is returned
// together with a *CrawlError and nothing is registered.
func (c *Crawler) Crawl(ctx context.Context, startURL string, maxDepth int) (*types.CrawlResult, error) {
	start, err := url.Parse(strings.TrimSpace(startURL))
	if err != nil || start.Scheme == "" || start.Host == "" {
		return nil, &CrawlError{
			StartURL: startURL,
			Message:  "invalid start URL",
			Cause:    err,
		}
	}
	if maxDepth < 0 {
		return nil, &CrawlError{StartURL: startURL, Message: fmt.Sprintf("max depth must be non-negative, got %d", maxDepth)}
	}

	domain := strings.ToLower(start.Host)
	builder := newStructureBuilder(domain, startURL)
	result := &types.CrawlResult{Pages: []*types.PageRecord{}}

	limit := rate.Inf
	if c.delay > 0 {
		limit = rate.Every(c.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	visited := make(map[string]bool)
	frontier := []frontierItem{{url: NormalizeURL(start), depth: 0}}

	for len(frontier) > 0 {
		item := frontier[0]
		frontier = frontier[1:]

		if visited[item.url] || item.depth > maxDepth {
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			result.Structure = builder.finalize()
			return result, &CrawlError{StartURL: startURL, Message: "interrupted", Cause: err}
		}

		visited[item.url] = true
		logging.Infof("[CRAWL] Scraping %s at depth %d", item.url, item.depth)

		page := c.fetch(ctx, item.url)
		page.Depth = item.depth
		result.Pages = append(result.Pages, page)
		builder.addPage(page)

		if page.Success && item.depth < maxDepth {
			for _, link := range page.Links.Internal {
				if !visited[link] {
					frontier = append(frontier, frontierItem{url: link, depth: item.depth + 1})
				}
			}
			builder.addLinks(page.Links)
		}
	}

	result.Structure = builder.finalize()
	result.Success = true
	result.ScrapedAt = time.Now().UTC()
	c.registry.Put(domain, result)

	logging.Infof("[CRAWL] Completed %s: %d pages", domain, len(result.Pages))
	return result, nil
}

func (c *Crawler) fetch(ctx context.Context, pageURL string) *types.PageRecord {
	fetchCtx := ctx
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	page := c.fetcher.Fetch(fetchCtx, pageURL)
	if page == nil {
		page = &types.PageRecord{
			URL:         pageURL,
			ContentType: types.ContentTypeError,
			Links:       types.EmptyLinkSet(),
			Error:       "fetcher returned no page",
		}
	}
	return page
}
