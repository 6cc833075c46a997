package fetch

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/siteqa/internal/crawling"
	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/types"
)

// Strategy names how a URL is retrieved.
type Strategy string

const (
	StrategyAPI   Strategy = "api"
	StrategyImage Strategy = "image"
	StrategyHTML  Strategy = "html"
)

// errBothMethods is recorded when neither rendered nor static retrieval produced text.
const errBothMethods = "failed to scrape with both methods"

// SelectStrategy picks the retrieval strategy for a URL. API classification wins over image.
func SelectStrategy(pageURL string) Strategy {
	switch {
	case crawling.IsAPIEndpoint(pageURL):
		return StrategyAPI
	case crawling.IsImage(pageURL):
		return StrategyImage
	default:
		return StrategyHTML
	}
}

// Fetcher retrieves pages for the crawler. It implements crawling.PageFetcher.
type Fetcher struct {
	opts     *Options
	renderer Renderer
}

var _ crawling.PageFetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher. When opts.UseBrowser is set and renderer is nil, headless Chrome is used.
func NewFetcher(opts *Options, renderer Renderer) *Fetcher {
	opts = opts.withDefaults()
	if !opts.UseBrowser {
		renderer = nil
	} else if renderer == nil {
		renderer = NewChromeRenderer()
	}
	return &Fetcher{opts: opts, renderer: renderer}
}

// Fetch retrieves pageURL with the strategy SelectStrategy chooses. It never returns nil.
// API and image failures produce an error record; HTML pages try the browser first and fall back to
// a static request.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) *types.PageRecord {
	logging.Debugf("[FETCH] Fetching %s", pageURL)

	switch SelectStrategy(pageURL) {
	case StrategyAPI:
		return f.fetchAPI(ctx, pageURL)
	case StrategyImage:
		return f.fetchImage(ctx, pageURL)
	}

	if f.renderer != nil {
		page, err := f.fetchDynamic(ctx, pageURL)
		if err == nil && page.Content != "" {
			return page
		}
		if err != nil {
			logging.Debugf("[FETCH] Browser rendering failed for %s: %v", pageURL, err)
		}
	}

	page, err := f.fetchStatic(ctx, pageURL)
	if err == nil && page.Content != "" {
		return page
	}
	if err != nil {
		logging.Warnf("[FETCH] Static fetch failed for %s: %v", pageURL, err)
	}

	return &types.PageRecord{
		URL:         pageURL,
		ContentType: types.ContentTypeText,
		Links:       types.EmptyLinkSet(),
		Error:       errBothMethods,
	}
}

func (f *Fetcher) fetchDynamic(ctx context.Context, pageURL string) (*types.PageRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	rendered, err := f.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	page, err := pageFromHTML(pageURL, rendered.HTML)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(rendered.Title); title != "" {
		page.Title = title
	}
	return page, nil
}

func (f *Fetcher) fetchStatic(ctx context.Context, pageURL string) (*types.PageRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	result, err := URL(ctx, pageURL, f.opts)
	if err != nil {
		return nil, err
	}
	return pageFromHTML(pageURL, result.HTML)
}

// pageFromHTML builds a successful text page from an HTML document. Links are read before
// noise removal so navigation menus still contribute to discovery.
func pageFromHTML(pageURL, html string) (*types.PageRecord, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "invalid URL", Cause: err}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "failed to parse HTML", Cause: err}
	}

	links := crawling.ExtractLinksFromDocument(doc, base)
	title := ExtractTitle(doc)
	text := MainText(doc, DefaultTextSelectors())

	return &types.PageRecord{
		URL:         pageURL,
		Title:       title,
		Content:     text,
		ContentType: types.ContentTypeText,
		Links:       links,
		Success:     true,
	}, nil
}
