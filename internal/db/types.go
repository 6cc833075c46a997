package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/siteqa/internal/types"
)

// Site is one archived crawl of a domain. Only the latest crawl per domain is kept.
type Site struct {
	ID         uuid.UUID            `json:"id"`
	Domain     string               `json:"domain"`
	StartURL   string               `json:"start_url"`
	TotalPages int                  `json:"total_pages"`
	Structure  *types.SiteStructure `json:"structure"`
	CrawledAt  time.Time            `json:"crawled_at"`
}

// Page is one archived page of a crawl. Content is not archived; the vector index owns it.
type Page struct {
	ID          uuid.UUID `json:"id"`
	SiteID      uuid.UUID `json:"site_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	ContentType string    `json:"content_type"`
	Depth       int       `json:"depth"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
}

// newSiteRows converts a crawl result into the rows SaveCrawl writes.
func newSiteRows(domain string, result *types.CrawlResult) (Site, []Page) {
	site := Site{
		ID:         uuid.New(),
		Domain:     domain,
		TotalPages: len(result.Pages),
		Structure:  result.Structure,
		CrawledAt:  result.ScrapedAt,
	}
	if site.Structure != nil {
		site.StartURL = site.Structure.StartURL
	}
	if site.CrawledAt.IsZero() {
		site.CrawledAt = time.Now().UTC()
	}

	pages := make([]Page, 0, len(result.Pages))
	for _, p := range result.Pages {
		if p == nil {
			continue
		}
		pages = append(pages, Page{
			ID:          uuid.New(),
			SiteID:      site.ID,
			URL:         p.URL,
			Title:       p.Title,
			ContentType: p.ContentType,
			Depth:       p.Depth,
			Success:     p.Success,
			Error:       p.Error,
		})
	}
	return site, pages
}
