package crawling

import (
	"sort"
	"sync"
	"time"

	"github.com/jonathan/siteqa/internal/types"
)

// Registry keeps the latest crawl result for every domain.
// Re-crawling a domain replaces its entry. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	sites map[string]*types.CrawlResult
}

// SiteSummary describes one registered site.
type SiteSummary struct {
	Domain     string               `json:"domain"`
	TotalPages int                  `json:"total_pages"`
	Structure  *types.SiteStructure `json:"structure"`
	ScrapedAt  time.Time            `json:"scraped_at"`
}

// AggregatedPage is a page annotated with the domain it was crawled under.
type AggregatedPage struct {
	*types.PageRecord
	SourceDomain string `json:"source_domain"`
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sites: make(map[string]*types.CrawlResult)}
}

// Put stores result under domain, replacing any previous crawl.
func (r *Registry) Put(domain string, result *types.CrawlResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[domain] = result
}

// Get returns the crawl result for domain.
func (r *Registry) Get(domain string) (*types.CrawlResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.sites[domain]
	return result, ok
}

// Remove deletes domain and reports whether it was present.
func (r *Registry) Remove(domain string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sites[domain]; !ok {
		return false
	}
	delete(r.sites, domain)
	return true
}

// Len returns the number of registered sites.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sites)
}

// Summary lists every registered site ordered by domain.
func (r *Registry) Summary() []SiteSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]SiteSummary, 0, len(r.sites))
	for domain, result := range r.sites {
		summaries = append(summaries, SiteSummary{
			Domain:     domain,
			TotalPages: len(result.Pages),
			Structure:  result.Structure,
			ScrapedAt:  result.ScrapedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Domain < summaries[j].Domain })
	return summaries
}

// AggregatedPages returns every page of every site, tagged with its source domain.
func (r *Registry) AggregatedPages() []AggregatedPage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	domains := make([]string, 0, len(r.sites))
	for domain := range r.sites {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	var pages []AggregatedPage
	for _, domain := range domains {
		for _, page := range r.sites[domain].Pages {
			pages = append(pages, AggregatedPage{PageRecord: page, SourceDomain: domain})
		}
	}
	return pages
}
