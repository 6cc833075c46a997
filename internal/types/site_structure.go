package types

// SitemapEntry is one visited page as listed in the site structure.
type SitemapEntry struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Depth       int    `json:"depth"`
	ContentType string `json:"content_type"`
	Success     bool   `json:"success"`
}

// SiteStructure aggregates link and page statistics over one crawl of one domain.
// ContentTypes and ExternalDomains are sorted and deduplicated once the crawl finishes.
type SiteStructure struct {
	Domain             string         `json:"domain"`
	StartURL           string         `json:"start_url"`
	TotalPages         int            `json:"total_pages"`
	TotalInternalLinks int            `json:"total_internal_links"`
	TotalExternalLinks int            `json:"total_external_links"`
	TotalAPIEndpoints  int            `json:"total_api_endpoints"`
	TotalImages        int            `json:"total_images"`
	ContentTypes       []string       `json:"content_types"`
	ExternalDomains    []string       `json:"external_domains"`
	APIEndpoints       []string       `json:"api_endpoints"`
	ImageURLs          []string       `json:"image_urls"`
	DepthDistribution  map[int]int    `json:"depth_distribution"`
	Sitemap            []SitemapEntry `json:"sitemap"`
}
