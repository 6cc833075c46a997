package crawling

import (
	"sort"

	"github.com/jonathan/siteqa/internal/types"
)

// structureBuilder accumulates a SiteStructure while the crawl runs.
// Set-valued fields live in maps until finalize converts them to sorted slices.
type structureBuilder struct {
	structure       *types.SiteStructure
	contentTypes    map[string]struct{}
	externalDomains map[string]struct{}
}

func newStructureBuilder(domain, startURL string) *structureBuilder {
	return &structureBuilder{
		structure: &types.SiteStructure{
			Domain:            domain,
			StartURL:          startURL,
			APIEndpoints:      []string{},
			ImageURLs:         []string{},
			DepthDistribution: make(map[int]int),
			Sitemap:           []types.SitemapEntry{},
		},
		contentTypes:    make(map[string]struct{}),
		externalDomains: make(map[string]struct{}),
	}
}

// addPage records a visited page in the totals, depth distribution and sitemap.
func (b *structureBuilder) addPage(page *types.PageRecord) {
	contentType := page.ContentType
	if contentType == "" {
		contentType = types.ContentTypeText
	}
	b.contentTypes[contentType] = struct{}{}
	b.structure.TotalPages++
	b.structure.DepthDistribution[page.Depth]++
	b.structure.Sitemap = append(b.structure.Sitemap, types.SitemapEntry{
		URL:         page.URL,
		Title:       page.Title,
		Depth:       page.Depth,
		ContentType: contentType,
		Success:     page.Success,
	})
}

// addLinks folds a page's outgoing links into the aggregate counts and sets.
func (b *structureBuilder) addLinks(links types.LinkSet) {
	b.structure.TotalInternalLinks += len(links.Internal)
	b.structure.TotalExternalLinks += len(links.External)
	b.structure.TotalAPIEndpoints += len(links.API)
	b.structure.TotalImages += len(links.Images)

	for _, ext := range links.External {
		if domain := DomainOf(ext); domain != "" {
			b.externalDomains[domain] = struct{}{}
		}
	}
	b.structure.APIEndpoints = append(b.structure.APIEndpoints, links.API...)
	b.structure.ImageURLs = append(b.structure.ImageURLs, links.Images...)
}

func (b *structureBuilder) finalize() *types.SiteStructure {
	b.structure.ContentTypes = sortedKeys(b.contentTypes)
	b.structure.ExternalDomains = sortedKeys(b.externalDomains)
	return b.structure
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
