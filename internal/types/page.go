// Package types provides type definitions for structured data shared by the crawler, chunker and index.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"sort"
	"time"
)

// Content types a page record can carry.
const (
	ContentTypeText  = "text"
	ContentTypeJSON  = "json"
	ContentTypeImage = "image"
	ContentTypeError = "error"
)

// LinkSet holds the links discovered on a page, split into four disjoint categories.
// Every URL is absolute and appears at most once per category.
type LinkSet struct {
	Internal []string `json:"internal"`
	External []string `json:"external"`
	API      []string `json:"api"`
	Images   []string `json:"images"`
}

// EmptyLinkSet returns a LinkSet with non-nil empty slices so it serializes as [] instead of null.
func EmptyLinkSet() LinkSet {
	return LinkSet{
		Internal: []string{},
		External: []string{},
		API:      []string{},
		Images:   []string{},
	}
}

// PageRecord is the result of fetching one URL.
type PageRecord struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	ContentType string  `json:"content_type"` // text, json, image, error
	Links       LinkSet `json:"links"`
	Depth       int     `json:"depth"`
	Success     bool    `json:"success"`
	Error       string  `json:"error,omitempty"`
	RawData     any     `json:"raw_data,omitempty"`   // parsed JSON for api pages
	ImageData   string  `json:"image_data,omitempty"` // base64 payload for image pages
}

// JSONKeys returns the sorted top-level keys of RawData when it is a JSON object.
func (p *PageRecord) JSONKeys() []string {
	obj, ok := p.RawData.(map[string]any)
	if !ok {
		return []string{}
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CrawlResult is everything one crawl invocation produced.
type CrawlResult struct {
	Pages     []*PageRecord  `json:"pages"`
	Structure *SiteStructure `json:"structure"`
	Success   bool           `json:"success"`
	ScrapedAt time.Time      `json:"scraped_at"`
}
