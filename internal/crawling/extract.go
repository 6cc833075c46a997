package crawling

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/siteqa/internal/types"
)

// ExtractLinks parses HTML and sorts every anchor and image reference into a LinkSet.
// Anchors are classified relative to the base URL's host; images come from <img src>.
// URLs are resolved against baseURL, normalized, and deduplicated in discovery order.
func ExtractLinks(htmlContent string, baseURL string) (types.LinkSet, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return types.EmptyLinkSet(), &LinkExtractionError{
			BaseURL: baseURL,
			Message: "failed to parse base URL",
			Cause:   err,
		}
	}
	if base.Scheme == "" || base.Host == "" {
		return types.EmptyLinkSet(), &LinkExtractionError{
			BaseURL: baseURL,
			Message: "base URL must have scheme and host",
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return types.EmptyLinkSet(), &LinkExtractionError{
			BaseURL: baseURL,
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}

	return extractFromDocument(doc, base), nil
}

// ExtractLinksFromDocument is ExtractLinks for an already parsed document.
func ExtractLinksFromDocument(doc *goquery.Document, base *url.URL) types.LinkSet {
	return extractFromDocument(doc, base)
}

func extractFromDocument(doc *goquery.Document, base *url.URL) types.LinkSet {
	links := types.EmptyLinkSet()
	seen := map[Category]map[string]bool{
		CategoryInternal: {},
		CategoryExternal: {},
		CategoryAPI:      {},
	}
	seenImages := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		absolute, ok := resolve(base, href)
		if !ok {
			return
		}

		category := Classify(absolute, base.Host)
		if category == CategoryInvalid || seen[category][absolute] {
			return
		}
		seen[category][absolute] = true

		switch category {
		case CategoryAPI:
			links.API = append(links.API, absolute)
		case CategoryInternal:
			links.Internal = append(links.Internal, absolute)
		case CategoryExternal:
			links.External = append(links.External, absolute)
		}
	})

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		absolute, ok := resolve(base, src)
		if !ok || !IsValid(absolute) || !IsImage(absolute) || seenImages[absolute] {
			return
		}
		seenImages[absolute] = true
		links.Images = append(links.Images, absolute)
	})

	return links
}

// resolve turns href into a normalized absolute http(s) URL.
func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	linkURL, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	absolute := base.ResolveReference(linkURL)
	if absolute.Scheme != "http" && absolute.Scheme != "https" {
		// mailto:, javascript:, tel: and friends
		return "", false
	}
	return NormalizeURL(absolute), true
}

// NormalizeURL lowercases scheme and host, drops the fragment and trims a trailing slash
// so that the same page reached through different spellings deduplicates.
func NormalizeURL(u *url.URL) string {
	normalized := *u
	normalized.Fragment = ""
	normalized.RawFragment = ""
	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)
	return strings.TrimSuffix(normalized.String(), "/")
}

// NormalizeRawURL parses and normalizes rawURL, returning it unchanged when it cannot be parsed.
func NormalizeRawURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return NormalizeURL(u)
}
