package crawling

import (
	"net/url"
	"strings"
)

// Category is the bucket a discovered URL falls into relative to the crawl's base domain.
type Category string

// Link categories. CategoryInvalid URLs are dropped from every link set.
const (
	CategoryAPI      Category = "api"
	CategoryInternal Category = "internal"
	CategoryExternal Category = "external"
	CategoryInvalid  Category = "invalid"
)

// apiIndicators are substrings that mark a URL as a structured-data endpoint.
var apiIndicators = []string{"/api/", ".json", "/v1/", "/v2/", "/graphql", "/rest/"}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".bmp"}

// downloadExtensions are binary documents the crawler never follows.
var downloadExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".zip", ".rar", ".exe", ".dmg"}

// Classify returns the category of rawURL relative to baseDomain (a host, optionally with port).
// API indicators win over domain membership.
func Classify(rawURL, baseDomain string) Category {
	if !IsValid(rawURL) {
		return CategoryInvalid
	}
	if IsAPIEndpoint(rawURL) {
		return CategoryAPI
	}
	u, _ := url.Parse(rawURL)
	if strings.EqualFold(u.Host, baseDomain) {
		return CategoryInternal
	}
	return CategoryExternal
}

// IsValid reports whether rawURL has a scheme and host and does not point at a downloadable document.
func IsValid(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	return !hasSuffixAny(strings.ToLower(rawURL), downloadExtensions)
}

// IsAPIEndpoint reports whether rawURL looks like a JSON/REST/GraphQL endpoint.
func IsAPIEndpoint(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, indicator := range apiIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// IsImage reports whether rawURL ends with a known image extension.
// It is independent of Classify.
func IsImage(rawURL string) bool {
	return hasSuffixAny(strings.ToLower(rawURL), imageExtensions)
}

// DomainOf returns the host (with port, if any) of rawURL, or "" when it cannot be parsed.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func hasSuffixAny(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
