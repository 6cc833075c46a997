// Package crawling provides link classification, link extraction and the breadth-first site crawler.
package crawling

import "fmt"

// CrawlError reports a crawl that could not start or was cut short. StartURL is the URL the
// crawl was asked to begin from.
type CrawlError struct {
	StartURL string
	Message  string
	Cause    error
}

func (e *CrawlError) Error() string {
	msg := fmt.Sprintf("crawl of %s failed: %s", e.StartURL, e.Message)
	if e.StartURL == "" {
		msg = "crawl failed: " + e.Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// LinkExtractionError reports HTML or a base URL that links could not be extracted from.
type LinkExtractionError struct {
	BaseURL string
	Message string
	Cause   error
}

func (e *LinkExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("link extraction from %s: %s: %v", e.BaseURL, e.Message, e.Cause)
	}
	return fmt.Sprintf("link extraction from %s: %s", e.BaseURL, e.Message)
}

func (e *LinkExtractionError) Unwrap() error {
	return e.Cause
}
