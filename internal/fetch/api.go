package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/types"
)

// fetchAPI retrieves an API endpoint. JSON bodies are parsed and pretty-printed; anything else is kept verbatim.
func (f *Fetcher) fetchAPI(ctx context.Context, pageURL string) *types.PageRecord {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	result, err := URL(ctx, pageURL, f.opts)
	if err != nil {
		return apiFailure(pageURL, err)
	}

	title := "API: " + urlPath(pageURL)
	contentType := strings.ToLower(result.ContentType)

	if !strings.Contains(contentType, "application/json") {
		return &types.PageRecord{
			URL:         pageURL,
			Title:       title,
			Content:     fmt.Sprintf("API Endpoint: %s\nContent Type: %s\nContent: %s", pageURL, contentType, result.HTML),
			ContentType: types.ContentTypeText,
			Links:       types.EmptyLinkSet(),
			Success:     true,
		}
	}

	var data any
	if err := json.Unmarshal(result.Body, &data); err != nil {
		return apiFailure(pageURL, fmt.Errorf("invalid JSON body: %w", err))
	}
	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return apiFailure(pageURL, err)
	}

	return &types.PageRecord{
		URL:         pageURL,
		Title:       title,
		Content:     fmt.Sprintf("API Endpoint: %s\nContent Type: JSON\nData: %s", pageURL, pretty),
		ContentType: types.ContentTypeJSON,
		Links:       types.EmptyLinkSet(),
		Success:     true,
		RawData:     data,
	}
}

func apiFailure(pageURL string, err error) *types.PageRecord {
	logging.Errorf("[FETCH] Error scraping API endpoint %s: %v", pageURL, err)
	return &types.PageRecord{
		URL:         pageURL,
		Content:     fmt.Sprintf("Failed to access API endpoint: %v", err),
		ContentType: types.ContentTypeError,
		Links:       types.EmptyLinkSet(),
		Error:       err.Error(),
	}
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}
