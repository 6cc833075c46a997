package fetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"

	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/types"
)

// fetchImage downloads an image and stores it base64-encoded alongside a short textual description.
func (f *Fetcher) fetchImage(ctx context.Context, pageURL string) *types.PageRecord {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	result, err := URL(ctx, pageURL, f.opts)
	if err != nil {
		logging.Errorf("[FETCH] Error scraping image %s: %v", pageURL, err)
		return &types.PageRecord{
			URL:         pageURL,
			Content:     fmt.Sprintf("Failed to access image: %v", err),
			ContentType: types.ContentTypeError,
			Links:       types.EmptyLinkSet(),
			Error:       err.Error(),
		}
	}

	filename := ImageFilename(pageURL)
	return &types.PageRecord{
		URL:   pageURL,
		Title: "Image: " + filename,
		Content: fmt.Sprintf("Image URL: %s\nContent Type: %s\nSize: %d bytes\nFilename: %s",
			pageURL, result.ContentType, len(result.Body), filename),
		ContentType: types.ContentTypeImage,
		Links:       types.EmptyLinkSet(),
		Success:     true,
		ImageData:   base64.StdEncoding.EncodeToString(result.Body),
	}
}

// ImageFilename returns the last path segment of an image URL.
func ImageFilename(rawURL string) string {
	p := urlPath(rawURL)
	if p == "" || p == "/" {
		return ""
	}
	return path.Base(p)
}
