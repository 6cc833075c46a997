// Package db archives crawl results in PostgreSQL or SQLite.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/siteqa/internal/types"
)

// Archive stores the latest crawl of every domain.
type Archive interface {
	// SaveCrawl replaces any archived crawl of domain with result and returns the new site row.
	SaveCrawl(ctx context.Context, domain string, result *types.CrawlResult) (Site, error)
	// ListSites returns every archived site ordered by domain.
	ListSites(ctx context.Context) ([]Site, error)
	// GetSite returns the site and its pages in crawl order, or nil when domain is not archived.
	GetSite(ctx context.Context, domain string) (*Site, []Page, error)
	// DeleteSite removes domain and its pages and reports whether it existed.
	DeleteSite(ctx context.Context, domain string) (bool, error)
	Close() error
}

// Open connects to the archive named by dsn. postgres:// and postgresql:// URLs use PostgreSQL;
// anything else is treated as a SQLite file path, optionally prefixed with sqlite://.
func Open(ctx context.Context, dsn string) (Archive, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, fmt.Errorf("database URL is required")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Connect(ctx, dsn)
	default:
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	}
}
