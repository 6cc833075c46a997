package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/siteqa/internal/db/migrations"
	"github.com/jonathan/siteqa/internal/types"
)

// PostgresArchive is an Archive backed by a PostgreSQL connection pool.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

var _ Archive = (*PostgresArchive)(nil)

// Connect establishes a connection pool and ensures the archive schema exists.
func Connect(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a := &PostgresArchive{pool: pool}
	if err := a.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *PostgresArchive) ensureSchema(ctx context.Context) error {
	files, err := fs.Glob(migrations.Postgres, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := fs.ReadFile(migrations.Postgres, name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := a.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the connection pool
func (a *PostgresArchive) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// SaveCrawl implements Archive.
func (a *PostgresArchive) SaveCrawl(ctx context.Context, domain string, result *types.CrawlResult) (Site, error) {
	if result == nil {
		return Site{}, fmt.Errorf("crawl result is required")
	}
	site, pages := newSiteRows(domain, result)

	structure, err := json.Marshal(site.Structure)
	if err != nil {
		return Site{}, fmt.Errorf("failed to marshal structure: %w", err)
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return Site{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM sites WHERE domain = $1`, domain); err != nil {
		return Site{}, fmt.Errorf("failed to replace site %s: %w", domain, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO sites (id, domain, start_url, total_pages, structure, crawled_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		site.ID, site.Domain, site.StartURL, site.TotalPages, structure, site.CrawledAt,
	)
	if err != nil {
		return Site{}, fmt.Errorf("failed to insert site %s: %w", domain, err)
	}

	batch := &pgx.Batch{}
	for i, p := range pages {
		batch.Queue(
			`INSERT INTO crawled_pages (id, site_id, position, url, title, content_type, depth, success, error)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			p.ID, p.SiteID, i, p.URL, p.Title, p.ContentType, p.Depth, p.Success, p.Error,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return Site{}, fmt.Errorf("failed to insert pages for %s: %w", domain, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Site{}, fmt.Errorf("failed to commit crawl of %s: %w", domain, err)
	}
	return site, nil
}

// ListSites implements Archive.
func (a *PostgresArchive) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT id, domain, start_url, total_pages, structure, crawled_at
		 FROM sites ORDER BY domain`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := []Site{}
	for rows.Next() {
		site, err := scanPostgresSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, *site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return sites, nil
}

// GetSite implements Archive.
func (a *PostgresArchive) GetSite(ctx context.Context, domain string) (*Site, []Page, error) {
	row := a.pool.QueryRow(ctx,
		`SELECT id, domain, start_url, total_pages, structure, crawled_at
		 FROM sites WHERE domain = $1`,
		domain,
	)
	site, err := scanPostgresSite(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	rows, err := a.pool.Query(ctx,
		`SELECT id, site_id, url, title, content_type, depth, success, error
		 FROM crawled_pages WHERE site_id = $1 ORDER BY position`,
		site.ID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get pages for %s: %w", domain, err)
	}
	defer rows.Close()

	pages := []Page{}
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.SiteID, &p.URL, &p.Title, &p.ContentType, &p.Depth, &p.Success, &p.Error); err != nil {
			return nil, nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to get pages for %s: %w", domain, err)
	}
	return site, pages, nil
}

// DeleteSite implements Archive. Pages go with the site through ON DELETE CASCADE.
func (a *PostgresArchive) DeleteSite(ctx context.Context, domain string) (bool, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM sites WHERE domain = $1`, domain)
	if err != nil {
		return false, fmt.Errorf("failed to delete site %s: %w", domain, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanPostgresSite(row pgx.Row) (*Site, error) {
	var site Site
	var structure []byte
	if err := row.Scan(&site.ID, &site.Domain, &site.StartURL, &site.TotalPages, &structure, &site.CrawledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan site: %w", err)
	}
	if err := json.Unmarshal(structure, &site.Structure); err != nil {
		return nil, fmt.Errorf("failed to unmarshal structure of %s: %w", site.Domain, err)
	}
	return &site, nil
}
