package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jonathan/siteqa/internal/db/migrations"
	"github.com/jonathan/siteqa/internal/types"
)

// SQLiteArchive is an Archive stored in a single SQLite file.
type SQLiteArchive struct {
	db   *sql.DB
	path string
}

var _ Archive = (*SQLiteArchive)(nil)

// OpenSQLite opens (creating if needed) the archive at path and applies pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteArchive, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &SQLiteArchive{db: db, path: path}
	if err := a.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return a, nil
}

// Path returns the database file path.
func (a *SQLiteArchive) Path() string {
	return a.path
}

// Close closes the database.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

// migrate runs every NNN_*.up.sql file newer than the recorded schema version.
func (a *SQLiteArchive) migrate(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := a.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	files, err := fs.Glob(migrations.SQLite, "sqlite/*.up.sql")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(strings.TrimPrefix(name, "sqlite/"), "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(migrations.SQLite, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := a.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := a.db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// SaveCrawl implements Archive.
func (a *SQLiteArchive) SaveCrawl(ctx context.Context, domain string, result *types.CrawlResult) (Site, error) {
	if result == nil {
		return Site{}, fmt.Errorf("crawl result is required")
	}
	site, pages := newSiteRows(domain, result)

	structure, err := json.Marshal(site.Structure)
	if err != nil {
		return Site{}, fmt.Errorf("marshalling structure: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return Site{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteSQLiteSite(ctx, tx, domain); err != nil {
		return Site{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sites (id, domain, start_url, total_pages, structure, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, site.ID.String(), site.Domain, site.StartURL, site.TotalPages, string(structure),
		site.CrawledAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return Site{}, fmt.Errorf("inserting site %s: %w", domain, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crawled_pages (id, site_id, position, url, title, content_type, depth, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Site{}, fmt.Errorf("preparing page insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range pages {
		if _, err := stmt.ExecContext(ctx, p.ID.String(), p.SiteID.String(), i, p.URL, p.Title,
			p.ContentType, p.Depth, p.Success, p.Error); err != nil {
			return Site{}, fmt.Errorf("inserting page %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Site{}, fmt.Errorf("committing crawl of %s: %w", domain, err)
	}
	return site, nil
}

// ListSites implements Archive.
func (a *SQLiteArchive) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, domain, start_url, total_pages, structure, crawled_at
		FROM sites ORDER BY domain
	`)
	if err != nil {
		return nil, fmt.Errorf("listing sites: %w", err)
	}
	defer rows.Close()

	sites := []Site{}
	for rows.Next() {
		site, err := scanSQLiteSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, *site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sites: %w", err)
	}
	return sites, nil
}

// GetSite implements Archive.
func (a *SQLiteArchive) GetSite(ctx context.Context, domain string) (*Site, []Page, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, domain, start_url, total_pages, structure, crawled_at
		FROM sites WHERE domain = ?
	`, domain)
	site, err := scanSQLiteSite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, site_id, url, title, content_type, depth, success, error
		FROM crawled_pages WHERE site_id = ? ORDER BY position
	`, site.ID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("getting pages for %s: %w", domain, err)
	}
	defer rows.Close()

	pages := []Page{}
	for rows.Next() {
		var p Page
		var id, siteID string
		if err := rows.Scan(&id, &siteID, &p.URL, &p.Title, &p.ContentType, &p.Depth, &p.Success, &p.Error); err != nil {
			return nil, nil, fmt.Errorf("scanning page: %w", err)
		}
		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, nil, fmt.Errorf("parsing page id %q: %w", id, err)
		}
		if p.SiteID, err = uuid.Parse(siteID); err != nil {
			return nil, nil, fmt.Errorf("parsing site id %q: %w", siteID, err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("getting pages for %s: %w", domain, err)
	}
	return site, pages, nil
}

// DeleteSite implements Archive.
func (a *SQLiteArchive) DeleteSite(ctx context.Context, domain string) (bool, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM sites WHERE domain = ?", domain).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking site %s: %w", domain, err)
	}
	if err := deleteSQLiteSite(ctx, tx, domain); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing delete of %s: %w", domain, err)
	}
	return exists > 0, nil
}

// deleteSQLiteSite removes pages explicitly so it does not depend on the foreign_keys pragma.
func deleteSQLiteSite(ctx context.Context, tx *sql.Tx, domain string) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM crawled_pages WHERE site_id IN (SELECT id FROM sites WHERE domain = ?)
	`, domain); err != nil {
		return fmt.Errorf("deleting pages of %s: %w", domain, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sites WHERE domain = ?", domain); err != nil {
		return fmt.Errorf("deleting site %s: %w", domain, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSite(row rowScanner) (*Site, error) {
	var site Site
	var id, structure, crawledAt string
	if err := row.Scan(&id, &site.Domain, &site.StartURL, &site.TotalPages, &structure, &crawledAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning site: %w", err)
	}

	var err error
	if site.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing site id %q: %w", id, err)
	}
	if site.CrawledAt, err = time.Parse(time.RFC3339Nano, crawledAt); err != nil {
		return nil, fmt.Errorf("parsing crawled_at of %s: %w", site.Domain, err)
	}
	if err := json.Unmarshal([]byte(structure), &site.Structure); err != nil {
		return nil, fmt.Errorf("unmarshalling structure of %s: %w", site.Domain, err)
	}
	return &site, nil
}
