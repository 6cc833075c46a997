// Package migrations embeds the crawl archive schema for each supported database.
package migrations

import "embed"

// SQLite holds the versioned SQLite migrations (NNN_name.up.sql).
//
//go:embed sqlite/*.sql
var SQLite embed.FS

// Postgres holds the PostgreSQL schema. Every statement is idempotent.
//
//go:embed postgres/*.sql
var Postgres embed.FS
