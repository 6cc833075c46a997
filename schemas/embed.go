// Package schemas bundles the JSON Schemas for artifacts siteqa writes to disk.
package schemas

import (
	"embed"
	"fmt"
)

// Schema file names.
const (
	ChunkSnapshot = "chunk_snapshot.schema.json"
	CrawlResult   = "crawl_result.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Get returns the content of a bundled schema.
func Get(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("schema %s not found: %w", name, err)
	}
	return string(data), nil
}

// List returns the names of all bundled schemas.
func List() []string {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
