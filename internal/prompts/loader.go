// Package prompts holds the prompt templates sent to the language model.
// Each embedded JSON file maps a key to a template with {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Answering is the prompt file used for question answering and structure summaries.
const Answering = "answering.json"

//go:embed *.json
var promptFiles embed.FS

// Set is the parsed content of one prompt file.
type Set struct {
	name    string
	entries map[string]string
}

var (
	setsMu sync.Mutex
	sets   = map[string]*Set{}
)

// Load parses an embedded prompt file. Parsed files are kept for the life of the process.
func Load(filename string) (*Set, error) {
	setsMu.Lock()
	defer setsMu.Unlock()

	if s, ok := sets[filename]; ok {
		return s, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	s := &Set{name: filename, entries: entries}
	sets[filename] = s
	return s, nil
}

// Get returns the template stored under key.
func (s *Set) Get(key string) (string, error) {
	tmpl, ok := s.entries[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, s.name)
	}
	return tmpl, nil
}

// Render returns the template under key with its placeholders filled from data.
func (s *Set) Render(key string, data map[string]string) (string, error) {
	tmpl, err := s.Get(key)
	if err != nil {
		return "", err
	}
	return Format(tmpl, data), nil
}

// Keys lists the prompt keys in sorted order.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Get loads filename and returns the template stored under key.
func Get(filename, key string) (string, error) {
	s, err := Load(filename)
	if err != nil {
		return "", err
	}
	return s.Get(key)
}

// MustGet is Get for prompts the program cannot run without. It panics on a missing file or key.
func MustGet(filename, key string) string {
	tmpl, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return tmpl
}

// Render loads filename and renders the template under key.
func Render(filename, key string, data map[string]string) (string, error) {
	s, err := Load(filename)
	if err != nil {
		return "", err
	}
	return s.Render(key, data)
}

// Format substitutes {{.Key}} placeholders in one pass, so values are never expanded again.
// Placeholders with no value in data stay as they are.
func Format(tmpl string, data map[string]string) string {
	if len(data) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
