package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/siteqa/internal/llm"
	"github.com/jonathan/siteqa/internal/prompts"
)

// structureSource is the source reported for answers built from crawl structure.
const structureSource = "Structure Overview"

var structureKeywords = []string{
	"how many pages", "pages have you scraped", "scraped pages",
	"structure analysis", "site structure", "scraped data",
	"how many sites", "how many domains", "internal links", "external links",
	"api endpoints", "images", "content types", "structure info", "structure information",
}

// IsStructureQuery reports whether question asks about the crawl itself (page counts, link
// statistics, content types) rather than about site content.
func IsStructureQuery(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range structureKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// StructureContext renders the registry and index statistics as answer context.
func (s *Service) StructureContext() (string, error) {
	sites := s.Sites()
	if len(sites) == 0 {
		return "", &Error{Stage: StageAnswer, Message: "no site structure data available"}
	}
	stats := s.IndexStats()

	header, err := prompts.Render(prompts.Answering, "structure-header", map[string]string{
		"TotalSites":   fmt.Sprint(len(sites)),
		"TotalChunks":  fmt.Sprint(stats.TotalChunks),
		"ContentTypes": formatCounts(stats.ContentTypes),
		"Domains":      formatCounts(stats.Domains),
	})
	if err != nil {
		return "", err
	}

	parts := []string{header}
	for _, site := range sites {
		st := site.Structure
		if st == nil {
			parts = append(parts, fmt.Sprintf("Domain: %s\n- Total pages: %d", site.Domain, site.TotalPages))
			continue
		}
		entry, err := prompts.Render(prompts.Answering, "structure-site", map[string]string{
			"Domain":            site.Domain,
			"TotalPages":        fmt.Sprint(site.TotalPages),
			"InternalLinks":     fmt.Sprint(st.TotalInternalLinks),
			"ExternalLinks":     fmt.Sprint(st.TotalExternalLinks),
			"APIEndpoints":      fmt.Sprint(st.TotalAPIEndpoints),
			"Images":            fmt.Sprint(st.TotalImages),
			"ExternalDomains":   strings.Join(st.ExternalDomains, ", "),
			"DepthDistribution": formatDepths(st.DepthDistribution),
		})
		if err != nil {
			return "", err
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, "\n\n"), nil
}

// AnswerStructure answers question from the crawl structure of every registered site.
func (s *Service) AnswerStructure(ctx context.Context, question string) (*Answer, error) {
	if s.answerer == nil {
		return nil, &Error{Stage: StageAnswer, Message: "no answer generator configured"}
	}
	structureContext, err := s.StructureContext()
	if err != nil {
		return nil, err
	}

	reply, err := s.answerer.Answer(ctx, question, []llm.ContextChunk{{Text: structureContext, URL: "structure_summary"}})
	if err != nil {
		return nil, &Error{Stage: StageAnswer, Message: "structure query failed", Cause: err}
	}
	return &Answer{
		Question:       question,
		Answer:         reply,
		Sources:        []string{structureSource},
		StructureQuery: true,
	}, nil
}

// formatCounts renders a count map as "a: 1, b: 2" in key order.
func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

// formatDepths renders a depth distribution as "depth 0: 1, depth 1: 4".
func formatDepths(dist map[int]int) string {
	if len(dist) == 0 {
		return "none"
	}
	depths := make([]int, 0, len(dist))
	for d := range dist {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	parts := make([]string, len(depths))
	for i, d := range depths {
		parts[i] = fmt.Sprintf("depth %d: %d", d, dist[d])
	}
	return strings.Join(parts, ", ")
}
