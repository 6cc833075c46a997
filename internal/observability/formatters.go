// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/siteqa/internal/crawling"
	"github.com/jonathan/siteqa/internal/pipeline"
	"github.com/jonathan/siteqa/internal/types"
	"github.com/jonathan/siteqa/internal/vectorindex"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if r := []rune(line); len(r) > boxWidth-4 {
			line = string(r[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintStructure outputs the link and page statistics of one crawl.
func (p *Printer) PrintStructure(st *types.SiteStructure) {
	if st == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Domain:          %s\n", st.Domain))
	sb.WriteString(fmt.Sprintf("Start URL:       %s\n", st.StartURL))
	sb.WriteString(fmt.Sprintf("Pages:           %d\n", st.TotalPages))
	sb.WriteString(fmt.Sprintf("Internal links:  %d\n", st.TotalInternalLinks))
	sb.WriteString(fmt.Sprintf("External links:  %d\n", st.TotalExternalLinks))
	sb.WriteString(fmt.Sprintf("API endpoints:   %d\n", st.TotalAPIEndpoints))
	sb.WriteString(fmt.Sprintf("Images:          %d\n", st.TotalImages))
	sb.WriteString(fmt.Sprintf("Content types:   %s\n", strings.Join(st.ContentTypes, ", ")))

	if len(st.DepthDistribution) > 0 {
		depths := make([]int, 0, len(st.DepthDistribution))
		for d := range st.DepthDistribution {
			depths = append(depths, d)
		}
		sort.Ints(depths)
		sb.WriteString("\nDepth distribution:\n")
		for _, d := range depths {
			sb.WriteString(fmt.Sprintf("  depth %d: %d pages\n", d, st.DepthDistribution[d]))
		}
	}

	if len(st.ExternalDomains) > 0 {
		sb.WriteString("\nExternal domains:\n")
		count := min(len(st.ExternalDomains), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", st.ExternalDomains[i]))
		}
		if len(st.ExternalDomains) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(st.ExternalDomains)-maxItemsToShow))
		}
	}

	p.printBox("SITE STRUCTURE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIngestReport outputs the counts of an ingest run.
func (p *Printer) PrintIngestReport(report *pipeline.IngestReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Domain:             %s\n", report.Domain))
	sb.WriteString(fmt.Sprintf("Pages scraped:      %d\n", report.PagesScraped))
	sb.WriteString(fmt.Sprintf("Chunks created:     %d\n", report.ChunksCreated))
	sb.WriteString(fmt.Sprintf("Embeddings stored:  %d", report.EmbeddingsStored))
	if report.ChunksReplaced > 0 {
		sb.WriteString(fmt.Sprintf("\nChunks replaced:    %d", report.ChunksReplaced))
	}

	p.printBox("INGEST COMPLETE", sb.String())
}

// PrintSearchResults outputs ranked chunks with their distances.
func (p *Printer) PrintSearchResults(results []types.SearchResult) {
	if len(results) == 0 {
		p.printBox("SEARCH RESULTS", "No matching chunks")
		return
	}

	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", r.Rank, r.URL))
		sb.WriteString(fmt.Sprintf("    Distance: %.4f  Type: %s  Tokens: %d\n", r.SimilarityScore, r.ContentType, r.Tokens))
		sb.WriteString(fmt.Sprintf("    %s\n", preview(r.Text, 48)))
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("SEARCH RESULTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAnswer outputs an answer followed by its sources.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintAnswer(answer *pipeline.Answer) {
	if answer == nil {
		return
	}

	fmt.Fprintln(p.out, answer.Answer)
	if len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Sources:")
	for _, src := range answer.Sources {
		fmt.Fprintf(p.out, "  • %s\n", src)
	}
}

// PrintSites outputs one line per crawled site.
func (p *Printer) PrintSites(sites []crawling.SiteSummary) {
	if len(sites) == 0 {
		p.printBox("CRAWLED SITES", "No sites crawled yet")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total sites: %d\n\n", len(sites)))
	for _, site := range sites {
		sb.WriteString(fmt.Sprintf("%s  (%d pages", site.Domain, site.TotalPages))
		if !site.ScrapedAt.IsZero() {
			sb.WriteString(", " + site.ScrapedAt.Format("2006-01-02 15:04"))
		}
		sb.WriteString(")\n")
	}

	p.printBox("CRAWLED SITES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIndexStats outputs the chunk counts of the index.
func (p *Printer) PrintIndexStats(stats vectorindex.Stats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total chunks:  %d\n", stats.TotalChunks))
	sb.WriteString(fmt.Sprintf("Dimension:     %d\n", stats.Dimension))

	writeCounts(&sb, "Content types", stats.ContentTypes)
	writeCounts(&sb, "Domains", stats.Domains)

	p.printBox("INDEX STATISTICS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDeleteReport outputs what a site deletion removed.
func (p *Printer) PrintDeleteReport(report *pipeline.DeleteReport) {
	if report == nil {
		return
	}
	if !report.Found() {
		p.printBox("DELETE SITE", fmt.Sprintf("Nothing stored for %s", report.Domain))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Domain:            %s\n", report.Domain))
	sb.WriteString(fmt.Sprintf("Chunks removed:    %d\n", report.ChunksRemoved))
	sb.WriteString(fmt.Sprintf("Registry entry:    %s\n", removedLabel(report.RegistryRemoved)))
	sb.WriteString(fmt.Sprintf("Archive entry:     %s", removedLabel(report.ArchiveRemoved)))

	p.printBox("DELETE SITE", sb.String())
}

func writeCounts(sb *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString(fmt.Sprintf("\n%s:\n", title))
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  • %s: %d\n", k, counts[k]))
	}
}

func removedLabel(removed bool) string {
	if removed {
		return "removed"
	}
	return "not present"
}

// preview returns the first n runes of text on a single line.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
