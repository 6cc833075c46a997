package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/siteqa/internal/observability"
	"github.com/jonathan/siteqa/internal/pipeline"
	"github.com/jonathan/siteqa/internal/types"
	"github.com/jonathan/siteqa/internal/vectorindex"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show the indexed chunks most similar to a query",
	Long:  "Embeds the query and prints the nearest chunks with their L2 distance, optionally filtered by content type or domain.",
	RunE:  runSearch,
}

var (
	searchQuery       string
	searchTopK        int
	searchContentType string
	searchDomain      string
	searchJSON        bool
)

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "Number of results (defaults to top_k from config)")
	searchCmd.Flags().StringVar(&searchContentType, "content-type", "", "Only return chunks of this content type (html, json or image)")
	searchCmd.Flags().StringVar(&searchDomain, "domain", "", "Only return chunks from this domain")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")

	if err := searchCmd.MarkFlagRequired("query"); err != nil {
		panic(fmt.Sprintf("failed to mark query flag as required: %v", err))
	}

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig, needs{embedder: true})
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.service.Search(ctx, searchQuery, searchTopK, searchFilter(searchContentType, searchDomain))
	if errors.Is(err, pipeline.ErrNoContent) {
		results = []types.SearchResult{}
	} else if err != nil {
		return err
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal search results to JSON: %w", err)
		}
		_, _ = fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	observability.NewPrinter(os.Stdout).PrintSearchResults(results)
	return nil
}

// searchFilter returns nil when no restriction was requested.
func searchFilter(contentType, domain string) *vectorindex.Filter {
	if contentType == "" && domain == "" {
		return nil
	}
	return &vectorindex.Filter{ContentType: contentType, Domain: domain}
}
