package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/siteqa/internal/observability"
	"github.com/jonathan/siteqa/internal/schemas"
	schemafiles "github.com/jonathan/siteqa/schemas"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a website and report its structure",
	Long: `Crawls a website breadth-first from the start URL up to --max-depth, extracting text from HTML pages,
JSON API responses and images. The crawl is recorded in the site registry and archive but not embedded.
Use --out to also write the full crawl result as JSON.`,
	RunE: runCrawl,
}

var (
	crawlURL      string
	crawlMaxDepth int
	crawlOutput   string
)

func init() {
	crawlCmd.Flags().StringVarP(&crawlURL, "url", "u", "", "Start URL (required)")
	crawlCmd.Flags().IntVarP(&crawlMaxDepth, "max-depth", "d", -1, "Maximum link depth (defaults to max_depth from config)")
	crawlCmd.Flags().StringVarP(&crawlOutput, "out", "o", "", "Write the crawl result JSON to this file")

	if err := crawlCmd.MarkFlagRequired("url"); err != nil {
		panic(fmt.Sprintf("failed to mark url flag as required: %v", err))
	}

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.Crawl(ctx, crawlURL, depthOrDefault(crawlMaxDepth))
	if err != nil {
		return err
	}

	if crawlOutput != "" {
		if err := schemas.ValidateValue(schemafiles.CrawlResult, result); err != nil {
			return fmt.Errorf("crawl result failed schema validation: %w", err)
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal crawl result to JSON: %w", err)
		}
		if dir := filepath.Dir(crawlOutput); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(crawlOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write crawl result %s: %w", crawlOutput, err)
		}
	}

	observability.NewPrinter(os.Stdout).PrintStructure(result.Structure)
	_, _ = fmt.Fprintf(os.Stdout, "Crawled %d pages\n", len(result.Pages))
	if crawlOutput != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Crawl result: %s\n", crawlOutput)
	}
	return nil
}

// depthOrDefault returns flagValue unless it was left negative, in which case the configured depth applies.
func depthOrDefault(flagValue int) int {
	if flagValue < 0 {
		return appConfig.MaxDepth
	}
	return flagValue
}
