package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/siteqa/internal/observability"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Crawl a website and add its content to the index",
	Long: `Crawls a website, splits every page into token-bounded chunks, embeds them and stores them in the
vector index. Chunks from an earlier ingest of the same domain are replaced. The index snapshot is saved
under --index-prefix when the command finishes.`,
	RunE: runIngest,
}

var (
	ingestURL      string
	ingestMaxDepth int
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestURL, "url", "u", "", "Start URL (required)")
	ingestCmd.Flags().IntVarP(&ingestMaxDepth, "max-depth", "d", -1, "Maximum link depth (defaults to max_depth from config)")

	if err := ingestCmd.MarkFlagRequired("url"); err != nil {
		panic(fmt.Sprintf("failed to mark url flag as required: %v", err))
	}

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig, needs{embedder: true})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.service.Ingest(ctx, ingestURL, depthOrDefault(ingestMaxDepth))
	if err != nil {
		return err
	}

	p := observability.NewPrinter(os.Stdout)
	p.PrintStructure(report.Structure)
	p.PrintIngestReport(report)
	return nil
}
