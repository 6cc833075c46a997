package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/siteqa/internal/observability"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List crawled sites",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), appConfig, needs{})
		if err != nil {
			return err
		}
		defer a.Close()

		observability.NewPrinter(os.Stdout).PrintSites(a.service.Sites())
		return nil
	},
}

var indexStatsCmd = &cobra.Command{
	Use:   "index-stats",
	Short: "Show vector index statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), appConfig, needs{})
		if err != nil {
			return err
		}
		defer a.Close()

		observability.NewPrinter(os.Stdout).PrintIndexStats(a.service.IndexStats())
		return nil
	},
}

var deleteSiteCmd = &cobra.Command{
	Use:   "delete-site",
	Short: "Remove a site from the registry, index and archive",
	RunE:  runDeleteSite,
}

var deleteSiteDomain string

func init() {
	deleteSiteCmd.Flags().StringVar(&deleteSiteDomain, "domain", "", "Domain to remove, e.g. example.com (required)")
	if err := deleteSiteCmd.MarkFlagRequired("domain"); err != nil {
		panic(fmt.Sprintf("failed to mark domain flag as required: %v", err))
	}

	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(indexStatsCmd)
	rootCmd.AddCommand(deleteSiteCmd)
}

func runDeleteSite(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(deleteSiteDomain) == "" {
		return fmt.Errorf("--domain must not be empty")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.service.DeleteSite(ctx, deleteSiteDomain)
	if err != nil {
		return err
	}
	observability.NewPrinter(os.Stdout).PrintDeleteReport(report)
	if !report.Found() {
		return fmt.Errorf("site %s not found", report.Domain)
	}
	return nil
}
