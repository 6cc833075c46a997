// Package main implements the siteqa CLI: crawl a website, index its content and answer questions about it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/siteqa/internal/config"
	"github.com/jonathan/siteqa/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "siteqa",
	Short: "Crawl websites and answer questions about their content",
	Long: `siteqa crawls a website breadth-first, splits the extracted text into token-bounded chunks,
embeds them into a persisted vector index and answers questions from the most similar chunks.

Configuration can be loaded from a JSON or YAML file using --config. Command-line flags override
config file values, which override environment variables.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logging.Close()
	},
}

var (
	configPath  string
	verbose     bool
	logFile     string
	indexPrefix string
	apiKey      string
	databaseURL string

	// appConfig is the effective configuration, set before any command runs.
	appConfig *config.Config
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a .json, .yaml or .yml config file (values can be overridden by other flags)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
	flags.StringVar(&logFile, "log-file", "", "Also append log output to this file")
	flags.StringVar(&indexPrefix, "index-prefix", "", "Path prefix of the index snapshot files (defaults to SITEQA_INDEX_PREFIX or data/siteqa)")
	flags.StringVar(&apiKey, "api-key", "", "Gemini API key (optional, defaults to GEMINI_API_KEY env var)")
	flags.StringVar(&databaseURL, "db-url", "", "Crawl archive: postgres:// URL or SQLite file path (optional, defaults to DATABASE_URL env var)")
}

// loadConfig resolves file, environment and defaults, applies global flags and sets up logging.
func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if flags.Changed("index-prefix") {
		cfg.IndexPrefix = indexPrefix
	}
	if flags.Changed("api-key") {
		cfg.APIKey = apiKey
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = databaseURL
	}

	if err := logging.Init(cfg.LogFile); err != nil {
		return err
	}
	logging.SetVerbose(cfg.Verbose)

	appConfig = cfg
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
