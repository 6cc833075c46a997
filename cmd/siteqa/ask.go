package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/siteqa/internal/observability"
	"github.com/jonathan/siteqa/internal/pipeline"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the indexed content",
	Long: `Embeds the question, retrieves the most similar chunks from the index and asks the language model
to answer using only that context. Questions about the crawled sites themselves ("what pages did you
crawl?") are answered from the recorded site structure.`,
	RunE: runAsk,
}

var (
	askQuestion string
	askTopK     int
)

func init() {
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "Question to answer (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "Number of chunks to retrieve (defaults to top_k from config)")

	if err := askCmd.MarkFlagRequired("question"); err != nil {
		panic(fmt.Sprintf("failed to mark question flag as required: %v", err))
	}

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig, needs{embedder: true, answerer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.service.Ask(ctx, askQuestion, askTopK)
	if errors.Is(err, pipeline.ErrNoContent) {
		return fmt.Errorf("nothing has been indexed yet: run 'siteqa ingest --url <start-url>' first")
	}
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintAnswer(answer)
	return nil
}
