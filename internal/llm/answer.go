package llm

import (
	"context"
	"strings"

	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/prompts"
)

// ContextChunk is one retrieved piece of website content handed to the model.
type ContextChunk struct {
	Text string
	URL  string
}

// AnswerGenerator answers questions from retrieved website content.
type AnswerGenerator struct {
	client Client
	tier   ModelTier
}

// NewAnswerGenerator creates an answer generator that calls client with the standard tier.
func NewAnswerGenerator(client Client) *AnswerGenerator {
	return &AnswerGenerator{client: client, tier: TierStandard}
}

// WithTier returns a copy of the generator that uses tier.
func (g *AnswerGenerator) WithTier(tier ModelTier) *AnswerGenerator {
	cp := *g
	cp.tier = tier
	return &cp
}

// InsufficientInformation is the reply used when there is no context to answer from.
func InsufficientInformation() string {
	return prompts.MustGet(prompts.Answering, "insufficient-information")
}

// Answer asks the model to answer question using only chunks. With no chunks it returns the
// insufficient-information reply without calling the model.
func (g *AnswerGenerator) Answer(ctx context.Context, question string, chunks []ContextChunk) (string, error) {
	if len(chunks) == 0 {
		logging.Infof("[ANSWER] No context for question, returning insufficient-information reply")
		return InsufficientInformation(), nil
	}

	systemPrompt, err := prompts.Get(prompts.Answering, "answer-system")
	if err != nil {
		return "", err
	}
	userPrompt, err := prompts.Render(prompts.Answering, "answer-user", map[string]string{
		"Context":  BuildContext(chunks),
		"Question": question,
	})
	if err != nil {
		return "", err
	}

	answer, err := g.client.GenerateContent(ctx, systemPrompt, userPrompt, g.tier)
	if err != nil {
		return "", err
	}

	logging.Infof("[ANSWER] Generated answer for question: %s", truncate(question, 50))
	return answer, nil
}

// BuildContext renders chunks as the context block of the answer prompt.
func BuildContext(chunks []ContextChunk) string {
	entry := prompts.MustGet(prompts.Answering, "context-entry")
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, prompts.Format(entry, map[string]string{"Text": c.Text, "URL": c.URL}))
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
