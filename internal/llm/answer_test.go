package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingClient captures the prompts it receives and returns a canned reply.
type recordingClient struct {
	system string
	prompt string
	tier   ModelTier
	calls  int
	reply  string
	err    error
}

func (c *recordingClient) GenerateContent(_ context.Context, systemPrompt, prompt string, tier ModelTier) (string, error) {
	c.calls++
	c.system = systemPrompt
	c.prompt = prompt
	c.tier = tier
	return c.reply, c.err
}

func (c *recordingClient) Close() error { return nil }

func TestAnswer_NoChunksSkipsModel(t *testing.T) {
	client := &recordingClient{reply: "unused"}

	answer, err := NewAnswerGenerator(client).Answer(context.Background(), "What is this?", nil)
	require.NoError(t, err)
	assert.Equal(t, InsufficientInformation(), answer)
	assert.Contains(t, answer, "don't have enough information")
	assert.Equal(t, 0, client.calls)
}

func TestAnswer_BuildsPromptFromChunks(t *testing.T) {
	client := &recordingClient{reply: "We open at 9."}
	chunks := []ContextChunk{
		{Text: "Opening hours are 9 to 5.", URL: "https://shop.example/hours"},
		{Text: "Closed on Sundays.", URL: "https://shop.example/faq"},
	}

	answer, err := NewAnswerGenerator(client).Answer(context.Background(), "When do you open?", chunks)
	require.NoError(t, err)

	assert.Equal(t, "We open at 9.", answer)
	assert.Equal(t, TierStandard, client.tier)
	assert.Contains(t, client.system, "only the website content")
	assert.Contains(t, client.prompt, "Content: Opening hours are 9 to 5.\nSource: https://shop.example/hours")
	assert.Contains(t, client.prompt, "Content: Closed on Sundays.")
	assert.Contains(t, client.prompt, "Question: When do you open?")
}

func TestAnswer_WithTier(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	_, err := NewAnswerGenerator(client).WithTier(TierLite).
		Answer(context.Background(), "q", []ContextChunk{{Text: "t", URL: "u"}})
	require.NoError(t, err)
	assert.Equal(t, TierLite, client.tier)
}

func TestAnswer_ProviderErrorPropagates(t *testing.T) {
	client := &recordingClient{err: &ProviderError{Message: "quota", Cause: errors.New("429")}}

	_, err := NewAnswerGenerator(client).Answer(context.Background(), "q", []ContextChunk{{Text: "t", URL: "u"}})
	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, err.Error(), "429")
}

func TestBuildContext(t *testing.T) {
	ctx := BuildContext([]ContextChunk{{Text: "a", URL: "u1"}, {Text: "b", URL: "u2"}})
	assert.Equal(t, "Content: a\nSource: u1\n\nContent: b\nSource: u2", ctx)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
