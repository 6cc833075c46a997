// Package chunking splits page text into token-bounded chunks that overlap at sentence boundaries.
package chunking

import (
	"regexp"
	"strings"

	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/types"
)

const (
	// DefaultMaxTokens is the largest token count a chunk may have.
	DefaultMaxTokens = 500
	// DefaultOverlapTokens bounds the sentences carried over into the next chunk.
	DefaultOverlapTokens = 50
)

// sentenceEnd matches terminal punctuation followed by whitespace. The split point is
// placed after the punctuation so sentences keep their terminator.
var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// Chunker splits text greedily by sentences, falling back to words for oversized sentences.
type Chunker struct {
	maxTokens     int
	overlapTokens int
	tokenizer     Tokenizer
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxTokens sets the maximum number of tokens per chunk.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithOverlap sets the token budget for sentences repeated at the start of the next chunk.
// Zero disables overlap.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlapTokens = n
		}
	}
}

// New creates a chunker that counts tokens with tokenizer.
func New(tokenizer Tokenizer, opts ...Option) *Chunker {
	c := &Chunker{
		maxTokens:     DefaultMaxTokens,
		overlapTokens: DefaultOverlapTokens,
		tokenizer:     tokenizer,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlapTokens >= c.maxTokens {
		c.overlapTokens = c.maxTokens / 4
	}
	return c
}

// MaxTokens returns the configured chunk size.
func (c *Chunker) MaxTokens() int {
	return c.maxTokens
}

// OverlapTokens returns the configured overlap budget.
func (c *Chunker) OverlapTokens() int {
	return c.overlapTokens
}

// Chunk splits text into chunks tagged with sourceURL, contentType and metadata.
// Whitespace-only text yields no chunks. Text that fits in one chunk is returned trimmed but otherwise
// unchanged; longer text is rebuilt from sentences (or words) joined by single spaces.
func (c *Chunker) Chunk(text, sourceURL, contentType string, metadata types.ChunkMetadata) []types.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return []types.Chunk{}
	}

	var texts []string
	if c.tokenizer.Count(text) <= c.maxTokens {
		texts = []string{text}
	} else {
		texts = c.split(text)
	}

	chunks := make([]types.Chunk, 0, len(texts))
	for i, chunkText := range texts {
		chunks = append(chunks, types.Chunk{
			Text:        chunkText,
			Tokens:      c.tokenizer.Count(chunkText),
			URL:         sourceURL,
			ChunkID:     i,
			ContentType: contentType,
			Metadata:    metadata,
		})
	}

	logging.Debugf("[CHUNK] Split text from %s into %d chunks", sourceURL, len(chunks))
	return chunks
}

// split accumulates sentences into chunks of at most maxTokens.
func (c *Chunker) split(text string) []string {
	var out []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
		}
	}

	for _, sentence := range SplitSentences(text) {
		if c.tokenizer.Count(sentence) > c.maxTokens {
			flush()
			current = nil
			out = append(out, c.splitWords(sentence)...)
			continue
		}

		if len(current) > 0 && c.joinedCount(current, sentence) > c.maxTokens {
			flush()
			current = c.overlapSeed(current)
			if len(current) > 0 && c.joinedCount(current, sentence) > c.maxTokens {
				current = nil
			}
		}
		current = append(current, sentence)
	}
	flush()

	return out
}

// overlapSeed picks the sentences of a closed chunk that open the next one: the last two when they fit
// the overlap budget, otherwise the last one. Single-sentence chunks carry nothing over.
func (c *Chunker) overlapSeed(closed []string) []string {
	if c.overlapTokens <= 0 || len(closed) < 2 {
		return nil
	}
	lastTwo := closed[len(closed)-2:]
	if c.tokenizer.Count(strings.Join(lastTwo, " ")) <= c.overlapTokens {
		return []string{lastTwo[0], lastTwo[1]}
	}
	return []string{closed[len(closed)-1]}
}

// splitWords breaks an oversized sentence into word runs. A single word larger than maxTokens
// becomes its own chunk.
func (c *Chunker) splitWords(sentence string) []string {
	var out []string
	var words []string
	tokens := 0

	for _, word := range strings.Fields(sentence) {
		cost := c.tokenizer.Count(word + " ")
		if tokens+cost > c.maxTokens && len(words) > 0 {
			out = append(out, strings.Join(words, " "))
			words = nil
			tokens = 0
		}
		words = append(words, word)
		tokens += cost
	}
	if len(words) > 0 {
		out = append(out, strings.Join(words, " "))
	}
	return out
}

func (c *Chunker) joinedCount(current []string, next string) int {
	return c.tokenizer.Count(strings.Join(current, " ") + " " + next)
}

// SplitSentences splits text after '.', '!' or '?' followed by whitespace and drops empty pieces.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// loc[0] is the punctuation; keep it with the sentence
		if s := strings.TrimSpace(text[start : loc[0]+1]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
