package chunking

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the BPE encoding used for token counting.
const DefaultEncoding = "cl100k_base"

// Tokenizer counts tokens in a piece of text.
type Tokenizer interface {
	Count(text string) int
}

var setLoaderOnce sync.Once

// TiktokenTokenizer counts tokens with a tiktoken BPE encoding.
// Encodings are bundled with the binary, so no network access is needed.
type TiktokenTokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the named encoding ("" means cl100k_base).
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	setLoaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoding, err)
	}
	return &TiktokenTokenizer{encoding: enc}, nil
}

// Count returns the number of BPE tokens in text. Special-token markup is counted as ordinary text.
func (t *TiktokenTokenizer) Count(text string) int {
	return len(t.encoding.EncodeOrdinary(text))
}

// WhitespaceTokenizer treats every whitespace-separated field as one token.
type WhitespaceTokenizer struct{}

// Count returns the number of whitespace-separated fields in text.
func (WhitespaceTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}
