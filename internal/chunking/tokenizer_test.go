package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiktokenTokenizer_Count(t *testing.T) {
	tok, err := NewTiktokenTokenizer("")
	require.NoError(t, err)

	assert.Equal(t, 0, tok.Count(""))
	assert.Equal(t, 2, tok.Count("hello world"))
	// special token markup must not panic
	assert.Positive(t, tok.Count("before <|endoftext|> after"))
}

func TestTiktokenTokenizer_UnknownEncoding(t *testing.T) {
	_, err := NewTiktokenTokenizer("not_an_encoding")
	assert.Error(t, err)
}

func TestWhitespaceTokenizer_Count(t *testing.T) {
	assert.Equal(t, 0, WhitespaceTokenizer{}.Count("  "))
	assert.Equal(t, 3, WhitespaceTokenizer{}.Count(" a  b\nc "))
}
