package tiktoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	tok, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "tiktoken/cl100k_base", tok.Name())

	text := "The quick brown fox jumps over the lazy dog."
	ids := tok.Encode(text)
	require.NotEmpty(t, ids)
	assert.Equal(t, text, tok.Decode(ids))
}

func TestUnknownEncoding(t *testing.T) {
	_, err := New("no_such_encoding")
	assert.Error(t, err)
}
