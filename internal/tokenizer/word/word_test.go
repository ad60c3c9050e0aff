package word

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tok := New()
	ids := tok.Encode("Cat   sat on the mat, quietly.")
	require.Len(t, ids, 8)
	assert.Equal(t, "Cat sat on the mat, quietly.", tok.Decode(ids))
}

func TestEncodeIsDeterministic(t *testing.T) {
	tok := New()
	a := tok.Encode("Dog ran in park")
	b := tok.Encode("Dog ran in park")
	assert.Equal(t, a, b)
	assert.Equal(t, 4, tok.VocabularySize())
}

func TestEncodeEmpty(t *testing.T) {
	tok := New()
	assert.Empty(t, tok.Encode("   \n\t"))
	assert.Equal(t, "", tok.Decode(nil))
}

func TestDecodeUnknownID(t *testing.T) {
	tok := New()
	ids := tok.Encode("hello")
	assert.Equal(t, "hello <unk>", tok.Decode(append(ids, 99)))
}

func TestEncodeUnicode(t *testing.T) {
	tok := New()
	ids := tok.Encode("Hà Nội là thủ đô")
	require.Len(t, ids, 5)
	assert.Equal(t, "Hà Nội là thủ đô", tok.Decode(ids))
}

func TestEncodeSkipsUnicodeWhitespace(t *testing.T) {
	tok := New()
	ids := tok.Encode("Cat\u00a0\u00a0sat\u2003on\u3000mat.")
	require.Len(t, ids, 5)
	assert.Equal(t, "Cat sat on mat.", tok.Decode(ids))
}
