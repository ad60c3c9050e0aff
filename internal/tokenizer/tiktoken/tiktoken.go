// Package tiktoken adapts OpenAI's BPE encodings to the Tokenizer interface.
// BPE ranks are loaded from the embedded offline loader, so no network
// access happens at startup.
package tiktoken

import (
	"sync"

	tk "github.com/pkoukk/tiktoken-go"
	tkloader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/hieu7404/nlp-rag/internal/errs"
)

const DefaultEncoding = "cl100k_base"

var setLoader sync.Once

// Tokenizer wraps a tiktoken encoding.
type Tokenizer struct {
	encoding string
	enc      *tk.Tiktoken
}

// New loads the named encoding ("cl100k_base", "o200k_base", ...).
func New(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	setLoader.Do(func() {
		tk.SetBpeLoader(tkloader.NewOfflineLoader())
	})
	enc, err := tk.GetEncoding(encoding)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTokenizerLoadFailure, "loading tiktoken encoding", errs.Field("encoding", encoding))
	}
	return &Tokenizer{encoding: encoding, enc: enc}, nil
}

// Name returns the identifier of this tokenizer.
func (t *Tokenizer) Name() string { return "tiktoken/" + t.encoding }

// Encode returns BPE token ids. Special tokens are treated as plain text.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode converts token ids back to text. A cut through a multi-byte rune
// yields replacement characters, which is accepted for chunk boundaries.
func (t *Tokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
