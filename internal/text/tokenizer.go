package text

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding used by the text-embedding-3-* and ada-002 models.
const defaultEncoding = "cl100k_base"

type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the cl100k_base encoding.
func NewTiktokenTokenizer() (*TiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", defaultEncoding, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
