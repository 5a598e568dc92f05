// Package token provides the shared token counter used by every
// size-deciding component. Segmentation, size repair and hierarchy
// packing are only consistent if they all count with the same vocabulary.
package token

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts sub-word tokens using the cl100k_base BPE vocabulary.
// If the encoder cannot be initialized it degrades to a character-based
// estimate; size decisions are advisory, so counting must never fail.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewCounter returns a Counter. The encoder is loaded lazily on first use.
func NewCounter() *Counter {
	return &Counter{}
}

// Count returns the number of tokens in text. Never returns a negative
// value and never panics.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			c.enc = enc
		}
	})
	if c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate gives a rough token count without a vocabulary, using the
// ~4 chars/token rule adjusted by word count for English-like text.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	byChars := len(text) / 4
	tokens := byChars
	if words > byChars {
		tokens = words
	}
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
