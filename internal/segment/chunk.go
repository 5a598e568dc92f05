// Package segment splits markdown documents into retrieval-ready chunks.
// Three strategies are offered: basic (blank-line splitting), smart
// (block-aware greedy packing) and advanced (heading-scoped grouping
// with size repair).
package segment

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

// Strategy selects a segmentation algorithm.
type Strategy string

const (
	StrategyBasic    Strategy = "basic"
	StrategySmart    Strategy = "smart"
	StrategyAdvanced Strategy = "advanced"
)

// Chunk is a contiguous span of document text prepared for retrieval.
type Chunk struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
	CharCount  int    `json:"char_count"`
	Order      int    `json:"order"`

	// Content flags for downstream consumers; the segmenters themselves
	// never read these.
	ContainsTable   bool `json:"contains_table"`
	ContainsCode    bool `json:"contains_code"`
	ContainsFormula bool `json:"contains_formula"`
	ContainsList    bool `json:"contains_list"`
	ContainsHeading bool `json:"contains_heading"`

	// OversizedSpecial marks a chunk kept over budget because it holds
	// content that must not be split (a table or code block).
	OversizedSpecial bool `json:"oversized_special,omitempty"`
}

// ChunkID derives a stable chunk identifier from the document, the
// chunk's position and its content.
func ChunkID(docID string, order int, content string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", docID, order, content)))
	return fmt.Sprintf("%x", h[:])[:32]
}

// newChunk assembles a Chunk from rendered content, computing its ID,
// counts and flags.
func newChunk(docID string, order int, content string, counter *token.Counter, oversized bool) Chunk {
	return Chunk{
		ID:               ChunkID(docID, order, content),
		Content:          content,
		TokenCount:       counter.Count(content),
		CharCount:        len(content),
		Order:            order,
		ContainsTable:    strings.Contains(content, "<table"),
		ContainsCode:     strings.Contains(content, "```"),
		ContainsFormula:  containsFormula(content),
		ContainsList:     containsListLine(content),
		ContainsHeading:  containsHeadingLine(content),
		OversizedSpecial: oversized,
	}
}

// containsFormula detects inline or display LaTeX math.
func containsFormula(s string) bool {
	if strings.Contains(s, "$$") {
		return true
	}
	first := strings.IndexByte(s, '$')
	if first < 0 {
		return false
	}
	return strings.IndexByte(s[first+1:], '$') >= 0
}

func containsListLine(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "- ") {
			return true
		}
		if i := strings.IndexByte(t, '.'); i > 0 && i <= 3 && allDigits(t[:i]) && strings.HasPrefix(t[i:], ". ") {
			return true
		}
	}
	return false
}

func containsHeadingLine(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "#") && strings.Contains(t, "# ") {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
