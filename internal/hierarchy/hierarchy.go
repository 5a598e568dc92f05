// Package hierarchy packs ordered child chunks into larger parent
// chunks for two-level retrieval: fine-grained children for precision,
// coarse parents for context.
package hierarchy

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/qqlww1987/KnowFlow-sub000/internal/segment"
	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

// DefaultRelevance is the fixed child→parent relevance until a real
// scoring model exists.
const DefaultRelevance = 1.0

// Parent aggregates a contiguous run of child chunks.
type Parent struct {
	ID               string `json:"id"`
	Content          string `json:"content"`
	TokenCount       int    `json:"token_count"`
	Order            int    `json:"order"`
	ContainsChildren int    `json:"contains_children"`
}

// Relationship links one child chunk to its parent.
type Relationship struct {
	ChildID   string  `json:"child_id"`
	ParentID  string  `json:"parent_id"`
	Relevance float64 `json:"relevance"`
}

// Build packs children left to right into parents bounded by
// parentBudget tokens. Children keep their order, every child lands in
// exactly one parent, and the final buffer is always sealed. A child
// over the budget on its own is not an error: the seal rule gives it a
// single-child parent and packing of the remaining children continues
// under the original budget.
func Build(docID string, children []segment.Chunk, parentBudget int, counter *token.Counter) ([]Parent, []Relationship) {
	if len(children) == 0 {
		return nil, nil
	}
	if parentBudget <= 0 {
		parentBudget = 1024
	}

	var parents []Parent
	var rels []Relationship

	var buf []segment.Chunk
	bufTokens := 0

	seal := func() {
		if len(buf) == 0 {
			return
		}
		parts := make([]string, len(buf))
		for i, c := range buf {
			parts[i] = c.Content
		}
		content := strings.Join(parts, "\n\n")
		p := Parent{
			ID:               parentID(docID, len(parents), content),
			Content:          content,
			TokenCount:       counter.Count(content),
			Order:            len(parents),
			ContainsChildren: len(buf),
		}
		for _, c := range buf {
			rels = append(rels, Relationship{ChildID: c.ID, ParentID: p.ID, Relevance: DefaultRelevance})
		}
		parents = append(parents, p)
		buf = buf[:0]
		bufTokens = 0
	}

	for _, child := range children {
		if len(buf) > 0 && bufTokens+child.TokenCount > parentBudget {
			seal()
		}
		buf = append(buf, child)
		bufTokens += child.TokenCount
	}
	seal()

	return parents, rels
}

func parentID(docID string, order int, content string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|parent|%d|%s", docID, order, content)))
	return fmt.Sprintf("%x", h[:])[:32]
}
