package segment

import (
	"strings"

	"github.com/qqlww1987/KnowFlow-sub000/internal/mdparse"
	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

// smartSegment greedily packs blocks into chunks bounded by target.
// Headings close the open chunk once it has reached min tokens; a table
// or code block over budget is emitted whole as its own chunk.
func smartSegment(blocks []mdparse.Block, counter *token.Counter, target, min int) []string {
	var out []string
	var cur []string
	curTokens := 0

	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, "\n\n"))
			cur = cur[:0]
			curTokens = 0
		}
	}

	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		bt := counter.Count(text)

		// Headings are natural boundaries.
		if b.Kind == mdparse.KindHeading && curTokens >= min {
			flush()
		}

		// A non-splittable block over budget stands alone.
		if !b.IsSplittable() && bt > target {
			flush()
			out = append(out, text)
			continue
		}

		// A runaway paragraph gets halved rather than emitted whole.
		if b.IsSplittable() && bt > 3*target {
			flush()
			out = append(out, halveOversized(text, counter, target)...)
			continue
		}

		if curTokens+bt > target && curTokens > 0 {
			flush()
		}

		cur = append(cur, text)
		curTokens += bt
	}
	flush()

	return out
}
