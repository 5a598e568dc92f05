// Package coordmap aligns text chunks back to the page positions of the
// OCR layout elements they were cut from. One anchor-and-expand
// algorithm serves both supported OCR engines; the engines differ only
// in bbox axis order, DPI and page numbering, handled by per-system
// normalization.
package coordmap

import (
	"strings"
)

// System selects the coordinate convention of the layout elements.
type System string

const (
	SystemMinerU System = "mineru"
	SystemDOTS   System = "dots"
)

// LayoutElement is one OCR-extracted fragment: its text, its bounding
// box in the engine's native convention and its page. Supplied per call
// by the layout-extraction collaborator; never mutated here.
type LayoutElement struct {
	Text     string    `json:"text"`
	BBox     []float64 `json:"bbox"`
	Page     int       `json:"page"`
	Category string    `json:"category,omitempty"`
}

// Position is a normalized page-relative bounding box:
// [page_index, x1, x2, y1, y2] in 72 DPI PDF space, page 0-based.
type Position [5]float64

// Matching thresholds. An anchor needs either a long common run or near
// total containment of the element's text; neighbors join on a shorter
// run covering at least half the element.
const (
	anchorMinRun      = 10
	anchorMinCoverage = 0.8
	expandMinRun      = 4
	expandMinCoverage = 0.5
)

// Map finds the layout elements a chunk was cut from and returns their
// normalized positions in element order. It returns nil when no element
// matches well enough; coordinates are best-effort metadata and a chunk
// without them is still valid. Matched element indexes are recorded in
// consumed so later chunks cannot reuse them.
func Map(chunkText string, elements []LayoutElement, system System, consumed *ConsumedSet) []Position {
	if chunkText == "" || len(elements) == 0 || consumed == nil {
		return nil
	}

	chunkIsTable := isHTMLTable(chunkText)
	chunkRunes := compact(chunkText)
	tableRunes := chunkRunes
	if chunkIsTable {
		tableRunes = compact(tableFragmentText(chunkText))
	}

	anchor := selectAnchor(elements, consumed, chunkIsTable, chunkRunes, tableRunes)
	if anchor < 0 {
		return nil
	}

	lo := anchor
	for lo-1 >= 0 && matchesChunk(elements[lo-1], consumed.Has(lo-1), chunkRunes) {
		lo--
	}
	hi := anchor
	for hi+1 < len(elements) && matchesChunk(elements[hi+1], consumed.Has(hi+1), chunkRunes) {
		hi++
	}

	var positions []Position
	for i := lo; i <= hi; i++ {
		consumed.Add(i)
		if pos, ok := normalize(elements[i], system); ok {
			positions = append(positions, pos)
		}
	}
	return positions
}

// selectAnchor scores every unconsumed element against the chunk and
// returns the index of the best qualifying one, or -1.
func selectAnchor(elements []LayoutElement, consumed *ConsumedSet, chunkIsTable bool, chunkRunes, tableRunes []rune) int {
	best := -1
	bestScore := 0.0

	for i, el := range elements {
		if consumed.Has(i) || strings.TrimSpace(el.Text) == "" {
			continue
		}

		elIsTable := strings.EqualFold(el.Category, CategoryTable) || isHTMLTable(el.Text)
		if chunkIsTable != elIsTable {
			// Table chunks match only table elements and vice versa.
			continue
		}

		target := chunkRunes
		elText := el.Text
		if chunkIsTable && isHTMLTable(el.Text) {
			target = tableRunes
			elText = tableFragmentText(el.Text)
		}
		elRunes := compact(elText)
		if len(elRunes) == 0 {
			continue
		}

		run := longestCommonRun(elRunes, target)
		coverage := float64(run) / float64(len(elRunes))
		if run < anchorMinRun && coverage < anchorMinCoverage {
			continue
		}
		// Weight by how much of the element the match covers, so an
		// element almost entirely contained in the chunk beats one that
		// merely shares a long substring.
		score := float64(run) * coverage
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// CategoryTable is the element category OCR engines assign to tables.
const CategoryTable = "table"

// matchesChunk is the expansion test: an unconsumed neighbor joins the
// run when its text is substantially contained in the chunk.
func matchesChunk(el LayoutElement, alreadyConsumed bool, chunkRunes []rune) bool {
	if alreadyConsumed {
		return false
	}
	elRunes := compact(el.Text)
	if len(elRunes) == 0 {
		return false
	}
	run := longestCommonRun(elRunes, chunkRunes)
	if run < expandMinRun && run < len(elRunes) {
		return false
	}
	return float64(run)/float64(len(elRunes)) >= expandMinCoverage
}
