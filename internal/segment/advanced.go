package segment

import (
	"strings"
	"unicode"

	"github.com/qqlww1987/KnowFlow-sub000/internal/mdparse"
	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

// group is a run of blocks opened at a heading boundary.
type group struct {
	blocks []mdparse.Block
	path   mdparse.HeadingPath
}

func (g *group) render() string {
	parts := make([]string, 0, len(g.blocks))
	for _, b := range g.blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n\n")
}

func (g *group) splittable() bool {
	for _, b := range g.blocks {
		if !b.IsSplittable() {
			return false
		}
		if b.Kind == mdparse.KindParagraph && containsFormula(b.Text) {
			return false
		}
	}
	return true
}

func (g *group) startsWithHeading() bool {
	return len(g.blocks) > 0 && g.blocks[0].Kind == mdparse.KindHeading
}

// advancedSegment groups blocks by heading boundaries, then repairs
// groups that fall outside the size window.
func advancedSegment(blocks []mdparse.Block, counter *token.Counter, opts Options) []piece {
	groups := splitAtHeadings(blocks, opts.Advanced)
	groups = repairOversized(groups, counter, opts)
	return repairUndersized(groups, counter, opts)
}

// splitAtHeadings is phase A: a heading at a boundary level opens a new
// group. A short numbering-only heading ("2.1.3") does not open a group
// of its own when a descriptive heading follows within the lookahead
// window; the two are kept together in one group.
func splitAtHeadings(blocks []mdparse.Block, opts AdvancedOptions) []*group {
	boundary := make(map[int]bool, len(opts.BoundaryLevels))
	for _, l := range opts.BoundaryLevels {
		boundary[l] = true
	}

	var groups []*group
	var cur *group
	foldedUntil := -1 // indexes <= foldedUntil stay in the current group

	open := func(b mdparse.Block) {
		cur = &group{path: b.HeadingPath.Clone()}
		groups = append(groups, cur)
	}

	for i, b := range blocks {
		isBoundary := b.Kind == mdparse.KindHeading && boundary[b.Level]

		if isBoundary && i > foldedUntil {
			if fold := foldTarget(blocks, i, opts); fold >= 0 {
				// Numbering label: open the group here and absorb the
				// descriptive heading without another split.
				open(b)
				foldedUntil = fold
			} else if cur == nil || len(cur.blocks) > 0 {
				open(b)
			}
		}
		if cur == nil {
			open(b)
		}
		cur.blocks = append(cur.blocks, b)
	}

	// Drop groups that ended up empty (possible only on empty input).
	out := groups[:0]
	for _, g := range groups {
		if len(g.blocks) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// foldTarget returns the index of the descriptive heading that a
// numbering-only heading at position i should fold into, or -1.
func foldTarget(blocks []mdparse.Block, i int, opts AdvancedOptions) int {
	label := strings.TrimSpace(strings.TrimLeft(blocks[i].Text, "# "))
	if !isNumberingLabel(label, opts) {
		return -1
	}
	end := i + opts.NumberingLookahead
	for j := i + 1; j <= end && j < len(blocks); j++ {
		next := blocks[j]
		if next.Kind != mdparse.KindHeading {
			return -1 // real content before any descriptive heading
		}
		title := strings.TrimSpace(strings.TrimLeft(next.Text, "# "))
		if len(title) > len(label) && !isNumberingLabel(title, opts) {
			return j
		}
	}
	return -1
}

// isNumberingLabel reports whether a heading title is a bare section
// number like "3." or "2.1.4" rather than descriptive text.
func isNumberingLabel(title string, opts AdvancedOptions) bool {
	if title == "" || len(title) > opts.NumberingMaxLen {
		return false
	}
	digits, punct, letters, total := 0, 0, 0, 0
	for _, r := range title {
		total++
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		case unicode.IsPunct(r):
			punct++
		}
	}
	if digits == 0 || letters > 2 {
		return false
	}
	return float64(digits+punct)/float64(total) >= opts.NumberingDigitRatio
}

// repairOversized is the first half of phase B: groups above the max
// threshold are split at paragraph boundaries, unless they contain
// content that must stay whole.
func repairOversized(groups []*group, counter *token.Counter, opts Options) []*group {
	maxTokens := int(float64(opts.TargetTokens) * opts.Advanced.MaxFactor)

	var out []*group
	for _, g := range groups {
		if counter.Count(g.render()) <= maxTokens || !g.splittable() {
			out = append(out, g)
			continue
		}
		out = append(out, splitGroup(g, counter, opts.TargetTokens)...)
	}
	return out
}

// splitGroup greedily re-packs a group's blocks into sub-groups of at
// most target tokens. Sub-group heading paths come from their first
// block, so a nested heading crossed mid-split re-derives the path.
func splitGroup(g *group, counter *token.Counter, target int) []*group {
	var out []*group
	var cur *group
	curTokens := 0

	for _, b := range g.blocks {
		bt := counter.Count(b.Text)
		if cur != nil && curTokens+bt > target && len(cur.blocks) > 0 {
			cur = nil
		}
		if cur == nil {
			cur = &group{path: b.HeadingPath.Clone()}
			if len(b.HeadingPath) == 0 {
				cur.path = g.path
			}
			out = append(out, cur)
			curTokens = 0
		}
		cur.blocks = append(cur.blocks, b)
		curTokens += bt
	}
	return out
}

// repairUndersized is the second half of phase B: groups below the min
// floor merge forward when the result stays under MergeFactor×target;
// otherwise they are prefixed with their heading path so a short chunk
// stays self-describing.
func repairUndersized(groups []*group, counter *token.Counter, opts Options) []piece {
	minTokens := opts.MinTokens / 2
	if minTokens < 1 {
		minTokens = 1
	}
	mergeCap := int(float64(opts.TargetTokens) * opts.Advanced.MergeFactor)
	maxTokens := int(float64(opts.TargetTokens) * opts.Advanced.MaxFactor)

	var out []piece
	for i := 0; i < len(groups); i++ {
		g := groups[i]
		content := g.render()
		tokens := counter.Count(content)

		// Merge forward while too small and the merge stays in budget.
		for tokens < minTokens && i+1 < len(groups) {
			next := groups[i+1]
			merged := content + "\n\n" + next.render()
			mt := counter.Count(merged)
			if mt > mergeCap {
				break
			}
			g = &group{blocks: append(append([]mdparse.Block{}, g.blocks...), next.blocks...), path: g.path}
			content = merged
			tokens = mt
			i++
		}

		if tokens < minTokens && !g.startsWithHeading() {
			if line := g.path.String(); line != "" {
				content = line + "\n\n" + content
			}
		}

		out = append(out, piece{
			content:   content,
			oversized: tokens > maxTokens && !g.splittable(),
		})
	}
	return out
}
