package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

// basicSegment is the structure-free fallback: split on blank lines,
// merge adjacent short paragraphs up to target, and tolerate oversized
// paragraphs unless they blow past 3× the budget, in which case they
// are halved at a character midpoint.
func basicSegment(text string, counter *token.Counter, target int) []string {
	paragraphs := splitParagraphs(text)

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

	for _, para := range paragraphs {
		pt := counter.Count(para)

		if pt > 3*target {
			flush()
			out = append(out, halveOversized(para, counter, target)...)
			continue
		}

		if curTokens+pt > target && curTokens > 0 {
			flush()
		}
		cur = append(cur, para)
		curTokens += pt
	}
	flush()

	return out
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// halveOversized splits a paragraph at its character midpoint, nudged to
// the nearest space so words stay whole, until no half exceeds 3× target.
func halveOversized(para string, counter *token.Counter, target int) []string {
	if counter.Count(para) <= 3*target || len(para) < 2 {
		return []string{para}
	}
	mid := len(para) / 2
	cut := strings.LastIndexByte(para[:mid], ' ')
	if cut <= 0 {
		cut = mid
		for cut > 0 && !utf8.RuneStart(para[cut]) {
			cut--
		}
	}
	left := strings.TrimSpace(para[:cut])
	right := strings.TrimSpace(para[cut:])
	var out []string
	if left != "" {
		out = append(out, halveOversized(left, counter, target)...)
	}
	if right != "" {
		out = append(out, halveOversized(right, counter, target)...)
	}
	return out
}
