// Package mdparse turns raw markdown into an ordered sequence of typed
// blocks with heading context, the input every segmentation strategy
// works from.
package mdparse

import "strings"

// Kind identifies the structural type of a block.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindTable
	KindCode
	KindList
	KindBlockquote
	KindRule
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindTable:
		return "table"
	case KindCode:
		return "code"
	case KindList:
		return "list"
	case KindBlockquote:
		return "blockquote"
	case KindRule:
		return "rule"
	default:
		return "paragraph"
	}
}

// HeadingEntry is one ancestor heading on the path to a block.
type HeadingEntry struct {
	Level int
	Title string
}

// HeadingPath is the ordered stack of ancestor headings active at a
// block's position, shallowest first.
type HeadingPath []HeadingEntry

// String renders the path as a single breadcrumb line.
func (p HeadingPath) String() string {
	if len(p) == 0 {
		return ""
	}
	titles := make([]string, len(p))
	for i, e := range p {
		titles[i] = e.Title
	}
	return strings.Join(titles, " > ")
}

// Clone returns an independent copy; paths are attached to many blocks
// and must not alias the parser's working stack.
func (p HeadingPath) Clone() HeadingPath {
	if len(p) == 0 {
		return nil
	}
	out := make(HeadingPath, len(p))
	copy(out, p)
	return out
}

// Block is a typed fragment of parsed markdown. Immutable once produced.
type Block struct {
	Kind        Kind
	Text        string // normalized rendering; tables as HTML, code fenced
	Level       int    // heading level, 0 for non-headings
	HeadingPath HeadingPath
}

// IsSplittable reports whether a block may be broken across chunk
// boundaries during size repair. Tables and code are emitted whole.
func (b Block) IsSplittable() bool {
	return b.Kind != KindTable && b.Kind != KindCode
}
