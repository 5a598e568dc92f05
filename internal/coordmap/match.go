package coordmap

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// compact strips all whitespace so matching is insensitive to the
// formatting differences between OCR output and rendered markdown.
func compact(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			out = append(out, r)
		}
	}
	return out
}

// longestCommonRun returns the length of the longest contiguous run of
// runes shared by a and b. Classic two-row dynamic program; element
// texts are short so the quadratic cost stays negligible.
func longestCommonRun(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return best
}

// isHTMLTable reports whether s carries an HTML table fragment.
func isHTMLTable(s string) bool {
	return strings.Contains(strings.ToLower(s), "<table")
}

// tableFragmentText extracts the plain text of the first
// <table>…</table> fragment in s. When both a chunk and an element hold
// HTML tables, only their table content is compared; surrounding prose
// would dilute the score.
func tableFragmentText(s string) string {
	lower := strings.ToLower(s)
	start := strings.Index(lower, "<table")
	if start < 0 {
		return s
	}
	end := strings.Index(lower[start:], "</table>")
	fragment := s[start:]
	if end >= 0 {
		fragment = s[start : start+end+len("</table>")]
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				b.WriteString(t)
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String())
}
