package mdparse

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Parse turns markdown source into an ordered Block sequence. Every
// block carries the heading path active at its position. A panic inside
// goldmark or the renderers is returned as an error so callers can fall
// back to plain paragraph splitting.
func Parse(source string) (blocks []Block, err error) {
	defer func() {
		if r := recover(); r != nil {
			blocks = nil
			err = fmt.Errorf("markdown parse: %v", r)
		}
	}()

	src := []byte(source)
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	var stack HeadingPath

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(inlineText(node, src))
			// Pop everything at or below this level, then push.
			for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, HeadingEntry{Level: node.Level, Title: title})
			blocks = append(blocks, Block{
				Kind:        KindHeading,
				Text:        strings.Repeat("#", node.Level) + " " + title,
				Level:       node.Level,
				HeadingPath: stack.Clone(),
			})

		case *east.Table:
			blocks = append(blocks, Block{
				Kind:        KindTable,
				Text:        renderTableHTML(node, src),
				HeadingPath: stack.Clone(),
			})

		case *ast.FencedCodeBlock:
			lang := string(node.Language(src))
			blocks = append(blocks, Block{
				Kind:        KindCode,
				Text:        renderCode(lang, blockLines(node, src)),
				HeadingPath: stack.Clone(),
			})

		case *ast.CodeBlock:
			blocks = append(blocks, Block{
				Kind:        KindCode,
				Text:        renderCode("", blockLines(node, src)),
				HeadingPath: stack.Clone(),
			})

		case *ast.List:
			if t := renderList(node, src, 0); t != "" {
				blocks = append(blocks, Block{
					Kind:        KindList,
					Text:        t,
					HeadingPath: stack.Clone(),
				})
			}

		case *ast.Blockquote:
			if t := renderBlockquote(node, src); t != "" {
				blocks = append(blocks, Block{
					Kind:        KindBlockquote,
					Text:        t,
					HeadingPath: stack.Clone(),
				})
			}

		case *ast.ThematicBreak:
			blocks = append(blocks, Block{
				Kind:        KindRule,
				Text:        "---",
				HeadingPath: stack.Clone(),
			})

		case *ast.HTMLBlock:
			t := strings.TrimSpace(blockLines(node, src))
			if t == "" {
				continue
			}
			kind := KindParagraph
			// OCR pipelines emit tables as raw HTML inside markdown;
			// keep them atomic like pipe-syntax tables.
			if strings.Contains(strings.ToLower(t), "<table") {
				kind = KindTable
			}
			blocks = append(blocks, Block{Kind: kind, Text: t, HeadingPath: stack.Clone()})

		default:
			t := strings.TrimSpace(inlineText(n, src))
			if t == "" {
				t = strings.TrimSpace(blockLines(n, src))
			}
			if t != "" {
				blocks = append(blocks, Block{
					Kind:        KindParagraph,
					Text:        t,
					HeadingPath: stack.Clone(),
				})
			}
		}
	}

	return blocks, nil
}

// inlineText extracts the plain text of a node's inline content.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				b.Write(t.Value(src))
				if t.HardLineBreak() || t.SoftLineBreak() {
					b.WriteByte('\n')
				}
			case *ast.AutoLink:
				b.Write(t.URL(src))
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

// blockLines returns the raw source lines of a block node.
func blockLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

// renderTableHTML re-renders a GFM table as a self-contained HTML table.
// Downstream consumers need HTML verbatim, not pipe syntax.
func renderTableHTML(tbl *east.Table, src []byte) string {
	var b strings.Builder
	b.WriteString("<table>")

	var bodyOpen bool
	for row := tbl.FirstChild(); row != nil; row = row.NextSibling() {
		switch r := row.(type) {
		case *east.TableHeader:
			b.WriteString("<thead><tr>")
			for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
				b.WriteString("<th>")
				b.WriteString(html.EscapeString(strings.TrimSpace(inlineText(cell, src))))
				b.WriteString("</th>")
			}
			b.WriteString("</tr></thead>")
		case *east.TableRow:
			if !bodyOpen {
				b.WriteString("<tbody>")
				bodyOpen = true
			}
			b.WriteString("<tr>")
			for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
				b.WriteString("<td>")
				b.WriteString(html.EscapeString(strings.TrimSpace(inlineText(cell, src))))
				b.WriteString("</td>")
			}
			b.WriteString("</tr>")
		}
	}
	if bodyOpen {
		b.WriteString("</tbody>")
	}
	b.WriteString("</table>")
	return b.String()
}

func renderCode(lang, body string) string {
	body = strings.TrimRight(body, "\n")
	return "```" + lang + "\n" + body + "\n```"
}

// renderList flattens a list to "- " / "N. " lines, indenting nested
// lists by two spaces per depth.
func renderList(list *ast.List, src []byte, depth int) string {
	indent := strings.Repeat("  ", depth)
	var lines []string

	num := 1
	if list.IsOrdered() && list.Start > 0 {
		num = list.Start
	}

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var itemText strings.Builder
		var nested []string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				if t := renderList(sub, src, depth+1); t != "" {
					nested = append(nested, t)
				}
				continue
			}
			t := strings.TrimSpace(inlineText(c, src))
			if t != "" {
				if itemText.Len() > 0 {
					itemText.WriteByte(' ')
				}
				itemText.WriteString(t)
			}
		}

		marker := "- "
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		if itemText.Len() > 0 {
			lines = append(lines, indent+marker+itemText.String())
		}
		lines = append(lines, nested...)
	}
	return strings.Join(lines, "\n")
}

func renderBlockquote(bq *ast.Blockquote, src []byte) string {
	var parts []string
	for c := bq.FirstChild(); c != nil; c = c.NextSibling() {
		t := strings.TrimSpace(inlineText(c, src))
		if t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, line := range strings.Split(p, "\n") {
			if j > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("> " + line)
		}
	}
	return b.String()
}
