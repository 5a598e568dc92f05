package mdparse

import (
	"strings"
	"testing"
)

func TestParse_HeadingPaths(t *testing.T) {
	src := "# Intro\n\nHello.\n\n## Details\n\nMore text.\n\n# Outro\n\nBye.\n"
	blocks, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d: %+v", len(blocks), blocks)
	}

	// "More text." sits under Intro > Details.
	more := blocks[3]
	if more.Kind != KindParagraph || more.Text != "More text." {
		t.Fatalf("unexpected block 3: %+v", more)
	}
	if got := more.HeadingPath.String(); got != "Intro > Details" {
		t.Errorf("heading path: expected %q, got %q", "Intro > Details", got)
	}

	// "Bye." sits under Outro only; Intro/Details were popped.
	bye := blocks[5]
	if got := bye.HeadingPath.String(); got != "Outro" {
		t.Errorf("heading path after pop: expected %q, got %q", "Outro", got)
	}
}

func TestParse_HeadingRendering(t *testing.T) {
	blocks, err := Parse("## Section Two\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Kind != KindHeading || blocks[0].Level != 2 {
		t.Fatalf("unexpected block: %+v", blocks[0])
	}
	if blocks[0].Text != "## Section Two" {
		t.Errorf("heading text: got %q", blocks[0].Text)
	}
}

func TestParse_TableRenderedAsHTML(t *testing.T) {
	src := "| Name | Age |\n| --- | --- |\n| Ada | 36 |\n| Alan | 41 |\n"
	blocks, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Kind != KindTable {
		t.Fatalf("expected single table block, got %+v", blocks)
	}
	html := blocks[0].Text
	for _, want := range []string{
		"<table>", "<thead><tr><th>Name</th><th>Age</th></tr></thead>",
		"<tbody>", "<tr><td>Ada</td><td>36</td></tr>", "</tbody>", "</table>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("table html missing %q in %q", want, html)
		}
	}
	if blocks[0].IsSplittable() {
		t.Error("tables must not be splittable")
	}
}

func TestParse_TableCellEscaping(t *testing.T) {
	src := "| Expr |\n| --- |\n| a < b |\n"
	blocks, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(blocks[0].Text, "a &lt; b") {
		t.Errorf("cell content not escaped: %q", blocks[0].Text)
	}
}

func TestParse_FencedCode(t *testing.T) {
	src := "```go\nfunc main() {}\n```\n"
	blocks, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Kind != KindCode {
		t.Fatalf("expected code block, got %+v", blocks)
	}
	if blocks[0].Text != "```go\nfunc main() {}\n```" {
		t.Errorf("code rendering: got %q", blocks[0].Text)
	}
	if blocks[0].IsSplittable() {
		t.Error("code blocks must not be splittable")
	}
}

func TestParse_Lists(t *testing.T) {
	src := "- first\n- second\n\n1. one\n2. two\n"
	blocks, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 list blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Text != "- first\n- second" {
		t.Errorf("bullet list: got %q", blocks[0].Text)
	}
	if blocks[1].Text != "1. one\n2. two" {
		t.Errorf("ordered list: got %q", blocks[1].Text)
	}
}

func TestParse_BlockquoteAndRule(t *testing.T) {
	src := "> quoted line\n\n---\n"
	blocks, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Kind != KindBlockquote || blocks[0].Text != "> quoted line" {
		t.Errorf("blockquote: got %+v", blocks[0])
	}
	if blocks[1].Kind != KindRule {
		t.Errorf("rule: got %+v", blocks[1])
	}
}

func TestParse_RawHTMLTable(t *testing.T) {
	src := "<table><tr><td>cell</td></tr></table>\n"
	blocks, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Kind != KindTable {
		t.Fatalf("raw html table should classify as table, got %+v", blocks)
	}
}

func TestParse_Empty(t *testing.T) {
	blocks, err := Parse("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(blocks))
	}
}

func TestHeadingPath_CloneIsIndependent(t *testing.T) {
	p := HeadingPath{{Level: 1, Title: "A"}}
	c := p.Clone()
	c[0].Title = "B"
	if p[0].Title != "A" {
		t.Error("clone aliases original")
	}
}
