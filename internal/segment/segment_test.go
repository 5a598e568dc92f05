package segment

import (
	"strings"
	"testing"

	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

var counter = token.NewCounter()

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestSegment_Empty(t *testing.T) {
	chunks, _ := Segment("   \n\n  ", counter, Options{DocID: "d"})
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for blank input, got %d", len(chunks))
	}
}

func TestSegment_SmartTitleScenario(t *testing.T) {
	src := "# Title\n\nShort intro.\n\n## Section\n\n" + strings.Repeat("word ", 500)
	chunks, used := Segment(src, counter, Options{
		Strategy:     StrategySmart,
		DocID:        "doc1",
		TargetTokens: 50,
		MinTokens:    5,
	})

	if used != StrategySmart {
		t.Fatalf("expected smart strategy, got %s", used)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Content, "# Title") {
		t.Errorf("first chunk should begin with heading, got %q", chunks[0].Content[:min(40, len(chunks[0].Content))])
	}
	for i, c := range chunks {
		if c.TokenCount > 3*50+10 {
			t.Errorf("chunk %d exceeds 3x budget: %d tokens", i, c.TokenCount)
		}
	}
}

func TestSegment_TableNeverSplit(t *testing.T) {
	var b strings.Builder
	b.WriteString("| Col A | Col B |\n| --- | --- |\n")
	for i := 0; i < 40; i++ {
		b.WriteString("| some cell value here | another cell value |\n")
	}

	chunks, _ := Segment(b.String(), counter, Options{
		Strategy:     StrategySmart,
		DocID:        "doc-table",
		TargetTokens: 20,
		MinTokens:    5,
	})

	if len(chunks) != 1 {
		t.Fatalf("oversized table must stay one chunk, got %d", len(chunks))
	}
	if !chunks[0].ContainsTable {
		t.Error("chunk should be flagged as containing a table")
	}
	if count := strings.Count(chunks[0].Content, "<tr><td>"); count != 40 {
		t.Errorf("expected 40 body rows in one chunk, found %d", count)
	}
}

func TestSegment_CodeNeverSplit(t *testing.T) {
	code := "```go\n" + strings.Repeat("fmt.Println(\"line\")\n", 100) + "```"
	src := "Intro paragraph.\n\n" + code + "\n\nOutro paragraph."

	chunks, _ := Segment(src, counter, Options{
		Strategy:     StrategySmart,
		DocID:        "doc-code",
		TargetTokens: 30,
		MinTokens:    2,
	})

	var codeChunks int
	for _, c := range chunks {
		if c.ContainsCode {
			codeChunks++
			if !strings.Contains(c.Content, "```go") {
				t.Error("code chunk lost its fence")
			}
		}
	}
	if codeChunks != 1 {
		t.Errorf("expected the code block in exactly 1 chunk, got %d", codeChunks)
	}
}

func TestSegment_CoverageAndNoEmptyChunks(t *testing.T) {
	src := "# Doc\n\nFirst paragraph with several words in it.\n\n" +
		"Second paragraph, also with words.\n\n## Sub\n\n" +
		strings.Repeat("filler text goes here. ", 60)

	for _, strat := range []Strategy{StrategyBasic, StrategySmart, StrategyAdvanced} {
		chunks, _ := Segment(src, counter, Options{
			Strategy:     strat,
			DocID:        "cov",
			TargetTokens: 40,
			MinTokens:    5,
		})
		if len(chunks) == 0 {
			t.Fatalf("%s: no chunks", strat)
		}
		var joined strings.Builder
		for i, c := range chunks {
			if strings.TrimSpace(c.Content) == "" {
				t.Errorf("%s: chunk %d is empty", strat, i)
			}
			if c.Order != i {
				t.Errorf("%s: chunk %d has order %d", strat, i, c.Order)
			}
			if c.TokenCount != counter.Count(c.Content) {
				t.Errorf("%s: chunk %d token count inconsistent with shared counter", strat, i)
			}
			if c.ID == "" {
				t.Errorf("%s: chunk %d missing id", strat, i)
			}
			joined.WriteString(c.Content)
			joined.WriteString(" ")
		}
		// Every source word must survive segmentation (headings and
		// markdown syntax are re-rendered, so compare word presence).
		for _, word := range []string{"First", "Second", "filler", "Sub", "Doc"} {
			if !strings.Contains(joined.String(), word) {
				t.Errorf("%s: output lost %q", strat, word)
			}
		}
	}
}

func TestSegment_BasicCoverageExact(t *testing.T) {
	src := "para one here.\n\npara two here.\n\npara three here."
	chunks, _ := Segment(src, counter, Options{
		Strategy:     StrategyBasic,
		DocID:        "b",
		TargetTokens: 1000,
	})
	if len(chunks) != 1 {
		t.Fatalf("expected merged single chunk, got %d", len(chunks))
	}
	if normalize(chunks[0].Content) != normalize(src) {
		t.Errorf("coverage broken: %q", chunks[0].Content)
	}
}

func TestSegment_BasicOversizedParagraph(t *testing.T) {
	src := strings.Repeat("alpha beta gamma delta ", 200) // one huge paragraph
	chunks, _ := Segment(src, counter, Options{
		Strategy:     StrategyBasic,
		DocID:        "big",
		TargetTokens: 50,
	})
	if len(chunks) < 2 {
		t.Fatalf("oversized paragraph should be split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if c.TokenCount > 3*50+10 {
			t.Errorf("chunk %d still oversized: %d tokens", i, c.TokenCount)
		}
	}
}

func TestSegment_StableIDs(t *testing.T) {
	src := "# H\n\nSome content for hashing."
	a, _ := Segment(src, counter, Options{Strategy: StrategySmart, DocID: "x", TargetTokens: 100, MinTokens: 1})
	b, _ := Segment(src, counter, Options{Strategy: StrategySmart, DocID: "x", TargetTokens: 100, MinTokens: 1})
	if a[0].ID != b[0].ID {
		t.Error("chunk ids must be deterministic")
	}
	c, _ := Segment(src, counter, Options{Strategy: StrategySmart, DocID: "y", TargetTokens: 100, MinTokens: 1})
	if a[0].ID == c[0].ID {
		t.Error("chunk ids must depend on document id")
	}
}

func TestChunkFlags(t *testing.T) {
	c := newChunk("d", 0, "Look: $E = mc^2$ inline.\n\n- item one\n- item two", counter, false)
	if !c.ContainsFormula {
		t.Error("formula not detected")
	}
	if !c.ContainsList {
		t.Error("list not detected")
	}
	if c.ContainsTable || c.ContainsCode {
		t.Error("false positive table/code flag")
	}
	if c.CharCount != len(c.Content) {
		t.Error("char count mismatch")
	}
}
