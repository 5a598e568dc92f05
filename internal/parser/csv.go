package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVConverter renders CSV as a markdown pipe table so the structural
// parser sees it as one table block.
type CSVConverter struct{}

func (c *CSVConverter) ToMarkdown(r io.Reader, filename string) (string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	headers := records[0]
	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeCells(headers), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")

	for _, row := range records[1:] {
		cells := escapeCells(row)
		// Pad short rows so the table stays rectangular.
		for len(cells) < len(headers) {
			cells = append(cells, "")
		}
		b.WriteString("| " + strings.Join(cells[:len(headers)], " | ") + " |\n")
	}
	return b.String(), nil
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", "\\|")
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}
