package doctree

import (
	"strings"
	"unicode/utf8"
)

const minColWidth = 3 // shortest valid separator cell (---)

// RenderMarkdownTable renders rows as a GitHub-Flavored Markdown table with
// the first row as header. Columns are padded to their widest cell.
func RenderMarkdownTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	if maxCols == 0 {
		return ""
	}

	widths := make([]int, maxCols)
	for i := range widths {
		widths[i] = minColWidth
	}
	for _, row := range rows {
		for i, raw := range row {
			if w := utf8.RuneCountInString(markdownCell(raw)); w > widths[i] {
				widths[i] = w
			}
		}
	}

	cell := func(row []string, col int) string {
		if col < len(row) {
			return markdownCell(row[col])
		}
		return ""
	}
	pad := func(s string, w int) string {
		if n := utf8.RuneCountInString(s); n < w {
			return s + strings.Repeat(" ", w-n)
		}
		return s
	}
	writeRow := func(sb *strings.Builder, row []string) {
		sb.WriteString("|")
		for i := 0; i < maxCols; i++ {
			sb.WriteString(" " + pad(cell(row, i), widths[i]) + " |")
		}
		sb.WriteByte('\n')
	}

	var sb strings.Builder
	writeRow(&sb, rows[0])
	sb.WriteString("|")
	for i := 0; i < maxCols; i++ {
		sb.WriteString(" " + strings.Repeat("-", widths[i]) + " |")
	}
	sb.WriteByte('\n')
	for _, row := range rows[1:] {
		writeRow(&sb, row)
	}
	return sb.String()
}

// markdownCell escapes pipes and folds line breaks so a cell stays on one row.
func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return oneLine(s)
}
