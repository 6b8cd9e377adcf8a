package doctree

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// spanSeparator joins consecutive span texts in Document.Text.
const spanSeparator = "\n\n"

// Builder assembles a Document from blocks in reading order. Offsets,
// heading back-references and the markdown projection are derived as
// blocks are added, so callers only decide labels and geometry.
type Builder struct {
	doc     Document
	text    strings.Builder
	chars   int
	tokens  int
	heading *Span
	md      []string
}

func NewBuilder() *Builder {
	return &Builder{}
}

// AddPage records the next page and returns its 1-based number.
func (b *Builder) AddPage(width, height float64) int {
	no := len(b.doc.Pages) + 1
	b.doc.Pages = append(b.doc.Pages, Page{PageNo: no, Width: width, Height: height})
	return no
}

// Add appends a text block. Blank text is dropped and nil is returned.
func (b *Builder) Add(label Label, text string, box *Box) *Span {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s := b.appendSpan(label, text, box)

	switch label {
	case LabelTitle:
		b.md = append(b.md, "# "+oneLine(text))
	case LabelSectionHeader:
		b.md = append(b.md, "## "+oneLine(text))
	case LabelListItem:
		b.md = append(b.md, "- "+oneLine(text))
	case LabelPageHeader, LabelPageFooter:
	default:
		b.md = append(b.md, text)
	}
	return s
}

// AddTable appends a table block. The first row is the header. Blank rows
// are dropped; a table with no remaining rows is skipped and nil returned.
// Data is only populated when every row has the same number of cells.
func (b *Builder) AddTable(rows [][]string, box *Box) *Table {
	rows = trimRows(rows)
	if len(rows) == 0 {
		return nil
	}

	s := b.appendSpan(LabelTable, tableText(rows), box)
	t := &Table{Start: s.Start, End: s.End, Box: box}
	if isGrid(rows) {
		t.Data = NewFrame(rows)
	}
	b.doc.Tables = append(b.doc.Tables, t)
	b.md = append(b.md, strings.TrimRight(RenderMarkdownTable(rows), "\n"))
	return t
}

// Document returns the assembled document. The builder must not be used
// afterwards.
func (b *Builder) Document() *Document {
	b.doc.Text = b.text.String()
	if len(b.md) > 0 {
		b.doc.Markdown = strings.Join(b.md, "\n\n") + "\n"
	}
	return &b.doc
}

func (b *Builder) appendSpan(label Label, text string, box *Box) *Span {
	if b.text.Len() > 0 {
		b.text.WriteString(spanSeparator)
		b.chars += utf8.RuneCountInString(spanSeparator)
	}
	b.text.WriteString(text)

	runes := utf8.RuneCountInString(text)
	toks := CountTokens(text)
	s := &Span{
		Label:     label,
		Text:      text,
		Start:     b.tokens,
		End:       b.tokens + toks,
		StartChar: b.chars,
		EndChar:   b.chars + runes,
		Box:       box,
	}
	b.chars += runes
	b.tokens += toks

	if label.IsHeading() {
		b.heading = s
	} else {
		s.Heading = b.heading
	}
	b.doc.Spans = append(b.doc.Spans, s)
	return s
}

// NewFrame names the columns from the header row. Blank names become the
// column index and repeats get a ".N" suffix. Data rows are padded or cut
// to the column count.
func NewFrame(rows [][]string) *Frame {
	if len(rows) == 0 {
		return nil
	}
	header := rows[0]
	cols := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		cols[i] = name
	}

	f := &Frame{Columns: cols, Rows: make([][]string, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		r := make([]string, len(cols))
		copy(r, row)
		f.Rows = append(f.Rows, r)
	}
	return f
}

func trimRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		blank := true
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
			if cells[i] != "" {
				blank = false
			}
		}
		if !blank {
			out = append(out, cells)
		}
	}
	return out
}

func isGrid(rows [][]string) bool {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return false
	}
	for _, row := range rows[1:] {
		if len(row) != len(rows[0]) {
			return false
		}
	}
	return true
}

func tableText(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, " | ")
	}
	return strings.Join(lines, "\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
