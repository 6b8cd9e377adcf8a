package analyzer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dgallion1/pdflayout/internal/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func labelsOf(doc *doctree.Document) []doctree.Label {
	out := make([]doctree.Label, len(doc.Spans))
	for i, s := range doc.Spans {
		out[i] = s.Label
	}
	return out
}

func textsOf(doc *doctree.Document) []string {
	out := make([]string, len(doc.Spans))
	for i, s := range doc.Spans {
		out[i] = s.Text
	}
	return out
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name string
		want Analyzer
	}{
		{"a.pdf", &PDFAnalyzer{}},
		{"A.PDF", &PDFAnalyzer{}},
		{"a.docx", &DOCXAnalyzer{}},
		{"a.htm", &HTMLAnalyzer{}},
		{"a.markdown", &MarkdownAnalyzer{}},
		{"a.csv", &CSVAnalyzer{}},
		{"a.xlsx", &XLSXAnalyzer{}},
		{"a.txt", &TextAnalyzer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ForFile(tt.name)
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
			assert.True(t, IsSupportedExtension(tt.name))
		})
	}

	_, err := ForFile("image.png")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, IsSupportedExtension("image.png"))
}

func TestAuto_DispatchesByExtension(t *testing.T) {
	path := writeTempFile(t, "notes.txt", "hello")
	doc, err := Auto{}.Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello", doc.Text)

	_, err = Auto{}.Analyze(context.Background(), filepath.Join(t.TempDir(), "x.bin"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDOCXAnalyzer(t *testing.T) {
	path := makeDocx(t,
		`<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Plan</w:t></w:r></w:p>`+
			`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Scope</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t xml:space="preserve">Body </w:t></w:r><w:r><w:t>text.</w:t></w:r></w:p>`+
			`<w:p><w:pPr><w:pStyle w:val="ListParagraph"/></w:pPr><w:r><w:t>One</w:t></w:r></w:p>`+
			`<w:tbl>`+
			`<w:tr><w:tc><w:p><w:r><w:t>K</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>V</w:t></w:r></w:p></w:tc></w:tr>`+
			`<w:tr><w:tc><w:p><w:r><w:t>a</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc></w:tr>`+
			`</w:tbl>`)

	doc, err := (&DOCXAnalyzer{}).Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []doctree.Label{
		doctree.LabelTitle, doctree.LabelSectionHeader, doctree.LabelText, doctree.LabelListItem, doctree.LabelTable,
	}, labelsOf(doc))
	assert.Equal(t, "Body text.", doc.Spans[2].Text)
	assert.Empty(t, doc.Pages)
	for _, s := range doc.Spans {
		assert.Nil(t, s.Box)
	}

	require.Len(t, doc.Tables, 1)
	require.NotNil(t, doc.Tables[0].Data)
	assert.Equal(t, []string{"K", "V"}, doc.Tables[0].Data.Columns)
	assert.Equal(t, [][]string{{"a", "1"}}, doc.Tables[0].Data.Rows)
}

func TestDOCXAnalyzer_NotAZip(t *testing.T) {
	path := writeTempFile(t, "bad.docx", "plain text")
	_, err := (&DOCXAnalyzer{}).Analyze(context.Background(), path)
	assert.Error(t, err)
}

func TestHTMLAnalyzer(t *testing.T) {
	path := writeTempFile(t, "page.html", `<html><head><title>T</title><script>var x;</script></head><body>
<header>Site</header>
<h1>Guide</h1>
<p>Intro <b>bold</b> text.</p>
<h2>Steps</h2>
<ul><li>First</li><li>Second</li></ul>
<table><thead><tr><th>Name</th><th>Age</th></tr></thead>
<tbody><tr><td>Ann</td><td>30</td></tr></tbody></table>
<footer>Copyright</footer>
</body></html>`)

	doc, err := (&HTMLAnalyzer{}).Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Site", "Guide", "Intro bold text.", "Steps", "First", "Second", "Name | Age\nAnn | 30", "Copyright"}, textsOf(doc))
	assert.Equal(t, []doctree.Label{
		doctree.LabelPageHeader, doctree.LabelTitle, doctree.LabelText, doctree.LabelSectionHeader,
		doctree.LabelListItem, doctree.LabelListItem, doctree.LabelTable, doctree.LabelPageFooter,
	}, labelsOf(doc))
	assert.Same(t, doc.Spans[3], doc.Spans[4].Heading)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, []string{"Name", "Age"}, doc.Tables[0].Data.Columns)
}

func TestMarkdownAnalyzer(t *testing.T) {
	path := writeTempFile(t, "doc.md", "# Title\n\nSome *emphasis* here.\n\n## Part\n\n- one\n- two\n  - nested\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n```\ncode line\n```\n")

	doc, err := (&MarkdownAnalyzer{}).Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Title", "Some emphasis here.", "Part", "one", "two", "nested", "a | b\n1 | 2", "code line"}, textsOf(doc))
	assert.Equal(t, []doctree.Label{
		doctree.LabelTitle, doctree.LabelText, doctree.LabelSectionHeader,
		doctree.LabelListItem, doctree.LabelListItem, doctree.LabelListItem,
		doctree.LabelTable, doctree.LabelText,
	}, labelsOf(doc))
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, [][]string{{"1", "2"}}, doc.Tables[0].Data.Rows)
}

func TestCSVAnalyzer(t *testing.T) {
	path := writeTempFile(t, "data.csv", "name,qty\napple,3\npear,5\n")
	doc, err := (&CSVAnalyzer{}).Analyze(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, doc.Spans, 1)
	assert.Equal(t, doctree.LabelTable, doc.Spans[0].Label)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, []string{"name", "qty"}, doc.Tables[0].Data.Columns)
	assert.Equal(t, [][]string{{"apple", "3"}, {"pear", "5"}}, doc.Tables[0].Data.Rows)
}

func TestCSVAnalyzer_RaggedRows(t *testing.T) {
	path := writeTempFile(t, "ragged.csv", "a,b,c\n1,2\n")
	doc, err := (&CSVAnalyzer{}).Analyze(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	assert.Nil(t, doc.Tables[0].Data)
}

func TestXLSXAnalyzer(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Stock"))
	require.NoError(t, f.SetSheetRow("Stock", "A1", &[]any{"sku", "count", "note"}))
	require.NoError(t, f.SetSheetRow("Stock", "A2", &[]any{"x1", 4}))
	path := filepath.Join(t.TempDir(), "stock.xlsx")
	require.NoError(t, f.SaveAs(path))

	doc, err := (&XLSXAnalyzer{}).Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []doctree.Label{doctree.LabelSectionHeader, doctree.LabelTable}, labelsOf(doc))
	assert.Equal(t, "Stock", doc.Spans[0].Text)
	require.Len(t, doc.Tables, 1)
	require.NotNil(t, doc.Tables[0].Data)
	assert.Equal(t, [][]string{{"x1", "4", ""}}, doc.Tables[0].Data.Rows)
}

func TestTextAnalyzer(t *testing.T) {
	path := writeTempFile(t, "notes.txt", "First paragraph line one.\nline two.\n\n\n1. a numbered item\n\n   \nLast.")
	doc, err := (&TextAnalyzer{}).Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"First paragraph line one.\nline two.", "1. a numbered item", "Last."}, textsOf(doc))
	assert.Equal(t, []doctree.Label{doctree.LabelText, doctree.LabelListItem, doctree.LabelText}, labelsOf(doc))
}

func TestTextAnalyzer_Empty(t *testing.T) {
	path := writeTempFile(t, "empty.txt", "")
	doc, err := (&TextAnalyzer{}).Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, doc.Spans)
	assert.Equal(t, "", doc.Text)
}
