package doctree

// Label is the layout class assigned to a span.
type Label string

const (
	LabelTitle         Label = "title"
	LabelSectionHeader Label = "section_header"
	LabelText          Label = "text"
	LabelListItem      Label = "list_item"
	LabelTable         Label = "table"
	LabelPageHeader    Label = "page_header"
	LabelPageFooter    Label = "page_footer"
)

// IsHeading reports whether spans with this label act as headings for the
// spans that follow them.
func (l Label) IsHeading() bool {
	return l == LabelTitle || l == LabelSectionHeader
}

// Document is the analyzed form of a single file.
type Document struct {
	Text     string
	Pages    []Page
	Spans    []*Span
	Tables   []*Table
	Markdown string
}

// Page is the geometry of one page (1-based PageNo).
type Page struct {
	PageNo int
	Width  float64
	Height float64
}

// Box is a bounding box in page units with a top-left origin.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	PageNo int
}

// Span is a labeled region of the document text. Start/End are token
// offsets, StartChar/EndChar are rune offsets into Document.Text; both
// ranges are end-exclusive.
type Span struct {
	Label     Label
	Text      string
	Start     int
	End       int
	StartChar int
	EndChar   int
	Box       *Box  // nil when the source carries no geometry
	Heading   *Span // nearest preceding heading span, nil if none
}

// Table is a detected table. Data is nil when the cells could not be
// arranged into a consistent grid.
type Table struct {
	Start int
	End   int
	Box   *Box
	Data  *Frame
}

// Frame is a table's cell grid with named columns.
type Frame struct {
	Columns []string
	Rows    [][]string
}
