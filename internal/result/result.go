// Package result holds the JSON shape written for each processed file.
package result

// Document is the per-file result. Field order is the serialized key order.
type Document struct {
	Filename string  `json:"filename"`
	Text     string  `json:"text"`
	Layout   Layout  `json:"layout"`
	Spans    []Span  `json:"spans"`
	Tables   []Table `json:"tables"`
	Markdown string  `json:"markdown"`
}

type Layout struct {
	Pages []Page `json:"pages"`
}

type Page struct {
	PageNo int     `json:"page_no"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Box is a span or table bounding box.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	PageNo int     `json:"page_no"`
}

// Span is one labeled region. Layout and Heading serialize as null when
// unset; they are never omitted.
type Span struct {
	Label     string  `json:"label"`
	Text      string  `json:"text"`
	Start     int     `json:"start"`
	End       int     `json:"end"`
	StartChar int     `json:"start_char"`
	EndChar   int     `json:"end_char"`
	Layout    *Box    `json:"layout"`
	Heading   *string `json:"heading"`
}

// Table is one detected table. A nil Data serializes as null.
type Table struct {
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Layout *Box     `json:"layout"`
	Data   []Record `json:"data"`
}
