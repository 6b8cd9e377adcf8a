package analyzer

import (
	"context"
	"fmt"

	"github.com/dgallion1/pdflayout/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// Letter size, used when a page has no usable MediaBox.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// PDFAnalyzer reads positioned text from each page and derives spans and
// tables from glyph geometry and font sizes.
type PDFAnalyzer struct{}

func (a *PDFAnalyzer) Analyze(ctx context.Context, path string) (doc *doctree.Document, err error) {
	// ledongthuc/pdf panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("read pdf: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var geoms []pageGeom
	var texts [][]pdflib.Text
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		g := mediaBox(page.V)
		g.no = len(geoms) + 1
		geoms = append(geoms, g)
		texts = append(texts, page.Content().Text)
	}

	fonts := measureFonts(texts)
	b := doctree.NewBuilder()
	titleFree := true
	for i, g := range geoms {
		b.AddPage(round2(g.width), round2(g.height))
		blocks, used := classifyLines(groupLines(texts[i]), g, fonts, titleFree)
		titleFree = titleFree && !used
		for _, blk := range blocks {
			if blk.label == doctree.LabelTable {
				b.AddTable(blk.rows(), g.box(blk.lines))
				continue
			}
			b.Add(blk.label, blk.text(), g.box(blk.lines))
		}
	}
	return b.Document(), nil
}

// mediaBox resolves the page's MediaBox, walking up the page tree for
// inherited values.
func mediaBox(page pdflib.Value) pageGeom {
	v := page
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
			x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
			if x1 > x0 && y1 > y0 {
				return pageGeom{originX: x0, originY: y0, width: x1 - x0, height: y1 - y0}
			}
		}
		v = v.Key("Parent")
	}
	return pageGeom{width: defaultPageWidth, height: defaultPageHeight}
}
