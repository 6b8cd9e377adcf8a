// Package shaper turns analyzer output into the serialized result form.
package shaper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgallion1/pdflayout/internal/analyzer"
	"github.com/dgallion1/pdflayout/internal/doctree"
	"github.com/dgallion1/pdflayout/internal/result"
)

// ProcessingError is returned when analysis of a local file fails.
type ProcessingError struct {
	Path string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process %s: %v", e.Path, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Shaper runs an analyzer over a file and builds its result.Document.
type Shaper struct {
	analyzer analyzer.Analyzer
	stats    *Stats
}

// New returns a Shaper. stats may be nil.
func New(a analyzer.Analyzer, stats *Stats) *Shaper {
	return &Shaper{analyzer: a, stats: stats}
}

// Process analyzes path and shapes the outcome. Analyzer errors and panics
// both come back as *ProcessingError.
func (s *Shaper) Process(ctx context.Context, path string) (doc result.Document, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &ProcessingError{Path: path, Err: fmt.Errorf("analyzer panic: %v", r)}
		}
		s.stats.Record(time.Since(start), err != nil)
	}()

	tree, err := s.analyzer.Analyze(ctx, path)
	if err != nil {
		return result.Document{}, &ProcessingError{Path: path, Err: err}
	}
	if tree == nil {
		return result.Document{}, &ProcessingError{Path: path, Err: errors.New("analyzer returned no document")}
	}
	return Shape(filepath.Base(path), tree), nil
}

// Shape converts an analyzed document. Empty collections become empty
// slices so they serialize as [] rather than null.
func Shape(filename string, tree *doctree.Document) result.Document {
	doc := result.Document{
		Filename: filename,
		Text:     tree.Text,
		Layout:   result.Layout{Pages: make([]result.Page, 0, len(tree.Pages))},
		Spans:    make([]result.Span, 0, len(tree.Spans)),
		Tables:   make([]result.Table, 0, len(tree.Tables)),
		Markdown: tree.Markdown,
	}
	for _, p := range tree.Pages {
		doc.Layout.Pages = append(doc.Layout.Pages, result.Page{PageNo: p.PageNo, Width: p.Width, Height: p.Height})
	}
	for _, sp := range tree.Spans {
		doc.Spans = append(doc.Spans, shapeSpan(sp))
	}
	for _, t := range tree.Tables {
		doc.Tables = append(doc.Tables, result.Table{
			Start:  t.Start,
			End:    t.End,
			Layout: shapeBox(t.Box),
			Data:   shapeFrame(t.Data),
		})
	}
	return doc
}

func shapeSpan(sp *doctree.Span) result.Span {
	out := result.Span{
		Label:     string(sp.Label),
		Text:      sp.Text,
		Start:     sp.Start,
		End:       sp.End,
		StartChar: sp.StartChar,
		EndChar:   sp.EndChar,
		Layout:    shapeBox(sp.Box),
	}
	if sp.Heading != nil {
		h := sp.Heading.Text
		out.Heading = &h
	}
	return out
}

func shapeBox(b *doctree.Box) *result.Box {
	if b == nil {
		return nil
	}
	return &result.Box{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height, PageNo: b.PageNo}
}

func shapeFrame(f *doctree.Frame) []result.Record {
	if f == nil {
		return nil
	}
	records := make([]result.Record, 0, len(f.Rows))
	for _, row := range f.Rows {
		rec := make(result.Record, len(f.Columns))
		for i, col := range f.Columns {
			rec[i] = result.Field{Column: col}
			if i < len(row) {
				rec[i].Value = row[i]
			}
		}
		records = append(records, rec)
	}
	return records
}
