package analyzer

import (
	"context"
	"fmt"

	"github.com/dgallion1/pdflayout/internal/doctree"
	"github.com/xuri/excelize/v2"
)

// XLSXAnalyzer emits each worksheet as a section header followed by one
// table.
type XLSXAnalyzer struct{}

func (a *XLSXAnalyzer) Analyze(ctx context.Context, path string) (*doctree.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	b := doctree.NewBuilder()
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		b.Add(doctree.LabelSectionHeader, sheet, nil)
		b.AddTable(padRows(rows), nil)
	}
	return b.Document(), nil
}

// padRows widens rows to the longest one. excelize drops trailing empty
// cells, which would otherwise make every sheet look ragged.
func padRows(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = make([]string, width)
		copy(out[i], r)
	}
	return out
}
