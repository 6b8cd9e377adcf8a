package analyzer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/dgallion1/pdflayout/internal/doctree"
)

// CSVAnalyzer turns the whole file into one table whose first record is
// the header.
type CSVAnalyzer struct{}

func (a *CSVAnalyzer) Analyze(ctx context.Context, path string) (*doctree.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := doctree.NewBuilder()
	b.AddTable(records, nil)
	return b.Document(), nil
}
