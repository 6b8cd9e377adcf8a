// Package export writes extracted tables to spreadsheet workbooks.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/pdflayout/internal/result"
)

const maxSheetName = 31

// TablesWorkbook builds a workbook with one sheet per table that has data.
// Sheets are named "<file stem> t<n>" with n counting tables within each
// document from 1. A "Summary" sheet lists every table, including those
// without data. The caller must Close the returned file.
func TablesWorkbook(docs []result.Document) (*excelize.File, error) {
	f := excelize.NewFile()
	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}
	if err := f.SetSheetRow(summary, "A1", &[]any{"filename", "table", "sheet", "rows", "columns"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("write summary header: %w", err)
	}

	used := map[string]bool{strings.ToLower(summary): true}
	line := 2
	for _, doc := range docs {
		stem := strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename))
		for i, tbl := range doc.Tables {
			sheet := ""
			if tbl.Data != nil {
				sheet = sheetName(fmt.Sprintf("%s t%d", stem, i+1), used)
				if err := writeTable(f, sheet, tbl.Data); err != nil {
					f.Close()
					return nil, err
				}
			}
			cols := 0
			if len(tbl.Data) > 0 {
				cols = len(tbl.Data[0])
			}
			cell, _ := excelize.CoordinatesToCellName(1, line)
			row := []any{doc.Filename, i + 1, sheet, len(tbl.Data), cols}
			if err := f.SetSheetRow(summary, cell, &row); err != nil {
				f.Close()
				return nil, fmt.Errorf("write summary row: %w", err)
			}
			line++
		}
	}
	return f, nil
}

// WriteTablesWorkbook builds the workbook and saves it to path.
func WriteTablesWorkbook(docs []result.Document, path string) error {
	f, err := TablesWorkbook(docs)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// StreamTablesWorkbook writes the workbook to w.
func StreamTablesWorkbook(w io.Writer, docs []result.Document) error {
	f, err := TablesWorkbook(docs)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, records []result.Record) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet, err)
	}
	var header []any
	if len(records) > 0 {
		for _, field := range records[0] {
			header = append(header, field.Column)
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header %q: %w", sheet, err)
	}
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, field := range rec {
			row[j] = field.Value
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %q: %w", sheet, err)
		}
	}
	return nil
}

// sheetName makes name valid for Excel (at most 31 characters, none of
// :\/?*[] ) and unique within the workbook, case-insensitively.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	clean = strings.Trim(clean, "'")
	if clean == "" {
		clean = "table"
	}

	candidate := truncateRunes(clean, maxSheetName)
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
