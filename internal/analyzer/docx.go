package analyzer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/pdflayout/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXAnalyzer labels .docx paragraphs from their styles. Word files carry
// no page geometry, so spans and tables have no layout box.
type DOCXAnalyzer struct{}

func (a *DOCXAnalyzer) Analyze(ctx context.Context, path string) (*doctree.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat docx: %w", err)
	}
	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := doctree.NewBuilder()
	for _, item := range doc.Document.Body.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch it := item.(type) {
		case *docx.Paragraph:
			b.Add(docxParagraphLabel(it), docxParagraphText(it), nil)
		case *docx.Table:
			b.AddTable(docxTableRows(it), nil)
		}
	}
	return b.Document(), nil
}

func docxParagraphLabel(para *docx.Paragraph) doctree.Label {
	if para.Properties == nil {
		return doctree.LabelText
	}
	if para.Properties.Style != nil {
		style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
		switch {
		case style == "title":
			return doctree.LabelTitle
		case strings.HasPrefix(style, "heading"), style == "subtitle":
			return doctree.LabelSectionHeader
		case strings.HasPrefix(style, "list"):
			return doctree.LabelListItem
		case style == "caption":
			return doctree.LabelText
		case style == "header":
			return doctree.LabelPageHeader
		case style == "footer":
			return doctree.LabelPageFooter
		}
	}
	if para.Properties.NumProperties != nil {
		return doctree.LabelListItem
	}
	return doctree.LabelText
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func docxTableRows(tbl *docx.Table) [][]string {
	rows := make([][]string, 0, len(tbl.TableRows))
	for _, tr := range tbl.TableRows {
		row := make([]string, 0, len(tr.TableCells))
		for _, tc := range tr.TableCells {
			parts := make([]string, 0, len(tc.Paragraphs))
			for _, p := range tc.Paragraphs {
				if t := docxParagraphText(p); t != "" {
					parts = append(parts, t)
				}
			}
			row = append(row, strings.Join(parts, "\n"))
		}
		rows = append(rows, row)
	}
	return rows
}
