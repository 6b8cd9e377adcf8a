package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/pdflayout/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownAnalyzer labels blocks of a Markdown file using goldmark's AST,
// with GFM tables enabled.
type MarkdownAnalyzer struct{}

func (a *MarkdownAnalyzer) Analyze(ctx context.Context, path string) (*doctree.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(src))

	w := &mdWalker{src: src, b: doctree.NewBuilder()}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n)
	}
	return w.b.Document(), nil
}

type mdWalker struct {
	src []byte
	b   *doctree.Builder
}

func (w *mdWalker) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		label := doctree.LabelSectionHeader
		if node.Level == 1 {
			label = doctree.LabelTitle
		}
		w.b.Add(label, inlineText(node, w.src), nil)
	case *ast.Paragraph, *ast.TextBlock:
		w.b.Add(doctree.LabelText, inlineText(node, w.src), nil)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		w.b.Add(doctree.LabelText, blockLines(node, w.src), nil)
	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			w.listItem(item)
		}
	case *east.Table:
		w.b.AddTable(markdownTableRows(node, w.src), nil)
	case *ast.ThematicBreak, *ast.HTMLBlock:
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c)
		}
	}
}

// listItem emits the item's own text, then any nested lists.
func (w *mdWalker) listItem(item ast.Node) {
	var parts []string
	var nested []ast.Node
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			parts = append(parts, inlineText(c, w.src))
		default:
			nested = append(nested, c)
		}
	}
	w.b.Add(doctree.LabelListItem, strings.Join(parts, " "), nil)
	for _, c := range nested {
		w.block(c)
	}
}

func markdownTableRows(tbl *east.Table, src []byte) [][]string {
	var rows [][]string
	for r := tbl.FirstChild(); r != nil; r = r.NextSibling() {
		var row []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			row = append(row, inlineText(c, src))
		}
		rows = append(rows, row)
	}
	return rows
}

// inlineText concatenates the text of inline descendants.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(t.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}
