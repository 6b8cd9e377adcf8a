package analyzer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/pdflayout/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLAnalyzer maps block elements to span labels. No geometry.
type HTMLAnalyzer struct{}

func (a *HTMLAnalyzer) Analyze(ctx context.Context, path string) (*doctree.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open html: %w", err)
	}
	defer f.Close()

	root, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	b := doctree.NewBuilder()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "noscript", "template":
				return
			case "h1":
				b.Add(doctree.LabelTitle, textContent(n), nil)
				return
			case "h2", "h3", "h4", "h5", "h6":
				b.Add(doctree.LabelSectionHeader, textContent(n), nil)
				return
			case "p", "blockquote", "pre", "figcaption", "dt", "dd":
				b.Add(doctree.LabelText, textContent(n), nil)
				return
			case "li":
				b.Add(doctree.LabelListItem, textContent(n), nil)
				return
			case "table":
				b.AddTable(htmlTableRows(n), nil)
				return
			case "header":
				b.Add(doctree.LabelPageHeader, textContent(n), nil)
				return
			case "footer":
				b.Add(doctree.LabelPageFooter, textContent(n), nil)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if body := findElement(root, "body"); body != nil {
		walk(body)
	} else {
		walk(root)
	}
	return b.Document(), nil
}

// htmlTableRows collects cell text for rows of this table, skipping rows of
// nested tables.
func htmlTableRows(table *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "table":
				continue
			case "tr":
				var row []string
				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.Type == html.ElementNode && (td.Data == "td" || td.Data == "th") {
						row = append(row, textContent(td))
					}
				}
				rows = append(rows, row)
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
