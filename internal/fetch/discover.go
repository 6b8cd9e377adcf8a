package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/dgallion1/pdflayout/internal/analyzer"
	"github.com/dgallion1/pdflayout/internal/sources"
	"golang.org/x/net/html"
)

const maxPageSize = 10 << 20

// DiscoverLinks fetches an HTML page and returns a source for every anchor
// that points at a supported document type, in document order. Links are
// resolved against the page URL and deduplicated.
func (c *Client) DiscoverLinks(ctx context.Context, pageURL string) ([]sources.Source, error) {
	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, &NetworkError{URL: pageURL, Err: fmt.Errorf("%w: %q", ErrInvalidSource, pageURL)}
	}

	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	root, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return extractLinks(root, base), nil
}

func extractLinks(root *html.Node, base *url.URL) []sources.Source {
	var out []sources.Source
	seenURL := make(map[string]bool)
	seenName := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attr(n, "href"); href != "" {
				if src, ok := linkSource(base, href); ok && !seenURL[src.URL] {
					seenURL[src.URL] = true
					src.Filename = uniqueName(src.Filename, seenName)
					out = append(out, src)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func linkSource(base *url.URL, href string) (sources.Source, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return sources.Source{}, false
	}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	if u.Scheme != "http" && u.Scheme != "https" {
		return sources.Source{}, false
	}
	name := sources.FilenameFromURL(u.String())
	if name == "" || !analyzer.IsSupportedExtension(name) {
		return sources.Source{}, false
	}
	return sources.Source{URL: u.String(), Filename: name}, true
}

// uniqueName appends -2, -3, ... before the extension until name is unused.
func uniqueName(name string, seen map[string]bool) string {
	candidate := name
	ext := ""
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		ext = name[i:]
	}
	stem := strings.TrimSuffix(name, ext)
	for n := 2; seen[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
	seen[candidate] = true
	return candidate
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
