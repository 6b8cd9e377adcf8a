// Package sources describes the (URL, filename) pairs a batch processes.
package sources

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/goccy/go-yaml"
)

// Source is one file to download and analyze.
type Source struct {
	URL      string `json:"url" yaml:"url" mapstructure:"url"`
	Filename string `json:"filename" yaml:"filename" mapstructure:"filename"`
}

// Manifest is the on-disk form of a source list.
type Manifest struct {
	Sources []Source `yaml:"sources"`
}

var (
	ErrInvalidURL      = errors.New("invalid source url")
	ErrInvalidFilename = errors.New("invalid source filename")
)

// Validate checks that URL is absolute http(s) and Filename is a bare name.
func (s Source) Validate() error {
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, s.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, s.URL)
	}
	if !ValidFilename(s.Filename) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, s.Filename)
	}
	return nil
}

// ValidFilename reports whether name can be used as-is inside a directory.
func ValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

// ValidateAll validates every source, reporting the index of the first bad one.
func ValidateAll(list []Source) error {
	for i, s := range list {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
	}
	return nil
}

// FilenameFromURL derives a filename from the last path segment of rawURL.
// It returns "" when the URL has no usable segment.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if !ValidFilename(name) {
		return ""
	}
	return name
}

// Defaults returns the built-in sample batch.
func Defaults() []Source {
	return []Source{
		{URL: "https://www.irs.gov/pub/irs-pdf/f1040.pdf", Filename: "f1040.pdf"},
		{URL: "https://www.w3.org/WAI/WCAG21/working-examples/pdf-table/table.pdf", Filename: "table_example.pdf"},
		{URL: "https://www.africau.edu/images/default/sample.pdf", Filename: "sample_text.pdf"},
	}
}

// LoadManifest reads a YAML manifest. Entries without a filename get one
// derived from their URL. Entries are not validated here: a bad entry
// fails on its own when the batch downloads it.
func LoadManifest(path string) ([]Source, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(content)
}

// ParseManifest decodes manifest YAML.
func ParseManifest(content []byte) ([]Source, error) {
	var m Manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for i := range m.Sources {
		if m.Sources[i].Filename == "" {
			m.Sources[i].Filename = FilenameFromURL(m.Sources[i].URL)
		}
	}
	return m.Sources, nil
}

// WriteManifest encodes list as a YAML manifest.
func WriteManifest(w io.Writer, list []Source) error {
	if list == nil {
		list = []Source{}
	}
	out, err := yaml.Marshal(Manifest{Sources: list})
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
