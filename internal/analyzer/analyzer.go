package analyzer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/pdflayout/internal/doctree"
)

// ErrUnsupportedFormat is returned for file extensions no analyzer handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Analyzer runs layout analysis over a local file.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can analyze.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".html":     true,
	".htm":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".xlsx":     true,
	".txt":      true,
}

// ForFile returns the analyzer for a filename's extension.
func ForFile(filename string) (Analyzer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFAnalyzer{}, nil
	case ".docx":
		return &DOCXAnalyzer{}, nil
	case ".html", ".htm":
		return &HTMLAnalyzer{}, nil
	case ".md", ".markdown":
		return &MarkdownAnalyzer{}, nil
	case ".csv":
		return &CSVAnalyzer{}, nil
	case ".xlsx":
		return &XLSXAnalyzer{}, nil
	case ".txt":
		return &TextAnalyzer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Auto picks an analyzer per path by extension.
type Auto struct{}

func (Auto) Analyze(ctx context.Context, path string) (*doctree.Document, error) {
	a, err := ForFile(path)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, path)
}
