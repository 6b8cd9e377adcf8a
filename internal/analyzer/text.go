package analyzer

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/pdflayout/internal/doctree"
)

// TextAnalyzer splits plain text into paragraphs on blank lines.
type TextAnalyzer struct{}

func (a *TextAnalyzer) Analyze(ctx context.Context, path string) (*doctree.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open text: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := doctree.NewBuilder()
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			b.Add(paragraphLabel(current.String()), current.String(), nil)
			current.Reset()
		}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	flush()
	return b.Document(), nil
}

func paragraphLabel(para string) doctree.Label {
	if listMarker.MatchString(strings.TrimSpace(para)) {
		return doctree.LabelListItem
	}
	return doctree.LabelText
}
