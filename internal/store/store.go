// Package store persists batch results.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/pdflayout/internal/result"
)

// IOError is returned when results cannot be written or read.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Sink receives the results of one batch.
type Sink interface {
	Save(ctx context.Context, docs []result.Document) error
}

// Marshal encodes docs as a JSON array indented with two spaces and a
// trailing newline. A nil slice encodes as [].
func Marshal(docs []result.Document) ([]byte, error) {
	if docs == nil {
		docs = []result.Document{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(docs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes docs to path, replacing any existing file.
func Save(docs []result.Document, path string) error {
	return FileSink{Path: path}.Save(context.Background(), docs)
}

// Load reads a results file written by Save.
func Load(path string) ([]result.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	var docs []result.Document
	if err := json.Unmarshal(content, &docs); err != nil {
		return nil, &IOError{Op: "decode", Path: path, Err: err}
	}
	return docs, nil
}

// FileSink writes results to a local JSON file.
type FileSink struct {
	Path string
}

// Save writes through a temp file in the same directory and renames it over
// Path, so readers never see a half-written file.
func (s FileSink) Save(ctx context.Context, docs []result.Document) error {
	if err := ctx.Err(); err != nil {
		return &IOError{Op: "write", Path: s.Path, Err: err}
	}
	content, err := Marshal(docs)
	if err != nil {
		return &IOError{Op: "encode", Path: s.Path, Err: err}
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "write", Path: s.Path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: s.Path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write", Path: s.Path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &IOError{Op: "chmod", Path: s.Path, Err: err}
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return &IOError{Op: "rename", Path: s.Path, Err: err}
	}
	return nil
}

// MultiSink saves to each sink in order and stops at the first error.
type MultiSink []Sink

func (m MultiSink) Save(ctx context.Context, docs []result.Document) error {
	for _, s := range m {
		if err := s.Save(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}
