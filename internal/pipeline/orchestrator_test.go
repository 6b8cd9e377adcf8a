package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/pdflayout/internal/result"
	"github.com/dgallion1/pdflayout/internal/sources"
	"github.com/dgallion1/pdflayout/internal/store"
)

type fakeDownloader struct {
	calls []string
	fail  map[string]error
}

func (f *fakeDownloader) Download(ctx context.Context, url, filename string) (string, error) {
	f.calls = append(f.calls, filename)
	if err := f.fail[filename]; err != nil {
		return "", err
	}
	return "/downloads/" + filename, nil
}

type fakeProcessor struct {
	calls []string
	fail  map[string]error
}

func (f *fakeProcessor) Process(ctx context.Context, path string) (result.Document, error) {
	f.calls = append(f.calls, path)
	name := filepath.Base(path)
	if err := f.fail[name]; err != nil {
		return result.Document{}, err
	}
	return result.Document{
		Filename: name,
		Text:     "text of " + name,
		Layout:   result.Layout{Pages: []result.Page{}},
		Spans:    []result.Span{},
		Tables:   []result.Table{},
	}, nil
}

type fakePersister struct {
	calls int
	saved []result.Document
	err   error
}

func (f *fakePersister) Save(ctx context.Context, docs []result.Document) error {
	f.calls++
	f.saved = docs
	return f.err
}

func threeSources() []sources.Source {
	return []sources.Source{
		{URL: "https://example.com/one.pdf", Filename: "one.pdf"},
		{URL: "https://example.com/two.pdf", Filename: "two.pdf"},
		{URL: "https://example.com/three.pdf", Filename: "three.pdf"},
	}
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestRun_PartialFailure(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	dl := &fakeDownloader{}
	proc := &fakeProcessor{fail: map[string]error{"two.pdf": errors.New("corrupt xref table")}}
	sink := &fakePersister{}
	var seen []string

	o := NewOrchestrator(dl, proc, sink, log)
	o.OnOutcome = func(out Outcome) { seen = append(seen, out.Source.Filename) }

	report, err := o.Run(context.Background(), threeSources())
	require.NoError(t, err)

	assert.Equal(t, []string{"one.pdf", "two.pdf", "three.pdf"}, dl.calls)
	assert.Equal(t, []string{"one.pdf", "two.pdf", "three.pdf"}, seen)
	assert.Equal(t, 1, sink.calls)
	require.Len(t, sink.saved, 2)
	assert.Equal(t, "one.pdf", sink.saved[0].Filename)
	assert.Equal(t, "three.pdf", sink.saved[1].Filename)
	assert.Equal(t, sink.saved, report.Succeeded)

	require.Len(t, report.Failed, 1)
	assert.Equal(t, Failure{
		Filename: "two.pdf",
		URL:      "https://example.com/two.pdf",
		Stage:    StageProcess,
		Error:    "corrupt xref table",
	}, report.Failed[0])
	assert.NotEmpty(t, report.RunID)

	var failed []map[string]any
	for _, line := range logLines(t, &buf) {
		assert.Equal(t, report.RunID, line["run_id"])
		if line["msg"] == "processing failed" {
			failed = append(failed, line)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "two.pdf", failed[0]["filename"])
	assert.Equal(t, "corrupt xref table", failed[0]["error"])
	assert.Equal(t, "ERROR", failed[0]["level"])
}

func TestRun_DownloadFailureSkipsProcessing(t *testing.T) {
	dl := &fakeDownloader{fail: map[string]error{"one.pdf": errors.New("status 404")}}
	proc := &fakeProcessor{}
	sink := &fakePersister{}

	report, err := NewOrchestrator(dl, proc, sink, nil).Run(context.Background(), threeSources())
	require.NoError(t, err)

	assert.Equal(t, []string{"/downloads/two.pdf", "/downloads/three.pdf"}, proc.calls)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, StageDownload, report.Failed[0].Stage)
	assert.Len(t, sink.saved, 2)
}

func TestRun_EmptyBatchStillSaves(t *testing.T) {
	sink := &fakePersister{}
	report, err := NewOrchestrator(&fakeDownloader{}, &fakeProcessor{}, sink, nil).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, sink.calls)
	assert.NotNil(t, sink.saved)
	assert.Empty(t, sink.saved)
	assert.Empty(t, report.Failed)
}

func TestRun_AllFailStillSaves(t *testing.T) {
	boom := errors.New("unreachable")
	dl := &fakeDownloader{fail: map[string]error{"one.pdf": boom, "two.pdf": boom, "three.pdf": boom}}
	sink := &fakePersister{}

	report, err := NewOrchestrator(dl, &fakeProcessor{}, sink, nil).Run(context.Background(), threeSources())
	require.NoError(t, err)
	assert.Equal(t, 1, sink.calls)
	assert.Empty(t, sink.saved)
	assert.Len(t, report.Failed, 3)
}

func TestRun_SaveErrorIsReturned(t *testing.T) {
	ioErr := &store.IOError{Op: "write", Path: "/x", Err: os.ErrPermission}
	sink := &fakePersister{err: ioErr}

	report, err := NewOrchestrator(&fakeDownloader{}, &fakeProcessor{}, sink, nil).Run(context.Background(), threeSources())
	var got *store.IOError
	require.ErrorAs(t, err, &got)
	assert.Len(t, report.Succeeded, 3)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dl := &fakeDownloader{}
	sink := &fakePersister{}
	report, err := NewOrchestrator(dl, &fakeProcessor{}, sink, nil).Run(ctx, threeSources())
	require.NoError(t, err)

	assert.Empty(t, dl.calls)
	assert.Equal(t, 1, sink.calls)
	require.Len(t, report.Failed, 3)
	assert.Contains(t, report.Failed[0].Error, "canceled")
}

type validatingDownloader struct{}

func (validatingDownloader) Download(ctx context.Context, url, filename string) (string, error) {
	if err := (sources.Source{URL: url, Filename: filename}).Validate(); err != nil {
		return "", err
	}
	return "/downloads/" + filename, nil
}

func TestRun_InvalidSourceFailsAlone(t *testing.T) {
	srcs := []sources.Source{
		{URL: "https://example.com/a.pdf", Filename: "a.pdf"},
		{URL: "ftp://example.com/b.pdf", Filename: "b.pdf"},
		{URL: "https://example.com/c.pdf", Filename: "c.pdf"},
	}
	sink := &fakePersister{}

	report, err := NewOrchestrator(validatingDownloader{}, &fakeProcessor{}, sink, nil).Run(context.Background(), srcs)
	require.NoError(t, err)

	assert.Equal(t, 1, sink.calls)
	require.Len(t, sink.saved, 2)
	assert.Equal(t, "a.pdf", sink.saved[0].Filename)
	assert.Equal(t, "c.pdf", sink.saved[1].Filename)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "b.pdf", report.Failed[0].Filename)
	assert.Equal(t, StageDownload, report.Failed[0].Stage)
}

func TestRun_WritesResultsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_results.json")
	proc := &fakeProcessor{fail: map[string]error{"two.pdf": errors.New("bad")}}

	_, err := NewOrchestrator(&fakeDownloader{}, proc, store.FileSink{Path: path}, nil).Run(context.Background(), threeSources())
	require.NoError(t, err)

	docs, err := store.Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "one.pdf", docs[0].Filename)
	assert.Equal(t, "three.pdf", docs[1].Filename)
}
