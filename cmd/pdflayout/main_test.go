package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/pdflayout/internal/config"
	"github.com/dgallion1/pdflayout/internal/sources"
	"github.com/dgallion1/pdflayout/internal/store"
)

func newFileServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/notes.md", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Notes\n\n| item | qty |\n| --- | --- |\n| bolts | 4 |\n"))
	})
	mux.HandleFunc("/plain.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("first paragraph\n\nsecond paragraph\n"))
	})
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="/notes.md">notes</a><a href="plain.txt">plain</a><a href="/about">about</a>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, srcs []sources.Source) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DownloadsDir: filepath.Join(dir, "pdfs"),
		OutputPath:   filepath.Join(dir, "processed_results.json"),
		Sources:      srcs,
		HTTP:         config.HTTPConfig{UserAgent: "pdflayout-test"},
		Log:          config.LogConfig{Level: "error", Format: "json"},
	}
}

func TestRunBatch_SkipsFailuresAndSaves(t *testing.T) {
	srv := newFileServer(t)
	cfg := testConfig(t, []sources.Source{
		{URL: srv.URL + "/notes.md", Filename: "notes.md"},
		{URL: srv.URL + "/missing.pdf", Filename: "missing.pdf"},
		{URL: srv.URL + "/plain.txt", Filename: "plain.txt"},
	})
	cfg.Export.TablesXLSX = filepath.Join(t.TempDir(), "tables.xlsx")

	require.NoError(t, runBatch(context.Background(), cfg))

	docs, err := store.Load(cfg.OutputPath)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "notes.md", docs[0].Filename)
	assert.Equal(t, "plain.txt", docs[1].Filename)
	require.Len(t, docs[0].Tables, 1)
	assert.Contains(t, docs[0].Markdown, "# Notes")

	assert.FileExists(t, filepath.Join(cfg.DownloadsDir, "notes.md"))
	assert.NoFileExists(t, filepath.Join(cfg.DownloadsDir, "missing.pdf"))

	f, err := excelize.OpenFile(cfg.Export.TablesXLSX)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "notes t1")
}

func TestRunBatch_InvalidSourceIsSkipped(t *testing.T) {
	srv := newFileServer(t)
	cfg := testConfig(t, nil)
	cfg.SourcesFile = filepath.Join(t.TempDir(), "sources.yaml")
	manifest := "sources:\n" +
		"  - url: " + srv.URL + "/notes.md\n" +
		"  - url: ftp://example.com/b.pdf\n" +
		"  - url: " + srv.URL + "/plain.txt\n"
	require.NoError(t, os.WriteFile(cfg.SourcesFile, []byte(manifest), 0o600))

	require.NoError(t, runBatch(context.Background(), cfg))

	docs, err := store.Load(cfg.OutputPath)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "notes.md", docs[0].Filename)
	assert.Equal(t, "plain.txt", docs[1].Filename)
	assert.NoFileExists(t, filepath.Join(cfg.DownloadsDir, "b.pdf"))
}

func TestRunBatch_EmptyInlineSources(t *testing.T) {
	cfg := testConfig(t, []sources.Source{})
	require.NoError(t, runBatch(context.Background(), cfg))

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestRunBatch_EmptyBatchWritesEmptyArray(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.SourcesFile = filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(cfg.SourcesFile, []byte("sources: []\n"), 0o600))

	require.NoError(t, runBatch(context.Background(), cfg))

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestRunBatch_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.OutputPath = ""
	assert.ErrorContains(t, runBatch(context.Background(), cfg), "invalid configuration")
}

func TestRunBatch_SaveFailureIsError(t *testing.T) {
	cfg := testConfig(t, nil)
	// A directory cannot be replaced by the results file.
	require.NoError(t, os.MkdirAll(cfg.OutputPath, 0o755))

	var ioErr *store.IOError
	assert.ErrorAs(t, runBatch(context.Background(), cfg), &ioErr)
}

func TestDiscoverCommand(t *testing.T) {
	srv := newFileServer(t)
	t.Setenv("PDFLAYOUT_DOWNLOADS_DIR", t.TempDir())

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"discover", srv.URL + "/index.html"})
	require.NoError(t, cmd.Execute())

	got, err := sources.ParseManifest(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []sources.Source{
		{URL: srv.URL + "/notes.md", Filename: "notes.md"},
		{URL: srv.URL + "/plain.txt", Filename: "plain.txt"},
	}, got)
}

func TestRootCmd_FlagOverrides(t *testing.T) {
	opts := &rootOptions{outputPath: "out.json", downloadsDir: "dl", logLevel: "debug", tablesXLSX: "t.xlsx"}
	cfg, err := opts.load()
	require.NoError(t, err)
	assert.Equal(t, "out.json", cfg.OutputPath)
	assert.Equal(t, "dl", cfg.DownloadsDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "t.xlsx", cfg.Export.TablesXLSX)
}
