package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dgallion1/pdflayout/internal/export"
	"github.com/dgallion1/pdflayout/internal/result"
	"github.com/dgallion1/pdflayout/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// loadResults returns the saved documents of a finished job. It writes the
// error response itself and returns ok=false on any failure.
func (s *Server) loadResults(w http.ResponseWriter, r *http.Request) ([]result.Document, bool) {
	jobID := chi.URLParam(r, "jobID")
	job := s.service.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	snap := job.Snapshot()
	if !snap.Done() {
		jsonError(w, "job is still "+string(snap.Status), http.StatusConflict)
		return nil, false
	}

	docs, err := store.Load(s.service.ResultsPath(jobID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			jsonError(w, "no results for job", http.StatusNotFound)
			return nil, false
		}
		s.log.Error("load results", "job_id", jobID, "error", err)
		jsonError(w, "failed to load results", http.StatusInternalServerError)
		return nil, false
	}
	return docs, true
}

// handleResults serves the job's results array exactly as saved.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.loadResults(w, r)
	if !ok {
		return
	}
	data, err := store.Marshal(docs)
	if err != nil {
		jsonError(w, "failed to encode results", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleMarkdown renders one document's Markdown as HTML.
func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		jsonError(w, "invalid filename", http.StatusBadRequest)
		return
	}
	docs, ok := s.loadResults(w, r)
	if !ok {
		return
	}

	for _, doc := range docs {
		if doc.Filename != name {
			continue
		}
		var buf bytes.Buffer
		if err := markdownRenderer.Convert([]byte(doc.Markdown), &buf); err != nil {
			jsonError(w, "failed to render markdown", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
		return
	}
	jsonError(w, "document not found in results", http.StatusNotFound)
}

// handleTablesWorkbook exports every table in the job's results as XLSX.
func (s *Server) handleTablesWorkbook(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.loadResults(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.StreamTablesWorkbook(&buf, docs); err != nil {
		s.log.Error("export tables", "error", err)
		jsonError(w, "failed to build workbook", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="tables.xlsx"`)
	w.Write(buf.Bytes())
}
