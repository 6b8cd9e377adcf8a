// Package pipeline runs batches of downloads through analysis and
// persistence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dgallion1/pdflayout/internal/result"
	"github.com/dgallion1/pdflayout/internal/sources"
)

// Downloader fetches one source into a local file and returns its path.
type Downloader interface {
	Download(ctx context.Context, url, filename string) (string, error)
}

// Processor turns a local file into a result document.
type Processor interface {
	Process(ctx context.Context, path string) (result.Document, error)
}

// Persister stores the successful results of a batch.
type Persister interface {
	Save(ctx context.Context, docs []result.Document) error
}

// Stage names the step a source failed at.
type Stage string

const (
	StageDownload Stage = "download"
	StageProcess  Stage = "process"
)

// Outcome is the result of one source: a document or an error.
type Outcome struct {
	Source sources.Source
	Result result.Document
	Stage  Stage
	Err    error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Failure describes a skipped source.
type Failure struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Stage    Stage  `json:"stage"`
	Error    string `json:"error"`
}

// Report summarizes a batch. Succeeded is in input order.
type Report struct {
	RunID     string            `json:"run_id"`
	Succeeded []result.Document `json:"-"`
	Failed    []Failure         `json:"failed"`
}

// Orchestrator runs sources one at a time: download, process, then a
// single save of everything that succeeded.
type Orchestrator struct {
	downloader Downloader
	processor  Processor
	persister  Persister
	log        *slog.Logger

	// OnOutcome, if set, is called after each source finishes.
	OnOutcome func(Outcome)
}

func NewOrchestrator(d Downloader, p Processor, s Persister, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{downloader: d, processor: p, persister: s, log: log}
}

// Run processes srcs in order. Per-source failures are logged and recorded
// in the report; they never stop the batch. The returned error is non-nil
// only when saving fails. If ctx is canceled, the remaining sources are
// recorded as failed and what already succeeded is still saved.
func (o *Orchestrator) Run(ctx context.Context, srcs []sources.Source) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		Succeeded: []result.Document{},
		Failed:    []Failure{},
	}
	log := o.log.With("run_id", report.RunID)
	log.Info("batch started", "sources", len(srcs))

	for _, src := range srcs {
		out := o.runOne(ctx, log, src)
		if out.OK() {
			report.Succeeded = append(report.Succeeded, out.Result)
		} else {
			report.Failed = append(report.Failed, Failure{
				Filename: src.Filename,
				URL:      src.URL,
				Stage:    out.Stage,
				Error:    out.Err.Error(),
			})
		}
		if o.OnOutcome != nil {
			o.OnOutcome(out)
		}
	}

	if err := o.persister.Save(context.WithoutCancel(ctx), report.Succeeded); err != nil {
		log.Error("save failed", "error", err)
		return report, err
	}
	log.Info("batch complete", "succeeded", len(report.Succeeded), "failed", len(report.Failed))
	return report, nil
}

func (o *Orchestrator) runOne(ctx context.Context, log *slog.Logger, src sources.Source) Outcome {
	log = log.With("filename", src.Filename)
	fail := func(stage Stage, err error) Outcome {
		log.Error("processing failed", "stage", string(stage), "error", err.Error())
		return Outcome{Source: src, Stage: stage, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(StageDownload, fmt.Errorf("batch canceled: %w", err))
	}

	log.Info("downloading", "url", src.URL)
	path, err := o.downloader.Download(ctx, src.URL, src.Filename)
	if err != nil {
		return fail(StageDownload, err)
	}

	log.Info("processing", "path", path)
	doc, err := o.processor.Process(ctx, path)
	if err != nil {
		return fail(StageProcess, err)
	}
	log.Info("processed", "spans", len(doc.Spans), "tables", len(doc.Tables), "pages", len(doc.Layout.Pages))
	return Outcome{Source: src, Result: doc}
}
