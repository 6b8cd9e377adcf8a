package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Worker runs queued jobs as batches.
type Worker struct {
	downloader Downloader
	processor  Processor
	sinkFor    func(jobID string) Persister
	log        *slog.Logger
}

func NewWorker(d Downloader, p Processor, sinkFor func(jobID string) Persister, log *slog.Logger) *Worker {
	return &Worker{
		downloader: d,
		processor:  p,
		sinkFor:    sinkFor,
		log:        log,
	}
}

// Process runs the batch for a job and sets its final status: completed
// when every source succeeded (or there were none), partial when some
// failed, failed when all failed or the results could not be saved.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	job.SetStatus(StatusRunning, "running")

	o := NewOrchestrator(w.downloader, w.processor, w.sinkFor(job.ID), log)
	o.OnOutcome = job.RecordOutcome

	report, err := o.Run(ctx, job.Sources)
	job.SetRunID(report.RunID)
	if err != nil {
		job.AddError(fmt.Sprintf("save: %s", err))
		job.SetStatus(StatusFailed, "saving")
		return
	}

	switch {
	case len(report.Failed) == 0:
		job.SetStatus(StatusCompleted, "done")
	case len(report.Succeeded) > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "done")
	}
}
