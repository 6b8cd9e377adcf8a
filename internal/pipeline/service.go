package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/pdflayout/internal/store"
)

// ErrQueueFull is returned by Submit when no more jobs can be queued.
var ErrQueueFull = errors.New("job queue is full")

// ServiceConfig tunes the background batch service.
type ServiceConfig struct {
	QueueSize int
	JobTTL    time.Duration
	OutputDir string
}

// Service queues batches submitted over the API and runs them one at a time
// on a single worker, so only one batch touches the downloads directory at
// once. Each job saves to its own results file under OutputDir.
type Service struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	log    *slog.Logger
	cfg    ServiceConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(cfg ServiceConfig, d Downloader, p Processor, log *slog.Logger) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.QueueSize),
		log:   log,
		cfg:   cfg,
	}
	s.worker = NewWorker(d, p, func(jobID string) Persister {
		return store.FileSink{Path: s.ResultsPath(jobID)}
	}, log)
	return s
}

// Start launches the worker goroutine and the job cleanup loop.
func (s *Service) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-s.queue:
				if !ok {
					return
				}
				s.worker.Process(workerCtx, job)
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()
}

// Stop cancels the running batch and waits for goroutines to exit.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	close(s.queue)
	s.wg.Wait()
}

// Submit queues a new job for processing.
func (s *Service) Submit(job *Job) error {
	s.jobs.Put(job)
	select {
	case s.queue <- job:
		return nil
	default:
		job.AddError("queue_full")
		job.SetStatus(StatusFailed, "queued")
		return fmt.Errorf("%w (%d)", ErrQueueFull, s.cfg.QueueSize)
	}
}

// GetJob returns a job by ID.
func (s *Service) GetJob(id string) *Job {
	return s.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (s *Service) QueueDepth() int {
	return len(s.queue)
}

// ResultsPath is where a job's results file is written.
func (s *Service) ResultsPath(jobID string) string {
	return filepath.Join(s.cfg.OutputDir, jobID+".json")
}

// cleanup evicts expired jobs and removes their results files.
func (s *Service) cleanup() {
	for _, id := range s.jobs.Cleanup() {
		if err := os.Remove(s.ResultsPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("remove expired results", "job_id", id, "error", err)
		}
	}
}
