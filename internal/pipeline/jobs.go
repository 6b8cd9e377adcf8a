package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pdflayout/internal/sources"
)

// JobStatus represents the state of a queued batch.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of one batch submitted over the API.
type Job struct {
	mu sync.Mutex

	ID      string           `json:"job_id"`
	RunID   string           `json:"run_id"`
	Status  JobStatus        `json:"status"`
	Phase   string           `json:"phase"`
	Sources []sources.Source `json:"sources"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	failures []Failure
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// NewJob returns a queued job for srcs.
func NewJob(srcs []sources.Source) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Sources:   srcs,
		Progress:  Progress{Total: len(srcs)},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes finished jobs idle for longer than the TTL and returns
// their IDs.
func (s *JobStore) Cleanup() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	now := time.Now()
	for id, job := range s.jobs {
		if job.expired(now, s.ttl) {
			delete(s.jobs, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func (j *Job) expired(now time.Time, ttl time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.Status {
	case StatusQueued, StatusRunning:
		return false
	}
	return now.Sub(j.UpdatedAt) > ttl
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetRunID records the run ID of the batch executing this job.
func (j *Job) SetRunID(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.RunID = id
	j.UpdatedAt = time.Now()
}

// AddError records a job-level error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// RecordOutcome counts one finished source.
func (j *Job) RecordOutcome(out Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Processed++
	if out.OK() {
		j.Progress.Succeeded++
	} else {
		j.Progress.Failed++
		j.failures = append(j.failures, Failure{
			Filename: out.Source.Filename,
			URL:      out.Source.URL,
			Stage:    out.Stage,
			Error:    out.Err.Error(),
		})
	}
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	RunID     string    `json:"run_id,omitempty"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	Failures  []Failure `json:"failures"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	failures := append([]Failure{}, j.failures...)
	return JobSnapshot{
		ID:     j.ID,
		RunID:  j.RunID,
		Status: j.Status,
		Phase:  j.Phase,
		Progress: Progress{
			Total:     j.Progress.Total,
			Processed: j.Progress.Processed,
			Succeeded: j.Progress.Succeeded,
			Failed:    j.Progress.Failed,
			Errors:    errs,
		},
		Failures:  failures,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// Done reports whether the job reached a final status.
func (s JobSnapshot) Done() bool {
	switch s.Status {
	case StatusCompleted, StatusPartial, StatusFailed:
		return true
	}
	return false
}
