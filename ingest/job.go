package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/normindex/normindex/core"
)

// Status is a job lifecycle state.
type Status int

const (
	StatusPending Status = iota + 1
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// OutcomeStatus classifies one document's result within a job.
type OutcomeStatus int

const (
	// DocumentIndexed means new chunks were written to the index.
	DocumentIndexed OutcomeStatus = iota + 1

	// DocumentDuplicate means every chunk was already indexed.
	DocumentDuplicate

	// DocumentFailed means the document could not be processed.
	DocumentFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case DocumentIndexed:
		return "indexed"
	case DocumentDuplicate:
		return "duplicate"
	case DocumentFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the per-document result of an ingestion job.
type Outcome struct {
	DocumentId core.ID
	Path       string
	Status     OutcomeStatus
	Method     core.ExtractionMethod
	Chunks     int
	Accepted   int
	Duplicates int
	Err        error
}

// Job tracks one ingestion run.
type Job struct {
	Id string

	mu         sync.Mutex
	status     Status
	outcomes   []Outcome
	err        error
	startedAt  time.Time
	finishedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func newJob(cancel context.CancelFunc) *Job {
	return &Job{
		Id:     uuid.NewString(),
		status: StatusPending,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Status returns the job's current lifecycle state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Outcomes returns a copy of the per-document results so far.
func (j *Job) Outcomes() []Outcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	outcomes := make([]Outcome, len(j.outcomes))
	copy(outcomes, j.outcomes)
	return outcomes
}

// Err returns the job-level error, if any.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Duration returns the job's run time so far, or its total run time
// once finished.
func (j *Job) Duration() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.startedAt.IsZero() {
		return 0
	}
	if j.finishedAt.IsZero() {
		return time.Since(j.startedAt)
	}
	return j.finishedAt.Sub(j.startedAt)
}

// Cancel requests cancellation. Documents already past their last
// pipeline stage stay indexed; the rest are abandoned at the next
// stage boundary.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the job finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-j.done:
		return j.Err()
	}
}

func (j *Job) start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusRunning
	j.startedAt = time.Now()
}

func (j *Job) addOutcome(outcome Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcomes = append(j.outcomes, outcome)
}

func (j *Job) finish(status Status, err error) {
	j.mu.Lock()
	j.status = status
	j.err = err
	j.finishedAt = time.Now()
	j.mu.Unlock()
	close(j.done)
}

// Jobs is a registry of ingestion jobs.
type Jobs struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobs creates an empty registry.
func NewJobs() *Jobs {
	return &Jobs{jobs: make(map[string]*Job)}
}

// Add registers a job.
func (r *Jobs) Add(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.Id] = job
}

// Get returns a job by ID.
func (r *Jobs) Get(id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// List returns all registered jobs.
func (r *Jobs) List() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
