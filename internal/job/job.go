// Package job tracks segmentation runs. A Job records one invocation of a
// segmentation pipeline: its inputs, state machine, produced files, published
// URLs and the kind of error that ended it.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/wavsegment/internal/job/id"
)

// Kind is the pipeline a job runs.
type Kind string

const (
	// KindSilence splits a file at silences.
	KindSilence Kind = "silence"
	// KindTime splits a file into fixed windows.
	KindTime Kind = "time"
	// KindJoin regroups segment files.
	KindJoin Kind = "join"
)

// IsValid returns true if the kind is known.
func (k Kind) IsValid() bool {
	return k == KindSilence || k == KindTime || k == KindJoin
}

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting for a free worker slot.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the pipeline is executing.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the pipeline or publishing returned an error.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job never ran because its context ended.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job represents one segmentation run.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Kind is the pipeline this job runs.
	Kind Kind
	// Status is the current job state.
	Status Status
	// Inputs are the audio files the job reads. For directory joins this is
	// the scanned directory.
	Inputs []string
	// OutputDir is where the produced files are written.
	OutputDir string
	// DryRun is set when the job only plans.
	DryRun bool
	// Message is the human-readable summary reported by the pipeline.
	Message string
	// OutputFiles are the produced (or planned) files in order.
	OutputFiles []string
	// PublishedURLs are the object storage URLs of OutputFiles, if published.
	PublishedURLs []string
	// Error contains the error message if the job failed.
	Error string
	// ErrorKind classifies Error: validation, file_access, processing or publish.
	ErrorKind string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job of the given kind with a generated ID and initial
// IN_QUEUE status.
func New(kind Kind) *Job {
	return NewWithID(id.Generate(), kind)
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID string, kind Kind) *Job {
	now := time.Now()
	return &Job{
		ID:          jobID,
		Kind:        kind,
		Status:      StatusInQueue,
		OutputFiles: make([]string, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED state.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED state with an error kind and message.
func (j *Job) Fail(kind, errMsg string) error {
	j.mu.Lock()
	j.ErrorKind = kind
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetResult records what the pipeline produced.
func (j *Job) SetResult(message, outputDir string, outputs []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Message = message
	j.OutputDir = outputDir
	j.OutputFiles = append(make([]string, 0, len(outputs)), outputs...)
	j.UpdatedAt = time.Now()
}

// SetPublished records the URLs of the published outputs.
func (j *Job) SetPublished(urls []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.PublishedURLs = append(make([]string, 0, len(urls)), urls...)
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted ||
		j.Status == StatusFailed ||
		j.Status == StatusCancelled
}

// Elapsed returns the time spent running. It is zero until the job starts.
func (j *Job) Elapsed() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	switch {
	case j.StartedAt.IsZero():
		return 0
	case j.CompletedAt.IsZero():
		return time.Since(j.StartedAt)
	default:
		return j.CompletedAt.Sub(j.StartedAt)
	}
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:            j.ID,
		Kind:          j.Kind,
		Status:        j.Status,
		Inputs:        cloneStrings(j.Inputs),
		OutputDir:     j.OutputDir,
		DryRun:        j.DryRun,
		Message:       j.Message,
		OutputFiles:   cloneStrings(j.OutputFiles),
		PublishedURLs: cloneStrings(j.PublishedURLs),
		Error:         j.Error,
		ErrorKind:     j.ErrorKind,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
