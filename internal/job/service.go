package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/maauso/wavsegment/internal/metrics"
	"github.com/maauso/wavsegment/internal/segment"
	"github.com/maauso/wavsegment/internal/storage"
)

// ErrUnknownKind is returned for a task whose kind is not a known pipeline.
var ErrUnknownKind = errors.New("unknown job kind")

// errorKindPublish classifies failures while uploading outputs.
const errorKindPublish = "publish"

// Engine runs the segmentation pipelines.
type Engine interface {
	SplitBySilence(input string, opts segment.SilenceOptions) (*segment.SplitResult, error)
	SplitByTime(input string, opts segment.TimeOptions) (*segment.SplitResult, error)
	Join(opts segment.JoinOptions) (*segment.JoinResult, error)
}

var _ Engine = (*segment.Segmenter)(nil)

// Task describes one invocation of a pipeline. Only the options matching
// Kind are used.
type Task struct {
	Kind Kind
	// Input is the audio file of a split task.
	Input   string
	Silence segment.SilenceOptions
	Time    segment.TimeOptions
	Join    segment.JoinOptions
}

func (t Task) inputs() []string {
	switch {
	case t.Kind != KindJoin:
		return []string{t.Input}
	case len(t.Join.Filenames) > 0:
		return append([]string(nil), t.Join.Filenames...)
	case t.Join.InputDir != "":
		return []string{t.Join.InputDir}
	default:
		return []string{}
	}
}

func (t Task) outputDir() string {
	switch t.Kind {
	case KindSilence:
		return t.Silence.OutputDir
	case KindTime:
		return t.Time.OutputDir
	default:
		return t.Join.OutputDir
	}
}

// validate checks the options so that nothing is created for a task the
// engine would reject.
func (t Task) validate() error {
	switch t.Kind {
	case KindSilence:
		return t.Silence.Validate()
	case KindTime:
		return t.Time.Validate()
	default:
		return t.Join.Validate()
	}
}

func (t Task) dryRun() bool {
	switch t.Kind {
	case KindSilence:
		return t.Silence.DryRun
	case KindTime:
		return t.Time.DryRun
	default:
		return t.Join.DryRun
	}
}

// Report is the outcome of one job as printed by the CLI.
type Report struct {
	JobID         string               `json:"job_id"`
	Kind          Kind                 `json:"kind"`
	Status        Status               `json:"status"`
	Success       bool                 `json:"success"`
	Inputs        []string             `json:"inputs"`
	Message       string               `json:"message,omitempty"`
	ErrorKind     string               `json:"error_kind,omitempty"`
	Error         string               `json:"error,omitempty"`
	Split         *segment.SplitResult `json:"split,omitempty"`
	Join          *segment.JoinResult  `json:"join,omitempty"`
	PublishedURLs []string             `json:"published_urls,omitempty"`
	ElapsedMS     int64                `json:"elapsed_ms"`
}

// Service runs segmentation jobs, records them in a Repository and
// optionally publishes their outputs.
type Service struct {
	repo    Repository
	engine  Engine
	storage storage.Storage
	metrics *metrics.Metrics
	logger  *slog.Logger
	// maxConcurrentFiles limits how many jobs of a batch run at once.
	maxConcurrentFiles int
	removeAfterPublish bool
}

// NewService creates a new Service.
func NewService(repo Repository, engine Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:               repo,
		engine:             engine,
		logger:             logger,
		maxConcurrentFiles: 2,
	}
}

// SetStorage configures output directory preparation and publishing.
func (s *Service) SetStorage(st storage.Storage) {
	s.storage = st
}

// SetMetrics configures metrics collection.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetMaxConcurrentFiles configures how many jobs of a batch run in parallel.
func (s *Service) SetMaxConcurrentFiles(n int) {
	if n > 0 {
		s.maxConcurrentFiles = n
	}
}

// SetRemoveAfterPublish makes the service delete local outputs once they
// have been published.
func (s *Service) SetRemoveAfterPublish(remove bool) {
	s.removeAfterPublish = remove
}

// GetJob retrieves a job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// SplitBySilence runs a silence split as a job.
func (s *Service) SplitBySilence(ctx context.Context, input string, opts segment.SilenceOptions) (*Report, error) {
	return s.Run(ctx, Task{Kind: KindSilence, Input: input, Silence: opts})
}

// SplitByTime runs a time split as a job.
func (s *Service) SplitByTime(ctx context.Context, input string, opts segment.TimeOptions) (*Report, error) {
	return s.Run(ctx, Task{Kind: KindTime, Input: input, Time: opts})
}

// Join runs a join as a job.
func (s *Service) Join(ctx context.Context, opts segment.JoinOptions) (*Report, error) {
	return s.Run(ctx, Task{Kind: KindJoin, Join: opts})
}

// Run executes one task. The returned error is the error that failed or
// cancelled the job; the report is returned in every case except for an
// unknown kind.
//
// A job whose context is already done is cancelled without running. Once
// started, the pipeline runs to completion.
func (s *Service) Run(ctx context.Context, task Task) (*Report, error) {
	if !task.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, task.Kind)
	}

	job := New(task.Kind)
	job.Inputs = task.inputs()
	job.DryRun = task.dryRun()
	// Records must be kept after cancellation.
	saveCtx := context.WithoutCancel(ctx)
	s.save(saveCtx, job)

	if err := ctx.Err(); err != nil {
		_ = job.Cancel()
		s.finish(saveCtx, job)
		s.logger.Warn("job cancelled before start",
			slog.String("job_id", job.ID),
			slog.String("kind", string(job.Kind)),
		)
		return s.report(job, nil, nil), err
	}

	_ = job.Start()
	s.save(saveCtx, job)
	if s.metrics != nil {
		s.metrics.ActiveJobs.Inc()
		defer s.metrics.ActiveJobs.Dec()
	}

	s.logger.Info("job started",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.Any("inputs", job.Inputs),
		slog.Bool("dry_run", job.DryRun),
	)

	split, joined, err := s.execute(ctx, task)
	if err != nil {
		return s.fail(saveCtx, job, kindOf(err), err, split, joined)
	}

	var outputs []string
	switch {
	case split != nil:
		job.SetResult(split.Message, split.OutputDir, split.OutputFiles)
		outputs = split.OutputFiles
		s.observeSplit(task.Kind, split)
	case joined != nil:
		job.SetResult(joined.Message, joined.OutputDir, joined.OutputFiles)
		outputs = joined.OutputFiles
		s.observeJoin(joined)
	}

	if s.storage != nil && s.storage.CanPublish() && !job.DryRun && len(outputs) > 0 {
		urls, err := s.publish(ctx, job.ID, outputs)
		if err != nil {
			return s.fail(saveCtx, job, errorKindPublish, err, split, joined)
		}
		job.SetPublished(urls)
	}

	_ = job.Complete()
	s.finish(saveCtx, job)
	s.logger.Info("job completed",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.Int("outputs", len(outputs)),
		slog.Duration("elapsed", job.Elapsed()),
	)
	return s.report(job, split, joined), nil
}

// RunBatch runs tasks with at most maxConcurrentFiles in flight and returns
// one report per task, in task order. Tasks not yet started when ctx ends
// are reported as cancelled.
func (s *Service) RunBatch(ctx context.Context, tasks []Task) []*Report {
	reports := make([]*Report, len(tasks))
	semaphore := make(chan struct{}, s.maxConcurrentFiles)

	var wg sync.WaitGroup
	for i, task := range tasks {
		i, task := i, task
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
			}

			report, err := s.Run(ctx, task)
			if report == nil {
				report = &Report{
					Kind:      task.Kind,
					Status:    StatusFailed,
					Inputs:    task.inputs(),
					ErrorKind: "validation",
					Error:     err.Error(),
				}
			}
			reports[i] = report
		}()
	}
	wg.Wait()

	return reports
}

func (s *Service) execute(ctx context.Context, task Task) (*segment.SplitResult, *segment.JoinResult, error) {
	if err := task.validate(); err != nil {
		return nil, nil, err
	}
	if s.storage != nil && !task.dryRun() {
		if err := s.storage.PrepareDir(ctx, task.outputDir()); err != nil {
			return nil, nil, err
		}
	}

	switch task.Kind {
	case KindSilence:
		res, err := s.engine.SplitBySilence(task.Input, task.Silence)
		return res, nil, err
	case KindTime:
		res, err := s.engine.SplitByTime(task.Input, task.Time)
		return res, nil, err
	default:
		res, err := s.engine.Join(task.Join)
		return nil, res, err
	}
}

// publish uploads outputs under "<job id>/<file name>" and returns their URLs.
func (s *Service) publish(ctx context.Context, jobID string, outputs []string) ([]string, error) {
	urls := make([]string, 0, len(outputs))
	for _, out := range outputs {
		url, err := s.storage.Publish(ctx, jobID+"/"+filepath.Base(out), out)
		if err != nil {
			if s.metrics != nil {
				s.metrics.PublishFailures.Inc()
			}
			return nil, fmt.Errorf("publish %s: %w", out, err)
		}
		if s.metrics != nil {
			s.metrics.FilesPublished.Inc()
		}
		s.logger.Debug("output published",
			slog.String("job_id", jobID),
			slog.String("path", out),
			slog.String("url", url),
		)
		urls = append(urls, url)
	}

	if s.removeAfterPublish {
		if err := s.storage.Cleanup(ctx, outputs); err != nil {
			s.logger.Warn("failed to remove published outputs",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
	}
	return urls, nil
}

func (s *Service) fail(ctx context.Context, job *Job, kind string, err error, split *segment.SplitResult, joined *segment.JoinResult) (*Report, error) {
	_ = job.Fail(kind, err.Error())
	s.finish(ctx, job)
	s.logger.Error("job failed",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.String("error_kind", kind),
		slog.String("error", err.Error()),
	)
	return s.report(job, split, joined), err
}

// finish persists a job in a terminal state and records its metrics.
func (s *Service) finish(ctx context.Context, job *Job) {
	s.save(ctx, job)
	if s.metrics != nil {
		s.metrics.ObserveJob(string(job.Kind), string(job.GetStatus()), job.Elapsed())
	}
}

func (s *Service) save(ctx context.Context, job *Job) {
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) observeSplit(kind Kind, res *segment.SplitResult) {
	if s.metrics == nil {
		return
	}
	durations := make([]float64, len(res.Segments))
	for i, seg := range res.Segments {
		durations[i] = seg.Duration()
	}
	s.metrics.ObserveOutputs(string(kind), res.TotalDuration, durations)
}

func (s *Service) observeJoin(res *segment.JoinResult) {
	if s.metrics == nil {
		return
	}
	total := 0.0
	durations := make([]float64, len(res.Groups))
	for i, g := range res.Groups {
		durations[i] = g.Duration
		total += g.Duration
	}
	s.metrics.ObserveOutputs(string(KindJoin), total, durations)
}

func (s *Service) report(job *Job, split *segment.SplitResult, joined *segment.JoinResult) *Report {
	j := job.Clone()
	return &Report{
		JobID:         j.ID,
		Kind:          j.Kind,
		Status:        j.Status,
		Success:       j.Status == StatusCompleted,
		Inputs:        j.Inputs,
		Message:       j.Message,
		ErrorKind:     j.ErrorKind,
		Error:         j.Error,
		Split:         split,
		Join:          joined,
		PublishedURLs: j.PublishedURLs,
		ElapsedMS:     job.Elapsed().Milliseconds(),
	}
}

// kindOf classifies err for the job record. Errors raised outside the
// engine, such as a failure to create the output directory, count as
// processing errors.
func kindOf(err error) string {
	if kind := segment.KindOf(err); kind != "" {
		return kind
	}
	return "processing"
}
