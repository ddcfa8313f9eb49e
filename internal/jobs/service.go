package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"split-compositor/internal/composition"
	"split-compositor/internal/platform/metrics"
	"split-compositor/internal/storage"
)

// Defaults for Options fields left at zero.
const (
	DefaultWorkers      = 1
	DefaultQueueSize    = 16
	DefaultOutputPrefix = "compositions"
	outputContentType   = "video/mp4"
)

var (
	// ErrInvalidJob is returned for payloads missing asset keys or with a bad layout.
	ErrInvalidJob = errors.New("invalid job")

	// ErrQueueFull is returned when no more jobs can be buffered.
	ErrQueueFull = errors.New("job queue is full")
)

// Composer renders one composition run.
type Composer interface {
	Compose(ctx context.Context, req composition.Request, progress composition.ProgressFunc) (composition.Result, error)
}

// Options configures a Service.
type Options struct {
	Workers      int
	QueueSize    int
	OutputPrefix string
	// Ready reports whether runs can currently be executed (e.g. ffmpeg present).
	Ready func() error
}

// Service accepts composition jobs, runs them on a bounded worker pool and
// records their status.
type Service struct {
	repo     Repository
	composer Composer
	storer   storage.Storer
	log      *slog.Logger
	metrics  *metrics.Metrics
	opts     Options
	queue    chan Job
}

// NewService returns a Service. Metrics may be nil to disable metric recording.
func NewService(repo Repository, composer Composer, storer storage.Storer, log *slog.Logger, m *metrics.Metrics, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if strings.TrimSpace(opts.OutputPrefix) == "" {
		opts.OutputPrefix = DefaultOutputPrefix
	}
	return &Service{
		repo:     repo,
		composer: composer,
		storer:   storer,
		log:      log,
		metrics:  m,
		opts:     opts,
		queue:    make(chan Job, opts.QueueSize),
	}
}

// Submit validates job, records it as queued and hands it to the workers.
// The layout defaults are applied here, once, so every later step sees the
// same resolved config.
func (s *Service) Submit(job Job) (JobState, error) {
	job.PrimaryAssetKey = strings.TrimSpace(job.PrimaryAssetKey)
	job.SecondaryAssetKey = strings.TrimSpace(job.SecondaryAssetKey)
	if job.PrimaryAssetKey == "" || job.SecondaryAssetKey == "" {
		return JobState{}, fmt.Errorf("%w: primary_asset_key and secondary_asset_key are required", ErrInvalidJob)
	}
	job.LayoutConfig = job.LayoutConfig.WithDefaults()
	if err := job.LayoutConfig.Validate(); err != nil {
		return JobState{}, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if strings.TrimSpace(string(job.RunID)) == "" {
		job.RunID = RunID(uuid.NewString())
	}

	st := JobState{RunID: job.RunID, Status: StatusQueued, Stage: "queued", Job: job}
	if err := s.repo.Create(st); err != nil {
		return JobState{}, err
	}

	select {
	case s.queue <- job:
	default:
		s.repo.Delete(job.RunID)
		return JobState{}, ErrQueueFull
	}

	if s.metrics != nil {
		s.metrics.IncSubmitted()
	}
	s.log.Info("job queued", slog.String("run_id", string(job.RunID)))
	st, _ = s.repo.Get(job.RunID)
	return st, nil
}

// Get returns the status record for id.
func (s *Service) Get(id RunID) (JobState, bool) {
	return s.repo.Get(id)
}

// ActiveCount returns the number of queued or processing runs.
func (s *Service) ActiveCount() int {
	return s.repo.ActiveCount()
}

// Ready reports whether the service can execute runs.
func (s *Service) Ready() error {
	if s.opts.Ready == nil {
		return nil
	}
	return s.opts.Ready()
}

// Run starts the workers and blocks until ctx is cancelled and every worker
// has finished its current job.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			s.work(ctx, worker)
		}(i)
	}
	s.log.Info("workers started", slog.Int("workers", s.opts.Workers))
	wg.Wait()
	s.log.Info("workers stopped")
}

func (s *Service) work(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.queue:
			s.log.Debug("job picked up", slog.Int("worker", worker), slog.String("run_id", string(job.RunID)))
			s.Process(ctx, job)
		}
	}
}

// Process executes one job synchronously and returns its final state.
func (s *Service) Process(ctx context.Context, job Job) JobState {
	log := s.log.With(slog.String("run_id", string(job.RunID)))
	started := time.Now()

	s.update(job.RunID, func(st *JobState) {
		st.Status = StatusProcessing
		st.Stage = "starting"
		st.Progress = 1
	})

	res, err := s.composer.Compose(ctx, composition.Request{
		RunID:        string(job.RunID),
		PrimaryKey:   job.PrimaryAssetKey,
		SecondaryKey: job.SecondaryAssetKey,
		Layout:       job.LayoutConfig,
	}, func(stage composition.Stage, pct int) {
		s.update(job.RunID, func(st *JobState) {
			st.Stage = string(stage)
			st.Progress = pct
		})
	})
	if err != nil {
		return s.fail(log, job.RunID, started, composition.Classify(err), err)
	}

	s.update(job.RunID, func(st *JobState) {
		st.Stage = "storing"
		st.Progress = 92
	})
	contentType := res.ContentType
	if contentType == "" {
		contentType = outputContentType
	}
	key := path.Join(s.opts.OutputPrefix, string(job.RunID), "output.mp4")
	stored, err := s.storer.Store(ctx, key, res.Bytes, contentType)
	if err != nil {
		return s.fail(log, job.RunID, started, composition.KindInternal,
			&composition.RunError{RunID: string(job.RunID), Stage: "storing", Err: err})
	}

	elapsed := time.Since(started)
	s.update(job.RunID, func(st *JobState) {
		st.Status = StatusCompleted
		st.Stage = "completed"
		st.Progress = 100
		st.OutputAssetKey = stored
		st.SizeInBytes = res.SizeInBytes
		st.ProcessingTimeMs = elapsed.Milliseconds()
	})
	if s.metrics != nil {
		s.metrics.RunCompleted(elapsed, res.SizeInBytes)
	}
	log.Info("job completed",
		slog.String("output_asset_key", stored),
		slog.Int("size_bytes", res.SizeInBytes),
		slog.Int64("processing_time_ms", elapsed.Milliseconds()))
	st, _ := s.repo.Get(job.RunID)
	return st
}

func (s *Service) fail(log *slog.Logger, id RunID, started time.Time, kind composition.ErrorKind, err error) JobState {
	elapsed := time.Since(started)
	s.update(id, func(st *JobState) {
		st.Status = StatusFailed
		st.Stage = "error"
		st.Progress = 0
		st.ErrorKind = string(kind)
		st.ErrorDetail = err.Error()
		st.ClientError = kind.ClientError()
		st.Retryable = kind.Retryable()
		st.ProcessingTimeMs = elapsed.Milliseconds()
	})
	if s.metrics != nil {
		s.metrics.RunFailed(string(kind), elapsed)
	}
	log.Error("job failed", slog.String("error_kind", string(kind)), slog.String("error", err.Error()))
	st, _ := s.repo.Get(id)
	return st
}

func (s *Service) update(id RunID, fn func(*JobState)) {
	if err := s.repo.Update(id, fn); err != nil {
		s.log.Warn("status update dropped", slog.String("run_id", string(id)), slog.String("error", err.Error()))
	}
}
