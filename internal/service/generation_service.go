package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/genplan/genplan-web/internal/dto"
	"github.com/genplan/genplan-web/internal/models"
	appErrors "github.com/genplan/genplan-web/pkg/errors"
	"github.com/genplan/genplan-web/pkg/jobs"
)

const generationJobType = "schedule.generate"

type scheduleUpstream interface {
	GenerateSchedule(ctx context.Context, token string, payload interface{}) (json.RawMessage, error)
	CheckConflicts(ctx context.Context, token string, payload interface{}) (json.RawMessage, error)
	ResolveConflicts(ctx context.Context, token string, payload interface{}) (json.RawMessage, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type timetableInvalidator interface {
	Invalidate(ctx context.Context) error
}

// generationPayload travels with the queued job. The token stays out of the
// job store so status responses never echo it.
type generationPayload struct {
	Token   string
	Request dto.GenerateScheduleRequest
}

// GenerationConfig governs generation job behaviour.
type GenerationConfig struct {
	JobTTL     time.Duration
	Timeout    time.Duration
	MaxRetries int
}

// GenerationService accepts schedule generation requests and forwards
// conflict checks and resolutions upstream.
type GenerationService struct {
	upstream    scheduleUpstream
	queue       jobDispatcher
	store       *GenerationStore
	invalidator timetableInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGenerationService wires generation dependencies.
func NewGenerationService(upstream scheduleUpstream, queue jobDispatcher, store *GenerationStore, invalidator timetableInvalidator, validate *validator.Validate, logger *zap.Logger) *GenerationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationService{
		upstream:    upstream,
		queue:       queue,
		store:       store,
		invalidator: invalidator,
		validator:   validate,
		logger:      logger,
	}
}

// Generate validates the request and queues it. Only one generation may be in
// flight at a time because upstream rewrites the whole timetable.
func (s *GenerationService) Generate(ctx context.Context, session models.Session, req dto.GenerateScheduleRequest) (*models.GenerationJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	now := time.Now().UTC()
	job := models.GenerationJob{
		ID:        uuid.NewString(),
		Status:    models.GenerationStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if session.Claims != nil {
		job.RequestedBy = session.Claims.UserID
	}
	if active, ok := s.store.Reserve(job); !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "generation job "+active.ID+" is still "+string(active.Status))
	}

	err := s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    generationJobType,
		Payload: generationPayload{Token: session.Token, Request: req},
	})
	if err != nil {
		s.store.Finish(job.ID, models.GenerationStatusFailed, nil, "failed to enqueue job")
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "generation queue is full")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation job")
	}
	s.logger.Info("schedule generation queued",
		zap.String("job_id", job.ID),
		zap.String("requested_by", job.RequestedBy),
		zap.String("academic_year", req.AcademicYear),
		zap.String("semester", req.Semester),
	)
	return &job, nil
}

// Job returns the current state of a generation job.
func (s *GenerationService) Job(_ context.Context, id string) (*models.GenerationJob, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
	}
	return &job, nil
}

// Jobs lists retained generation jobs, newest first.
func (s *GenerationService) Jobs(_ context.Context) []models.GenerationJob {
	return s.store.List()
}

// CheckConflicts forwards a conflict check upstream.
func (s *GenerationService) CheckConflicts(ctx context.Context, session models.Session, req dto.ConflictCheckRequest) (json.RawMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	return s.upstream.CheckConflicts(ctx, session.Token, req)
}

// ResolveConflicts forwards a resolution request upstream and drops cached
// timetable views, which no longer reflect the schedule.
func (s *GenerationService) ResolveConflicts(ctx context.Context, session models.Session, req dto.ResolveConflictsRequest) (json.RawMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict resolution payload")
	}
	result, err := s.upstream.ResolveConflicts(ctx, session.Token, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return result, nil
}

func (s *GenerationService) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.Error(err))
	}
}

// GenerationWorker bridges queue jobs to the upstream generator.
type GenerationWorker struct {
	upstream    scheduleUpstream
	store       *GenerationStore
	invalidator timetableInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         GenerationConfig
}

// NewGenerationWorker constructs a worker.
func NewGenerationWorker(upstream scheduleUpstream, store *GenerationStore, invalidator timetableInvalidator, metrics *MetricsService, logger *zap.Logger, cfg GenerationConfig) *GenerationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &GenerationWorker{
		upstream:    upstream,
		store:       store,
		invalidator: invalidator,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// Handle processes a queue job. Returning an error asks the queue to retry.
func (w *GenerationWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(generationPayload)
	if !ok {
		w.store.Finish(job.ID, models.GenerationStatusFailed, nil, "malformed job payload")
		w.metrics.RecordGenerationJob(string(models.GenerationStatusFailed))
		return nil
	}
	w.store.Start(job.ID, job.Attempt+1)

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()
	result, err := w.upstream.GenerateSchedule(runCtx, payload.Token, payload.Request)
	if err == nil {
		w.store.Finish(job.ID, models.GenerationStatusSucceeded, result, "")
		w.metrics.RecordGenerationJob(string(models.GenerationStatusSucceeded))
		w.logger.Info("schedule generation finished", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt+1))
		if w.invalidator != nil {
			if invErr := w.invalidator.Invalidate(ctx); invErr != nil {
				w.logger.Warn("failed to invalidate timetable cache", zap.Error(invErr))
			}
		}
		return nil
	}

	msg := appErrors.FromError(err).Message
	if ctx.Err() != nil {
		msg = "worker stopped before generation finished"
	}
	if ctx.Err() != nil || !retryable(err) || job.Attempt >= w.cfg.MaxRetries {
		w.store.Finish(job.ID, models.GenerationStatusFailed, nil, msg)
		w.metrics.RecordGenerationJob(string(models.GenerationStatusFailed))
		w.logger.Warn("schedule generation failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt+1), zap.Error(err))
		return nil
	}
	w.store.Requeue(job.ID, msg)
	return err
}

// GiveUp fails a job the queue dropped without a final attempt, for example
// on shutdown or when the retry could not be requeued.
func (w *GenerationWorker) GiveUp(job jobs.Job, err error) {
	current, ok := w.store.Get(job.ID)
	if !ok || current.Status.Terminal() {
		return
	}
	msg := "generation abandoned"
	if errors.Is(err, jobs.ErrQueueStopped) {
		msg = "worker stopped before generation finished"
	}
	w.store.Finish(job.ID, models.GenerationStatusFailed, nil, msg)
	w.metrics.RecordGenerationJob(string(models.GenerationStatusFailed))
	w.logger.Warn("schedule generation abandoned", zap.String("job_id", job.ID), zap.Error(err))
}

// retryable reports whether an upstream failure may succeed on a later attempt.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return true
	}
	return appErr.Status == http.StatusBadGateway || appErr.Status == http.StatusServiceUnavailable
}

// GenerationStore keeps generation jobs in memory for a limited time.
type GenerationStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]models.GenerationJob
}

// NewGenerationStore constructs a store retaining jobs for ttl after creation.
func NewGenerationStore(ttl time.Duration) *GenerationStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &GenerationStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]models.GenerationJob),
	}
}

// Reserve saves job unless another job is still queued or running, in which
// case that job is returned.
func (s *GenerationStore) Reserve(job models.GenerationJob) (models.GenerationJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	for _, existing := range s.items {
		if !existing.Status.Terminal() {
			return existing, false
		}
	}
	s.items[job.ID] = job
	return job, true
}

// Get returns a job that has not expired.
func (s *GenerationStore) Get(id string) (models.GenerationJob, bool) {
	s.mu.RLock()
	job, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return models.GenerationJob{}, false
	}
	if s.expired(job) {
		s.mu.Lock()
		delete(s.items, id)
		s.mu.Unlock()
		return models.GenerationJob{}, false
	}
	return job, true
}

// List returns all live jobs, newest first.
func (s *GenerationStore) List() []models.GenerationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	list := make([]models.GenerationJob, 0, len(s.items))
	for _, job := range s.items {
		list = append(list, job)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// Start marks a job running.
func (s *GenerationStore) Start(id string, attempt int) {
	s.update(id, func(job *models.GenerationJob) {
		job.Status = models.GenerationStatusRunning
		job.Attempts = attempt
	})
}

// Requeue marks a job queued for another attempt.
func (s *GenerationStore) Requeue(id, lastError string) {
	s.update(id, func(job *models.GenerationJob) {
		job.Status = models.GenerationStatusQueued
		job.Error = lastError
	})
}

// Finish records a terminal status.
func (s *GenerationStore) Finish(id string, status models.GenerationStatus, result json.RawMessage, errMsg string) {
	s.update(id, func(job *models.GenerationJob) {
		finished := s.now().UTC()
		job.Status = status
		job.Result = result
		job.Error = errMsg
		job.FinishedAt = &finished
	})
}

func (s *GenerationStore) update(id string, mutate func(*models.GenerationJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.items[id]
	if !ok {
		return
	}
	mutate(&job)
	job.UpdatedAt = s.now().UTC()
	s.items[id] = job
}

func (s *GenerationStore) expired(job models.GenerationJob) bool {
	return job.Status.Terminal() && s.now().Sub(job.CreatedAt) > s.ttl
}

func (s *GenerationStore) pruneLocked() {
	for id, job := range s.items {
		if s.expired(job) {
			delete(s.items, id)
		}
	}
}
