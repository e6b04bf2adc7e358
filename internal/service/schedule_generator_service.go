package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/classgrid-api/internal/dto"
	"github.com/noah-isme/classgrid-api/internal/models"
	"github.com/noah-isme/classgrid-api/internal/scheduler"
	appErrors "github.com/noah-isme/classgrid-api/pkg/errors"
	"github.com/noah-isme/classgrid-api/pkg/jobs"
)

// OptimizeJobType identifies queued optimizer runs.
const OptimizeJobType = "schedule.optimize"

type scheduleRunRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.ScheduleRun) error
	ListByTerm(ctx context.Context, termID string) ([]models.ScheduleRun, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleRun, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleRunStatus, meta types.JSONText) error
	ArchivePublished(ctx context.Context, exec sqlx.ExtContext, termID, keepID string) error
}

type scheduleRunAssignmentRepository interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, items []models.ScheduleRunAssignment) error
	ListByRun(ctx context.Context, runID string) ([]models.ScheduleRunAssignment, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	ProposalTTL       time.Duration
	CacheTTL          time.Duration
	Weights           scheduler.Weights
	Budget            scheduler.Budget
	Workers           int
	OptimizeByDefault bool
}

// ScheduleGeneratorService generates schedule proposals with the scheduling
// engine, keeps them for a limited time and persists them as versioned runs.
type ScheduleGeneratorService struct {
	catalog     catalogReader
	runs        scheduleRunRepository
	assignments scheduleRunAssignmentRepository
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	dispatcher  jobDispatcher
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ScheduleGeneratorConfig
	store       *proposalStore
	jobs        *jobStore
	now         func() time.Time
}

type optimizeJobPayload struct {
	JobID      string
	ProposalID string
	Revision   int
	Budget     scheduler.Budget
}

// NewScheduleGeneratorService wires scheduler dependencies.
func NewScheduleGeneratorService(
	catalog catalogReader,
	runs scheduleRunRepository,
	assignments scheduleRunAssignmentRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cfg.ProposalTTL
	}
	if cfg.Weights.IsZero() {
		cfg.Weights = scheduler.DefaultWeights
	}
	return &ScheduleGeneratorService{
		catalog:     catalog,
		runs:        runs,
		assignments: assignments,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		store:       newProposalStore(cfg.ProposalTTL),
		jobs:        newJobStore(),
		now:         time.Now,
	}
}

// SetDispatcher attaches the queue used for asynchronous optimization.
func (s *ScheduleGeneratorService) SetDispatcher(d jobDispatcher) {
	s.dispatcher = d
}

// Generate builds a catalog, runs the greedy pass and, unless disabled,
// the optimizer, then stores the result as a new proposal.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.ScheduleProposalResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	var input scheduler.Input
	if req.Catalog != nil {
		input = *req.Catalog
	} else {
		stored, err := loadStoredCatalog(ctx, s.catalog, req.TermID)
		if err != nil {
			return nil, err
		}
		input = stored
	}
	cat, err := buildCatalog(input)
	if err != nil {
		return nil, err
	}

	weights := s.cfg.Weights
	if req.Weights != nil {
		weights = scheduler.Weights{Preference: req.Weights.Preference, Utilization: req.Weights.Utilization, Balance: req.Weights.Balance}
		if weights.IsZero() {
			return nil, appErrors.Clone(appErrors.ErrInvalidWeights, "at least one weight must be positive")
		}
	}
	engine := scheduler.New(scheduler.Config{Weights: weights, Workers: s.cfg.Workers}, s.logger)

	started := time.Now()
	sched, err := engine.GenerateInitialSchedule(ctx, cat)
	if err != nil {
		s.metrics.RecordSchedulerFailure("generate")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate schedule")
	}
	s.observe("generate", sched, time.Since(started))

	optimize := s.cfg.OptimizeByDefault
	if req.Optimize != nil {
		optimize = *req.Optimize
	}
	if optimize && !sched.Cancelled() {
		sched, err = s.runOptimizer(ctx, engine, cat, sched, s.budgetFor(req.Budget))
		if err != nil {
			return nil, err
		}
	}

	proposal := &scheduleProposal{
		ID:          uuid.NewString(),
		TermID:      req.TermID,
		Revision:    1,
		Input:       input,
		Catalog:     cat,
		Schedule:    sched,
		Weights:     weights,
		Report:      scheduler.BuildReport(sched),
		GeneratedAt: s.now().UTC(),
	}
	s.store.Save(proposal)
	s.cache.Set(ctx, proposalCacheKey(proposal.ID), proposal.cached(), s.cfg.CacheTTL)

	s.logger.Info("schedule proposal generated",
		zap.String("proposal_id", proposal.ID),
		zap.String("term_id", proposal.TermID),
		zap.String("status", string(proposal.Report.Status)),
		zap.Int("unassigned", proposal.Report.Unassigned),
	)
	return s.toResponse(proposal), nil
}

// GetProposal returns a stored proposal.
func (s *ScheduleGeneratorService) GetProposal(ctx context.Context, proposalID string) (*dto.ScheduleProposalResponse, error) {
	proposal, err := s.loadProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(proposal), nil
}

// Optimize re-runs the optimizer on a proposal. With Async set the run is
// queued and a job handle is returned instead of a proposal.
func (s *ScheduleGeneratorService) Optimize(ctx context.Context, req dto.OptimizeScheduleRequest) (*dto.ScheduleProposalResponse, *dto.OptimizationJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid optimize payload")
	}
	proposal, err := s.loadProposal(ctx, req.ProposalID)
	if err != nil {
		return nil, nil, err
	}
	budget := s.budgetFor(req.Budget)

	if req.Async {
		job, err := s.enqueueOptimize(ctx, proposal, budget)
		if err != nil {
			return nil, nil, err
		}
		return nil, job, nil
	}

	next, err := s.optimizeProposal(ctx, proposal, budget)
	if err != nil {
		return nil, nil, err
	}
	return s.toResponse(next), nil, nil
}

// GetJob reports the state of an asynchronous optimization.
func (s *ScheduleGeneratorService) GetJob(ctx context.Context, jobID string) (*dto.OptimizationJobResponse, error) {
	if job, ok := s.jobs.Get(jobID); ok {
		return &job, nil
	}
	var cached dto.OptimizationJobResponse
	if s.cache.Get(ctx, jobCacheKey(jobID), &cached) {
		return &cached, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "optimization job not found")
}

// HandleOptimizeJob runs a queued optimization.
func (s *ScheduleGeneratorService) HandleOptimizeJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(optimizeJobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	s.updateJob(ctx, payload.JobID, func(j *dto.OptimizationJobResponse) {
		j.Status = dto.OptimizationJobRunning
	})

	err := s.runOptimizeJob(ctx, payload)
	finished := s.now().UTC()
	status := dto.OptimizationJobSucceeded
	if err != nil {
		status = dto.OptimizationJobFailed
	}
	s.updateJob(ctx, payload.JobID, func(j *dto.OptimizationJobResponse) {
		j.Status = status
		j.FinishedAt = &finished
		if err != nil {
			j.Error = err.Error()
		}
	})
	s.metrics.RecordOptimizeJob(string(status))
	if err != nil {
		s.logger.Warn("optimization job failed", zap.String("job_id", payload.JobID), zap.String("proposal_id", payload.ProposalID), zap.Error(err))
	}
	// A failed optimization leaves the proposal untouched, so retrying is pointless.
	return nil
}

func (s *ScheduleGeneratorService) runOptimizeJob(ctx context.Context, payload optimizeJobPayload) error {
	proposal, err := s.loadProposal(ctx, payload.ProposalID)
	if err != nil {
		return err
	}
	if proposal.Revision != payload.Revision {
		return appErrors.Clone(appErrors.ErrConflict, "proposal changed after the job was queued")
	}
	_, err = s.optimizeProposal(ctx, proposal, payload.Budget)
	return err
}

// Save persists a proposal as a new run version and, when requested,
// publishes it and archives the previously published run of the term.
func (s *ScheduleGeneratorService) Save(ctx context.Context, req dto.SaveScheduleRequest) (*dto.SaveScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save schedule payload")
	}
	proposal, err := s.loadProposal(ctx, req.ProposalID)
	if err != nil {
		return nil, err
	}
	if len(proposal.Report.Conflicts) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrConflict, "proposal contains unresolved conflicts", proposal.Report.Conflicts)
	}
	if proposal.Report.Unassigned > 0 && !req.AllowPartial {
		return nil, appErrors.WithDetails(appErrors.ErrPreconditionFailed, "proposal leaves sections unassigned", proposal.Report.UnassignedSections)
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	metaBytes, marshalErr := json.Marshal(map[string]any{
		"proposalId": proposal.ID,
		"revision":   proposal.Revision,
		"generated":  proposal.GeneratedAt,
		"weights":    proposal.Weights,
		"quality":    proposal.Report.Quality,
		"stats":      proposal.Report.Stats,
		"unassigned": proposal.Schedule.Unassigned(),
	})
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
		return nil, err
	}

	run := &models.ScheduleRun{
		TermID: proposal.TermID,
		Status: models.ScheduleRunStatusDraft,
		Score:  proposal.Report.Quality.Score,
		Meta:   types.JSONText(metaBytes),
	}
	if err = s.runs.CreateVersioned(ctx, tx, run); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule run")
		return nil, err
	}

	rows := lo.Map(proposal.Schedule.Assignments(), func(a scheduler.Assignment, _ int) models.ScheduleRunAssignment {
		return models.ScheduleRunAssignment{
			RunID:        run.ID,
			SectionID:    a.SectionID,
			DayOfWeek:    a.Slot.Day,
			StartSlot:    a.Slot.Start,
			Duration:     a.Slot.Duration,
			RoomID:       a.RoomID,
			InstructorID: a.InstructorID,
		}
	})
	if err = s.assignments.UpsertBatch(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule assignments")
		return nil, err
	}

	if req.Publish {
		if err = s.runs.UpdateStatus(ctx, tx, run.ID, models.ScheduleRunStatusPublished, nil); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish schedule run")
			return nil, err
		}
		if err = s.runs.ArchivePublished(ctx, tx, run.TermID, run.ID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive previous schedule runs")
			return nil, err
		}
		run.Status = models.ScheduleRunStatusPublished
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return nil, err
	}

	s.store.Delete(proposal.ID)
	s.cache.Delete(ctx, proposalCacheKey(proposal.ID))
	s.cache.Delete(ctx, runsCacheKey(proposal.TermID))
	s.logger.Info("schedule run saved",
		zap.String("run_id", run.ID),
		zap.String("term_id", run.TermID),
		zap.Int("version", run.Version),
		zap.String("status", string(run.Status)),
	)
	return &dto.SaveScheduleResponse{RunID: run.ID, Version: run.Version, Status: run.Status}, nil
}

// List returns the stored runs of a term, newest version first.
func (s *ScheduleGeneratorService) List(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRun, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}
	var cached []models.ScheduleRun
	if s.cache.Get(ctx, runsCacheKey(query.TermID), &cached) {
		return cached, nil
	}
	list, err := s.runs.ListByTerm(ctx, query.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule runs")
	}
	s.cache.Set(ctx, runsCacheKey(query.TermID), list, s.cfg.CacheTTL)
	return list, nil
}

// GetAssignments returns the placed sections of a stored run.
func (s *ScheduleGeneratorService) GetAssignments(ctx context.Context, runID string) ([]models.ScheduleRunAssignment, error) {
	if runID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}
	if _, err := s.findRun(ctx, runID); err != nil {
		return nil, err
	}
	items, err := s.assignments.ListByRun(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule assignments")
	}
	return items, nil
}

// Delete removes a draft run.
func (s *ScheduleGeneratorService) Delete(ctx context.Context, runID string) error {
	run, err := s.findRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != models.ScheduleRunStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft schedule runs can be deleted")
	}
	if err := s.runs.Delete(ctx, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule run")
	}
	s.cache.Delete(ctx, runsCacheKey(run.TermID))
	return nil
}

// SweepExpired drops expired proposals from memory.
func (s *ScheduleGeneratorService) SweepExpired() int {
	return s.store.Sweep()
}

func (s *ScheduleGeneratorService) findRun(ctx context.Context, runID string) (*models.ScheduleRun, error) {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule run")
	}
	return run, nil
}

// loadProposal reads a proposal from memory, falling back to the cache
// mirror so proposals survive restarts and are shared between instances.
func (s *ScheduleGeneratorService) loadProposal(ctx context.Context, proposalID string) (*scheduleProposal, error) {
	if proposalID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proposal id is required")
	}
	if proposal, ok := s.store.Get(proposalID); ok {
		return proposal, nil
	}
	var cached cachedProposal
	if !s.cache.Get(ctx, proposalCacheKey(proposalID), &cached) {
		return nil, appErrors.Clone(appErrors.ErrProposalExpired, "proposal not found or expired")
	}
	if s.now().Sub(cached.GeneratedAt) > s.cfg.ProposalTTL {
		s.cache.Delete(ctx, proposalCacheKey(proposalID))
		return nil, appErrors.Clone(appErrors.ErrProposalExpired, "proposal not found or expired")
	}
	proposal, err := cached.restore()
	if err != nil {
		s.logger.Warn("discarding unreadable cached proposal", zap.String("proposal_id", proposalID), zap.Error(err))
		s.cache.Delete(ctx, proposalCacheKey(proposalID))
		return nil, appErrors.Clone(appErrors.ErrProposalExpired, "proposal not found or expired")
	}
	s.store.Save(proposal)
	return proposal, nil
}

func (s *ScheduleGeneratorService) optimizeProposal(ctx context.Context, proposal *scheduleProposal, budget scheduler.Budget) (*scheduleProposal, error) {
	engine := scheduler.New(scheduler.Config{Weights: proposal.Weights, Workers: s.cfg.Workers}, s.logger)
	sched, err := s.runOptimizer(ctx, engine, proposal.Catalog, proposal.Schedule, budget)
	if err != nil {
		return nil, err
	}
	next := &scheduleProposal{
		ID:          proposal.ID,
		TermID:      proposal.TermID,
		Revision:    proposal.Revision + 1,
		Input:       proposal.Input,
		Catalog:     proposal.Catalog,
		Schedule:    sched,
		Weights:     proposal.Weights,
		Report:      scheduler.BuildReport(sched),
		GeneratedAt: s.now().UTC(),
	}
	if !s.store.Replace(next, proposal.Revision) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal was modified concurrently")
	}
	s.cache.Set(ctx, proposalCacheKey(next.ID), next.cached(), s.cfg.CacheTTL)
	return next, nil
}

func (s *ScheduleGeneratorService) runOptimizer(ctx context.Context, engine *scheduler.Engine, cat *scheduler.Catalog, in *scheduler.Schedule, budget scheduler.Budget) (*scheduler.Schedule, error) {
	started := time.Now()
	out, err := engine.OptimizeSchedule(ctx, cat, in, budget)
	if err != nil {
		s.metrics.RecordSchedulerFailure("optimize")
		if errors.Is(err, scheduler.ErrCatalogMismatch) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "proposal catalog is inconsistent")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to optimize schedule")
	}
	s.observe("optimize", out, time.Since(started))
	return out, nil
}

func (s *ScheduleGeneratorService) enqueueOptimize(ctx context.Context, proposal *scheduleProposal, budget scheduler.Budget) (*dto.OptimizationJobResponse, error) {
	if s.dispatcher == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "asynchronous optimization is not available")
	}
	job := dto.OptimizationJobResponse{
		JobID:      uuid.NewString(),
		ProposalID: proposal.ID,
		Status:     dto.OptimizationJobQueued,
		QueuedAt:   s.now().UTC(),
	}
	s.jobs.Put(job)
	s.cache.Set(ctx, jobCacheKey(job.JobID), job, s.cfg.CacheTTL)

	err := s.dispatcher.Enqueue(jobs.Job{
		ID:   job.JobID,
		Type: OptimizeJobType,
		Payload: optimizeJobPayload{
			JobID:      job.JobID,
			ProposalID: proposal.ID,
			Revision:   proposal.Revision,
			Budget:     budget,
		},
	})
	if err != nil {
		failed, _ := s.jobs.Update(job.JobID, func(j *dto.OptimizationJobResponse) {
			j.Status = dto.OptimizationJobFailed
			j.Error = err.Error()
		})
		s.cache.Set(ctx, jobCacheKey(job.JobID), failed, s.cfg.CacheTTL)
		s.metrics.RecordOptimizeJob(string(dto.OptimizationJobFailed))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue optimization")
	}
	s.metrics.RecordOptimizeJob(string(dto.OptimizationJobQueued))
	return &job, nil
}

func (s *ScheduleGeneratorService) updateJob(ctx context.Context, jobID string, fn func(*dto.OptimizationJobResponse)) {
	job, ok := s.jobs.Update(jobID, fn)
	if !ok {
		return
	}
	s.cache.Set(ctx, jobCacheKey(jobID), job, s.cfg.CacheTTL)
}

// budgetFor overlays request overrides on the configured budget.
func (s *ScheduleGeneratorService) budgetFor(req *dto.BudgetRequest) scheduler.Budget {
	budget := s.cfg.Budget
	if req == nil {
		return budget
	}
	if req.MaxSteps > 0 {
		budget.MaxSteps = req.MaxSteps
	}
	if req.MaxDepth > 0 {
		budget.MaxDepth = req.MaxDepth
	}
	if req.MaxDisplaced > 0 {
		budget.MaxDisplaced = req.MaxDisplaced
	}
	if req.Iterations != 0 {
		budget.Iterations = req.Iterations
	}
	if req.TimeLimitMS > 0 {
		budget.TimeLimit = time.Duration(req.TimeLimitMS) * time.Millisecond
	}
	if req.Seed != 0 {
		budget.Seed = req.Seed
	}
	if req.Shuffle {
		budget.Shuffle = true
	}
	return budget
}

func (s *ScheduleGeneratorService) observe(phase string, sched *scheduler.Schedule, elapsed time.Duration) {
	s.metrics.ObserveSchedulerRun(phase, string(sched.Status()), elapsed, sched.Score(), len(sched.Unassigned()))
}

func (s *ScheduleGeneratorService) toResponse(p *scheduleProposal) *dto.ScheduleProposalResponse {
	return &dto.ScheduleProposalResponse{
		ProposalID:  p.ID,
		TermID:      p.TermID,
		Revision:    p.Revision,
		GeneratedAt: p.GeneratedAt,
		ExpiresAt:   p.GeneratedAt.Add(s.cfg.ProposalTTL),
		Report:      p.Report,
	}
}

func proposalCacheKey(id string) string { return "proposal:" + id }

func jobCacheKey(id string) string { return "job:" + id }

func runsCacheKey(termID string) string { return "runs:" + termID }
