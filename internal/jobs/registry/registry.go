// Package registry is the in-process Job Registry (spec.md §4.1): the
// job state machine plus the live handle table mapping a job id to its
// cancellation token. Grounded on the teacher's job table/lock pattern
// in internal/jobs/manager.go, replacing its SQL-backed metadata store
// with the in-memory handle the orchestrator needs for cooperative
// cancellation (SPEC_FULL.md §4 "cancellation token threaded explicitly").
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/models"
)

// handle is the live, in-process counterpart to a persisted Job: it
// carries the cancellation function the orchestrator needs but that
// never belongs in the persisted record.
type handle struct {
	job    *models.Job
	cancel context.CancelFunc
}

// Registry is the job state machine and live handle table. Reads for
// status take the read lock and return copies; they are not lock-free.
// Inserts/removes/transitions take the write lock (spec.md §5
// "in-process job table").
type Registry struct {
	mu       sync.RWMutex
	handles  map[string]*handle
	validate *validator.Validate
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{handles: make(map[string]*handle), validate: validator.New()}
}

// Create validates the submission contract (spec.md §6 "url, plan,
// max_pages, submitter_id") and, if valid, inserts a new job in the
// pending state and returns a cancellable context the orchestrator
// should derive all of the job's work from.
func (r *Registry) Create(ctx context.Context, submission models.JobSubmission) (*models.Job, context.Context, error) {
	if err := r.validate.Struct(submission); err != nil {
		return nil, nil, common.WrapError(common.CodeIllegalState, "invalid job submission", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	maxPages := submission.MaxPages
	if planCap := models.PlanPageCap(submission.Plan); maxPages <= 0 || maxPages > planCap {
		maxPages = planCap
	}

	job := &models.Job{
		ID:          common.NewJobID(),
		URL:         submission.URL,
		Plan:        submission.Plan,
		MaxPages:    maxPages,
		Status:      models.JobPending,
		Progress:    0,
		SubmitterID: submission.SubmitterID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	jobCtx, cancel := context.WithCancel(ctx)
	r.handles[job.ID] = &handle{job: cloneJob(job), cancel: cancel}
	return cloneJob(job), jobCtx, nil
}

// Begin transitions a pending job to running.
func (r *Registry) Begin(jobID string) error {
	return r.transition(jobID, func(j *models.Job) error {
		if j.Status != models.JobPending {
			return common.NewError(common.CodeIllegalState, "job is not pending")
		}
		j.Status = models.JobRunning
		return nil
	})
}

// MarkProgress advances a running job's progress and optional phase
// message. Progress is clamped to [current, 99] — only a terminal
// transition may reach 100, keeping the monotonic guarantee (P-series
// invariant in spec.md §5 "ordering guarantees").
func (r *Registry) MarkProgress(jobID string, percent int, message string) error {
	return r.transition(jobID, func(j *models.Job) error {
		if j.IsTerminal() {
			return common.NewError(common.CodeIllegalState, "job already terminal")
		}
		if percent > 99 {
			percent = 99
		}
		if percent > j.Progress {
			j.Progress = percent
		}
		if message != "" {
			j.Message = message
		}
		return nil
	})
}

// Complete transitions a job to completed with progress at 100. It is
// idempotent: calling it again on an already-completed job is a no-op
// rather than an error (spec.md §4.1 "idempotent terminal transition").
func (r *Registry) Complete(jobID string) error {
	return r.terminalTransition(jobID, models.JobCompleted, func(j *models.Job) {
		j.Progress = 100
	})
}

// Fail transitions a job to failed with the given taxonomy code and
// message.
func (r *Registry) Fail(jobID string, code common.Code, message string) error {
	return r.terminalTransition(jobID, models.JobFailed, func(j *models.Job) {
		j.Error = message
		j.ErrorCode = string(code)
	})
}

// SetWarning records a non-fatal condition against a running job —
// e.g. CrawlPartial when some pages failed but the crawl still
// produced enough coverage to proceed (spec.md §9 error taxonomy).
// Unlike Fail, it does not transition the job's status.
func (r *Registry) SetWarning(jobID string, code common.Code, message string) error {
	return r.transition(jobID, func(j *models.Job) error {
		j.Warning = message
		j.WarningCode = string(code)
		return nil
	})
}

// Cancel transitions a job to cancelled and invokes its cancellation
// function so any in-flight crawler fetch or LLM call aborts at its
// next suspension point.
func (r *Registry) Cancel(jobID string) error {
	r.mu.Lock()
	h, ok := r.handles[jobID]
	if ok && h.cancel != nil {
		h.cancel()
	}
	r.mu.Unlock()

	return r.terminalTransition(jobID, models.JobCancelled, func(j *models.Job) {
		j.ErrorCode = string(common.CodeCancelled)
	})
}

// Load returns a snapshot of a job by id.
func (r *Registry) Load(jobID string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[jobID]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "job not found")
	}
	return cloneJob(h.job), nil
}

// Remove drops a job's live handle once it's terminal and its final
// write has landed. It invokes the job's cancellation function before
// dropping the handle so a normal-completion job doesn't leak its
// context (and anything still selecting on it, e.g. the Progress
// Publisher's mailbox goroutine) until the wall-clock ceiling fires.
// context.CancelFunc is idempotent, so calling it again after an
// explicit Cancel() already fired is harmless.
func (r *Registry) Remove(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[jobID]; ok && h.cancel != nil {
		h.cancel()
	}
	delete(r.handles, jobID)
}

func (r *Registry) transition(jobID string, mutate func(*models.Job) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[jobID]
	if !ok {
		return common.NewError(common.CodeNotFound, "job not found")
	}
	if err := mutate(h.job); err != nil {
		return err
	}
	h.job.UpdatedAt = time.Now()
	return nil
}

func (r *Registry) terminalTransition(jobID string, status models.JobStatus, mutate func(*models.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[jobID]
	if !ok {
		return common.NewError(common.CodeNotFound, "job not found")
	}
	if h.job.IsTerminal() {
		if h.job.Status == status {
			return nil
		}
		return common.NewError(common.CodeIllegalState, "job already terminal")
	}

	h.job.Status = status
	now := time.Now()
	h.job.CompletedAt = &now
	h.job.UpdatedAt = now
	mutate(h.job)
	return nil
}

func cloneJob(j *models.Job) *models.Job {
	cp := *j
	return &cp
}
