// Package orchestrator wires the Job Registry to the Crawler,
// Snapshot Extractor, Automated Checker, Module Dispatcher, and Result
// Reducer behind the Progress Publisher, implementing the full
// analysis pipeline from spec.md §4.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/interfaces"
	"github.com/a11yscan/auditor/internal/jobs/progress"
	"github.com/a11yscan/auditor/internal/jobs/registry"
	"github.com/a11yscan/auditor/internal/models"
	"github.com/a11yscan/auditor/internal/services/checker"
	"github.com/a11yscan/auditor/internal/services/crawler"
	"github.com/a11yscan/auditor/internal/services/llm"
	"github.com/a11yscan/auditor/internal/services/reducer"
	"github.com/a11yscan/auditor/internal/services/snapshot"
)

// Orchestrator runs one job end to end: crawl, extract, check,
// dispatch, reduce, persist.
type Orchestrator struct {
	registry   *registry.Registry
	publisher  *progress.Publisher
	storage    interfaces.PersistenceAdapter
	crawler    *crawler.Crawler
	extractor  *snapshot.Extractor
	checker    *checker.Checker
	dispatcher *llm.Dispatcher
	logger     arbor.ILogger
	wallClock  time.Duration
}

// New builds an Orchestrator from its fully constructed dependencies.
func New(
	reg *registry.Registry,
	publisher *progress.Publisher,
	storage interfaces.PersistenceAdapter,
	crawlerSvc *crawler.Crawler,
	dispatcher *llm.Dispatcher,
	wallClock time.Duration,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		registry:   reg,
		publisher:  publisher,
		storage:    storage,
		crawler:    crawlerSvc,
		extractor:  snapshot.New(),
		checker:    checker.New(),
		dispatcher: dispatcher,
		logger:     logger,
		wallClock:  wallClock,
	}
}

// Submit creates a job and starts its run on an independent goroutine,
// returning the job's initial (pending) snapshot synchronously (spec.md
// §6 "the core returns a job identifier synchronously").
func (o *Orchestrator) Submit(ctx context.Context, submission models.JobSubmission) (*models.Job, error) {
	job, jobCtx, err := o.registry.Create(ctx, submission)
	if err != nil {
		return nil, err
	}

	if o.wallClock > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, o.wallClock)
		go func() {
			<-jobCtx.Done()
			cancel()
		}()
	}

	if err := o.storage.UpsertJob(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist accepted job")
	}

	o.publisher.Start(jobCtx, job.ID, func(percent int, message string) {
		if err := o.registry.MarkProgress(job.ID, percent, message); err != nil {
			return
		}
		if snap, err := o.registry.Load(job.ID); err == nil {
			_ = o.storage.UpsertJob(context.Background(), snap)
		}
	})
	o.publisher.Send(job.ID, progress.Update{Percent: progress.PercentAccepted, Message: "job accepted"})

	go o.run(jobCtx, job.ID, submission.URL, job.MaxPages)

	return job, nil
}

// Cancel requests cooperative cancellation of a live job: in-flight
// crawler fetches and LLM calls abort at their next suspension point,
// partial results stay persisted, and the job transitions to cancelled.
func (o *Orchestrator) Cancel(jobID string) error {
	return o.registry.Cancel(jobID)
}

// Status returns the live snapshot of a job (spec.md §6 polling
// contract); once the job's run has finished and its handle is gone,
// callers read the persisted row instead.
func (o *Orchestrator) Status(jobID string) (*models.Job, error) {
	return o.registry.Load(jobID)
}

func (o *Orchestrator) run(ctx context.Context, jobID, rootURL string, maxPages int) {
	defer o.publisher.Stop(jobID)
	defer o.registry.Remove(jobID)

	if err := o.registry.Begin(jobID); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to begin job")
		return
	}

	o.publisher.Send(jobID, progress.Update{Percent: progress.PercentCrawlStart, Message: "crawl underway"})
	crawlResult, err := o.crawler.Crawl(ctx, rootURL, maxPages)
	if err != nil {
		// A root fetch that died because the job's context is done is a
		// cancellation/deadline, not an unreachable site.
		if ctx.Err() != nil {
			o.handleContextDone(ctx, jobID)
			return
		}
		o.fail(ctx, jobID, err)
		return
	}
	o.publisher.Send(jobID, progress.Update{Percent: progress.PercentCrawlDone, Message: "crawl complete"})

	if failed := crawlResult.FailedPageCount(); failed > 0 {
		msg := fmt.Sprintf("%d of %d pages failed to fetch", failed, len(crawlResult.Pages))
		if err := o.registry.SetWarning(jobID, common.CodeCrawlPartial, msg); err != nil {
			o.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to record crawl-partial warning")
		}
	}

	base := o.extractor.Extract(crawlResult)

	o.publisher.Send(jobID, progress.Update{Percent: progress.PercentAutomatedChecks, Message: "automated checks"})
	checks := o.checker.Run(jobID, base)

	onResult := func(r *models.ModuleResult, completed, total int) {
		if err := o.storage.UpsertModuleResult(ctx, r); err != nil {
			o.logger.Error().Err(err).Str("job_id", jobID).Str("axis", string(r.AxisKey)).Msg("failed to persist module result")
		}
		o.publisher.Send(jobID, progress.Update{
			Percent: progress.ModulesPercent(completed, total),
			Message: "analyzing modules",
		})
	}
	results := o.dispatcher.Dispatch(ctx, jobID, base, checks, onResult)

	if ctx.Err() != nil {
		o.handleContextDone(ctx, jobID)
		return
	}

	o.publisher.Send(jobID, progress.Update{Percent: progress.PercentReducerDone, Message: "reducing results"})
	report, err := reducer.Reduce(jobID, base.SiteURL, results)
	if err != nil {
		o.fail(ctx, jobID, err)
		return
	}

	if err := o.storage.UpsertFinalReport(ctx, report); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to persist final report")
	}

	o.publisher.Send(jobID, progress.Update{Percent: progress.PercentPersistenceDone, Message: "completed"})
	if err := o.registry.Complete(jobID); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to mark job completed")
	}
	if snap, err := o.registry.Load(jobID); err == nil {
		_ = o.storage.UpsertJob(context.Background(), snap)
	}
}

func (o *Orchestrator) handleContextDone(ctx context.Context, jobID string) {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		_ = o.registry.Fail(jobID, common.CodeDeadline, "job exceeded wall-clock ceiling")
	default:
		_ = o.registry.Cancel(jobID)
	}
	if snap, err := o.registry.Load(jobID); err == nil {
		_ = o.storage.UpsertJob(context.Background(), snap)
	}
}

func (o *Orchestrator) fail(ctx context.Context, jobID string, err error) {
	code := common.CodeOf(err)
	if code == "" {
		code = common.CodeCrawlFatal
	}
	_ = o.registry.Fail(jobID, code, err.Error())
	if snap, loadErr := o.registry.Load(jobID); loadErr == nil {
		_ = o.storage.UpsertJob(context.Background(), snap)
	}
}
