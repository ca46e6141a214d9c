// Package progress implements the Progress Publisher (spec.md §4.8): a
// single background writer per job that coalesces progress deltas so
// a burst of module completions produces at most one persistence
// write per second. Grounded on the single-writer-per-resource pattern
// in the teacher's internal/services/jobs/manager.go.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// Update is one progress delta posted to a job's mailbox.
type Update struct {
	Percent int
	Message string
}

// FlushFunc persists the coalesced update, e.g. registry.MarkProgress
// followed by a PersistenceAdapter.UpsertJob.
type FlushFunc func(percent int, message string)

type mailboxEntry struct {
	ch     chan Update
	cancel context.CancelFunc
}

// Publisher owns one mailbox goroutine per job. Send is non-blocking:
// if a flush is already pending, the new update simply replaces the
// pending one rather than growing an unbounded queue (spec.md §4.8
// "coalesces progress deltas").
type Publisher struct {
	interval time.Duration
	logger   arbor.ILogger

	mu      sync.Mutex
	mailbox map[string]mailboxEntry
}

// NewPublisher builds a Publisher flushing at most once per interval.
func NewPublisher(interval time.Duration, logger arbor.ILogger) *Publisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Publisher{interval: interval, logger: logger, mailbox: make(map[string]mailboxEntry)}
}

// Start launches the coalescing goroutine for jobID. Call once per
// job; Send before Start is a no-op, so callers should Start before
// beginning work. Start derives its own cancellation from ctx so Stop
// can terminate run() directly instead of waiting on the job's own
// (possibly much longer-lived) context to be done.
func (p *Publisher) Start(ctx context.Context, jobID string, flush FlushFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Update, 1)

	p.mu.Lock()
	p.mailbox[jobID] = mailboxEntry{ch: ch, cancel: cancel}
	p.mu.Unlock()

	go p.run(runCtx, jobID, ch, flush)
}

// Send posts an update for jobID, replacing any not-yet-flushed
// pending update so the mailbox never blocks the caller.
func (p *Publisher) Send(jobID string, update Update) {
	p.mu.Lock()
	entry, ok := p.mailbox[jobID]
	p.mu.Unlock()
	if !ok {
		return
	}
	ch := entry.ch

	select {
	case ch <- update:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- update:
		default:
		}
	}
}

// Stop cancels jobID's run() goroutine and removes its mailbox. Call
// after the job reaches a terminal state and its final write has
// landed; cancel is idempotent, so calling Stop after an unrelated
// context cancellation (wall-clock ceiling, explicit job Cancel) is
// harmless.
func (p *Publisher) Stop(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.mailbox[jobID]; ok {
		entry.cancel()
	}
	delete(p.mailbox, jobID)
}

func (p *Publisher) run(ctx context.Context, jobID string, ch chan Update, flush FlushFunc) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var pending *Update

	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				flush(pending.Percent, pending.Message)
			}
			return
		case u := <-ch:
			uu := u
			pending = &uu
		case <-ticker.C:
			if pending != nil {
				flush(pending.Percent, pending.Message)
				pending = nil
			}
		}
	}
}

// Progress bands from spec.md §4.8, exposed so the orchestrator can
// compute a percent for each phase without hard-coding magic numbers
// inline at every call site.
const (
	PercentAccepted        = 5
	PercentCrawlStart      = 5
	PercentCrawlDone       = 10
	PercentAutomatedChecks = 20
	PercentModulesStart    = 20
	PercentModulesDone     = 85
	PercentReducerDone     = 95
	PercentPersistenceDone = 100
)

// ModulesPercent interpolates the 20-85% band across the module
// dispatcher's completed/total count.
func ModulesPercent(completed, total int) int {
	if total <= 0 {
		return PercentModulesStart
	}
	span := PercentModulesDone - PercentModulesStart
	return PercentModulesStart + (completed*span)/total
}
