package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/pxengine/internal/px"
	"github.com/roach88/pxengine/internal/store"
)

// Recomputer rebuilds PX aggregates. *px.Calculator satisfies it.
type Recomputer interface {
	Recompute(ctx context.Context, characterID int64) (px.Summary, error)
	RecomputeEvent(ctx context.Context, eventID int64) ([]px.Summary, error)
}

// Roster lists the characters of an event. *store.Store satisfies it.
type Roster interface {
	CharacterIDs(ctx context.Context, eventID int64) ([]int64, error)
}

// DefaultWorkers is the default size of the background worker pool.
const DefaultWorkers = 4

// Engine turns relationship changes into character recomputes.
//
// In inline mode Notify recomputes before returning. In async mode Notify
// enqueues one job per affected character and Run drains the queue with a
// bounded worker pool.
//
// Thread-safety model:
//   - Notify(), Enqueue(), OnChange(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - ProcessPending(): must not run concurrently with Run()
//
// Delivery is at-least-once and the last recompute to persist wins; a
// recompute derives only from stored state, so repeated jobs converge.
type Engine struct {
	calc    Recomputer
	roster  Roster
	queue   *jobQueue
	clock   Sequencer
	ids     IDGenerator
	workers int
	async   bool

	mu        sync.RWMutex
	listeners []Listener

	processed atomic.Int64
	failed    atomic.Int64
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithWorkers sets the background worker pool size.
// Values below 1 are ignored. Default: DefaultWorkers.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithAsync makes Notify enqueue jobs instead of recomputing inline.
func WithAsync(async bool) Option {
	return func(e *Engine) {
		e.async = async
	}
}

// WithSequencer sets the job sequence source. Default: NewClock().
func WithSequencer(s Sequencer) Option {
	return func(e *Engine) {
		e.clock = s
	}
}

// WithIDGenerator sets the job id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// New creates an Engine over a calculator and a roster source.
func New(calc Recomputer, roster Roster, opts ...Option) *Engine {
	e := &Engine{
		calc:    calc,
		roster:  roster,
		queue:   newJobQueue(),
		clock:   NewClock(),
		ids:     UUIDv7Generator{},
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Async reports whether Notify enqueues instead of recomputing inline.
func (e *Engine) Async() bool {
	return e.async
}

// OnChange registers a listener called for every change passed to Notify.
func (e *Engine) OnChange(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Notify schedules recomputes for every character affected by change.
// Character-scoped changes touch the listed characters; every other
// change touches the event's whole roster.
func (e *Engine) Notify(ctx context.Context, change Change) error {
	e.announce(change)

	slog.Debug("relationship changed",
		"relation", change.Relation,
		"event", change.EventID,
		"characters", change.CharacterIDs,
		"character_scoped", change.CharacterScoped(),
	)

	if change.CharacterScoped() {
		return e.schedule(ctx, change.EventID, change.CharacterIDs, change.Relation)
	}

	if !e.async {
		// One catalog load for the whole roster.
		sums, err := e.calc.RecomputeEvent(ctx, change.EventID)
		if err != nil {
			return fmt.Errorf("recompute event %d after %s: %w", change.EventID, change.Relation, err)
		}
		e.announceReconciled(change.EventID, sums...)
		return nil
	}

	ids, err := e.roster.CharacterIDs(ctx, change.EventID)
	if err != nil {
		return fmt.Errorf("roster of event %d: %w", change.EventID, err)
	}
	return e.schedule(ctx, change.EventID, ids, change.Relation)
}

// Announce passes change to listeners without scheduling recomputes, for
// mutations such as purchases that recompute on their own.
func (e *Engine) Announce(change Change) {
	e.announce(change)
}

func (e *Engine) announce(change Change) {
	e.mu.RLock()
	listeners := e.listeners
	e.mu.RUnlock()
	for _, l := range listeners {
		l(change)
	}
}

// announceReconciled reports ownership changes made by free-ability
// reconciliation. Listeners see them as ability.characters changes; no
// further recompute is scheduled.
func (e *Engine) announceReconciled(eventID int64, sums ...px.Summary) {
	for _, s := range sums {
		if s.Granted.Len() == 0 && s.Revoked.Len() == 0 {
			continue
		}
		e.announce(Change{
			Relation:     store.EdgeAbilityCharacters.Relation,
			EventID:      eventID,
			CharacterIDs: []int64{s.CharacterID},
		})
	}
}

// schedule recomputes characters inline or enqueues them.
func (e *Engine) schedule(ctx context.Context, eventID int64, characterIDs []int64, reason string) error {
	if e.async {
		for _, id := range characterIDs {
			if !e.Enqueue(Job{CharacterID: id, EventID: eventID, Reason: reason}) {
				return ErrStopped
			}
		}
		return nil
	}

	var errs []error
	for _, id := range characterIDs {
		job := e.stamp(Job{CharacterID: id, EventID: eventID, Reason: reason})
		if err := e.process(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// stamp fills in the id and sequence of a job.
func (e *Engine) stamp(j Job) Job {
	if j.ID == "" {
		j.ID = e.ids.Generate()
	}
	if j.Seq == 0 {
		j.Seq = e.clock.Next()
	}
	return j
}

// Enqueue submits a recompute job for background processing.
// Thread-safe: may be called from any goroutine.
//
// A job for a character that is already pending is coalesced into the
// pending one. Returns false if the engine has been stopped.
func (e *Engine) Enqueue(j Job) bool {
	j = e.stamp(j)
	accepted, queued := e.queue.Enqueue(j)
	if accepted && !queued {
		slog.Debug("recompute coalesced", "job", j.ID, "character", j.CharacterID, "reason", j.Reason)
	}
	return accepted
}

// Pending returns the number of queued jobs.
func (e *Engine) Pending() int {
	return e.queue.Len()
}

// Stats returns the number of processed and failed jobs so far.
func (e *Engine) Stats() (processed, failed int64) {
	return e.processed.Load(), e.failed.Load()
}

// Run drains the queue with a bounded worker pool.
// Blocks until context is cancelled or Stop() is called and the queue is
// empty.
//
// A started recompute always runs to completion: on cancellation Run stops
// taking new jobs and waits for the running ones.
//
// ERROR HANDLING: a failed job is logged and processing continues. The
// next change for the character schedules a fresh recompute.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "workers", e.workers)

	var g errgroup.Group
	g.SetLimit(e.workers)
	work := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			break
		}

		job, ok := e.queue.TryDequeue()
		if ok {
			// Go blocks while all workers are busy.
			g.Go(func() error {
				_ = e.process(work, job)
				return nil
			})
			continue
		}

		select {
		case <-ctx.Done():
		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed.
			if e.queue.Len() == 0 && e.queue.Closed() {
				_ = g.Wait()
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}

	_ = g.Wait()
	slog.Info("engine stopping: context cancelled", "pending", e.queue.Len())
	return ctx.Err()
}

// ProcessPending runs every queued job on the calling goroutine and returns
// how many ran. Failures are logged and returned joined.
func (e *Engine) ProcessPending(ctx context.Context) (int, error) {
	var (
		n    int
		errs []error
	)
	for {
		job, ok := e.queue.TryDequeue()
		if !ok {
			return n, errors.Join(errs...)
		}
		n++
		if err := e.process(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
}

// Stop closes the queue. Run returns once queued jobs are drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

// process recomputes one character. A character deleted since the job was
// queued is not a failure.
func (e *Engine) process(ctx context.Context, job Job) error {
	slog.Debug("processing recompute",
		"job", job.ID,
		"seq", job.Seq,
		"character", job.CharacterID,
		"reason", job.Reason,
	)

	sum, err := e.calc.Recompute(ctx, job.CharacterID)
	if err != nil {
		if code, ok := px.CodeOf(err); ok && code == px.ErrCodeCharacterNotFound {
			slog.Debug("recompute skipped: character gone", "job", job.ID, "character", job.CharacterID)
			e.processed.Add(1)
			return nil
		}
		e.failed.Add(1)
		jobErr := &JobError{JobID: job.ID, CharacterID: job.CharacterID, Reason: job.Reason, Err: err}
		logJobError(job, err)
		return jobErr
	}

	e.processed.Add(1)
	e.announceReconciled(job.EventID, sum)
	slog.Debug("recompute done",
		"job", job.ID,
		"character", job.CharacterID,
		"px_tot", sum.Total,
		"px_used", sum.Used,
		"px_avail", sum.Available,
		"skipped", sum.Skipped,
	)
	return nil
}

// logJobError logs a failed job with enough context to rerun it by hand.
func logJobError(job Job, err error) {
	slog.Error("recompute failed",
		"job", job.ID,
		"seq", job.Seq,
		"character", job.CharacterID,
		"event", job.EventID,
		"reason", job.Reason,
		"error", err,
	)
}
