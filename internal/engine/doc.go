// Package engine schedules PX recomputes in response to data changes.
//
// Any mutation of an ability, delivery, modifier or rule relationship must
// be followed by a recompute of every affected character. Writer applies
// the mutation and calls Engine.Notify, which decides the scope:
//
//   - Character-scoped relations (ability.characters, delivery.characters,
//     character options) recompute only the characters named in the change
//   - Every other relation recomputes the whole roster of the event
//
// ARCHITECTURE:
//
// Inline mode recomputes before Notify returns; event-wide changes share a
// single catalog load.
//
// Async mode enqueues one Job per character into an unbounded FIFO queue.
// Run drains it with a bounded errgroup worker pool. Pending jobs for the
// same character are coalesced; a job that is already running does not
// absorb later changes.
//
// Delivery is at-least-once; a failed job is logged and dropped. Recompute
// is idempotent and reads only stored state, so the last job to persist for
// a character leaves it correct.
//
// A started recompute is never cancelled: on context cancellation Run stops
// dequeuing and waits for running jobs.
package engine
