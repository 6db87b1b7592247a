// Package px computes experience point (PX) progression for characters.
//
// For one character the calculator derives:
//   - px_tot: the event's starting baseline plus every delivery received
//   - px_used: the effective cost of every owned ability
//   - px_avail: px_tot minus px_used
//   - computed writing fields produced by ordered arithmetic rules
//
// # Critical Patterns
//
// Derived State:
//   - Aggregates and the free ability list are a cache, fully rebuildable
//     from abilities, deliveries, modifiers and rules
//   - Recompute is idempotent; repeating it without a state change writes
//     identical values
//
// Cost Resolution:
//   - Modifiers for an ability are tried in (order, id) order
//   - The first modifier whose prerequisites and requirements hold sets the
//     cost; later modifiers are ignored
//   - Catalog abilities are values, so the stored base cost never changes
//
// Concurrency:
//   - Every mutation of one character runs under that character's mutex
//   - Cascade removal is a single store transaction
package px
