// Package store provides SQLite-backed storage for PX engine entities.
//
// The store holds:
//   - Events, characters, writing questions, options and answers
//   - Abilities, deliveries, modifiers and rules with their relationship edges
//   - Per-entity settings rows (the materialized PX aggregates live here)
//
// # Critical Patterns
//
// Bulk Prefetch:
//   - LoadCatalog reads one event's abilities, modifiers, rules and computed
//     questions with one query per table and per edge table
//   - Edge rows are grouped in memory, never fetched per owner row
//
// Deterministic Results:
//   - Abilities order by name, id; modifiers and rules by ord, id
//   - Edge sets are unordered (model.IDSet)
//
// Atomic Multi-Row Writes:
//   - RemoveAbilityClosure and SaveSettings run in a single transaction;
//     RemoveAbilityClosure reads the owned set inside it
//   - Transactions start with BEGIN IMMEDIATE so a concurrent writer waits
//     instead of failing an upgrade from a read lock
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity and cascading deletes
package store
