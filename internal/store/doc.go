// Package store provides SQLite-backed durable storage for the call log.
//
// The store is append-only:
//   - Instances: deployed contract instances with their initial state
//   - Calls: committed circuit calls with pre/post roots, the post-call state
//     snapshot and the canonical transcript
//
// # Ordering
//
// All ordering uses seq INTEGER (logical clock), never timestamps. Queries
// over calls use ORDER BY seq ASC, id ASC COLLATE BINARY so replays see
// identical results.
//
// # Filtering
//
// QueryCalls takes a Predicate (CircuitIs, SeqRange, GasAtLeast, And) and
// compiles it to a parameterized WHERE clause; values are always bound.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - user_version: number of applied migrations; newer databases are refused
//
// Roots and digests are computed by internal/state and internal/ir using
// domain-separated SHA3-256.
package store
