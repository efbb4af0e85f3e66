// Package engine hosts a deployed contract instance.
//
// The engine owns the committed circuit context of one instance and runs
// circuit calls against it, one at a time.
//
// ARCHITECTURE:
//
// Serialized calls:
// Invoke holds the engine lock for the whole call. A call sees the context
// the previous call committed, and concurrent callers are ordered by the
// lock. This keeps the call log a single chain of roots.
//
// Call flow:
//  1. Contract.Call runs the circuit on a copy of the committed context
//  2. the gas budget is checked
//  3. the call record (roots, snapshot, transcript, commitment, digest) is
//     built and appended to the store
//  4. the clock advances and the new context becomes the committed one
//
// A failure at any step leaves the committed context and the clock as they
// were.
//
// CRITICAL PATTERNS:
//
// Logical clock:
// Calls are numbered by Clock, never by wall time. Ordering in the store
// is ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Resume:
// New finds an existing instance at the contract address, checks the
// descriptor hash, and restores the ledger from the last call's post_state
// snapshot after checking it against post_root.
//
// Replay:
// See replay.go.
package engine
