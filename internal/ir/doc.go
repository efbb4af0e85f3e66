// Package ir provides the foundational representation types for ledgerq.
//
// Every other internal package imports ir; ir imports nothing internal. It
// holds the wire form of typed values (atoms, alignments, aligned values),
// the contract address tag, the runtime error taxonomy, the runtime version
// guard, contract descriptor types, canonical JSON and domain-separated
// hashing.
//
// Key design constraints:
//   - Encoded segments are little-endian with trailing zero bytes trimmed, so
//     byte equality of segments is decoded equality
//   - No package-level mutable state; MaxField returns a fresh copy
//   - All JSON tags use camelCase to match transcript consumers
package ir
