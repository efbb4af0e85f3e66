// Package contract is the generic runtime for compiled contracts.
//
// A Contract binds a compiled descriptor (ir.ContractSpec) to Go circuit
// implementations and caller-supplied witnesses. It builds the initial ledger,
// wraps every circuit call (argument checks, context copy, transcript
// recording, commit of the new context) and exposes a read-only ledger view.
//
// Ledger fields live in the slots of the root Array, in declaration order.
// Circuits reach them only through interpreter programs, built with the
// helpers in program.go, so that every public read and write lands in the
// call's transcript.
package contract
