// Package harness runs conformance scenarios against builtin contracts.
//
// A scenario is a YAML file naming a builtin contract, a list of circuit
// calls with expected outcomes, and assertions on the resulting trace and
// ledger:
//
//	name: record_valid_credential
//	description: a valid credential is recorded as verified
//	contract: EthiopianNationalityVerification
//	flow:
//	  - invoke: test_verification
//	    args: []
//	assertions:
//	  - type: ledger_lookup
//	    field: nationalityVerifications
//	    key: 555555
//	    expect: true
//	  - type: replay
//
// Run deploys the contract into a fresh in-memory store and drives it
// through the real engine, so committed calls carry genuine roots,
// transcripts and commitments. Call IDs come from a sequential generator
// and the logical clock starts at zero, so a scenario always produces the
// same snapshot.
//
// Supported assertions:
//   - ledger_lookup, ledger_member: value or presence of a map key
//   - ledger_size: number of entries in a map field
//   - ledger_read: value of a cell field
//   - trace_count, trace_order: committed calls per circuit and their order
//   - replay: the call log replays to the recorded roots
//
// Golden snapshots (testdata/golden/*.golden) hold the canonical JSON of
// every call and the final ledger. Regenerate with:
//
//	go test ./internal/harness -update
package harness
