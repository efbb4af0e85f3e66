package contract

import (
	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/state"
	"github.com/roach88/ledgerq/internal/transcript"
	"github.com/roach88/ledgerq/internal/vm"
)

// ConstructorContext carries the caller's state into InitialState.
type ConstructorContext struct {
	InitialPrivateState     any
	InitialWalletLocalState any
}

// CircuitContext is the context a circuit call runs in. It is a value; a
// call works on a copy and returns the updated copy on success.
type CircuitContext struct {
	// OriginalState is the root the instance was deployed with.
	OriginalState state.Value

	CurrentPrivateState     any
	CurrentWalletLocalState any

	// Transaction holds the current root and the contract address.
	Transaction vm.QueryContext
}

// CallResult is the outcome of a successful circuit call.
type CallResult struct {
	// Result is nil for circuits returning unit.
	Result    codec.Value
	Context   CircuitContext
	ProofData transcript.ProofData
	GasCost   uint64
}
