package contract

import (
	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/transcript"
	"github.com/roach88/ledgerq/internal/vm"
	"github.com/roach88/ledgerq/internal/witness"
)

// Call is the handle a circuit implementation uses to reach the ledger and
// its witnesses. It is valid only for the duration of one call.
type Call struct {
	contract *Contract
	tb       *transcript.Builder
	private  any
}

// Field returns the ledger field named name. Circuits are compiled against
// their descriptor, so a missing field is a programming error and panics.
func (c *Call) Field(name string) Field {
	f, ok := c.contract.field(name)
	if !ok {
		panic("contract: no ledger field " + name)
	}
	return f
}

// Query runs prog against the call's working state and records it in the
// public transcript. It returns the values read by popeq operations.
func (c *Call) Query(prog vm.Program) ([]ir.AlignedValue, error) {
	return c.tb.Query(prog)
}

// Read runs prog, which must read exactly one value, and decodes it as t.
func (c *Call) Read(prog vm.Program, t codec.Type) (codec.Value, error) {
	reads, err := c.tb.Query(prog)
	if err != nil {
		return nil, err
	}
	if len(reads) != 1 {
		return nil, ir.NewTranscriptViolation("read", "query did not read exactly one value")
	}
	return codec.Decode(t, reads[0])
}

// Ledger returns a read-only view of the working state, including writes
// made earlier in this call.
func (c *Call) Ledger() *Ledger {
	return c.contract.Ledger(c.tb.Context().State)
}

// PrivateState returns the caller's private state as updated by witnesses
// so far.
func (c *Call) PrivateState() any { return c.private }

// Witness invokes the named witness. Its value is recorded in the private
// transcript and its new private state replaces the current one.
func (c *Call) Witness(name string) (codec.Value, error) {
	wctx := witness.Context{
		Ledger:       c.Ledger(),
		PrivateState: c.private,
		Address:      c.contract.address,
	}
	next, value, err := c.contract.witnesses.Call(name, wctx, c.tb)
	if err != nil {
		return nil, err
	}
	c.private = next
	return value, nil
}
