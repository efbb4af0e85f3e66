// Package witness invokes caller-supplied functions that supply private
// data to a circuit mid-call.
//
// A witness returns a new private state and a value. The value is checked
// against the witness's declared type before the circuit sees it, and only
// the value is recorded, in the private part of the transcript.
package witness

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/transcript"
)

// Context is the read-only view handed to a witness.
type Context struct {
	// Ledger is the decoded public ledger of the contract.
	Ledger any

	// PrivateState is the caller's private state at the time of the call.
	PrivateState any

	Address ir.ContractAddress
}

// Func computes a witness value.
type Func func(ctx Context) (newPrivateState any, value codec.Value, err error)

// Set maps witness names to implementations.
type Set map[string]Func

// Decl declares a witness and the type of its value.
type Decl struct {
	Name string
	Type codec.Type
}

// Bridge validates and records witness calls for one contract.
type Bridge struct {
	decls   map[string]codec.Type
	funcs   Set
	logger  zerolog.Logger
	calling bool
}

// NewBridge binds implementations to declarations. Every declared witness
// must be implemented.
func NewBridge(decls []Decl, funcs Set, logger zerolog.Logger) (*Bridge, error) {
	b := &Bridge{
		decls:  make(map[string]codec.Type, len(decls)),
		funcs:  make(Set, len(funcs)),
		logger: logger,
	}
	for _, d := range decls {
		fn, ok := funcs[d.Name]
		if !ok || fn == nil {
			return nil, &ir.Error{
				Code:     ir.ErrCodeTypeMismatch,
				Op:       "witnesses",
				Message:  fmt.Sprintf("no function-valued witness named %s", d.Name),
				Expected: "function",
				Actual:   "undefined",
			}
		}
		b.decls[d.Name] = d.Type
		b.funcs[d.Name] = fn
	}
	return b, nil
}

// Names returns the declared witness names, sorted.
func (b *Bridge) Names() []string {
	names := make([]string, 0, len(b.decls))
	for name := range b.decls {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Call invokes the named witness and records its value in tb's private
// outputs. A value outside the declared type is a TYPE_MISMATCH naming the
// witness; nothing is recorded in that case.
func (b *Bridge) Call(name string, wctx Context, tb *transcript.Builder) (any, codec.Value, error) {
	typ, ok := b.decls[name]
	if !ok {
		return nil, nil, fmt.Errorf("witness %s is not declared", name)
	}
	if b.calling {
		return nil, nil, fmt.Errorf("witness %s: reentrant witness call", name)
	}
	newPrivate, value, err := b.invoke(name, wctx)
	if err != nil {
		return nil, nil, fmt.Errorf("witness %s: %w", name, err)
	}

	encoded, err := codec.Encode(typ, value)
	if err != nil {
		return nil, nil, ir.Annotate(err, name, "return value")
	}
	if err := tb.RecordPrivate(encoded); err != nil {
		return nil, nil, err
	}

	b.logger.Debug().Str("witness", name).Int("segments", len(encoded.Value)).Msg("witness recorded")
	return newPrivate, value, nil
}

// invoke runs the witness function with the reentrancy guard held. The
// guard is released even if fn panics.
func (b *Bridge) invoke(name string, wctx Context) (any, codec.Value, error) {
	b.calling = true
	defer func() { b.calling = false }()
	return b.funcs[name](wctx)
}
