package contract

import (
	"fmt"

	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/state"
	"github.com/roach88/ledgerq/internal/vm"
)

// Ledger is a read-only view of a contract's public state. Every accessor
// runs a query against a private copy of the context; the state it was
// created from is never modified.
type Ledger struct {
	c   *Contract
	ctx vm.QueryContext
}

// Entry is a decoded map entry.
type Entry struct {
	Key   codec.Value
	Value codec.Value
}

// Ledger returns a view of root.
func (c *Contract) Ledger(root state.Value) *Ledger {
	return &Ledger{c: c, ctx: vm.QueryContext{State: root, Address: c.address}}
}

// State returns the root the view reads from.
func (l *Ledger) State() state.Value { return l.ctx.State }

// IsEmpty reports whether map field name has no entries.
func (l *Ledger) IsEmpty(name string) (bool, error) {
	f, err := l.c.mapField("is_empty", name)
	if err != nil {
		return false, err
	}
	v, err := l.read("is_empty", IsEmptyProgram(f), codec.BooleanType{})
	if err != nil {
		return false, err
	}
	return bool(v.(codec.Bool)), nil
}

// Size returns the number of entries of map field name.
func (l *Ledger) Size(name string) (uint64, error) {
	f, err := l.c.mapField("size", name)
	if err != nil {
		return 0, err
	}
	v, err := l.read("size", SizeProgram(f), codec.UintBits(64))
	if err != nil {
		return 0, err
	}
	return v.(codec.Uint).Uint64(), nil
}

// Member reports whether key is present in map field name.
func (l *Ledger) Member(name string, key codec.Value) (bool, error) {
	f, err := l.c.mapField("member", name)
	if err != nil {
		return false, err
	}
	enc, err := encodeKey("member", f, key)
	if err != nil {
		return false, err
	}
	v, err := l.read("member", MemberProgram(f, enc), codec.BooleanType{})
	if err != nil {
		return false, err
	}
	return bool(v.(codec.Bool)), nil
}

// Lookup returns the value under key in map field name. An absent key fails
// with PATH_ERROR; it never yields a default.
func (l *Ledger) Lookup(name string, key codec.Value) (codec.Value, error) {
	f, err := l.c.mapField("lookup", name)
	if err != nil {
		return nil, err
	}
	enc, err := encodeKey("lookup", f, key)
	if err != nil {
		return nil, err
	}
	return l.read("lookup", LookupProgram(f, enc), f.Type.Value)
}

// Read returns the value of cell field name.
func (l *Ledger) Read(name string) (codec.Value, error) {
	f, ok := l.c.field(name)
	if !ok {
		return nil, fmt.Errorf("read: no ledger field %s", name)
	}
	if f.IsMap() {
		return nil, &ir.Error{Code: ir.ErrCodeTypeMismatch, Op: "read", Arg: name, Expected: "cell field", Actual: f.Type.String()}
	}
	return l.read("read", ReadProgram(f), f.Type.Value)
}

// Iter returns the entries of map field name in the map's iteration order.
func (l *Ledger) Iter(name string) ([]Entry, error) {
	f, err := l.c.mapField("iter", name)
	if err != nil {
		return nil, err
	}
	root, ok := l.ctx.State.(*state.Array)
	if !ok || f.Index >= root.Len() {
		return nil, ir.NewPathError("iter", fmt.Sprintf("no ledger slot %d", f.Index))
	}
	m, ok := root.At(f.Index).(*state.Map)
	if !ok {
		return nil, ir.NewPathError("iter", fmt.Sprintf("ledger slot %d is not a map", f.Index))
	}

	entries := m.Entries()
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		k, err := codec.Decode(f.Type.Key, e.Key)
		if err != nil {
			return nil, ir.Annotate(err, "iter", "key")
		}
		cell, ok := e.Value.(*state.Cell)
		if !ok {
			return nil, ir.NewTypeMismatch("cell", e.Value.Kind().String())
		}
		v, err := codec.Decode(f.Type.Value, cell.Value())
		if err != nil {
			return nil, ir.Annotate(err, "iter", "value")
		}
		out = append(out, Entry{Key: k, Value: v})
	}
	return out, nil
}

// Native decodes the whole ledger into plain Go data: cell fields as their
// native form, map fields as a list of [key, value] pairs.
func (l *Ledger) Native() (map[string]any, error) {
	out := make(map[string]any, len(l.c.fields))
	for _, f := range l.c.fields {
		if !f.IsMap() {
			v, err := l.Read(f.Name)
			if err != nil {
				return nil, err
			}
			out[f.Name] = codec.ToNative(v)
			continue
		}
		entries, err := l.Iter(f.Name)
		if err != nil {
			return nil, err
		}
		pairs := make([]any, len(entries))
		for i, e := range entries {
			pairs[i] = []any{codec.ToNative(e.Key), codec.ToNative(e.Value)}
		}
		out[f.Name] = pairs
	}
	return out, nil
}

func (l *Ledger) read(op string, prog vm.Program, t codec.Type) (codec.Value, error) {
	res, err := l.c.interp.Run(l.ctx, prog)
	if err != nil {
		return nil, ir.Annotate(err, op, "")
	}
	reads := res.Reads()
	if len(reads) != 1 {
		return nil, ir.NewTranscriptViolation(op, fmt.Sprintf("%d reads, expected 1", len(reads)))
	}
	v, err := codec.Decode(t, reads[0])
	if err != nil {
		return nil, ir.Annotate(err, op, "result")
	}
	return v, nil
}

func encodeKey(op string, f Field, key codec.Value) (ir.AlignedValue, error) {
	enc, err := codec.Encode(f.Type.Key, key)
	if err != nil {
		return ir.AlignedValue{}, ir.Annotate(err, op, "argument 1")
	}
	return enc, nil
}
