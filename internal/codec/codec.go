package codec

import (
	"fmt"

	"github.com/roach88/ledgerq/internal/ir"
)

// Check reports a TYPE_MISMATCH if v is outside t's domain.
func Check(t Type, v Value) error {
	if v == nil {
		return ir.NewTypeMismatch(t.String(), nil)
	}
	return t.check(v)
}

// ToValue encodes v as segments of t's alignment.
func ToValue(t Type, v Value) ([][]byte, error) {
	if err := Check(t, v); err != nil {
		return nil, err
	}
	return t.encode(make([][]byte, 0, len(t.Alignment())), v), nil
}

// Encode returns the aligned form of v.
func Encode(t Type, v Value) (ir.AlignedValue, error) {
	segs, err := ToValue(t, v)
	if err != nil {
		return ir.AlignedValue{}, err
	}
	return ir.AlignedValue{Value: segs, Alignment: t.Alignment()}, nil
}

// MustEncode encodes v and panics on error. Intended for constants.
func MustEncode(t Type, v Value) ir.AlignedValue {
	av, err := Encode(t, v)
	if err != nil {
		panic(err)
	}
	return av
}

// FromValue decodes segs as a t. All segments must be consumed.
func FromValue(t Type, segs [][]byte) (Value, error) {
	v, rest, err := t.decode(segs)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ir.NewTypeMismatch(t.String(), fmt.Sprintf("%d trailing segments", len(rest)))
	}
	return v, nil
}

// Decode decodes an aligned value, checking its alignment against t.
func Decode(t Type, av ir.AlignedValue) (Value, error) {
	if want := t.Alignment(); !want.Equal(av.Alignment) {
		return nil, ir.NewTypeMismatch(want.String(), av.Alignment.String())
	}
	return FromValue(t, av.Value)
}

// ArgPosition renders the position of the i-th (zero-based) circuit argument
// for diagnostics. Go callers pass the circuit context first, so their
// position is offset by one.
func ArgPosition(i int) string {
	return fmt.Sprintf("argument %d (argument %d as invoked from Go)", i+1, i+2)
}

// CheckArg validates v as argument i of op.
func CheckArg(op string, i int, t Type, v Value) error {
	if err := Check(t, v); err != nil {
		return ir.Annotate(err, op, ArgPosition(i))
	}
	return nil
}

// EncodeArgs validates and encodes a circuit's arguments, concatenating the
// results in order.
func EncodeArgs(op string, types []Type, args []Value) (ir.AlignedValue, error) {
	if len(args) != len(types) {
		return ir.AlignedValue{}, &ir.Error{
			Code:     ir.ErrCodeTypeMismatch,
			Op:       op,
			Message:  "wrong number of arguments",
			Expected: fmt.Sprintf("%d arguments", len(types)),
			Actual:   fmt.Sprintf("%d", len(args)),
		}
	}
	out := ir.EmptyAligned()
	for i, t := range types {
		if err := CheckArg(op, i, t, args[i]); err != nil {
			return ir.AlignedValue{}, err
		}
		out = out.Concat(MustEncode(t, args[i]))
	}
	return out, nil
}

// Zero returns the default value of t: zero integers, false, zeroed byte
// blocks, and composites of those.
func Zero(t Type) Value {
	v, err := FromValue(t, make([][]byte, len(t.Alignment())))
	if err != nil {
		panic(fmt.Sprintf("codec: zero value of %s: %v", t, err))
	}
	return v
}
