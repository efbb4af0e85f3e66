package codec

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/holiman/uint256"
)

// Value is a sealed interface over native runtime values.
// Only Field, Bool, Bytes, Uint, Vector and Struct implement it.
type Value interface {
	codecValue() // Sealed
	String() string
}

// Field is an unsigned field element. Values outside [0, MAX_FIELD] can be
// constructed but are rejected by FieldType.
type Field struct {
	v *big.Int
}

func (Field) codecValue() {}

// NewField wraps a copy of v.
func NewField(v *big.Int) Field {
	if v == nil {
		return Field{v: new(big.Int)}
	}
	return Field{v: new(big.Int).Set(v)}
}

// FieldFromUint64 creates a field element from a machine integer.
func FieldFromUint64(n uint64) Field {
	return Field{v: new(big.Int).SetUint64(n)}
}

// ParseField parses a decimal (or 0x-prefixed hex) integer.
func ParseField(s string) (Field, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return Field{}, fmt.Errorf("invalid field literal %q", s)
	}
	return Field{v: v}, nil
}

// MustField parses s and panics on error. Intended for constants.
func MustField(s string) Field {
	f, err := ParseField(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Int returns a copy of the underlying integer.
func (f Field) Int() *big.Int {
	if f.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(f.v)
}

// Cmp compares two field elements.
func (f Field) Cmp(o Field) int { return f.Int().Cmp(o.Int()) }

// String renders the field element in decimal.
func (f Field) String() string { return f.Int().String() }

// Bool is a boolean.
type Bool bool

func (Bool) codecValue() {}

// String renders "true" or "false".
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Bytes is a fixed-size byte block. The size is enforced by BytesType.
type Bytes []byte

func (Bytes) codecValue() {}

// String renders the block as 0x-prefixed hex.
func (b Bytes) String() string { return "0x" + hex.EncodeToString(b) }

// Uint is a bounded unsigned integer. The bound is enforced by UintType.
type Uint struct {
	v uint256.Int
}

func (Uint) codecValue() {}

// NewUint creates a bounded unsigned integer from a machine integer.
func NewUint(n uint64) Uint {
	var u Uint
	u.v.SetUint64(n)
	return u
}

// UintFromBig converts v, failing if it does not fit in 256 bits.
func UintFromBig(v *big.Int) (Uint, error) {
	var u Uint
	if v.Sign() < 0 {
		return u, fmt.Errorf("negative unsigned integer %s", v)
	}
	if overflow := u.v.SetFromBig(v); overflow {
		return u, fmt.Errorf("unsigned integer %s exceeds 256 bits", v)
	}
	return u, nil
}

// Big returns the value as a big integer.
func (u Uint) Big() *big.Int { return u.v.ToBig() }

// Uint64 returns the low 64 bits.
func (u Uint) Uint64() uint64 { return u.v.Uint64() }

// Lt reports u < o.
func (u Uint) Lt(o Uint) bool { return u.v.Lt(&o.v) }

// String renders the integer in decimal.
func (u Uint) String() string { return u.v.Dec() }

// Vector is a fixed-arity sequence of values of one type.
type Vector []Value

func (Vector) codecValue() {}

// String renders "[a, b]".
func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = renderValue(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Struct maps field names to values. Field order is defined by StructType.
type Struct map[string]Value

func (Struct) codecValue() {}

// String renders "{a: 1, b: 2}" with names sorted.
func (s Struct) String() string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + renderValue(s[name])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Equal reports whether two native values are identical.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Field:
		bv, ok := b.(Field)
		return ok && av.Cmp(bv) == 0
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Bytes:
		bv, ok := b.(Bytes)
		return ok && slices.Equal(av, bv)
	case Uint:
		bv, ok := b.(Uint)
		return ok && av.v.Eq(&bv.v)
	case Vector:
		bv, ok := b.(Vector)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Struct:
		bv, ok := b.(Struct)
		if !ok || len(av) != len(bv) {
			return false
		}
		for name, x := range av {
			y, present := bv[name]
			if !present || !Equal(x, y) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func renderValue(v Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}
