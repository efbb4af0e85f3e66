package codec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"github.com/roach88/ledgerq/internal/ir"
)

// Type describes the domain and encoding of a family of native values.
type Type interface {
	// String renders the type as written in contract source.
	String() string

	// Alignment returns the segment layout. It never depends on a value.
	Alignment() ir.Alignment

	// encode appends the segments of v. v has already passed check.
	encode(dst [][]byte, v Value) [][]byte

	// check reports a TYPE_MISMATCH if v is outside the type's domain.
	check(v Value) error

	// decode consumes the type's segments from the front of segs.
	decode(segs [][]byte) (Value, [][]byte, error)
}

// FieldType is the type of field elements in [0, MAX_FIELD].
type FieldType struct{}

func (FieldType) String() string { return "Field" }

func (FieldType) Alignment() ir.Alignment { return ir.Alignment{ir.FieldAtom()} }

func (t FieldType) check(v Value) error {
	f, ok := v.(Field)
	if !ok || !ir.InFieldRange(f.v) {
		return mismatch(t, v)
	}
	return nil
}

func (FieldType) encode(dst [][]byte, v Value) [][]byte {
	return append(dst, ir.BigToLE(v.(Field).v))
}

func (t FieldType) decode(segs [][]byte) (Value, [][]byte, error) {
	seg, rest, err := take(t, ir.FieldAtom(), segs)
	if err != nil {
		return nil, nil, err
	}
	return Field{v: ir.LEToBig(seg)}, rest, nil
}

// BooleanType is the type of booleans, encoded as a single bit.
type BooleanType struct{}

func (BooleanType) String() string { return "Boolean" }

func (BooleanType) Alignment() ir.Alignment { return ir.Alignment{ir.BitAtom()} }

func (t BooleanType) check(v Value) error {
	if _, ok := v.(Bool); !ok {
		return mismatch(t, v)
	}
	return nil
}

func (BooleanType) encode(dst [][]byte, v Value) [][]byte {
	if v.(Bool) {
		return append(dst, []byte{1})
	}
	return append(dst, []byte{})
}

func (t BooleanType) decode(segs [][]byte) (Value, [][]byte, error) {
	seg, rest, err := take(t, ir.BitAtom(), segs)
	if err != nil {
		return nil, nil, err
	}
	return Bool(len(seg) == 1), rest, nil
}

// BytesType is the type of byte blocks of exactly Length bytes.
type BytesType struct {
	Length int
}

func (t BytesType) String() string { return fmt.Sprintf("Bytes<%d>", t.Length) }

func (t BytesType) Alignment() ir.Alignment { return ir.Alignment{ir.BytesAtom(t.Length)} }

func (t BytesType) check(v Value) error {
	b, ok := v.(Bytes)
	if !ok || len(b) != t.Length {
		return mismatch(t, v)
	}
	return nil
}

func (BytesType) encode(dst [][]byte, v Value) [][]byte {
	seg := append([]byte(nil), v.(Bytes)...)
	return append(dst, ir.TrimSegment(seg))
}

func (t BytesType) decode(segs [][]byte) (Value, [][]byte, error) {
	seg, rest, err := take(t, ir.BytesAtom(t.Length), segs)
	if err != nil {
		return nil, nil, err
	}
	out := make(Bytes, t.Length)
	copy(out, seg)
	return out, rest, nil
}

// UintType is the type of unsigned integers in [0, Max], encoded as one
// little-endian byte block wide enough to hold Max.
type UintType struct {
	Max uint256.Int
}

// UintBits returns Uint<bits>, the type of integers below 2^bits.
func UintBits(bits uint) UintType {
	var t UintType
	t.Max.Lsh(uint256.NewInt(1), bits)
	t.Max.SubUint64(&t.Max, 1)
	return t
}

// UintRange returns Uint<0..max>.
func UintRange(max uint64) UintType {
	var t UintType
	t.Max.SetUint64(max)
	return t
}

// Size returns the width of the encoded block in bytes.
func (t UintType) Size() int {
	return (t.Max.BitLen() + 7) / 8
}

// MaxBig returns the bound as a big integer.
func (t UintType) MaxBig() *big.Int { return t.Max.ToBig() }

func (t UintType) String() string {
	bits := t.Max.BitLen()
	var pow uint256.Int
	pow.Lsh(uint256.NewInt(1), uint(bits))
	pow.SubUint64(&pow, 1)
	if bits == 256 || pow.Eq(&t.Max) {
		return fmt.Sprintf("Uint<%d>", bits)
	}
	return fmt.Sprintf("Uint<0..%s>", t.Max.Dec())
}

func (t UintType) Alignment() ir.Alignment { return ir.Alignment{ir.BytesAtom(t.Size())} }

func (t UintType) check(v Value) error {
	u, ok := v.(Uint)
	if !ok || u.v.Gt(&t.Max) {
		return mismatch(t, v)
	}
	return nil
}

func (UintType) encode(dst [][]byte, v Value) [][]byte {
	u := v.(Uint)
	return append(dst, ir.BigToLE(u.v.ToBig()))
}

func (t UintType) decode(segs [][]byte) (Value, [][]byte, error) {
	seg, rest, err := take(t, ir.BytesAtom(t.Size()), segs)
	if err != nil {
		return nil, nil, err
	}
	u, err := UintFromBig(ir.LEToBig(seg))
	if err != nil || u.v.Gt(&t.Max) {
		return nil, nil, ir.NewTypeMismatch(t.String(), ir.AlignedValue{Value: [][]byte{seg}})
	}
	return u, rest, nil
}

// VectorType is the type of sequences of exactly Length elements.
type VectorType struct {
	Length int
	Elem   Type
}

func (t VectorType) String() string { return fmt.Sprintf("Vector<%d, %s>", t.Length, t.Elem) }

func (t VectorType) Alignment() ir.Alignment {
	elem := t.Elem.Alignment()
	out := make(ir.Alignment, 0, len(elem)*t.Length)
	for i := 0; i < t.Length; i++ {
		out = append(out, elem...)
	}
	return out
}

func (t VectorType) check(v Value) error {
	vec, ok := v.(Vector)
	if !ok || len(vec) != t.Length {
		return mismatch(t, v)
	}
	for _, e := range vec {
		if t.Elem.check(e) != nil {
			return mismatch(t, v)
		}
	}
	return nil
}

func (t VectorType) encode(dst [][]byte, v Value) [][]byte {
	for _, e := range v.(Vector) {
		dst = t.Elem.encode(dst, e)
	}
	return dst
}

func (t VectorType) decode(segs [][]byte) (Value, [][]byte, error) {
	out := make(Vector, t.Length)
	for i := range out {
		var err error
		out[i], segs, err = t.Elem.decode(segs)
		if err != nil {
			return nil, nil, err
		}
	}
	return out, segs, nil
}

// StructField is a named member of a StructType.
type StructField struct {
	Name string
	Type Type
}

// StructType is a named record with fields in declared order.
type StructType struct {
	Name   string
	Fields []StructField
}

// String renders the full shape, e.g. "struct Credential<id: Field>".
func (t *StructType) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return fmt.Sprintf("struct %s<%s>", t.Name, strings.Join(parts, ", "))
}

func (t *StructType) Alignment() ir.Alignment {
	var out ir.Alignment
	for _, f := range t.Fields {
		out = append(out, f.Type.Alignment()...)
	}
	if out == nil {
		out = ir.Alignment{}
	}
	return out
}

func (t *StructType) check(v Value) error {
	s, ok := v.(Struct)
	if !ok || len(s) != len(t.Fields) {
		return mismatch(t, v)
	}
	for _, f := range t.Fields {
		fv, present := s[f.Name]
		if !present || f.Type.check(fv) != nil {
			return mismatch(t, v)
		}
	}
	return nil
}

func (t *StructType) encode(dst [][]byte, v Value) [][]byte {
	s := v.(Struct)
	for _, f := range t.Fields {
		dst = f.Type.encode(dst, s[f.Name])
	}
	return dst
}

func (t *StructType) decode(segs [][]byte) (Value, [][]byte, error) {
	out := make(Struct, len(t.Fields))
	for _, f := range t.Fields {
		var (
			fv  Value
			err error
		)
		fv, segs, err = f.Type.decode(segs)
		if err != nil {
			return nil, nil, err
		}
		out[f.Name] = fv
	}
	return out, segs, nil
}

func mismatch(t Type, v Value) error {
	return ir.NewTypeMismatch(t.String(), renderValue(v))
}

func take(t Type, atom ir.Atom, segs [][]byte) ([]byte, [][]byte, error) {
	if len(segs) == 0 {
		return nil, nil, ir.NewTypeMismatch(t.String(), "end of segments")
	}
	if !atom.Accepts(segs[0]) {
		return nil, nil, ir.NewTypeMismatch(t.String(), ir.AlignedValue{Value: segs[:1]}.String())
	}
	return segs[0], segs[1:], nil
}
