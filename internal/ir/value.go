package ir

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AtomTag identifies the kind of an atomic encoded segment.
type AtomTag uint8

const (
	// AtomField is a field element, at most MAX_FIELD.
	AtomField AtomTag = iota + 1

	// AtomBit is a single boolean bit.
	AtomBit

	// AtomBytes is a fixed-size byte block.
	AtomBytes
)

// Atom describes the shape of one encoded segment.
type Atom struct {
	Tag AtomTag

	// Length is the block size in bytes. Only meaningful for AtomBytes.
	Length int
}

// FieldAtom returns the atom of a field element.
func FieldAtom() Atom { return Atom{Tag: AtomField} }

// BitAtom returns the atom of a boolean.
func BitAtom() Atom { return Atom{Tag: AtomBit} }

// BytesAtom returns the atom of an n-byte block.
func BytesAtom(n int) Atom { return Atom{Tag: AtomBytes, Length: n} }

// String renders the atom as "field", "bit" or "bytes<n>".
func (a Atom) String() string {
	switch a.Tag {
	case AtomField:
		return "field"
	case AtomBit:
		return "bit"
	case AtomBytes:
		return fmt.Sprintf("bytes<%d>", a.Length)
	default:
		return fmt.Sprintf("atom(%d)", a.Tag)
	}
}

// Accepts reports whether seg is a canonical segment for this atom.
func (a Atom) Accepts(seg []byte) bool {
	if len(seg) > 0 && seg[len(seg)-1] == 0 {
		return false // not trimmed
	}
	switch a.Tag {
	case AtomField:
		return InFieldRange(LEToBig(seg))
	case AtomBit:
		return len(seg) == 0 || (len(seg) == 1 && seg[0] == 1)
	case AtomBytes:
		return a.Length >= 0 && len(seg) <= a.Length
	default:
		return false
	}
}

type atomJSON struct {
	Tag    string `json:"tag"`
	Length int    `json:"length,omitempty"`
}

// MarshalJSON implements json.Marshaler for Atom.
func (a Atom) MarshalJSON() ([]byte, error) {
	switch a.Tag {
	case AtomField:
		return json.Marshal(atomJSON{Tag: "field"})
	case AtomBit:
		return json.Marshal(atomJSON{Tag: "bit"})
	case AtomBytes:
		return json.Marshal(atomJSON{Tag: "bytes", Length: a.Length})
	default:
		return nil, fmt.Errorf("unknown atom tag %d", a.Tag)
	}
}

// UnmarshalJSON implements json.Unmarshaler for Atom.
func (a *Atom) UnmarshalJSON(data []byte) error {
	var raw atomJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Tag {
	case "field":
		*a = FieldAtom()
	case "bit":
		*a = BitAtom()
	case "bytes":
		if raw.Length < 0 {
			return fmt.Errorf("bytes atom: negative length %d", raw.Length)
		}
		*a = BytesAtom(raw.Length)
	default:
		return fmt.Errorf("unknown atom tag %q", raw.Tag)
	}
	return nil
}

// Alignment is the ordered segment layout of a typed value. Composite types
// concatenate the alignments of their children.
type Alignment []Atom

// Concat returns a new alignment of a followed by others.
func (a Alignment) Concat(others ...Alignment) Alignment {
	out := make(Alignment, 0, len(a))
	out = append(out, a...)
	for _, o := range others {
		out = append(out, o...)
	}
	return out
}

// Equal reports whether two alignments have identical atoms.
func (a Alignment) Equal(b Alignment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders the alignment as "[field bytes<32>]".
func (a Alignment) String() string {
	parts := make([]string, len(a))
	for i, atom := range a {
		parts[i] = atom.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// AlignedValue is the wire form of a typed value: one segment per atom of its
// alignment.
type AlignedValue struct {
	Value     [][]byte  `json:"value"`
	Alignment Alignment `json:"alignment"`
}

// EmptyAligned returns the aligned form of the unit value.
func EmptyAligned() AlignedValue {
	return AlignedValue{Value: [][]byte{}, Alignment: Alignment{}}
}

// Validate checks that the value has one canonical segment per atom.
func (v AlignedValue) Validate() error {
	if len(v.Value) != len(v.Alignment) {
		return NewTypeMismatch(
			fmt.Sprintf("%d segments", len(v.Alignment)),
			fmt.Sprintf("%d segments", len(v.Value)),
		)
	}
	for i, atom := range v.Alignment {
		if !atom.Accepts(v.Value[i]) {
			return NewTypeMismatch(atom.String(), hexutil.Encode(v.Value[i]))
		}
	}
	return nil
}

// Concat returns v followed by others, segments and alignments alike.
func (v AlignedValue) Concat(others ...AlignedValue) AlignedValue {
	out := v.Clone()
	for _, o := range others {
		for _, seg := range o.Value {
			out.Value = append(out.Value, bytes.Clone(seg))
		}
		out.Alignment = append(out.Alignment, o.Alignment...)
	}
	return out
}

// Clone returns a deep copy.
func (v AlignedValue) Clone() AlignedValue {
	out := AlignedValue{
		Value:     make([][]byte, len(v.Value)),
		Alignment: append(Alignment{}, v.Alignment...),
	}
	for i, seg := range v.Value {
		out.Value[i] = bytes.Clone(seg)
	}
	return out
}

// SameContent reports decoded equality of the segments, ignoring alignment.
func (v AlignedValue) SameContent(o AlignedValue) bool {
	if len(v.Value) != len(o.Value) {
		return false
	}
	for i := range v.Value {
		if !bytes.Equal(v.Value[i], o.Value[i]) {
			return false
		}
	}
	return true
}

// Equal reports equality of both segments and alignment.
func (v AlignedValue) Equal(o AlignedValue) bool {
	return v.Alignment.Equal(o.Alignment) && v.SameContent(o)
}

// Key returns the identity of the value's content, used to key maps.
// Segments are length-prefixed so distinct segmentations never collide.
func (v AlignedValue) Key() string {
	var b strings.Builder
	var lenBuf [binary.MaxVarintLen64]byte
	for _, seg := range v.Value {
		n := binary.PutUvarint(lenBuf[:], uint64(len(seg)))
		b.Write(lenBuf[:n])
		b.Write(seg)
	}
	return b.String()
}

// String renders the segments as hex, e.g. "<0x2a 0x>".
func (v AlignedValue) String() string {
	parts := make([]string, len(v.Value))
	for i, seg := range v.Value {
		parts[i] = hexutil.Encode(seg)
	}
	return "<" + strings.Join(parts, " ") + ">"
}

type alignedJSON struct {
	Value     []hexutil.Bytes `json:"value"`
	Alignment Alignment       `json:"alignment"`
}

// MarshalJSON implements json.Marshaler with hex-encoded segments.
func (v AlignedValue) MarshalJSON() ([]byte, error) {
	raw := alignedJSON{
		Value:     make([]hexutil.Bytes, len(v.Value)),
		Alignment: v.Alignment,
	}
	for i, seg := range v.Value {
		raw.Value[i] = hexutil.Bytes(seg)
	}
	if raw.Alignment == nil {
		raw.Alignment = Alignment{}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler. The decoded value is validated.
func (v *AlignedValue) UnmarshalJSON(data []byte) error {
	var raw alignedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := AlignedValue{
		Value:     make([][]byte, len(raw.Value)),
		Alignment: raw.Alignment,
	}
	if out.Alignment == nil {
		out.Alignment = Alignment{}
	}
	for i, seg := range raw.Value {
		out.Value[i] = []byte(seg)
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*v = out
	return nil
}

// TrimSegment drops trailing zero bytes, producing the canonical segment form.
func TrimSegment(seg []byte) []byte {
	end := len(seg)
	for end > 0 && seg[end-1] == 0 {
		end--
	}
	return seg[:end]
}

// BigToLE encodes a non-negative integer as a trimmed little-endian segment.
func BigToLE(v *big.Int) []byte {
	be := v.Bytes()
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	return TrimSegment(le)
}

// LEToBig decodes a little-endian segment.
func LEToBig(seg []byte) *big.Int {
	be := make([]byte, len(seg))
	for i, b := range seg {
		be[len(seg)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}
