package state

import (
	"fmt"
	"math"

	"github.com/roach88/ledgerq/internal/ir"
)

// Path addresses a node by the sequence of keys leading to it from a root.
// Array children are addressed by keys that decode as unsigned integers.
type Path []ir.AlignedValue

// IndexKey returns the key addressing the i-th child of an array: a
// little-endian byte block, one byte wide for indices below 256 as emitted
// by compiled ledger programs, wider as needed up to four bytes.
func IndexKey(i int) ir.AlignedValue {
	if i < 0 || uint64(i) > math.MaxUint32 {
		panic(fmt.Sprintf("state: array index %d out of range", i))
	}
	le := []byte{byte(i)}
	for rest := uint32(i) >> 8; rest > 0; rest >>= 8 {
		le = append(le, byte(rest))
	}
	return ir.AlignedValue{
		Value:     [][]byte{ir.TrimSegment(le)},
		Alignment: ir.Alignment{ir.BytesAtom(len(le))},
	}
}

// arrayIndex decodes an array key. Any single-segment unsigned encoding is
// accepted.
func arrayIndex(key ir.AlignedValue) (int, bool) {
	if len(key.Value) != 1 || len(key.Value[0]) > 4 {
		return 0, false
	}
	n := 0
	for i := len(key.Value[0]) - 1; i >= 0; i-- {
		n = n<<8 | int(key.Value[0][i])
	}
	return n, true
}

// Child returns the child of node under key. ok is false if the key is
// absent. A Null, Cell or malformed array key is a PATH_ERROR.
func Child(node Value, key ir.AlignedValue) (child Value, ok bool, err error) {
	switch n := node.(type) {
	case *Map:
		child, ok = n.Get(key)
		return child, ok, nil
	case *Array:
		i, valid := arrayIndex(key)
		if !valid {
			return nil, false, ir.NewPathError("idx", fmt.Sprintf("invalid array index %s", key))
		}
		if i >= n.Len() {
			return nil, false, nil
		}
		return n.At(i), true, nil
	default:
		return nil, false, ir.NewPathError("idx", fmt.Sprintf("cannot index into %s", node.Kind()))
	}
}

// Insert returns container with key set to value. Array writes must be in
// bounds.
func Insert(container Value, key ir.AlignedValue, value Value) (Value, error) {
	switch n := container.(type) {
	case *Map:
		return n.With(key, value), nil
	case *Array:
		i, valid := arrayIndex(key)
		if !valid || i >= n.Len() {
			return nil, ir.NewPathError("ins", fmt.Sprintf("array index %s out of bounds (length %d)", key, n.Len()))
		}
		return n.With(i, value), nil
	default:
		return nil, ir.NewPathError("ins", fmt.Sprintf("cannot insert into %s", container.Kind()))
	}
}

// Get resolves path from root. A missing segment is a PATH_ERROR unless
// createMissing is set, in which case Null is returned for it.
func Get(root Value, path Path, createMissing bool) (Value, error) {
	node := root
	for depth, key := range path {
		child, ok, err := Child(node, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			if createMissing {
				return Null{}, nil
			}
			return nil, ir.NewPathError("get", fmt.Sprintf("no entry %s at depth %d", key, depth))
		}
		node = child
	}
	return node, nil
}

// Set returns a new root with the node at path replaced by value. The last
// segment may be absent and is inserted. With createMissing, absent
// intermediate segments are created as empty maps; otherwise they are a
// PATH_ERROR.
func Set(root Value, path Path, value Value, createMissing bool) (Value, error) {
	if len(path) == 0 {
		return value, nil
	}
	node := root
	if _, isNull := node.(Null); isNull && createMissing {
		node = NewMap()
	}
	if len(path) == 1 {
		return Insert(node, path[0], value)
	}
	child, ok, err := Child(node, path[0])
	if err != nil {
		return nil, err
	}
	if !ok {
		if !createMissing {
			return nil, ir.NewPathError("set", fmt.Sprintf("no entry %s", path[0]))
		}
		child = Null{}
	}
	updated, err := Set(child, path[1:], value, createMissing)
	if err != nil {
		return nil, err
	}
	return Insert(node, path[0], updated)
}

// Size returns the number of children of an Array or Map. Other kinds are a
// TYPE_MISMATCH.
func Size(node Value) (int, error) {
	switch n := node.(type) {
	case *Array:
		return n.Len(), nil
	case *Map:
		return n.Len(), nil
	default:
		return 0, ir.NewTypeMismatch("array or map", node.Kind())
	}
}

// Member reports whether key is present in an Array or Map. Other kinds are
// a TYPE_MISMATCH.
func Member(node Value, key ir.AlignedValue) (bool, error) {
	switch node.(type) {
	case *Array, *Map:
		_, ok, err := Child(node, key)
		return ok, err
	default:
		return false, ir.NewTypeMismatch("array or map", node.Kind())
	}
}

// Eq reports decoded-content equality. Nodes of different kinds are a
// TYPE_MISMATCH.
func Eq(a, b Value) (bool, error) {
	if a.Kind() != b.Kind() {
		return false, ir.NewTypeMismatch(a.Kind().String(), b.Kind())
	}
	return equal(a, b), nil
}

func equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case *Cell:
		return av.v.SameContent(b.(*Cell).v)
	case *Array:
		bv := b.(*Array)
		if av.Len() != bv.Len() {
			return false
		}
		for i := range av.items {
			if !equal(av.items[i], bv.items[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv := b.(*Map)
		if av.Len() != bv.Len() {
			return false
		}
		for i := range av.entries {
			if av.entries[i].id != bv.entries[i].id || !equal(av.entries[i].value, bv.entries[i].value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
