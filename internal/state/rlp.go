package state

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/roach88/ledgerq/internal/ir"
)

// Binary form: every node is an RLP list whose first item is its Kind.
//
//	null:  [0]
//	cell:  [1, aligned]
//	array: [2, [child...]]
//	map:   [3, [[key aligned, child]...]]
//
// where aligned is [[segment...], [[atom tag, atom length]...]].

// EncodeBinary returns the RLP encoding of v.
func EncodeBinary(v Value) ([]byte, error) {
	return rlp.EncodeToBytes(rlpNode(v))
}

// DecodeBinary parses an RLP-encoded tree. Segments are validated against
// their alignment and map entries must be in canonical order.
func DecodeBinary(data []byte) (Value, error) {
	s := rlp.NewStream(bytes.NewReader(data), uint64(len(data)))
	v, err := decodeNode(s)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if _, _, err := s.Kind(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode state: trailing data")
	}
	return v, nil
}

func rlpNode(v Value) []any {
	switch n := v.(type) {
	case *Cell:
		return []any{uint64(KindCell), rlpAligned(n.v)}
	case *Array:
		items := make([]any, len(n.items))
		for i, item := range n.items {
			items[i] = rlpNode(item)
		}
		return []any{uint64(KindArray), items}
	case *Map:
		entries := make([]any, len(n.entries))
		for i, e := range n.entries {
			entries[i] = []any{rlpAligned(e.key), rlpNode(e.value)}
		}
		return []any{uint64(KindMap), entries}
	default:
		return []any{uint64(KindNull)}
	}
}

func rlpAligned(av ir.AlignedValue) []any {
	segs := make([]any, len(av.Value))
	for i, seg := range av.Value {
		segs[i] = seg
	}
	atoms := make([]any, len(av.Alignment))
	for i, atom := range av.Alignment {
		atoms[i] = []any{uint64(atom.Tag), uint64(atom.Length)}
	}
	return []any{segs, atoms}
}

func decodeNode(s *rlp.Stream) (Value, error) {
	if _, err := s.List(); err != nil {
		return nil, err
	}
	tag, err := s.Uint64()
	if err != nil {
		return nil, err
	}

	var out Value
	switch Kind(tag) {
	case KindNull:
		out = Null{}
	case KindCell:
		av, err := decodeAligned(s)
		if err != nil {
			return nil, err
		}
		out = &Cell{v: av}
	case KindArray:
		if _, err := s.List(); err != nil {
			return nil, err
		}
		var items []Value
		for {
			item, err := decodeNode(s)
			if errors.Is(err, rlp.EOL) {
				break
			}
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if err := s.ListEnd(); err != nil {
			return nil, err
		}
		out = &Array{items: items}
	case KindMap:
		m, err := decodeMap(s)
		if err != nil {
			return nil, err
		}
		out = m
	default:
		return nil, fmt.Errorf("unknown node kind %d", tag)
	}
	return out, s.ListEnd()
}

func decodeMap(s *rlp.Stream) (*Map, error) {
	if _, err := s.List(); err != nil {
		return nil, err
	}
	m := &Map{}
	for {
		if _, err := s.List(); errors.Is(err, rlp.EOL) {
			break
		} else if err != nil {
			return nil, err
		}
		key, err := decodeAligned(s)
		if err != nil {
			return nil, err
		}
		child, err := decodeNode(s)
		if err != nil {
			return nil, err
		}
		if err := s.ListEnd(); err != nil {
			return nil, err
		}
		id := key.Key()
		if n := len(m.entries); n > 0 && m.entries[n-1].id >= id {
			return nil, fmt.Errorf("map keys out of order at %s", key)
		}
		m.entries = append(m.entries, mapEntry{id: id, key: key, value: child})
	}
	return m, s.ListEnd()
}

func decodeAligned(s *rlp.Stream) (ir.AlignedValue, error) {
	av := ir.AlignedValue{Value: [][]byte{}, Alignment: ir.Alignment{}}
	if _, err := s.List(); err != nil {
		return av, err
	}

	if _, err := s.List(); err != nil {
		return av, err
	}
	for {
		seg, err := s.Bytes()
		if errors.Is(err, rlp.EOL) {
			break
		}
		if err != nil {
			return av, err
		}
		av.Value = append(av.Value, seg)
	}
	if err := s.ListEnd(); err != nil {
		return av, err
	}

	if _, err := s.List(); err != nil {
		return av, err
	}
	for {
		if _, err := s.List(); errors.Is(err, rlp.EOL) {
			break
		} else if err != nil {
			return av, err
		}
		tag, err := s.Uint64()
		if err != nil {
			return av, err
		}
		length, err := s.Uint64()
		if err != nil {
			return av, err
		}
		if err := s.ListEnd(); err != nil {
			return av, err
		}
		av.Alignment = append(av.Alignment, ir.Atom{Tag: ir.AtomTag(tag), Length: int(length)})
	}
	if err := s.ListEnd(); err != nil {
		return av, err
	}

	if err := s.ListEnd(); err != nil {
		return av, err
	}
	return av, av.Validate()
}
