package state

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/ledgerq/internal/ir"
)

// Kind identifies a node kind.
type Kind uint8

const (
	KindNull Kind = iota
	KindCell
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindCell:
		return "cell"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Value is a sealed interface over state tree nodes.
// Only Null, *Cell, *Array and *Map implement it.
type Value interface {
	stateValue() // Sealed
	Kind() Kind
	String() string
}

// Null is the empty node.
type Null struct{}

func (Null) stateValue()    {}
func (Null) Kind() Kind     { return KindNull }
func (Null) String() string { return "null" }

// Cell is a leaf holding one encoded value.
type Cell struct {
	v ir.AlignedValue
}

func (*Cell) stateValue() {}
func (*Cell) Kind() Kind  { return KindCell }

// NewCell creates a cell holding a copy of v.
func NewCell(v ir.AlignedValue) *Cell {
	return &Cell{v: v.Clone()}
}

// Value returns a copy of the cell's encoded value.
func (c *Cell) Value() ir.AlignedValue { return c.v.Clone() }

func (c *Cell) String() string { return "cell" + c.v.String() }

// Array is a fixed-length sequence of children.
type Array struct {
	items []Value
}

func (*Array) stateValue() {}
func (*Array) Kind() Kind  { return KindArray }

// NewArray creates an array of the given children.
func NewArray(items ...Value) *Array {
	return &Array{items: append([]Value(nil), items...)}
}

// Len returns the number of children.
func (a *Array) Len() int { return len(a.items) }

// At returns the i-th child.
func (a *Array) At(i int) Value { return a.items[i] }

// Items returns a copy of the children.
func (a *Array) Items() []Value { return append([]Value(nil), a.items...) }

// With returns a new array with child i replaced. i must be in bounds.
func (a *Array) With(i int, v Value) *Array {
	items := append([]Value(nil), a.items...)
	items[i] = v
	return &Array{items: items}
}

func (a *Array) String() string {
	parts := make([]string, len(a.items))
	for i, item := range a.items {
		parts[i] = item.String()
	}
	return "array[" + strings.Join(parts, ", ") + "]"
}

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   ir.AlignedValue
	Value Value
}

type mapEntry struct {
	id    string
	key   ir.AlignedValue
	value Value
}

// Map associates encoded keys with children.
type Map struct {
	entries []mapEntry // sorted by id
}

func (*Map) stateValue() {}
func (*Map) Kind() Kind  { return KindMap }

// NewMap creates an empty map.
func NewMap() *Map { return &Map{} }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

func (m *Map) search(id string) (int, bool) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].id >= id })
	return i, i < len(m.entries) && m.entries[i].id == id
}

// Get returns the child under key.
func (m *Map) Get(key ir.AlignedValue) (Value, bool) {
	i, ok := m.search(key.Key())
	if !ok {
		return nil, false
	}
	return m.entries[i].value, true
}

// Has reports whether key is present.
func (m *Map) Has(key ir.AlignedValue) bool {
	_, ok := m.search(key.Key())
	return ok
}

// With returns a new map with key set to v.
func (m *Map) With(key ir.AlignedValue, v Value) *Map {
	id := key.Key()
	i, ok := m.search(id)
	entries := make([]mapEntry, 0, len(m.entries)+1)
	entries = append(entries, m.entries[:i]...)
	entries = append(entries, mapEntry{id: id, key: key.Clone(), value: v})
	if ok {
		i++
	}
	entries = append(entries, m.entries[i:]...)
	return &Map{entries: entries}
}

// Without returns a new map with key removed.
func (m *Map) Without(key ir.AlignedValue) *Map {
	i, ok := m.search(key.Key())
	if !ok {
		return m
	}
	entries := make([]mapEntry, 0, len(m.entries)-1)
	entries = append(entries, m.entries[:i]...)
	entries = append(entries, m.entries[i+1:]...)
	return &Map{entries: entries}
}

// Entries returns the entries in key order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = Entry{Key: e.key.Clone(), Value: e.value}
	}
	return out
}

func (m *Map) String() string {
	parts := make([]string, len(m.entries))
	for i, e := range m.entries {
		parts[i] = e.key.String() + ": " + e.value.String()
	}
	return "map{" + strings.Join(parts, ", ") + "}"
}
