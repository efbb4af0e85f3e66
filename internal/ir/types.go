package ir

import (
	"encoding/json"
	"slices"
)

// ContractSpec represents a compiled contract descriptor.
//
// Type expressions (Field, Boolean, Bytes<32>, Uint<64>, Vector<2, Field>,
// Map<K, V>, struct names) are kept as strings here and resolved by the codec
// against a registry built from Structs.
type ContractSpec struct {
	Name           string        `json:"name"`
	RuntimeVersion string        `json:"runtime_version"`
	MaxField       string        `json:"max_field"` // decimal MAX_FIELD the contract was compiled with
	Structs        []StructSpec  `json:"structs"`
	Ledger         []LedgerField `json:"ledger"`
	Circuits       []CircuitSpec `json:"circuits"`
	Witnesses      []WitnessSpec `json:"witnesses"`
}

// StructSpec declares a named struct type.
type StructSpec struct {
	Name   string     `json:"name"`
	Fields []NamedArg `json:"fields"` // declaration order is encoding order
}

// LedgerKind is the state tree node kind of a ledger field.
type LedgerKind string

const (
	LedgerCell LedgerKind = "cell"
	LedgerMap  LedgerKind = "map"
)

// LedgerField declares a named, typed, persistent slot of the root Array.
type LedgerField struct {
	Name  string     `json:"name"`
	Index int        `json:"index"`
	Kind  LedgerKind `json:"kind"`

	// Type is the cell type (cell fields) or value type (map fields).
	Type string `json:"type"`

	// KeyType is the key type of map fields.
	KeyType string `json:"key_type,omitempty"`

	// Initial is the decimal initial value of numeric cell fields.
	Initial string `json:"initial,omitempty"`
}

// CircuitSpec declares an exported circuit.
type CircuitSpec struct {
	Name   string     `json:"name"`
	Params []NamedArg `json:"params"`
	Result string     `json:"result,omitempty"` // empty means unit
	Pure   bool       `json:"pure,omitempty"`
}

// WitnessSpec declares a caller-supplied private data provider.
type WitnessSpec struct {
	Name   string `json:"name"`
	Result string `json:"result"`
}

// NamedArg represents a named argument or struct field with type.
type NamedArg struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Circuit returns the circuit named name.
func (c *ContractSpec) Circuit(name string) (CircuitSpec, bool) {
	for _, circuit := range c.Circuits {
		if circuit.Name == name {
			return circuit, true
		}
	}
	return CircuitSpec{}, false
}

// Field returns the ledger field named name.
func (c *ContractSpec) Field(name string) (LedgerField, bool) {
	for _, field := range c.Ledger {
		if field.Name == name {
			return field, true
		}
	}
	return LedgerField{}, false
}

// Witness returns the witness named name.
func (c *ContractSpec) Witness(name string) (WitnessSpec, bool) {
	for _, w := range c.Witnesses {
		if w.Name == name {
			return w, true
		}
	}
	return WitnessSpec{}, false
}

// Canonical returns the RFC 8785 canonical JSON form of the descriptor.
// Absent lists encode as empty arrays.
func (c *ContractSpec) Canonical() ([]byte, error) {
	norm := *c
	norm.Structs = nonNil(norm.Structs)
	norm.Ledger = nonNil(norm.Ledger)
	norm.Circuits = nonNil(norm.Circuits)
	norm.Witnesses = nonNil(norm.Witnesses)
	for i := range norm.Structs {
		norm.Structs[i].Fields = nonNil(norm.Structs[i].Fields)
	}
	for i := range norm.Circuits {
		norm.Circuits[i].Params = nonNil(norm.Circuits[i].Params)
	}

	data, err := json.Marshal(norm)
	if err != nil {
		return nil, err
	}
	return Canonicalize(data)
}

// Hash returns the content-addressed identity of the descriptor: the
// domain-separated hash of its canonical JSON form.
func (c *ContractSpec) Hash() (string, error) {
	canonical, err := c.Canonical()
	if err != nil {
		return "", err
	}
	return HashHex(DomainContract, canonical), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}
