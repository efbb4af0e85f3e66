// Package circuits lists the contracts built into ledgerq. A contract's
// circuits are Go code, so the CLI and the scenario harness can only host
// contracts registered here.
package circuits

import (
	"fmt"
	"sort"

	"github.com/roach88/ledgerq/internal/circuits/nationality"
	"github.com/roach88/ledgerq/internal/contract"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/witness"
)

// Builtin is a contract with a Go implementation.
type Builtin struct {
	Name string

	// Spec compiles the contract descriptor.
	Spec func() (*ir.ContractSpec, error)

	// New builds the contract with the given witnesses.
	New func(witnesses witness.Set, opts ...contract.Option) (*contract.Contract, error)

	// Witnesses returns the default witness implementations.
	Witnesses func() witness.Set
}

// Registry maps contract names to their Go implementations. Hosts hold a
// Registry and pass it to whatever builds contracts.
type Registry struct {
	builtins map[string]Builtin
}

// NewRegistry creates a registry of the given contracts. Names must be
// non-empty and distinct.
func NewRegistry(contracts ...Builtin) (*Registry, error) {
	r := &Registry{builtins: make(map[string]Builtin, len(contracts))}
	for _, b := range contracts {
		if b.Name == "" || b.New == nil || b.Spec == nil || b.Witnesses == nil {
			return nil, fmt.Errorf("incomplete builtin %q", b.Name)
		}
		if _, dup := r.builtins[b.Name]; dup {
			return nil, fmt.Errorf("contract %q registered twice", b.Name)
		}
		r.builtins[b.Name] = b
	}
	return r, nil
}

// Builtins returns a new registry of the contracts shipped with ledgerq.
func Builtins() *Registry {
	return &Registry{builtins: map[string]Builtin{
		nationality.ContractName: {
			Name:      nationality.ContractName,
			Spec:      nationality.Spec,
			New:       nationality.New,
			Witnesses: nationality.DefaultWitnesses,
		},
	}}
}

// Lookup returns the contract named name.
func (r *Registry) Lookup(name string) (Builtin, bool) {
	b, ok := r.builtins[name]
	return b, ok
}

// Names returns the registered contract names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builtins))
	for name := range r.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build builds the contract named name with its default witnesses.
func (r *Registry) Build(name string, opts ...contract.Option) (*contract.Contract, error) {
	b, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown contract %q", name)
	}
	return b.New(b.Witnesses(), opts...)
}
