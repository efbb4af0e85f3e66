package contract

import (
	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/state"
	"github.com/roach88/ledgerq/internal/vm"
)

// Field is a resolved ledger field.
type Field struct {
	Name  string
	Index int
	Type  codec.LedgerType

	// Initial is the starting value of cell fields.
	Initial codec.Value
}

// Key returns the root array key of the field.
func (f Field) Key() ir.AlignedValue { return state.IndexKey(f.Index) }

// IsMap reports whether the field is a map.
func (f Field) IsMap() bool { return f.Type.IsMap() }

func (f Field) path() []vm.PathEntry {
	return []vm.PathEntry{vm.ValueKey(f.Key())}
}

// InitProgram writes the initial value of f into an empty root slot.
func InitProgram(f Field) vm.Program {
	var value state.Value = state.NewMap()
	if !f.IsMap() {
		value = state.NewCell(codec.MustEncode(f.Type.Value, f.Initial))
	}
	return vm.Program{
		vm.Push{Value: state.NewCell(f.Key())},
		vm.Push{Value: value, Storage: true},
		vm.Ins{N: 1},
	}
}

// WriteProgram replaces the value of cell field f.
func WriteProgram(f Field, value ir.AlignedValue) vm.Program {
	return vm.Program{
		vm.Push{Value: state.NewCell(f.Key())},
		vm.Push{Value: state.NewCell(value), Storage: true},
		vm.Ins{N: 1},
	}
}

// ReadProgram reads cell field f.
func ReadProgram(f Field) vm.Program {
	return vm.Program{
		vm.Dup{N: 0},
		vm.Idx{Path: f.path()},
		vm.Popeq{},
	}
}

// InsertProgram sets key to value in map field f.
func InsertProgram(f Field, key, value ir.AlignedValue) vm.Program {
	return vm.Program{
		vm.Idx{Path: f.path(), PushPath: true},
		vm.Push{Value: state.NewCell(key)},
		vm.Push{Value: state.NewCell(value), Storage: true},
		vm.Ins{N: 1},
		vm.Ins{N: 1, Cached: true},
	}
}

// LookupProgram reads the value under key in map field f. An absent key
// fails with PATH_ERROR.
func LookupProgram(f Field, key ir.AlignedValue) vm.Program {
	return vm.Program{
		vm.Dup{N: 0},
		vm.Idx{Path: f.path()},
		vm.Idx{Path: []vm.PathEntry{vm.ValueKey(key)}},
		vm.Popeq{},
	}
}

// MemberProgram reads whether key is present in map field f.
func MemberProgram(f Field, key ir.AlignedValue) vm.Program {
	return vm.Program{
		vm.Dup{N: 0},
		vm.Idx{Path: f.path()},
		vm.Push{Value: state.NewCell(key)},
		vm.Member{},
		vm.Popeq{Cached: true},
	}
}

// SizeProgram reads the number of entries of map field f.
func SizeProgram(f Field) vm.Program {
	return vm.Program{
		vm.Dup{N: 0},
		vm.Idx{Path: f.path()},
		vm.Size{},
		vm.Popeq{Cached: true},
	}
}

// IsEmptyProgram reads whether map field f has no entries.
func IsEmptyProgram(f Field) vm.Program {
	return vm.Program{
		vm.Dup{N: 0},
		vm.Idx{Path: f.path()},
		vm.Size{},
		vm.Push{Value: state.NewCell(codec.MustEncode(codec.UintBits(64), codec.NewUint(0)))},
		vm.Eq{},
		vm.Popeq{Cached: true},
	}
}
