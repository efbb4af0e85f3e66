package vm

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/state"
)

// Operation is a sealed interface over interpreter operations.
// Only Dup, Idx, Push, Ins, Popeq, Size, Member and Eq implement it.
type Operation interface {
	operation() // Sealed
	Name() string
}

// Dup pushes a copy of the entry N places below the top (0 is the top).
type Dup struct {
	N int
}

// PathEntry is one segment of an Idx path: a literal key, or a key popped
// from the stack when Stack is set.
type PathEntry struct {
	Stack bool
	Key   ir.AlignedValue

	// Default is materialized for an absent key when the path is pushed.
	// Nil means Null.
	Default state.Value
}

// Idx descends from the top node along Path. With PushPath, every step
// leaves container, key and child on the stack so a later Ins can write the
// child back; otherwise the container is replaced by the child.
type Idx struct {
	Path     []PathEntry
	PushPath bool
	Cached   bool
}

// Push places a literal on the stack. Storage marks it as a durable value
// that Ins may write into the tree; otherwise it is an operand only.
type Push struct {
	Value   state.Value
	Storage bool
}

// Ins performs N write-back steps. Each pops value, key and container,
// inserts the value, and pushes the updated container.
type Ins struct {
	N      int
	Cached bool
}

// Popeq pops a cell and emits it as a read event. Result holds the value
// read; when it is set before execution the read must match it.
type Popeq struct {
	Cached bool
	Result *ir.AlignedValue
}

// Size pops an array or map and pushes its length as a Uint<64> cell.
type Size struct{}

// Member pops a key and a container and pushes whether the key is present.
type Member struct{}

// Eq pops two entries and pushes whether they are equal.
type Eq struct{}

func (Dup) operation()    {}
func (Idx) operation()    {}
func (Push) operation()   {}
func (Ins) operation()    {}
func (Popeq) operation()  {}
func (Size) operation()   {}
func (Member) operation() {}
func (Eq) operation()     {}

func (Dup) Name() string    { return "dup" }
func (Idx) Name() string    { return "idx" }
func (Push) Name() string   { return "push" }
func (Ins) Name() string    { return "ins" }
func (Popeq) Name() string  { return "popeq" }
func (Size) Name() string   { return "size" }
func (Member) Name() string { return "member" }
func (Eq) Name() string     { return "eq" }

// ValueKey is a literal path entry.
func ValueKey(key ir.AlignedValue) PathEntry { return PathEntry{Key: key} }

// StackKey is a path entry whose key is popped from the stack.
func StackKey() PathEntry { return PathEntry{Stack: true} }

// Program is an ordered list of operations.
type Program []Operation

// Clone returns a copy of the program. Popeq results are copied so the
// clone can be filled independently.
func (p Program) Clone() Program {
	out := make(Program, len(p))
	for i, op := range p {
		if pe, ok := op.(Popeq); ok && pe.Result != nil {
			r := pe.Result.Clone()
			pe.Result = &r
			op = pe
		}
		out[i] = op
	}
	return out
}

// JSON forms. Nullary operations are bare strings; the rest are single-key
// objects named by the operation:
//
//	"size"
//	{"dup":{"n":0}}
//	{"idx":{"cached":false,"pushPath":true,"path":[{"tag":"value","value":...}]}}
//	{"push":{"storage":true,"value":<state>}}
//	{"ins":{"cached":false,"n":1}}
//	{"popeq":{"cached":false,"result":<aligned or null>}}

type pathEntryJSON struct {
	Tag     string           `json:"tag"`
	Value   *ir.AlignedValue `json:"value,omitempty"`
	Default json.RawMessage  `json:"default,omitempty"`
}

type idxJSON struct {
	Cached   bool            `json:"cached"`
	PushPath bool            `json:"pushPath"`
	Path     []pathEntryJSON `json:"path"`
}

type pushJSON struct {
	Storage bool            `json:"storage"`
	Value   json.RawMessage `json:"value"`
}

type insJSON struct {
	Cached bool `json:"cached"`
	N      int  `json:"n"`
}

type popeqJSON struct {
	Cached bool             `json:"cached"`
	Result *ir.AlignedValue `json:"result"`
}

type dupJSON struct {
	N int `json:"n"`
}

// MarshalOperation returns the JSON form of op.
func MarshalOperation(op Operation) ([]byte, error) {
	var body any
	switch o := op.(type) {
	case Size, Member, Eq:
		return json.Marshal(o.Name())
	case Dup:
		body = dupJSON{N: o.N}
	case Idx:
		path := make([]pathEntryJSON, len(o.Path))
		for i, pe := range o.Path {
			if pe.Stack {
				path[i] = pathEntryJSON{Tag: "stack"}
				continue
			}
			key := pe.Key
			path[i] = pathEntryJSON{Tag: "value", Value: &key}
			if pe.Default != nil {
				def, err := json.Marshal(pe.Default)
				if err != nil {
					return nil, err
				}
				path[i].Default = def
			}
		}
		body = idxJSON{Cached: o.Cached, PushPath: o.PushPath, Path: path}
	case Push:
		value, err := json.Marshal(o.Value)
		if err != nil {
			return nil, err
		}
		body = pushJSON{Storage: o.Storage, Value: value}
	case Ins:
		body = insJSON{Cached: o.Cached, N: o.N}
	case Popeq:
		body = popeqJSON{Cached: o.Cached, Result: o.Result}
	default:
		return nil, fmt.Errorf("unknown operation %T", op)
	}
	return json.Marshal(map[string]any{op.Name(): body})
}

// UnmarshalOperation parses the JSON form of an operation.
func UnmarshalOperation(data []byte) (Operation, error) {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		switch name {
		case "size":
			return Size{}, nil
		case "member":
			return Member{}, nil
		case "eq":
			return Eq{}, nil
		default:
			return nil, fmt.Errorf("unknown operation %q", name)
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("operation: %w", err)
	}
	if len(obj) != 1 {
		return nil, fmt.Errorf("operation must have exactly one key, got %d", len(obj))
	}
	for key, body := range obj {
		return unmarshalBody(key, body)
	}
	return nil, fmt.Errorf("empty operation")
}

func unmarshalBody(name string, body json.RawMessage) (Operation, error) {
	switch name {
	case "dup":
		var raw dupJSON
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		return Dup{N: raw.N}, nil
	case "idx":
		var raw idxJSON
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		op := Idx{Cached: raw.Cached, PushPath: raw.PushPath, Path: make([]PathEntry, len(raw.Path))}
		for i, pe := range raw.Path {
			switch pe.Tag {
			case "stack":
				op.Path[i] = StackKey()
			case "value":
				if pe.Value == nil {
					return nil, fmt.Errorf("idx: path entry %d has no value", i)
				}
				op.Path[i] = ValueKey(*pe.Value)
				if len(pe.Default) > 0 {
					def, err := state.UnmarshalJSON(pe.Default)
					if err != nil {
						return nil, err
					}
					op.Path[i].Default = def
				}
			default:
				return nil, fmt.Errorf("idx: unknown path entry tag %q", pe.Tag)
			}
		}
		return op, nil
	case "push":
		var raw pushJSON
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		v, err := state.UnmarshalJSON(raw.Value)
		if err != nil {
			return nil, err
		}
		return Push{Value: v, Storage: raw.Storage}, nil
	case "ins":
		var raw insJSON
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		return Ins{N: raw.N, Cached: raw.Cached}, nil
	case "popeq":
		var raw popeqJSON
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		return Popeq{Cached: raw.Cached, Result: raw.Result}, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", name)
	}
}

// MarshalJSON implements json.Marshaler for Program.
func (p Program) MarshalJSON() ([]byte, error) {
	ops := make([]json.RawMessage, len(p))
	for i, op := range p {
		data, err := MarshalOperation(op)
		if err != nil {
			return nil, err
		}
		ops[i] = data
	}
	return json.Marshal(ops)
}

// UnmarshalJSON implements json.Unmarshaler for Program.
func (p *Program) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Program, len(raw))
	for i, item := range raw {
		op, err := UnmarshalOperation(item)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		out[i] = op
	}
	*p = out
	return nil
}
