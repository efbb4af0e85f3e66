package codec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Registry resolves struct names in type expressions. A Registry belongs to
// one contract; there is no package-level registry.
type Registry struct {
	structs map[string]*StructType
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{structs: make(map[string]*StructType)}
}

// Register adds a struct type. Names must be unique.
func (r *Registry) Register(st *StructType) error {
	if st.Name == "" {
		return fmt.Errorf("struct type has no name")
	}
	if _, exists := r.structs[st.Name]; exists {
		return fmt.Errorf("struct %s already registered", st.Name)
	}
	r.structs[st.Name] = st
	r.order = append(r.order, st.Name)
	return nil
}

// Struct returns the struct type registered under name.
func (r *Registry) Struct(name string) (*StructType, bool) {
	if r == nil {
		return nil, false
	}
	st, ok := r.structs[name]
	return st, ok
}

// Structs returns registered struct types in registration order.
func (r *Registry) Structs() []*StructType {
	out := make([]*StructType, len(r.order))
	for i, name := range r.order {
		out[i] = r.structs[name]
	}
	return out
}

// LedgerType is the type of a ledger field: a Cell holding Value, or a Map
// from Key to Value when Key is non-nil.
type LedgerType struct {
	Key   Type
	Value Type
}

// IsMap reports whether the field is a map.
func (l LedgerType) IsMap() bool { return l.Key != nil }

func (l LedgerType) String() string {
	if l.IsMap() {
		return fmt.Sprintf("Map<%s, %s>", l.Key, l.Value)
	}
	return l.Value.String()
}

// ParseType parses a type expression such as "Field", "Bytes<32>",
// "Uint<64>", "Uint<0..255>", "Vector<2, Field>" or a registered struct name.
func ParseType(expr string, reg *Registry) (Type, error) {
	p := &typeParser{src: expr, reg: reg}
	node, err := p.parse()
	if err != nil {
		return nil, err
	}
	return p.resolve(node)
}

// ParseLedgerType parses a ledger field type, which may additionally be
// "Map<K, V>".
func ParseLedgerType(expr string, reg *Registry) (LedgerType, error) {
	p := &typeParser{src: expr, reg: reg}
	node, err := p.parse()
	if err != nil {
		return LedgerType{}, err
	}
	if node.name != "Map" {
		t, err := p.resolve(node)
		return LedgerType{Value: t}, err
	}
	if len(node.args) != 2 {
		return LedgerType{}, fmt.Errorf("%s: Map takes 2 type arguments", expr)
	}
	key, err := p.resolve(node.args[0])
	if err != nil {
		return LedgerType{}, err
	}
	val, err := p.resolve(node.args[1])
	if err != nil {
		return LedgerType{}, err
	}
	return LedgerType{Key: key, Value: val}, nil
}

// typeNode is a parsed but unresolved type expression: a name with optional
// angle-bracketed arguments. Numeric arguments have an empty args list.
type typeNode struct {
	name string
	args []typeNode
}

type typeParser struct {
	src string
	pos int
	reg *Registry
}

func (p *typeParser) parse() (typeNode, error) {
	n, err := p.node()
	if err != nil {
		return typeNode{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return typeNode{}, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return n, nil
}

func (p *typeParser) node() (typeNode, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			break
		}
		p.pos++
	}
	if start == p.pos {
		return typeNode{}, p.errorf("expected type name")
	}
	n := typeNode{name: p.src[start:p.pos]}

	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '<' {
		return n, nil
	}
	p.pos++
	for {
		arg, err := p.node()
		if err != nil {
			return typeNode{}, err
		}
		n.args = append(n.args, arg)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return typeNode{}, p.errorf("unterminated type arguments")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return n, nil
		default:
			return typeNode{}, p.errorf("unexpected %q", p.src[p.pos])
		}
	}
}

func (p *typeParser) resolve(n typeNode) (Type, error) {
	switch n.name {
	case "Field":
		return FieldType{}, p.arity(n, 0)
	case "Boolean":
		return BooleanType{}, p.arity(n, 0)
	case "Bytes":
		if err := p.arity(n, 1); err != nil {
			return nil, err
		}
		size, err := p.int(n.args[0])
		if err != nil {
			return nil, err
		}
		return BytesType{Length: size}, nil
	case "Uint":
		if err := p.arity(n, 1); err != nil {
			return nil, err
		}
		return p.uint(n.args[0])
	case "Vector":
		if err := p.arity(n, 2); err != nil {
			return nil, err
		}
		size, err := p.int(n.args[0])
		if err != nil {
			return nil, err
		}
		elem, err := p.resolve(n.args[1])
		if err != nil {
			return nil, err
		}
		return VectorType{Length: size, Elem: elem}, nil
	case "Map":
		return nil, p.errorf("Map is only valid as a ledger field type")
	}
	if len(n.args) == 0 {
		if st, ok := p.reg.Struct(n.name); ok {
			return st, nil
		}
	}
	return nil, p.errorf("unknown type %s", n.name)
}

func (p *typeParser) arity(n typeNode, want int) error {
	if len(n.args) != want {
		return p.errorf("%s takes %d type arguments, got %d", n.name, want, len(n.args))
	}
	return nil
}

func (p *typeParser) int(n typeNode) (int, error) {
	v, err := strconv.Atoi(n.name)
	if err != nil || v < 0 || len(n.args) != 0 {
		return 0, p.errorf("expected size, got %s", n.name)
	}
	return v, nil
}

func (p *typeParser) uint(n typeNode) (Type, error) {
	if lo, hi, ok := strings.Cut(n.name, ".."); ok {
		if lo != "0" {
			return nil, p.errorf("Uint range must start at 0, got %s", lo)
		}
		var t UintType
		if err := t.Max.SetFromDecimal(hi); err != nil {
			return nil, p.errorf("invalid Uint bound %s: %v", hi, err)
		}
		return t, nil
	}
	bits, err := p.int(n)
	if err != nil {
		return nil, err
	}
	if bits < 1 || bits > 256 {
		return nil, p.errorf("Uint width %d out of range [1, 256]", bits)
	}
	if bits == 256 {
		var t UintType
		t.Max.SetAllOne()
		return t, nil
	}
	return UintBits(uint(bits)), nil
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q: %s", p.src, fmt.Sprintf(format, args...))
}
