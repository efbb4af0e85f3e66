package vm

import (
	"encoding/binary"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/state"
)

// DefaultReadCacheSize bounds the per-query cache used by cached operations.
const DefaultReadCacheSize = 256

// QueryContext is the working state of one call: the current tree root and
// the address of the contract that owns it.
type QueryContext struct {
	State   state.Value
	Address ir.ContractAddress
}

// EventKind identifies an interpreter event.
type EventKind string

// EventRead is emitted by every popeq.
const EventRead EventKind = "read"

// Event records an observable outcome of a query.
type Event struct {
	Kind  EventKind
	Value ir.AlignedValue
}

// Results is the outcome of a successful query.
type Results struct {
	Context QueryContext
	Events  []Event
	GasCost uint64
}

// Reads returns the values of the read events, in order.
func (r Results) Reads() []ir.AlignedValue {
	var out []ir.AlignedValue
	for _, ev := range r.Events {
		if ev.Kind == EventRead {
			out = append(out, ev.Value)
		}
	}
	return out
}

// Interpreter executes programs. It holds no per-query state and is safe
// for concurrent use.
type Interpreter struct {
	costs     CostModel
	cacheSize int
	logger    zerolog.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithCostModel sets the pricing. Default: DummyCostModel.
func WithCostModel(c CostModel) Option {
	return func(in *Interpreter) { in.costs = c }
}

// WithReadCacheSize sets the per-query read cache size. Default:
// DefaultReadCacheSize.
func WithReadCacheSize(n int) Option {
	return func(in *Interpreter) { in.cacheSize = n }
}

// WithLogger sets the logger. Operations are logged at trace level.
func WithLogger(l zerolog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// New creates an Interpreter.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		costs:     DummyCostModel(),
		cacheSize: DefaultReadCacheSize,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// CostModel returns the interpreter's pricing.
func (in *Interpreter) CostModel() CostModel { return in.costs }

// entry is a stack slot. storage marks values that may be written into the
// tree by ins.
type entry struct {
	value   state.Value
	storage bool
}

type cacheKey struct {
	node state.Value
	key  string
}

type machine struct {
	in     *Interpreter
	ctx    QueryContext
	stack  []entry
	events []Event
	gas    uint64
	cache  *lru.Cache
}

// Run executes prog against ctx. ctx is not modified. On error no results
// are returned and every write made by the program is discarded.
func (in *Interpreter) Run(ctx QueryContext, prog Program) (Results, error) {
	m := &machine{
		in:    in,
		ctx:   ctx,
		stack: []entry{{value: ctx.State, storage: true}},
	}
	if in.cacheSize > 0 {
		cache, err := lru.New(in.cacheSize)
		if err != nil {
			return Results{}, fmt.Errorf("read cache: %w", err)
		}
		m.cache = cache
	}

	for i, op := range prog {
		if err := m.step(op); err != nil {
			return Results{}, fmt.Errorf("op %d (%s): %w", i, op.Name(), err)
		}
		in.logger.Trace().
			Int("op", i).
			Str("name", op.Name()).
			Int("depth", len(m.stack)).
			Msg("query step")
	}

	if len(m.stack) != 1 {
		return Results{}, &ir.Error{
			Code:     ir.ErrCodeTypeMismatch,
			Op:       "query",
			Message:  "program must leave exactly one value on the stack",
			Expected: "1",
			Actual:   fmt.Sprintf("%d", len(m.stack)),
		}
	}
	root := m.stack[0]
	if !root.storage {
		return Results{}, ir.NewTypeMismatch("storage value as new root", "operand")
	}

	return Results{
		Context: QueryContext{State: root.value, Address: ctx.Address},
		Events:  m.events,
		GasCost: m.gas,
	}, nil
}

func (m *machine) push(e entry) { m.stack = append(m.stack, e) }

func (m *machine) pop(op string) (entry, error) {
	if len(m.stack) == 0 {
		return entry{}, &ir.Error{Code: ir.ErrCodeTypeMismatch, Op: op, Message: "stack underflow"}
	}
	e := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return e, nil
}

func (m *machine) popCell(op string) (*state.Cell, error) {
	e, err := m.pop(op)
	if err != nil {
		return nil, err
	}
	cell, ok := e.value.(*state.Cell)
	if !ok {
		return nil, &ir.Error{Code: ir.ErrCodeTypeMismatch, Op: op, Expected: "cell", Actual: e.value.Kind().String()}
	}
	return cell, nil
}

func (m *machine) step(op Operation) error {
	costs := m.in.costs
	switch o := op.(type) {
	case Dup:
		if o.N < 0 || o.N >= len(m.stack) {
			return &ir.Error{Code: ir.ErrCodeTypeMismatch, Op: "dup", Message: fmt.Sprintf("depth %d exceeds stack of %d", o.N, len(m.stack))}
		}
		m.push(m.stack[len(m.stack)-1-o.N])
		m.gas += costs.Dup
	case Idx:
		return m.idx(o)
	case Push:
		if o.Value == nil {
			return &ir.Error{Code: ir.ErrCodeTypeMismatch, Op: "push", Message: "missing value"}
		}
		m.push(entry{value: o.Value, storage: o.Storage})
		m.gas += costs.Push
	case Ins:
		return m.ins(o)
	case Popeq:
		cell, err := m.popCell("popeq")
		if err != nil {
			return err
		}
		read := cell.Value()
		if o.Result != nil && !o.Result.Equal(read) {
			return ir.NewTranscriptViolation("popeq",
				fmt.Sprintf("read %s differs from recorded %s", read, *o.Result))
		}
		m.events = append(m.events, Event{Kind: EventRead, Value: read})
		m.gas += costs.Popeq
	case Size:
		e, err := m.pop("size")
		if err != nil {
			return err
		}
		n, err := state.Size(e.value)
		if err != nil {
			return ir.Annotate(err, "size", "")
		}
		m.push(entry{value: state.NewCell(sizeCell(uint64(n)))})
		m.gas += costs.Size
	case Member:
		key, err := m.popCell("member")
		if err != nil {
			return err
		}
		container, err := m.pop("member")
		if err != nil {
			return err
		}
		ok, err := state.Member(container.value, key.Value())
		if err != nil {
			return ir.Annotate(err, "member", "")
		}
		m.push(entry{value: state.NewCell(boolCell(ok))})
		m.gas += costs.Member
	case Eq:
		b, err := m.pop("eq")
		if err != nil {
			return err
		}
		a, err := m.pop("eq")
		if err != nil {
			return err
		}
		ok, err := state.Eq(a.value, b.value)
		if err != nil {
			return ir.Annotate(err, "eq", "")
		}
		m.push(entry{value: state.NewCell(boolCell(ok))})
		m.gas += costs.Eq
	default:
		return fmt.Errorf("unknown operation %T", op)
	}
	return nil
}

func (m *machine) idx(o Idx) error {
	for _, pe := range o.Path {
		key := pe.Key
		if pe.Stack {
			k, err := m.popCell("idx")
			if err != nil {
				return err
			}
			key = k.Value()
		}

		var container entry
		if len(m.stack) == 0 {
			container = entry{value: m.ctx.State, storage: true}
		} else {
			var err error
			if container, err = m.pop("idx"); err != nil {
				return err
			}
		}

		var (
			child state.Value
			warm  bool
		)
		if _, isNull := container.value.(state.Null); !isNull || !o.PushPath {
			var err error
			if child, warm, err = m.child(container.value, key, o.Cached); err != nil {
				return err
			}
		}
		m.gas += m.in.costs.read(warm)

		if child == nil {
			if !o.PushPath {
				return ir.NewPathError("idx", fmt.Sprintf("no entry %s", key))
			}
			child = pe.Default
			if child == nil {
				child = state.Null{}
			}
		}

		if o.PushPath {
			m.push(container)
			m.push(entry{value: state.NewCell(key)})
		}
		m.push(entry{value: child, storage: true})
	}
	return nil
}

// child looks up key in node, consulting the read cache for cached
// operations. It returns nil for an absent key.
func (m *machine) child(node state.Value, key ir.AlignedValue, cached bool) (state.Value, bool, error) {
	ck := cacheKey{node: node, key: key.Key()}
	if cached && m.cache != nil {
		if v, ok := m.cache.Get(ck); ok {
			return v.(state.Value), true, nil
		}
	}
	child, ok, err := state.Child(node, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	if m.cache != nil {
		m.cache.Add(ck, child)
	}
	return child, false, nil
}

func (m *machine) ins(o Ins) error {
	for i := 0; i < o.N; i++ {
		value, err := m.pop("ins")
		if err != nil {
			return err
		}
		if !value.storage {
			return &ir.Error{Code: ir.ErrCodeTypeMismatch, Op: "ins", Expected: "storage value", Actual: "operand"}
		}
		key, err := m.popCell("ins")
		if err != nil {
			return err
		}
		container, err := m.pop("ins")
		if err != nil {
			return err
		}
		target := container.value
		if _, isNull := target.(state.Null); isNull {
			target = state.NewMap()
		}
		updated, err := state.Insert(target, key.Value(), value.value)
		if err != nil {
			return err
		}
		m.gas += m.in.costs.write(o.Cached)
		m.push(entry{value: updated, storage: true})
	}
	return nil
}

// sizeCell encodes n as a Uint<64> value.
func sizeCell(n uint64) ir.AlignedValue {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	return ir.AlignedValue{
		Value:     [][]byte{ir.TrimSegment(buf[:])},
		Alignment: ir.Alignment{ir.BytesAtom(8)},
	}
}

func boolCell(b bool) ir.AlignedValue {
	seg := []byte{}
	if b {
		seg = []byte{1}
	}
	return ir.AlignedValue{Value: [][]byte{seg}, Alignment: ir.Alignment{ir.BitAtom()}}
}
