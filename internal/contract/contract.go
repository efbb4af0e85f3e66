package contract

import (
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/rs/zerolog"

	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/compiler"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/state"
	"github.com/roach88/ledgerq/internal/transcript"
	"github.com/roach88/ledgerq/internal/vm"
	"github.com/roach88/ledgerq/internal/witness"
)

// CircuitFunc implements a circuit. args have already been checked against
// the circuit's parameter types. A nil result means unit.
type CircuitFunc func(call *Call, args []codec.Value) (codec.Value, error)

// Circuit is a resolved circuit signature.
type Circuit struct {
	Name   string
	Params []codec.Type
	Names  []string

	// Result is nil for circuits returning unit.
	Result codec.Type
	Pure   bool
}

// Contract is a compiled contract bound to its implementation.
//
// A Contract holds no ledger state; state travels in CircuitContext values.
// Calls are not safe for concurrent use: hosts serialize calls to one
// contract instance.
type Contract struct {
	spec      *ir.ContractSpec
	registry  *codec.Registry
	fields    []Field
	circuits  map[string]Circuit
	order     []string
	impls     map[string]CircuitFunc
	witnesses *witness.Bridge
	interp    *vm.Interpreter
	address   ir.ContractAddress
	logger    zerolog.Logger
}

// Option configures a Contract.
type Option func(*Contract)

// WithInterpreter sets the interpreter used for queries.
// Default: vm.New() with the dummy cost model.
func WithInterpreter(in *vm.Interpreter) Option {
	return func(c *Contract) { c.interp = in }
}

// WithAddress sets the address of the instance. Default: the dummy address.
func WithAddress(addr ir.ContractAddress) Option {
	return func(c *Contract) { c.address = addr }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Contract) { c.logger = l }
}

// New binds spec to circuit implementations and witnesses.
//
// Construction fails with VERSION_MISMATCH if spec was compiled for an
// incompatible runtime or field bound, and with TYPE_MISMATCH if a declared
// witness or circuit has no implementation.
func New(spec *ir.ContractSpec, impls map[string]CircuitFunc, witnesses witness.Set, opts ...Option) (*Contract, error) {
	if spec == nil {
		return nil, errors.New("contract: nil spec")
	}
	if err := ir.CheckRuntimeVersion(spec.RuntimeVersion, ir.RuntimeVersion); err != nil {
		return nil, err
	}
	maxField, ok := new(big.Int).SetString(spec.MaxField, 10)
	if !ok {
		maxField = nil
	}
	if err := ir.CheckMaxField(maxField); err != nil {
		return nil, err
	}
	if errs := compiler.Validate(spec); len(errs) > 0 {
		return nil, fmt.Errorf("contract %s: %w", spec.Name, errs[0])
	}

	c := &Contract{
		spec:     spec,
		circuits: make(map[string]Circuit, len(spec.Circuits)),
		impls:    make(map[string]CircuitFunc, len(impls)),
		address:  ir.DummyContractAddress(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.interp == nil {
		c.interp = vm.New(vm.WithLogger(c.logger))
	}

	reg, err := compiler.BuildRegistry(spec)
	if err != nil {
		return nil, err
	}
	c.registry = reg

	if err := c.resolveFields(); err != nil {
		return nil, err
	}
	if err := c.resolveCircuits(impls); err != nil {
		return nil, err
	}

	decls := make([]witness.Decl, 0, len(spec.Witnesses))
	for _, w := range spec.Witnesses {
		t, err := codec.ParseType(w.Result, reg)
		if err != nil {
			return nil, fmt.Errorf("witness %s: %w", w.Name, err)
		}
		decls = append(decls, witness.Decl{Name: w.Name, Type: t})
	}
	if c.witnesses, err = witness.NewBridge(decls, witnesses, c.logger); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Contract) resolveFields() error {
	for _, lf := range c.spec.Ledger {
		f := Field{Name: lf.Name, Index: lf.Index}
		t, err := codec.ParseType(lf.Type, c.registry)
		if err != nil {
			return fmt.Errorf("ledger field %s: %w", lf.Name, err)
		}
		f.Type.Value = t
		if lf.Kind == ir.LedgerMap {
			if f.Type.Key, err = codec.ParseType(lf.KeyType, c.registry); err != nil {
				return fmt.Errorf("ledger field %s: %w", lf.Name, err)
			}
		} else {
			f.Initial = codec.Zero(t)
			if lf.Initial != "" {
				if f.Initial, err = codec.FromNative(t, lf.Initial); err != nil {
					return fmt.Errorf("ledger field %s: %w", lf.Name, err)
				}
			}
		}
		c.fields = append(c.fields, f)
	}
	slices.SortFunc(c.fields, func(a, b Field) int { return a.Index - b.Index })
	return nil
}

func (c *Contract) resolveCircuits(impls map[string]CircuitFunc) error {
	for _, cs := range c.spec.Circuits {
		circuit := Circuit{Name: cs.Name, Pure: cs.Pure}
		for _, p := range cs.Params {
			t, err := codec.ParseType(p.Type, c.registry)
			if err != nil {
				return fmt.Errorf("circuit %s: %w", cs.Name, err)
			}
			circuit.Params = append(circuit.Params, t)
			circuit.Names = append(circuit.Names, p.Name)
		}
		if cs.Result != "" {
			t, err := codec.ParseType(cs.Result, c.registry)
			if err != nil {
				return fmt.Errorf("circuit %s: %w", cs.Name, err)
			}
			circuit.Result = t
		}

		impl, ok := impls[cs.Name]
		if !ok || impl == nil {
			return &ir.Error{
				Code:     ir.ErrCodeTypeMismatch,
				Op:       "circuits",
				Message:  fmt.Sprintf("no implementation for circuit %s", cs.Name),
				Expected: "function",
				Actual:   "undefined",
			}
		}
		c.circuits[cs.Name] = circuit
		c.impls[cs.Name] = impl
		c.order = append(c.order, cs.Name)
	}
	for name := range impls {
		if _, ok := c.circuits[name]; !ok {
			return fmt.Errorf("implementation for undeclared circuit %s", name)
		}
	}
	return nil
}

// Spec returns the compiled descriptor.
func (c *Contract) Spec() *ir.ContractSpec { return c.spec }

// Registry returns the contract's struct registry.
func (c *Contract) Registry() *codec.Registry { return c.registry }

// Address returns the address of the instance.
func (c *Contract) Address() ir.ContractAddress { return c.address }

// Interpreter returns the interpreter used for queries.
func (c *Contract) Interpreter() *vm.Interpreter { return c.interp }

// Fields returns the ledger fields in slot order.
func (c *Contract) Fields() []Field { return slices.Clone(c.fields) }

// Circuits returns the circuit names in declaration order.
func (c *Contract) Circuits() []string { return slices.Clone(c.order) }

// Circuit returns the signature of the named circuit.
func (c *Contract) Circuit(name string) (Circuit, bool) {
	circuit, ok := c.circuits[name]
	return circuit, ok
}

// Witnesses returns the declared witness names.
func (c *Contract) Witnesses() []string { return c.witnesses.Names() }

// FieldByName returns the ledger field named name.
func (c *Contract) FieldByName(name string) (Field, bool) { return c.field(name) }

func (c *Contract) field(name string) (Field, bool) {
	for _, f := range c.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (c *Contract) mapField(op, name string) (Field, error) {
	f, ok := c.field(name)
	if !ok {
		return Field{}, fmt.Errorf("%s: no ledger field %s", op, name)
	}
	if !f.IsMap() {
		return Field{}, &ir.Error{Code: ir.ErrCodeTypeMismatch, Op: op, Arg: name, Expected: "map field", Actual: f.Type.String()}
	}
	return f, nil
}

// InitialState builds the initial ledger and returns the context of a fresh
// instance. The root is an Array with one slot per ledger field: maps start
// empty and cells hold their declared initial value.
func (c *Contract) InitialState(cc ConstructorContext) (CircuitContext, error) {
	slots := make([]state.Value, len(c.fields))
	for i := range slots {
		slots[i] = state.Null{}
	}
	qctx := vm.QueryContext{State: state.NewArray(slots...), Address: c.address}

	tb := transcript.NewBuilder(c.interp, qctx, ir.EmptyAligned(), c.logger)
	for _, f := range c.fields {
		if _, err := tb.Query(InitProgram(f)); err != nil {
			return CircuitContext{}, fmt.Errorf("initialize %s: %w", f.Name, err)
		}
	}

	root := tb.Context().State
	c.logger.Debug().Int("fields", len(c.fields)).Msg("initial state built")
	return CircuitContext{
		OriginalState:           root,
		CurrentPrivateState:     cc.InitialPrivateState,
		CurrentWalletLocalState: cc.InitialWalletLocalState,
		Transaction:             tb.Context(),
	}, nil
}

// Call invokes the named circuit with positional args.
//
// The caller's context is copied; on success the returned CallResult carries
// the updated copy and the completed transcript. On error nothing is
// returned and ctx remains the latest committed context.
func (c *Contract) Call(ctx CircuitContext, name string, args ...codec.Value) (CallResult, error) {
	circuit, ok := c.circuits[name]
	if !ok {
		return CallResult{}, fmt.Errorf("no circuit named %s", name)
	}
	if ctx.Transaction.State == nil {
		return CallResult{}, &ir.Error{
			Code:     ir.ErrCodeTypeMismatch,
			Op:       name,
			Arg:      "argument 1 (as invoked from Go)",
			Expected: "CircuitContext",
			Actual:   "context without transaction state",
		}
	}
	if len(args) != len(circuit.Params) {
		return CallResult{}, &ir.Error{
			Code:     ir.ErrCodeTypeMismatch,
			Op:       name,
			Message:  fmt.Sprintf("expected %d arguments (as invoked from Go), received %d", len(circuit.Params)+1, len(args)+1),
			Expected: fmt.Sprintf("%d arguments", len(circuit.Params)),
			Actual:   fmt.Sprintf("%d", len(args)),
		}
	}
	input, err := codec.EncodeArgs(name, circuit.Params, args)
	if err != nil {
		return CallResult{}, err
	}

	working := ctx
	tb := transcript.NewBuilder(c.interp, working.Transaction, input, c.logger)
	call := &Call{contract: c, tb: tb, private: working.CurrentPrivateState}

	result, err := c.impls[name](call, args)
	if err != nil {
		c.logger.Debug().Str("circuit", name).Err(err).Msg("circuit failed")
		return CallResult{}, fmt.Errorf("%s: %w", name, err)
	}

	output := ir.EmptyAligned()
	if circuit.Result != nil {
		if output, err = codec.Encode(circuit.Result, result); err != nil {
			return CallResult{}, ir.Annotate(err, name, "result")
		}
	} else {
		result = nil
	}

	proof, err := tb.Finish(output)
	if err != nil {
		return CallResult{}, err
	}

	working.Transaction = tb.Context()
	working.CurrentPrivateState = call.private
	return CallResult{
		Result:    result,
		Context:   working,
		ProofData: proof,
		GasCost:   tb.GasCost(),
	}, nil
}

// ParseArgs converts loosely typed arguments, as decoded from JSON or YAML,
// into values of the named circuit's parameter types.
func (c *Contract) ParseArgs(name string, raw []any) ([]codec.Value, error) {
	circuit, ok := c.circuits[name]
	if !ok {
		return nil, fmt.Errorf("no circuit named %s", name)
	}
	if len(raw) != len(circuit.Params) {
		return nil, &ir.Error{
			Code:     ir.ErrCodeTypeMismatch,
			Op:       name,
			Message:  "wrong number of arguments",
			Expected: fmt.Sprintf("%d arguments", len(circuit.Params)),
			Actual:   fmt.Sprintf("%d", len(raw)),
		}
	}
	args := make([]codec.Value, len(raw))
	for i, t := range circuit.Params {
		v, err := codec.FromNative(t, raw[i])
		if err != nil {
			return nil, ir.Annotate(err, name, codec.ArgPosition(i))
		}
		args[i] = v
	}
	return args, nil
}
