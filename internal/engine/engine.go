package engine

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/contract"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/state"
	"github.com/roach88/ledgerq/internal/store"
	"github.com/roach88/ledgerq/internal/transcript"
)

// Engine hosts one deployed contract instance.
//
// Calls are serialized: each runs against the last committed context and,
// on success, replaces it. A failed call commits nothing. With a store
// attached every committed call is appended to the call log before it
// becomes visible, so a crash never leaves the in-memory state ahead of the
// log.
//
// Thread-safety: all methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	contract *contract.Contract
	store    *store.Store
	clock    *Clock
	ids      IDGenerator
	budget   GasBudget
	logger   zerolog.Logger

	instance ir.Instance
	current  contract.CircuitContext
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore attaches a call log. Without one the engine keeps state in
// memory only and Replay is unavailable.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithIDGenerator sets the call ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithGasLimit rejects calls costing more than limit gas. 0 is unlimited.
func WithGasLimit(limit uint64) Option {
	return func(e *Engine) { e.budget = NewGasBudget(limit) }
}

// WithLogger sets the logger. Default: zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Outcome describes a committed call.
type Outcome struct {
	CallID string
	Seq    int64

	// Result is nil for circuits returning unit.
	Result    codec.Value
	ProofData transcript.ProofData
	GasCost   uint64

	PreRoot    string
	PostRoot   string
	Commitment string
	Digest     string
}

// New deploys c, or resumes it when the attached store already holds an
// instance at c's address.
//
// On resume the ledger state comes from the last committed call's snapshot
// and the clock continues from its seq. Private state is not persisted; it
// restarts from cc.InitialPrivateState.
func New(ctx context.Context, c *contract.Contract, cc contract.ConstructorContext, opts ...Option) (*Engine, error) {
	e := &Engine{
		contract: c,
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	initial, err := c.InitialState(cc)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	inst, err := describeInstance(c, initial)
	if err != nil {
		return nil, err
	}
	e.instance = inst
	e.current = initial
	e.logger = e.logger.With().Str("instance", inst.Address).Str("contract", inst.Contract).Logger()

	if e.store == nil {
		return e, nil
	}
	if err := e.attach(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func describeInstance(c *contract.Contract, initial contract.CircuitContext) (ir.Instance, error) {
	specHash, err := c.Spec().Hash()
	if err != nil {
		return ir.Instance{}, fmt.Errorf("spec hash: %w", err)
	}
	root, err := state.RootHash(initial.Transaction.State)
	if err != nil {
		return ir.Instance{}, fmt.Errorf("initial root: %w", err)
	}
	encoded, err := state.EncodeBinary(initial.Transaction.State)
	if err != nil {
		return ir.Instance{}, fmt.Errorf("initial state: %w", err)
	}
	return ir.Instance{
		Address:        c.Address().String(),
		Contract:       c.Spec().Name,
		SpecHash:       specHash,
		RuntimeVersion: c.Spec().RuntimeVersion,
		InitialRoot:    root,
		InitialState:   encoded,
	}, nil
}

// attach writes the instance record or resumes from the stored one.
func (e *Engine) attach(ctx context.Context) error {
	stored, err := e.store.ReadInstance(ctx, e.instance.Address)
	if errors.Is(err, sql.ErrNoRows) {
		if err := e.store.WriteInstance(ctx, e.instance); err != nil {
			return err
		}
		e.logger.Info().Str("root", e.instance.InitialRoot).Msg("instance deployed")
		return nil
	}
	if err != nil {
		return err
	}

	if stored.SpecHash != e.instance.SpecHash {
		return NewSpecMismatchError(stored.Address, stored.SpecHash, e.instance.SpecHash)
	}
	if stored.InitialRoot != e.instance.InitialRoot {
		return NewCorruptSnapshotError(stored.Address, "", stored.InitialRoot, e.instance.InitialRoot)
	}

	latest, ok, err := e.store.LatestCall(ctx, stored.Address)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Info().Msg("instance resumed with no calls")
		return nil
	}

	root, err := decodeSnapshot(stored.Address, latest.ID, latest.PostState, latest.PostRoot)
	if err != nil {
		return err
	}
	e.current.Transaction.State = root
	e.clock = NewClockAt(latest.Seq)
	e.logger.Info().Int64("seq", latest.Seq).Str("root", latest.PostRoot).Msg("instance resumed")
	return nil
}

// decodeSnapshot decodes a stored state and checks it against its root.
func decodeSnapshot(instance, callID string, data []byte, wantRoot string) (state.Value, error) {
	v, err := state.DecodeBinary(data)
	if err != nil {
		return nil, &RuntimeError{
			Code:     ErrCodeCorruptSnapshot,
			Message:  err.Error(),
			Instance: instance,
			CallID:   callID,
		}
	}
	got, err := state.RootHash(v)
	if err != nil {
		return nil, err
	}
	if got != wantRoot {
		return nil, NewCorruptSnapshotError(instance, callID, wantRoot, got)
	}
	return v, nil
}

// Invoke runs circuit against the committed context and commits the result.
func (e *Engine) Invoke(ctx context.Context, circuit string, args ...codec.Value) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	preRoot, err := state.RootHash(e.current.Transaction.State)
	if err != nil {
		return Outcome{}, err
	}

	res, err := e.contract.Call(e.current, circuit, args...)
	if err != nil {
		e.logFailure(circuit, err)
		return Outcome{}, err
	}
	if err := e.budget.Check(e.instance.Address, circuit, res.GasCost); err != nil {
		e.logFailure(circuit, err)
		return Outcome{}, err
	}

	rec, err := e.record(circuit, args, preRoot, res)
	if err != nil {
		return Outcome{}, err
	}
	if e.store != nil {
		if err := e.store.WriteCall(ctx, rec); err != nil {
			e.logFailure(circuit, err)
			return Outcome{}, err
		}
	}

	e.clock.Next()
	e.current = res.Context

	e.logger.Info().
		Str("call_id", rec.ID).
		Str("circuit", circuit).
		Int64("seq", rec.Seq).
		Uint64("gas", rec.GasCost).
		Str("root", rec.PostRoot).
		Msg("call committed")

	return Outcome{
		CallID:     rec.ID,
		Seq:        rec.Seq,
		Result:     res.Result,
		ProofData:  res.ProofData,
		GasCost:    res.GasCost,
		PreRoot:    rec.PreRoot,
		PostRoot:   rec.PostRoot,
		Commitment: rec.Commitment,
		Digest:     rec.Digest,
	}, nil
}

// InvokeNative parses native arguments (decimal strings, booleans, hex byte
// blocks, lists and objects) against the circuit's parameter types and
// invokes it.
func (e *Engine) InvokeNative(ctx context.Context, circuit string, raw []any) (Outcome, error) {
	args, err := e.contract.ParseArgs(circuit, raw)
	if err != nil {
		e.logFailure(circuit, err)
		return Outcome{}, err
	}
	return e.Invoke(ctx, circuit, args...)
}

// record builds the log entry for a successful call. The seq is the one the
// clock will issue on commit.
func (e *Engine) record(circuit string, args []codec.Value, preRoot string, res contract.CallResult) (ir.CallRecord, error) {
	postRoot, err := state.RootHash(res.Context.Transaction.State)
	if err != nil {
		return ir.CallRecord{}, err
	}
	postState, err := state.EncodeBinary(res.Context.Transaction.State)
	if err != nil {
		return ir.CallRecord{}, err
	}
	canonical, err := res.ProofData.Canonical()
	if err != nil {
		return ir.CallRecord{}, fmt.Errorf("transcript: %w", err)
	}
	commitment, err := res.ProofData.Commitment()
	if err != nil {
		return ir.CallRecord{}, err
	}

	seq := e.clock.Current() + 1
	digest, err := ir.CallDigest(preRoot, canonical, seq)
	if err != nil {
		return ir.CallRecord{}, err
	}

	native := make([]any, len(args))
	for i, a := range args {
		native[i] = codec.ToNative(a)
	}

	return ir.CallRecord{
		ID:         e.ids.Generate(),
		Instance:   e.instance.Address,
		Seq:        seq,
		Circuit:    circuit,
		Args:       native,
		PreRoot:    preRoot,
		PostRoot:   postRoot,
		PostState:  postState,
		Transcript: canonical,
		Commitment: hex.EncodeToString(commitment),
		GasCost:    res.GasCost,
		Digest:     digest,
	}, nil
}

func (e *Engine) logFailure(circuit string, err error) {
	ev := e.logger.Warn().Str("circuit", circuit).Err(err)
	if code := ir.CodeOf(err); code != "" {
		ev = ev.Str("code", string(code))
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		ev = ev.Str("code", string(re.Code))
	}
	ev.Msg("call rejected")
}

// Contract returns the hosted contract.
func (e *Engine) Contract() *contract.Contract { return e.contract }

// Instance returns the instance record.
func (e *Engine) Instance() ir.Instance { return e.instance }

// Context returns the committed context.
func (e *Engine) Context() contract.CircuitContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Ledger returns a read view over the committed state.
func (e *Engine) Ledger() *contract.Ledger {
	return e.contract.Ledger(e.Context().Transaction.State)
}

// Head returns the committed root hash.
func (e *Engine) Head() (string, error) {
	return state.RootHash(e.Context().Transaction.State)
}

// Seq returns the seq of the last committed call.
func (e *Engine) Seq() int64 { return e.clock.Current() }
