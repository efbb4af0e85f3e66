package harness

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/roach88/ledgerq/internal/circuits"
	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/contract"
	"github.com/roach88/ledgerq/internal/engine"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/store"
	"github.com/roach88/ledgerq/internal/testutil"
)

// Harness runs one scenario against a fresh engine.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger zerolog.Logger
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger   zerolog.Logger
	registry *circuits.Registry
}

// WithLogger routes engine and contract logs to l. Default: discarded.
func WithLogger(l zerolog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithRegistry builds the scenario's contract from r. Default:
// circuits.Builtins.
func WithRegistry(r *circuits.Registry) Option {
	return func(c *runConfig) { c.registry = r }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with sequential call IDs,
// so the same scenario always produces the same trace.
//
// Execution flow:
// 1. Create fresh in-memory database and deploy the contract
// 2. Execute setup steps (each must succeed)
// 3. Execute flow steps, checking expect clauses
// 4. Evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = circuits.Builtins()
	}
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	c, err := cfg.registry.Build(scenario.Contract, contract.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(ctx, c,
		contract.ConstructorContext{
			InitialPrivateState:     scenario.PrivateState,
			InitialWalletLocalState: map[string]any{},
		},
		engine.WithStore(st),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator(scenario.IDPrefix)),
		engine.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", scenario.Contract, err)
	}

	h := &Harness{store: st, engine: eng, logger: cfg.logger}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	result.Ledger, err = eng.Ledger().Native()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	result.Head, err = eng.Head()
	if err != nil {
		return nil, err
	}

	actx := &AssertionContext{Engine: eng, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSetup runs the setup calls. Any failure aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []Step, result *Result) error {
	for i, step := range setup {
		ev, err := h.call(ctx, step)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Invoke, err)
		}
		result.AddTrace(ev)
		if msg := checkResult(h.engine.Contract(), step, ev); msg != "" {
			return fmt.Errorf("setup step %d: %s", i, msg)
		}
	}
	return nil
}

// executeFlow runs the flow calls and checks each against its expect clause.
// A call failing where success was expected, or the reverse, is a scenario
// failure, not a run error.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		ev, err := h.call(ctx, step)
		if err != nil {
			var re *ir.Error
			var rte *engine.RuntimeError
			if !errors.As(err, &re) && !errors.As(err, &rte) {
				return fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
			}
			ev = TraceEvent{Circuit: step.Invoke, Args: step.Args, Error: errorCode(err)}
		}
		result.AddTrace(ev)

		want := ""
		if step.Expect != nil {
			want = step.Expect.Error
		}
		switch {
		case want != "" && ev.Committed():
			result.AddError(fmt.Sprintf("flow[%d] %s: expected error %s, call committed", i, step.Invoke, want))
		case want != "" && ev.Error != want:
			result.AddError(fmt.Sprintf("flow[%d] %s: expected error %s, got %s (%v)", i, step.Invoke, want, ev.Error, err))
		case want == "" && !ev.Committed():
			result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, step.Invoke, err))
		case ev.Committed():
			if msg := checkResult(h.engine.Contract(), step, ev); msg != "" {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Invoke, msg))
			}
		}

		h.logger.Debug().
			Int("step", i).
			Str("circuit", step.Invoke).
			Str("call_id", ev.CallID).
			Str("error", ev.Error).
			Msg("flow step completed")
	}
	return nil
}

// call parses the step's arguments and invokes the circuit.
func (h *Harness) call(ctx context.Context, step Step) (TraceEvent, error) {
	args, err := h.engine.Contract().ParseArgs(step.Invoke, step.Args)
	if err != nil {
		return TraceEvent{}, err
	}
	out, err := h.engine.Invoke(ctx, step.Invoke, args...)
	if err != nil {
		return TraceEvent{}, err
	}
	canonical, err := out.ProofData.Canonical()
	if err != nil {
		return TraceEvent{}, err
	}

	native := make([]any, len(args))
	for i, a := range args {
		native[i] = codec.ToNative(a)
	}
	ev := TraceEvent{
		Seq:        out.Seq,
		CallID:     out.CallID,
		Circuit:    step.Invoke,
		Args:       native,
		PreRoot:    out.PreRoot,
		PostRoot:   out.PostRoot,
		GasCost:    out.GasCost,
		Commitment: out.Commitment,
		Transcript: canonical,
	}
	if out.Result != nil {
		ev.Result = codec.ToNative(out.Result)
	}
	return ev, nil
}

// checkResult compares a committed call's result with the expected one.
func checkResult(c *contract.Contract, step Step, ev TraceEvent) string {
	if step.Expect == nil || step.Expect.Result == nil {
		return ""
	}
	circuit, ok := c.Circuit(step.Invoke)
	if !ok || circuit.Result == nil {
		return "expected a result from a circuit returning unit"
	}
	want, err := codec.FromNative(circuit.Result, step.Expect.Result)
	if err != nil {
		return fmt.Sprintf("invalid expected result: %v", err)
	}
	if !reflect.DeepEqual(codec.ToNative(want), ev.Result) {
		return fmt.Sprintf("result %v, expected %v", ev.Result, codec.ToNative(want))
	}
	return ""
}

// errorCode returns the taxonomy code of err, or "ERROR".
func errorCode(err error) string {
	if code := ir.CodeOf(err); code != "" {
		return string(code)
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "ERROR"
}
