package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			status := "committed"
			if !ev.Committed() {
				status = ev.Error
			}
			fmt.Fprintf(&buf, "  [%d] %s %v %s\n", i+1, ev.Circuit, ev.Args, status)
		}
	}
	return buf.String()
}

// AssertionContext provides the engine for ledger and replay assertions.
type AssertionContext struct {
	Engine *engine.Engine
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertLedgerLookup, AssertLedgerMember, AssertLedgerSize, AssertLedgerRead, AssertReplay:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: %s requires an engine", i, a.Type)
				break
			}
			err = assertEngine(actx, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertTraceCount checks how many committed calls went to a circuit.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Committed() && ev.Circuit == a.Circuit {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d committed calls to %s", a.Count, a.Circuit),
			Actual:   fmt.Sprintf("%d committed calls", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the circuits were first committed in the
// given order. Intervening calls are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if !ev.Committed() {
			continue
		}
		if _, seen := positions[ev.Circuit]; !seen {
			positions[ev.Circuit] = i + 1
		}
	}

	for _, circuit := range a.Circuits {
		if positions[circuit] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all circuits committed: %v", a.Circuits),
				Actual:   fmt.Sprintf("missing circuit: %s", circuit),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Circuits); i++ {
		prev, curr := a.Circuits[i-1], a.Circuits[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("circuits in order: %v", a.Circuits),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertEngine evaluates assertions against the committed ledger.
func assertEngine(actx *AssertionContext, a Assertion) error {
	if a.Type == AssertReplay {
		report, err := actx.Engine.Replay(actx.Ctx)
		if err != nil {
			return err
		}
		if !report.OK() {
			return &AssertionError{
				Type:     AssertReplay,
				Expected: "every call replays to its recorded root",
				Actual:   fmt.Sprintf("%d mismatches: %v", len(report.Mismatches), report.Mismatches),
			}
		}
		return nil
	}

	c := actx.Engine.Contract()
	f, ok := c.FieldByName(a.Field)
	if !ok {
		return fmt.Errorf("%s: unknown ledger field %q", a.Type, a.Field)
	}
	l := actx.Engine.Ledger()

	switch a.Type {
	case AssertLedgerSize:
		n, err := l.Size(a.Field)
		if err != nil {
			return err
		}
		if n != uint64(a.Count) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s has %d entries", a.Field, a.Count),
				Actual:   fmt.Sprintf("%d entries", n),
			}
		}
		return nil

	case AssertLedgerRead:
		v, err := l.Read(a.Field)
		if err != nil {
			return err
		}
		return compareNative(a, f.Type.Value, codec.ToNative(v))

	case AssertLedgerMember, AssertLedgerLookup:
		if !f.IsMap() {
			return fmt.Errorf("%s: ledger field %q is not a map", a.Type, a.Field)
		}
		key, err := codec.FromNative(f.Type.Key, a.Key)
		if err != nil {
			return fmt.Errorf("%s: key: %w", a.Type, err)
		}
		if a.Type == AssertLedgerMember {
			member, err := l.Member(a.Field, key)
			if err != nil {
				return err
			}
			return compareNative(a, codec.BooleanType{}, member)
		}
		v, err := l.Lookup(a.Field, key)
		if err != nil {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s[%v] = %v", a.Field, a.Key, a.Expect),
				Actual:   err.Error(),
			}
		}
		return compareNative(a, f.Type.Value, codec.ToNative(v))
	}
	return nil
}

// compareNative checks actual against the assertion's expected value,
// normalized through type t.
func compareNative(a Assertion, t codec.Type, actual any) error {
	want, err := codec.FromNative(t, a.Expect)
	if err != nil {
		return fmt.Errorf("%s: expect: %w", a.Type, err)
	}
	if !reflect.DeepEqual(codec.ToNative(want), actual) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %v", a.Field, codec.ToNative(want)),
			Actual:   fmt.Sprintf("%v", actual),
		}
	}
	return nil
}
