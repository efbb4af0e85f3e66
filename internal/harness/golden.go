package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ledgerq/internal/ir"
)

// Snapshot captures a scenario run for golden comparison: every call with
// its roots and full transcript, and the final ledger.
type Snapshot struct {
	ScenarioName string
	Contract     string
	Trace        []TraceEvent
	Ledger       map[string]any
	Head         string
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(scenario *Scenario, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: scenario.Name,
		Contract:     scenario.Contract,
		Trace:        result.Trace,
		Ledger:       result.Ledger,
		Head:         result.Head,
	}
}

// toCanonicalMap converts the snapshot to plain data for canonical JSON.
func (s Snapshot) toCanonicalMap() (map[string]any, error) {
	calls := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		call := map[string]any{
			"circuit": ev.Circuit,
			"args":    nonNilArgs(ev.Args),
		}
		if !ev.Committed() {
			call["error"] = ev.Error
			calls[i] = call
			continue
		}
		call["seq"] = ev.Seq
		call["call_id"] = ev.CallID
		call["pre_root"] = ev.PreRoot
		call["post_root"] = ev.PostRoot
		call["gas_cost"] = ev.GasCost
		call["commitment"] = ev.Commitment
		if ev.Result != nil {
			call["result"] = ev.Result
		}
		if len(ev.Transcript) > 0 {
			var tr any
			dec := json.NewDecoder(bytes.NewReader(ev.Transcript))
			dec.UseNumber()
			if err := dec.Decode(&tr); err != nil {
				return nil, err
			}
			call["transcript"] = tr
		}
		calls[i] = call
	}

	out := map[string]any{
		"scenario_name": s.ScenarioName,
		"contract":      s.Contract,
		"calls":         calls,
		"head":          s.Head,
	}
	if s.Ledger != nil {
		out["ledger"] = s.Ledger
	}
	return out, nil
}

func nonNilArgs(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

// Canonical returns the RFC 8785 form of the snapshot.
func (s Snapshot) Canonical() ([]byte, error) {
	m, err := s.toCanonicalMap()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(m)
}

// RunWithGolden executes a scenario and compares its snapshot against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// opts are passed to goldie after the defaults, so a test may redirect the
// fixture directory.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result, opts...); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := NewSnapshot(scenario, result).Canonical()
	if err != nil {
		return err
	}
	g := goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
	g.Assert(t, scenario.Name, data)
	return nil
}
