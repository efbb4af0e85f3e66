package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ledgerq/internal/circuits"
	"github.com/roach88/ledgerq/internal/ir"
)

// Scenario defines a conformance scenario: calls against a fresh instance of
// a builtin contract, followed by assertions on the trace and final ledger.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Contract is the builtin contract name.
	Contract string `yaml:"contract"`

	// PrivateState is the initial private state handed to witnesses.
	PrivateState string `yaml:"private_state,omitempty"`

	// IDPrefix prefixes the deterministic call IDs. Default: "call".
	IDPrefix string `yaml:"id_prefix,omitempty"`

	// Setup contains calls made before the flow. They must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the calls under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and ledger.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one circuit call.
type Step struct {
	// Invoke is the circuit name.
	Invoke string `yaml:"invoke"`

	// Args are the arguments in native form: integers as numbers or
	// decimal strings, byte blocks as 0x hex, vectors as lists, structs as
	// maps.
	Args []any `yaml:"args"`

	// Expect specifies the expected outcome. If nil the call must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a call.
type ExpectClause struct {
	// Result is the expected result in native form.
	Result any `yaml:"result,omitempty"`

	// Error is the expected error code, e.g. RANGE_ERROR. When set the
	// call must fail with that code.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final ledger.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Field is the ledger field (ledger_* assertions).
	Field string `yaml:"field,omitempty"`

	// Key is the map key in native form (ledger_lookup, ledger_member).
	Key any `yaml:"key,omitempty"`

	// Expect is the expected value in native form (ledger_lookup,
	// ledger_member, ledger_read).
	Expect any `yaml:"expect,omitempty"`

	// Circuit is the circuit name (trace_count).
	Circuit string `yaml:"circuit,omitempty"`

	// Count is the expected number (trace_count, ledger_size).
	Count int `yaml:"count,omitempty"`

	// Circuits is the expected commit order (trace_order).
	Circuits []string `yaml:"circuits,omitempty"`
}

// Assertion type constants.
const (
	AssertLedgerLookup = "ledger_lookup"
	AssertLedgerMember = "ledger_member"
	AssertLedgerSize   = "ledger_size"
	AssertLedgerRead   = "ledger_read"
	AssertTraceCount   = "trace_count"
	AssertTraceOrder   = "trace_order"
	AssertReplay       = "replay"
)

var errorCodes = map[string]bool{
	string(ir.ErrCodeTypeMismatch):        true,
	string(ir.ErrCodePath):                true,
	string(ir.ErrCodeRange):               true,
	string(ir.ErrCodeTranscriptInvariant): true,
	string(ir.ErrCodeVersionMismatch):     true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Contract == "" {
		return fmt.Errorf("contract is required")
	}
	builtins := circuits.Builtins()
	if _, ok := builtins.Lookup(s.Contract); !ok {
		return fmt.Errorf("unknown contract %q (builtin: %v)", s.Contract, builtins.Names())
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Invoke == "" {
			return fmt.Errorf("setup[%d]: invoke is required", i)
		}
		if step.Expect != nil && step.Expect.Error != "" {
			return fmt.Errorf("setup[%d]: setup calls cannot expect an error", i)
		}
	}
	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if step.Expect != nil && step.Expect.Error != "" {
			if !errorCodes[step.Expect.Error] {
				return fmt.Errorf("flow[%d].expect: unknown error code %q", i, step.Expect.Error)
			}
			if step.Expect.Result != nil {
				return fmt.Errorf("flow[%d].expect: result and error are exclusive", i)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertLedgerLookup, AssertLedgerMember:
		if a.Field == "" || a.Key == nil || a.Expect == nil {
			return fmt.Errorf("assertions[%d]: field, key and expect are required for %s", index, a.Type)
		}
	case AssertLedgerRead:
		if a.Field == "" || a.Expect == nil {
			return fmt.Errorf("assertions[%d]: field and expect are required for %s", index, a.Type)
		}
	case AssertLedgerSize:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertTraceCount:
		if a.Circuit == "" {
			return fmt.Errorf("assertions[%d]: circuit is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Circuits) == 0 {
			return fmt.Errorf("assertions[%d]: circuits list is required for trace_order", index)
		}
	case AssertReplay:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
