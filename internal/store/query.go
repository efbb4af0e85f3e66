package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/ledgerq/internal/ir"
)

// Predicate filters the calls of one instance.
//
// This is a sealed interface - only types in this package implement it.
// Predicates compile to parameterized SQL over the calls table; values are
// never interpolated.
//
// Predicate types:
//   - CircuitIs: circuit = value
//   - SeqRange: From <= seq <= To
//   - GasAtLeast: gas_cost >= value
//   - And: all predicates must be true
type Predicate interface {
	predicateNode()
}

// CircuitIs matches calls to one circuit.
type CircuitIs struct {
	Circuit string
}

func (CircuitIs) predicateNode() {}

// SeqRange matches calls with From <= seq <= To. A zero bound is open.
type SeqRange struct {
	From int64
	To   int64
}

func (SeqRange) predicateNode() {}

// GasAtLeast matches calls costing at least Gas.
type GasAtLeast struct {
	Gas uint64
}

func (GasAtLeast) predicateNode() {}

// And matches calls satisfying every predicate. An empty And matches all.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// QueryCalls returns the calls of instance matching p, in seq order. A nil
// p matches every call.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryCalls(ctx context.Context, instance string, p Predicate) ([]ir.CallRecord, error) {
	where, params, err := compilePredicate(p)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return s.queryCalls(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE instance = ? AND `+where+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, append([]any{instance}, params...)...)
}

// compilePredicate compiles p to a WHERE fragment and its parameters.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case CircuitIs:
		return "circuit = ?", []any{pred.Circuit}, nil
	case SeqRange:
		if pred.From < 0 || pred.To < 0 || (pred.To != 0 && pred.From > pred.To) {
			return "", nil, fmt.Errorf("invalid seq range [%d, %d]", pred.From, pred.To)
		}
		var parts []string
		var params []any
		if pred.From > 0 {
			parts = append(parts, "seq >= ?")
			params = append(params, pred.From)
		}
		if pred.To > 0 {
			parts = append(parts, "seq <= ?")
			params = append(params, pred.To)
		}
		if len(parts) == 0 {
			return "1 = 1", nil, nil
		}
		return strings.Join(parts, " AND "), params, nil
	case GasAtLeast:
		if pred.Gas > 1<<63-1 {
			return "", nil, fmt.Errorf("gas bound %d out of range", pred.Gas)
		}
		return "gas_cost >= ?", []any{int64(pred.Gas)}, nil
	case And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+sql+")")
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}
