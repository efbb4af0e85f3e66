package engine

import "fmt"

// GasBudget caps the gas a single call may cost. A call over budget is
// rejected after execution and nothing is committed.
//
// The zero budget is unlimited.
type GasBudget struct {
	limit uint64
}

// NewGasBudget creates a budget of limit gas per call.
func NewGasBudget(limit uint64) GasBudget {
	return GasBudget{limit: limit}
}

// Check validates a call's cost against the budget.
func (b GasBudget) Check(instance, circuit string, cost uint64) error {
	if b.limit == 0 || cost <= b.limit {
		return nil
	}
	return &RuntimeError{
		Code:     ErrCodeGasExceeded,
		Message:  fmt.Sprintf("circuit %s cost %d gas, budget is %d", circuit, cost, b.limit),
		Instance: instance,
		Details: map[string]string{
			"gas_cost": fmt.Sprintf("%d", cost),
			"limit":    fmt.Sprintf("%d", b.limit),
		},
	}
}

// Limit returns the per-call limit, 0 meaning unlimited.
func (b GasBudget) Limit() uint64 {
	return b.limit
}
