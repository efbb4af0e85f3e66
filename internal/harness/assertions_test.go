package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Circuit: "a"},
		{Circuit: "b", Error: "RANGE_ERROR"},
		{Seq: 2, Circuit: "b"},
		{Seq: 3, Circuit: "a"},
	}
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(trace(), Assertion{Circuit: "a", Count: 2}))
	assert.NoError(t, assertTraceCount(trace(), Assertion{Circuit: "b", Count: 1}), "rejected calls do not count")
	assert.NoError(t, assertTraceCount(trace(), Assertion{Circuit: "c", Count: 0}))

	err := assertTraceCount(trace(), Assertion{Circuit: "a", Count: 1})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceCount, ae.Type)
	assert.Equal(t, "2 committed calls", ae.Actual)
}

func TestAssertTraceOrder(t *testing.T) {
	assert.NoError(t, assertTraceOrder(trace(), Assertion{Circuits: []string{"a", "b"}}))

	err := assertTraceOrder(trace(), Assertion{Circuits: []string{"b", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b (pos 3) should be before a (pos 1)")

	err = assertTraceOrder(trace(), Assertion{Circuits: []string{"a", "c"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing circuit: c")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1",
		Actual:   "2",
		Trace:    trace(),
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 1")
	assert.Contains(t, msg, "Actual: 2")
	assert.Contains(t, msg, "[2] b [] RANGE_ERROR")
	assert.Contains(t, msg, "[3] b [] committed")
}

func TestEvaluateAssertions_LedgerNeedsEngine(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertLedgerSize, Field: "f"}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "ledger_size requires an engine")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: "bogus"}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "bogus"`)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
