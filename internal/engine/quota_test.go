package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGasBudget_ZeroIsUnlimited(t *testing.T) {
	b := NewGasBudget(0)
	assert.NoError(t, b.Check("inst", "c", 1<<40))
	assert.Equal(t, uint64(0), b.Limit())
}

func TestGasBudget_Boundary(t *testing.T) {
	b := NewGasBudget(100)
	assert.NoError(t, b.Check("inst", "c", 100), "cost equal to the limit is allowed")

	err := b.Check("inst", "c", 101)
	require.Error(t, err)
	assert.True(t, IsGasExceeded(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "101", re.Details["gas_cost"])
	assert.Equal(t, "100", re.Details["limit"])
	assert.Contains(t, re.Error(), "instance=inst")
}
