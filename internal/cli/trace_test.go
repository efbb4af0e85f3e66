package cli

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerq/internal/circuits/nationality"
	"github.com/roach88/ledgerq/internal/ir"
)

// seedCalls commits test_verification followed by two recordings.
func seedCalls(t *testing.T, db string) {
	t.Helper()
	_, _, err := run(t, "invoke", nationality.TestVerification, "--db", db)
	require.NoError(t, err)
	for _, subject := range []int{1, 2} {
		_, _, err = run(t, "invoke", nationality.VerifyAndRecord, "--db", db,
			"--args", credentialArgs(subject, "1677609600"))
		require.NoError(t, err)
	}
}

func TestTrace_Timeline(t *testing.T) {
	db := tempDB(t)
	seedCalls(t, db)

	resp, err := runJSON(t, "trace", "--db", db)
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, resp, &result)
	assert.Equal(t, ir.DummyContractAddress().String(), result.Instance)
	require.Len(t, result.Timeline, 3)
	for i, c := range result.Timeline {
		assert.Equal(t, int64(i+1), c.Seq)
		assert.Empty(t, c.Transcript)
		if i > 0 {
			assert.Equal(t, result.Timeline[i-1].PostRoot, c.PreRoot)
		}
	}
	assert.Equal(t, nationality.TestVerification, result.Timeline[0].Circuit)
	assert.Equal(t, []any{}, result.Timeline[0].Args)
	assert.Equal(t, "1677609600", result.Timeline[1].Args[1])

	assert.Equal(t, 3, result.Stats.Calls)
	assert.Equal(t, map[string]int{nationality.TestVerification: 1, nationality.VerifyAndRecord: 2}, result.Stats.ByCircuit)
	var gas uint64
	for _, c := range result.Timeline {
		gas += c.GasCost
	}
	assert.Equal(t, gas, result.Stats.TotalGas)
}

func TestTrace_CircuitFilterAndTranscript(t *testing.T) {
	db := tempDB(t)
	seedCalls(t, db)

	resp, err := runJSON(t, "trace", "--db", db, "--circuit", nationality.TestVerification, "--transcript")
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, resp, &result)
	require.Len(t, result.Timeline, 1)
	require.NotEmpty(t, result.Timeline[0].Transcript)

	var transcript map[string]any
	require.NoError(t, json.Unmarshal(result.Timeline[0].Transcript, &transcript))
	assert.Contains(t, transcript, "publicTranscript")
}

func TestTrace_Text(t *testing.T) {
	db := tempDB(t)

	out, _, err := run(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No calls recorded")

	seedCalls(t, db)
	out, _, err = run(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "[1] test_verification []")
	assert.Contains(t, out, "3 call(s)")
	assert.Contains(t, out, "  verify_and_record_nationality: 2")
}

func TestTrace_SeqAndGasFilter(t *testing.T) {
	db := tempDB(t)
	seedCalls(t, db)

	resp, err := runJSON(t, "trace", "--db", db, "--from", "2", "--to", "3")
	require.NoError(t, err)
	var result TraceResult
	decodeData(t, resp, &result)
	require.Len(t, result.Timeline, 2)
	assert.Equal(t, int64(2), result.Timeline[0].Seq)
	assert.Equal(t, int64(3), result.Timeline[1].Seq)

	maxGas := result.Timeline[0].GasCost
	if result.Timeline[1].GasCost > maxGas {
		maxGas = result.Timeline[1].GasCost
	}
	resp, err = runJSON(t, "trace", "--db", db, "--from", "2", "--min-gas", fmt.Sprint(maxGas+1))
	require.NoError(t, err)
	decodeData(t, resp, &result)
	assert.Empty(t, result.Timeline)
	assert.Zero(t, result.Stats.Calls)
}

func TestTrace_InvalidRange(t *testing.T) {
	db := tempDB(t)

	_, _, err := run(t, "trace", "--db", db, "--from", "5", "--to", "2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
