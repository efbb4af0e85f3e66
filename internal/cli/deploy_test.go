package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerq/internal/circuits/nationality"
	"github.com/roach88/ledgerq/internal/ir"
)

func TestDeploy_Fresh(t *testing.T) {
	db := tempDB(t)

	resp, err := runJSON(t, "deploy", "--db", db)
	require.NoError(t, err)

	var info InstanceInfo
	decodeData(t, resp, &info)
	assert.Equal(t, nationality.ContractName, info.Contract)
	assert.Equal(t, ir.DummyContractAddress().String(), info.Address)
	assert.Equal(t, ir.RuntimeVersion, info.RuntimeVersion)
	assert.Equal(t, info.InitialRoot, info.Head)
	assert.Zero(t, info.Seq)
}

func TestDeploy_ResumesAfterCalls(t *testing.T) {
	db := tempDB(t)

	_, _, err := run(t, "deploy", "--db", db)
	require.NoError(t, err)
	_, _, err = run(t, "invoke", "test_verification", "--db", db)
	require.NoError(t, err)

	out, _, err := run(t, "deploy", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Resumed "+nationality.ContractName)
	assert.Contains(t, out, "(seq 1)")
}

func TestDeploy_Address(t *testing.T) {
	db := tempDB(t)
	addr := ir.ContractAddress{9, 9, 9}.String()

	resp, err := runJSON(t, "deploy", "--db", db, "--address", addr)
	require.NoError(t, err)
	var info InstanceInfo
	decodeData(t, resp, &info)
	assert.Equal(t, addr, info.Address)

	// Instances at different addresses share a log without interfering.
	resp, err = runJSON(t, "deploy", "--db", db)
	require.NoError(t, err)
	decodeData(t, resp, &info)
	assert.Equal(t, ir.DummyContractAddress().String(), info.Address)
}

func TestDeploy_InvalidConfig(t *testing.T) {
	resp, err := runJSON(t, "deploy", "--db", tempDB(t), "--address", "bogus")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)
}

func TestDeploy_ConfigFile(t *testing.T) {
	db := tempDB(t)
	cfg := writeFile(t, "ledgerq.yaml", "db_path: "+db+"\nlog_format: json\n")

	_, stderr, err := run(t, "deploy", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"message":"instance deployed"`)
}
