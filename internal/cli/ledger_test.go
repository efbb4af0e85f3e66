package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerq/internal/circuits/nationality"
)

func TestLedger_Empty(t *testing.T) {
	resp, err := runJSON(t, "ledger", "--db", tempDB(t))
	require.NoError(t, err)

	var view LedgerView
	decodeData(t, resp, &view)
	assert.Zero(t, view.Seq)
	assert.Equal(t, []any{}, view.Fields[nationality.VerificationsField])
	assert.Equal(t, "0", view.Fields[nationality.ReservedField])
}

func TestLedger_AfterCalls(t *testing.T) {
	db := tempDB(t)
	_, _, err := run(t, "invoke", nationality.TestVerification, "--db", db)
	require.NoError(t, err)
	_, _, err = run(t, "invoke", nationality.VerifyAndRecord, "--db", db,
		"--args", credentialArgs(42, "1777609600"))
	require.NoError(t, err)

	resp, err := runJSON(t, "ledger", "--db", db)
	require.NoError(t, err)
	var view LedgerView
	decodeData(t, resp, &view)
	assert.Equal(t, int64(2), view.Seq)
	assert.ElementsMatch(t, []any{
		[]any{"555555", true},
		[]any{"42", false},
	}, view.Fields[nationality.VerificationsField])

	out, _, err := run(t, "ledger", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, nationality.VerificationsField+" (2 entries)")
	assert.Contains(t, out, "  555555 => true")
	assert.Contains(t, out, nationality.ReservedField+" = 0")
}

func TestLedger_Lookup(t *testing.T) {
	db := tempDB(t)
	_, _, err := run(t, "invoke", nationality.TestVerification, "--db", db)
	require.NoError(t, err)

	resp, err := runJSON(t, "ledger", "--db", db, "--field", nationality.VerificationsField, "--key", "555555")
	require.NoError(t, err)
	var view LookupView
	decodeData(t, resp, &view)
	assert.True(t, view.Member)
	assert.Equal(t, true, view.Value)
	assert.Equal(t, "555555", view.Key)

	out, _, err := run(t, "ledger", "--db", db, "--field", nationality.VerificationsField, "--key", "7")
	require.NoError(t, err)
	assert.Contains(t, out, nationality.VerificationsField+"[7] absent")
}

func TestLedger_LookupErrors(t *testing.T) {
	db := tempDB(t)

	resp, err := runJSON(t, "ledger", "--db", db, "--field", nationality.ReservedField, "--key", "1")
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)

	resp, err = runJSON(t, "ledger", "--db", db, "--field", nationality.VerificationsField, "--key", "not-a-number")
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)

	_, _, err = run(t, "ledger", "--db", db, "--field", nationality.VerificationsField)
	require.Error(t, err, "--field requires --key")
}
