package nationality

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/contract"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/state"
	"github.com/roach88/ledgerq/internal/vm"
	"github.com/roach88/ledgerq/internal/witness"
)

func setup(t *testing.T, ws witness.Set) (*contract.Contract, contract.CircuitContext) {
	t.Helper()
	c, err := New(ws)
	require.NoError(t, err)
	ctx, err := c.InitialState(contract.ConstructorContext{InitialPrivateState: "private", InitialWalletLocalState: map[string]any{}})
	require.NoError(t, err)
	return c, ctx
}

func credentialFor(subject uint64) codec.Struct {
	cred := TestCredential()
	cred["subject"] = codec.FieldFromUint64(subject)
	return cred
}

func lookup(t *testing.T, c *contract.Contract, ctx contract.CircuitContext, subject uint64) bool {
	t.Helper()
	v, err := c.Ledger(ctx.Transaction.State).Lookup(VerificationsField, codec.FieldFromUint64(subject))
	require.NoError(t, err)
	return bool(v.(codec.Bool))
}

func TestSpec(t *testing.T) {
	spec, err := Spec()
	require.NoError(t, err)
	assert.Equal(t, ContractName, spec.Name)

	f, ok := spec.Field(VerificationsField)
	require.True(t, ok)
	assert.Equal(t, 0, f.Index)
	assert.Equal(t, ir.LedgerMap, f.Kind)

	r, ok := spec.Field(ReservedField)
	require.True(t, ok)
	assert.Equal(t, 1, r.Index)
}

func TestCredentialTypeString(t *testing.T) {
	c, _ := setup(t, DefaultWitnesses())
	st, ok := c.Registry().Struct(CredentialType)
	require.True(t, ok)
	assert.Equal(t,
		"struct EthiopianNationalityCredential<id: Field, issuer: Field, issuedAt: Field, expiresAt: Field, subject: Field, nationality: Field, signature: Vector<2, Field>>",
		st.String())
}

func TestInitialLayout(t *testing.T) {
	c, ctx := setup(t, DefaultWitnesses())

	root, ok := ctx.Transaction.State.(*state.Array)
	require.True(t, ok)
	require.Equal(t, 2, root.Len())
	assert.Equal(t, state.KindMap, root.At(0).Kind())
	assert.Equal(t, state.KindCell, root.At(1).Kind())

	reserved, err := c.Ledger(ctx.Transaction.State).Read(ReservedField)
	require.NoError(t, err)
	assert.Equal(t, codec.NewUint(0), reserved)
}

func TestNew_RequiresWitness(t *testing.T) {
	_, err := New(witness.Set{})
	require.Error(t, err)
	assert.True(t, ir.IsTypeMismatch(err))
	assert.Contains(t, err.Error(), "create_test_credential")
}

func TestTestVerification_RecordsTrue(t *testing.T) {
	c, ctx := setup(t, DefaultWitnesses())

	res, err := c.Call(ctx, TestVerification)
	require.NoError(t, err)
	assert.Nil(t, res.Result)
	assert.True(t, lookup(t, c, res.Context, 555555))

	proof := res.ProofData
	assert.Equal(t, ir.EmptyAligned(), proof.Input)
	require.Len(t, proof.PrivateTranscriptOutputs, 1)
	st, _ := c.Registry().Struct(CredentialType)
	assert.Equal(t, codec.MustEncode(st, TestCredential()), proof.PrivateTranscriptOutputs[0])

	// Five write ops followed by the four-op read back.
	require.Len(t, proof.PublicTranscript, 9)
	assert.Equal(t, 1, proof.ReadCount())
	popeq, ok := proof.PublicTranscript[8].(vm.Popeq)
	require.True(t, ok)
	require.NotNil(t, popeq.Result)
	assert.Equal(t, codec.MustEncode(codec.BooleanType{}, codec.Bool(true)), *popeq.Result)

	assert.Equal(t, "private", res.Context.CurrentPrivateState)
}

func TestVerifyAndRecord_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(codec.Struct)
		now    uint64
		want   bool
	}{
		{"valid", func(codec.Struct) {}, TestTimestamp, true},
		{"unauthorized issuer", func(c codec.Struct) { c["issuer"] = codec.FieldFromUint64(1) }, TestTimestamp, false},
		{"expired", func(codec.Struct) {}, TestTimestamp + 400*86400, false},
		{"expires exactly now", func(c codec.Struct) { c["expiresAt"] = codec.FieldFromUint64(TestTimestamp) }, TestTimestamp, true},
		{"wrong nationality", func(c codec.Struct) { c["nationality"] = codec.FieldFromUint64(7) }, TestTimestamp, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ctx := setup(t, DefaultWitnesses())
			cred := credentialFor(42)
			tt.mutate(cred)

			res, err := c.Call(ctx, VerifyAndRecord, cred, codec.FieldFromUint64(tt.now))
			require.NoError(t, err)
			assert.Equal(t, tt.want, lookup(t, c, res.Context, 42))
			assert.Empty(t, res.ProofData.PrivateTranscriptOutputs)
		})
	}
}

func TestVerifyAndRecord_RangeError(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 64)

	tests := []struct {
		name string
		cred codec.Struct
		now  codec.Field
	}{
		{"current time", credentialFor(42), codec.NewField(tooBig)},
		{"expires at", func() codec.Struct {
			cred := credentialFor(42)
			cred["expiresAt"] = codec.NewField(tooBig)
			return cred
		}(), codec.FieldFromUint64(TestTimestamp)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ctx := setup(t, DefaultWitnesses())
			before, err := state.RootHash(ctx.Transaction.State)
			require.NoError(t, err)

			_, err = c.Call(ctx, VerifyAndRecord, tt.cred, tt.now)
			require.Error(t, err)
			assert.True(t, ir.IsRangeError(err))

			after, err := state.RootHash(ctx.Transaction.State)
			require.NoError(t, err)
			assert.Equal(t, before, after)

			size, err := c.Ledger(ctx.Transaction.State).Size(VerificationsField)
			require.NoError(t, err)
			assert.Zero(t, size)
		})
	}
}

func TestVerifyAndRecord_TypeMismatch(t *testing.T) {
	c, ctx := setup(t, DefaultWitnesses())

	cred := credentialFor(42)
	cred["signature"] = codec.Vector{codec.FieldFromUint64(1)}
	_, err := c.Call(ctx, VerifyAndRecord, cred, codec.FieldFromUint64(TestTimestamp))
	require.Error(t, err)

	var re *ir.Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ir.ErrCodeTypeMismatch, re.Code)
	assert.Equal(t, "argument 1 (argument 2 as invoked from Go)", re.Arg)
	assert.Contains(t, re.Expected, "struct EthiopianNationalityCredential<")
}

func TestLedgerSizeAndMember(t *testing.T) {
	c, ctx := setup(t, DefaultWitnesses())
	l := c.Ledger(ctx.Transaction.State)

	size, err := l.Size(VerificationsField)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), size)
	empty, err := l.IsEmpty(VerificationsField)
	require.NoError(t, err)
	assert.True(t, empty)

	res, err := c.Call(ctx, VerifyAndRecord, credentialFor(7), codec.FieldFromUint64(TestTimestamp))
	require.NoError(t, err)

	l = c.Ledger(res.Context.Transaction.State)
	size, err = l.Size(VerificationsField)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), size)

	member, err := l.Member(VerificationsField, codec.FieldFromUint64(8))
	require.NoError(t, err)
	assert.False(t, member)

	_, err = l.Lookup(VerificationsField, codec.FieldFromUint64(8))
	require.Error(t, err)
	assert.True(t, ir.IsPathError(err))
}

func TestRecordingSameSubjectOverwrites(t *testing.T) {
	c, ctx := setup(t, DefaultWitnesses())

	res, err := c.Call(ctx, VerifyAndRecord, credentialFor(9), codec.FieldFromUint64(TestTimestamp))
	require.NoError(t, err)
	bad := credentialFor(9)
	bad["issuer"] = codec.FieldFromUint64(0)
	res, err = c.Call(res.Context, VerifyAndRecord, bad, codec.FieldFromUint64(TestTimestamp))
	require.NoError(t, err)

	assert.False(t, lookup(t, c, res.Context, 9))
	size, err := c.Ledger(res.Context.Transaction.State).Size(VerificationsField)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), size)
}

func TestTestVerification_BadWitnessValue(t *testing.T) {
	ws := witness.Set{
		CreateTestCredential: func(ctx witness.Context) (any, codec.Value, error) {
			return ctx.PrivateState, codec.FieldFromUint64(1), nil
		},
	}
	c, ctx := setup(t, ws)

	_, err := c.Call(ctx, TestVerification)
	require.Error(t, err)

	var re *ir.Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ir.ErrCodeTypeMismatch, re.Code)
	assert.Equal(t, CreateTestCredential, re.Op)
	assert.Equal(t, "return value", re.Arg)
}

func TestWitnessSeesLedgerAndPrivateState(t *testing.T) {
	var seen witness.Context
	ws := witness.Set{
		CreateTestCredential: func(ctx witness.Context) (any, codec.Value, error) {
			seen = ctx
			return "next", credentialFor(1), nil
		},
	}
	c, ctx := setup(t, ws)

	res, err := c.Call(ctx, TestVerification)
	require.NoError(t, err)
	assert.Equal(t, "private", seen.PrivateState)
	assert.Equal(t, c.Address(), seen.Address)
	assert.Equal(t, "next", res.Context.CurrentPrivateState)

	ledger, ok := seen.Ledger.(*contract.Ledger)
	require.True(t, ok)
	empty, err := ledger.IsEmpty(VerificationsField)
	require.NoError(t, err)
	assert.True(t, empty)
}
