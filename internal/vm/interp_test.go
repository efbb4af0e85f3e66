package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/state"
)

func field(n byte) ir.AlignedValue {
	return ir.AlignedValue{Value: [][]byte{ir.TrimSegment([]byte{n})}, Alignment: ir.Alignment{ir.FieldAtom()}}
}

func emptyLedger(t *testing.T) QueryContext {
	t.Helper()
	res, err := New().Run(QueryContext{State: state.NewArray(state.Null{})}, Program{
		Push{Value: state.NewCell(state.IndexKey(0)), Storage: false},
		Push{Value: state.NewMap(), Storage: true},
		Ins{N: 1},
	})
	require.NoError(t, err)
	return res.Context
}

func record(key ir.AlignedValue, value bool) Program {
	return Program{
		Idx{PushPath: true, Path: []PathEntry{ValueKey(state.IndexKey(0))}},
		Push{Value: state.NewCell(key), Storage: false},
		Push{Value: state.NewCell(boolCell(value)), Storage: true},
		Ins{N: 1},
		Ins{N: 1, Cached: true},
	}
}

func lookup(key ir.AlignedValue) Program {
	return Program{
		Dup{N: 0},
		Idx{Path: []PathEntry{ValueKey(state.IndexKey(0))}},
		Idx{Path: []PathEntry{ValueKey(key)}},
		Popeq{},
	}
}

func TestRun_EmptyProgramIsNoop(t *testing.T) {
	ctx := emptyLedger(t)

	res, err := New().Run(ctx, nil)
	require.NoError(t, err)
	assert.Same(t, ctx.State, res.Context.State)
	assert.Empty(t, res.Events)
	assert.Zero(t, res.GasCost)
}

func TestRun_WriteThenRead(t *testing.T) {
	ctx := emptyLedger(t)
	in := New()

	res, err := in.Run(ctx, record(field(42), true))
	require.NoError(t, err)

	read, err := in.Run(res.Context, lookup(field(42)))
	require.NoError(t, err)
	require.Len(t, read.Events, 1)
	assert.Equal(t, EventRead, read.Events[0].Kind)
	assert.True(t, read.Events[0].Value.Equal(boolCell(true)))
	assert.Same(t, res.Context.State, read.Context.State, "reads leave the root unchanged")

	_, err = in.Run(ctx, lookup(field(42)))
	assert.True(t, ir.IsPathError(err), "original context has no entry")
}

func TestRun_Overwrite(t *testing.T) {
	ctx := emptyLedger(t)
	in := New()

	res, err := in.Run(ctx, record(field(7), true))
	require.NoError(t, err)
	res, err = in.Run(res.Context, record(field(7), false))
	require.NoError(t, err)

	read, err := in.Run(res.Context, lookup(field(7)))
	require.NoError(t, err)
	assert.True(t, read.Reads()[0].Equal(boolCell(false)))
}

func TestRun_SizeEqMember(t *testing.T) {
	ctx := emptyLedger(t)
	in := New()

	isEmpty := Program{
		Dup{N: 0},
		Idx{Path: []PathEntry{ValueKey(state.IndexKey(0))}},
		Size{},
		Push{Value: state.NewCell(sizeCell(0))},
		Eq{},
		Popeq{},
	}
	member := func(key ir.AlignedValue) Program {
		return Program{
			Dup{N: 0},
			Idx{Path: []PathEntry{ValueKey(state.IndexKey(0))}},
			Push{Value: state.NewCell(key)},
			Member{},
			Popeq{},
		}
	}

	res, err := in.Run(ctx, isEmpty)
	require.NoError(t, err)
	assert.True(t, res.Reads()[0].Equal(boolCell(true)))

	written, err := in.Run(ctx, record(field(3), false))
	require.NoError(t, err)

	res, err = in.Run(written.Context, isEmpty)
	require.NoError(t, err)
	assert.True(t, res.Reads()[0].Equal(boolCell(false)))

	res, err = in.Run(written.Context, member(field(3)))
	require.NoError(t, err)
	assert.True(t, res.Reads()[0].Equal(boolCell(true)), "false values are still members")

	res, err = in.Run(written.Context, member(field(4)))
	require.NoError(t, err)
	assert.True(t, res.Reads()[0].Equal(boolCell(false)))
}

func TestRun_StackMustEndWithOneEntry(t *testing.T) {
	ctx := emptyLedger(t)

	_, err := New().Run(ctx, Program{Dup{N: 0}})
	assert.True(t, ir.IsTypeMismatch(err))

	_, err = New().Run(ctx, Program{Popeq{}})
	assert.True(t, ir.IsTypeMismatch(err), "popeq on the root array")
}

func TestRun_InsRequiresStorageValue(t *testing.T) {
	ctx := emptyLedger(t)
	prog := record(field(1), true)
	prog[2] = Push{Value: state.NewCell(boolCell(true)), Storage: false}

	_, err := New().Run(ctx, prog)
	assert.True(t, ir.IsTypeMismatch(err))
}

func TestRun_SizeOnCellFails(t *testing.T) {
	ctx := emptyLedger(t)
	written, err := New().Run(ctx, record(field(1), true))
	require.NoError(t, err)

	_, err = New().Run(written.Context, Program{
		Dup{N: 0},
		Idx{Path: []PathEntry{ValueKey(state.IndexKey(0)), ValueKey(field(1))}},
		Size{},
		Popeq{},
	})
	assert.True(t, ir.IsTypeMismatch(err))
}

func TestRun_StackKey(t *testing.T) {
	ctx := emptyLedger(t)
	in := New()
	written, err := in.Run(ctx, record(field(9), true))
	require.NoError(t, err)

	res, err := in.Run(written.Context, Program{
		Dup{N: 0},
		Idx{Path: []PathEntry{ValueKey(state.IndexKey(0))}},
		Push{Value: state.NewCell(field(9))},
		Idx{Path: []PathEntry{StackKey()}},
		Popeq{},
	})
	require.NoError(t, err)
	assert.True(t, res.Reads()[0].Equal(boolCell(true)))
}

func TestRun_PushPathMaterializesDefault(t *testing.T) {
	ctx := emptyLedger(t)

	// Nested write under an absent key creates the intermediate map.
	res, err := New().Run(ctx, Program{
		Idx{PushPath: true, Path: []PathEntry{
			ValueKey(state.IndexKey(0)),
			{Key: field(5), Default: state.NewMap()},
		}},
		Push{Value: state.NewCell(field(6))},
		Push{Value: state.NewCell(boolCell(true)), Storage: true},
		Ins{N: 3},
	})
	require.NoError(t, err)

	v, err := state.Get(res.Context.State, state.Path{state.IndexKey(0), field(5), field(6)}, false)
	require.NoError(t, err)
	assert.Equal(t, state.KindCell, v.Kind())
}

func TestRun_PrefilledPopeqMustMatch(t *testing.T) {
	ctx := emptyLedger(t)
	in := New()
	written, err := in.Run(ctx, record(field(2), true))
	require.NoError(t, err)

	prog := lookup(field(2))
	want := boolCell(true)
	prog[3] = Popeq{Result: &want}
	_, err = in.Run(written.Context, prog)
	require.NoError(t, err)

	wrong := boolCell(false)
	prog[3] = Popeq{Result: &wrong}
	_, err = in.Run(written.Context, prog)
	assert.True(t, ir.IsTranscriptViolation(err))
}

func TestRun_CachedReadsAreWarm(t *testing.T) {
	ctx := emptyLedger(t)
	in := New()
	written, err := in.Run(ctx, record(field(2), true))
	require.NoError(t, err)

	read := func(cached bool) Program {
		return Program{
			Dup{N: 0},
			Idx{Cached: cached, Path: []PathEntry{ValueKey(state.IndexKey(0))}},
			Idx{Cached: cached, Path: []PathEntry{ValueKey(field(2))}},
			Popeq{},
		}
	}

	cold, err := in.Run(written.Context, append(read(false), read(false)...))
	require.NoError(t, err)
	warm, err := in.Run(written.Context, append(read(false), read(true)...))
	require.NoError(t, err)

	costs := DummyCostModel()
	assert.Equal(t, cold.GasCost-2*(costs.ReadCold-costs.ReadWarm), warm.GasCost)
}

func TestRun_FailureLeavesInputUntouched(t *testing.T) {
	ctx := emptyLedger(t)
	before, err := state.RootHash(ctx.State)
	require.NoError(t, err)

	prog := append(record(field(1), true), Popeq{})
	_, err = New().Run(ctx, prog)
	require.Error(t, err)

	after, err := state.RootHash(ctx.State)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_RepeatedReadsAgree(t *testing.T) {
	ctx := emptyLedger(t)
	in := New(WithReadCacheSize(8))
	written, err := in.Run(ctx, record(field(4), true))
	require.NoError(t, err)

	twice := append(lookup(field(4)), lookup(field(4))...)
	res, err := in.Run(written.Context, twice)
	require.NoError(t, err)
	reads := res.Reads()
	require.Len(t, reads, 2)
	assert.True(t, reads[0].Equal(reads[1]))

	again, err := in.Run(written.Context, lookup(field(4)))
	require.NoError(t, err)
	assert.True(t, again.Reads()[0].Equal(reads[0]), "a later call sees the same value")
}
