package transcript

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/state"
	"github.com/roach88/ledgerq/internal/vm"
)

func field(n byte) ir.AlignedValue {
	return ir.AlignedValue{Value: [][]byte{ir.TrimSegment([]byte{n})}, Alignment: ir.Alignment{ir.FieldAtom()}}
}

func bit(b bool) ir.AlignedValue {
	seg := []byte{}
	if b {
		seg = []byte{1}
	}
	return ir.AlignedValue{Value: [][]byte{seg}, Alignment: ir.Alignment{ir.BitAtom()}}
}

func ledgerContext() vm.QueryContext {
	return vm.QueryContext{State: state.NewArray(state.NewMap())}
}

func writeProgram(key ir.AlignedValue, v bool) vm.Program {
	return vm.Program{
		vm.Idx{PushPath: true, Path: []vm.PathEntry{vm.ValueKey(state.IndexKey(0))}},
		vm.Push{Value: state.NewCell(key)},
		vm.Push{Value: state.NewCell(bit(v)), Storage: true},
		vm.Ins{N: 1},
		vm.Ins{N: 1, Cached: true},
	}
}

func readProgram(key ir.AlignedValue) vm.Program {
	return vm.Program{
		vm.Dup{N: 0},
		vm.Idx{Path: []vm.PathEntry{vm.ValueKey(state.IndexKey(0))}},
		vm.Idx{Path: []vm.PathEntry{vm.ValueKey(key)}},
		vm.Popeq{},
	}
}

func TestBuilder_BackfillsReads(t *testing.T) {
	b := NewBuilder(vm.New(), ledgerContext(), field(5), zerolog.Nop())

	_, err := b.Query(writeProgram(field(5), true))
	require.NoError(t, err)

	reads, err := b.Query(readProgram(field(5)))
	require.NoError(t, err)
	require.Len(t, reads, 1)
	assert.True(t, reads[0].Equal(bit(true)))

	proof, err := b.Finish(ir.EmptyAligned())
	require.NoError(t, err)

	assert.Len(t, proof.PublicTranscript, 9)
	assert.Equal(t, 1, proof.ReadCount())
	pe := proof.PublicTranscript[8].(vm.Popeq)
	require.NotNil(t, pe.Result)
	assert.True(t, pe.Result.Equal(bit(true)))
	assert.True(t, proof.Input.Equal(field(5)))
	require.NotNil(t, proof.Output)
	assert.Empty(t, proof.Output.Value)
}

func TestBuilder_DoesNotMutateCallerProgram(t *testing.T) {
	b := NewBuilder(vm.New(), ledgerContext(), ir.EmptyAligned(), zerolog.Nop())
	_, err := b.Query(writeProgram(field(1), false))
	require.NoError(t, err)

	prog := readProgram(field(1))
	_, err = b.Query(prog)
	require.NoError(t, err)
	assert.Nil(t, prog[3].(vm.Popeq).Result)
}

func TestBuilder_FailedQueryRecordsNothing(t *testing.T) {
	b := NewBuilder(vm.New(), ledgerContext(), ir.EmptyAligned(), zerolog.Nop())
	before := b.Context()

	_, err := b.Query(readProgram(field(9)))
	require.Error(t, err)
	assert.True(t, ir.IsPathError(err))
	assert.Same(t, before.State, b.Context().State)

	proof, err := b.Finish(ir.EmptyAligned())
	require.NoError(t, err)
	assert.Empty(t, proof.PublicTranscript)
}

func TestBuilder_PrivateOutputsStayPrivate(t *testing.T) {
	b := NewBuilder(vm.New(), ledgerContext(), ir.EmptyAligned(), zerolog.Nop())
	require.NoError(t, b.RecordPrivate(field(77)))

	proof, err := b.Finish(ir.EmptyAligned())
	require.NoError(t, err)
	require.Len(t, proof.PrivateTranscriptOutputs, 1)

	public := proof.Public()
	assert.Empty(t, public.PrivateTranscriptOutputs)
	assert.Len(t, proof.PrivateTranscriptOutputs, 1, "original keeps its private outputs")
}

func TestBuilder_FinishOnce(t *testing.T) {
	b := NewBuilder(vm.New(), ledgerContext(), ir.EmptyAligned(), zerolog.Nop())
	_, err := b.Finish(ir.EmptyAligned())
	require.NoError(t, err)

	_, err = b.Finish(ir.EmptyAligned())
	assert.True(t, ir.IsTranscriptViolation(err))
	_, err = b.Query(nil)
	assert.True(t, ir.IsTranscriptViolation(err))
	assert.True(t, ir.IsTranscriptViolation(b.RecordPrivate(field(1))))
}

func TestBackfill_CountMismatch(t *testing.T) {
	_, err := backfill(vm.Program{vm.Popeq{}, vm.Popeq{}}, []ir.AlignedValue{bit(true)})
	assert.True(t, ir.IsTranscriptViolation(err))

	_, err = backfill(vm.Program{vm.Popeq{}}, []ir.AlignedValue{bit(true), bit(false)})
	assert.True(t, ir.IsTranscriptViolation(err))
}

func TestBuilder_BackfillsManyReadsInOrder(t *testing.T) {
	b := NewBuilder(vm.New(), ledgerContext(), ir.EmptyAligned(), zerolog.Nop())
	_, err := b.Query(writeProgram(field(1), true))
	require.NoError(t, err)
	_, err = b.Query(writeProgram(field(2), false))
	require.NoError(t, err)

	prog := append(readProgram(field(1)), readProgram(field(2))...)
	reads, err := b.Query(append(prog, readProgram(field(1))...))
	require.NoError(t, err)
	require.Len(t, reads, 3)

	proof, err := b.Finish(ir.EmptyAligned())
	require.NoError(t, err)
	assert.Equal(t, 3, proof.ReadCount())

	var results []ir.AlignedValue
	for _, op := range proof.PublicTranscript {
		if pe, ok := op.(vm.Popeq); ok {
			require.NotNil(t, pe.Result)
			results = append(results, *pe.Result)
		}
	}
	require.Len(t, results, 3)
	assert.True(t, results[0].Equal(bit(true)))
	assert.True(t, results[1].Equal(bit(false)))
	assert.True(t, results[2].Equal(bit(true)))
}
