package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerq/internal/circuits/nationality"
)

func TestReplay_ReproducesLog(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, WithStore(s), WithIDGenerator(fixedIDs()))
	ctx := context.Background()

	verify(t, e, 1)
	_, err := e.Invoke(ctx, nationality.TestVerification)
	require.NoError(t, err)
	last := verify(t, e, 1)

	report, err := e.Replay(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK(), "mismatches: %v", report.Mismatches)
	assert.Equal(t, 3, report.Calls)
	assert.Equal(t, last.PostRoot, report.Head)
}

func TestReplay_EmptyLog(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, WithStore(s))

	report, err := Replay(context.Background(), s, e.Contract(), e.Instance().Address)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Zero(t, report.Calls)
	assert.Equal(t, e.Instance().InitialRoot, report.Head)
}

func TestReplay_DetectsTamperedCommitment(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, WithStore(s), WithIDGenerator(fixedIDs()))
	verify(t, e, 1)
	verify(t, e, 2)

	_, err := s.DB().Exec(`UPDATE calls SET commitment = '00' WHERE id = 'call-1'`)
	require.NoError(t, err)

	report, err := e.Replay(context.Background())
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "call-1", report.Mismatches[0].CallID)
	assert.Contains(t, report.Mismatches[0].Reason, "commitment")
}

func TestReplay_DetectsTamperedDigest(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, WithStore(s), WithIDGenerator(fixedIDs()))
	verify(t, e, 1)

	_, err := s.DB().Exec(`UPDATE calls SET digest = 'x' WHERE id = 'call-1'`)
	require.NoError(t, err)

	report, err := e.Replay(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Contains(t, report.Mismatches[0].Reason, "digest")
}

func TestReplay_SpecMismatch(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, WithStore(s))

	_, err := s.DB().Exec(`UPDATE instances SET spec_hash = 'other'`)
	require.NoError(t, err)

	_, err = e.Replay(context.Background())
	require.Error(t, err)
	assert.True(t, IsSpecMismatch(err))
}
