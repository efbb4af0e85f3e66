package store

import (
	"context"
	"fmt"

	"github.com/roach88/ledgerq/internal/ir"
)

// WriteInstance inserts an instance record into the store.
// Uses ON CONFLICT(address) DO NOTHING for idempotency - reopening an
// existing instance is silently ignored.
func (s *Store) WriteInstance(ctx context.Context, inst ir.Instance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instances
		(address, contract, spec_hash, runtime_version, initial_root, initial_state)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`,
		inst.Address,
		inst.Contract,
		inst.SpecHash,
		inst.RuntimeVersion,
		inst.InitialRoot,
		inst.InitialState,
	)
	if err != nil {
		return fmt.Errorf("write instance: %w", err)
	}
	return nil
}

// WriteCall inserts a committed call into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently
// ignored. A different call at an existing (instance, seq) is an error.
//
// The call's Args and Transcript are serialized to canonical JSON per
// RFC 8785 for deterministic replay.
//
// Note: The instance referenced by Instance must exist (foreign key constraint).
func (s *Store) WriteCall(ctx context.Context, call ir.CallRecord) error {
	argsJSON, err := marshalArgs(call.Args)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}
	transcriptJSON, err := canonicalTranscript(call.Transcript)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calls
		(id, instance, seq, circuit, args, pre_root, post_root, post_state, transcript, commitment, gas_cost, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		call.ID,
		call.Instance,
		call.Seq,
		call.Circuit,
		argsJSON,
		call.PreRoot,
		call.PostRoot,
		call.PostState,
		transcriptJSON,
		call.Commitment,
		int64(call.GasCost),
		call.Digest,
	)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}
	return nil
}
