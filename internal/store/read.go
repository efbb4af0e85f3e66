package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ledgerq/internal/ir"
)

const callColumns = `id, instance, seq, circuit, args, pre_root, post_root, post_state, transcript, commitment, gas_cost, digest`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadInstance retrieves an instance by address.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadInstance(ctx context.Context, address string) (ir.Instance, error) {
	var inst ir.Instance
	err := s.db.QueryRowContext(ctx, `
		SELECT address, contract, spec_hash, runtime_version, initial_root, initial_state
		FROM instances
		WHERE address = ?
	`, address).Scan(
		&inst.Address, &inst.Contract, &inst.SpecHash,
		&inst.RuntimeVersion, &inst.InitialRoot, &inst.InitialState,
	)
	if err != nil {
		return ir.Instance{}, err
	}
	return inst, nil
}

// ReadCall retrieves a single call by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadCall(ctx context.Context, id string) (ir.CallRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM calls WHERE id = ?`, id)
	return scanCall(row)
}

// ReadCalls returns all calls of an instance with deterministic ordering:
// ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the instance has no calls.
func (s *Store) ReadCalls(ctx context.Context, instance string) ([]ir.CallRecord, error) {
	return s.queryCalls(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE instance = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, instance)
}

// ReadCallsByCircuit returns the calls of an instance to one circuit, in
// seq order.
func (s *Store) ReadCallsByCircuit(ctx context.Context, instance, circuit string) ([]ir.CallRecord, error) {
	return s.QueryCalls(ctx, instance, CircuitIs{Circuit: circuit})
}

// LatestCall returns the call with the highest seq. ok is false if the
// instance has no calls.
func (s *Store) LatestCall(ctx context.Context, instance string) (call ir.CallRecord, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE instance = ?
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, instance)
	call, err = scanCall(row)
	if err == sql.ErrNoRows {
		return ir.CallRecord{}, false, nil
	}
	if err != nil {
		return ir.CallRecord{}, false, fmt.Errorf("latest call: %w", err)
	}
	return call, true, nil
}

func (s *Store) queryCalls(ctx context.Context, query string, args ...any) ([]ir.CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []ir.CallRecord{}
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

func scanCall(row rowScanner) (ir.CallRecord, error) {
	var call ir.CallRecord
	var argsJSON, transcriptJSON string
	var gas int64

	if err := row.Scan(
		&call.ID, &call.Instance, &call.Seq, &call.Circuit, &argsJSON,
		&call.PreRoot, &call.PostRoot, &call.PostState, &transcriptJSON,
		&call.Commitment, &gas, &call.Digest,
	); err != nil {
		return ir.CallRecord{}, err
	}

	args, err := unmarshalArgs(argsJSON)
	if err != nil {
		return ir.CallRecord{}, err
	}
	call.Args = args
	call.Transcript = []byte(transcriptJSON)
	call.GasCost = uint64(gas)
	return call, nil
}
