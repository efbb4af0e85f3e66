package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/ledgerq/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestInstance writes an instance with minimal required fields.
func createTestInstance(t *testing.T, s *Store, address string) ir.Instance {
	t.Helper()
	inst := ir.Instance{
		Address:        address,
		Contract:       "Test",
		SpecHash:       "spec-hash",
		RuntimeVersion: ir.RuntimeVersion,
		InitialRoot:    "root-0",
		InitialState:   []byte{0xc1, 0x03},
	}
	if err := s.WriteInstance(context.Background(), inst); err != nil {
		t.Fatalf("WriteInstance() failed: %v", err)
	}
	return inst
}

// createTestCall creates a call record chained from preRoot.
func createTestCall(id, instance string, seq int64, preRoot, postRoot string) ir.CallRecord {
	return ir.CallRecord{
		ID:         id,
		Instance:   instance,
		Seq:        seq,
		Circuit:    "record",
		Args:       []any{"42", true},
		PreRoot:    preRoot,
		PostRoot:   postRoot,
		PostState:  []byte{0xc2, 0x03, 0x01},
		Transcript: []byte(`{"output":{"value":[],"alignment":[]},"input":{"value":[],"alignment":[]},"publicTranscript":[],"privateTranscriptOutputs":[]}`),
		Commitment: "abcd",
		GasCost:    31,
		Digest:     "digest-" + id,
	}
}
