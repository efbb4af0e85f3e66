package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/ledgerq/internal/ir"
)

// marshalArgs converts native call arguments to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalArgs(args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT to native arguments.
// Numbers are kept as json.Number to avoid float64 precision loss.
func unmarshalArgs(data string) ([]any, error) {
	if data == "" || data == "[]" {
		return []any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var args []any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return args, nil
}

// canonicalTranscript re-encodes a transcript in canonical form so equal
// transcripts are stored byte-identically.
func canonicalTranscript(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("marshal transcript: empty")
	}
	canonical, err := ir.Canonicalize(data)
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	return string(canonical), nil
}
