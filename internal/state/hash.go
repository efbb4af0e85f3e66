package state

import (
	"github.com/roach88/ledgerq/internal/ir"
)

// Hash returns the domain-separated SHA3-256 digest of v's binary form.
func Hash(v Value) ([32]byte, error) {
	data, err := EncodeBinary(v)
	if err != nil {
		return [32]byte{}, err
	}
	return ir.HashWithDomain(ir.DomainStateRoot, data), nil
}

// RootHash returns Hash as lowercase hex.
func RootHash(v Value) (string, error) {
	data, err := EncodeBinary(v)
	if err != nil {
		return "", err
	}
	return ir.HashHex(ir.DomainStateRoot, data), nil
}
