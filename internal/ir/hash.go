package ir

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainStateRoot  = "ledgerq/state/v1"
	DomainTranscript = "ledgerq/transcript/v1"
	DomainCall       = "ledgerq/call/v1"
	DomainContract   = "ledgerq/contract/v1"
)

// HashWithDomain computes SHA3-256(domain || 0x00 || data).
// The null byte separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) [32]byte {
	h := sha3.New256()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashHex is HashWithDomain rendered as lowercase hex.
func HashHex(domain string, data []byte) string {
	sum := HashWithDomain(domain, data)
	return hex.EncodeToString(sum[:])
}

// CallDigest computes the content-addressed identity of a committed call from
// its canonical transcript and the root it was applied to.
func CallDigest(preRoot string, canonicalTranscript []byte, seq int64) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"pre_root":   preRoot,
		"transcript": HashHex(DomainTranscript, canonicalTranscript),
		"seq":        seq,
	})
	if err != nil {
		return "", err
	}
	return HashHex(DomainCall, canonical), nil
}
