package ir

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

const (
	addressPrefix  = "ct"
	addressVersion = 0x01
)

// ContractAddress is the opaque 32-byte tag identifying a contract instance.
type ContractAddress [32]byte

// DummyContractAddress returns the all-zero address used for local execution.
func DummyContractAddress() ContractAddress {
	return ContractAddress{}
}

// String renders the address as a prefixed base58check string.
func (a ContractAddress) String() string {
	return addressPrefix + base58.CheckEncode(a[:], addressVersion)
}

// ParseContractAddress parses the output of ContractAddress.String.
func ParseContractAddress(s string) (ContractAddress, error) {
	var addr ContractAddress
	if !strings.HasPrefix(s, addressPrefix) {
		return addr, fmt.Errorf("contract address %q: missing %q prefix", s, addressPrefix)
	}
	payload, version, err := base58.CheckDecode(s[len(addressPrefix):])
	if err != nil {
		return addr, fmt.Errorf("contract address %q: %w", s, err)
	}
	if version != addressVersion {
		return addr, fmt.Errorf("contract address %q: version %d, expected %d", s, version, addressVersion)
	}
	if len(payload) != len(addr) {
		return addr, fmt.Errorf("contract address %q: %d bytes, expected %d", s, len(payload), len(addr))
	}
	copy(addr[:], payload)
	return addr, nil
}

// Aligned returns the address in its encoded form, a single bytes<32> segment.
func (a ContractAddress) Aligned() AlignedValue {
	return AlignedValue{
		Value:     [][]byte{append([]byte(nil), TrimSegment(a[:])...)},
		Alignment: Alignment{BytesAtom(len(a))},
	}
}
