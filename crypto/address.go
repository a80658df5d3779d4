package crypto

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

// DeriveAddress computes the deterministic address for an entity from a fixed
// label and its entity-specific keys. Addresses are never random and never
// stored as free-form pointers; re-deriving from the same inputs always yields
// the same address.
func DeriveAddress(label string, keys ...[]byte) [20]byte {
	data := make([]byte, 0, len(label)+len(keys)*20)
	data = append(data, []byte(label)...)
	for _, key := range keys {
		data = append(data, key...)
	}
	hash := ethcrypto.Keccak256(data)
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// DeriveID computes a 32-byte identifier from a label and keys, used for
// record identifiers that are not account addresses.
func DeriveID(label string, keys ...[]byte) [32]byte {
	data := make([]byte, 0, len(label)+len(keys)*20)
	data = append(data, []byte(label)...)
	for _, key := range keys {
		data = append(data, key...)
	}
	return ethcrypto.Keccak256Hash(data)
}

// EncodeAddress renders an address in the base58 form used on external
// surfaces (RPC payloads, logs, events).
func EncodeAddress(addr [20]byte) string {
	return base58.Encode(addr[:])
}

// DecodeAddress parses a base58 address string.
func DecodeAddress(s string) ([20]byte, error) {
	var addr [20]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return addr, fmt.Errorf("crypto: decode address %q: %w", s, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("crypto: address %q has length %d, want %d", s, len(raw), len(addr))
	}
	copy(addr[:], raw)
	return addr, nil
}
