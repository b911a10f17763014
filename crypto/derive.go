package crypto

import (
	"encoding/binary"
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Derivation namespaces. Every derived authority commits to one of these tags
// so addresses from different subsystems can never collide.
const (
	NamespaceOffer = "offer"
	NamespaceToken = "token"
	NamespaceAsset = "asset"
)

// ErrNoValidNonce is returned when no nonce in the single-byte range yields an
// acceptable derived address. With a keccak candidate function this is a
// theoretical case only.
var ErrNoValidNonce = errors.New("crypto: no valid derivation nonce")

// DeriveAuthority produces a deterministic authority address from a namespace
// tag and an ordered seed list. The returned nonce is the single byte that,
// replayed through VerifyAuthority, reproduces the same address. The search
// walks nonces from 255 downward and accepts the first candidate that does not
// land on the reserved zero address, so identical inputs always resolve to the
// same (address, nonce) pair.
//
// No private key exists for a derived authority. The address is controlled by
// whoever can reproduce the derivation, which in this codebase is the escrow
// engine alone.
func DeriveAuthority(namespace string, seeds ...[]byte) (Address, uint8, error) {
	for n := 255; n >= 0; n-- {
		candidate := deriveCandidate(namespace, seeds, uint8(n))
		if candidate.IsZero() {
			continue
		}
		return candidate, uint8(n), nil
	}
	return Address{}, 0, ErrNoValidNonce
}

// VerifyAuthority recomputes the derivation for a claimed (address, nonce)
// pair and reports whether it matches. Transitions call this before trusting a
// stored record, so a forged record address can never authorize vault
// movement.
func VerifyAuthority(addr Address, nonce uint8, namespace string, seeds ...[]byte) bool {
	if addr.IsZero() {
		return false
	}
	return deriveCandidate(namespace, seeds, nonce) == addr
}

func deriveCandidate(namespace string, seeds [][]byte, nonce uint8) Address {
	material := make([]byte, 0, 64)
	material = append(material, []byte(namespace)...)
	for _, seed := range seeds {
		material = append(material, seed...)
	}
	material = append(material, nonce)
	digest := ethcrypto.Keccak256(material)
	return BytesToAddress(digest[12:])
}

// Uint64Seed encodes a numeric identifier as a fixed-width little-endian seed.
func Uint64Seed(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}
