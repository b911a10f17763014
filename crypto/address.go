package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressHRP is the human-readable bech32 prefix shared by every identity the
// escrow core handles: makers, takers, assets, token accounts and derived
// custody authorities.
const AddressHRP = "swap"

// AddressLength is the byte length of every address.
const AddressLength = 20

// Address identifies a party, an asset or a custody account. Derived program
// authorities use the same shape as key-backed identities; only the derivation
// proof distinguishes them.
type Address [AddressLength]byte

// ZeroAddress is the reserved all-zero address. It never owns anything and is
// rejected as a derivation result.
var ZeroAddress Address

// BytesToAddress converts a raw slice to an Address. It panics when the slice
// is not exactly AddressLength bytes; callers decode untrusted input through
// DecodeAddress instead.
func BytesToAddress(b []byte) Address {
	if len(b) != AddressLength {
		panic(fmt.Sprintf("address must be %d bytes long", AddressLength))
	}
	var a Address
	copy(a[:], b)
	return a
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether the address is the reserved zero value.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String renders the address as a bech32 string with the swap prefix.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressHRP, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Hex returns the lowercase hex form without a prefix, used for log and event
// attributes.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// DecodeAddress parses a bech32 address string and validates its prefix and
// payload length.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if prefix != AddressHRP {
		return Address{}, fmt.Errorf("unexpected address prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != AddressLength {
		return Address{}, fmt.Errorf("address payload must be %d bytes, got %d", AddressLength, len(conv))
	}
	return BytesToAddress(conv), nil
}

// Compare orders addresses lexicographically, mainly for deterministic
// iteration in callers.
func (a Address) Compare(other Address) int {
	return bytes.Compare(a[:], other[:])
}
