package token

import (
	"fmt"
	"strings"

	"swapd/crypto"
)

const maxSymbolLength = 12

// Asset describes a registered fungible asset type. The address is derived
// from the normalized symbol, so an asset identity can be recomputed from its
// ticker alone.
type Asset struct {
	Address  crypto.Address
	Symbol   string
	Decimals uint8
}

// Account is a typed custody account: it holds a balance of exactly one asset
// on behalf of one owner. The owner may be a key-backed identity or a derived
// authority; the ledger treats both the same way.
type Account struct {
	Address crypto.Address
	Owner   crypto.Address
	Asset   crypto.Address
	Balance uint64
	// Rent is the storage deposit charged at creation and returned to the
	// close destination when the account is deallocated.
	Rent uint64
	// Nonce replays the associated-address derivation for this account.
	Nonce uint8
}

// Clone returns a copy of the account so callers can mutate the result without
// affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Clone returns a copy of the asset definition.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// NormalizeSymbol canonicalises an asset ticker: trimmed, uppercase, ASCII
// letters and digits only, at most twelve characters.
func NormalizeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("token: empty asset symbol")
	}
	if len(trimmed) > maxSymbolLength {
		return "", fmt.Errorf("token: asset symbol %q too long", symbol)
	}
	for _, r := range trimmed {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("token: unsupported character in asset symbol %q", symbol)
		}
	}
	return trimmed, nil
}

// AssetAddress derives the deterministic identity of an asset from its
// normalized symbol.
func AssetAddress(symbol string) (crypto.Address, uint8, error) {
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return crypto.Address{}, 0, err
	}
	return crypto.DeriveAuthority(crypto.NamespaceAsset, []byte(normalized))
}

// AssociatedAddress derives the canonical account address for an (owner,
// asset) pair. Deriving twice for the same pair always yields the same
// address, which is what lets transitions locate counterparty accounts without
// the caller enumerating them.
func AssociatedAddress(owner, asset crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveAuthority(crypto.NamespaceToken, owner.Bytes(), asset.Bytes())
}
