package escrow

import (
	"fmt"

	"swapd/crypto"
)

// Offer captures one outstanding escrow: the maker's locked deposit, the
// counter-amount demanded, and the derivation data that pairs the record with
// its vault. Offers are created exactly once and never mutated in place; Take
// and Refund read them and then destroy them.
type Offer struct {
	// ID is caller-chosen and only serves to make the record address
	// unique per maker.
	ID    uint64
	Maker crypto.Address
	// MakerAsset is the asset type locked in the vault, TakerAsset the
	// asset type the maker demands in exchange.
	MakerAsset crypto.Address
	TakerAsset crypto.Address
	// Deposit is the quantity of MakerAsset locked at creation. Take
	// cross-checks the live vault balance against it before settling.
	Deposit uint64
	// Receive is the quantity of TakerAsset demanded.
	Receive uint64
	// Address is the derived record address. It doubles as the vault's
	// controlling authority: no private key exists for it, so only the
	// engine, by reproducing the derivation, can move the vault.
	Address crypto.Address
	// Vault is the custody account holding the deposit.
	Vault crypto.Address
	// Nonce replays the derivation of Address from (maker, id).
	Nonce uint8
	// Rent is the record storage deposit, returned to the maker when the
	// record is destroyed.
	Rent      uint64
	CreatedAt int64
}

// Clone returns a copy of the offer so callers can mutate the result without
// affecting the stored instance.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

// RecordAddress derives the record address, and therefore the vault authority,
// for a (maker, id) pair. Identical inputs always resolve to the same address.
func RecordAddress(maker crypto.Address, id uint64) (crypto.Address, uint8, error) {
	return crypto.DeriveAuthority(crypto.NamespaceOffer, maker.Bytes(), crypto.Uint64Seed(id))
}

// SanitizeOffer validates an offer definition and returns a clone, leaving the
// original untouched.
func SanitizeOffer(o *Offer) (*Offer, error) {
	if o == nil {
		return nil, fmt.Errorf("escrow: nil offer")
	}
	clone := o.Clone()
	if clone.Maker.IsZero() {
		return nil, fmt.Errorf("escrow: offer maker must not be the zero address")
	}
	if clone.MakerAsset.IsZero() || clone.TakerAsset.IsZero() {
		return nil, fmt.Errorf("escrow: offer assets must not be the zero address")
	}
	if clone.MakerAsset == clone.TakerAsset {
		return nil, fmt.Errorf("escrow: offer assets must differ")
	}
	if clone.Deposit == 0 || clone.Receive == 0 {
		return nil, fmt.Errorf("escrow: offer amounts must be positive")
	}
	if !crypto.VerifyAuthority(clone.Address, clone.Nonce, crypto.NamespaceOffer, clone.Maker.Bytes(), crypto.Uint64Seed(clone.ID)) {
		return nil, fmt.Errorf("escrow: offer address does not match its derivation")
	}
	return clone, nil
}
