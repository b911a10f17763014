package state

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"swapd/crypto"
	"swapd/native/escrow"
	"swapd/native/token"
)

// RLP shadow types. RLP has no signed integers, so timestamps are stored as
// uint64 and converted at the boundary.

type offerRLP struct {
	ID         uint64
	Maker      crypto.Address
	MakerAsset crypto.Address
	TakerAsset crypto.Address
	Deposit    uint64
	Receive    uint64
	Address    crypto.Address
	Vault      crypto.Address
	Nonce      uint8
	Rent       uint64
	CreatedAt  uint64
}

type accountRLP struct {
	Address crypto.Address
	Owner   crypto.Address
	Asset   crypto.Address
	Balance uint64
	Rent    uint64
	Nonce   uint8
}

type assetRLP struct {
	Address  crypto.Address
	Symbol   string
	Decimals uint8
}

func encodeOffer(o *escrow.Offer) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("state: nil offer")
	}
	if o.CreatedAt < 0 {
		return nil, fmt.Errorf("state: negative offer timestamp %d", o.CreatedAt)
	}
	return rlp.EncodeToBytes(&offerRLP{
		ID:         o.ID,
		Maker:      o.Maker,
		MakerAsset: o.MakerAsset,
		TakerAsset: o.TakerAsset,
		Deposit:    o.Deposit,
		Receive:    o.Receive,
		Address:    o.Address,
		Vault:      o.Vault,
		Nonce:      o.Nonce,
		Rent:       o.Rent,
		CreatedAt:  uint64(o.CreatedAt),
	})
}

func decodeOffer(data []byte) (*escrow.Offer, error) {
	var enc offerRLP
	if err := rlp.DecodeBytes(data, &enc); err != nil {
		return nil, fmt.Errorf("state: decode offer: %w", err)
	}
	return &escrow.Offer{
		ID:         enc.ID,
		Maker:      enc.Maker,
		MakerAsset: enc.MakerAsset,
		TakerAsset: enc.TakerAsset,
		Deposit:    enc.Deposit,
		Receive:    enc.Receive,
		Address:    enc.Address,
		Vault:      enc.Vault,
		Nonce:      enc.Nonce,
		Rent:       enc.Rent,
		CreatedAt:  int64(enc.CreatedAt),
	}, nil
}

func encodeAccount(a *token.Account) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("state: nil account")
	}
	return rlp.EncodeToBytes(&accountRLP{
		Address: a.Address,
		Owner:   a.Owner,
		Asset:   a.Asset,
		Balance: a.Balance,
		Rent:    a.Rent,
		Nonce:   a.Nonce,
	})
}

func decodeAccount(data []byte) (*token.Account, error) {
	var enc accountRLP
	if err := rlp.DecodeBytes(data, &enc); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return &token.Account{
		Address: enc.Address,
		Owner:   enc.Owner,
		Asset:   enc.Asset,
		Balance: enc.Balance,
		Rent:    enc.Rent,
		Nonce:   enc.Nonce,
	}, nil
}

func encodeAsset(a *token.Asset) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("state: nil asset")
	}
	return rlp.EncodeToBytes(&assetRLP{Address: a.Address, Symbol: a.Symbol, Decimals: a.Decimals})
}

func decodeAsset(data []byte) (*token.Asset, error) {
	var enc assetRLP
	if err := rlp.DecodeBytes(data, &enc); err != nil {
		return nil, fmt.Errorf("state: decode asset: %w", err)
	}
	return &token.Asset{Address: enc.Address, Symbol: enc.Symbol, Decimals: enc.Decimals}, nil
}

func encodeNative(amount uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], amount)
	return buf[:]
}

func decodeNative(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("state: malformed native balance of %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
