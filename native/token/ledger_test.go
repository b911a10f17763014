package token

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"

	"swapd/crypto"
)

type mockState struct {
	accounts map[crypto.Address]*Account
	assets   map[crypto.Address]*Asset
	native   map[crypto.Address]uint64
}

func newMockState() *mockState {
	return &mockState{
		accounts: make(map[crypto.Address]*Account),
		assets:   make(map[crypto.Address]*Asset),
		native:   make(map[crypto.Address]uint64),
	}
}

func (m *mockState) AccountGet(addr crypto.Address) (*Account, bool, error) {
	acct, ok := m.accounts[addr]
	if !ok {
		return nil, false, nil
	}
	return acct.Clone(), true, nil
}

func (m *mockState) AccountPut(acct *Account) error {
	if acct == nil {
		return fmt.Errorf("nil account")
	}
	m.accounts[acct.Address] = acct.Clone()
	return nil
}

func (m *mockState) AccountDelete(addr crypto.Address) error {
	delete(m.accounts, addr)
	return nil
}

func (m *mockState) AssetGet(addr crypto.Address) (*Asset, bool, error) {
	asset, ok := m.assets[addr]
	if !ok {
		return nil, false, nil
	}
	return asset.Clone(), true, nil
}

func (m *mockState) AssetPut(asset *Asset) error {
	if asset == nil {
		return fmt.Errorf("nil asset")
	}
	m.assets[asset.Address] = asset.Clone()
	return nil
}

func (m *mockState) NativeBalance(addr crypto.Address) (uint64, error) {
	return m.native[addr], nil
}

func (m *mockState) NativeSet(addr crypto.Address, amount uint64) error {
	if amount == 0 {
		delete(m.native, addr)
		return nil
	}
	m.native[addr] = amount
	return nil
}

func testAddr(fill byte) crypto.Address {
	return crypto.BytesToAddress(bytes.Repeat([]byte{fill}, crypto.AddressLength))
}

func newTestLedger(t *testing.T) (*Ledger, *mockState, *Asset) {
	t.Helper()
	state := newMockState()
	ledger := NewLedger(state)
	asset, err := ledger.RegisterAsset("GLD", 6)
	if err != nil {
		t.Fatalf("register asset: %v", err)
	}
	return ledger, state, asset
}

func TestRegisterAssetDeterministicIdentity(t *testing.T) {
	ledger, _, asset := newTestLedger(t)

	addr, _, err := AssetAddress("gld") // case-insensitive symbol
	if err != nil {
		t.Fatalf("asset address: %v", err)
	}
	if addr != asset.Address {
		t.Fatalf("asset identity must derive from the normalized symbol")
	}

	if _, err := ledger.RegisterAsset("GLD", 6); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("expected ErrAssetExists, got %v", err)
	}
}

func TestNormalizeSymbolRejectsGarbage(t *testing.T) {
	for _, symbol := range []string{"", "  ", "TOO-LONG-SYMBOL", "bad sym", "usd$"} {
		if _, err := NormalizeSymbol(symbol); err == nil {
			t.Fatalf("expected error for symbol %q", symbol)
		}
	}
	normalized, err := NormalizeSymbol("  gld ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized != "GLD" {
		t.Fatalf("expected GLD, got %s", normalized)
	}
}

func TestEnsureAccountChargesRentOnce(t *testing.T) {
	ledger, state, asset := newTestLedger(t)
	owner := testAddr(0x10)
	state.native[owner] = DefaultRentDeposit

	acct, err := ledger.EnsureAccount(owner, asset.Address, owner)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if acct.Owner != owner || acct.Asset != asset.Address || acct.Balance != 0 {
		t.Fatalf("unexpected account %+v", acct)
	}
	if got := state.native[owner]; got != 0 {
		t.Fatalf("rent not charged, native balance %d", got)
	}

	// Second ensure is a lookup, not another allocation.
	again, err := ledger.EnsureAccount(owner, asset.Address, owner)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again.Address != acct.Address {
		t.Fatalf("associated address must be stable")
	}
}

func TestEnsureAccountRequiresRentFunds(t *testing.T) {
	ledger, _, asset := newTestLedger(t)
	owner := testAddr(0x11)

	_, err := ledger.EnsureAccount(owner, asset.Address, owner)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestEnsureAccountUnknownAsset(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	_, err := ledger.EnsureAccount(testAddr(0x12), testAddr(0xFF), testAddr(0x12))
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestTransferMovesExactAmount(t *testing.T) {
	ledger, state, asset := newTestLedger(t)
	alice, bob := testAddr(0x21), testAddr(0x22)
	state.native[alice] = 2 * DefaultRentDeposit
	state.native[bob] = DefaultRentDeposit

	src, err := ledger.Mint(asset.Address, alice, 500)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	dst, err := ledger.EnsureAccount(bob, asset.Address, bob)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := ledger.Transfer(120, asset.Address, src.Address, dst.Address, alice); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	srcBal, _ := ledger.Balance(src.Address)
	dstBal, _ := ledger.Balance(dst.Address)
	if srcBal != 380 || dstBal != 120 {
		t.Fatalf("balances after transfer: src=%d dst=%d", srcBal, dstBal)
	}
}

func TestTransferToSelfLeavesBalanceUnchanged(t *testing.T) {
	ledger, state, asset := newTestLedger(t)
	alice := testAddr(0x25)
	state.native[alice] = DefaultRentDeposit

	acct, err := ledger.Mint(asset.Address, alice, 100)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := ledger.Transfer(40, asset.Address, acct.Address, acct.Address, alice); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	balance, _ := ledger.Balance(acct.Address)
	if balance != 100 {
		t.Fatalf("self transfer changed balance: %d", balance)
	}

	// The aliased case still enforces the funding check.
	err = ledger.Transfer(101, asset.Address, acct.Address, acct.Address, alice)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	balance, _ = ledger.Balance(acct.Address)
	if balance != 100 {
		t.Fatalf("failed self transfer changed balance: %d", balance)
	}
}

func TestTransferGuards(t *testing.T) {
	ledger, state, asset := newTestLedger(t)
	other, err := ledger.RegisterAsset("SLV", 6)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	alice, bob := testAddr(0x31), testAddr(0x32)
	state.native[alice] = 4 * DefaultRentDeposit
	state.native[bob] = 4 * DefaultRentDeposit

	src, err := ledger.Mint(asset.Address, alice, 100)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	dst, err := ledger.EnsureAccount(bob, asset.Address, bob)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	foreign, err := ledger.Mint(other.Address, bob, 100)
	if err != nil {
		t.Fatalf("mint other: %v", err)
	}

	// Wrong asset type on either side.
	if err := ledger.Transfer(10, asset.Address, src.Address, foreign.Address, alice); !errors.Is(err, ErrWrongAsset) {
		t.Fatalf("expected ErrWrongAsset, got %v", err)
	}
	// Authority does not own the source.
	if err := ledger.Transfer(10, asset.Address, src.Address, dst.Address, bob); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	// Debit exceeding balance.
	if err := ledger.Transfer(1000, asset.Address, src.Address, dst.Address, alice); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	// Missing source account.
	if err := ledger.Transfer(10, asset.Address, testAddr(0x77), dst.Address, alice); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	// Nothing moved by any failed attempt.
	srcBal, _ := ledger.Balance(src.Address)
	dstBal, _ := ledger.Balance(dst.Address)
	if srcBal != 100 || dstBal != 0 {
		t.Fatalf("failed transfers must not move funds: src=%d dst=%d", srcBal, dstBal)
	}
}

func TestTransferOverflowGuard(t *testing.T) {
	ledger, state, asset := newTestLedger(t)
	alice, bob := testAddr(0x41), testAddr(0x42)
	state.native[alice] = 2 * DefaultRentDeposit
	state.native[bob] = 2 * DefaultRentDeposit

	src, err := ledger.Mint(asset.Address, alice, 10)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	dst, err := ledger.Mint(asset.Address, bob, math.MaxUint64-5)
	if err != nil {
		t.Fatalf("mint max: %v", err)
	}

	if err := ledger.Transfer(10, asset.Address, src.Address, dst.Address, alice); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
}

func TestCloseReturnsRentAndDeallocates(t *testing.T) {
	ledger, state, asset := newTestLedger(t)
	owner, beneficiary := testAddr(0x51), testAddr(0x52)
	state.native[owner] = DefaultRentDeposit

	acct, err := ledger.EnsureAccount(owner, asset.Address, owner)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := ledger.Close(acct.Address, beneficiary, owner); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := state.native[beneficiary]; got != DefaultRentDeposit {
		t.Fatalf("rent must return to the destination, got %d", got)
	}
	if _, err := ledger.Account(acct.Address); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("account must be deallocated, got %v", err)
	}
}

func TestCloseGuards(t *testing.T) {
	ledger, state, asset := newTestLedger(t)
	owner, stranger := testAddr(0x61), testAddr(0x62)
	state.native[owner] = 2 * DefaultRentDeposit

	acct, err := ledger.Mint(asset.Address, owner, 5)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := ledger.Close(acct.Address, owner, stranger); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := ledger.Close(acct.Address, owner, owner); !errors.Is(err, ErrAccountNotEmpty) {
		t.Fatalf("expected ErrAccountNotEmpty, got %v", err)
	}
	if err := ledger.Close(testAddr(0x7F), owner, owner); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestZeroAmountTransferIsNoop(t *testing.T) {
	ledger, _, asset := newTestLedger(t)

	// Accounts do not even need to exist for a zero transfer.
	if err := ledger.Transfer(0, asset.Address, testAddr(0x71), testAddr(0x72), testAddr(0x71)); err != nil {
		t.Fatalf("zero transfer: %v", err)
	}
}
