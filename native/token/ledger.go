package token

import (
	"fmt"
	"math"

	"swapd/crypto"
)

// DefaultRentDeposit is the storage deposit, in native units, charged when a
// custody account is allocated and returned when it is closed.
const DefaultRentDeposit uint64 = 2_039_280

// State is the persistence surface the ledger operates on. Implementations
// must apply every mutation made within one enclosing state transaction
// atomically.
type State interface {
	AccountGet(addr crypto.Address) (*Account, bool, error)
	AccountPut(acct *Account) error
	AccountDelete(addr crypto.Address) error
	AssetGet(addr crypto.Address) (*Asset, bool, error)
	AssetPut(asset *Asset) error
	NativeBalance(addr crypto.Address) (uint64, error)
	NativeSet(addr crypto.Address, amount uint64) error
}

// Ledger moves fixed quantities of typed assets between custody accounts and
// deallocates empty accounts. It performs no logging and no retries; every
// failure surfaces as a typed error to the enclosing transition.
type Ledger struct {
	state State
	rent  uint64
}

// NewLedger binds a ledger to a state backend.
func NewLedger(state State) *Ledger {
	return &Ledger{state: state, rent: DefaultRentDeposit}
}

// SetRentDeposit overrides the storage deposit charged for new accounts.
func (l *Ledger) SetRentDeposit(rent uint64) {
	l.rent = rent
}

// RegisterAsset adds an asset type to the registry and returns its derived
// identity. Registering the same symbol twice fails.
func (l *Ledger) RegisterAsset(symbol string, decimals uint8) (*Asset, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	addr, _, err := AssetAddress(normalized)
	if err != nil {
		return nil, err
	}
	if _, ok, err := l.state.AssetGet(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAssetExists
	}
	asset := &Asset{Address: addr, Symbol: normalized, Decimals: decimals}
	if err := l.state.AssetPut(asset); err != nil {
		return nil, err
	}
	return asset.Clone(), nil
}

// Asset resolves a registered asset by identity.
func (l *Ledger) Asset(addr crypto.Address) (*Asset, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	asset, ok, err := l.state.AssetGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAssetNotFound
	}
	return asset.Clone(), nil
}

// Account loads a custody account by address.
func (l *Ledger) Account(addr crypto.Address) (*Account, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	acct, ok, err := l.state.AccountGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct.Clone(), nil
}

// Balance returns the balance of a custody account.
func (l *Ledger) Balance(addr crypto.Address) (uint64, error) {
	acct, err := l.Account(addr)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// EnsureAccount returns the associated custody account for (owner, asset),
// allocating it when absent. Allocation charges the rent deposit to the payer's
// native balance.
func (l *Ledger) EnsureAccount(owner, asset, payer crypto.Address) (*Account, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	if _, ok, err := l.state.AssetGet(asset); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrAssetNotFound
	}
	addr, nonce, err := AssociatedAddress(owner, asset)
	if err != nil {
		return nil, err
	}
	if acct, ok, err := l.state.AccountGet(addr); err != nil {
		return nil, err
	} else if ok {
		if acct.Asset != asset || acct.Owner != owner {
			return nil, ErrWrongAsset
		}
		return acct.Clone(), nil
	}
	if err := l.debitNative(payer, l.rent); err != nil {
		return nil, fmt.Errorf("token ledger: rent deposit: %w", err)
	}
	acct := &Account{
		Address: addr,
		Owner:   owner,
		Asset:   asset,
		Balance: 0,
		Rent:    l.rent,
		Nonce:   nonce,
	}
	if err := l.state.AccountPut(acct); err != nil {
		return nil, err
	}
	return acct.Clone(), nil
}

// Transfer moves exactly amount units of asset between two custody accounts.
// The authority must be the owner of the source account; both accounts must
// carry the declared asset type. A transfer from an account to itself passes
// the same checks and leaves the balance unchanged.
func (l *Ledger) Transfer(amount uint64, asset, from, to, authority crypto.Address) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if amount == 0 {
		return nil
	}
	fromAcct, ok, err := l.state.AccountGet(from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: source %s", ErrAccountNotFound, from)
	}
	toAcct, ok, err := l.state.AccountGet(to)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: destination %s", ErrAccountNotFound, to)
	}
	if fromAcct.Asset != asset || toAcct.Asset != asset {
		return ErrWrongAsset
	}
	if fromAcct.Owner != authority {
		return ErrUnauthorized
	}
	if fromAcct.Balance < amount {
		return ErrInsufficientFunds
	}
	// A validated self-transfer moves nothing. Writing the debited and
	// credited copies of the same record back to back would credit the
	// account twice.
	if from == to {
		return nil
	}
	if toAcct.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	fromAcct.Balance -= amount
	toAcct.Balance += amount
	if err := l.state.AccountPut(fromAcct); err != nil {
		return err
	}
	return l.state.AccountPut(toAcct)
}

// Close deallocates an empty custody account and returns its rent deposit to
// the destination's native balance.
func (l *Ledger) Close(account, destination, authority crypto.Address) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	acct, ok, err := l.state.AccountGet(account)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	if acct.Owner != authority {
		return ErrUnauthorized
	}
	if acct.Balance != 0 {
		return ErrAccountNotEmpty
	}
	if err := l.creditNative(destination, acct.Rent); err != nil {
		return err
	}
	return l.state.AccountDelete(account)
}

// Mint issues amount units of a registered asset into the owner's associated
// account, allocating it if needed with the owner as rent payer. Used by
// genesis fixtures and the development faucet.
func (l *Ledger) Mint(asset, owner crypto.Address, amount uint64) (*Account, error) {
	acct, err := l.EnsureAccount(owner, asset, owner)
	if err != nil {
		return nil, err
	}
	if acct.Balance > math.MaxUint64-amount {
		return nil, ErrBalanceOverflow
	}
	acct.Balance += amount
	if err := l.state.AccountPut(acct); err != nil {
		return nil, err
	}
	return acct.Clone(), nil
}

// FundNative credits native units used for rent deposits. Genesis and faucet
// only; transitions never create native supply.
func (l *Ledger) FundNative(addr crypto.Address, amount uint64) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	return l.creditNative(addr, amount)
}

// NativeBalance reports the native (rent) balance of an address.
func (l *Ledger) NativeBalance(addr crypto.Address) (uint64, error) {
	if l == nil || l.state == nil {
		return 0, ErrNilState
	}
	return l.state.NativeBalance(addr)
}

// DebitNative withdraws native units from an address, failing when the
// balance is insufficient. The escrow engine uses it to collect record
// storage deposits.
func (l *Ledger) DebitNative(addr crypto.Address, amount uint64) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	return l.debitNative(addr, amount)
}

// CreditNative deposits native units to an address, the counterpart of
// DebitNative when storage is released.
func (l *Ledger) CreditNative(addr crypto.Address, amount uint64) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	return l.creditNative(addr, amount)
}

func (l *Ledger) debitNative(addr crypto.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	balance, err := l.state.NativeBalance(addr)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientFunds
	}
	return l.state.NativeSet(addr, balance-amount)
}

func (l *Ledger) creditNative(addr crypto.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	balance, err := l.state.NativeBalance(addr)
	if err != nil {
		return err
	}
	if balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	return l.state.NativeSet(addr, balance+amount)
}
