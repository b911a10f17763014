package token

import "errors"

var (
	// ErrNilState is returned when the ledger is used before a state
	// backend is configured.
	ErrNilState = errors.New("token ledger: state not configured")
	// ErrAccountNotFound is returned when a referenced custody account does
	// not exist.
	ErrAccountNotFound = errors.New("token ledger: account not found")
	// ErrAssetNotFound is returned when an asset identity is not in the
	// registry.
	ErrAssetNotFound = errors.New("token ledger: asset not registered")
	// ErrAssetExists is returned when registering a symbol that already
	// resolves to an asset.
	ErrAssetExists = errors.New("token ledger: asset already registered")
	// ErrWrongAsset is returned when an account's asset type does not match
	// the asset a transfer declares. This is the transfer-checked guard.
	ErrWrongAsset = errors.New("token ledger: asset mismatch")
	// ErrUnauthorized is returned when the presented authority does not
	// control the source account.
	ErrUnauthorized = errors.New("token ledger: authority does not control account")
	// ErrInsufficientFunds is returned when a debit exceeds the available
	// balance.
	ErrInsufficientFunds = errors.New("token ledger: insufficient funds")
	// ErrBalanceOverflow is returned when a credit would overflow the
	// 64-bit balance of the receiving account.
	ErrBalanceOverflow = errors.New("token ledger: balance overflow")
	// ErrAccountNotEmpty is returned when closing an account that still
	// holds a balance.
	ErrAccountNotEmpty = errors.New("token ledger: account not empty")
)
