package escrow

import "errors"

var (
	// ErrNilState is returned when the engine is used before a state
	// backend is configured.
	ErrNilState = errors.New("escrow engine: state not configured")
	// ErrNotFound is returned when the referenced offer does not exist,
	// either because it was never made or already consumed by Take or
	// Refund.
	ErrNotFound = errors.New("escrow engine: offer not found")
	// ErrOfferExists is returned when Make targets a (maker, id) pair whose
	// record address is already occupied.
	ErrOfferExists = errors.New("escrow engine: offer id already in use")
	// ErrUnauthorized is returned when the caller is not the identity a
	// transition requires.
	ErrUnauthorized = errors.New("escrow engine: caller not authorized")
	// ErrAssetMismatch is returned when the asset identities presented to
	// Take do not match the ones recorded at Make time.
	ErrAssetMismatch = errors.New("escrow engine: presented assets do not match offer")
	// ErrInvalidAmount is returned when a transition is given a zero
	// amount.
	ErrInvalidAmount = errors.New("escrow engine: amount must be positive")
	// ErrVaultImbalance is returned when the vault's live balance differs
	// from the deposit recorded at Make time.
	ErrVaultImbalance = errors.New("escrow engine: vault balance does not match recorded deposit")
	// ErrDerivation is returned when a stored record fails re-verification
	// against its derivation nonce.
	ErrDerivation = errors.New("escrow engine: record failed derivation check")
)
