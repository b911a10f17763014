package escrow

import (
	"fmt"
	"time"

	"swapd/core/events"
	"swapd/core/types"
	"swapd/crypto"
	"swapd/native/token"
)

// StateTx is the state surface a single transition operates on. Everything
// read or written through one StateTx belongs to one atomic unit; the buffer
// behind it is invisible to any other reader until it commits.
type StateTx interface {
	token.State
	OfferGet(addr crypto.Address) (*Offer, bool, error)
	OfferPut(offer *Offer) error
	OfferDelete(addr crypto.Address) error
}

type engineState interface {
	StateTx
	// Transact runs fn against a buffered transaction handle; the
	// mutations land atomically when fn returns nil and are discarded
	// otherwise.
	Transact(fn func(StateTx) error) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine implements the three escrow transitions over a transactional state
// backend. Every public transition runs as a single atomic unit: all balance
// movement, record creation or destruction and vault closure of one call
// commit together or not at all.
type Engine struct {
	state   engineState
	ledger  *token.Ledger
	emitter events.Emitter
	rent    uint64
	nowFn   func() int64
}

// NewEngine creates an escrow engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		rent:    token.DefaultRentDeposit,
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine and rebinds the
// token ledger to it.
func (e *Engine) SetState(state engineState) {
	e.state = state
	if state == nil {
		e.ledger = nil
		return
	}
	e.ledger = token.NewLedger(state)
	e.ledger.SetRentDeposit(e.rent)
}

// SetRentDeposit overrides the storage deposit charged for offer records and
// custody accounts.
func (e *Engine) SetRentDeposit(rent uint64) {
	e.rent = rent
	if e.ledger != nil {
		e.ledger.SetRentDeposit(rent)
	}
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Ledger exposes the engine's token ledger for genesis fixtures and the
// gateway's asset administration endpoints.
func (e *Engine) Ledger() *token.Ledger {
	return e.ledger
}

// ledgerFor binds a throwaway ledger to a transaction handle so token
// movement inside a transition shares the transition's buffer.
func (e *Engine) ledgerFor(tx StateTx) *token.Ledger {
	ledger := token.NewLedger(tx)
	ledger.SetRentDeposit(e.rent)
	return ledger
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Get loads an offer by (maker, id) without taking part in any transition.
func (e *Engine) Get(maker crypto.Address, id uint64) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	recordAddr, _, err := RecordAddress(maker, id)
	if err != nil {
		return nil, err
	}
	offer, ok, err := e.state.OfferGet(recordAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return offer.Clone(), nil
}

// Make locks deposit units of makerAsset into a freshly derived vault and
// persists the offer record describing the demanded exchange. The caller must
// be the maker; the deposit leaves the maker's associated account within the
// same atomic unit that creates the record, so a failed Make moves nothing.
func (e *Engine) Make(maker crypto.Address, id uint64, makerAsset, takerAsset crypto.Address, deposit, receive uint64) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if maker.IsZero() {
		return nil, fmt.Errorf("%w: maker is the zero address", ErrUnauthorized)
	}
	if deposit == 0 || receive == 0 {
		return nil, ErrInvalidAmount
	}
	if makerAsset == takerAsset {
		return nil, fmt.Errorf("%w: maker and taker asset are identical", ErrAssetMismatch)
	}
	var made *Offer
	err := e.state.Transact(func(tx StateTx) error {
		ledger := e.ledgerFor(tx)
		recordAddr, nonce, err := RecordAddress(maker, id)
		if err != nil {
			return err
		}
		if _, ok, err := tx.OfferGet(recordAddr); err != nil {
			return err
		} else if ok {
			return ErrOfferExists
		}
		if _, err := ledger.Asset(makerAsset); err != nil {
			return fmt.Errorf("escrow: maker asset: %w", err)
		}
		if _, err := ledger.Asset(takerAsset); err != nil {
			return fmt.Errorf("escrow: taker asset: %w", err)
		}
		sourceAddr, _, err := token.AssociatedAddress(maker, makerAsset)
		if err != nil {
			return err
		}
		// Record storage deposit comes out of the maker's native
		// balance, returned when the record is destroyed.
		if err := ledger.DebitNative(maker, e.rent); err != nil {
			return fmt.Errorf("escrow: record deposit: %w", err)
		}
		vault, err := ledger.EnsureAccount(recordAddr, makerAsset, maker)
		if err != nil {
			return fmt.Errorf("escrow: vault: %w", err)
		}
		if err := ledger.Transfer(deposit, makerAsset, sourceAddr, vault.Address, maker); err != nil {
			return fmt.Errorf("escrow: deposit: %w", err)
		}
		offer := &Offer{
			ID:         id,
			Maker:      maker,
			MakerAsset: makerAsset,
			TakerAsset: takerAsset,
			Deposit:    deposit,
			Receive:    receive,
			Address:    recordAddr,
			Vault:      vault.Address,
			Nonce:      nonce,
			Rent:       e.rent,
			CreatedAt:  e.now(),
		}
		if err := tx.OfferPut(offer); err != nil {
			return err
		}
		made = offer.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(NewMadeEvent(made))
	return made, nil
}

// Take settles the offer atomically: the taker pays the demanded amount of
// the taker asset to the maker, receives the vault's entire deposit, and the
// vault and record are destroyed. The taker presents the asset identities it
// expects; any mismatch with the record aborts before a single unit moves.
func (e *Engine) Take(taker, maker crypto.Address, id uint64, makerAsset, takerAsset crypto.Address) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if taker.IsZero() {
		return nil, fmt.Errorf("%w: taker is the zero address", ErrUnauthorized)
	}
	var taken *Offer
	err := e.state.Transact(func(tx StateTx) error {
		ledger := e.ledgerFor(tx)
		offer, err := loadVerified(tx, maker, id)
		if err != nil {
			return err
		}
		if offer.MakerAsset != makerAsset || offer.TakerAsset != takerAsset {
			return ErrAssetMismatch
		}
		vaultBalance, err := ledger.Balance(offer.Vault)
		if err != nil {
			return fmt.Errorf("escrow: vault: %w", err)
		}
		if vaultBalance != offer.Deposit {
			return ErrVaultImbalance
		}
		takerSource, _, err := token.AssociatedAddress(taker, offer.TakerAsset)
		if err != nil {
			return err
		}
		makerReceive, err := ledger.EnsureAccount(maker, offer.TakerAsset, taker)
		if err != nil {
			return fmt.Errorf("escrow: maker receiving account: %w", err)
		}
		if err := ledger.Transfer(offer.Receive, offer.TakerAsset, takerSource, makerReceive.Address, taker); err != nil {
			return fmt.Errorf("escrow: taker payment: %w", err)
		}
		takerReceive, err := ledger.EnsureAccount(taker, offer.MakerAsset, taker)
		if err != nil {
			return fmt.Errorf("escrow: taker receiving account: %w", err)
		}
		// The vault leg is authorized by the derived record address,
		// never by a human signer.
		if err := ledger.Transfer(vaultBalance, offer.MakerAsset, offer.Vault, takerReceive.Address, offer.Address); err != nil {
			return fmt.Errorf("escrow: vault release: %w", err)
		}
		if err := ledger.Close(offer.Vault, taker, offer.Address); err != nil {
			return fmt.Errorf("escrow: vault close: %w", err)
		}
		if err := ledger.CreditNative(offer.Maker, offer.Rent); err != nil {
			return err
		}
		if err := tx.OfferDelete(offer.Address); err != nil {
			return err
		}
		taken = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(NewTakenEvent(taken, taker))
	return taken, nil
}

// Refund cancels the offer: the vault's entire balance returns to the maker's
// associated account, the vault and record are destroyed and their storage
// deposits refunded. Only the stored maker may invoke it.
func (e *Engine) Refund(caller, maker crypto.Address, id uint64) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var refunded *Offer
	err := e.state.Transact(func(tx StateTx) error {
		ledger := e.ledgerFor(tx)
		offer, err := loadVerified(tx, maker, id)
		if err != nil {
			return err
		}
		if caller != offer.Maker {
			return ErrUnauthorized
		}
		vaultBalance, err := ledger.Balance(offer.Vault)
		if err != nil {
			return fmt.Errorf("escrow: vault: %w", err)
		}
		if vaultBalance != offer.Deposit {
			return ErrVaultImbalance
		}
		makerReceive, err := ledger.EnsureAccount(offer.Maker, offer.MakerAsset, offer.Maker)
		if err != nil {
			return fmt.Errorf("escrow: maker receiving account: %w", err)
		}
		if err := ledger.Transfer(vaultBalance, offer.MakerAsset, offer.Vault, makerReceive.Address, offer.Address); err != nil {
			return fmt.Errorf("escrow: vault refund: %w", err)
		}
		if err := ledger.Close(offer.Vault, offer.Maker, offer.Address); err != nil {
			return fmt.Errorf("escrow: vault close: %w", err)
		}
		if err := ledger.CreditNative(offer.Maker, offer.Rent); err != nil {
			return err
		}
		if err := tx.OfferDelete(offer.Address); err != nil {
			return err
		}
		refunded = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(NewRefundedEvent(refunded))
	return refunded, nil
}

// loadVerified loads the offer for (maker, id) and re-verifies the stored
// record against its derivation nonce before any transition trusts it.
func loadVerified(tx StateTx, maker crypto.Address, id uint64) (*Offer, error) {
	recordAddr, _, err := RecordAddress(maker, id)
	if err != nil {
		return nil, err
	}
	offer, ok, err := tx.OfferGet(recordAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if offer.Maker != maker || offer.ID != id {
		return nil, ErrDerivation
	}
	if !crypto.VerifyAuthority(offer.Address, offer.Nonce, crypto.NamespaceOffer, offer.Maker.Bytes(), crypto.Uint64Seed(offer.ID)) {
		return nil, ErrDerivation
	}
	return offer.Clone(), nil
}
