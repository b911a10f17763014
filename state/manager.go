package state

import (
	"errors"
	"fmt"
	"sync"

	"swapd/crypto"
	"swapd/native/escrow"
	"swapd/native/token"
	"swapd/storage"
)

// keyedStore is the raw byte-level surface the typed accessors run over.
type keyedStore interface {
	get(key []byte) ([]byte, bool, error)
	put(key, value []byte) error
	delete(key []byte) error
}

// Manager is the persistent keyed storage for offers, custody accounts, asset
// definitions and native balances. It satisfies the state interfaces of both
// the escrow engine and the token ledger.
//
// Reads and writes on the Manager itself go straight to the database.
// Transact provides the atomicity the escrow protocol requires: mutations
// made through the transaction handle are buffered and land in a single
// database batch, or are discarded wholesale on error. The buffer is visible
// only through the handle, so concurrent readers never observe uncommitted
// state. Transactions are serialized, which is also what guarantees at most
// one of Take and Refund can observe a given record as present.
type Manager struct {
	store
	transactMu sync.Mutex
	db         storage.Database
}

// NewManager binds a state manager to a database.
func NewManager(db storage.Database) *Manager {
	return &Manager{store: store{kv: dbStore{db: db}}, db: db}
}

// Transact runs fn with every read seeing, and every write entering, the
// overlay of the passed transaction handle. When fn returns nil the overlay
// commits as one atomic batch; any error discards it with the database
// untouched. Transact must not be re-entered from within fn; a nested call
// deadlocks on its own transaction.
func (m *Manager) Transact(fn func(escrow.StateTx) error) error {
	m.transactMu.Lock()
	defer m.transactMu.Unlock()

	ov := &txOverlay{
		db:      m.db,
		pending: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
	tx := &Tx{store: store{kv: ov}}
	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(ov)
}

func (m *Manager) commit(ov *txOverlay) error {
	batch := new(storage.Batch)
	for key := range ov.deleted {
		batch.Delete([]byte(key))
	}
	for key, value := range ov.pending {
		batch.Put([]byte(key), value)
	}
	if batch.Len() == 0 {
		return nil
	}
	return m.db.Write(batch)
}

// Tx is the state handed to a transaction callback. All typed accessors on it
// operate on the transaction's private overlay.
type Tx struct {
	store
}

// dbStore reads and writes the database directly.
type dbStore struct {
	db storage.Database
}

func (d dbStore) get(key []byte) ([]byte, bool, error) {
	value, err := d.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (d dbStore) put(key, value []byte) error {
	return d.db.Put(key, value)
}

func (d dbStore) delete(key []byte) error {
	return d.db.Delete(key)
}

// txOverlay buffers one transaction's mutations over the database. It is
// owned by a single transaction callback and needs no locking of its own.
type txOverlay struct {
	db      storage.Database
	pending map[string][]byte
	deleted map[string]struct{}
}

func (o *txOverlay) get(key []byte) ([]byte, bool, error) {
	if _, gone := o.deleted[string(key)]; gone {
		return nil, false, nil
	}
	if value, ok := o.pending[string(key)]; ok {
		return value, true, nil
	}
	value, err := o.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (o *txOverlay) put(key, value []byte) error {
	delete(o.deleted, string(key))
	o.pending[string(key)] = append([]byte(nil), value...)
	return nil
}

func (o *txOverlay) delete(key []byte) error {
	delete(o.pending, string(key))
	o.deleted[string(key)] = struct{}{}
	return nil
}

// store implements the typed record accessors over a raw keyed backend. Both
// the Manager (direct database) and Tx (transaction overlay) embed it.
type store struct {
	kv keyedStore
}

// --- escrow engine state ---

// OfferGet loads the offer stored at a derived record address.
func (s store) OfferGet(addr crypto.Address) (*escrow.Offer, bool, error) {
	data, ok, err := s.kv.get(offerKey(addr))
	if err != nil || !ok {
		return nil, false, err
	}
	offer, err := decodeOffer(data)
	if err != nil {
		return nil, false, err
	}
	return offer, true, nil
}

// OfferPut persists an offer record at its derived address. Records are
// create-once; the engine checks occupancy before calling.
func (s store) OfferPut(offer *escrow.Offer) error {
	sanitized, err := escrow.SanitizeOffer(offer)
	if err != nil {
		return err
	}
	data, err := encodeOffer(sanitized)
	if err != nil {
		return err
	}
	return s.kv.put(offerKey(sanitized.Address), data)
}

// OfferDelete destroys the record at the given address, freeing the key for
// nothing: a consumed (maker, id) pair derives the same address forever.
func (s store) OfferDelete(addr crypto.Address) error {
	return s.kv.delete(offerKey(addr))
}

// --- token ledger state ---

func (s store) AccountGet(addr crypto.Address) (*token.Account, bool, error) {
	data, ok, err := s.kv.get(accountKey(addr))
	if err != nil || !ok {
		return nil, false, err
	}
	acct, err := decodeAccount(data)
	if err != nil {
		return nil, false, err
	}
	return acct, true, nil
}

func (s store) AccountPut(acct *token.Account) error {
	if acct == nil {
		return fmt.Errorf("state: nil account")
	}
	data, err := encodeAccount(acct)
	if err != nil {
		return err
	}
	return s.kv.put(accountKey(acct.Address), data)
}

func (s store) AccountDelete(addr crypto.Address) error {
	return s.kv.delete(accountKey(addr))
}

func (s store) AssetGet(addr crypto.Address) (*token.Asset, bool, error) {
	data, ok, err := s.kv.get(assetKey(addr))
	if err != nil || !ok {
		return nil, false, err
	}
	asset, err := decodeAsset(data)
	if err != nil {
		return nil, false, err
	}
	return asset, true, nil
}

func (s store) AssetPut(asset *token.Asset) error {
	if asset == nil {
		return fmt.Errorf("state: nil asset")
	}
	data, err := encodeAsset(asset)
	if err != nil {
		return err
	}
	return s.kv.put(assetKey(asset.Address), data)
}

// NativeBalance reports the native (rent) balance of an address; absent keys
// read as zero.
func (s store) NativeBalance(addr crypto.Address) (uint64, error) {
	data, ok, err := s.kv.get(nativeKey(addr))
	if err != nil || !ok {
		return 0, err
	}
	return decodeNative(data)
}

// NativeSet stores the native balance of an address.
func (s store) NativeSet(addr crypto.Address, amount uint64) error {
	if amount == 0 {
		return s.kv.delete(nativeKey(addr))
	}
	return s.kv.put(nativeKey(addr), encodeNative(amount))
}
