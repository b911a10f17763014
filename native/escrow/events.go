package escrow

import (
	"strconv"

	"swapd/core/types"
	"swapd/crypto"
)

const (
	EventTypeOfferMade     = "escrow.offer.made"
	EventTypeOfferTaken    = "escrow.offer.taken"
	EventTypeOfferRefunded = "escrow.offer.refunded"
)

// NewMadeEvent returns the canonical event payload for a newly made offer.
func NewMadeEvent(o *Offer) *types.Event {
	return newOfferEvent(EventTypeOfferMade, o, nil)
}

// NewTakenEvent returns the canonical event payload emitted when a taker
// settles the offer.
func NewTakenEvent(o *Offer, taker crypto.Address) *types.Event {
	return newOfferEvent(EventTypeOfferTaken, o, map[string]string{"taker": taker.Hex()})
}

// NewRefundedEvent returns the canonical event payload emitted when the maker
// cancels the offer.
func NewRefundedEvent(o *Offer) *types.Event {
	return newOfferEvent(EventTypeOfferRefunded, o, nil)
}

func newOfferEvent(eventType string, o *Offer, extra map[string]string) *types.Event {
	attrs := make(map[string]string)
	if o == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(o.ID, 10)
	attrs["maker"] = o.Maker.Hex()
	attrs["makerAsset"] = o.MakerAsset.Hex()
	attrs["takerAsset"] = o.TakerAsset.Hex()
	attrs["deposit"] = strconv.FormatUint(o.Deposit, 10)
	attrs["receive"] = strconv.FormatUint(o.Receive, 10)
	attrs["record"] = o.Address.Hex()
	attrs["vault"] = o.Vault.Hex()
	attrs["createdAt"] = strconv.FormatInt(o.CreatedAt, 10)
	for k, v := range extra {
		attrs[k] = v
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
