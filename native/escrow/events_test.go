package escrow

import (
	"strconv"
	"testing"
)

func TestOfferEventAttributes(t *testing.T) {
	offer := validOffer(t)

	evt := NewMadeEvent(offer)
	if evt.Type != EventTypeOfferMade {
		t.Fatalf("unexpected type %s", evt.Type)
	}
	if evt.Attributes["id"] != strconv.FormatUint(offer.ID, 10) {
		t.Fatalf("id attribute: %v", evt.Attributes)
	}
	if evt.Attributes["maker"] != offer.Maker.Hex() {
		t.Fatalf("maker attribute: %v", evt.Attributes)
	}
	if evt.Attributes["vault"] != offer.Vault.Hex() {
		t.Fatalf("vault attribute: %v", evt.Attributes)
	}
	if evt.Attributes["deposit"] != "1000" || evt.Attributes["receive"] != "50" {
		t.Fatalf("amount attributes: %v", evt.Attributes)
	}
}

func TestTakenEventCarriesTaker(t *testing.T) {
	offer := validOffer(t)
	taker := offer.TakerAsset // any address works for the attribute check

	evt := NewTakenEvent(offer, taker)
	if evt.Type != EventTypeOfferTaken {
		t.Fatalf("unexpected type %s", evt.Type)
	}
	if evt.Attributes["taker"] != taker.Hex() {
		t.Fatalf("taker attribute: %v", evt.Attributes)
	}
}

func TestNilOfferEventIsEmpty(t *testing.T) {
	evt := NewRefundedEvent(nil)
	if evt.Type != EventTypeOfferRefunded {
		t.Fatalf("unexpected type %s", evt.Type)
	}
	if len(evt.Attributes) != 0 {
		t.Fatalf("nil offer must produce no attributes: %v", evt.Attributes)
	}
}
