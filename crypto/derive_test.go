package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveAuthorityDeterministic(t *testing.T) {
	maker := BytesToAddress(bytes.Repeat([]byte{0x11}, AddressLength))

	addr1, nonce1, err := DeriveAuthority(NamespaceOffer, maker.Bytes(), Uint64Seed(7))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	addr2, nonce2, err := DeriveAuthority(NamespaceOffer, maker.Bytes(), Uint64Seed(7))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if addr1 != addr2 || nonce1 != nonce2 {
		t.Fatalf("derivation not deterministic: %s/%d vs %s/%d", addr1, nonce1, addr2, nonce2)
	}
	if addr1.IsZero() {
		t.Fatal("derived address must not be the zero address")
	}
}

func TestDeriveAuthorityDistinctIDs(t *testing.T) {
	maker := BytesToAddress(bytes.Repeat([]byte{0x22}, AddressLength))

	first, _, err := DeriveAuthority(NamespaceOffer, maker.Bytes(), Uint64Seed(1))
	if err != nil {
		t.Fatalf("derive id=1: %v", err)
	}
	second, _, err := DeriveAuthority(NamespaceOffer, maker.Bytes(), Uint64Seed(2))
	if err != nil {
		t.Fatalf("derive id=2: %v", err)
	}
	if first == second {
		t.Fatal("different ids must derive different addresses")
	}
}

func TestDeriveAuthorityNamespaceIsolation(t *testing.T) {
	maker := BytesToAddress(bytes.Repeat([]byte{0x33}, AddressLength))

	offerAddr, _, err := DeriveAuthority(NamespaceOffer, maker.Bytes(), Uint64Seed(9))
	if err != nil {
		t.Fatalf("derive offer: %v", err)
	}
	tokenAddr, _, err := DeriveAuthority(NamespaceToken, maker.Bytes(), Uint64Seed(9))
	if err != nil {
		t.Fatalf("derive token: %v", err)
	}
	if offerAddr == tokenAddr {
		t.Fatal("namespaces must not collide")
	}
}

func TestVerifyAuthority(t *testing.T) {
	maker := BytesToAddress(bytes.Repeat([]byte{0x44}, AddressLength))
	addr, nonce, err := DeriveAuthority(NamespaceOffer, maker.Bytes(), Uint64Seed(42))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	if !VerifyAuthority(addr, nonce, NamespaceOffer, maker.Bytes(), Uint64Seed(42)) {
		t.Fatal("verification of the original derivation must succeed")
	}
	if VerifyAuthority(addr, nonce, NamespaceOffer, maker.Bytes(), Uint64Seed(43)) {
		t.Fatal("verification against different seeds must fail")
	}
	if VerifyAuthority(addr, nonce+1, NamespaceOffer, maker.Bytes(), Uint64Seed(42)) {
		t.Fatal("verification with a wrong nonce must fail")
	}
	if VerifyAuthority(ZeroAddress, nonce, NamespaceOffer, maker.Bytes(), Uint64Seed(42)) {
		t.Fatal("the zero address must never verify")
	}
}
