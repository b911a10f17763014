package state

import "swapd/crypto"

// Key prefixes partition the flat key-value store into typed namespaces.
const (
	prefixOffer   = "offer/"
	prefixAccount = "token/"
	prefixAsset   = "asset/"
	prefixNative  = "native/"
)

func offerKey(addr crypto.Address) []byte {
	return append([]byte(prefixOffer), addr.Bytes()...)
}

func accountKey(addr crypto.Address) []byte {
	return append([]byte(prefixAccount), addr.Bytes()...)
}

func assetKey(addr crypto.Address) []byte {
	return append([]byte(prefixAsset), addr.Bytes()...)
}

func nativeKey(addr crypto.Address) []byte {
	return append([]byte(prefixNative), addr.Bytes()...)
}
