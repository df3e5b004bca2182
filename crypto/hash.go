package crypto

import "golang.org/x/crypto/sha3"

// Keccak256 returns the legacy (pre-NIST) Keccak-256 digest of the
// concatenation of data.
func Keccak256(data ...[]byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	for _, b := range data {
		hasher.Write(b)
	}
	return hasher.Sum(nil)
}

// Keccak256Hash is Keccak256 returning a Hash.
func Keccak256Hash(data ...[]byte) (h Hash) {
	hasher := sha3.NewLegacyKeccak256()
	for _, b := range data {
		hasher.Write(b)
	}
	hasher.Sum(h[:0])
	return h
}
