// Package secp256k1 signs and recovers Ethereum-style recoverable
// signatures over Keccak-256 digests.
package secp256k1

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"

	secp256k1 "github.com/btcsuite/btcd/btcec"

	"github.com/plasmacash/plasma/crypto"
)

const (
	// PrivKeySize is the number of bytes in a PrivKey.
	PrivKeySize = 32

	// recoveryIDOffset is added to the recovery id stored in V.
	recoveryIDOffset = 27
)

// used to reject malleable signatures
// see:
//   - https://github.com/ethereum/go-ethereum/blob/f9401ae011ddf7f8d2d95020b7446c17f8d98dc1/crypto/signature_nocgo.go#L90-L93
//   - https://github.com/ethereum/go-ethereum/blob/f9401ae011ddf7f8d2d95020b7446c17f8d98dc1/crypto/crypto.go#L39
var secp256k1halfN = new(big.Int).Rsh(secp256k1.S256().N, 1)

// PrivKey is a 32-byte secp256k1 scalar.
type PrivKey [PrivKeySize]byte

// GenPrivKey generates a new key from the OS entropy source.
func GenPrivKey() PrivKey {
	return genPrivKey(rand.Reader)
}

// genPrivKey draws 32-byte candidates until one lies in [1, N).
func genPrivKey(rand io.Reader) PrivKey {
	var key PrivKey
	d := new(big.Int)
	for {
		if _, err := io.ReadFull(rand, key[:]); err != nil {
			panic(err)
		}
		d.SetBytes(key[:])
		if d.Sign() > 0 && d.Cmp(secp256k1.S256().N) < 0 {
			return key
		}
	}
}

// PrivKeyFromHex parses a hex-encoded (optionally 0x-prefixed) private key.
func PrivKeyFromHex(s string) (PrivKey, error) {
	var key PrivKey
	bz, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return key, fmt.Errorf("decoding private key: %w", err)
	}
	if len(bz) != PrivKeySize {
		return key, fmt.Errorf("private key must be %d bytes, got %d", PrivKeySize, len(bz))
	}
	d := new(big.Int).SetBytes(bz)
	if d.Sign() == 0 || d.Cmp(secp256k1.S256().N) >= 0 {
		return key, fmt.Errorf("private key out of range")
	}
	copy(key[:], bz)
	return key, nil
}

func (k PrivKey) Hex() string { return hex.EncodeToString(k[:]) }

// String never reveals the key material.
func (k PrivKey) String() string { return "PrivKeySecp256k1{...}" }

// Address returns the account address controlled by k.
func (k PrivKey) Address() crypto.Address {
	_, pub := secp256k1.PrivKeyFromBytes(secp256k1.S256(), k[:])
	return pubKeyToAddress(pub)
}

// Sign produces a recoverable signature over hash in lower-S form.
func (k PrivKey) Sign(hash crypto.Hash) (crypto.Signature, error) {
	var sig crypto.Signature
	priv, _ := secp256k1.PrivKeyFromBytes(secp256k1.S256(), k[:])
	// compact = [27 + recid] || R || S
	compact, err := secp256k1.SignCompact(secp256k1.S256(), priv, hash[:], false)
	if err != nil {
		return sig, fmt.Errorf("signing: %w", err)
	}
	copy(sig[:64], compact[1:])
	sig[64] = compact[0]
	return sig, nil
}

// RecoverAddress returns the address that produced sig over hash. The zero
// signature, a high-S signature or an unknown V yield ErrInvalidSignature.
func RecoverAddress(hash crypto.Hash, sig crypto.Signature) (crypto.Address, error) {
	if sig.IsZero() {
		return crypto.Address{}, crypto.ErrInvalidSignature
	}
	v := sig[64]
	if v != recoveryIDOffset && v != recoveryIDOffset+1 {
		return crypto.Address{}, fmt.Errorf("%w: bad recovery byte %d", crypto.ErrInvalidSignature, v)
	}
	// Reject malleable signatures. libsecp256k1 does this check but btcec doesn't.
	if new(big.Int).SetBytes(sig[32:64]).Cmp(secp256k1halfN) > 0 {
		return crypto.Address{}, fmt.Errorf("%w: high S value", crypto.ErrInvalidSignature)
	}

	compact := make([]byte, crypto.SignatureSize)
	compact[0] = v
	copy(compact[1:], sig[:64])
	pub, _, err := secp256k1.RecoverCompact(secp256k1.S256(), compact, hash[:])
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: %v", crypto.ErrInvalidSignature, err)
	}
	return pubKeyToAddress(pub), nil
}

func pubKeyToAddress(pub *secp256k1.PublicKey) crypto.Address {
	var addr crypto.Address
	uncompressed := pub.SerializeUncompressed()
	copy(addr[:], crypto.Keccak256(uncompressed[1:])[12:])
	return addr
}
