package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// HashSize is the size in bytes of a Keccak-256 digest.
	HashSize = 32

	// AddressSize is the size of an account address.
	AddressSize = 20

	// SignatureSize is the size of a recoverable signature: R || S || V.
	SignatureSize = 65
)

// ErrInvalidSignature is returned when a signature is the all-zero sentinel,
// is malformed, or does not recover to a public key.
var ErrInvalidSignature = errors.New("invalid signature")

// Hash is a 32-byte Keccak-256 digest.
type Hash [HashSize]byte

// BytesToHash left-pads or truncates b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashSize {
		b = b[len(b)-HashSize:]
	}
	copy(h[HashSize-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) IsZero() bool   { return h == Hash{} }
func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(text []byte) error {
	return decodeFixedHex(text, h[:], "hash")
}

// Address identifies an account: the last 20 bytes of the Keccak-256 hash of
// its uncompressed secp256k1 public key.
type Address [AddressSize]byte

// HexToAddress parses a 0x-prefixed or bare hex address.
func HexToAddress(s string) (Address, error) {
	var a Address
	err := decodeFixedHex([]byte(s), a[:], "address")
	return a, err
}

func (a Address) Bytes() []byte  { return a[:] }
func (a Address) IsZero() bool   { return a == Address{} }
func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	return decodeFixedHex(text, a[:], "address")
}

// Signature is a recoverable secp256k1 signature laid out as R || S || V with
// V in {27, 28}. The zero value means "unsigned".
type Signature [SignatureSize]byte

func (s Signature) Bytes() []byte  { return s[:] }
func (s Signature) IsZero() bool   { return s == Signature{} }
func (s Signature) String() string { return "0x" + hex.EncodeToString(s[:]) }

func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signature) UnmarshalText(text []byte) error {
	return decodeFixedHex(text, s[:], "signature")
}

func decodeFixedHex(text []byte, dst []byte, what string) error {
	str := strings.TrimPrefix(strings.TrimPrefix(string(text), "0x"), "0X")
	if len(str) != 2*len(dst) {
		return fmt.Errorf("%s: want %d bytes, got %d hex chars", what, len(dst), len(str))
	}
	if _, err := hex.Decode(dst, []byte(str)); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
