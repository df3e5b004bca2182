package bytes

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a wrapper around []byte that encodes data as 0x-prefixed
// hexadecimal strings for use in JSON. Decoding is byte-exact.
type HexBytes []byte

// MarshalText encodes a HexBytes value as hexadecimal digits.
// This method is used by json.Marshal.
func (bz HexBytes) MarshalText() ([]byte, error) {
	return []byte(bz.String()), nil
}

// UnmarshalText handles decoding of HexBytes from JSON strings. The 0x
// prefix is optional.
func (bz *HexBytes) UnmarshalText(data []byte) error {
	input := strings.TrimPrefix(strings.TrimPrefix(string(data), "0x"), "0X")
	dec, err := hex.DecodeString(input)
	if err != nil {
		return fmt.Errorf("invalid hex bytes: %w", err)
	}
	*bz = HexBytes(dec)
	return nil
}

// Bytes returns the underlying byte slice.
func (bz HexBytes) Bytes() []byte {
	return bz
}

func (bz HexBytes) String() string {
	return "0x" + hex.EncodeToString(bz)
}

// Format writes either address of 0th element in a slice in base 16 notation,
// with leading 0x (%p), or casts HexBytes to bytes and writes as hexadecimal
// string to s.
func (bz HexBytes) Format(s fmt.State, verb rune) {
	switch verb {
	case 'p':
		s.Write([]byte(fmt.Sprintf("%p", bz)))
	default:
		s.Write([]byte(bz.String()))
	}
}
