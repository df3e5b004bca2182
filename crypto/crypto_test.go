package crypto

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeccak256KnownVectors(t *testing.T) {
	require.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(Keccak256()))
	require.Equal(t,
		"290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563",
		hex.EncodeToString(Keccak256(make([]byte, 32))))
}

func TestKeccak256HashMatchesSlice(t *testing.T) {
	a, b := []byte("plasma"), []byte("cash")
	require.Equal(t, Keccak256(a, b), Keccak256Hash(a, b).Bytes())
	require.Equal(t, Keccak256([]byte("plasmacash")), Keccak256(a, b))
}

func TestAddressText(t *testing.T) {
	addr, err := HexToAddress("0x5aeda56215b167893e80b4fe645ba6d5bab767de")
	require.NoError(t, err)
	require.Equal(t, "0x5aeda56215b167893e80b4fe645ba6d5bab767de", addr.String())

	bz, err := json.Marshal(addr)
	require.NoError(t, err)
	var back Address
	require.NoError(t, json.Unmarshal(bz, &back))
	require.Equal(t, addr, back)

	_, err = HexToAddress("0x1234")
	require.Error(t, err)
	_, err = HexToAddress("zz" + hex.EncodeToString(make([]byte, 19)))
	require.Error(t, err)
}

func TestBytesToHash(t *testing.T) {
	h := BytesToHash([]byte{1, 2})
	require.Equal(t, byte(1), h[30])
	require.Equal(t, byte(2), h[31])
	require.False(t, h.IsZero())
	require.True(t, Hash{}.IsZero())
}

func TestSignatureZero(t *testing.T) {
	var sig Signature
	require.True(t, sig.IsZero())
	sig[64] = 27
	require.False(t, sig.IsZero())
}
