package secp256k1

import (
	"bytes"
	"math/big"
	"testing"

	secp256k1 "github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/require"

	"github.com/plasmacash/plasma/crypto"
)

func Test_genPrivKey(t *testing.T) {
	empty := make([]byte, 32)
	oneB := big.NewInt(1).Bytes()
	onePadded := make([]byte, 32)
	copy(onePadded[32-len(oneB):32], oneB)

	// The zero scalar is skipped and the next candidate is used.
	got := genPrivKey(bytes.NewReader(append(empty, onePadded...)))
	fe := new(big.Int).SetBytes(got[:])
	require.Equal(t, int64(1), fe.Int64())

	// N itself is out of range.
	nPadded := make([]byte, 32)
	nB := secp256k1.S256().N.Bytes()
	copy(nPadded[32-len(nB):], nB)
	got = genPrivKey(bytes.NewReader(append(nPadded, onePadded...)))
	require.Equal(t, int64(1), new(big.Int).SetBytes(got[:]).Int64())
}

// Known vector: private key 1 controls 0x7e5f4552091a69125d5dfcb7b8c2659029395bdf.
func TestAddressKnownVector(t *testing.T) {
	key, err := PrivKeyFromHex("0x0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	require.Equal(t, "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf", key.Address().String())
}

func TestSignRecover(t *testing.T) {
	hash := crypto.Keccak256Hash([]byte("We have lingered long enough on the shores of the cosmic ocean."))
	for i := 0; i < 50; i++ {
		priv := GenPrivKey()
		sig, err := priv.Sign(hash)
		require.NoError(t, err)
		require.False(t, new(big.Int).SetBytes(sig[32:64]).Cmp(secp256k1halfN) > 0)

		addr, err := RecoverAddress(hash, sig)
		require.NoError(t, err)
		require.Equal(t, priv.Address(), addr)
	}
}

func TestRecoverRejectsZeroAndMalleated(t *testing.T) {
	hash := crypto.Keccak256Hash([]byte("msg"))
	_, err := RecoverAddress(hash, crypto.Signature{})
	require.ErrorIs(t, err, crypto.ErrInvalidSignature)

	priv := GenPrivKey()
	sig, err := priv.Sign(hash)
	require.NoError(t, err)

	// malleate: s' = N - s, flip recovery id
	s := new(big.Int).SetBytes(sig[32:64])
	s.Sub(secp256k1.S256().N, s)
	mal := sig
	sBytes := s.Bytes()
	copy(mal[32:64], make([]byte, 32))
	copy(mal[64-len(sBytes):64], sBytes)
	mal[64] ^= 1
	_, err = RecoverAddress(hash, mal)
	require.ErrorIs(t, err, crypto.ErrInvalidSignature)

	bad := sig
	bad[64] = 3
	_, err = RecoverAddress(hash, bad)
	require.ErrorIs(t, err, crypto.ErrInvalidSignature)
}

func TestRecoverDifferentHash(t *testing.T) {
	priv := GenPrivKey()
	sig, err := priv.Sign(crypto.Keccak256Hash([]byte("a")))
	require.NoError(t, err)
	addr, err := RecoverAddress(crypto.Keccak256Hash([]byte("b")), sig)
	if err == nil {
		require.NotEqual(t, priv.Address(), addr)
	}
}

func TestPrivKeyFromHex(t *testing.T) {
	priv := GenPrivKey()
	back, err := PrivKeyFromHex(priv.Hex())
	require.NoError(t, err)
	require.Equal(t, priv, back)

	_, err = PrivKeyFromHex("00")
	require.Error(t, err)
	_, err = PrivKeyFromHex("0x" + string(bytes.Repeat([]byte("0"), 64)))
	require.Error(t, err)
	require.NotContains(t, priv.String(), priv.Hex())
}
