package privval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/secp256k1"
)

func TestLoadOrGenFilePV(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "key.json")

	pv, err := LoadOrGenFilePV(keyFile)
	require.NoError(t, err)

	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	again, err := LoadOrGenFilePV(keyFile)
	require.NoError(t, err)
	assert.Equal(t, pv.Address(), again.Address())
}

func TestFilePVSign(t *testing.T) {
	pv := GenFilePV(filepath.Join(t.TempDir(), "key.json"))
	hash := crypto.Keccak256Hash([]byte("block"))

	sig, err := pv.Sign(hash)
	require.NoError(t, err)
	addr, err := secp256k1.RecoverAddress(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, pv.Address(), addr)
}

func TestLoadFilePVRejectsMismatchedAddress(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "key.json")
	other := secp256k1.GenPrivKey()
	data := `{"address": "` + other.Address().String() + `", "priv_key": "0x` + secp256k1.GenPrivKey().Hex() + `"}`
	require.NoError(t, os.WriteFile(keyFile, []byte(data), 0600))

	_, err := LoadFilePV(keyFile)
	assert.Error(t, err)
}

func TestSaveWithoutPath(t *testing.T) {
	pv := NewFilePV(secp256k1.GenPrivKey(), "")
	assert.Error(t, pv.Save())
}
