// Package privval stores the secp256k1 key of an authority or participant
// in a JSON file and signs with it.
package privval

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/creachadair/atomicfile"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/secp256k1"
	"github.com/plasmacash/plasma/types"
)

var _ types.Signer = (*FilePV)(nil)

// FilePVKey is the JSON form of a key file.
type FilePVKey struct {
	Address crypto.Address `json:"address"`
	PrivKey string         `json:"priv_key"`

	filePath string
}

// FilePV implements types.Signer with a key persisted to disk.
type FilePV struct {
	key      secp256k1.PrivKey
	filePath string
}

// NewFilePV returns a FilePV for key that saves to keyFilePath.
func NewFilePV(key secp256k1.PrivKey, keyFilePath string) *FilePV {
	return &FilePV{key: key, filePath: keyFilePath}
}

// GenFilePV generates a new key. Call Save to persist it.
func GenFilePV(keyFilePath string) *FilePV {
	return NewFilePV(secp256k1.GenPrivKey(), keyFilePath)
}

// LoadFilePV reads a key file. The stored address must match the key.
func LoadFilePV(keyFilePath string) (*FilePV, error) {
	bz, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	var pvKey FilePVKey
	if err := json.Unmarshal(bz, &pvKey); err != nil {
		return nil, fmt.Errorf("error reading key from %v: %w", keyFilePath, err)
	}
	key, err := secp256k1.PrivKeyFromHex(pvKey.PrivKey)
	if err != nil {
		return nil, fmt.Errorf("error reading key from %v: %w", keyFilePath, err)
	}
	if !pvKey.Address.IsZero() && pvKey.Address != key.Address() {
		return nil, fmt.Errorf("key file %v: address %v does not match key", keyFilePath, pvKey.Address)
	}
	return NewFilePV(key, keyFilePath), nil
}

// LoadOrGenFilePV loads the key at keyFilePath, or generates and saves a
// new one if the file does not exist.
func LoadOrGenFilePV(keyFilePath string) (*FilePV, error) {
	if _, err := os.Stat(keyFilePath); err == nil {
		return LoadFilePV(keyFilePath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	pv := GenFilePV(keyFilePath)
	if err := pv.Save(); err != nil {
		return nil, err
	}
	return pv, nil
}

// Save writes the key file atomically, readable only by the owner.
func (pv *FilePV) Save() error {
	if pv.filePath == "" {
		return errors.New("cannot save key: filePath not set")
	}
	data, err := json.MarshalIndent(pv.Key(), "", "  ")
	if err != nil {
		return err
	}
	_, err = atomicfile.WriteAll(pv.filePath, bytes.NewReader(data), 0600)
	return err
}

// Key returns the key in its file form.
func (pv *FilePV) Key() FilePVKey {
	return FilePVKey{
		Address:  pv.key.Address(),
		PrivKey:  "0x" + pv.key.Hex(),
		filePath: pv.filePath,
	}
}

// Address returns the address controlled by the key.
func (pv *FilePV) Address() crypto.Address { return pv.key.Address() }

// Sign implements types.Signer.
func (pv *FilePV) Sign(hash crypto.Hash) (crypto.Signature, error) { return pv.key.Sign(hash) }

// String returns a string representation of the FilePV.
func (pv *FilePV) String() string {
	return fmt.Sprintf("PrivValidator{%v}", pv.Address())
}
