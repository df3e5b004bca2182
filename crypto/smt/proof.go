package smt

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"

	"github.com/plasmacash/plasma/crypto"
)

// bitmaskSize is the length of the proof header.
const bitmaskSize = 8

// Proof is the wire form of a Merkle proof: an 8-byte big-endian bitmask
// followed by the present sibling hashes from leaf to root. Proof bytes are
// opaque to transports and must be carried byte-exact.
type Proof []byte

// EmptyProof is the proof attached to deposit blocks, which are not merklized.
var EmptyProof = Proof(make([]byte, bitmaskSize))

// NewProof assembles a proof from its parts.
func NewProof(mask uint64, siblings []crypto.Hash) Proof {
	p := make(Proof, bitmaskSize, bitmaskSize+len(siblings)*crypto.HashSize)
	binary.BigEndian.PutUint64(p, mask)
	for _, s := range siblings {
		p = append(p, s[:]...)
	}
	return p
}

// Bitmask returns the presence mask, or 0 for a short proof.
func (p Proof) Bitmask() uint64 {
	if len(p) < bitmaskSize {
		return 0
	}
	return binary.BigEndian.Uint64(p[:bitmaskSize])
}

// Siblings returns the hashes carried by the proof.
func (p Proof) Siblings() []crypto.Hash {
	if len(p) < bitmaskSize {
		return nil
	}
	body := p[bitmaskSize:]
	out := make([]crypto.Hash, 0, len(body)/crypto.HashSize)
	for len(body) >= crypto.HashSize {
		out = append(out, crypto.BytesToHash(body[:crypto.HashSize]))
		body = body[crypto.HashSize:]
	}
	return out
}

// ValidateBasic checks the proof is well formed for a tree of the given depth.
func (p Proof) ValidateBasic(depth int) error {
	if len(p) < bitmaskSize {
		return fmt.Errorf("smt: proof of %d bytes is shorter than the bitmask", len(p))
	}
	if (len(p)-bitmaskSize)%crypto.HashSize != 0 {
		return fmt.Errorf("smt: proof body of %d bytes is not a multiple of %d", len(p)-bitmaskSize, crypto.HashSize)
	}
	mask := p.Bitmask()
	if depth < 64 && mask>>uint(depth) != 0 {
		return fmt.Errorf("smt: bitmask %#x has bits above depth %d", mask, depth)
	}
	if want := bits.OnesCount64(mask); want != (len(p)-bitmaskSize)/crypto.HashSize {
		return fmt.Errorf("smt: bitmask announces %d siblings, proof carries %d",
			want, (len(p)-bitmaskSize)/crypto.HashSize)
	}
	return nil
}

func (p Proof) String() string { return hex.EncodeToString(p) }

func (p Proof) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(p)), nil
}

func (p *Proof) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	bz, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("smt: decoding proof: %w", err)
	}
	*p = bz
	return nil
}

// VerifyInclusion reports whether proof shows leaf at key under root in a
// tree of depth Depth.
func VerifyInclusion(key uint64, leaf crypto.Hash, proof Proof, root crypto.Hash) bool {
	return verify(Depth, key, leaf, proof, root)
}

// VerifyExclusion reports whether proof shows key is empty under root in a
// tree of depth Depth.
func VerifyExclusion(key uint64, proof Proof, root crypto.Hash) bool {
	return verify(Depth, key, DefaultLeaf, proof, root)
}

// ComputeRoot folds proof into leaf and returns the implied root.
func ComputeRoot(depth int, key uint64, leaf crypto.Hash, proof Proof) (crypto.Hash, error) {
	if depth < 1 || depth > Depth {
		return crypto.Hash{}, ErrInvalidDepth
	}
	if err := proof.ValidateBasic(depth); err != nil {
		return crypto.Hash{}, err
	}
	mask := proof.Bitmask()
	body := proof[bitmaskSize:]
	computed := leaf
	index := key
	for level := 0; level < depth; level++ {
		var sibling crypto.Hash
		if mask&1 == 0 {
			sibling = defaultNodes[level]
		} else {
			copy(sibling[:], body[:crypto.HashSize])
			body = body[crypto.HashSize:]
		}
		if index%2 == 0 {
			computed = crypto.Keccak256Hash(computed[:], sibling[:])
		} else {
			computed = crypto.Keccak256Hash(sibling[:], computed[:])
		}
		index /= 2
		mask >>= 1
	}
	return computed, nil
}

func verify(depth int, key uint64, leaf crypto.Hash, proof Proof, root crypto.Hash) bool {
	computed, err := ComputeRoot(depth, key, leaf, proof)
	if err != nil {
		return false
	}
	return computed == root
}
