// Package smt implements the fixed-depth sparse Merkle tree that commits a
// block's transactions by coin slot.
//
// A tree of depth d has 2^d leaf positions. Absent subtrees are represented
// by precomputed default nodes, so building a tree costs O(d * n) for n
// present leaves. Proofs are an 8-byte big-endian bitmask followed by the
// sibling hashes that differ from the default node at their level, ordered
// from leaf to root. Bit i of the mask (least significant first) is set when
// the sibling at level i is present in the proof.
package smt

import (
	"errors"
	"fmt"
	"sort"

	"github.com/plasmacash/plasma/crypto"
)

// Depth is the tree depth used for coin slots throughout the system. The
// authority and every client must agree on it or proofs fail to verify.
const Depth = 64

var (
	// ErrInvalidDepth is returned for depths outside [1, 64].
	ErrInvalidDepth = errors.New("smt: depth must be between 1 and 64")

	// DefaultLeaf is the value of an empty leaf: keccak256 of 32 zero bytes.
	DefaultLeaf = crypto.Keccak256Hash(make([]byte, crypto.HashSize))

	defaultNodes = computeDefaultNodes()
)

// ErrTreeSizeExceeded is returned when more leaves are supplied than the tree
// has positions.
type ErrTreeSizeExceeded struct {
	Depth  int
	Leaves int
}

func (e ErrTreeSizeExceeded) Error() string {
	return fmt.Sprintf("smt: tree with depth %d could not have %d leaves", e.Depth, e.Leaves)
}

// ErrKeyOutOfRange is returned for a leaf key that does not fit the depth.
type ErrKeyOutOfRange struct {
	Depth int
	Key   uint64
}

func (e ErrKeyOutOfRange) Error() string {
	return fmt.Sprintf("smt: key %d does not fit a tree of depth %d", e.Key, e.Depth)
}

func computeDefaultNodes() [Depth + 1]crypto.Hash {
	var nodes [Depth + 1]crypto.Hash
	nodes[0] = DefaultLeaf
	for i := 1; i <= Depth; i++ {
		nodes[i] = crypto.Keccak256Hash(nodes[i-1][:], nodes[i-1][:])
	}
	return nodes
}

// DefaultNode returns the root of an empty subtree of the given height.
func DefaultNode(level int) crypto.Hash {
	return defaultNodes[level]
}

// EmptyRoot returns the root of a tree of the given depth with no leaves.
func EmptyRoot(depth int) crypto.Hash {
	return defaultNodes[depth]
}

// Tree is an immutable sparse Merkle tree. It is safe for concurrent reads.
type Tree struct {
	depth int
	// levels[0] holds the leaves, levels[depth] the root. Only materialized
	// (non-default) nodes are stored. nil for an empty tree.
	levels []map[uint64]crypto.Hash
	root   crypto.Hash
}

// New builds a tree of the given depth over leaves. The leaves map is copied.
func New(depth int, leaves map[uint64]crypto.Hash) (*Tree, error) {
	if depth < 1 || depth > Depth {
		return nil, ErrInvalidDepth
	}
	if depth < 64 {
		capacity := uint64(1) << uint(depth)
		if uint64(len(leaves)) > capacity {
			return nil, ErrTreeSizeExceeded{Depth: depth, Leaves: len(leaves)}
		}
		for key := range leaves {
			if key >= capacity {
				return nil, ErrKeyOutOfRange{Depth: depth, Key: key}
			}
		}
	}

	t := &Tree{depth: depth, root: defaultNodes[depth]}
	if len(leaves) == 0 {
		return t, nil
	}

	t.levels = make([]map[uint64]crypto.Hash, depth+1)
	t.levels[0] = make(map[uint64]crypto.Hash, len(leaves))
	for k, v := range leaves {
		t.levels[0][k] = v
	}
	for level := 0; level < depth; level++ {
		t.levels[level+1] = combineLevel(t.levels[level], defaultNodes[level])
	}
	t.root = t.levels[depth][0]
	return t, nil
}

// combineLevel hashes every materialized node with its sibling, substituting
// def for absent siblings.
func combineLevel(nodes map[uint64]crypto.Hash, def crypto.Hash) map[uint64]crypto.Hash {
	keys := make([]uint64, 0, len(nodes))
	for k := range nodes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	next := make(map[uint64]crypto.Hash, (len(nodes)+1)/2)
	for _, index := range keys {
		parent := index / 2
		if _, done := next[parent]; done {
			continue
		}
		value := nodes[index]
		if index%2 == 0 {
			right, ok := nodes[index+1]
			if !ok {
				right = def
			}
			next[parent] = crypto.Keccak256Hash(value[:], right[:])
		} else {
			// A present left sibling sorts first and was handled above.
			next[parent] = crypto.Keccak256Hash(def[:], value[:])
		}
	}
	return next
}

// Depth returns the depth the tree was built with.
func (t *Tree) Depth() int { return t.depth }

// Root returns the tree root.
func (t *Tree) Root() crypto.Hash { return t.root }

// Leaf returns the stored leaf for key.
func (t *Tree) Leaf(key uint64) (crypto.Hash, bool) {
	if t.levels == nil {
		return crypto.Hash{}, false
	}
	v, ok := t.levels[0][key]
	return v, ok
}

// Len returns the number of present leaves.
func (t *Tree) Len() int {
	if t.levels == nil {
		return 0
	}
	return len(t.levels[0])
}

// CreateProof returns the inclusion proof for key, or its exclusion proof
// when key has no leaf.
func (t *Tree) CreateProof(key uint64) Proof {
	var (
		bits     uint64
		siblings []crypto.Hash
	)
	if t.levels != nil {
		index := key
		for level := 0; level < t.depth; level++ {
			if sibling, ok := t.levels[level][index^1]; ok {
				bits |= 1 << uint(level)
				siblings = append(siblings, sibling)
			}
			index /= 2
		}
	}
	return NewProof(bits, siblings)
}

// Verify checks proof for key against root, using the tree's own leaf for
// key when present and the default leaf otherwise.
func (t *Tree) Verify(key uint64, proof Proof, root crypto.Hash) bool {
	leaf, ok := t.Leaf(key)
	if !ok {
		leaf = DefaultLeaf
	}
	return verify(t.depth, key, leaf, proof, root)
}
