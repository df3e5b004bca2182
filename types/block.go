package types

import (
	"fmt"
	"sort"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/secp256k1"
	"github.com/plasmacash/plasma/crypto/smt"
)

// Block is an immutable set of transactions, at most one per slot, committed
// by the sparse Merkle tree of their hashes.
type Block struct {
	txs  []Transaction // sorted by slot
	sig  crypto.Signature
	tree *smt.Tree
}

// NewBlock returns an unsigned block holding txs.
func NewBlock(txs ...Transaction) (*Block, error) {
	sorted := append([]Transaction(nil), txs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot() < sorted[j].Slot() })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Slot() == sorted[i-1].Slot() {
			return nil, fmt.Errorf("%w: slot %d", ErrCoinAlreadyIncluded, sorted[i].Slot())
		}
	}
	return newBlock(sorted, crypto.Signature{})
}

// NewDepositBlock returns the block that records a single deposit.
func NewDepositBlock(tx Transaction) *Block {
	b, err := newBlock([]Transaction{tx}, crypto.Signature{})
	if err != nil {
		// a single leaf always fits
		panic(err)
	}
	return b
}

// newBlock expects txs sorted by slot with no duplicates.
func newBlock(txs []Transaction, sig crypto.Signature) (*Block, error) {
	leaves := make(map[uint64]crypto.Hash, len(txs))
	for _, tx := range txs {
		leaves[tx.Slot()] = tx.Hash()
	}
	tree, err := smt.New(smt.Depth, leaves)
	if err != nil {
		return nil, err
	}
	return &Block{txs: txs, sig: sig, tree: tree}, nil
}

// Transactions returns the block's transactions ordered by slot.
func (b *Block) Transactions() []Transaction {
	return append([]Transaction(nil), b.txs...)
}

// Len returns the number of transactions.
func (b *Block) Len() int { return len(b.txs) }

// Tx returns the transaction moving slot in this block.
func (b *Block) Tx(slot uint64) (Transaction, bool) {
	i := sort.Search(len(b.txs), func(i int) bool { return b.txs[i].Slot() >= slot })
	if i < len(b.txs) && b.txs[i].Slot() == slot {
		return b.txs[i], true
	}
	return Transaction{}, false
}

// Signature returns the authority signature, zero when unsigned.
func (b *Block) Signature() crypto.Signature { return b.sig }

// IsSigned reports whether the block carries an authority signature.
func (b *Block) IsSigned() bool { return !b.sig.IsZero() }

// UnsignedBytes returns the encoding covered by the block signature.
func (b *Block) UnsignedBytes() []byte {
	bz, err := encode(&blockBody{txs: b.txs, unsigned: true})
	if err != nil {
		panic(err)
	}
	return bz
}

// Hash is the digest the authority signs.
func (b *Block) Hash() crypto.Hash {
	return crypto.Keccak256Hash(b.UnsignedBytes())
}

// MerkleRoot is the value published to the root chain.
func (b *Block) MerkleRoot() crypto.Hash { return b.tree.Root() }

// Proof returns the inclusion or exclusion proof for slot.
func (b *Block) Proof(slot uint64) smt.Proof { return b.tree.CreateProof(slot) }

// Sign returns a signed copy of the block.
func (b *Block) Sign(signer Signer) (*Block, error) {
	sig, err := signer.Sign(b.Hash())
	if err != nil {
		return nil, fmt.Errorf("signing block: %w", err)
	}
	return &Block{txs: b.txs, sig: sig, tree: b.tree}, nil
}

// Signer recovers the address that signed the block.
func (b *Block) Signer() (crypto.Address, error) {
	addr, err := secp256k1.RecoverAddress(b.Hash(), b.sig)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: %v", ErrInvalidBlockSignature, err)
	}
	return addr, nil
}

// VerifySignature checks the block was signed by authority.
func (b *Block) VerifySignature(authority crypto.Address) error {
	addr, err := b.Signer()
	if err != nil {
		return err
	}
	if addr != authority {
		return fmt.Errorf("%w: signed by %s", ErrInvalidBlockSignature, addr)
	}
	return nil
}

// BlockBuilder accumulates the open block. It is not safe for concurrent
// use; the child chain serializes access to it.
type BlockBuilder struct {
	txs map[uint64]Transaction
}

func NewBlockBuilder() *BlockBuilder {
	return &BlockBuilder{txs: make(map[uint64]Transaction)}
}

// Add inserts tx, rejecting a second move of the same coin.
func (bb *BlockBuilder) Add(tx Transaction) error {
	if _, ok := bb.txs[tx.Slot()]; ok {
		return fmt.Errorf("%w: slot %d", ErrCoinAlreadyIncluded, tx.Slot())
	}
	bb.txs[tx.Slot()] = tx
	return nil
}

// Has reports whether slot already moved in the open block.
func (bb *BlockBuilder) Has(slot uint64) bool {
	_, ok := bb.txs[slot]
	return ok
}

func (bb *BlockBuilder) Len() int { return len(bb.txs) }

// Build snapshots the open block as an unsigned Block.
func (bb *BlockBuilder) Build() (*Block, error) {
	txs := make([]Transaction, 0, len(bb.txs))
	for _, tx := range bb.txs {
		txs = append(txs, tx)
	}
	return NewBlock(txs...)
}

// Sign builds and signs the open block.
func (bb *BlockBuilder) Sign(signer Signer) (*Block, error) {
	b, err := bb.Build()
	if err != nil {
		return nil, err
	}
	return b.Sign(signer)
}
