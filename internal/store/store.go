package store

import (
	"fmt"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/plasmacash/plasma/types"
)

/*
BlockStore is the durable state of the authority.

There are four kinds of records:
  - Block:   every committed block, checkpoints and deposits alike, keyed by number
  - Spent:   one marker per (block, slot) whose transaction has been spent
  - Pending: the transactions of the open block, keyed by slot
  - Meta:    the latest checkpoint number and the latest one published

Committed blocks are never rewritten. The open block is rebuilt from the
pending records on restart.

NOTE: BlockStore methods panic if they encounter errors decoding loaded
data, indicating probable corruption on disk.
*/
type BlockStore struct {
	db dbm.DB
}

// NewBlockStore returns a BlockStore backed by db.
func NewBlockStore(db dbm.DB) *BlockStore {
	return &BlockStore{db: db}
}

// Height returns the latest committed checkpoint number, or 0 when none
// was committed.
func (bs *BlockStore) Height() uint64 {
	return bs.loadMeta(metaHeight)
}

// Published returns the latest checkpoint whose root reached the root
// chain.
func (bs *BlockStore) Published() uint64 {
	return bs.loadMeta(metaPublished)
}

// SetPublished records that every checkpoint up to n reached the root chain.
func (bs *BlockStore) SetPublished(n uint64) error {
	return bs.db.SetSync(metaKey(metaPublished), encodeUint(n))
}

func (bs *BlockStore) loadMeta(which int64) uint64 {
	bz, err := bs.db.Get(metaKey(which))
	if err != nil {
		panic(err)
	}
	if len(bz) == 0 {
		return 0
	}
	var n uint64
	if rest, err := orderedcode.Parse(string(bz), &n); err != nil || len(rest) != 0 {
		panic(fmt.Errorf("corrupt meta record %d: %x", which, bz))
	}
	return n
}

// HasBlock reports whether block n was committed.
func (bs *BlockStore) HasBlock(n uint64) bool {
	ok, err := bs.db.Has(blockKey(n))
	if err != nil {
		panic(err)
	}
	return ok
}

// LoadBlock returns block n, or nil when it was never committed.
func (bs *BlockStore) LoadBlock(n uint64) *types.Block {
	bz, err := bs.db.Get(blockKey(n))
	if err != nil {
		panic(err)
	}
	if len(bz) == 0 {
		return nil
	}
	block, err := types.DecodeBlock(bz)
	if err != nil {
		panic(fmt.Errorf("block %d: %w", n, err))
	}
	return block
}

// SaveDeposit commits the single-transaction block of a deposit.
func (bs *BlockStore) SaveDeposit(n uint64, block *types.Block) error {
	if !types.IsDepositBlock(n) {
		return fmt.Errorf("block %d is a checkpoint", n)
	}
	bz, err := block.MarshalBinary()
	if err != nil {
		return err
	}
	return bs.db.SetSync(blockKey(n), bz)
}

// CommitBlock commits checkpoint n and empties the open block.
func (bs *BlockStore) CommitBlock(n uint64, block *types.Block) error {
	if types.IsDepositBlock(n) {
		return fmt.Errorf("block %d is not a checkpoint", n)
	}
	bz, err := block.MarshalBinary()
	if err != nil {
		return err
	}

	batch := bs.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(blockKey(n), bz); err != nil {
		return err
	}
	for _, tx := range bs.LoadPending() {
		if err := batch.Delete(pendingKey(tx.Slot())); err != nil {
			return err
		}
	}
	if err := batch.Set(metaKey(metaHeight), encodeUint(n)); err != nil {
		return err
	}
	return batch.WriteSync()
}

// AddPending adds tx to the open block. With markSpent the transaction it
// spends is flagged in the same write.
func (bs *BlockStore) AddPending(tx types.Transaction, markSpent bool) error {
	bz, err := tx.MarshalBinary()
	if err != nil {
		return err
	}

	batch := bs.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(pendingKey(tx.Slot()), bz); err != nil {
		return err
	}
	if markSpent && !tx.IsDeposit() {
		if err := batch.Set(spentKey(tx.PrevBlock(), tx.Slot()), []byte{1}); err != nil {
			return err
		}
	}
	return batch.WriteSync()
}

// IsSpent reports whether the transaction moving slot in block n has been
// spent.
func (bs *BlockStore) IsSpent(n, slot uint64) bool {
	ok, err := bs.db.Has(spentKey(n, slot))
	if err != nil {
		panic(err)
	}
	return ok
}

// LoadPending returns the open block's transactions ordered by slot.
func (bs *BlockStore) LoadPending() []types.Transaction {
	start := prefixKey(prefixPending)
	end := prefixKey(prefixPending + 1)
	iter, err := bs.db.Iterator(start, end)
	if err != nil {
		panic(err)
	}
	defer iter.Close()

	var txs []types.Transaction
	for ; iter.Valid(); iter.Next() {
		tx, err := types.DecodeTx(iter.Value())
		if err != nil {
			panic(fmt.Errorf("pending tx %x: %w", iter.Key(), err))
		}
		txs = append(txs, tx)
	}
	if err := iter.Error(); err != nil {
		panic(err)
	}
	return txs
}

func (bs *BlockStore) Close() error {
	return bs.db.Close()
}

//---------------------------------- KEY ENCODING -----------------------------------------

const (
	prefixBlock   = int64(0)
	prefixSpent   = int64(1)
	prefixPending = int64(2)
	prefixMeta    = int64(3)
)

const (
	metaHeight    = int64(0)
	metaPublished = int64(1)
)

func mustAppend(items ...interface{}) []byte {
	key, err := orderedcode.Append(nil, items...)
	if err != nil {
		panic(err)
	}
	return key
}

func prefixKey(prefix int64) []byte { return mustAppend(prefix) }

func blockKey(n uint64) []byte { return mustAppend(prefixBlock, n) }

func spentKey(n, slot uint64) []byte { return mustAppend(prefixSpent, n, slot) }

func pendingKey(slot uint64) []byte { return mustAppend(prefixPending, slot) }

func metaKey(which int64) []byte { return mustAppend(prefixMeta, which) }

func encodeUint(n uint64) []byte { return mustAppend(n) }

func decodeBlockKey(key []byte) (n uint64, err error) {
	var prefix int64
	remaining, err := orderedcode.Parse(string(key), &prefix, &n)
	if err != nil {
		return 0, err
	}
	if len(remaining) != 0 {
		return 0, fmt.Errorf("expected complete key but got remainder: %x", remaining)
	}
	if prefix != prefixBlock {
		return 0, fmt.Errorf("incorrect prefix. Expected %v, got %v", prefixBlock, prefix)
	}
	return n, nil
}

// BlockNumbers returns every committed block number in ascending order.
func (bs *BlockStore) BlockNumbers() []uint64 {
	iter, err := bs.db.Iterator(prefixKey(prefixBlock), prefixKey(prefixBlock+1))
	if err != nil {
		panic(err)
	}
	defer iter.Close()

	var out []uint64
	for ; iter.Valid(); iter.Next() {
		n, err := decodeBlockKey(iter.Key())
		if err != nil {
			panic(err)
		}
		out = append(out, n)
	}
	if err := iter.Error(); err != nil {
		panic(err)
	}
	return out
}
