// Package childchain implements the authority's ledger: it applies
// deposits, validates transfers into the open block and commits signed
// checkpoints, publishing their roots to the root chain.
package childchain

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/smt"
	"github.com/plasmacash/plasma/internal/store"
	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/types"
)

// ErrBlockNotFound is returned for a deposit block that was never applied
// or a checkpoint below the current one that is missing.
var ErrBlockNotFound = types.ErrBlockNotFound

const defaultBlockCacheSize = 1024

// BlockPublisher records checkpoint roots on the root chain.
// rootchain.RootChain implements it.
type BlockPublisher interface {
	SubmitBlock(ctx context.Context, number uint64, root crypto.Hash) error
}

// ChildChain is the authority's state machine. All methods are safe for
// concurrent use; mutations are serialized and no lock is held while the
// root chain is called.
type ChildChain struct {
	logger      log.Logger
	metrics     *Metrics
	signer      types.Signer
	store       *store.BlockStore
	publisher   BlockPublisher
	checkSpends bool
	cacheSize   int
	blocks      *lru.Cache[uint64, *types.Block]

	mtx     sync.RWMutex
	current uint64 // latest checkpoint
	open    *types.BlockBuilder

	// serializes SubmitBlock so roots are published in order
	submitMtx sync.Mutex
}

// Option sets an optional parameter on the ChildChain.
type Option func(*ChildChain)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(cc *ChildChain) { cc.metrics = metrics }
}

// WithBlockCacheSize bounds the number of decoded blocks kept in memory.
func WithBlockCacheSize(n int) Option {
	return func(cc *ChildChain) { cc.cacheSize = n }
}

// WithoutSpendChecks makes the chain accept any transaction that does not
// move a coin twice in the open block. It reproduces a misbehaving
// operator and exists for fraud drills only.
func WithoutSpendChecks() Option {
	return func(cc *ChildChain) { cc.checkSpends = false }
}

// New returns the child chain persisted in bs. Blocks are signed by signer
// and their roots handed to publisher, which may be nil when nothing
// observes the chain.
func New(logger log.Logger, signer types.Signer, bs *store.BlockStore, publisher BlockPublisher, opts ...Option) (*ChildChain, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	cc := &ChildChain{
		logger:      logger,
		metrics:     NopMetrics(),
		signer:      signer,
		store:       bs,
		publisher:   publisher,
		checkSpends: true,
		cacheSize:   defaultBlockCacheSize,
		current:     bs.Height(),
		open:        types.NewBlockBuilder(),
	}
	for _, opt := range opts {
		opt(cc)
	}

	blocks, err := lru.New[uint64, *types.Block](cc.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("block cache: %w", err)
	}
	cc.blocks = blocks

	for _, tx := range bs.LoadPending() {
		if err := cc.open.Add(tx); err != nil {
			return nil, fmt.Errorf("restoring open block: %w", err)
		}
	}
	if !cc.checkSpends {
		cc.logger.Error("spend checks disabled; the chain accepts invalid transfers")
	}
	cc.metrics.BlockHeight.Set(float64(cc.current))
	return cc, nil
}

// BlockNumber returns the latest checkpoint number.
func (cc *ChildChain) BlockNumber() uint64 {
	cc.mtx.RLock()
	defer cc.mtx.RUnlock()
	return cc.current
}

// OnDeposit records the deposit of slot at the root-chain block number as
// its own single-transaction block. Replaying the same deposit is a no-op.
func (cc *ChildChain) OnDeposit(slot, number, denomination uint64, depositor crypto.Address) error {
	if !types.IsDepositBlock(number) {
		return fmt.Errorf("deposit of slot %d at checkpoint number %d", slot, number)
	}
	tx := types.NewDepositTx(slot, denomination, depositor)

	cc.mtx.Lock()
	defer cc.mtx.Unlock()

	if existing := cc.loadBlock(number); existing != nil {
		if prev, ok := existing.Tx(slot); ok && prev == tx {
			cc.logger.Debug("deposit already applied", "slot", slot, "block", number)
			return nil
		}
		return fmt.Errorf("block %d already holds a different deposit", number)
	}

	block := types.NewDepositBlock(tx)
	if err := cc.store.SaveDeposit(number, block); err != nil {
		return fmt.Errorf("saving deposit block %d: %w", number, err)
	}
	cc.blocks.Add(number, block)
	cc.metrics.Deposits.Add(1)
	cc.logger.Info("deposit applied", "slot", slot, "block", number, "owner", depositor)
	return nil
}

// SubmitTransaction validates tx against committed history and adds it to
// the open block. Rejections are *types.ValidationError values and leave
// the state untouched.
func (cc *ChildChain) SubmitTransaction(tx types.Transaction) (crypto.Hash, error) {
	cc.mtx.Lock()
	defer cc.mtx.Unlock()

	if err := cc.validateTx(tx); err != nil {
		result := "invalid"
		if code, ok := types.ValidationCode(err); ok {
			result = code
		}
		cc.metrics.Transactions.With("result", result).Add(1)
		cc.logger.Debug("rejected transaction", "tx", tx, "err", err)
		return crypto.Hash{}, err
	}

	if err := cc.store.AddPending(tx, cc.checkSpends); err != nil {
		return crypto.Hash{}, fmt.Errorf("persisting transaction: %w", err)
	}
	if err := cc.open.Add(tx); err != nil {
		// validateTx checked the open block under the same lock
		panic(err)
	}
	cc.metrics.Transactions.With("result", "accepted").Add(1)
	cc.logger.Debug("accepted transaction", "tx", tx, "hash", tx.Hash())
	return tx.Hash(), nil
}

func (cc *ChildChain) validateTx(tx types.Transaction) error {
	slot, prevBlock := tx.Slot(), tx.PrevBlock()
	if limit := cc.current + types.ChildBlockInterval; prevBlock > limit {
		return fmt.Errorf("%w: references block %d, open block is %d", types.ErrInvalidPrevBlock, prevBlock, limit)
	}

	if !cc.checkSpends {
		if cc.open.Has(slot) {
			return fmt.Errorf("%w: slot %d", types.ErrCoinAlreadyIncluded, slot)
		}
		return nil
	}

	var prev types.Transaction
	if block := cc.loadBlock(prevBlock); block != nil {
		prev, _ = block.Tx(slot)
	}
	if prev.IsZero() {
		return fmt.Errorf("%w: slot %d at block %d", types.ErrPreviousTxNotFound, slot, prevBlock)
	}
	if cc.open.Has(slot) {
		return fmt.Errorf("%w: slot %d", types.ErrCoinAlreadyIncluded, slot)
	}
	if cc.store.IsSpent(prevBlock, slot) {
		return fmt.Errorf("%w: slot %d at block %d", types.ErrTxAlreadySpent, slot, prevBlock)
	}
	sender, err := tx.Sender()
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidTxSignature, err)
	}
	if sender != prev.NewOwner() {
		return fmt.Errorf("%w: signed by %s, coin owned by %s", types.ErrInvalidTxSignature, sender, prev.NewOwner())
	}
	if tx.Denomination() != prev.Denomination() {
		return fmt.Errorf("%w: %d, previous %d", types.ErrTxAmountMismatch, tx.Denomination(), prev.Denomination())
	}
	return nil
}

// SubmitBlock signs and commits the open block as the next checkpoint,
// then publishes every committed root the root chain has not seen yet. A
// publication failure leaves the block committed; the next call retries
// it.
func (cc *ChildChain) SubmitBlock(ctx context.Context) (uint64, error) {
	cc.submitMtx.Lock()
	defer cc.submitMtx.Unlock()

	number, err := cc.commitOpenBlock()
	if err != nil {
		return 0, err
	}
	if err := cc.publish(ctx); err != nil {
		return number, err
	}
	return number, nil
}

func (cc *ChildChain) commitOpenBlock() (uint64, error) {
	cc.mtx.Lock()
	defer cc.mtx.Unlock()

	block, err := cc.open.Sign(cc.signer)
	if err != nil {
		return 0, fmt.Errorf("signing block: %w", err)
	}
	number := cc.current + types.ChildBlockInterval
	if err := cc.store.CommitBlock(number, block); err != nil {
		return 0, fmt.Errorf("committing block %d: %w", number, err)
	}
	cc.current = number
	cc.open = types.NewBlockBuilder()
	cc.blocks.Add(number, block)

	cc.metrics.BlockHeight.Set(float64(number))
	cc.metrics.BlockTransactions.Observe(float64(block.Len()))
	cc.logger.Info("committed block", "block", number, "txs", block.Len(), "root", block.MerkleRoot())
	return number, nil
}

func (cc *ChildChain) publish(ctx context.Context) error {
	if cc.publisher == nil {
		return nil
	}
	height := cc.BlockNumber()
	for n := cc.store.Published() + types.ChildBlockInterval; n <= height; n += types.ChildBlockInterval {
		block, err := cc.GetBlock(n)
		if err != nil {
			return err
		}
		if err := cc.publisher.SubmitBlock(ctx, n, block.MerkleRoot()); err != nil {
			return fmt.Errorf("publishing block %d: %w", n, err)
		}
		if err := cc.store.SetPublished(n); err != nil {
			return fmt.Errorf("recording publication of block %d: %w", n, err)
		}
		cc.logger.Info("published block", "block", n, "root", block.MerkleRoot())
	}
	return nil
}

// loadBlock must be called with mtx held.
func (cc *ChildChain) loadBlock(n uint64) *types.Block {
	if block, ok := cc.blocks.Get(n); ok {
		return block
	}
	block := cc.store.LoadBlock(n)
	if block != nil {
		cc.blocks.Add(n, block)
	}
	return block
}

// GetBlock returns committed block n. Checkpoints not produced yet are
// returned empty.
func (cc *ChildChain) GetBlock(n uint64) (*types.Block, error) {
	cc.mtx.RLock()
	defer cc.mtx.RUnlock()

	if block := cc.loadBlock(n); block != nil {
		return block, nil
	}
	if !types.IsDepositBlock(n) && n > cc.current {
		return types.NewBlock()
	}
	return nil, fmt.Errorf("%w: %d", ErrBlockNotFound, n)
}

// GetCurrentBlock returns the unsigned open block.
func (cc *ChildChain) GetCurrentBlock() (*types.Block, error) {
	cc.mtx.RLock()
	defer cc.mtx.RUnlock()
	return cc.open.Build()
}

// GetTx returns the transaction moving slot in block n, or the zero
// Transaction when the block does not move it.
func (cc *ChildChain) GetTx(n, slot uint64) (types.Transaction, error) {
	block, err := cc.GetBlock(n)
	if err != nil {
		return types.Transaction{}, err
	}
	tx, _ := block.Tx(slot)
	return tx, nil
}

// GetProof returns the inclusion or exclusion proof of slot in block n.
// Deposit blocks are committed by the transaction hash itself and carry
// the empty proof.
func (cc *ChildChain) GetProof(n, slot uint64) (smt.Proof, error) {
	block, err := cc.GetBlock(n)
	if err != nil {
		return nil, err
	}
	if types.IsDepositBlock(n) {
		return smt.EmptyProof, nil
	}
	return block.Proof(slot), nil
}

// GetTxAndProof bundles GetTx and GetProof.
func (cc *ChildChain) GetTxAndProof(n, slot uint64) (types.Transaction, smt.Proof, error) {
	block, err := cc.GetBlock(n)
	if err != nil {
		return types.Transaction{}, nil, err
	}
	tx, _ := block.Tx(slot)
	if types.IsDepositBlock(n) {
		return tx, smt.EmptyProof, nil
	}
	return tx, block.Proof(slot), nil
}
