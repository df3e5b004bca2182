package client

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/smt"
	"github.com/plasmacash/plasma/rootchain"
	"github.com/plasmacash/plasma/types"
)

// CoinHistory is the provenance of a coin: for every relevant block, either
// the transaction moving the coin with its inclusion proof, or the proof
// that the block leaves the coin untouched.
type CoinHistory struct {
	Slot      uint64
	Inclusion map[uint64]rootchain.Evidence
	Exclusion map[uint64]smt.Proof
}

// Blocks returns every block the history covers, ascending.
func (h *CoinHistory) Blocks() []uint64 {
	blocks := make([]uint64, 0, len(h.Inclusion)+len(h.Exclusion))
	for n := range h.Inclusion {
		blocks = append(blocks, n)
	}
	for n := range h.Exclusion {
		if _, ok := h.Inclusion[n]; !ok {
			blocks = append(blocks, n)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	return blocks
}

// Included returns the blocks that move the coin, ascending.
func (h *CoinHistory) Included() []uint64 {
	blocks := make([]uint64, 0, len(h.Inclusion))
	for n := range h.Inclusion {
		blocks = append(blocks, n)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	return blocks
}

// RelevantBlockNumbers lists the deposit block followed by every
// checkpoint after it up to and including current.
func RelevantBlockNumbers(depositBlock, current uint64) []uint64 {
	blocks := []uint64{depositBlock}
	for n := types.NextCheckpoint(depositBlock); n <= current; n += types.ChildBlockInterval {
		blocks = append(blocks, n)
	}
	return blocks
}

// GetRelevantBlockNumbers returns the blocks a complete history of slot
// must cover. Checkpoints the child chain committed but the root chain has
// not recorded yet are left out: nothing can be proven against them.
func (c *Client) GetRelevantBlockNumbers(ctx context.Context, slot uint64) ([]uint64, error) {
	coin, err := c.root.PlasmaCoin(ctx, slot)
	if err != nil {
		return nil, err
	}
	recorded, err := c.recordedCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	return RelevantBlockNumbers(coin.DepositBlock, recorded), nil
}

// recordedCheckpoint returns the highest checkpoint the root chain holds.
func (c *Client) recordedCheckpoint(ctx context.Context) (uint64, error) {
	current, err := c.root.CurrentBlock(ctx)
	if err != nil {
		return 0, err
	}
	return current - current%types.ChildBlockInterval, nil
}

// unpublished reports whether the child chain has committed checkpoints the
// root chain has not recorded yet.
func (c *Client) unpublished(ctx context.Context) (bool, error) {
	committed, err := c.chain.BlockNumber(ctx)
	if err != nil {
		return false, err
	}
	recorded, err := c.recordedCheckpoint(ctx)
	if err != nil {
		return false, err
	}
	return committed > recorded, nil
}

// settledHistory builds the history of slot once the root chain has
// recorded every checkpoint the child chain committed, so that a spend
// waiting for publication is not missed. Failures and unpublished
// checkpoints are retried every HistoryRetryWait, HistoryRetries times;
// after that the history is built from what is recorded.
func (c *Client) settledHistory(ctx context.Context, slot uint64) (*CoinHistory, error) {
	for attempt := 0; ; attempt++ {
		last := attempt >= c.wcfg.HistoryRetries
		pending, err := c.unpublished(ctx)
		if err == nil && (!pending || last) {
			if pending {
				c.logger.Error("checkpoints still unpublished, using recorded history", "slot", slot)
			}
			var h *CoinHistory
			if h, err = c.BuildCoinHistory(ctx, slot); err == nil {
				return h, nil
			}
		}
		if last {
			return nil, err
		}
		c.logger.Debug("coin history not settled", "slot", slot, "attempt", attempt+1, "pending", pending, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.clock.After(c.wcfg.HistoryRetryWait):
		}
	}
}

// blockRoot returns the root the contract recorded for n. Recorded roots
// never change, so they are cached.
func (c *Client) blockRoot(ctx context.Context, n uint64) (crypto.Hash, error) {
	if root, ok := c.roots.Get(n); ok {
		return root, nil
	}
	root, err := c.root.BlockRoot(ctx, n)
	if err != nil {
		return crypto.Hash{}, err
	}
	c.roots.Add(n, root)
	return root, nil
}

type historyEntry struct {
	block uint64
	tx    types.Transaction
	proof smt.Proof
	root  crypto.Hash
}

// classify files e under inclusion or exclusion. Entries proving neither
// are left out, so the history fails verification.
func (h *CoinHistory) classify(e historyEntry) bool {
	ev := rootchain.Evidence{Block: e.block, Tx: e.tx, Proof: e.proof}
	switch {
	case !e.tx.IsZero() && e.tx.Slot() == h.Slot && ev.Included(e.root):
		h.Inclusion[e.block] = ev
	case !types.IsDepositBlock(e.block) && smt.VerifyExclusion(h.Slot, e.proof, e.root):
		h.Exclusion[e.block] = e.proof
	default:
		return false
	}
	return true
}

// BuildCoinHistory fetches the transaction, proof and recorded root of
// every relevant block of slot and classifies each block by the proof that
// verifies against its root.
func (c *Client) BuildCoinHistory(ctx context.Context, slot uint64) (*CoinHistory, error) {
	start := time.Now()
	defer func() { c.metrics.HistoryFetch.Observe(time.Since(start).Seconds()) }()

	blocks, err := c.GetRelevantBlockNumbers(ctx, slot)
	if err != nil {
		return nil, err
	}

	entries := make([]historyEntry, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.HistoryConcurrency)
	for i, n := range blocks {
		i, n := i, n
		g.Go(func() error {
			tx, proof, err := c.chain.TxAndProof(gctx, n, slot)
			if err != nil {
				return err
			}
			root, err := c.blockRoot(gctx, n)
			if err != nil {
				return err
			}
			entries[i] = historyEntry{block: n, tx: tx, proof: proof, root: root}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h := &CoinHistory{
		Slot:      slot,
		Inclusion: make(map[uint64]rootchain.Evidence),
		Exclusion: make(map[uint64]smt.Proof),
	}
	for _, e := range entries {
		if !h.classify(e) {
			c.logger.Error("proof does not match recorded root", "slot", slot, "block", e.block)
		}
	}
	return h, nil
}

// VerifyCoinHistory reports whether h proves the coin's provenance. It
// fails closed: any error while fetching what it checks against, any gap
// and any proof that does not verify yields false.
func (c *Client) VerifyCoinHistory(ctx context.Context, h *CoinHistory) bool {
	blocks, err := c.GetRelevantBlockNumbers(ctx, h.Slot)
	if err != nil {
		c.logger.Error("verifying coin history", "slot", h.Slot, "err", err)
		return false
	}
	roots := make(map[uint64]crypto.Hash, len(blocks))
	for _, n := range blocks {
		root, err := c.blockRoot(ctx, n)
		if err != nil {
			c.logger.Error("verifying coin history", "slot", h.Slot, "block", n, "err", err)
			return false
		}
		roots[n] = root
	}
	if err := verifyHistory(h, blocks, roots); err != nil {
		c.logger.Info("coin history rejected", "slot", h.Slot, "err", err)
		return false
	}
	return true
}

// verifyHistory checks h against the relevant blocks and their recorded
// roots.
func verifyHistory(h *CoinHistory, blocks []uint64, roots map[uint64]crypto.Hash) error {
	for n := range h.Inclusion {
		if _, ok := h.Exclusion[n]; ok {
			return fmt.Errorf("block %d is both included and excluded", n)
		}
	}
	if got := len(h.Inclusion) + len(h.Exclusion); got != len(blocks) {
		return fmt.Errorf("history covers %d blocks, want %d", got, len(blocks))
	}
	for _, n := range blocks {
		root, ok := roots[n]
		if !ok {
			return fmt.Errorf("no root for block %d", n)
		}
		if ev, ok := h.Inclusion[n]; ok {
			if ev.Block != n || ev.Tx.Slot() != h.Slot || !ev.Included(root) {
				return fmt.Errorf("inclusion proof at block %d does not verify", n)
			}
			continue
		}
		proof, ok := h.Exclusion[n]
		if !ok {
			return fmt.Errorf("block %d missing from history", n)
		}
		if types.IsDepositBlock(n) || !smt.VerifyExclusion(h.Slot, proof, root) {
			return fmt.Errorf("exclusion proof at block %d does not verify", n)
		}
	}
	return nil
}
