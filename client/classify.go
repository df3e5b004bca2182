package client

import (
	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/rootchain"
	"github.com/plasmacash/plasma/types"
)

// Challenge is the challenge a watcher decided to issue against an exit.
// PrevBlock is only meaningful for ChallengeBefore: it is the block spent
// by the challenging transaction.
type Challenge struct {
	Kind      rootchain.ChallengeKind
	Slot      uint64
	Block     uint64
	PrevBlock uint64
}

// signedBy reports whether tx carries a valid signature of addr.
func signedBy(tx types.Transaction, addr crypto.Address) bool {
	signer, err := tx.Sender()
	return err == nil && signer == addr
}

// spends reports whether the transaction at ev is a spend of block prev
// signed by owner.
func spends(ev rootchain.Evidence, prev uint64, owner crypto.Address) bool {
	return ev.Tx.PrevBlock() == prev && signedBy(ev.Tx, owner)
}

// Classify decides whether exit is fraudulent given the coin's history, as
// seen by self. Evidence is searched by kind, after first, then between,
// then before; within a kind the earliest block wins. Exits by self are
// never challenged.
//
//   - after: a block above the exit block holds a spend of the exiting
//     transaction signed by the exitor.
//   - between: a block strictly inside (prev block, exit block) holds a
//     spend of the exit's previous transaction signed by its owner.
//   - before: the last block below the exit's prev block that moves the
//     coin gave it to self, and self never spent it.
func Classify(self crypto.Address, exit types.Exit, h *CoinHistory) (Challenge, bool) {
	if exit.Owner == self {
		return Challenge{}, false
	}
	included := h.Included()

	for _, blk := range included {
		if blk > exit.ExitBlock && spends(h.Inclusion[blk], exit.ExitBlock, exit.Owner) {
			return Challenge{Kind: rootchain.ChallengeAfter, Slot: exit.Slot, Block: blk}, true
		}
	}

	for _, blk := range included {
		if blk > exit.PrevBlock && blk < exit.ExitBlock && spends(h.Inclusion[blk], exit.PrevBlock, exit.PrevOwner) {
			return Challenge{Kind: rootchain.ChallengeBetween, Slot: exit.Slot, Block: blk}, true
		}
	}

	if exit.PrevBlock >= exit.ExitBlock {
		return Challenge{}, false
	}
	last := -1
	for i, blk := range included {
		if blk >= exit.PrevBlock {
			break
		}
		last = i
	}
	if last < 0 {
		return Challenge{}, false
	}
	blk := included[last]
	ev := h.Inclusion[blk]
	if ev.Tx.NewOwner() != self {
		return Challenge{}, false
	}
	for _, later := range included[last+1:] {
		if spends(h.Inclusion[later], blk, self) {
			return Challenge{}, false
		}
	}
	return Challenge{Kind: rootchain.ChallengeBefore, Slot: exit.Slot, Block: blk, PrevBlock: ev.Tx.PrevBlock()}, true
}

// ChooseResponse picks the answer to a challenge-before: the earliest block
// after the challenging block holding a spend of it signed by the
// challenged owner.
func ChooseResponse(ch types.Challenge, h *CoinHistory) (rootchain.Evidence, error) {
	for _, blk := range h.Included() {
		if blk <= ch.ChallengingBlock {
			continue
		}
		if ev := h.Inclusion[blk]; spends(ev, ch.ChallengingBlock, ch.Owner) {
			return ev, nil
		}
	}
	return rootchain.Evidence{}, ErrNoResponse
}
