package client

import (
	"context"
	"fmt"

	"github.com/plasmacash/plasma/rootchain"
	"github.com/plasmacash/plasma/types"
)

// evidence fetches the transaction moving slot in block n with its proof.
func (c *Client) evidence(ctx context.Context, n, slot uint64) (rootchain.Evidence, error) {
	tx, proof, err := c.chain.TxAndProof(ctx, n, slot)
	if err != nil {
		return rootchain.Evidence{}, err
	}
	if tx.IsZero() {
		return rootchain.Evidence{}, fmt.Errorf("slot %d at block %d: %w", slot, n, ErrNotIncluded)
	}
	return rootchain.Evidence{Block: n, Tx: tx, Proof: proof}, nil
}

// depositEvidence is a transaction to self signed by the participant. A
// deposit block is committed by the slot alone, so no proof is needed.
func (c *Client) depositEvidence(slot, n uint64) (rootchain.Evidence, error) {
	tx, err := types.UnsignedTx{
		Slot:         slot,
		Denomination: 1,
		NewOwner:     c.Address(),
	}.Sign(c.signer)
	if err != nil {
		return rootchain.Evidence{}, err
	}
	return rootchain.Evidence{Block: n, Tx: tx}, nil
}

// StartExit claims the coin as of exitBlock, whose transaction spends
// prevBlock. Exiting straight from a deposit block ignores prevBlock.
func (c *Client) StartExit(ctx context.Context, slot, prevBlock, exitBlock uint64) error {
	req := rootchain.ExitRequest{Slot: slot}
	if types.IsDepositBlock(exitBlock) {
		exiting, err := c.depositEvidence(slot, exitBlock)
		if err != nil {
			return err
		}
		req.Exiting = exiting
	} else {
		exiting, err := c.evidence(ctx, exitBlock, slot)
		if err != nil {
			return err
		}
		prev, err := c.evidence(ctx, prevBlock, slot)
		if err != nil {
			return err
		}
		req.Prev, req.Exiting = prev, exiting
	}
	if err := c.root.StartExit(ctx, req); err != nil {
		return err
	}
	c.logger.Info("exit started", "slot", slot, "prev_block", req.PrevBlock(), "exit_block", exitBlock)
	return nil
}

// ChallengeAfter proves that the coin was spent at challengingBlock, after
// the exit block.
func (c *Client) ChallengeAfter(ctx context.Context, slot, challengingBlock uint64) error {
	ev, err := c.evidence(ctx, challengingBlock, slot)
	if err != nil {
		return err
	}
	if err := c.root.ChallengeAfter(ctx, slot, ev); err != nil {
		return err
	}
	c.challenged(rootchain.ChallengeAfter, slot, challengingBlock)
	return nil
}

// ChallengeBetween proves that the exit's previous transaction was spent
// at challengingBlock, before the exit block.
func (c *Client) ChallengeBetween(ctx context.Context, slot, challengingBlock uint64) error {
	ev, err := c.evidence(ctx, challengingBlock, slot)
	if err != nil {
		return err
	}
	if err := c.root.ChallengeBetween(ctx, slot, ev); err != nil {
		return err
	}
	c.challenged(rootchain.ChallengeBetween, slot, challengingBlock)
	return nil
}

// ChallengeBefore claims that the transaction at challengingBlock, which
// spends prevBlock, is a valid state of the coin the exit's history does
// not descend from. A deposit block is challenged with a transaction to
// self, which only the depositor can produce.
func (c *Client) ChallengeBefore(ctx context.Context, slot, prevBlock, challengingBlock uint64) error {
	var prev, ev rootchain.Evidence
	var err error
	if types.IsDepositBlock(challengingBlock) {
		ev, err = c.depositEvidence(slot, challengingBlock)
	} else {
		if ev, err = c.evidence(ctx, challengingBlock, slot); err == nil {
			prev, err = c.evidence(ctx, prevBlock, slot)
		}
	}
	if err != nil {
		return err
	}
	if err := c.root.ChallengeBefore(ctx, slot, prev, ev); err != nil {
		return err
	}
	c.challenged(rootchain.ChallengeBefore, slot, challengingBlock)
	return nil
}

func (c *Client) challenged(kind rootchain.ChallengeKind, slot, block uint64) {
	c.metrics.Challenges.With("kind", kind.String()).Add(1)
	c.logger.Info("challenged exit", "slot", slot, "kind", kind, "block", block)
}

// Challenge issues ch.
func (c *Client) Challenge(ctx context.Context, ch Challenge) error {
	switch ch.Kind {
	case rootchain.ChallengeAfter:
		return c.ChallengeAfter(ctx, ch.Slot, ch.Block)
	case rootchain.ChallengeBetween:
		return c.ChallengeBetween(ctx, ch.Slot, ch.Block)
	case rootchain.ChallengeBefore:
		return c.ChallengeBefore(ctx, ch.Slot, ch.PrevBlock, ch.Block)
	default:
		return fmt.Errorf("unknown challenge kind %v", ch.Kind)
	}
}

// RespondChallengeBefore answers the open challenge-before raised at
// challengingBlock against the participant's exit, proving the challenging
// transaction was spent later. It returns ErrNoResponse when the coin's
// history holds no such spend.
func (c *Client) RespondChallengeBefore(ctx context.Context, slot, challengingBlock uint64) error {
	challenges, err := c.root.Challenges(ctx, slot)
	if err != nil {
		return err
	}
	var ch types.Challenge
	found := false
	for _, open := range challenges {
		if open.ChallengingBlock == challengingBlock {
			ch, found = open, true
			break
		}
	}
	if !found {
		return fmt.Errorf("no challenge of slot %d at block %d", slot, challengingBlock)
	}

	h, err := c.BuildCoinHistory(ctx, slot)
	if err != nil {
		return err
	}
	response, err := ChooseResponse(ch, h)
	if err != nil {
		return fmt.Errorf("challenge of slot %d at block %d: %w", slot, challengingBlock, err)
	}
	if err := c.root.RespondChallengeBefore(ctx, slot, ch.TxHash, response); err != nil {
		return err
	}
	c.metrics.Responses.Add(1)
	c.logger.Info("responded to challenge", "slot", slot, "challenging_block", challengingBlock, "block", response.Block)
	return nil
}
