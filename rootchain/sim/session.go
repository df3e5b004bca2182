package sim

import (
	"context"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/libs/pubsub"
	"github.com/plasmacash/plasma/rootchain"
	"github.com/plasmacash/plasma/types"
)

// Session is a Contract bound to one account.
type Session struct {
	c    *Contract
	addr crypto.Address
}

var _ rootchain.RootChain = (*Session)(nil)

func (s *Session) Address() crypto.Address { return s.addr }

// call runs fn under the contract lock unless ctx is already done.
func (s *Session) call(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return types.NewCollaboratorError(op, err)
	}
	s.c.mtx.Lock()
	defer s.c.mtx.Unlock()
	return fn()
}

func (s *Session) Deposit(ctx context.Context, uid, denomination uint64) (ev rootchain.DepositEvent, err error) {
	err = s.call(ctx, "deposit", func() error {
		ev, err = s.c.deposit(s.addr, uid, denomination)
		return err
	})
	return ev, err
}

func (s *Session) CurrentBlock(ctx context.Context) (n uint64, err error) {
	err = s.call(ctx, "current_block", func() error {
		n = s.c.currentBlock
		return nil
	})
	return n, err
}

func (s *Session) Deposits(ctx context.Context, from uint64) (evs []rootchain.DepositEvent, err error) {
	err = s.call(ctx, "deposits", func() error {
		evs = s.c.depositsFrom(from)
		return nil
	})
	return evs, err
}

func (s *Session) SubmitBlock(ctx context.Context, number uint64, root crypto.Hash) error {
	return s.call(ctx, "submit_block", func() error {
		return s.c.submitBlock(s.addr, number, root)
	})
}

func (s *Session) BlockRoot(ctx context.Context, number uint64) (root crypto.Hash, err error) {
	err = s.call(ctx, "get_block_root", func() error {
		var ok bool
		if root, ok = s.c.roots[number]; !ok {
			return revert("get_block_root", "unknown block %d", number)
		}
		return nil
	})
	return root, err
}

func (s *Session) StartExit(ctx context.Context, req rootchain.ExitRequest) error {
	return s.call(ctx, "start_exit", func() error {
		return s.c.startExit(s.addr, req)
	})
}

func (s *Session) ChallengeBefore(ctx context.Context, slot uint64, prev, challenging rootchain.Evidence) error {
	return s.call(ctx, "challenge_before", func() error {
		return s.c.challengeBefore(s.addr, slot, prev, challenging)
	})
}

func (s *Session) RespondChallengeBefore(ctx context.Context, slot uint64, challengingTxHash crypto.Hash, response rootchain.Evidence) error {
	return s.call(ctx, "respond_challenge_before", func() error {
		return s.c.respondChallengeBefore(s.addr, slot, challengingTxHash, response)
	})
}

func (s *Session) ChallengeBetween(ctx context.Context, slot uint64, challenging rootchain.Evidence) error {
	return s.call(ctx, "challenge_between", func() error {
		return s.c.challengeBetween(s.addr, slot, challenging)
	})
}

func (s *Session) ChallengeAfter(ctx context.Context, slot uint64, challenging rootchain.Evidence) error {
	return s.call(ctx, "challenge_after", func() error {
		return s.c.challengeAfter(s.addr, slot, challenging)
	})
}

func (s *Session) FinalizeExits(ctx context.Context) error {
	return s.call(ctx, "finalize_exits", func() error {
		s.c.finalizeExits()
		return nil
	})
}

func (s *Session) Withdraw(ctx context.Context, slot uint64) error {
	return s.call(ctx, "withdraw", func() error {
		return s.c.withdraw(s.addr, slot)
	})
}

func (s *Session) WithdrawBonds(ctx context.Context) error {
	return s.call(ctx, "withdraw_bonds", func() error {
		return s.c.withdrawBonds(s.addr)
	})
}

func (s *Session) Exit(ctx context.Context, slot uint64) (exit types.Exit, err error) {
	err = s.call(ctx, "get_exit", func() error {
		cn, ok := s.c.coins[slot]
		if !ok || cn.exit == nil {
			return revert("get_exit", "slot %d has no exit", slot)
		}
		exit = *cn.exit
		return nil
	})
	return exit, err
}

func (s *Session) Challenges(ctx context.Context, slot uint64) (chs []types.Challenge, err error) {
	err = s.call(ctx, "get_challenges", func() error {
		chs = s.c.challengesOf(slot)
		return nil
	})
	return chs, err
}

func (s *Session) PlasmaCoin(ctx context.Context, slot uint64) (pc types.PlasmaCoin, err error) {
	err = s.call(ctx, "get_plasma_coin", func() error {
		cn, ok := s.c.coins[slot]
		if !ok {
			return revert("get_plasma_coin", "unknown slot %d", slot)
		}
		pc = cn.PlasmaCoin
		return nil
	})
	return pc, err
}

func (s *Session) Subscribe(ctx context.Context, clientID string, q rootchain.Query, capacity int) (*pubsub.Subscription, error) {
	sub, err := s.c.bus.Subscribe(ctx, clientID, q, capacity)
	if err != nil {
		return nil, types.NewCollaboratorError("subscribe", err)
	}
	return sub, nil
}

func (s *Session) Unsubscribe(ctx context.Context, clientID string, q rootchain.Query) error {
	return types.NewCollaboratorError("unsubscribe", s.c.bus.Unsubscribe(ctx, clientID, q))
}
