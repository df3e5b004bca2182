// Package sim is an in-memory root-chain contract. It applies the same
// bookkeeping the deployed contract does (deposits, checkpoint roots, bonded
// exits and the three challenges) so the authority, participants and their
// watchers can run against it in one process.
package sim

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/libs/pubsub"
	"github.com/plasmacash/plasma/libs/service"
	"github.com/plasmacash/plasma/rootchain"
	"github.com/plasmacash/plasma/types"
)

const (
	// Bond is attached to every exit and every challenge-before, in wei.
	Bond uint64 = 100_000_000_000_000_000

	// MaturityPeriod is how long an exit stays open to challenges.
	MaturityPeriod = 7 * 24 * time.Hour
)

type coin struct {
	types.PlasmaCoin
	exit       *types.Exit
	exitBond   uint64
	challenges []types.Challenge
}

// Contract holds the root-chain state. Sessions bound to an account are
// obtained with Session.
type Contract struct {
	*service.BaseService

	authority crypto.Address
	clock     clockwork.Clock
	bus       *pubsub.Server

	mtx          sync.Mutex
	currentBlock uint64
	nonce        uint64
	roots        map[uint64]crypto.Hash
	coins        map[uint64]*coin
	exitQueue    []uint64
	bonds        map[crypto.Address]uint64 // withdrawable
	balances     map[crypto.Address]uint64 // paid out
	tokens       map[crypto.Address][]uint64
	deposits     []rootchain.DepositEvent // ascending block numbers
}

// Option configures a Contract.
type Option func(*Contract)

// WithClock replaces the wall clock used for exit maturity.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Contract) { c.clock = clock }
}

// NewContract returns a contract whose checkpoints may only be submitted by
// authority. It must be started before events are delivered.
func NewContract(logger log.Logger, authority crypto.Address, opts ...Option) *Contract {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	c := &Contract{
		authority: authority,
		clock:     clockwork.NewRealClock(),
		bus:       pubsub.NewServer(logger.With("module", "events")),
		roots:     make(map[uint64]crypto.Hash),
		coins:     make(map[uint64]*coin),
		bonds:     make(map[crypto.Address]uint64),
		balances:  make(map[crypto.Address]uint64),
		tokens:    make(map[crypto.Address][]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.BaseService = service.NewBaseService(logger, "RootChain", c)
	return c
}

func (c *Contract) OnStart(ctx context.Context) error {
	return c.bus.Start(ctx)
}

func (c *Contract) OnStop() {
	if err := c.bus.Stop(); err != nil {
		c.Logger.Error("stopping event bus", "err", err)
	}
}

// Session returns the contract bound to addr.
func (c *Contract) Session(addr crypto.Address) *Session {
	return &Session{c: c, addr: addr}
}

// Bonds returns the bond amount addr may withdraw.
func (c *Contract) Bonds(addr crypto.Address) uint64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.bonds[addr]
}

// Balance returns the bond amount already paid out to addr.
func (c *Contract) Balance(addr crypto.Address) uint64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.balances[addr]
}

// Tokens returns the slots addr has withdrawn.
func (c *Contract) Tokens(addr crypto.Address) []uint64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]uint64(nil), c.tokens[addr]...)
}

func (c *Contract) publish(ev rootchain.Event) {
	if err := c.bus.Publish(ev, rootchain.EventTags(ev)); err != nil {
		c.Logger.Debug("event not delivered", "event", ev.EventType(), "err", err)
	}
}

func revert(op string, format string, args ...interface{}) error {
	return types.NewCollaboratorError(op,
		fmt.Errorf("%w: %s", rootchain.ErrReverted, fmt.Sprintf(format, args...)))
}

func depositSlot(from crypto.Address, uid, nonce uint64) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uid)
	binary.BigEndian.PutUint64(buf[8:], nonce)
	return binary.BigEndian.Uint64(crypto.Keccak256(from[:], buf[:])[:8])
}

func (c *Contract) deposit(from crypto.Address, uid, denomination uint64) (rootchain.DepositEvent, error) {
	slot := depositSlot(from, uid, c.nonce)
	if _, ok := c.coins[slot]; ok {
		return rootchain.DepositEvent{}, revert("deposit", "slot %d already taken", slot)
	}
	blk := c.currentBlock + 1
	if !types.IsDepositBlock(blk) {
		return rootchain.DepositEvent{}, revert("deposit", "no deposit block left before checkpoint %d", blk)
	}
	c.nonce++
	c.currentBlock = blk
	c.roots[blk] = types.DepositHash(slot)
	c.coins[slot] = &coin{PlasmaCoin: types.PlasmaCoin{
		Slot:         slot,
		UID:          uid,
		DepositBlock: blk,
		Denomination: denomination,
		Owner:        from,
		State:        types.CoinDeposited,
	}}
	ev := rootchain.DepositEvent{Slot: slot, BlockNumber: blk, Denomination: denomination, From: from}
	c.deposits = append(c.deposits, ev)
	c.Logger.Info("deposit", "slot", slot, "block", blk, "from", from)
	c.publish(ev)
	return ev, nil
}

func (c *Contract) submitBlock(from crypto.Address, number uint64, root crypto.Hash) error {
	const op = "submit_block"
	if from != c.authority {
		return revert(op, "%s is not the authority", from)
	}
	if types.IsDepositBlock(number) {
		return revert(op, "block %d is not a checkpoint", number)
	}
	if number <= c.currentBlock {
		return revert(op, "block %d is not above current block %d", number, c.currentBlock)
	}
	c.roots[number] = root
	c.currentBlock = number
	c.Logger.Info("checkpoint", "block", number, "root", root)
	c.publish(rootchain.SubmittedBlockEvent{BlockNumber: number, Root: root})
	return nil
}

// checkIncluded verifies that ev belongs to slot and is committed by the
// root recorded for its block.
func (c *Contract) checkIncluded(op string, cn *coin, ev rootchain.Evidence) error {
	if ev.Tx.Slot() != cn.Slot {
		return revert(op, "tx moves slot %d, not %d", ev.Tx.Slot(), cn.Slot)
	}
	if types.IsDepositBlock(ev.Block) && ev.Block != cn.DepositBlock {
		return revert(op, "block %d is not the deposit block of slot %d", ev.Block, cn.Slot)
	}
	root, ok := c.roots[ev.Block]
	if !ok {
		return revert(op, "unknown block %d", ev.Block)
	}
	if !ev.Included(root) {
		return revert(op, "tx not included in block %d", ev.Block)
	}
	return nil
}

// checkSpend verifies a two-transaction history: prev is included, tx
// spends it and is signed by its owner. A deposit is owned by its depositor.
func (c *Contract) checkSpend(op string, cn *coin, prev, ev rootchain.Evidence) error {
	if err := c.checkIncluded(op, cn, prev); err != nil {
		return err
	}
	if err := c.checkIncluded(op, cn, ev); err != nil {
		return err
	}
	if ev.Tx.PrevBlock() != prev.Block || prev.Block >= ev.Block {
		return revert(op, "tx at %d does not spend block %d", ev.Block, prev.Block)
	}
	if types.IsDepositBlock(prev.Block) && prev.Tx.NewOwner() != cn.Owner {
		return revert(op, "deposit of slot %d belongs to %s", cn.Slot, cn.Owner)
	}
	return checkSigner(op, ev.Tx, prev.Tx.NewOwner())
}

func checkSigner(op string, tx types.Transaction, want crypto.Address) error {
	signer, err := tx.Sender()
	if err != nil {
		return revert(op, "%v", err)
	}
	if signer != want {
		return revert(op, "tx signed by %s, want %s", signer, want)
	}
	return nil
}

func (c *Contract) exitingCoin(op string, slot uint64) (*coin, error) {
	cn, ok := c.coins[slot]
	if !ok {
		return nil, revert(op, "unknown slot %d", slot)
	}
	if cn.exit == nil || (cn.State != types.CoinExiting && cn.State != types.CoinChallenged) {
		return nil, revert(op, "slot %d is not exiting", slot)
	}
	return cn, nil
}

func (c *Contract) startExit(from crypto.Address, req rootchain.ExitRequest) error {
	const op = "start_exit"
	cn, ok := c.coins[req.Slot]
	if !ok {
		return revert(op, "unknown slot %d", req.Slot)
	}
	if cn.State != types.CoinDeposited {
		return revert(op, "slot %d is %s", req.Slot, cn.State)
	}
	if req.Exiting.Tx.NewOwner() != from {
		return revert(op, "exiting tx names %s, not the sender", req.Exiting.Tx.NewOwner())
	}

	prevOwner := from
	if req.Prev.Block == 0 {
		// Deposit exits carry a transaction signed by the exitor; the
		// deposit root commits to the slot alone.
		if err := c.checkIncluded(op, cn, req.Exiting); err != nil {
			return err
		}
		if cn.Owner != from {
			return revert(op, "deposit of slot %d belongs to %s", cn.Slot, cn.Owner)
		}
		if !req.Exiting.Tx.IsDeposit() {
			return revert(op, "block %d holds a deposit", req.Exiting.Block)
		}
		if err := checkSigner(op, req.Exiting.Tx, from); err != nil {
			return err
		}
	} else {
		if err := c.checkSpend(op, cn, req.Prev, req.Exiting); err != nil {
			return err
		}
		prevOwner = req.Prev.Tx.NewOwner()
	}

	cn.exit = &types.Exit{
		Slot:      req.Slot,
		Owner:     from,
		PrevOwner: prevOwner,
		PrevBlock: req.Prev.Block,
		ExitBlock: req.Exiting.Block,
		State:     types.CoinExiting,
		CreatedAt: c.clock.Now(),
	}
	cn.exitBond = Bond
	cn.State = types.CoinExiting
	c.exitQueue = append(c.exitQueue, req.Slot)
	c.Logger.Info("exit started", "slot", req.Slot, "owner", from,
		"prev_block", req.Prev.Block, "exit_block", req.Exiting.Block)
	c.publish(rootchain.StartedExitEvent{
		Slot:      req.Slot,
		Owner:     from,
		PrevBlock: req.Prev.Block,
		ExitBlock: req.Exiting.Block,
	})
	return nil
}

// cancelExit drops the exit of cn, slashing its bond to challenger and
// refunding any open challenge-before bonds.
func (c *Contract) cancelExit(cn *coin, challenger crypto.Address) {
	c.bonds[challenger] += cn.exitBond
	for _, ch := range cn.challenges {
		c.bonds[ch.Challenger] += Bond
	}
	cn.exit, cn.exitBond, cn.challenges = nil, 0, nil
	cn.State = types.CoinDeposited
	c.dequeue(cn.Slot)
}

func (c *Contract) dequeue(slot uint64) {
	for i, s := range c.exitQueue {
		if s == slot {
			c.exitQueue = append(c.exitQueue[:i], c.exitQueue[i+1:]...)
			return
		}
	}
}

func (c *Contract) challengeAfter(from crypto.Address, slot uint64, ev rootchain.Evidence) error {
	const op = "challenge_after"
	cn, err := c.exitingCoin(op, slot)
	if err != nil {
		return err
	}
	exit := cn.exit
	if ev.Block <= exit.ExitBlock || ev.Tx.PrevBlock() != exit.ExitBlock {
		return revert(op, "tx at %d does not spend the exit block %d", ev.Block, exit.ExitBlock)
	}
	if err := checkSigner(op, ev.Tx, exit.Owner); err != nil {
		return err
	}
	if err := c.checkIncluded(op, cn, ev); err != nil {
		return err
	}
	c.cancelExit(cn, from)
	c.publish(rootchain.ChallengedExitEvent{
		Slot:             slot,
		Kind:             rootchain.ChallengeAfter,
		Challenger:       from,
		TxHash:           ev.Tx.Hash(),
		ChallengingBlock: ev.Block,
	})
	return nil
}

func (c *Contract) challengeBetween(from crypto.Address, slot uint64, ev rootchain.Evidence) error {
	const op = "challenge_between"
	cn, err := c.exitingCoin(op, slot)
	if err != nil {
		return err
	}
	exit := cn.exit
	if ev.Block <= exit.PrevBlock || ev.Block >= exit.ExitBlock {
		return revert(op, "block %d is outside (%d, %d)", ev.Block, exit.PrevBlock, exit.ExitBlock)
	}
	if err := checkSigner(op, ev.Tx, exit.PrevOwner); err != nil {
		return err
	}
	if err := c.checkIncluded(op, cn, ev); err != nil {
		return err
	}
	c.cancelExit(cn, from)
	c.publish(rootchain.ChallengedExitEvent{
		Slot:             slot,
		Kind:             rootchain.ChallengeBetween,
		Challenger:       from,
		TxHash:           ev.Tx.Hash(),
		ChallengingBlock: ev.Block,
	})
	return nil
}

func (c *Contract) challengeBefore(from crypto.Address, slot uint64, prev, ev rootchain.Evidence) error {
	const op = "challenge_before"
	cn, err := c.exitingCoin(op, slot)
	if err != nil {
		return err
	}
	if types.IsDepositBlock(ev.Block) {
		if err := c.checkIncluded(op, cn, ev); err != nil {
			return err
		}
		if ev.Tx.NewOwner() != cn.Owner {
			return revert(op, "deposit of slot %d belongs to %s", slot, cn.Owner)
		}
		if err := checkSigner(op, ev.Tx, cn.Owner); err != nil {
			return err
		}
	} else if err := c.checkSpend(op, cn, prev, ev); err != nil {
		return err
	}
	hash := ev.Tx.Hash()
	for _, ch := range cn.challenges {
		if ch.TxHash == hash {
			return revert(op, "tx %s already challenges slot %d", hash, slot)
		}
	}

	cn.challenges = append(cn.challenges, types.Challenge{
		Slot:             slot,
		Challenger:       from,
		Owner:            ev.Tx.NewOwner(),
		TxHash:           hash,
		ChallengingBlock: ev.Block,
	})
	cn.State = types.CoinChallenged
	cn.exit.State = types.CoinChallenged
	c.publish(rootchain.ChallengedExitEvent{
		Slot:             slot,
		Kind:             rootchain.ChallengeBefore,
		Challenger:       from,
		TxHash:           hash,
		ChallengingBlock: ev.Block,
	})
	return nil
}

func (c *Contract) respondChallengeBefore(from crypto.Address, slot uint64, txHash crypto.Hash, ev rootchain.Evidence) error {
	const op = "respond_challenge_before"
	cn, ok := c.coins[slot]
	if !ok || cn.State != types.CoinChallenged {
		return revert(op, "slot %d is not challenged", slot)
	}
	idx := -1
	for i, ch := range cn.challenges {
		if ch.TxHash == txHash {
			idx = i
			break
		}
	}
	if idx < 0 {
		return revert(op, "no challenge with tx %s", txHash)
	}
	ch := cn.challenges[idx]
	if ev.Block <= ch.ChallengingBlock {
		return revert(op, "block %d is not after the challenging block %d", ev.Block, ch.ChallengingBlock)
	}
	if err := checkSigner(op, ev.Tx, ch.Owner); err != nil {
		return err
	}
	if err := c.checkIncluded(op, cn, ev); err != nil {
		return err
	}

	c.bonds[from] += Bond
	cn.challenges = append(cn.challenges[:idx], cn.challenges[idx+1:]...)
	if len(cn.challenges) == 0 {
		cn.State = types.CoinExiting
		cn.exit.State = types.CoinExiting
	}
	c.publish(rootchain.RespondedChallengeEvent{Slot: slot, TxHash: txHash, RespondingBlock: ev.Block})
	return nil
}

func (c *Contract) finalizeExits() {
	now := c.clock.Now()
	pending := append([]uint64(nil), c.exitQueue...)
	for _, slot := range pending {
		cn := c.coins[slot]
		if now.Sub(cn.exit.CreatedAt) < MaturityPeriod {
			continue
		}
		owner := cn.exit.Owner
		if len(cn.challenges) > 0 {
			c.cancelExit(cn, cn.challenges[0].Challenger)
			c.Logger.Info("exit cancelled", "slot", slot, "owner", owner)
			c.publish(rootchain.FinalizedExitEvent{Slot: slot, Owner: owner, Cancelled: true})
			continue
		}
		c.bonds[owner] += cn.exitBond
		cn.exitBond = 0
		cn.State = types.CoinExited
		cn.exit.State = types.CoinExited
		c.dequeue(slot)
		c.Logger.Info("exit finalized", "slot", slot, "owner", owner)
		c.publish(rootchain.FinalizedExitEvent{Slot: slot, Owner: owner})
	}
}

func (c *Contract) withdraw(from crypto.Address, slot uint64) error {
	const op = "withdraw"
	cn, ok := c.coins[slot]
	if !ok || cn.State != types.CoinExited {
		return revert(op, "slot %d has not exited", slot)
	}
	if cn.exit.Owner != from {
		return revert(op, "slot %d exited to %s", slot, cn.exit.Owner)
	}
	delete(c.coins, slot)
	c.tokens[from] = append(c.tokens[from], slot)
	return nil
}

func (c *Contract) withdrawBonds(from crypto.Address) error {
	amount := c.bonds[from]
	if amount == 0 {
		return revert("withdraw_bonds", "nothing to withdraw for %s", from)
	}
	delete(c.bonds, from)
	c.balances[from] += amount
	return nil
}

// depositsFrom returns the deposits recorded at block from or later.
func (c *Contract) depositsFrom(from uint64) []rootchain.DepositEvent {
	i := sort.Search(len(c.deposits), func(i int) bool { return c.deposits[i].BlockNumber >= from })
	return append([]rootchain.DepositEvent(nil), c.deposits[i:]...)
}

func (c *Contract) challengesOf(slot uint64) []types.Challenge {
	cn, ok := c.coins[slot]
	if !ok {
		return nil
	}
	out := append([]types.Challenge(nil), cn.challenges...)
	sort.Slice(out, func(i, j int) bool { return out[i].ChallengingBlock < out[j].ChallengingBlock })
	return out
}
