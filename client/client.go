// Package client is the participant side of the chain: it moves coins on
// the child chain, builds and verifies coin histories, starts exits and
// polices other participants' exits through per-slot watchers.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/creachadair/taskgroup"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"

	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/rootchain"
	rpcclient "github.com/plasmacash/plasma/rpc/client"
	"github.com/plasmacash/plasma/types"
)

var (
	// ErrNotIncluded is returned when a block the caller names does not
	// move the coin.
	ErrNotIncluded = errors.New("coin not moved in block")

	// ErrNoResponse is returned when the history holds no spend that
	// answers a challenge.
	ErrNoResponse = errors.New("no response to challenge")
)

// Client acts for one participant. Its methods are safe for concurrent
// use; watchers run alongside the caller's own transfers and exits.
type Client struct {
	logger  log.Logger
	cfg     *config.ParticipantConfig
	wcfg    *config.WatcherConfig
	signer  types.Signer
	chain   rpcclient.Client
	root    rootchain.RootChain
	metrics *Metrics
	clock   clockwork.Clock

	// authority, when set, is checked against block signatures.
	authority crypto.Address

	roots *lru.Cache[uint64, crypto.Hash]

	tasks   *taskgroup.Group
	mtx     sync.Mutex
	watches map[watchKey]*Watch
	closed  bool
}

// Option sets an optional parameter on the Client.
type Option func(*Client)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) { c.metrics = metrics }
}

// WithAuthority makes Block reject blocks not signed by authority.
func WithAuthority(authority crypto.Address) Option {
	return func(c *Client) { c.authority = authority }
}

// WithClock replaces the clock driving PollForBlockChange.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithWatcherConfig sets how watchers react to events.
func WithWatcherConfig(cfg *config.WatcherConfig) Option {
	return func(c *Client) { c.wcfg = cfg }
}

// New returns a client signing with signer. root must be a session bound
// to the signer's address.
func New(
	logger log.Logger,
	cfg *config.ParticipantConfig,
	signer types.Signer,
	chain rpcclient.Client,
	root rootchain.RootChain,
	opts ...Option,
) (*Client, error) {
	if root.Address() != signer.Address() {
		return nil, fmt.Errorf("root chain session is bound to %s, signer is %s", root.Address(), signer.Address())
	}
	roots, err := lru.New[uint64, crypto.Hash](cfg.RootCacheSize)
	if err != nil {
		return nil, err
	}
	c := &Client{
		logger:  logger.With("module", "client", "address", signer.Address()),
		cfg:     cfg,
		wcfg:    config.DefaultWatcherConfig(),
		signer:  signer,
		chain:   chain,
		root:    root,
		metrics: NopMetrics(),
		clock:   clockwork.NewRealClock(),
		roots:   roots,
		tasks:   taskgroup.New(nil),
		watches: make(map[watchKey]*Watch),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address is the participant's address.
func (c *Client) Address() crypto.Address { return c.signer.Address() }

// Deposit locks a token on the root chain, minting its coin.
func (c *Client) Deposit(ctx context.Context, uid, denomination uint64) (rootchain.DepositEvent, error) {
	return c.root.Deposit(ctx, uid, denomination)
}

// SendTransaction transfers the coin received at prevBlock to newOwner.
// The denomination is copied from the spent transaction.
func (c *Client) SendTransaction(ctx context.Context, slot, prevBlock uint64, newOwner crypto.Address) (crypto.Hash, error) {
	prev, err := c.chain.Tx(ctx, prevBlock, slot)
	if err != nil {
		return crypto.Hash{}, err
	}
	if prev.IsZero() {
		return crypto.Hash{}, fmt.Errorf("slot %d at block %d: %w", slot, prevBlock, ErrNotIncluded)
	}
	tx, err := types.UnsignedTx{
		Slot:         slot,
		PrevBlock:    prevBlock,
		Denomination: prev.Denomination(),
		NewOwner:     newOwner,
	}.Sign(c.signer)
	if err != nil {
		return crypto.Hash{}, err
	}
	hash, err := c.chain.SendTransaction(ctx, tx)
	if err != nil {
		return crypto.Hash{}, err
	}
	c.logger.Debug("sent transaction", "slot", slot, "prev_block", prevBlock, "to", newOwner, "hash", hash)
	return hash, nil
}

// Block returns committed block n, checking its signature when the
// client knows the authority.
func (c *Client) Block(ctx context.Context, n uint64) (*types.Block, error) {
	block, err := c.chain.Block(ctx, n)
	if err != nil {
		return nil, err
	}
	if !c.authority.IsZero() && !types.IsDepositBlock(n) {
		if err := block.VerifySignature(c.authority); err != nil {
			return nil, fmt.Errorf("block %d: %w", n, err)
		}
	}
	return block, nil
}

// PollForBlockChange waits until the child chain commits a checkpoint
// above from and returns its number.
func (c *Client) PollForBlockChange(ctx context.Context, from uint64) (uint64, error) {
	ticker := c.clock.NewTicker(c.cfg.PollPeriod)
	defer ticker.Stop()
	for {
		n, err := c.chain.BlockNumber(ctx)
		if err != nil {
			return 0, err
		}
		if n > from {
			return n, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.Chan():
		}
	}
}

// PlasmaCoin returns the root chain's record of slot.
func (c *Client) PlasmaCoin(ctx context.Context, slot uint64) (types.PlasmaCoin, error) {
	return c.root.PlasmaCoin(ctx, slot)
}

// FinalizeExits settles every matured exit.
func (c *Client) FinalizeExits(ctx context.Context) error {
	return c.root.FinalizeExits(ctx)
}

// Withdraw takes an exited coin out of the contract.
func (c *Client) Withdraw(ctx context.Context, slot uint64) error {
	return c.root.Withdraw(ctx, slot)
}

// WithdrawBonds pays out the bonds freed for this participant.
func (c *Client) WithdrawBonds(ctx context.Context) error {
	return c.root.WithdrawBonds(ctx)
}

// Close stops every watcher and waits for them to exit.
func (c *Client) Close() error {
	c.mtx.Lock()
	c.closed = true
	watches := make([]*Watch, 0, len(c.watches))
	for _, w := range c.watches {
		watches = append(watches, w)
	}
	c.mtx.Unlock()

	for _, w := range watches {
		w.cancel()
	}
	return c.tasks.Wait()
}
