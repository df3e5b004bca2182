package client_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/plasmacash/plasma/client"
	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/secp256k1"
	"github.com/plasmacash/plasma/internal/childchain"
	"github.com/plasmacash/plasma/internal/store"
	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/libs/pubsub"
	"github.com/plasmacash/plasma/rootchain"
	"github.com/plasmacash/plasma/rootchain/sim"
	rpcclient "github.com/plasmacash/plasma/rpc/client"
	"github.com/plasmacash/plasma/rpc/client/local"
	rpccore "github.com/plasmacash/plasma/rpc/core"
	"github.com/plasmacash/plasma/types"
)

// network is an authority, its child chain and a simulated root chain,
// all in process.
type network struct {
	t         *testing.T
	ctx       context.Context
	clock     clockwork.FakeClock
	authority secp256k1.PrivKey
	contract  *sim.Contract
	publisher *publisher
	chain     *childchain.ChildChain
	rpc       rpcclient.Client
	clients   []*client.Client
}

func newNetwork(t *testing.T, opts ...childchain.Option) *network {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	n := &network{t: t, ctx: ctx, clock: clockwork.NewFakeClock(), authority: secp256k1.GenPrivKey()}
	n.contract = sim.NewContract(log.NewNopLogger(), n.authority.Address(), sim.WithClock(n.clock))
	require.NoError(t, n.contract.Start(ctx))

	n.publisher = &publisher{RootChain: n.contract.Session(n.authority.Address())}
	cc, err := childchain.New(log.NewNopLogger(), n.authority, store.NewBlockStore(dbm.NewMemDB()),
		n.publisher, opts...)
	require.NoError(t, err)
	n.chain = cc
	n.rpc = local.New(&rpccore.Environment{ChildChain: cc, Logger: log.NewNopLogger(), Config: *config.TestRPCConfig()})
	return n
}

// publisher hands checkpoints to the root chain unless it is failing.
type publisher struct {
	rootchain.RootChain
	failing atomic.Bool
}

func (p *publisher) SubmitBlock(ctx context.Context, number uint64, root crypto.Hash) error {
	if p.failing.Load() {
		return types.NewCollaboratorError("submit_block", errors.New("root chain unreachable"))
	}
	return p.RootChain.SubmitBlock(ctx, number, root)
}

// participant returns a client for a fresh key.
func (n *network) participant() *client.Client {
	n.t.Helper()
	key := secp256k1.GenPrivKey()
	c, err := client.New(log.NewNopLogger(), config.DefaultParticipantConfig(), key, n.rpc,
		n.contract.Session(key.Address()),
		client.WithAuthority(n.authority.Address()),
		client.WithClock(n.clock),
	)
	require.NoError(n.t, err)
	n.clients = append(n.clients, c)
	return c
}

// deposit mints a coin for owner and applies it to the child chain.
func (n *network) deposit(owner *client.Client, uid uint64) rootchain.DepositEvent {
	n.t.Helper()
	ev, err := owner.Deposit(n.ctx, uid, 1)
	require.NoError(n.t, err)
	require.NoError(n.t, n.chain.OnDeposit(ev.Slot, ev.BlockNumber, ev.Denomination, ev.From))
	return ev
}

func (n *network) send(from *client.Client, slot, prevBlock uint64, to *client.Client) {
	n.t.Helper()
	_, err := from.SendTransaction(n.ctx, slot, prevBlock, to.Address())
	require.NoError(n.t, err)
}

// forge adds a transfer signed by from without going through the client.
func (n *network) forge(from secp256k1.PrivKey, slot, prevBlock uint64, to crypto.Address) {
	n.t.Helper()
	tx, err := types.UnsignedTx{Slot: slot, PrevBlock: prevBlock, Denomination: 1, NewOwner: to}.Sign(from)
	require.NoError(n.t, err)
	_, err = n.chain.SubmitTransaction(tx)
	require.NoError(n.t, err)
}

func (n *network) submit(want uint64) {
	n.t.Helper()
	got, err := n.chain.SubmitBlock(n.ctx)
	require.NoError(n.t, err)
	require.Equal(n.t, want, got)
}

// events subscribes to every event about slot.
func (n *network) events(slot uint64) *pubsub.Subscription {
	n.t.Helper()
	q := rootchain.QueryForEvent(
		rootchain.EventStartedExit,
		rootchain.EventChallengedExit,
		rootchain.EventRespondedChallenge,
		rootchain.EventFinalizedExit,
	).ForSlot(slot)
	sub, err := n.contract.Session(n.authority.Address()).Subscribe(n.ctx, "test", q, 16)
	require.NoError(n.t, err)
	return sub
}

// next waits for the next event on sub.
func (n *network) next(sub *pubsub.Subscription) rootchain.Event {
	n.t.Helper()
	select {
	case msg := <-sub.Out():
		return msg.Data().(rootchain.Event)
	case <-sub.Canceled():
		n.t.Fatalf("subscription canceled: %v", sub.Err())
	case <-time.After(5 * time.Second):
		n.t.Fatal("timed out waiting for event")
	}
	return nil
}

// stop closes every client and the root chain.
func (n *network) stop() {
	n.t.Helper()
	for _, c := range n.clients {
		require.NoError(n.t, c.Close())
	}
	require.NoError(n.t, n.contract.Stop())
}
