package client_test

import (
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"

	"github.com/plasmacash/plasma/client"
	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/crypto/secp256k1"
	"github.com/plasmacash/plasma/internal/childchain"
	"github.com/plasmacash/plasma/rootchain"
	"github.com/plasmacash/plasma/rootchain/sim"
	"github.com/plasmacash/plasma/types"
)

func requireChallenge(t *testing.T, ev rootchain.Event, kind rootchain.ChallengeKind, block uint64, by *client.Client) {
	t.Helper()
	ch, ok := ev.(rootchain.ChallengedExitEvent)
	require.True(t, ok, "got %T", ev)
	require.Equal(t, kind, ch.Kind)
	require.Equal(t, block, ch.ChallengingBlock)
	require.Equal(t, by.Address(), ch.Challenger)
}

// Alice double-spends her deposit to Eve through a misbehaving operator.
// Eve's exit is caught by Carol, who holds the coin legitimately.
func TestChallengeBetweenScenario(t *testing.T) {
	defer leaktest.Check(t)()

	n := newNetwork(t, childchain.WithoutSpendChecks())
	filler := n.participant()
	for uid := uint64(1); uid <= 6; uid++ {
		n.deposit(filler, uid)
	}
	alice, bob, carol, eve := n.participant(), n.participant(), n.participant(), n.participant()

	dep := n.deposit(alice, 42)
	require.EqualValues(t, 7, dep.BlockNumber)
	slot := dep.Slot

	n.send(alice, slot, 7, bob)
	n.submit(1000)
	n.send(bob, slot, 1000, carol)
	n.submit(2000)

	h, err := carol.BuildCoinHistory(n.ctx, slot)
	require.NoError(t, err)
	require.Equal(t, []uint64{7, 1000, 2000}, h.Included())
	require.True(t, carol.VerifyCoinHistory(n.ctx, h))

	n.send(alice, slot, 7, eve)
	n.submit(3000)

	events := n.events(slot)
	_, err = carol.WatchExits(n.ctx, slot)
	require.NoError(t, err)

	require.NoError(t, eve.StartExit(n.ctx, slot, 7, 3000))
	require.IsType(t, rootchain.StartedExitEvent{}, n.next(events))
	requireChallenge(t, n.next(events), rootchain.ChallengeBetween, 1000, carol)
	require.Equal(t, sim.Bond, n.contract.Bonds(carol.Address()))

	// with the fraudulent exit gone, Carol exits herself
	carol.StopWatchingExits(slot)
	require.NoError(t, carol.StartExit(n.ctx, slot, 1000, 2000))
	exit, err := carol.PlasmaCoin(n.ctx, slot)
	require.NoError(t, err)
	require.Equal(t, types.CoinExiting, exit.State)

	n.stop()
}

// Carol exits a coin she already gave to Frank.
func TestChallengeAfterScenario(t *testing.T) {
	defer leaktest.Check(t)()

	n := newNetwork(t)
	alice, bob, carol, frank := n.participant(), n.participant(), n.participant(), n.participant()
	slot := n.deposit(alice, 1).Slot

	n.send(alice, slot, 1, bob)
	n.submit(1000)
	n.send(bob, slot, 1000, carol)
	n.submit(2000)
	n.send(carol, slot, 2000, frank)
	n.submit(3000)

	events := n.events(slot)
	_, err := frank.WatchExits(n.ctx, slot)
	require.NoError(t, err)
	// exits of one's own are never challenged
	_, err = carol.WatchExits(n.ctx, slot)
	require.NoError(t, err)

	require.NoError(t, carol.StartExit(n.ctx, slot, 1000, 2000))
	require.IsType(t, rootchain.StartedExitEvent{}, n.next(events))
	requireChallenge(t, n.next(events), rootchain.ChallengeAfter, 3000, frank)
	require.Equal(t, sim.Bond, n.contract.Bonds(frank.Address()))
	require.Zero(t, n.contract.Bonds(carol.Address()))

	n.stop()
}

// Carol exits a coin she gave to Frank in a checkpoint whose publication
// failed. Frank's watcher waits for the checkpoint to reach the root chain
// and then challenges.
func TestChallengeAfterAwaitsPublication(t *testing.T) {
	defer leaktest.Check(t)()

	n := newNetwork(t)
	alice, bob, carol, frank := n.participant(), n.participant(), n.participant(), n.participant()
	slot := n.deposit(alice, 1).Slot

	n.send(alice, slot, 1, bob)
	n.submit(1000)
	n.send(bob, slot, 1000, carol)
	n.submit(2000)
	n.send(carol, slot, 2000, frank)
	n.publisher.failing.Store(true)
	committed, err := n.chain.SubmitBlock(n.ctx)
	require.Error(t, err)
	require.EqualValues(t, 3000, committed)

	// the history stops at what the root chain recorded
	blocks, err := frank.GetRelevantBlockNumbers(n.ctx, slot)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 1000, 2000}, blocks)

	events := n.events(slot)
	_, err = frank.WatchExits(n.ctx, slot)
	require.NoError(t, err)

	require.NoError(t, carol.StartExit(n.ctx, slot, 1000, 2000))
	require.IsType(t, rootchain.StartedExitEvent{}, n.next(events))

	// the watcher is waiting to retry
	n.clock.BlockUntil(1)
	n.publisher.failing.Store(false)
	n.submit(4000)
	n.clock.Advance(config.DefaultWatcherConfig().HistoryRetryWait)

	requireChallenge(t, n.next(events), rootchain.ChallengeAfter, 3000, frank)
	require.Equal(t, sim.Bond, n.contract.Bonds(frank.Address()))

	n.stop()
}

// Mallory, with the operator's help, forges a spend of Bob's coin and
// passes it on to Nick, who exits. Bob proves his earlier ownership and
// Nick cannot answer.
func TestChallengeBeforeScenario(t *testing.T) {
	defer leaktest.Check(t)()

	n := newNetwork(t, childchain.WithoutSpendChecks())
	alice, bob, nick := n.participant(), n.participant(), n.participant()
	mallory := secp256k1.GenPrivKey()
	slot := n.deposit(alice, 1).Slot

	n.send(alice, slot, 1, bob)
	n.submit(1000)
	n.forge(mallory, slot, 1000, mallory.Address())
	n.submit(2000)
	n.forge(mallory, slot, 2000, nick.Address())
	n.submit(3000)

	events := n.events(slot)
	_, err := bob.WatchExits(n.ctx, slot)
	require.NoError(t, err)
	_, err = nick.WatchChallenges(n.ctx, slot)
	require.NoError(t, err)

	require.NoError(t, nick.StartExit(n.ctx, slot, 2000, 3000))
	require.IsType(t, rootchain.StartedExitEvent{}, n.next(events))
	requireChallenge(t, n.next(events), rootchain.ChallengeBefore, 1000, bob)

	coin, err := nick.PlasmaCoin(n.ctx, slot)
	require.NoError(t, err)
	require.Equal(t, types.CoinChallenged, coin.State)
	err = nick.RespondChallengeBefore(n.ctx, slot, 1000)
	require.ErrorIs(t, err, client.ErrNoResponse)

	n.clock.Advance(sim.MaturityPeriod)
	require.NoError(t, bob.FinalizeExits(n.ctx))
	fin, ok := n.next(events).(rootchain.FinalizedExitEvent)
	require.True(t, ok)
	require.True(t, fin.Cancelled)
	require.Equal(t, 2*sim.Bond, n.contract.Bonds(bob.Address()))

	n.stop()
}

// Alice challenges Carol's honest exit with her old deposit; Carol's
// watcher answers with Alice's own spend and the exit goes through.
func TestRespondChallengeBeforeScenario(t *testing.T) {
	defer leaktest.Check(t)()

	n := newNetwork(t)
	alice, bob, carol := n.participant(), n.participant(), n.participant()
	dep := n.deposit(alice, 1)
	slot := dep.Slot

	n.send(alice, slot, dep.BlockNumber, bob)
	n.submit(1000)
	n.send(bob, slot, 1000, carol)
	n.submit(2000)

	events := n.events(slot)
	_, err := carol.WatchChallenges(n.ctx, slot)
	require.NoError(t, err)

	require.NoError(t, carol.StartExit(n.ctx, slot, 1000, 2000))
	require.IsType(t, rootchain.StartedExitEvent{}, n.next(events))

	require.NoError(t, alice.ChallengeBefore(n.ctx, slot, 0, dep.BlockNumber))
	requireChallenge(t, n.next(events), rootchain.ChallengeBefore, dep.BlockNumber, alice)

	resp, ok := n.next(events).(rootchain.RespondedChallengeEvent)
	require.True(t, ok)
	require.EqualValues(t, 1000, resp.RespondingBlock)

	n.clock.Advance(sim.MaturityPeriod)
	require.NoError(t, carol.FinalizeExits(n.ctx))
	fin, ok := n.next(events).(rootchain.FinalizedExitEvent)
	require.True(t, ok)
	require.False(t, fin.Cancelled)

	require.NoError(t, carol.Withdraw(n.ctx, slot))
	require.Equal(t, []uint64{slot}, n.contract.Tokens(carol.Address()))
	// the exit bond and the bond of the answered challenge
	require.Equal(t, 2*sim.Bond, n.contract.Bonds(carol.Address()))
	require.NoError(t, carol.WithdrawBonds(n.ctx))

	n.stop()
}

func TestDepositExit(t *testing.T) {
	n := newNetwork(t)
	alice, bob := n.participant(), n.participant()
	dep := n.deposit(alice, 1)

	require.Error(t, bob.StartExit(n.ctx, dep.Slot, 0, dep.BlockNumber))
	require.NoError(t, alice.StartExit(n.ctx, dep.Slot, 0, dep.BlockNumber))

	n.clock.Advance(sim.MaturityPeriod)
	require.NoError(t, alice.FinalizeExits(n.ctx))
	require.NoError(t, alice.Withdraw(n.ctx, dep.Slot))
	require.Equal(t, []uint64{dep.Slot}, n.contract.Tokens(alice.Address()))

	n.stop()
}
