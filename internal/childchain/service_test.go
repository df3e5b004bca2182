package childchain

import (
	"context"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/plasmacash/plasma/crypto/secp256k1"
	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/rootchain"
	"github.com/plasmacash/plasma/rootchain/sim"
)

func TestSubmitterSkipsEmptyBlocks(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cc, pub, _ := newChain(t, nil)
	clock := clockwork.NewFakeClock()
	s := NewSubmitter(log.NewNopLogger(), cc, clock, time.Second, false)
	require.NoError(t, s.Start(ctx))

	alice := secp256k1.GenPrivKey()
	require.NoError(t, cc.OnDeposit(slot, 1, 1, alice.Address()))
	_, err := cc.SubmitTransaction(transfer(t, alice, 1, 1, alice.Address()))
	require.NoError(t, err)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return cc.BlockNumber() == 1000 }, time.Second, 10*time.Millisecond)

	// nothing is pending, so the next tick submits nothing
	clock.Advance(time.Second)
	require.Never(t, func() bool { return cc.BlockNumber() != 1000 }, 100*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	require.Contains(t, pub.roots, uint64(1000))
}

func TestDepositIngester(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authority, alice := secp256k1.GenPrivKey(), secp256k1.GenPrivKey()
	contract := sim.NewContract(log.NewNopLogger(), authority.Address())
	require.NoError(t, contract.Start(ctx))

	cc, _, _ := newChain(t, nil)
	di := NewDepositIngester(log.NewNopLogger(), cc, contract.Session(authority.Address()), 16)
	require.NoError(t, di.Start(ctx))

	ev, err := contract.Session(alice.Address()).Deposit(ctx, 5, 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		tx, err := cc.GetTx(ev.BlockNumber, ev.Slot)
		return err == nil && tx.NewOwner() == alice.Address()
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, di.Stop())
	require.NoError(t, contract.Stop())
}

func TestDepositIngesterReplaysEarlierDeposits(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authority, alice := secp256k1.GenPrivKey(), secp256k1.GenPrivKey()
	contract := sim.NewContract(log.NewNopLogger(), authority.Address())
	require.NoError(t, contract.Start(ctx))

	// emitted while no ingester runs
	ev, err := contract.Session(alice.Address()).Deposit(ctx, 5, 1)
	require.NoError(t, err)

	cc, _, _ := newChain(t, nil)
	di := NewDepositIngester(log.NewNopLogger(), cc, contract.Session(authority.Address()), 16)
	require.NoError(t, di.Start(ctx))

	require.Eventually(t, func() bool {
		_, err := cc.GetTx(ev.BlockNumber, ev.Slot)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, di.Stop())
	require.NoError(t, contract.Stop())
}

func TestDepositIngesterSurvivesBursts(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authority, alice := secp256k1.GenPrivKey(), secp256k1.GenPrivKey()
	contract := sim.NewContract(log.NewNopLogger(), authority.Address())
	require.NoError(t, contract.Start(ctx))

	cc, _, _ := newChain(t, nil)
	di := NewDepositIngester(log.NewNopLogger(), cc, contract.Session(authority.Address()), 4)
	require.NoError(t, di.Start(ctx))

	session := contract.Session(alice.Address())
	var deposits []rootchain.DepositEvent
	for uid := uint64(0); uid < 200; uid++ {
		ev, err := session.Deposit(ctx, uid, 1)
		require.NoError(t, err)
		deposits = append(deposits, ev)
	}

	applied := func(ev rootchain.DepositEvent) bool {
		_, err := cc.GetTx(ev.BlockNumber, ev.Slot)
		return err == nil
	}
	require.Eventually(t, func() bool {
		for _, ev := range deposits {
			if !applied(ev) {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
	require.True(t, di.IsRunning())

	// and it keeps following new deposits
	ev, err := session.Deposit(ctx, 500, 1)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return applied(ev) }, time.Second, 10*time.Millisecond)

	require.NoError(t, di.Stop())
	require.NoError(t, contract.Stop())
}
