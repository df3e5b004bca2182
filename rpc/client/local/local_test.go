package local_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/secp256k1"
	"github.com/plasmacash/plasma/internal/childchain"
	"github.com/plasmacash/plasma/internal/store"
	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/rpc/client/local"
	rpccore "github.com/plasmacash/plasma/rpc/core"
	"github.com/plasmacash/plasma/types"
)

type failingPublisher struct{}

func (failingPublisher) SubmitBlock(context.Context, uint64, crypto.Hash) error {
	return errors.New("root chain unavailable")
}

func TestLocalErrorKinds(t *testing.T) {
	ctx := context.Background()
	authority := secp256k1.GenPrivKey()
	cc, err := childchain.New(log.NewNopLogger(), authority, store.NewBlockStore(dbm.NewMemDB()), failingPublisher{})
	require.NoError(t, err)
	c := local.New(&rpccore.Environment{ChildChain: cc, Logger: log.NewNopLogger(), Config: *config.DefaultRPCConfig()})

	alice := secp256k1.GenPrivKey()
	tx, err := types.UnsignedTx{Slot: 3, PrevBlock: 1, Denomination: 1, NewOwner: alice.Address()}.Sign(alice)
	require.NoError(t, err)
	_, err = c.SendTransaction(ctx, tx)
	require.ErrorIs(t, err, types.ErrPreviousTxNotFound)

	require.NoError(t, cc.OnDeposit(3, 1, 1, alice.Address()))
	_, err = c.SendTransaction(ctx, tx)
	require.NoError(t, err)

	// the block is committed even though its root was not published
	_, err = c.SubmitBlock(ctx)
	require.ErrorIs(t, err, types.ErrCollaborator)
	n, err := c.BlockNumber(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1000, n)

	block, err := c.Block(ctx, 1000)
	require.NoError(t, err)
	require.NoError(t, block.VerifySignature(authority.Address()))

	got, err := c.Tx(ctx, 1000, 3)
	require.NoError(t, err)
	require.Equal(t, tx, got)

	_, err = c.Block(ctx, 2)
	require.ErrorIs(t, err, types.ErrBlockNotFound)
}
