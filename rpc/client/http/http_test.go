package http_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/secp256k1"
	"github.com/plasmacash/plasma/crypto/smt"
	"github.com/plasmacash/plasma/internal/childchain"
	"github.com/plasmacash/plasma/internal/store"
	"github.com/plasmacash/plasma/libs/log"
	rpchttp "github.com/plasmacash/plasma/rpc/client/http"
	rpccore "github.com/plasmacash/plasma/rpc/core"
	jsonrpcclient "github.com/plasmacash/plasma/rpc/jsonrpc/client"
	"github.com/plasmacash/plasma/types"
)

type roots map[uint64]crypto.Hash

func (r roots) SubmitBlock(_ context.Context, number uint64, root crypto.Hash) error {
	r[number] = root
	return nil
}

func setup(t *testing.T) (*childchain.ChildChain, roots, secp256k1.PrivKey, *rpchttp.HTTP) {
	t.Helper()
	authority := secp256k1.GenPrivKey()
	published := roots{}
	cc, err := childchain.New(log.NewNopLogger(), authority, store.NewBlockStore(dbm.NewMemDB()), published)
	require.NoError(t, err)

	cfg := config.DefaultRPCConfig()
	cfg.Unsafe = true
	env := &rpccore.Environment{ChildChain: cc, Logger: log.NewNopLogger(), Config: *cfg}
	srv := httptest.NewServer(env.Handler())
	t.Cleanup(srv.Close)

	c, err := rpchttp.New(srv.URL)
	require.NoError(t, err)
	return cc, published, authority, c
}

func TestHTTPRoundTrip(t *testing.T) {
	ctx := context.Background()
	cc, published, authority, c := setup(t)
	alice, bob := secp256k1.GenPrivKey(), secp256k1.GenPrivKey()
	const slot = uint64(1<<63 + 5)

	n, err := c.BlockNumber(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	require.NoError(t, cc.OnDeposit(slot, 7, 1, alice.Address()))
	deposit, proof, err := c.TxAndProof(ctx, 7, slot)
	require.NoError(t, err)
	assert.Equal(t, types.NewDepositTx(slot, 1, alice.Address()), deposit)
	assert.Equal(t, smt.EmptyProof, proof)

	tx, err := types.UnsignedTx{Slot: slot, PrevBlock: 7, Denomination: 1, NewOwner: bob.Address()}.Sign(alice)
	require.NoError(t, err)
	hash, err := c.SendTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), hash)

	_, err = c.SendTransaction(ctx, tx)
	require.ErrorIs(t, err, types.ErrCoinAlreadyIncluded)
	require.ErrorIs(t, err, types.ErrValidation)
	code, ok := types.ValidationCode(err)
	require.True(t, ok)
	assert.Equal(t, "CoinAlreadyIncluded", code)

	open, err := c.CurrentBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, open.Len())
	assert.False(t, open.IsSigned())

	n, err = c.SubmitBlock(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, n)

	block, err := c.Block(ctx, 1000)
	require.NoError(t, err)
	require.NoError(t, block.VerifySignature(authority.Address()))
	assert.Equal(t, published[1000], block.MerkleRoot())

	got, proof, err := c.TxAndProof(ctx, 1000, slot)
	require.NoError(t, err)
	assert.Equal(t, tx, got)
	assert.True(t, smt.VerifyInclusion(slot, got.Hash(), proof, block.MerkleRoot()))

	proof2, err := c.Proof(ctx, 1000, slot)
	require.NoError(t, err)
	assert.Equal(t, proof, proof2, "proofs are byte identical")

	missing, err := c.Tx(ctx, 1000, slot+1)
	require.NoError(t, err)
	assert.True(t, missing.IsZero())
	proof, err = c.Proof(ctx, 1000, slot+1)
	require.NoError(t, err)
	assert.True(t, smt.VerifyExclusion(slot+1, proof, block.MerkleRoot()))

	_, err = c.Block(ctx, 5)
	require.ErrorIs(t, err, types.ErrBlockNotFound)
}

func TestHTTPStaleSpend(t *testing.T) {
	ctx := context.Background()
	cc, _, _, c := setup(t)
	alice, bob, carol := secp256k1.GenPrivKey(), secp256k1.GenPrivKey(), secp256k1.GenPrivKey()
	const slot = uint64(9)

	require.NoError(t, cc.OnDeposit(slot, 1, 1, alice.Address()))
	toBob, err := types.UnsignedTx{Slot: slot, PrevBlock: 1, Denomination: 1, NewOwner: bob.Address()}.Sign(alice)
	require.NoError(t, err)
	_, err = c.SendTransaction(ctx, toBob)
	require.NoError(t, err)
	_, err = c.SubmitBlock(ctx)
	require.NoError(t, err)

	toCarol, err := types.UnsignedTx{Slot: slot, PrevBlock: 1, Denomination: 1, NewOwner: carol.Address()}.Sign(alice)
	require.NoError(t, err)
	_, err = c.SendTransaction(ctx, toCarol)
	require.ErrorIs(t, err, types.ErrTxAlreadySpent)
}

func TestHTTPTransportFailure(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close()

	c, err := rpchttp.New(addr, jsonrpcclient.WithRetries(1, time.Millisecond))
	require.NoError(t, err)
	_, err = c.BlockNumber(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrCollaborator))
	assert.False(t, errors.Is(err, types.ErrValidation))
}
