package local

import (
	"context"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/smt"
	rpcclient "github.com/plasmacash/plasma/rpc/client"
	rpccore "github.com/plasmacash/plasma/rpc/core"
	"github.com/plasmacash/plasma/rpc/coretypes"
	"github.com/plasmacash/plasma/types"
)

/*
Local is a Client implementation that directly executes the rpc
functions on a given child chain, without going through HTTP.

Results still travel in their wire encoding, so Local observes exactly
what a remote participant would.
*/
type Local struct {
	env *rpccore.Environment
}

var _ rpcclient.Client = (*Local)(nil)

// New configures a client that calls the child chain directly.
func New(env *rpccore.Environment) *Local {
	return &Local{env: env}
}

func (c *Local) BlockNumber(ctx context.Context) (uint64, error) {
	res, err := c.env.BlockNumber(ctx)
	if err != nil {
		return 0, rpcclient.ParseError(coretypes.MethodBlockNumber, err)
	}
	return res.Number, nil
}

func (c *Local) CurrentBlock(ctx context.Context) (*types.Block, error) {
	res, err := c.env.CurrentBlock(ctx)
	if err != nil {
		return nil, rpcclient.ParseError(coretypes.MethodCurrentBlock, err)
	}
	return rpcclient.DecodeBlock(res)
}

func (c *Local) Block(ctx context.Context, number uint64) (*types.Block, error) {
	res, err := c.env.Block(ctx, &coretypes.RequestBlock{Number: number})
	if err != nil {
		return nil, rpcclient.ParseError(coretypes.MethodBlock, err)
	}
	return rpcclient.DecodeBlock(res)
}

func (c *Local) SubmitBlock(ctx context.Context) (uint64, error) {
	res, err := c.env.SubmitBlock(ctx)
	if err != nil {
		return 0, rpcclient.ParseError(coretypes.MethodSubmitBlock, err)
	}
	return res.Number, nil
}

func (c *Local) SendTransaction(ctx context.Context, tx types.Transaction) (crypto.Hash, error) {
	bz, err := tx.MarshalBinary()
	if err != nil {
		return crypto.Hash{}, err
	}
	res, err := c.env.SendTransaction(ctx, &coretypes.RequestSendTransaction{Tx: bz})
	if err != nil {
		return crypto.Hash{}, rpcclient.ParseError(coretypes.MethodSendTransaction, err)
	}
	return res.Hash, nil
}

func (c *Local) Proof(ctx context.Context, number, slot uint64) (smt.Proof, error) {
	res, err := c.env.Proof(ctx, &coretypes.RequestTx{Block: number, Slot: slot})
	if err != nil {
		return nil, rpcclient.ParseError(coretypes.MethodProof, err)
	}
	return res.Proof, nil
}

func (c *Local) Tx(ctx context.Context, number, slot uint64) (types.Transaction, error) {
	res, err := c.env.Tx(ctx, &coretypes.RequestTx{Block: number, Slot: slot})
	if err != nil {
		return types.Transaction{}, rpcclient.ParseError(coretypes.MethodTx, err)
	}
	return rpcclient.DecodeTx(res.Tx)
}

func (c *Local) TxAndProof(ctx context.Context, number, slot uint64) (types.Transaction, smt.Proof, error) {
	res, err := c.env.TxAndProof(ctx, &coretypes.RequestTx{Block: number, Slot: slot})
	if err != nil {
		return types.Transaction{}, nil, rpcclient.ParseError(coretypes.MethodTxAndProof, err)
	}
	tx, err := rpcclient.DecodeTx(res.Tx)
	if err != nil {
		return types.Transaction{}, nil, err
	}
	return tx, res.Proof, nil
}
