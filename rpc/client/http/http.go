package http

import (
	"context"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/smt"
	rpcclient "github.com/plasmacash/plasma/rpc/client"
	"github.com/plasmacash/plasma/rpc/coretypes"
	jsonrpcclient "github.com/plasmacash/plasma/rpc/jsonrpc/client"
	"github.com/plasmacash/plasma/types"
)

/*
HTTP is a Client implementation that communicates with a child chain over
JSON-RPC. Reads are retried on transport failures; SubmitBlock and
SendTransaction are sent exactly once.

Request batching is not supported.
*/
type HTTP struct {
	caller *jsonrpcclient.Client
}

var _ rpcclient.Client = (*HTTP)(nil)

// New takes a remote endpoint in the form <protocol>://<host>:<port>.
func New(remote string, opts ...jsonrpcclient.Option) (*HTTP, error) {
	rc, err := jsonrpcclient.New(remote, opts...)
	if err != nil {
		return nil, err
	}
	return &HTTP{caller: rc}, nil
}

// Remote returns the remote address.
func (c *HTTP) Remote() string { return c.caller.Address() }

func (c *HTTP) BlockNumber(ctx context.Context) (uint64, error) {
	result := new(coretypes.ResultBlockNumber)
	if err := c.caller.Call(ctx, coretypes.MethodBlockNumber, nil, result); err != nil {
		return 0, rpcclient.ParseError(coretypes.MethodBlockNumber, err)
	}
	return result.Number, nil
}

func (c *HTTP) CurrentBlock(ctx context.Context) (*types.Block, error) {
	result := new(coretypes.ResultBlock)
	if err := c.caller.Call(ctx, coretypes.MethodCurrentBlock, nil, result); err != nil {
		return nil, rpcclient.ParseError(coretypes.MethodCurrentBlock, err)
	}
	return rpcclient.DecodeBlock(result)
}

func (c *HTTP) Block(ctx context.Context, number uint64) (*types.Block, error) {
	result := new(coretypes.ResultBlock)
	params := &coretypes.RequestBlock{Number: number}
	if err := c.caller.Call(ctx, coretypes.MethodBlock, params, result); err != nil {
		return nil, rpcclient.ParseError(coretypes.MethodBlock, err)
	}
	return rpcclient.DecodeBlock(result)
}

func (c *HTTP) SubmitBlock(ctx context.Context) (uint64, error) {
	result := new(coretypes.ResultSubmitBlock)
	if err := c.caller.CallOnce(ctx, coretypes.MethodSubmitBlock, nil, result); err != nil {
		return 0, rpcclient.ParseError(coretypes.MethodSubmitBlock, err)
	}
	return result.Number, nil
}

func (c *HTTP) SendTransaction(ctx context.Context, tx types.Transaction) (crypto.Hash, error) {
	bz, err := tx.MarshalBinary()
	if err != nil {
		return crypto.Hash{}, err
	}
	result := new(coretypes.ResultSendTransaction)
	params := &coretypes.RequestSendTransaction{Tx: bz}
	if err := c.caller.CallOnce(ctx, coretypes.MethodSendTransaction, params, result); err != nil {
		return crypto.Hash{}, rpcclient.ParseError(coretypes.MethodSendTransaction, err)
	}
	return result.Hash, nil
}

func (c *HTTP) Proof(ctx context.Context, number, slot uint64) (smt.Proof, error) {
	result := new(coretypes.ResultProof)
	params := &coretypes.RequestTx{Block: number, Slot: slot}
	if err := c.caller.Call(ctx, coretypes.MethodProof, params, result); err != nil {
		return nil, rpcclient.ParseError(coretypes.MethodProof, err)
	}
	return result.Proof, nil
}

func (c *HTTP) Tx(ctx context.Context, number, slot uint64) (types.Transaction, error) {
	result := new(coretypes.ResultTx)
	params := &coretypes.RequestTx{Block: number, Slot: slot}
	if err := c.caller.Call(ctx, coretypes.MethodTx, params, result); err != nil {
		return types.Transaction{}, rpcclient.ParseError(coretypes.MethodTx, err)
	}
	return rpcclient.DecodeTx(result.Tx)
}

func (c *HTTP) TxAndProof(ctx context.Context, number, slot uint64) (types.Transaction, smt.Proof, error) {
	result := new(coretypes.ResultTxAndProof)
	params := &coretypes.RequestTx{Block: number, Slot: slot}
	if err := c.caller.Call(ctx, coretypes.MethodTxAndProof, params, result); err != nil {
		return types.Transaction{}, nil, rpcclient.ParseError(coretypes.MethodTxAndProof, err)
	}
	tx, err := rpcclient.DecodeTx(result.Tx)
	if err != nil {
		return types.Transaction{}, nil, err
	}
	return tx, result.Proof, nil
}
