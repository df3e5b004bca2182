package core

import (
	"context"

	"github.com/plasmacash/plasma/rpc/coretypes"
	"github.com/plasmacash/plasma/types"
)

// SendTransaction validates a transaction into the open block.
func (env *Environment) SendTransaction(ctx context.Context, req *coretypes.RequestSendTransaction) (*coretypes.ResultSendTransaction, error) {
	tx, err := types.DecodeTx(req.Tx)
	if err != nil {
		return nil, rpcError(err)
	}
	hash, err := env.ChildChain.SubmitTransaction(tx)
	if err != nil {
		return nil, rpcError(err)
	}
	return &coretypes.ResultSendTransaction{Hash: hash}, nil
}

// Proof returns the proof for slot in a block.
func (env *Environment) Proof(ctx context.Context, req *coretypes.RequestTx) (*coretypes.ResultProof, error) {
	proof, err := env.ChildChain.GetProof(req.Block, req.Slot)
	if err != nil {
		return nil, rpcError(err)
	}
	return &coretypes.ResultProof{Proof: proof}, nil
}

// Tx returns the transaction moving slot in a block, if any.
func (env *Environment) Tx(ctx context.Context, req *coretypes.RequestTx) (*coretypes.ResultTx, error) {
	tx, err := env.ChildChain.GetTx(req.Block, req.Slot)
	if err != nil {
		return nil, rpcError(err)
	}
	bz, err := encodeTx(tx)
	if err != nil {
		return nil, err
	}
	return &coretypes.ResultTx{Tx: bz}, nil
}

// TxAndProof bundles Tx and Proof.
func (env *Environment) TxAndProof(ctx context.Context, req *coretypes.RequestTx) (*coretypes.ResultTxAndProof, error) {
	tx, proof, err := env.ChildChain.GetTxAndProof(req.Block, req.Slot)
	if err != nil {
		return nil, rpcError(err)
	}
	bz, err := encodeTx(tx)
	if err != nil {
		return nil, err
	}
	return &coretypes.ResultTxAndProof{Tx: bz, Proof: proof}, nil
}

func encodeTx(tx types.Transaction) ([]byte, error) {
	if tx.IsZero() {
		return []byte{}, nil
	}
	return tx.MarshalBinary()
}
