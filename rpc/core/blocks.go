package core

import (
	"context"

	"github.com/plasmacash/plasma/rpc/coretypes"
	"github.com/plasmacash/plasma/types"
)

// BlockNumber returns the latest checkpoint number.
func (env *Environment) BlockNumber(ctx context.Context) (*coretypes.ResultBlockNumber, error) {
	return &coretypes.ResultBlockNumber{Number: env.ChildChain.BlockNumber()}, nil
}

// CurrentBlock returns the open, unsigned block.
func (env *Environment) CurrentBlock(ctx context.Context) (*coretypes.ResultBlock, error) {
	block, err := env.ChildChain.GetCurrentBlock()
	if err != nil {
		return nil, rpcError(err)
	}
	return resultBlock(block)
}

// Block returns a committed block.
func (env *Environment) Block(ctx context.Context, req *coretypes.RequestBlock) (*coretypes.ResultBlock, error) {
	block, err := env.ChildChain.GetBlock(req.Number)
	if err != nil {
		return nil, rpcError(err)
	}
	return resultBlock(block)
}

// SubmitBlock seals the open block and publishes its root.
func (env *Environment) SubmitBlock(ctx context.Context) (*coretypes.ResultSubmitBlock, error) {
	n, err := env.ChildChain.SubmitBlock(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	return &coretypes.ResultSubmitBlock{Number: n}, nil
}

func resultBlock(block *types.Block) (*coretypes.ResultBlock, error) {
	bz, err := block.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &coretypes.ResultBlock{Block: bz}, nil
}
