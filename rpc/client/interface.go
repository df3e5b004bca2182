// Package client defines the child-chain service as seen by participants.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/smt"
	"github.com/plasmacash/plasma/rpc/coretypes"
	rpctypes "github.com/plasmacash/plasma/rpc/jsonrpc/types"
	"github.com/plasmacash/plasma/types"
)

// Client is the child-chain service. Implementations: http.HTTP over
// JSON-RPC and local.Local in process.
//
// Validation failures are returned as wrapped types.ValidationError
// sentinels, missing blocks wrap types.ErrBlockNotFound and everything
// else is a types.CollaboratorError.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	CurrentBlock(ctx context.Context) (*types.Block, error)
	Block(ctx context.Context, number uint64) (*types.Block, error)
	SubmitBlock(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, tx types.Transaction) (crypto.Hash, error)
	Proof(ctx context.Context, number, slot uint64) (smt.Proof, error)
	Tx(ctx context.Context, number, slot uint64) (types.Transaction, error)
	TxAndProof(ctx context.Context, number, slot uint64) (types.Transaction, smt.Proof, error)
}

// ParseError restores the error kind carried by a JSON-RPC error.
func ParseError(op string, err error) error {
	if err == nil {
		return nil
	}
	var rerr *rpctypes.RPCError
	if !errors.As(err, &rerr) {
		return types.NewCollaboratorError(op, err)
	}
	switch rerr.Code {
	case rpctypes.CodeValidationError:
		if verr, ok := types.ValidationErrorByCode(rerr.Data); ok {
			return fmt.Errorf("%s: %w", op, verr)
		}
	case rpctypes.CodeNotFound:
		return fmt.Errorf("%s: %w: %s", op, types.ErrBlockNotFound, rerr.Data)
	case rpctypes.CodeInvalidParams:
		return fmt.Errorf("%s: %w: %s", op, types.ErrMalformedEncoding, rerr.Data)
	}
	return types.NewCollaboratorError(op, err)
}

// DecodeTx decodes a tx result; an empty encoding is the zero Transaction.
func DecodeTx(bz []byte) (types.Transaction, error) {
	if len(bz) == 0 {
		return types.Transaction{}, nil
	}
	return types.DecodeTx(bz)
}

// DecodeBlock decodes a block result.
func DecodeBlock(res *coretypes.ResultBlock) (*types.Block, error) {
	return types.DecodeBlock(res.Block)
}
