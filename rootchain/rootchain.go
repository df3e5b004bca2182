// Package rootchain describes the boundary to the root-chain contract that
// custodies deposits, records checkpoint roots and arbitrates exits.
//
// A RootChain value is a session bound to one account: every state-changing
// call is sent from Address and bonded calls attach the contract's bond.
package rootchain

import (
	"context"
	"errors"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/smt"
	"github.com/plasmacash/plasma/libs/pubsub"
	"github.com/plasmacash/plasma/types"
)

// ErrReverted is wrapped by every call the contract rejects.
var ErrReverted = errors.New("root chain call reverted")

// Evidence is a transaction together with the block that includes it and
// the Merkle proof of inclusion. Deposit blocks need no proof.
type Evidence struct {
	Block uint64
	Tx    types.Transaction
	Proof smt.Proof
}

// Included reports whether ev.Tx is committed by root. The root of a deposit
// block is the deposit transaction hash itself.
func (ev Evidence) Included(root crypto.Hash) bool {
	if types.IsDepositBlock(ev.Block) {
		return ev.Tx.Hash() == root
	}
	return smt.VerifyInclusion(ev.Tx.Slot(), ev.Tx.Hash(), ev.Proof, root)
}

// ExitRequest carries the two most recent transactions of a coin. Exits of
// a deposit leave Prev zero and carry a transaction signed by the exitor.
type ExitRequest struct {
	Slot    uint64
	Prev    Evidence
	Exiting Evidence
}

// PrevBlock is the block of the exit's previous transaction.
func (r ExitRequest) PrevBlock() uint64 { return r.Prev.Block }

// ExitBlock is the block of the exiting transaction.
func (r ExitRequest) ExitBlock() uint64 { return r.Exiting.Block }

// RootChain is the contract session used by the authority and by
// participants. Failures are *types.CollaboratorError values; rejections by
// the contract additionally wrap ErrReverted.
type RootChain interface {
	// Address is the account the session sends from.
	Address() crypto.Address

	// Deposit locks a token on the root chain and mints its coin.
	Deposit(ctx context.Context, uid, denomination uint64) (DepositEvent, error)
	// Deposits returns the deposit log from block number from on, in
	// emission order.
	Deposits(ctx context.Context, from uint64) ([]DepositEvent, error)
	// CurrentBlock returns the latest block number known to the contract,
	// checkpoint or deposit.
	CurrentBlock(ctx context.Context) (uint64, error)
	// SubmitBlock records the Merkle root of checkpoint number. Only the
	// authority may call it.
	SubmitBlock(ctx context.Context, number uint64, root crypto.Hash) error
	// BlockRoot returns the root recorded for number.
	BlockRoot(ctx context.Context, number uint64) (crypto.Hash, error)

	StartExit(ctx context.Context, req ExitRequest) error
	// ChallengeBefore claims that challenging is a later valid state than
	// the exit's history. Bonded.
	ChallengeBefore(ctx context.Context, slot uint64, prev, challenging Evidence) error
	// RespondChallengeBefore answers the challenge whose transaction hashes
	// to challengingTxHash with a spend of it.
	RespondChallengeBefore(ctx context.Context, slot uint64, challengingTxHash crypto.Hash, response Evidence) error
	ChallengeBetween(ctx context.Context, slot uint64, challenging Evidence) error
	ChallengeAfter(ctx context.Context, slot uint64, challenging Evidence) error
	FinalizeExits(ctx context.Context) error
	Withdraw(ctx context.Context, slot uint64) error
	WithdrawBonds(ctx context.Context) error

	Exit(ctx context.Context, slot uint64) (types.Exit, error)
	Challenges(ctx context.Context, slot uint64) ([]types.Challenge, error)
	PlasmaCoin(ctx context.Context, slot uint64) (types.PlasmaCoin, error)

	// Subscribe streams contract events matching q in emission order.
	Subscribe(ctx context.Context, clientID string, q Query, capacity int) (*pubsub.Subscription, error)
	Unsubscribe(ctx context.Context, clientID string, q Query) error
}
