package types

import (
	"fmt"
	"time"

	"github.com/plasmacash/plasma/crypto"
)

// CoinState is the root-chain lifecycle of a coin.
type CoinState uint8

const (
	CoinDeposited CoinState = iota
	CoinExiting
	CoinChallenged
	CoinExited
)

func (s CoinState) String() string {
	switch s {
	case CoinDeposited:
		return "deposited"
	case CoinExiting:
		return "exiting"
	case CoinChallenged:
		return "challenged"
	case CoinExited:
		return "exited"
	default:
		return fmt.Sprintf("CoinState(%d)", uint8(s))
	}
}

// PlasmaCoin is the root chain's record of a deposited coin. Owner is the
// depositor; transfers on the child chain do not change it.
type PlasmaCoin struct {
	Slot         uint64
	UID          uint64
	DepositBlock uint64
	Denomination uint64
	Owner        crypto.Address
	State        CoinState
}

// Exit is a pending withdrawal claim. PrevOwner is the owner named by the
// transaction at PrevBlock, the only key allowed to sign the exiting spend.
type Exit struct {
	Slot      uint64
	Owner     crypto.Address
	PrevOwner crypto.Address
	PrevBlock uint64
	ExitBlock uint64
	State     CoinState
	CreatedAt time.Time
}

// Challenge is an open challenge-before against an exit. It is answered by
// a transaction signed by Owner at a block after ChallengingBlock.
type Challenge struct {
	Slot             uint64
	Challenger       crypto.Address
	Owner            crypto.Address
	TxHash           crypto.Hash
	ChallengingBlock uint64
}
