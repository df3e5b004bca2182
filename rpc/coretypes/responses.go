// Package coretypes holds the parameters and results of the child-chain
// JSON-RPC methods. Transactions and blocks travel in their canonical
// binary encoding as hex; proofs as hex of the raw proof bytes.
package coretypes

import (
	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/smt"
	"github.com/plasmacash/plasma/libs/bytes"
)

// Method names.
const (
	MethodBlockNumber     = "block_number"
	MethodCurrentBlock    = "current_block"
	MethodBlock           = "block"
	MethodSubmitBlock     = "submit_block"
	MethodSendTransaction = "send_transaction"
	MethodProof           = "proof"
	MethodTx              = "tx"
	MethodTxAndProof      = "tx_and_proof"
)

type RequestBlock struct {
	Number uint64 `json:"number,string"`
}

type RequestTx struct {
	Block uint64 `json:"block,string"`
	Slot  uint64 `json:"slot,string"`
}

type RequestSendTransaction struct {
	Tx bytes.HexBytes `json:"tx"`
}

type ResultBlockNumber struct {
	Number uint64 `json:"number,string"`
}

type ResultBlock struct {
	Block bytes.HexBytes `json:"block"`
}

type ResultSubmitBlock struct {
	Number uint64 `json:"number,string"`
}

type ResultSendTransaction struct {
	Hash crypto.Hash `json:"hash"`
}

type ResultProof struct {
	Proof smt.Proof `json:"proof"`
}

// ResultTx carries an empty Tx when the block does not move the slot.
type ResultTx struct {
	Tx bytes.HexBytes `json:"tx"`
}

type ResultTxAndProof struct {
	Tx    bytes.HexBytes `json:"tx"`
	Proof smt.Proof      `json:"proof"`
}
