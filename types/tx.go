package types

import (
	"encoding/binary"
	"fmt"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/secp256k1"
)

// Hash domains. A deposit-origin transaction hashes its slot alone, every
// other transaction hashes its unsigned encoding; the tag keeps the two
// pre-image spaces apart. Authority and clients must agree byte for byte.
const (
	depositHashTag byte = 0x00
	spendHashTag   byte = 0x01
)

// Signer produces recoverable signatures. secp256k1.PrivKey implements it.
type Signer interface {
	Sign(hash crypto.Hash) (crypto.Signature, error)
	Address() crypto.Address
}

var _ Signer = secp256k1.PrivKey{}

// UnsignedTx holds the fields of a coin transfer. It is the builder for
// Transaction: fill it in, then Sign it.
type UnsignedTx struct {
	Slot         uint64
	PrevBlock    uint64
	Denomination uint64
	NewOwner     crypto.Address
}

// IsDeposit reports whether the transaction originates from a deposit.
func (u UnsignedTx) IsDeposit() bool { return u.PrevBlock == 0 }

// Hash returns the leaf committed for the transaction in a block.
func (u UnsignedTx) Hash() crypto.Hash {
	if u.IsDeposit() {
		return DepositHash(u.Slot)
	}
	return crypto.Keccak256Hash([]byte{spendHashTag}, u.Bytes())
}

// Bytes returns the canonical unsigned encoding.
func (u UnsignedTx) Bytes() []byte {
	bz, err := encode(&u)
	if err != nil {
		// encoding into memory cannot fail
		panic(err)
	}
	return bz
}

// Sign returns the immutable signed transaction.
func (u UnsignedTx) Sign(signer Signer) (Transaction, error) {
	sig, err := signer.Sign(u.Hash())
	if err != nil {
		return Transaction{}, fmt.Errorf("signing transaction: %w", err)
	}
	return Transaction{u: u, sig: sig}, nil
}

// WithSignature attaches an existing signature. The signature is checked
// only when the sender is recovered.
func (u UnsignedTx) WithSignature(sig crypto.Signature) Transaction {
	return Transaction{u: u, sig: sig}
}

// DepositHash returns the leaf of the deposit-origin transaction for slot.
func DepositHash(slot uint64) crypto.Hash {
	var buf [9]byte
	buf[0] = depositHashTag
	binary.BigEndian.PutUint64(buf[1:], slot)
	return crypto.Keccak256Hash(buf[:])
}

// NewDepositTx builds the synthetic, unsigned transaction minted by a deposit.
func NewDepositTx(slot, denomination uint64, owner crypto.Address) Transaction {
	return Transaction{u: UnsignedTx{
		Slot:         slot,
		Denomination: denomination,
		NewOwner:     owner,
	}}
}

// Transaction is a signed coin transfer. It is immutable: build it from an
// UnsignedTx and read it through its accessors.
type Transaction struct {
	u   UnsignedTx
	sig crypto.Signature
}

func (tx Transaction) Slot() uint64                { return tx.u.Slot }
func (tx Transaction) PrevBlock() uint64           { return tx.u.PrevBlock }
func (tx Transaction) Denomination() uint64        { return tx.u.Denomination }
func (tx Transaction) NewOwner() crypto.Address    { return tx.u.NewOwner }
func (tx Transaction) Signature() crypto.Signature { return tx.sig }
func (tx Transaction) IsDeposit() bool             { return tx.u.IsDeposit() }
func (tx Transaction) Hash() crypto.Hash           { return tx.u.Hash() }

// Unsigned returns the transaction fields without the signature.
func (tx Transaction) Unsigned() UnsignedTx { return tx.u }

// Sender recovers the signer. An unsigned transaction yields
// crypto.ErrInvalidSignature.
func (tx Transaction) Sender() (crypto.Address, error) {
	return secp256k1.RecoverAddress(tx.Hash(), tx.sig)
}

// IsZero reports whether tx is the zero value, which stands for "no
// transaction" in query results.
func (tx Transaction) IsZero() bool { return tx == Transaction{} }

func (tx Transaction) String() string {
	return fmt.Sprintf("Tx{slot:%d prev:%d denom:%d owner:%s}",
		tx.u.Slot, tx.u.PrevBlock, tx.u.Denomination, tx.u.NewOwner)
}
