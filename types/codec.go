package types

import (
	"bytes"
	"fmt"

	"github.com/spacemeshos/go-scale"

	"github.com/plasmacash/plasma/crypto"
)

// MaxBlockTxs bounds the transaction count accepted when decoding a block.
const MaxBlockTxs = 1 << 20

func encode(v scale.Encodable) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := v.EncodeScale(scale.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode fills v from bz, rejecting trailing bytes and any encoding that is
// not the canonical one for the decoded value.
func decode(bz []byte, v interface {
	scale.Decodable
	scale.Encodable
}) error {
	n, err := v.DecodeScale(scale.NewDecoder(bytes.NewReader(bz)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	if n != len(bz) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedEncoding, len(bz)-n)
	}
	again, err := encode(v)
	if err != nil || !bytes.Equal(again, bz) {
		return fmt.Errorf("%w: non-canonical encoding", ErrMalformedEncoding)
	}
	return nil
}

// EncodeScale implements scale.Encodable.
func (u *UnsignedTx) EncodeScale(enc *scale.Encoder) (total int, err error) {
	for _, field := range []uint64{u.Slot, u.PrevBlock, u.Denomination} {
		n, err := scale.EncodeCompact64(enc, field)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteArray(enc, u.NewOwner[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale.Decodable.
func (u *UnsignedTx) DecodeScale(dec *scale.Decoder) (total int, err error) {
	for _, field := range []*uint64{&u.Slot, &u.PrevBlock, &u.Denomination} {
		value, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		*field = value
	}
	{
		n, err := scale.DecodeByteArray(dec, u.NewOwner[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// EncodeScale implements scale.Encodable.
func (tx *Transaction) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := tx.u.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteArray(enc, tx.sig[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale.Decodable.
func (tx *Transaction) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := tx.u.DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.DecodeByteArray(dec, tx.sig[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeUnsignedTx decodes the canonical unsigned encoding.
func DecodeUnsignedTx(bz []byte) (UnsignedTx, error) {
	var u UnsignedTx
	if err := decode(bz, &u); err != nil {
		return UnsignedTx{}, fmt.Errorf("decoding unsigned tx: %w", err)
	}
	return u, nil
}

// MarshalBinary returns the wire encoding: unsigned fields then signature.
func (tx Transaction) MarshalBinary() ([]byte, error) {
	return encode(&tx)
}

// DecodeTx decodes a transaction in wire encoding.
func DecodeTx(bz []byte) (Transaction, error) {
	var tx Transaction
	if err := decode(bz, &tx); err != nil {
		return Transaction{}, fmt.Errorf("decoding tx: %w", err)
	}
	return tx, nil
}

// blockBody is the scale form of a block: transactions sorted by slot,
// optionally followed by the signature.
type blockBody struct {
	txs      []Transaction
	sig      crypto.Signature
	unsigned bool
}

func (b *blockBody) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeCompact32(enc, uint32(len(b.txs)))
		if err != nil {
			return total, err
		}
		total += n
	}
	for i := range b.txs {
		n, err := b.txs[i].EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	if !b.unsigned {
		n, err := scale.EncodeByteArray(enc, b.sig[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (b *blockBody) DecodeScale(dec *scale.Decoder) (total int, err error) {
	count, n, err := scale.DecodeCompact32(dec)
	if err != nil {
		return total, err
	}
	total += n
	if count > MaxBlockTxs {
		return total, fmt.Errorf("block carries %d transactions, limit is %d", count, MaxBlockTxs)
	}
	b.txs = make([]Transaction, count)
	for i := range b.txs {
		n, err := b.txs[i].DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
		if i > 0 && b.txs[i].Slot() <= b.txs[i-1].Slot() {
			return total, fmt.Errorf("transactions not strictly ordered by slot at index %d", i)
		}
	}
	if !b.unsigned {
		n, err := scale.DecodeByteArray(dec, b.sig[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// MarshalBinary returns the wire encoding of the block.
func (b *Block) MarshalBinary() ([]byte, error) {
	return encode(&blockBody{txs: b.txs, sig: b.sig})
}

// DecodeBlock decodes a block in wire encoding.
func DecodeBlock(bz []byte) (*Block, error) {
	var body blockBody
	if err := decode(bz, &body); err != nil {
		return nil, fmt.Errorf("decoding block: %w", err)
	}
	return newBlock(body.txs, body.sig)
}
