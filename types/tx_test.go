package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/secp256k1"
)

func randAddress() crypto.Address {
	return secp256k1.GenPrivKey().Address()
}

func TestDepositHashDomain(t *testing.T) {
	owner := randAddress()
	deposit := NewDepositTx(42, 1, owner)
	require.True(t, deposit.IsDeposit())
	require.Equal(t, DepositHash(42), deposit.Hash())
	require.NotEqual(t, DepositHash(42), DepositHash(43))

	// The deposit hash depends on the slot alone.
	require.Equal(t, deposit.Hash(), NewDepositTx(42, 5, randAddress()).Hash())

	// A spend of the same slot never lands in the deposit domain.
	spend := UnsignedTx{Slot: 42, PrevBlock: 1000, Denomination: 1, NewOwner: owner}
	require.NotEqual(t, deposit.Hash(), spend.Hash())
	require.Equal(t, crypto.Keccak256Hash([]byte{spendHashTag}, spend.Bytes()), spend.Hash())
}

func TestTxHashExcludesSignature(t *testing.T) {
	key := secp256k1.GenPrivKey()
	u := UnsignedTx{Slot: 7, PrevBlock: 2000, Denomination: 1, NewOwner: randAddress()}
	tx, err := u.Sign(key)
	require.NoError(t, err)
	require.Equal(t, u.Hash(), tx.Hash())

	other := u.WithSignature(crypto.Signature{1})
	require.Equal(t, tx.Hash(), other.Hash())
}

func TestSignAndRecoverSender(t *testing.T) {
	key := secp256k1.GenPrivKey()
	tx, err := UnsignedTx{Slot: 1, PrevBlock: 3, Denomination: 1, NewOwner: randAddress()}.Sign(key)
	require.NoError(t, err)

	sender, err := tx.Sender()
	require.NoError(t, err)
	require.Equal(t, key.Address(), sender)
}

func TestUnsignedSenderFails(t *testing.T) {
	tx := UnsignedTx{Slot: 1, PrevBlock: 1000, Denomination: 1}.WithSignature(crypto.Signature{})
	_, err := tx.Sender()
	require.ErrorIs(t, err, crypto.ErrInvalidSignature)

	_, err = NewDepositTx(1, 1, randAddress()).Sender()
	require.ErrorIs(t, err, crypto.ErrInvalidSignature)
}

func TestTxBoundaryRoundTrip(t *testing.T) {
	key := secp256k1.GenPrivKey()
	for _, u := range []UnsignedTx{
		{},
		{Slot: 0, PrevBlock: 0, Denomination: 0, NewOwner: randAddress()},
		{Slot: ^uint64(0), PrevBlock: ^uint64(0), Denomination: ^uint64(0), NewOwner: randAddress()},
		{Slot: 1 << 32, PrevBlock: 1000, Denomination: 1, NewOwner: randAddress()},
	} {
		back, err := DecodeUnsignedTx(u.Bytes())
		require.NoError(t, err)
		require.Equal(t, u, back)

		tx, err := u.Sign(key)
		require.NoError(t, err)
		bz, err := tx.MarshalBinary()
		require.NoError(t, err)
		decoded, err := DecodeTx(bz)
		require.NoError(t, err)
		require.Equal(t, tx, decoded)
	}
}

func TestDecodeTxRejectsMalformed(t *testing.T) {
	tx, err := UnsignedTx{Slot: 0, PrevBlock: 5, Denomination: 1, NewOwner: randAddress()}.
		Sign(secp256k1.GenPrivKey())
	require.NoError(t, err)
	bz, err := tx.MarshalBinary()
	require.NoError(t, err)

	_, err = DecodeTx(bz[:len(bz)-1])
	require.ErrorIs(t, err, ErrMalformedEncoding, "truncated")

	_, err = DecodeTx(append(append([]byte(nil), bz...), 0))
	require.ErrorIs(t, err, ErrMalformedEncoding, "trailing byte")

	// slot 0 is encoded as the single byte 0x00; the two-byte form of the
	// same value is not canonical.
	require.Equal(t, byte(0), bz[0])
	long := append([]byte{0x01, 0x00}, bz[1:]...)
	_, err = DecodeTx(long)
	require.ErrorIs(t, err, ErrMalformedEncoding, "non-canonical integer")

	_, err = DecodeTx(nil)
	require.True(t, errors.Is(err, ErrMalformedEncoding))
}

func TestTxRoundTripProperty(t *testing.T) {
	key := secp256k1.GenPrivKey()
	rapid.Check(t, func(t *rapid.T) {
		var owner crypto.Address
		copy(owner[:], rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "owner").([]byte))
		u := UnsignedTx{
			Slot:         rapid.Uint64().Draw(t, "slot").(uint64),
			PrevBlock:    rapid.Uint64().Draw(t, "prev").(uint64),
			Denomination: rapid.Uint64().Draw(t, "denom").(uint64),
			NewOwner:     owner,
		}

		back, err := DecodeUnsignedTx(u.Bytes())
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if back != u {
			t.Fatalf("round trip mismatch: %+v != %+v", back, u)
		}

		tx, err := u.Sign(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		sender, err := tx.Sender()
		if err != nil || sender != key.Address() {
			t.Fatalf("recovered %s, %v; want %s", sender, err, key.Address())
		}
	})
}
