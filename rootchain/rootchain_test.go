package rootchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/crypto/secp256k1"
	"github.com/plasmacash/plasma/types"
)

func TestQueryMatches(t *testing.T) {
	exit := StartedExitEvent{Slot: 42, ExitBlock: 2000}
	other := StartedExitEvent{Slot: 43}
	challenge := ChallengedExitEvent{Slot: 42, Kind: ChallengeBefore}

	assert.True(t, EventQueryStartedExit.Matches(EventTags(exit)))
	assert.True(t, EventQueryStartedExit.ForSlot(42).Matches(EventTags(exit)))
	assert.False(t, EventQueryStartedExit.ForSlot(42).Matches(EventTags(other)))
	assert.False(t, EventQueryStartedExit.Matches(EventTags(challenge)))
	assert.True(t, EventQueryChallenges.ForSlot(42).Matches(EventTags(challenge)))
	assert.False(t, EventQueryChallenges.Matches(EventTags(SubmittedBlockEvent{BlockNumber: 1000})))

	assert.NotEqual(t, EventQueryStartedExit.String(), EventQueryStartedExit.ForSlot(42).String())
	assert.Equal(t, QueryForEvent(EventFinalizedExit, EventDeposit).String(),
		QueryForEvent(EventDeposit, EventFinalizedExit).String())
}

func TestEvidenceIncluded(t *testing.T) {
	owner := secp256k1.GenPrivKey()

	deposit := types.NewDepositTx(5, 1, owner.Address())
	ev := Evidence{Block: 7, Tx: deposit}
	assert.True(t, ev.Included(deposit.Hash()))
	assert.False(t, ev.Included(types.DepositHash(6)))

	spend, err := types.UnsignedTx{Slot: 5, PrevBlock: 7, Denomination: 1, NewOwner: crypto.Address{1}}.Sign(owner)
	require.NoError(t, err)
	block, err := types.NewBlock(spend)
	require.NoError(t, err)

	ev = Evidence{Block: 1000, Tx: spend, Proof: block.Proof(5)}
	assert.True(t, ev.Included(block.MerkleRoot()))
	ev.Proof = block.Proof(6)
	assert.False(t, ev.Included(block.MerkleRoot()))
}

func TestChallengeKindString(t *testing.T) {
	assert.Equal(t, "between", ChallengeBetween.String())
	assert.Equal(t, "ChallengeKind(9)", ChallengeKind(9).String())
}
