package rootchain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/plasmacash/plasma/crypto"
)

// Reserved tag keys.
const (
	EventTypeKey = "rootchain.event"
	SlotKey      = "rootchain.slot"
)

// Event types emitted by the contract.
const (
	EventDeposit            = "Deposit"
	EventSubmittedBlock     = "SubmittedBlock"
	EventStartedExit        = "StartedExit"
	EventChallengedExit     = "ChallengedExit"
	EventRespondedChallenge = "RespondedChallenge"
	EventFinalizedExit      = "FinalizedExit"
)

// Event is implemented by every contract event.
type Event interface {
	EventType() string
}

// SlotEvent is an event about a single coin.
type SlotEvent interface {
	Event
	EventSlot() uint64
}

// ChallengeKind tells the three exit challenges apart.
type ChallengeKind uint8

const (
	ChallengeBefore ChallengeKind = iota + 1
	ChallengeBetween
	ChallengeAfter
)

func (k ChallengeKind) String() string {
	switch k {
	case ChallengeBefore:
		return "before"
	case ChallengeBetween:
		return "between"
	case ChallengeAfter:
		return "after"
	default:
		return "ChallengeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

type DepositEvent struct {
	Slot         uint64
	BlockNumber  uint64
	Denomination uint64
	From         crypto.Address
}

type SubmittedBlockEvent struct {
	BlockNumber uint64
	Root        crypto.Hash
}

type StartedExitEvent struct {
	Slot      uint64
	Owner     crypto.Address
	PrevBlock uint64
	ExitBlock uint64
}

// ChallengedExitEvent reports an accepted challenge. Between and after
// challenges cancel the exit on the spot; a challenge-before stays open
// until answered or until the exit is finalized.
type ChallengedExitEvent struct {
	Slot             uint64
	Kind             ChallengeKind
	Challenger       crypto.Address
	TxHash           crypto.Hash
	ChallengingBlock uint64
}

type RespondedChallengeEvent struct {
	Slot            uint64
	TxHash          crypto.Hash
	RespondingBlock uint64
}

type FinalizedExitEvent struct {
	Slot      uint64
	Owner     crypto.Address
	Cancelled bool
}

func (DepositEvent) EventType() string            { return EventDeposit }
func (SubmittedBlockEvent) EventType() string     { return EventSubmittedBlock }
func (StartedExitEvent) EventType() string        { return EventStartedExit }
func (ChallengedExitEvent) EventType() string     { return EventChallengedExit }
func (RespondedChallengeEvent) EventType() string { return EventRespondedChallenge }
func (FinalizedExitEvent) EventType() string      { return EventFinalizedExit }

func (e DepositEvent) EventSlot() uint64            { return e.Slot }
func (e StartedExitEvent) EventSlot() uint64        { return e.Slot }
func (e ChallengedExitEvent) EventSlot() uint64     { return e.Slot }
func (e RespondedChallengeEvent) EventSlot() uint64 { return e.Slot }
func (e FinalizedExitEvent) EventSlot() uint64      { return e.Slot }

// EventTags returns the tags ev is published with.
func EventTags(ev Event) map[string]string {
	tags := map[string]string{EventTypeKey: ev.EventType()}
	if se, ok := ev.(SlotEvent); ok {
		tags[SlotKey] = strconv.FormatUint(se.EventSlot(), 10)
	}
	return tags
}

// Query selects events by type and, optionally, by slot. It implements
// pubsub.Query.
type Query struct {
	types   []string
	slot    uint64
	hasSlot bool
}

// QueryForEvent matches the given event types.
func QueryForEvent(eventTypes ...string) Query {
	ts := append([]string(nil), eventTypes...)
	sort.Strings(ts)
	return Query{types: ts}
}

// ForSlot narrows q to events about slot.
func (q Query) ForSlot(slot uint64) Query {
	q.slot, q.hasSlot = slot, true
	return q
}

var (
	EventQueryDeposit        = QueryForEvent(EventDeposit)
	EventQuerySubmittedBlock = QueryForEvent(EventSubmittedBlock)
	EventQueryStartedExit    = QueryForEvent(EventStartedExit)
	// EventQueryChallenges matches what an exiting owner must react to.
	EventQueryChallenges = QueryForEvent(EventChallengedExit, EventRespondedChallenge, EventFinalizedExit)
)

func (q Query) Matches(tags map[string]string) bool {
	if len(q.types) > 0 {
		i := sort.SearchStrings(q.types, tags[EventTypeKey])
		if i == len(q.types) || q.types[i] != tags[EventTypeKey] {
			return false
		}
	}
	if q.hasSlot {
		return tags[SlotKey] == strconv.FormatUint(q.slot, 10)
	}
	return true
}

func (q Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s IN (%s)", EventTypeKey, strings.Join(q.types, ","))
	if q.hasSlot {
		fmt.Fprintf(&b, " AND %s = %d", SlotKey, q.slot)
	}
	return b.String()
}
