package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/plasmacash/plasma/libs/pubsub"
	"github.com/plasmacash/plasma/rootchain"
	"github.com/plasmacash/plasma/types"
)

// ErrClosed is returned when a watch is requested from a closed Client.
var ErrClosed = errors.New("client closed")

// Watch kinds.
const (
	WatchExits      = "exits"
	WatchChallenges = "challenges"
)

type watchKey struct {
	kind string
	slot uint64
}

// Watch is a running watcher of one slot. Events are handled one at a
// time in the order the root chain emits them.
type Watch struct {
	ID   string
	Kind string
	Slot uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the watcher and waits for it to exit.
func (w *Watch) Stop() {
	w.cancel()
	<-w.done
}

// Done is closed once the watcher has exited.
func (w *Watch) Done() <-chan struct{} { return w.done }

// handler reacts to one event. Errors are logged; the watch goes on.
type handler func(ctx context.Context, ev rootchain.Event) error

// resync reacts to the root chain's current state of a slot after events
// may have been missed.
type resync func(ctx context.Context, slot uint64) error

// WatchExits polices exits of slot: every exit started by someone else is
// classified against the coin's history and, when fraudulent and
// AutoChallenge is set, challenged.
func (c *Client) WatchExits(ctx context.Context, slot uint64) (*Watch, error) {
	return c.watch(ctx, WatchExits, slot, rootchain.EventQueryStartedExit.ForSlot(slot), c.onStartedExit, c.resyncExit)
}

// WatchChallenges guards the participant's own exit of slot: every
// challenge-before raised against it is answered when AutoRespond is set.
func (c *Client) WatchChallenges(ctx context.Context, slot uint64) (*Watch, error) {
	return c.watch(ctx, WatchChallenges, slot, rootchain.EventQueryChallenges.ForSlot(slot), c.onChallengeEvent, c.resyncChallenges)
}

// StopWatchingExits stops the exit watcher of slot, if any.
func (c *Client) StopWatchingExits(slot uint64) { c.stopWatching(watchKey{WatchExits, slot}) }

// StopWatchingChallenges stops the challenge watcher of slot, if any.
func (c *Client) StopWatchingChallenges(slot uint64) { c.stopWatching(watchKey{WatchChallenges, slot}) }

// Watching reports whether a watcher of the given kind runs for slot.
func (c *Client) Watching(kind string, slot uint64) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	_, ok := c.watches[watchKey{kind, slot}]
	return ok
}

func (c *Client) stopWatching(key watchKey) {
	c.mtx.Lock()
	w, ok := c.watches[key]
	c.mtx.Unlock()
	if ok {
		w.Stop()
	}
}

func (c *Client) watch(ctx context.Context, kind string, slot uint64, q rootchain.Query, handle handler, catchUp resync) (*Watch, error) {
	key := watchKey{kind, slot}

	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if _, ok := c.watches[key]; ok {
		return nil, fmt.Errorf("already watching %s of slot %d", kind, slot)
	}

	id := fmt.Sprintf("watcher-%s", uuid.NewString())
	sub, err := c.root.Subscribe(ctx, id, q, c.wcfg.EventBuffer)
	if err != nil {
		return nil, err
	}

	// the watcher outlives the ctx it was started with
	wctx, cancel := context.WithCancel(context.Background())
	w := &Watch{ID: id, Kind: kind, Slot: slot, cancel: cancel, done: make(chan struct{})}
	c.watches[key] = w

	logger := c.logger.With("watch", kind, "slot", slot)
	c.tasks.Go(func() error {
		defer close(w.done)
		defer func() {
			c.mtx.Lock()
			if c.watches[key] == w {
				delete(c.watches, key)
			}
			c.mtx.Unlock()
			if err := c.root.Unsubscribe(context.Background(), id, q); err != nil && !errors.Is(err, pubsub.ErrSubscriptionNotFound) {
				logger.Debug("unsubscribing", "err", err)
			}
		}()
		for {
			err := consume(wctx, sub, func(ev rootchain.Event) {
				if err := handle(wctx, ev); err != nil {
					logger.Error("handling event", "event", ev.EventType(), "err", err)
				}
			})
			if !errors.Is(err, pubsub.ErrOutOfCapacity) {
				if err != nil && !errors.Is(err, pubsub.ErrUnsubscribed) && !errors.Is(err, pubsub.ErrServerStopped) {
					logger.Error("event subscription terminated", "err", err)
				}
				return nil
			}
			logger.Info("event subscription fell behind, resubscribing")
			if sub, err = c.root.Subscribe(wctx, id, q, c.wcfg.EventBuffer); err != nil {
				logger.Error("resubscribing", "err", err)
				return nil
			}
			if err := catchUp(wctx, slot); err != nil {
				logger.Error("catching up with root chain", "err", err)
			}
		}
	})
	logger.Debug("watching")
	return w, nil
}

// consume passes events from sub to fn until ctx is done, returning nil,
// or until sub is cancelled, returning the reason.
func consume(ctx context.Context, sub *pubsub.Subscription, fn func(rootchain.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Canceled():
			return sub.Err()
		case msg := <-sub.Out():
			if ev, ok := msg.Data().(rootchain.Event); ok {
				fn(ev)
			}
		}
	}
}

// resyncExit handles the exit of slot open on the root chain, if any, as
// if its StartedExit event had just arrived.
func (c *Client) resyncExit(ctx context.Context, slot uint64) error {
	coin, err := c.root.PlasmaCoin(ctx, slot)
	if err != nil {
		return err
	}
	if coin.State != types.CoinExiting && coin.State != types.CoinChallenged {
		return nil
	}
	exit, err := c.root.Exit(ctx, slot)
	if err != nil {
		return err
	}
	return c.onStartedExit(ctx, rootchain.StartedExitEvent{
		Slot:      slot,
		Owner:     exit.Owner,
		PrevBlock: exit.PrevBlock,
		ExitBlock: exit.ExitBlock,
	})
}

// resyncChallenges handles every open challenge-before against slot.
func (c *Client) resyncChallenges(ctx context.Context, slot uint64) error {
	chs, err := c.root.Challenges(ctx, slot)
	if err != nil {
		return err
	}
	for _, ch := range chs {
		err := c.onChallengeEvent(ctx, rootchain.ChallengedExitEvent{
			Slot:             slot,
			Kind:             rootchain.ChallengeBefore,
			Challenger:       ch.Challenger,
			TxHash:           ch.TxHash,
			ChallengingBlock: ch.ChallengingBlock,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) onStartedExit(ctx context.Context, e rootchain.Event) error {
	ev, ok := e.(rootchain.StartedExitEvent)
	if !ok || ev.Owner == c.Address() {
		return nil
	}
	exit, err := c.root.Exit(ctx, ev.Slot)
	if err != nil {
		return err
	}
	h, err := c.settledHistory(ctx, ev.Slot)
	if err != nil {
		return err
	}
	ch, ok := Classify(c.Address(), exit, h)
	if !ok {
		c.logger.Debug("exit is legitimate", "slot", ev.Slot, "owner", ev.Owner)
		return nil
	}
	c.logger.Info("fraudulent exit detected", "slot", ev.Slot, "owner", ev.Owner, "kind", ch.Kind, "block", ch.Block)
	if !c.wcfg.AutoChallenge {
		return nil
	}
	return c.Challenge(ctx, ch)
}

func (c *Client) onChallengeEvent(ctx context.Context, e rootchain.Event) error {
	switch ev := e.(type) {
	case rootchain.ChallengedExitEvent:
		if ev.Kind != rootchain.ChallengeBefore {
			c.logger.Info("exit cancelled by challenge", "slot", ev.Slot, "kind", ev.Kind, "challenger", ev.Challenger)
			return nil
		}
		exit, err := c.root.Exit(ctx, ev.Slot)
		if err != nil {
			return err
		}
		if exit.Owner != c.Address() {
			return nil
		}
		c.logger.Info("exit challenged", "slot", ev.Slot, "challenger", ev.Challenger, "block", ev.ChallengingBlock)
		if !c.wcfg.AutoRespond {
			return nil
		}
		return c.RespondChallengeBefore(ctx, ev.Slot, ev.ChallengingBlock)
	case rootchain.RespondedChallengeEvent:
		c.logger.Debug("challenge answered", "slot", ev.Slot, "block", ev.RespondingBlock)
	case rootchain.FinalizedExitEvent:
		c.logger.Info("exit finalized", "slot", ev.Slot, "owner", ev.Owner, "cancelled", ev.Cancelled)
	}
	return nil
}
