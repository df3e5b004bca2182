package childchain

import (
	"context"
	"errors"

	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/libs/pubsub"
	"github.com/plasmacash/plasma/libs/service"
	"github.com/plasmacash/plasma/rootchain"
)

const depositSubscriber = "childchain-deposits"

// EventSource streams root-chain events and serves the deposit log.
type EventSource interface {
	Subscribe(ctx context.Context, clientID string, q rootchain.Query, capacity int) (*pubsub.Subscription, error)
	Deposits(ctx context.Context, from uint64) ([]rootchain.DepositEvent, error)
}

// DepositIngester applies root-chain deposits to the chain in the order they
// are emitted. On start, and whenever its subscription is dropped for
// falling behind, it resubscribes and replays the deposit log from the
// first block it has not applied yet.
type DepositIngester struct {
	*service.BaseService

	chain    *ChildChain
	events   EventSource
	capacity int

	next uint64 // first deposit block not applied yet

	cancel context.CancelFunc
	done   chan struct{}
}

// NewDepositIngester returns an ingester buffering up to capacity events.
func NewDepositIngester(logger log.Logger, chain *ChildChain, events EventSource, capacity int) *DepositIngester {
	di := &DepositIngester{
		chain:    chain,
		events:   events,
		capacity: capacity,
		done:     make(chan struct{}),
	}
	di.BaseService = service.NewBaseService(logger, "DepositIngester", di)
	return di
}

func (di *DepositIngester) OnStart(ctx context.Context) error {
	sub, err := di.events.Subscribe(ctx, depositSubscriber, rootchain.EventQueryDeposit, di.capacity)
	if err != nil {
		return err
	}
	ctx, di.cancel = context.WithCancel(ctx)
	go di.run(ctx, sub)
	return nil
}

func (di *DepositIngester) OnStop() {
	di.cancel()
	<-di.done
}

func (di *DepositIngester) run(ctx context.Context, sub *pubsub.Subscription) {
	defer close(di.done)
	for {
		// the subscription is in place, so nothing emitted from here on
		// is missed by the replay
		if err := di.replay(ctx); err != nil {
			di.Logger.Error("replaying deposit log", "from", di.next, "err", err)
		}
		err := di.consume(ctx, sub)
		if !errors.Is(err, pubsub.ErrOutOfCapacity) {
			if err != nil && !errors.Is(err, pubsub.ErrUnsubscribed) && !errors.Is(err, pubsub.ErrServerStopped) {
				di.Logger.Error("deposit subscription terminated", "err", err)
			}
			return
		}
		di.Logger.Info("deposit subscription fell behind, resubscribing", "from", di.next)
		sub, err = di.events.Subscribe(ctx, depositSubscriber, rootchain.EventQueryDeposit, di.capacity)
		if err != nil {
			di.Logger.Error("resubscribing to deposits", "err", err)
			return
		}
	}
}

// consume applies deposits from sub until ctx is done, returning nil, or
// until sub is cancelled, returning the reason.
func (di *DepositIngester) consume(ctx context.Context, sub *pubsub.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Canceled():
			return sub.Err()
		case msg := <-sub.Out():
			if ev, ok := msg.Data().(rootchain.DepositEvent); ok {
				di.apply(ev)
			}
		}
	}
}

func (di *DepositIngester) replay(ctx context.Context) error {
	evs, err := di.events.Deposits(ctx, di.next)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		di.apply(ev)
	}
	return nil
}

// apply records ev. Deposits below the cursor were applied already.
func (di *DepositIngester) apply(ev rootchain.DepositEvent) {
	if ev.BlockNumber < di.next {
		return
	}
	if err := di.chain.OnDeposit(ev.Slot, ev.BlockNumber, ev.Denomination, ev.From); err != nil {
		di.Logger.Error("applying deposit", "slot", ev.Slot, "block", ev.BlockNumber, "err", err)
		return
	}
	di.next = ev.BlockNumber + 1
}
