package node

import (
	"context"
	"errors"

	"github.com/plasmacash/plasma/client"
	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/libs/pubsub"
	"github.com/plasmacash/plasma/libs/service"
	"github.com/plasmacash/plasma/rootchain"
)

const participantSubscriber = "participant-deposits"

// participant guards the coins deposited by the node's participant key:
// each one gets an exit watcher and a challenge watcher as soon as the
// deposit is seen. Deposits made before it started, or missed while its
// subscription lagged, are found in the deposit log.
type participant struct {
	*service.BaseService

	client   *client.Client
	events   rootchain.RootChain
	capacity int

	next uint64 // first deposit block not looked at yet

	cancel context.CancelFunc
	done   chan struct{}
}

func newParticipant(logger log.Logger, c *client.Client, events rootchain.RootChain, capacity int) *participant {
	p := &participant{
		client:   c,
		events:   events,
		capacity: capacity,
		done:     make(chan struct{}),
	}
	p.BaseService = service.NewBaseService(logger, "Participant", p)
	return p
}

func (p *participant) OnStart(ctx context.Context) error {
	sub, err := p.events.Subscribe(ctx, participantSubscriber, rootchain.EventQueryDeposit, p.capacity)
	if err != nil {
		return err
	}
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx, sub)
	return nil
}

func (p *participant) OnStop() {
	p.cancel()
	<-p.done
	if err := p.client.Close(); err != nil {
		p.Logger.Error("closing client", "err", err)
	}
}

func (p *participant) run(ctx context.Context, sub *pubsub.Subscription) {
	defer close(p.done)
	for {
		if err := p.replay(ctx); err != nil {
			p.Logger.Error("replaying deposit log", "from", p.next, "err", err)
		}
		err := p.consume(ctx, sub)
		if !errors.Is(err, pubsub.ErrOutOfCapacity) {
			if err != nil && !errors.Is(err, pubsub.ErrUnsubscribed) && !errors.Is(err, pubsub.ErrServerStopped) {
				p.Logger.Error("deposit subscription terminated", "err", err)
			}
			return
		}
		p.Logger.Info("deposit subscription fell behind, resubscribing", "from", p.next)
		sub, err = p.events.Subscribe(ctx, participantSubscriber, rootchain.EventQueryDeposit, p.capacity)
		if err != nil {
			p.Logger.Error("resubscribing to deposits", "err", err)
			return
		}
	}
}

func (p *participant) consume(ctx context.Context, sub *pubsub.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Canceled():
			return sub.Err()
		case msg := <-sub.Out():
			if ev, ok := msg.Data().(rootchain.DepositEvent); ok {
				p.onDeposit(ctx, ev)
			}
		}
	}
}

func (p *participant) replay(ctx context.Context) error {
	evs, err := p.events.Deposits(ctx, p.next)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		p.onDeposit(ctx, ev)
	}
	return nil
}

func (p *participant) onDeposit(ctx context.Context, ev rootchain.DepositEvent) {
	if ev.BlockNumber < p.next {
		return
	}
	p.next = ev.BlockNumber + 1
	if ev.From == p.client.Address() {
		p.guard(ctx, ev.Slot)
	}
}

func (p *participant) guard(ctx context.Context, slot uint64) {
	if !p.client.Watching(client.WatchExits, slot) {
		if _, err := p.client.WatchExits(ctx, slot); err != nil {
			p.Logger.Error("watching exits", "slot", slot, "err", err)
		}
	}
	if !p.client.Watching(client.WatchChallenges, slot) {
		if _, err := p.client.WatchChallenges(ctx, slot); err != nil {
			p.Logger.Error("watching challenges", "slot", slot, "err", err)
		}
	}
	p.Logger.Info("guarding coin", "slot", slot)
}
