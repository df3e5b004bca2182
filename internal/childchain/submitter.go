package childchain

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/libs/service"
)

// Submitter commits the open block every period.
type Submitter struct {
	*service.BaseService

	chain       *ChildChain
	clock       clockwork.Clock
	period      time.Duration
	submitEmpty bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSubmitter returns a Submitter driving chain. Empty blocks are skipped
// unless submitEmpty is set.
func NewSubmitter(logger log.Logger, chain *ChildChain, clock clockwork.Clock, period time.Duration, submitEmpty bool) *Submitter {
	s := &Submitter{
		chain:       chain,
		clock:       clock,
		period:      period,
		submitEmpty: submitEmpty,
		done:        make(chan struct{}),
	}
	s.BaseService = service.NewBaseService(logger, "Submitter", s)
	return s
}

func (s *Submitter) OnStart(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	ticker := s.clock.NewTicker(s.period)
	go s.run(ctx, ticker)
	return nil
}

func (s *Submitter) OnStop() {
	s.cancel()
	<-s.done
}

func (s *Submitter) run(ctx context.Context, ticker clockwork.Ticker) {
	defer close(s.done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.tick(ctx)
		}
	}
}

func (s *Submitter) tick(ctx context.Context) {
	if !s.submitEmpty {
		open, err := s.chain.GetCurrentBlock()
		if err != nil {
			s.Logger.Error("reading open block", "err", err)
			return
		}
		if open.Len() == 0 {
			return
		}
	}
	number, err := s.chain.SubmitBlock(ctx)
	if err != nil {
		s.Logger.Error("submitting block", "block", number, "err", err)
	}
}
