package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/plasmacash/plasma/libs/log"
)

// Group starts its members in order and stops them in reverse order.
type Group struct {
	*BaseService
	services []Service
}

func NewGroup(logger log.Logger, name string, services ...Service) *Group {
	g := &Group{services: services}
	g.BaseService = NewBaseService(logger, name, g)
	return g
}

func (g *Group) OnStart(ctx context.Context) error {
	for idx, srv := range g.services {
		if err := srv.Start(ctx); err != nil {
			for j := idx - 1; j >= 0; j-- {
				_ = g.services[j].Stop()
			}
			return fmt.Errorf("starting %s: %w", srv, err)
		}
	}
	return nil
}

// OnStop stops the members in reverse order, waiting for each to finish
// before stopping the next.
func (g *Group) OnStop() {
	for idx := len(g.services) - 1; idx >= 0; idx-- {
		srv := g.services[idx]
		if err := srv.Stop(); err != nil && !errors.Is(err, ErrAlreadyStopped) {
			g.Logger.Error(fmt.Sprintf("problem stopping service %d of %d", idx+1, len(g.services)),
				"service", srv.String(), "err", err)
		}
		srv.Wait()
	}
}
