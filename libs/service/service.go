// Package service provides the start/stop lifecycle shared by the
// long-running parts of the daemon: the block submitter, the deposit
// ingester, the RPC server and the event bus of the simulated root chain.
package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/plasmacash/plasma/libs/log"
)

var (
	// ErrAlreadyStarted is returned when somebody tries to start an already
	// running service.
	ErrAlreadyStarted = errors.New("already started")
	// ErrAlreadyStopped is returned when somebody tries to stop an already
	// stopped service.
	ErrAlreadyStopped = errors.New("already stopped")
	// ErrNotStarted is returned when somebody tries to stop a not running
	// service.
	ErrNotStarted = errors.New("not started")
)

// Service is something that can be started once and stopped once.
type Service interface {
	// Start runs the service until Stop is called or ctx is done.
	Start(context.Context) error
	Stop() error
	IsRunning() bool
	String() string
	// Wait blocks until the service is stopped.
	Wait()
}

// Implementation is the hook set a BaseService drives.
type Implementation interface {
	OnStart(context.Context) error
	OnStop()
}

// BaseService implements Service on top of an Implementation.
//
//	type Submitter struct {
//		*service.BaseService
//	}
//
//	func NewSubmitter(logger log.Logger) *Submitter {
//		s := &Submitter{}
//		s.BaseService = service.NewBaseService(logger, "Submitter", s)
//		return s
//	}
//
// OnStart and OnStop are each called at most once. A failed OnStart leaves
// the service startable again.
type BaseService struct {
	Logger  log.Logger
	name    string
	started uint32 // atomic
	stopped uint32 // atomic
	quit    chan struct{}

	impl Implementation
}

// NewBaseService creates a new BaseService. A nil logger discards output.
func NewBaseService(logger log.Logger, name string, impl Implementation) *BaseService {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &BaseService{
		Logger: logger,
		name:   name,
		quit:   make(chan struct{}),
		impl:   impl,
	}
}

// Start calls OnStart and arranges for Stop to run once ctx is done.
func (bs *BaseService) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&bs.started, 0, 1) {
		return ErrAlreadyStarted
	}
	if atomic.LoadUint32(&bs.stopped) == 1 {
		atomic.StoreUint32(&bs.started, 0)
		bs.Logger.Error("not starting service; already stopped", "service", bs.name)
		return ErrAlreadyStopped
	}

	bs.Logger.Info("starting service", "service", bs.name)
	if err := bs.impl.OnStart(ctx); err != nil {
		atomic.StoreUint32(&bs.started, 0)
		return err
	}

	go func() {
		select {
		case <-bs.quit:
		case <-ctx.Done():
			if err := bs.Stop(); err != nil && !errors.Is(err, ErrAlreadyStopped) {
				bs.Logger.Error("stopping service", "service", bs.name, "err", err)
			}
		}
	}()
	return nil
}

// Stop calls OnStop and releases Wait.
func (bs *BaseService) Stop() error {
	if !atomic.CompareAndSwapUint32(&bs.stopped, 0, 1) {
		return ErrAlreadyStopped
	}
	if atomic.LoadUint32(&bs.started) == 0 {
		atomic.StoreUint32(&bs.stopped, 0)
		return ErrNotStarted
	}

	bs.Logger.Info("stopping service", "service", bs.name)
	bs.impl.OnStop()
	close(bs.quit)
	return nil
}

// IsRunning reports whether the service has started and not yet stopped.
func (bs *BaseService) IsRunning() bool {
	return atomic.LoadUint32(&bs.started) == 1 && atomic.LoadUint32(&bs.stopped) == 0
}

// Quit is closed once the service stops.
func (bs *BaseService) Quit() <-chan struct{} { return bs.quit }

func (bs *BaseService) Wait() { <-bs.quit }

func (bs *BaseService) String() string { return bs.name }
