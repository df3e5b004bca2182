package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testService struct {
	*BaseService
	starts, stops int
	failStart     bool
}

func newTestService(name string) *testService {
	ts := &testService{}
	ts.BaseService = NewBaseService(nil, name, ts)
	return ts
}

func (ts *testService) OnStart(context.Context) error {
	if ts.failStart {
		return errors.New("boom")
	}
	ts.starts++
	return nil
}

func (ts *testService) OnStop() { ts.stops++ }

func TestBaseServiceWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestService("TestService")
	require.NoError(t, ts.Start(ctx))

	waitFinished := make(chan struct{})
	go func() {
		ts.Wait()
		close(waitFinished)
	}()

	go ts.Stop() //nolint:errcheck // ignore for tests

	select {
	case <-waitFinished:
	case <-time.After(time.Second):
		t.Fatal("expected Wait() to finish within 1s")
	}
	require.False(t, ts.IsRunning())
}

func TestBaseServiceLifecycleErrors(t *testing.T) {
	ctx := context.Background()
	ts := newTestService("TestService")

	require.ErrorIs(t, ts.Stop(), ErrNotStarted)
	require.NoError(t, ts.Start(ctx))
	require.ErrorIs(t, ts.Start(ctx), ErrAlreadyStarted)
	require.NoError(t, ts.Stop())
	require.ErrorIs(t, ts.Stop(), ErrAlreadyStopped)
	require.Equal(t, 1, ts.starts)
	require.Equal(t, 1, ts.stops)
}

func TestBaseServiceStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ts := newTestService("TestService")
	require.NoError(t, ts.Start(ctx))

	cancel()
	select {
	case <-ts.Quit():
	case <-time.After(time.Second):
		t.Fatal("service did not stop after context cancellation")
	}
}

func TestGroupRollsBackOnFailure(t *testing.T) {
	first := newTestService("first")
	second := newTestService("second")
	second.failStart = true

	g := NewGroup(nil, "group", first, second)
	require.Error(t, g.Start(context.Background()))
	require.Equal(t, 1, first.stops)
	require.False(t, first.IsRunning())
}
