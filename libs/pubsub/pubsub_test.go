package pubsub_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/libs/pubsub"
)

type tagQuery struct{ key, value string }

func (q tagQuery) Matches(tags map[string]string) bool { return tags[q.key] == q.value }
func (q tagQuery) String() string                     { return q.key + "=" + q.value }

const clientID = "test-client"

func newTestServer(t *testing.T) *pubsub.Server {
	t.Helper()
	s := pubsub.NewServer(log.NewNopLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestSubscribeFiltersAndPreservesOrder(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, clientID, tagQuery{"slot", "42"}, 10)
	require.NoError(t, err)

	require.NoError(t, s.Publish("a", map[string]string{"slot": "42"}))
	require.NoError(t, s.Publish("skip", map[string]string{"slot": "7"}))
	require.NoError(t, s.Publish("b", map[string]string{"slot": "42"}))

	require.Equal(t, "a", (<-sub.Out()).Data())
	msg := <-sub.Out()
	require.Equal(t, "b", msg.Data())
	require.Equal(t, sub.ID(), msg.SubscriptionID())
	require.Empty(t, sub.Out())
}

func TestDuplicateSubscription(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.Subscribe(ctx, clientID, pubsub.All, 1)
	require.NoError(t, err)
	_, err = s.Subscribe(ctx, clientID, pubsub.All, 1)
	require.ErrorIs(t, err, pubsub.ErrAlreadySubscribed)
}

func TestUnsubscribe(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, clientID, pubsub.All, 1)
	require.NoError(t, err)
	require.NoError(t, s.Unsubscribe(ctx, clientID, pubsub.All))

	<-sub.Canceled()
	require.ErrorIs(t, sub.Err(), pubsub.ErrUnsubscribed)
	require.Zero(t, s.NumClients())
	require.ErrorIs(t, s.Unsubscribe(ctx, clientID, pubsub.All), pubsub.ErrSubscriptionNotFound)
}

func TestSlowClientIsDropped(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, clientID, pubsub.All, 1)
	require.NoError(t, err)

	require.NoError(t, s.Publish(1, nil))
	require.NoError(t, s.Publish(2, nil))

	<-sub.Canceled()
	require.ErrorIs(t, sub.Err(), pubsub.ErrOutOfCapacity)
	require.Equal(t, 1, (<-sub.Out()).Data())
}

func TestStopCancelsSubscriptions(t *testing.T) {
	s := pubsub.NewServer(log.NewNopLogger())
	require.NoError(t, s.Start(context.Background()))

	sub, err := s.Subscribe(context.Background(), clientID, pubsub.All, 1)
	require.NoError(t, err)
	require.NoError(t, s.Stop())

	<-sub.Canceled()
	require.ErrorIs(t, sub.Err(), pubsub.ErrServerStopped)
	require.ErrorIs(t, s.Publish(1, nil), pubsub.ErrServerStopped)
}
