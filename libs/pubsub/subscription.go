package pubsub

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrUnsubscribed is returned by Err when a client unsubscribes.
	ErrUnsubscribed = errors.New("client unsubscribed")

	// ErrOutOfCapacity is returned by Err when a client is not pulling messages
	// fast enough. Note the client's subscription will be terminated.
	ErrOutOfCapacity = errors.New("client is not pulling messages fast enough")

	// ErrServerStopped is returned by Err when the server shuts down.
	ErrServerStopped = errors.New("pubsub server stopped")
)

// A Subscription represents a client subscription for a particular query and
// consists of three things:
//  1. channel onto which messages are published
//  2. channel which is closed if a client is too slow or chooses to unsubscribe
//  3. err indicating the reason for (2)
type Subscription struct {
	id       string
	clientID string
	query    Query
	out      chan Message

	canceled chan struct{}
	once     sync.Once
	mtx      sync.RWMutex
	err      error
}

func newSubscription(clientID string, query Query, outCapacity int) *Subscription {
	return &Subscription{
		id:       uuid.NewString(),
		clientID: clientID,
		query:    query,
		out:      make(chan Message, outCapacity),
		canceled: make(chan struct{}),
	}
}

// Out returns a channel onto which messages are published. The channel is
// never closed; select on Canceled as well.
func (s *Subscription) Out() <-chan Message { return s.out }

func (s *Subscription) ID() string { return s.id }

func (s *Subscription) Query() Query { return s.query }

// Canceled returns a channel that's closed when the subscription is
// terminated and supposed to be used in a select statement.
func (s *Subscription) Canceled() <-chan struct{} {
	return s.canceled
}

// Err returns nil if the channel returned by Canceled is not yet closed.
// Otherwise it returns the reason: ErrUnsubscribed, ErrOutOfCapacity or
// ErrServerStopped.
func (s *Subscription) Err() error {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.err
}

func (s *Subscription) cancel(err error) {
	s.once.Do(func() {
		s.mtx.Lock()
		s.err = err
		s.mtx.Unlock()
		close(s.canceled)
	})
}

// Message is a published value together with the tags it was published with.
type Message struct {
	subID string
	data  interface{}
	tags  map[string]string
}

// SubscriptionID returns the unique identifier for the subscription
// that produced this message.
func (msg Message) SubscriptionID() string { return msg.subID }

// Data returns the original data published.
func (msg Message) Data() interface{} { return msg.data }

// Tags returns the tags the message was published with.
func (msg Message) Tags() map[string]string { return msg.tags }
