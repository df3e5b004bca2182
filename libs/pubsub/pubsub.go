// Package pubsub implements a pub-sub model with a single publisher (Server)
// and multiple subscribers (clients).
//
// Clients subscribe for messages using a Query. When a message is published,
// it is matched against every query and pushed to the subscriptions whose
// query matches. Delivery never blocks the publisher: a subscriber whose
// buffer is full is terminated with ErrOutOfCapacity.
//
// Messages reach a given subscription in the order they were published.
package pubsub

import (
	"context"
	"errors"
	"sync"

	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/libs/service"
)

var (
	// ErrSubscriptionNotFound is returned when a client tries to unsubscribe
	// from not existing subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrAlreadySubscribed is returned when a client tries to subscribe twice or
	// more using the same query.
	ErrAlreadySubscribed = errors.New("already subscribed")
)

// Query selects published messages by their tags.
type Query interface {
	Matches(tags map[string]string) bool
	String() string
}

// All matches every message.
var All Query = allQuery{}

type allQuery struct{}

func (allQuery) Matches(map[string]string) bool { return true }
func (allQuery) String() string                 { return "all" }

// Server allows clients to subscribe/unsubscribe for messages and publishes
// messages with tags.
type Server struct {
	*service.BaseService

	mtx sync.RWMutex
	// clientID -> query string -> subscription
	subs map[string]map[string]*Subscription
}

// NewServer returns a new server. It must be started before publishing.
func NewServer(logger log.Logger) *Server {
	s := &Server{subs: make(map[string]map[string]*Subscription)}
	s.BaseService = service.NewBaseService(logger, "PubSub", s)
	return s
}

func (s *Server) OnStart(context.Context) error { return nil }

// OnStop terminates every subscription with ErrServerStopped.
func (s *Server) OnStop() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for clientID, byQuery := range s.subs {
		for _, sub := range byQuery {
			sub.cancel(ErrServerStopped)
		}
		delete(s.subs, clientID)
	}
}

// Subscribe creates a subscription for clientID. outCapacity bounds the
// number of undelivered messages before the subscription is dropped.
func (s *Server) Subscribe(ctx context.Context, clientID string, query Query, outCapacity int) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if outCapacity < 1 {
		outCapacity = 1
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if !s.IsRunning() {
		return nil, ErrServerStopped
	}
	byQuery, ok := s.subs[clientID]
	if !ok {
		byQuery = make(map[string]*Subscription)
		s.subs[clientID] = byQuery
	}
	if _, ok := byQuery[query.String()]; ok {
		return nil, ErrAlreadySubscribed
	}
	sub := newSubscription(clientID, query, outCapacity)
	byQuery[query.String()] = sub
	return sub, nil
}

// Unsubscribe removes the subscription of clientID for query.
func (s *Server) Unsubscribe(_ context.Context, clientID string, query Query) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	byQuery, ok := s.subs[clientID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	sub, ok := byQuery[query.String()]
	if !ok {
		return ErrSubscriptionNotFound
	}
	sub.cancel(ErrUnsubscribed)
	delete(byQuery, query.String())
	if len(byQuery) == 0 {
		delete(s.subs, clientID)
	}
	return nil
}

// UnsubscribeAll removes every subscription of clientID.
func (s *Server) UnsubscribeAll(_ context.Context, clientID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	byQuery, ok := s.subs[clientID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	for _, sub := range byQuery {
		sub.cancel(ErrUnsubscribed)
	}
	delete(s.subs, clientID)
	return nil
}

// NumClients returns the number of clients with at least one subscription.
func (s *Server) NumClients() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.subs)
}

// Publish delivers msg to every subscription whose query matches tags.
func (s *Server) Publish(msg interface{}, tags map[string]string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if !s.IsRunning() {
		return ErrServerStopped
	}
	for clientID, byQuery := range s.subs {
		for key, sub := range byQuery {
			if !sub.query.Matches(tags) {
				continue
			}
			select {
			case sub.out <- Message{subID: sub.id, data: msg, tags: tags}:
			default:
				s.Logger.Error("dropping slow subscriber", "client", clientID, "query", key)
				sub.cancel(ErrOutOfCapacity)
				delete(byQuery, key)
			}
		}
		if len(byQuery) == 0 {
			delete(s.subs, clientID)
		}
	}
	return nil
}
