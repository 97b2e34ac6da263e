// Package pubsub provides a typed, synchronous notification hub.
//
// Components publish values of a closed message type; observers subscribe
// with a handler and receive every value published after they subscribed, in
// publish order. Handlers run on the publisher's goroutine, so a publisher
// that emits a sequence of values from one goroutine is observed in exactly
// that order.
package pubsub

import (
	"sync"

	"github.com/GriffinCanCode/devicesession/internal/shared/id"
)

// Hub fans values out to subscribers.
type Hub[T any] struct {
	mu   sync.RWMutex
	subs []*Subscription[T]
}

// Subscription is a handle for one registered handler.
type Subscription[T any] struct {
	ID      id.SubscriptionID
	hub     *Hub[T]
	handler func(T)
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{}
}

// Subscribe registers fn and returns its handle.
func (h *Hub[T]) Subscribe(fn func(T)) *Subscription[T] {
	sub := &Subscription[T]{
		ID:      id.NewSubscriptionID(),
		hub:     h,
		handler: fn,
	}

	h.mu.Lock()
	h.subs = append(h.subs, sub)
	h.mu.Unlock()

	return sub
}

// Publish delivers v to every current subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	subs := make([]*Subscription[T], len(h.subs))
	copy(subs, h.subs)
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(v)
	}
}

// Len returns the number of active subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Cancel removes the subscription. Values published after Cancel returns are
// not delivered. Cancel is idempotent.
func (s *Subscription[T]) Cancel() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range h.subs {
		if sub == s {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}
