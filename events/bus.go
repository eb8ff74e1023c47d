package events

import (
	"context"
	"sync"
)

// Handler receives events from a bus. It must return quickly.
type Handler func(ctx context.Context, ev *IssueEvent)

// Subscription is an active registration on a bus. Close is idempotent.
type Subscription interface {
	Close() error
}

// Bus is a source of issue events
type Bus interface {
	Subscribe(h Handler) (Subscription, error)
}

type subscription struct {
	once  sync.Once
	close func() error
	err   error
}

// NewSubscription wraps a release function so it runs at most once
func NewSubscription(release func() error) Subscription {
	return &subscription{close: release}
}

func (s *subscription) Close() error {
	s.once.Do(func() { s.err = s.close() })
	return s.err
}

// LocalBus delivers published events to its subscribers in-process. The Jira
// webhook endpoint publishes to it.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	next     int
}

// NewLocalBus creates a bus with no subscribers
func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[int]Handler)}
}

func (b *LocalBus) Subscribe(h Handler) (Subscription, error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	return NewSubscription(func() error {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
		return nil
	}), nil
}

// Publish delivers ev to every subscriber and returns how many received it
func (b *LocalBus) Publish(ctx context.Context, ev *IssueEvent) int {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	return len(handlers)
}
