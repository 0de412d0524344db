// Package session mirrors the provider-owned session locally and fans
// provider events out to subscribers.
//
// The store is deliberately dumb: on a sign-out event it clears only
// its own mirror. Dependent state (profile, collections) is cleared by
// the auth coordinator, which owns that lifecycle.
package session

import (
	"sync"

	"mindspend/internal/backend/provider"
)

// Source delivers session-change events and the last known session.
// *provider.Client satisfies it.
type Source interface {
	Subscribe(handler provider.Handler) (cancel func())
	CurrentSession() *provider.Session
}

// Store holds the current authentication identity.
type Store struct {
	mu          sync.RWMutex
	session     *provider.Session
	subscribers map[int]provider.Handler
	nextSubID   int
	detach      func()
}

// New constructs a store attached to src. The mirror is seeded with
// the source's last known session, which may be stale until the first
// event arrives.
func New(src Source) *Store {
	s := &Store{
		subscribers: make(map[int]provider.Handler),
		session:     src.CurrentSession(),
	}
	s.detach = src.Subscribe(s.apply)
	return s
}

// Current returns the last known session synchronously. May be nil.
func (s *Store) Current() *provider.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Subscribe registers a handler invoked on every session-change event.
// The returned func removes the subscription.
func (s *Store) Subscribe(handler provider.Handler) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Close detaches from the source and drops all subscribers.
func (s *Store) Close() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.subscribers = make(map[int]provider.Handler)
	s.mu.Unlock()
	if detach != nil {
		detach()
	}
}

func (s *Store) apply(kind provider.EventKind, sess *provider.Session) {
	s.mu.Lock()
	if kind == provider.EventSignedOut {
		s.session = nil
	} else if sess != nil {
		s.session = sess
	}
	handlers := make([]provider.Handler, 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(kind, sess)
	}
}
