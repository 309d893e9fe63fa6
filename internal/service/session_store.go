package service

import (
	"sync"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
)

// SessionStore is the process-wide holder of the current session.
// Reads are available to everyone; writes go through the paired SessionWriter.
type SessionStore struct {
	mu      sync.RWMutex
	current domainauth.Session

	subMu  sync.Mutex
	nextID uint64
	subs   []subscription

	// writeMu serializes write+publish so subscribers see writes in the order they landed.
	writeMu sync.Mutex
}

type subscription struct {
	id uint64
	fn func(domainauth.Session)
}

// SessionWriter is the single write capability for a SessionStore.
type SessionWriter struct {
	store *SessionStore
}

// NewSessionStore creates a signed-out store and its writer.
func NewSessionStore() (*SessionStore, *SessionWriter) {
	s := &SessionStore{current: domainauth.SignedOut()}
	return s, &SessionWriter{store: s}
}

// GetCurrent returns the current session.
func (s *SessionStore) GetCurrent() domainauth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.current)
}

// Subscribe registers fn to receive every published session. Subscribers are called
// synchronously, in subscription order, and must not write to the store.
func (s *SessionStore) Subscribe(fn func(domainauth.Session)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// SubscriberCount returns the number of live subscriptions.
func (s *SessionStore) SubscriberCount() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

// write installs next when cond (evaluated against the current session) allows it,
// then publishes. It reports whether a write happened.
func (s *SessionStore) write(next domainauth.Session, cond func(domainauth.Session) bool) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if cond != nil && !cond(s.current) {
		s.mu.Unlock()
		return false
	}
	s.current = next
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(cloneSession(next))
	}
	return true
}

// SetAuthenticated replaces the current session with cred and publishes it.
func (w *SessionWriter) SetAuthenticated(cred domainauth.Credential) {
	w.store.write(domainauth.Authenticated(cred), nil)
}

// Clear signs the store out and publishes the change. It is a no-op when already signed out.
func (w *SessionWriter) Clear() {
	w.store.write(domainauth.SignedOut(), domainauth.Session.IsAuthenticated)
}

// ClearIf signs the store out only when match accepts the current authenticated session.
// The check and the write happen atomically with respect to other writes.
func (w *SessionWriter) ClearIf(match func(domainauth.Session) bool) bool {
	return w.store.write(domainauth.SignedOut(), func(cur domainauth.Session) bool {
		return cur.IsAuthenticated() && match(cur)
	})
}

// Store returns the store this writer mutates.
func (w *SessionWriter) Store() *SessionStore {
	return w.store
}

func cloneSession(s domainauth.Session) domainauth.Session {
	if s.User == nil {
		return s
	}
	return domainauth.Authenticated(*s.User)
}
