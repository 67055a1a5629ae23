// Package memory provides the in-process session and an in-memory token store.
package memory

import (
	"context"
	"sync"

	"github.com/artpar/rentdesk/core/events"
	"github.com/artpar/rentdesk/ports"
)

// Session is the live session: the authentication flow writes it and the
// data layer reads it through ports.SessionSource.
type Session struct {
	mu        sync.RWMutex
	current   ports.Session
	listeners map[int]func(ports.Session)
	nextID    int

	store ports.TokenStore
	bus   *events.Bus
}

// NewSession creates a signed-out session persisted to store (optional)
// that announces changes on bus (optional).
func NewSession(store ports.TokenStore, bus *events.Bus) *Session {
	return &Session{
		listeners: make(map[int]func(ports.Session)),
		store:     store,
		bus:       bus,
	}
}

// Current returns the current session.
func (s *Session) Current() ports.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Restore loads the persisted session without persisting it again.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	sess, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	s.replace(ctx, sess)
	return nil
}

// Set replaces the session and persists it.
func (s *Session) Set(ctx context.Context, sess ports.Session) error {
	if s.store != nil {
		if err := s.store.Save(ctx, sess); err != nil {
			return err
		}
	}
	s.replace(ctx, sess)
	return nil
}

// Clear signs out.
func (s *Session) Clear(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.Clear(ctx); err != nil {
			return err
		}
	}
	s.replace(ctx, ports.Session{})
	return nil
}

// OnChange registers fn to run after every change. The returned func
// removes it.
func (s *Session) OnChange(fn func(ports.Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) replace(ctx context.Context, sess ports.Session) {
	s.mu.Lock()
	prev := s.current
	s.current = sess
	fns := make([]func(ports.Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if prev == sess {
		return
	}
	for _, fn := range fns {
		fn(sess)
	}
	s.bus.Publish(ctx, events.Event{
		Name: events.SessionChanged,
		Meta: map[string]any{"authenticated": sess.IsAuthenticated(), "user_id": sess.UserID},
	})
}

// TokenStore is an in-memory implementation of ports.TokenStore.
type TokenStore struct {
	mu      sync.RWMutex
	session ports.Session
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Load returns the stored session.
func (s *TokenStore) Load(ctx context.Context) (ports.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, nil
}

// Save replaces the stored session.
func (s *TokenStore) Save(ctx context.Context, sess ports.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	return nil
}

// Clear removes the stored session.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = ports.Session{}
	return nil
}

// Ensure interface compliance.
var (
	_ ports.SessionSource = (*Session)(nil)
	_ ports.TokenStore    = (*TokenStore)(nil)
)
