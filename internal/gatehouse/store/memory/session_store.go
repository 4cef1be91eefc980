package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
)

// SessionStore is the in-memory active-session registry. All mutations are
// conditional under one mutex, matching the compare-and-set semantics the
// sqlite backend expresses as conditional SQL.
type SessionStore struct {
	mu       sync.Mutex
	byKey    map[string]store.ActiveSession // customer_key -> session
	bySessID map[string]string              // session_key -> customer_key
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byKey:    make(map[string]store.ActiveSession),
		bySessID: make(map[string]string),
	}
}

func (s *SessionStore) Get(_ context.Context, customerKey string) (store.ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byKey[customerKey]
	if !ok {
		return store.ActiveSession{}, store.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionStore) Create(_ context.Context, sess store.ActiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[sess.CustomerKey]; exists {
		return store.ErrSessionExists
	}
	s.byKey[sess.CustomerKey] = sess
	s.bySessID[sess.SessionKey] = sess.CustomerKey
	return nil
}

func (s *SessionStore) CompleteCheckout(_ context.Context, sessionKey string, totalCents int64, items []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customerKey, ok := s.bySessID[sessionKey]
	if !ok {
		return store.ErrSessionNotFound
	}
	sess := s.byKey[customerKey]
	sess.CheckoutCompleted = true
	sess.CheckoutAt = &at
	sess.LastActivityAt = at
	sess.TotalCents = totalCents
	sess.Items = append([]string(nil), items...)
	s.byKey[customerKey] = sess
	return nil
}

func (s *SessionStore) Delete(_ context.Context, customerKey, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byKey[customerKey]
	if !ok || sess.SessionKey != sessionKey {
		return store.ErrSessionNotFound
	}
	delete(s.byKey, customerKey)
	delete(s.bySessID, sessionKey)
	return nil
}

func (s *SessionStore) TouchActivity(_ context.Context, sessionKey string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customerKey, ok := s.bySessID[sessionKey]
	if !ok {
		return store.ErrSessionNotFound
	}
	sess := s.byKey[customerKey]
	sess.LastActivityAt = at
	s.byKey[customerKey] = sess
	return nil
}
