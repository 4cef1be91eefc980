package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionExists is returned by Create when the customer already has an
	// active session. The caller lost a create race and must not overwrite.
	ErrSessionExists = errors.New("active session already exists")

	// ErrSessionNotFound is returned when a conditional update or delete
	// matched no row, either because the session is gone or because its
	// session key no longer matches.
	ErrSessionNotFound = errors.New("active session not found")
)

// ActiveSession is the record of a customer currently inside the store.
// At most one exists per customer key; the store enforces this via
// conditional writes, never by overwriting.
type ActiveSession struct {
	CustomerKey       string
	SessionKey        string
	AssignedResource  string // e.g. "cart-003"
	EnteredAt         time.Time
	CheckoutCompleted bool
	CheckoutAt        *time.Time
	LastActivityAt    time.Time
	TotalCents        int64
	Items             []string
}

// SessionStore is the shared active-session registry. Multiple nodes and the
// checkout event stream mutate it concurrently, so every mutation is
// conditional: create-if-absent, update-if-session-key-matches,
// delete-if-session-key-matches.
type SessionStore interface {
	// Get returns the active session for a customer key, or
	// ErrSessionNotFound when the customer is not inside.
	Get(ctx context.Context, customerKey string) (ActiveSession, error)

	// Create inserts the session only if the customer has none. Returns
	// ErrSessionExists when a concurrent entry won the race.
	Create(ctx context.Context, sess ActiveSession) error

	// CompleteCheckout transitions the session with the given session key to
	// checkout-completed, stamping totals, items and the checkout time.
	// Returns ErrSessionNotFound if no session with that key exists (the
	// customer may already have left, or the event arrived out of order).
	CompleteCheckout(ctx context.Context, sessionKey string, totalCents int64, items []string, at time.Time) error

	// Delete removes the session only when both keys still match, so an exit
	// granted against a stale read cannot destroy a newer session. Returns
	// ErrSessionNotFound when nothing matched.
	Delete(ctx context.Context, customerKey, sessionKey string) error

	// TouchActivity bumps last_activity_at for the session key, if present.
	TouchActivity(ctx context.Context, sessionKey string, at time.Time) error
}
