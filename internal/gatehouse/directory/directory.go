// Package directory resolves scanned identifiers to customers and mediates
// access to the shared active-session registry.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/ident"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
)

// CustomerLookup is the result of resolving a scanned identifier.
type CustomerLookup struct {
	Found bool
	// Customer is valid only when Found.
	Customer store.Customer
	// Input is the raw identifier as scanned.
	Input string
	// MatchedFormat is the variant that hit the lookup index.
	MatchedFormat string
	// Attempted lists every variant tried, in order, for diagnostics.
	Attempted []string
}

// Client wraps the customer directory and session registry behind the
// variant-lookup strategy. The underlying index was populated over years with
// inconsistent encodings and cannot be rewritten cheaply, so lookups try each
// plausible encoding in a fixed order rather than a single normalized query.
type Client struct {
	customers store.CustomerStore
	sessions  store.SessionStore
	logger    *zap.Logger
}

func NewClient(customers store.CustomerStore, sessions store.SessionStore, logger *zap.Logger) *Client {
	return &Client{customers: customers, sessions: sessions, logger: logger}
}

// FindCustomerByIdentifier tries each identifier variant in order and returns
// the first match. A miss is not an error: the zero-Found lookup carries the
// attempted variants so the caller can log what was searched.
func (c *Client) FindCustomerByIdentifier(ctx context.Context, raw string) (CustomerLookup, error) {
	variants := ident.Variants(raw)
	lookup := CustomerLookup{Input: raw, Attempted: variants}

	for _, v := range variants {
		cust, err := c.customers.FindByIdentifier(ctx, v)
		if errors.Is(err, store.ErrCustomerNotFound) {
			continue
		}
		if err != nil {
			return lookup, fmt.Errorf("lookup %q: %w", v, err)
		}

		lookup.Found = true
		lookup.Customer = cust
		lookup.MatchedFormat = v
		if v != variants[0] {
			c.logger.Debug("identifier matched a non-canonical encoding",
				zap.String("matched_format", v),
				zap.String("customer_key", cust.CustomerKey))
		}
		return lookup, nil
	}

	return lookup, nil
}

// ActiveSession returns the customer's active session, or
// store.ErrSessionNotFound when the customer is not inside.
func (c *Client) ActiveSession(ctx context.Context, customerKey string) (store.ActiveSession, error) {
	return c.sessions.Get(ctx, customerKey)
}

// PutActiveSession creates the session, refusing to overwrite an existing one
// (store.ErrSessionExists).
func (c *Client) PutActiveSession(ctx context.Context, sess store.ActiveSession) error {
	return c.sessions.Create(ctx, sess)
}

// RemoveActiveSession deletes the session only while its session key still
// matches (store.ErrSessionNotFound otherwise).
func (c *Client) RemoveActiveSession(ctx context.Context, customerKey, sessionKey string) error {
	return c.sessions.Delete(ctx, customerKey, sessionKey)
}

// CompleteCheckout marks the session with the given session key as
// checkout-completed, stamping totals and items.
func (c *Client) CompleteCheckout(ctx context.Context, sessionKey string, totalCents int64, items []string, at time.Time) error {
	return c.sessions.CompleteCheckout(ctx, sessionKey, totalCents, items, at)
}

// TouchSessionActivity bumps the session's last-activity timestamp so that
// in-store activity keeps the session inside the freshness window.
func (c *Client) TouchSessionActivity(ctx context.Context, sessionKey string, at time.Time) error {
	return c.sessions.TouchActivity(ctx, sessionKey, at)
}
