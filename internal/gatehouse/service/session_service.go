package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/directory"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
)

// ErrSessionConflict means a concurrent scan for the same customer changed
// the session registry between this flow's read and its write. The registry
// is already correct; this caller's view was stale.
var ErrSessionConflict = errors.New("session registry conflict")

// ExitResult reports the outcome of an exit grant attempt.
type ExitResult struct {
	Granted bool
	Reason  string
	// Unreconciled is set when a degraded-mode exit let the customer leave
	// with an incomplete checkout; the event is flagged for a later sweep.
	Unreconciled bool
	// SpentCents is the session total rolled into the customer record.
	SpentCents int64
}

// SessionService owns the active-session lifecycle: created on entry grant,
// mutated by checkout completion, destroyed on exit grant. All registry
// writes go through conditional operations, so concurrent flows for the same
// customer resolve to exactly one winner.
type SessionService struct {
	directory *directory.Client
	customers store.CustomerStore
	logger    *zap.Logger
}

func NewSessionService(dir *directory.Client, customers store.CustomerStore, logger *zap.Logger) *SessionService {
	return &SessionService{directory: dir, customers: customers, logger: logger}
}

// GrantEntry creates the customer's active session. A concurrent entry that
// already created one surfaces as ErrSessionConflict; the existing session
// is never overwritten.
func (s *SessionService) GrantEntry(ctx context.Context, customerKey, resource string) (store.ActiveSession, error) {
	now := time.Now().UTC()
	sess := store.ActiveSession{
		CustomerKey:      customerKey,
		SessionKey:       uuid.NewString(),
		AssignedResource: resource,
		EnteredAt:        now,
		LastActivityAt:   now,
	}

	err := s.directory.PutActiveSession(ctx, sess)
	if errors.Is(err, store.ErrSessionExists) {
		s.logger.Warn("entry grant lost a create race",
			zap.String("customer_key", customerKey))
		return store.ActiveSession{}, ErrSessionConflict
	}
	if err != nil {
		return store.ActiveSession{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// EvictOrphanedSession removes a stale session ahead of a new entry grant,
// so an abandoned visit (power loss, customer left without an exit scan)
// cannot block the customer forever. The delete is conditional on the
// session key: a concurrent eviction or an already-replaced session both
// surface as ErrSessionNotFound, which is not an error here.
func (s *SessionService) EvictOrphanedSession(ctx context.Context, customerKey, sessionKey string) error {
	err := s.directory.RemoveActiveSession(ctx, customerKey, sessionKey)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("evict session: %w", err)
	}
	s.logger.Info("evicted orphaned session",
		zap.String("customer_key", customerKey),
		zap.String("session_key", sessionKey))
	return nil
}

// ApplyCheckoutCompletion transitions the session to checkout-completed.
// A missing session is a logged no-op: the customer may already have left,
// or the event arrived out of order. Either way there is nothing to update
// and the event stream must keep moving.
func (s *SessionService) ApplyCheckoutCompletion(ctx context.Context, sessionKey string, totalCents int64, items []string, at time.Time) error {
	err := s.directory.CompleteCheckout(ctx, sessionKey, totalCents, items, at)
	if errors.Is(err, store.ErrSessionNotFound) {
		s.logger.Info("checkout completion for absent session ignored",
			zap.String("session_key", sessionKey))
		return nil
	}
	if err != nil {
		return fmt.Errorf("complete checkout: %w", err)
	}
	return nil
}

// GrantExit removes the customer's active session. In normal mode the exit
// is refused while checkout is incomplete; in degraded mode the customer is
// let out and the result is flagged unreconciled. The removal is conditional
// on the session key, so an exit decided against a stale read cannot destroy
// a newer session.
func (s *SessionService) GrantExit(ctx context.Context, customerKey string, degraded bool) (ExitResult, error) {
	sess, err := s.directory.ActiveSession(ctx, customerKey)
	if errors.Is(err, store.ErrSessionNotFound) {
		// Classified as exit against a session that is already gone: a
		// concurrent exit won.
		return ExitResult{}, ErrSessionConflict
	}
	if err != nil {
		return ExitResult{}, fmt.Errorf("load session: %w", err)
	}

	if !sess.CheckoutCompleted && !degraded {
		// A refused exit scan is still activity; keep the session fresh so
		// the customer's next scan still classifies as an exit.
		if err := s.directory.TouchSessionActivity(ctx, sess.SessionKey, time.Now().UTC()); err != nil {
			s.logger.Warn("session activity touch failed",
				zap.String("customer_key", customerKey), zap.Error(err))
		}
		return ExitResult{Reason: ReasonCheckoutNotCompleted}, nil
	}

	err = s.directory.RemoveActiveSession(ctx, customerKey, sess.SessionKey)
	if errors.Is(err, store.ErrSessionNotFound) {
		return ExitResult{}, ErrSessionConflict
	}
	if err != nil {
		return ExitResult{}, fmt.Errorf("remove session: %w", err)
	}

	// Roll the visit into the customer record. Failures are logged only:
	// the session is already gone and the exit already granted.
	if err := s.customers.ApplyVisit(ctx, customerKey, sess.TotalCents); err != nil {
		s.logger.Error("visit roll-up failed",
			zap.String("customer_key", customerKey), zap.Error(err))
	}

	return ExitResult{
		Granted:      true,
		Unreconciled: degraded && !sess.CheckoutCompleted,
		SpentCents:   sess.TotalCents,
	}, nil
}
