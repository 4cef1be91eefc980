package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	dbpkg "github.com/gatehouse-systems/gatehouse/internal/db"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
)

// SessionStore is the sqlite active-session registry. Every mutation is a
// conditional write checked via RowsAffected, so races between nodes resolve
// to exactly one winner instead of last-writer-wins.
type SessionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSessionStore(db *sql.DB, writer *dbpkg.Worker) *SessionStore {
	return &SessionStore{db: db, writer: writer}
}

func (s *SessionStore) Get(ctx context.Context, customerKey string) (store.ActiveSession, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT customer_key, session_key, assigned_resource, entered_at_ms,
       checkout_completed, checkout_at_ms, last_activity_at_ms,
       total_cents, items_json
FROM active_sessions
WHERE customer_key = ?;
`, customerKey)

	var (
		sess       store.ActiveSession
		enteredMs  int64
		completed  int
		checkoutMs sql.NullInt64
		activityMs int64
		itemsJSON  string
	)
	err := row.Scan(
		&sess.CustomerKey, &sess.SessionKey, &sess.AssignedResource, &enteredMs,
		&completed, &checkoutMs, &activityMs, &sess.TotalCents, &itemsJSON,
	)
	if err == sql.ErrNoRows {
		return store.ActiveSession{}, store.ErrSessionNotFound
	}
	if err != nil {
		return store.ActiveSession{}, fmt.Errorf("Get session query: %w", err)
	}

	sess.EnteredAt = time.UnixMilli(enteredMs).UTC()
	sess.CheckoutCompleted = completed == 1
	if checkoutMs.Valid {
		t := time.UnixMilli(checkoutMs.Int64).UTC()
		sess.CheckoutAt = &t
	}
	sess.LastActivityAt = time.UnixMilli(activityMs).UTC()

	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &sess.Items); err != nil {
			return store.ActiveSession{}, fmt.Errorf("Get session items: %w", err)
		}
	}
	return sess, nil
}

// Create inserts the session only if the customer has none (customer_key is
// the primary key, INSERT OR IGNORE + RowsAffected detects the loser of a
// concurrent entry race).
func (s *SessionStore) Create(ctx context.Context, sess store.ActiveSession) error {
	if sess.EnteredAt.IsZero() {
		sess.EnteredAt = time.Now().UTC()
	}
	if sess.LastActivityAt.IsZero() {
		sess.LastActivityAt = sess.EnteredAt
	}

	itemsJSON, err := json.Marshal(sess.Items)
	if err != nil {
		return fmt.Errorf("Create session items: %w", err)
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO active_sessions(
  customer_key, session_key, assigned_resource, entered_at_ms,
  checkout_completed, last_activity_at_ms, total_cents, items_json
) VALUES (?, ?, ?, ?, 0, ?, ?, ?);
`,
			sess.CustomerKey, sess.SessionKey, sess.AssignedResource,
			sess.EnteredAt.UTC().UnixMilli(), sess.LastActivityAt.UTC().UnixMilli(),
			sess.TotalCents, string(itemsJSON),
		)
		if err != nil {
			return fmt.Errorf("Create session insert: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return store.ErrSessionExists
		}
		return nil
	})
}

// CompleteCheckout transitions the session identified by sessionKey to
// checkout-completed. Matching on session_key (not customer_key) means a
// late event for an already-replaced session cannot touch the new one.
func (s *SessionStore) CompleteCheckout(ctx context.Context, sessionKey string, totalCents int64, items []string, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("CompleteCheckout items: %w", err)
	}
	ms := at.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE active_sessions
SET checkout_completed  = 1,
    checkout_at_ms      = ?,
    last_activity_at_ms = ?,
    total_cents         = ?,
    items_json          = ?
WHERE session_key = ?;
`, ms, ms, totalCents, string(itemsJSON), sessionKey)
		if err != nil {
			return fmt.Errorf("CompleteCheckout update: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return store.ErrSessionNotFound
		}
		return nil
	})
}

// Delete removes the session only while both keys still match.
func (s *SessionStore) Delete(ctx context.Context, customerKey, sessionKey string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM active_sessions
WHERE customer_key = ? AND session_key = ?;
`, customerKey, sessionKey)
		if err != nil {
			return fmt.Errorf("Delete session: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return store.ErrSessionNotFound
		}
		return nil
	})
}

func (s *SessionStore) TouchActivity(ctx context.Context, sessionKey string, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE active_sessions
SET last_activity_at_ms = ?
WHERE session_key = ?;
`, at.UTC().UnixMilli(), sessionKey)
		if err != nil {
			return fmt.Errorf("TouchActivity update: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return store.ErrSessionNotFound
		}
		return nil
	})
}
