package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
	sqlitestore "github.com/gatehouse-systems/gatehouse/internal/gatehouse/store/sqlite"
)

func testSession(customerKey, sessionKey string) store.ActiveSession {
	entered := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return store.ActiveSession{
		CustomerKey:      customerKey,
		SessionKey:       sessionKey,
		AssignedResource: "cart-003",
		EnteredAt:        entered,
		LastActivityAt:   entered,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ── Create: create-if-absent semantics ──
// ═══════════════════════════════════════════════════════════════════════════

func TestSessionStore_Create_ThenGet(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedCustomer(t, conn, "cust_1", "6399C22F")
	ss := sqlitestore.NewSessionStore(conn, w)
	ctx := context.Background()

	if err := ss.Create(ctx, testSession("cust_1", "sess_a")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := ss.Get(ctx, "cust_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SessionKey != "sess_a" {
		t.Errorf("expected session_key=sess_a, got %q", got.SessionKey)
	}
	if got.AssignedResource != "cart-003" {
		t.Errorf("expected assigned_resource=cart-003, got %q", got.AssignedResource)
	}
	if got.CheckoutCompleted {
		t.Error("new session must not be checkout-completed")
	}
	if !got.EnteredAt.Equal(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected entered_at: %v", got.EnteredAt)
	}
}

func TestSessionStore_Create_SecondEntryConflicts(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedCustomer(t, conn, "cust_1", "6399C22F")
	ss := sqlitestore.NewSessionStore(conn, w)
	ctx := context.Background()

	if err := ss.Create(ctx, testSession("cust_1", "sess_a")); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	err := ss.Create(ctx, testSession("cust_1", "sess_b"))
	if !errors.Is(err, store.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	// The original session must be untouched.
	got, err := ss.Get(ctx, "cust_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SessionKey != "sess_a" {
		t.Errorf("conflicting create clobbered the session: got %q", got.SessionKey)
	}
}

func TestSessionStore_Get_Missing(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ss := sqlitestore.NewSessionStore(conn, w)

	_, err := ss.Get(context.Background(), "nobody")
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ── CompleteCheckout: keyed by session_key ──
// ═══════════════════════════════════════════════════════════════════════════

func TestSessionStore_CompleteCheckout_StampsTotals(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedCustomer(t, conn, "cust_1", "6399C22F")
	ss := sqlitestore.NewSessionStore(conn, w)
	ctx := context.Background()

	if err := ss.Create(ctx, testSession("cust_1", "sess_a")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	at := time.Date(2026, 3, 10, 9, 45, 0, 0, time.UTC)
	err := ss.CompleteCheckout(ctx, "sess_a", 2350, []string{"sku-1", "sku-2"}, at)
	if err != nil {
		t.Fatalf("CompleteCheckout: %v", err)
	}

	got, err := ss.Get(ctx, "cust_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CheckoutCompleted {
		t.Error("expected checkout_completed=true")
	}
	if got.TotalCents != 2350 {
		t.Errorf("expected total_cents=2350, got %d", got.TotalCents)
	}
	if len(got.Items) != 2 || got.Items[0] != "sku-1" {
		t.Errorf("unexpected items: %v", got.Items)
	}
	if got.CheckoutAt == nil || !got.CheckoutAt.Equal(at) {
		t.Errorf("unexpected checkout_at: %v", got.CheckoutAt)
	}
	if !got.LastActivityAt.Equal(at) {
		t.Errorf("expected last_activity bumped to %v, got %v", at, got.LastActivityAt)
	}
}

func TestSessionStore_CompleteCheckout_UnknownSessionKey(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ss := sqlitestore.NewSessionStore(conn, w)

	err := ss.CompleteCheckout(context.Background(), "sess_gone", 100, nil, time.Now().UTC())
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ── Delete: delete-if-session-key-matches ──
// ═══════════════════════════════════════════════════════════════════════════

func TestSessionStore_Delete_MatchingKeys(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedCustomer(t, conn, "cust_1", "6399C22F")
	ss := sqlitestore.NewSessionStore(conn, w)
	ctx := context.Background()

	if err := ss.Create(ctx, testSession("cust_1", "sess_a")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ss.Delete(ctx, "cust_1", "sess_a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err := ss.Get(ctx, "cust_1")
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestSessionStore_Delete_StaleSessionKeyRefused(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedCustomer(t, conn, "cust_1", "6399C22F")
	ss := sqlitestore.NewSessionStore(conn, w)
	ctx := context.Background()

	if err := ss.Create(ctx, testSession("cust_1", "sess_a")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A delete based on a stale read must not remove the current session.
	err := ss.Delete(ctx, "cust_1", "sess_stale")
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	if _, err := ss.Get(ctx, "cust_1"); err != nil {
		t.Fatalf("current session should survive: %v", err)
	}
}

func TestSessionStore_Delete_AlreadyRemoved(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedCustomer(t, conn, "cust_1", "6399C22F")
	ss := sqlitestore.NewSessionStore(conn, w)
	ctx := context.Background()

	if err := ss.Create(ctx, testSession("cust_1", "sess_a")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ss.Delete(ctx, "cust_1", "sess_a"); err != nil {
		t.Fatalf("first Delete: %v", err)
	}

	err := ss.Delete(ctx, "cust_1", "sess_a")
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on double delete, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ── TouchActivity: keyed by session_key ──
// ═══════════════════════════════════════════════════════════════════════════

func TestSessionStore_TouchActivity(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedCustomer(t, conn, "cust_1", "6399C22F")
	ss := sqlitestore.NewSessionStore(conn, w)
	ctx := context.Background()

	if err := ss.Create(ctx, testSession("cust_1", "sess_a")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	at := time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)
	if err := ss.TouchActivity(ctx, "sess_a", at); err != nil {
		t.Fatalf("TouchActivity: %v", err)
	}

	sess, err := ss.Get(ctx, "cust_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !sess.LastActivityAt.Equal(at) {
		t.Errorf("LastActivityAt = %v, want %v", sess.LastActivityAt, at)
	}

	err = ss.TouchActivity(ctx, "sess_unknown", at)
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for unknown session key, got %v", err)
	}
}
