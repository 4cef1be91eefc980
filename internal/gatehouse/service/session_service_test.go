package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/directory"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store/memory"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

func newSessionFixture() (*service.SessionService, *memory.CustomerStore, *memory.SessionStore) {
	customers := memory.NewCustomerStore()
	sessions := memory.NewSessionStore()
	dir := directory.NewClient(customers, sessions, zap.NewNop())
	return service.NewSessionService(dir, customers, zap.NewNop()), customers, sessions
}

func TestSessionService_GrantEntryCreatesSession(t *testing.T) {
	svc, _, sessions := newSessionFixture()
	ctx := context.Background()

	sess, err := svc.GrantEntry(ctx, "cust_1", "cart-17")
	if err != nil {
		t.Fatalf("GrantEntry: %v", err)
	}
	if sess.SessionKey == "" {
		t.Fatal("expected a session key to be assigned")
	}
	if sess.AssignedResource != "cart-17" {
		t.Errorf("AssignedResource = %q, want cart-17", sess.AssignedResource)
	}

	stored, err := sessions.Get(ctx, "cust_1")
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if stored.SessionKey != sess.SessionKey {
		t.Errorf("stored key %q != returned key %q", stored.SessionKey, sess.SessionKey)
	}
}

func TestSessionService_GrantEntryConflictOnExistingSession(t *testing.T) {
	svc, _, _ := newSessionFixture()
	ctx := context.Background()

	if _, err := svc.GrantEntry(ctx, "cust_1", "cart-1"); err != nil {
		t.Fatalf("first GrantEntry: %v", err)
	}

	_, err := svc.GrantEntry(ctx, "cust_1", "cart-2")
	if !errors.Is(err, service.ErrSessionConflict) {
		t.Fatalf("second GrantEntry err = %v, want ErrSessionConflict", err)
	}
}

func TestSessionService_EvictOrphanedSession(t *testing.T) {
	svc, _, sessions := newSessionFixture()
	ctx := context.Background()

	orphan, err := svc.GrantEntry(ctx, "cust_1", "cart-1")
	if err != nil {
		t.Fatalf("GrantEntry: %v", err)
	}

	if err := svc.EvictOrphanedSession(ctx, "cust_1", orphan.SessionKey); err != nil {
		t.Fatalf("EvictOrphanedSession: %v", err)
	}
	if _, err := sessions.Get(ctx, "cust_1"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("session still present after eviction: err = %v", err)
	}

	// Evicting again is a no-op, as when two scans race the cleanup.
	if err := svc.EvictOrphanedSession(ctx, "cust_1", orphan.SessionKey); err != nil {
		t.Errorf("second eviction err = %v, want nil", err)
	}

	// A replacement session with a different key is not touched by an
	// eviction still holding the old key.
	replacement, err := svc.GrantEntry(ctx, "cust_1", "cart-2")
	if err != nil {
		t.Fatalf("GrantEntry after eviction: %v", err)
	}
	if err := svc.EvictOrphanedSession(ctx, "cust_1", orphan.SessionKey); err != nil {
		t.Errorf("stale-key eviction err = %v, want nil", err)
	}
	stored, err := sessions.Get(ctx, "cust_1")
	if err != nil {
		t.Fatalf("replacement session lost: %v", err)
	}
	if stored.SessionKey != replacement.SessionKey {
		t.Errorf("stored key %q, want the replacement %q", stored.SessionKey, replacement.SessionKey)
	}
}

func TestSessionService_ExitRefusedBeforeCheckout(t *testing.T) {
	svc, _, _ := newSessionFixture()
	ctx := context.Background()

	if _, err := svc.GrantEntry(ctx, "cust_1", "cart-1"); err != nil {
		t.Fatalf("GrantEntry: %v", err)
	}

	res, err := svc.GrantExit(ctx, "cust_1", false)
	if err != nil {
		t.Fatalf("GrantExit: %v", err)
	}
	if res.Granted {
		t.Fatal("exit granted before checkout completed")
	}
	if res.Reason != service.ReasonCheckoutNotCompleted {
		t.Errorf("Reason = %q, want %q", res.Reason, service.ReasonCheckoutNotCompleted)
	}
}

func TestSessionService_RefusedExitBumpsActivity(t *testing.T) {
	svc, _, sessions := newSessionFixture()
	ctx := context.Background()

	sess, err := svc.GrantEntry(ctx, "cust_1", "cart-1")
	if err != nil {
		t.Fatalf("GrantEntry: %v", err)
	}
	before := sess.LastActivityAt

	if _, err := svc.GrantExit(ctx, "cust_1", false); err != nil {
		t.Fatalf("GrantExit: %v", err)
	}

	after, err := sessions.Get(ctx, "cust_1")
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if after.LastActivityAt.Before(before) {
		t.Errorf("LastActivityAt went backwards: before=%v after=%v", before, after.LastActivityAt)
	}
}

func TestSessionService_CheckoutThenExit(t *testing.T) {
	svc, customers, _ := newSessionFixture()
	ctx := context.Background()

	customers.AddCustomer(store.Customer{
		CustomerKey: "cust_1",
		Membership:  types.MembershipActive,
	}, "6399C22F")

	sess, err := svc.GrantEntry(ctx, "cust_1", "cart-1")
	if err != nil {
		t.Fatalf("GrantEntry: %v", err)
	}

	err = svc.ApplyCheckoutCompletion(ctx, sess.SessionKey, 2350, []string{"sku-1", "sku-2"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("ApplyCheckoutCompletion: %v", err)
	}

	res, err := svc.GrantExit(ctx, "cust_1", false)
	if err != nil {
		t.Fatalf("GrantExit: %v", err)
	}
	if !res.Granted {
		t.Fatalf("exit not granted after checkout, reason=%q", res.Reason)
	}
	if res.Unreconciled {
		t.Error("normal-mode exit flagged unreconciled")
	}
	if res.SpentCents != 2350 {
		t.Errorf("SpentCents = %d, want 2350", res.SpentCents)
	}

	// The visit rolls into the customer record.
	cust, err := customers.Get(ctx, "cust_1")
	if err != nil {
		t.Fatalf("Get customer: %v", err)
	}
	if cust.VisitCount != 1 {
		t.Errorf("VisitCount = %d, want 1", cust.VisitCount)
	}
	if cust.TotalSpentCents != 2350 {
		t.Errorf("TotalSpentCents = %d, want 2350", cust.TotalSpentCents)
	}

	// The session is gone.
	if _, err := svc.GrantExit(ctx, "cust_1", false); !errors.Is(err, service.ErrSessionConflict) {
		t.Errorf("exit after removal err = %v, want ErrSessionConflict", err)
	}
}

func TestSessionService_DegradedExitIsUnreconciled(t *testing.T) {
	svc, _, _ := newSessionFixture()
	ctx := context.Background()

	if _, err := svc.GrantEntry(ctx, "cust_1", "cart-1"); err != nil {
		t.Fatalf("GrantEntry: %v", err)
	}

	res, err := svc.GrantExit(ctx, "cust_1", true)
	if err != nil {
		t.Fatalf("GrantExit degraded: %v", err)
	}
	if !res.Granted {
		t.Fatal("degraded exit not granted")
	}
	if !res.Unreconciled {
		t.Error("degraded exit with incomplete checkout not flagged unreconciled")
	}
}

func TestSessionService_CheckoutForAbsentSessionIsNoOp(t *testing.T) {
	svc, _, _ := newSessionFixture()

	err := svc.ApplyCheckoutCompletion(context.Background(), "no-such-session", 100, nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("ApplyCheckoutCompletion on absent session: %v", err)
	}
}
