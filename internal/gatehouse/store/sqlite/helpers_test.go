package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gatehouse-systems/gatehouse/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each call gets a unique in-memory database.  The shared-cache URI
	// keeps the database alive for the lifetime of the connection pool
	// (important because sql.DB may close/reopen the underlying conn).
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		t.Name(),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	// Match production: single connection for SQLite safety.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	// Apply the same migrations as production.
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// seedNode inserts a commissioned, enabled node.
func seedNode(t *testing.T, conn *sql.DB, nodeID string) {
	t.Helper()

	nowMs := time.Now().UTC().UnixMilli()
	_, err := conn.ExecContext(context.Background(), `
INSERT INTO nodes(node_id, enabled, commissioned_at_ms, created_at_ms, updated_at_ms)
VALUES (?, 1, ?, ?, ?);`, nodeID, nowMs, nowMs, nowMs)
	if err != nil {
		t.Fatalf("seedNode %s: %v", nodeID, err)
	}
}

// seedCustomer inserts an active customer reachable through the given
// identifier encodings.
func seedCustomer(t *testing.T, conn *sql.DB, customerKey string, identifiers ...string) {
	t.Helper()

	nowMs := time.Now().UTC().UnixMilli()
	_, err := conn.ExecContext(context.Background(), `
INSERT INTO customers(customer_key, display_name, membership, created_at_ms)
VALUES (?, ?, 'ACTIVE', ?);`, customerKey, customerKey, nowMs)
	if err != nil {
		t.Fatalf("seedCustomer %s: %v", customerKey, err)
	}

	for _, id := range identifiers {
		_, err := conn.ExecContext(context.Background(), `
INSERT INTO customer_identifiers(identifier, customer_key, added_at_ms)
VALUES (?, ?, ?);`, id, customerKey, nowMs)
		if err != nil {
			t.Fatalf("seedCustomer identifier %s: %v", id, err)
		}
	}
}
