package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
	sqlitestore "github.com/gatehouse-systems/gatehouse/internal/gatehouse/store/sqlite"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

func TestHeartbeatStore_UpsertHeartbeat_InsertsRow(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	hs := sqlitestore.NewHeartbeatStore(conn, w)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rssi := -55

	err := hs.UpsertHeartbeat(context.Background(), "cart-001", store.HeartbeatRecord{
		ReceivedAt: now,
		Request: types.HeartbeatRequest{
			NodeID:          "cart-001",
			FirmwareVersion: "0.1.0-test",
			UptimeSeconds:   300,
			RSSIDbm:         &rssi,
			IP:              "192.168.1.50",
		},
	})
	if err != nil {
		t.Fatalf("UpsertHeartbeat: %v", err)
	}

	var fw string
	var ip string
	var wifiRSSI sql.NullInt64
	err = conn.QueryRowContext(context.Background(),
		`SELECT fw_version, ip, wifi_rssi FROM node_heartbeats WHERE node_id = ?`, "cart-001",
	).Scan(&fw, &ip, &wifiRSSI)
	if err != nil {
		t.Fatalf("query heartbeat: %v", err)
	}
	if fw != "0.1.0-test" {
		t.Errorf("expected fw_version=0.1.0-test, got %q", fw)
	}
	if ip != "192.168.1.50" {
		t.Errorf("expected ip=192.168.1.50, got %q", ip)
	}
	if !wifiRSSI.Valid || wifiRSSI.Int64 != -55 {
		t.Errorf("expected wifi_rssi=-55, got %v", wifiRSSI)
	}
}

func TestHeartbeatStore_UpsertHeartbeat_AppendOnly(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	hs := sqlitestore.NewHeartbeatStore(conn, w)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := store.HeartbeatRecord{
			ReceivedAt: base.Add(time.Duration(i) * 10 * time.Second),
			Request: types.HeartbeatRequest{
				NodeID:        "cart-001",
				UptimeSeconds: uint64(i * 10),
			},
		}
		if err := hs.UpsertHeartbeat(ctx, "cart-001", rec); err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}

	// 3 separate rows, not 1 updated row.
	var count int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM node_heartbeats WHERE node_id = ?`, "cart-001",
	).Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 heartbeat rows (append-only), got %d", count)
	}
}

func TestHeartbeatStore_UpsertHeartbeat_UpdatesNodeLastSeen(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedNode(t, conn, "door-001")
	hs := sqlitestore.NewHeartbeatStore(conn, w)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	err := hs.UpsertHeartbeat(context.Background(), "door-001", store.HeartbeatRecord{
		ReceivedAt: now,
		Request:    types.HeartbeatRequest{NodeID: "door-001"},
	})
	if err != nil {
		t.Fatalf("UpsertHeartbeat: %v", err)
	}

	var lastSeen sql.NullInt64
	err = conn.QueryRowContext(context.Background(),
		`SELECT last_seen_at_ms FROM nodes WHERE node_id = ?`, "door-001",
	).Scan(&lastSeen)
	if err != nil {
		t.Fatalf("query node: %v", err)
	}
	if !lastSeen.Valid || lastSeen.Int64 != now.UnixMilli() {
		t.Errorf("expected last_seen_at_ms=%d, got %v", now.UnixMilli(), lastSeen)
	}
}

func TestHeartbeatStore_PruneOlderThan(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	hs := sqlitestore.NewHeartbeatStore(conn, w)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := store.HeartbeatRecord{
			ReceivedAt: base.Add(time.Duration(i) * time.Hour),
			Request:    types.HeartbeatRequest{NodeID: "door-001"},
		}
		if err := hs.UpsertHeartbeat(ctx, "door-001", rec); err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}

	deleted, err := hs.PruneOlderThan(ctx, base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 rows deleted, got %d", deleted)
	}

	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM node_heartbeats`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows remaining, got %d", count)
	}
}
