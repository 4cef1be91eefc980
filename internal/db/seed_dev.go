package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SeedDevOptions struct {
	// KnownNodes pre-commissions the config-known nodes so a dev box works
	// without an admin step.
	KnownNodes []string
}

// SeedDev installs a minimal dev fixture: the configured nodes commissioned
// and enabled, plus one demo customer reachable through a couple of
// historical identifier encodings.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	nodes := opt.KnownNodes
	if len(nodes) == 0 {
		nodes = []string{"door-001", "cart-001"}
	}

	for _, id := range nodes {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		kind := "door"
		if strings.HasPrefix(id, "cart") {
			kind = "cart"
		}
		if _, err := db.ExecContext(ctx, `
INSERT INTO nodes(
  node_id, kind, display_name,
  enabled, commissioned_at_ms,
  created_at_ms, updated_at_ms
) VALUES (?, ?, ?, 1, ?, ?, ?)
ON CONFLICT(node_id) DO UPDATE SET
  kind = excluded.kind,
  enabled = 1,
  commissioned_at_ms = COALESCE(nodes.commissioned_at_ms, excluded.commissioned_at_ms),
  updated_at_ms = excluded.updated_at_ms;
`, id, kind, id, now, now, now); err != nil {
			return fmt.Errorf("seed node %s: %w", id, err)
		}
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO customers(
  customer_key, display_name, membership, created_at_ms
) VALUES ('cust_dev_1', 'Dev Customer', 'ACTIVE', ?);`, now); err != nil {
		return fmt.Errorf("seed customer: %w", err)
	}

	// Same card, two encodings: canonical plus a legacy colon-grouped row,
	// so the variant lookup path is exercised out of the box.
	for _, ident := range []string{"6399C22F", "63:99:c2:2f"} {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO customer_identifiers(identifier, customer_key, added_at_ms)
VALUES (?, 'cust_dev_1', ?);`, ident, now); err != nil {
			return fmt.Errorf("seed identifier %s: %w", ident, err)
		}
	}

	return nil
}
