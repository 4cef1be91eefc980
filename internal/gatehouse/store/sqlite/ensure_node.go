package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// ensureNode guarantees a nodes row exists for the given nodeID so that
// foreign-key constraints from heartbeats are satisfied.
//
// New rows start disabled and uncommissioned; only an admin action (or the
// dev seeder) should set enabled=1 and commissioned_at_ms.
//
// Must be called inside an existing transaction.
func ensureNode(ctx context.Context, tx *sql.Tx, nodeID string, nowMs int64) error {
	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO nodes(
  node_id, enabled, created_at_ms, updated_at_ms
) VALUES (?, 0, ?, ?);
`, nodeID, nowMs, nowMs); err != nil {
		return fmt.Errorf("ensureNode %s: %w", nodeID, err)
	}
	return nil
}
