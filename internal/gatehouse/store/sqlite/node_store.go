package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/gatehouse-systems/gatehouse/internal/db"
)

type NodeStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewNodeStore(db *sql.DB, writer *dbpkg.Worker) *NodeStore {
	return &NodeStore{db: db, writer: writer}
}

// IsKnown: treat "known" as "commissioned + enabled + not revoked".
// Prod commissioning is an admin action; dev boxes use the seeder.
func (s *NodeStore) IsKnown(ctx context.Context, nodeID string) (bool, error) {
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return false, nil
	}

	var enabled int
	var commissioned sql.NullInt64
	var revoked sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
SELECT enabled, commissioned_at_ms, revoked_at_ms
FROM nodes
WHERE node_id = ?;
`, nodeID).Scan(&enabled, &commissioned, &revoked)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsKnown query: %w", err)
	}

	known := enabled == 1 && commissioned.Valid && !revoked.Valid
	return known, nil
}

// MarkSeen: ensure the node row exists (even if unknown) and update last_seen.
func (s *NodeStore) MarkSeen(ctx context.Context, nodeID string, _ bool, t time.Time) error {
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureNode(ctx, tx, nodeID, ms); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE nodes
SET last_seen_at_ms = ?,
    updated_at_ms   = ?
WHERE node_id = ?;
`, ms, ms, nodeID); err != nil {
			return fmt.Errorf("MarkSeen update node: %w", err)
		}

		return nil
	})
}
