package store

import (
	"context"
	"time"
)

// NodeRecord describes a physical node (door controller or shopping cart).
type NodeRecord struct {
	NodeID   string
	Kind     string // "door" | "cart"
	Known    bool
	LastSeen time.Time
}

// NodeStore tracks commissioned nodes. Unknown nodes may phone home (their
// heartbeats are kept for diagnostics) but are refused the scan flow.
type NodeStore interface {
	IsKnown(ctx context.Context, nodeID string) (bool, error)
	MarkSeen(ctx context.Context, nodeID string, known bool, t time.Time) error
}
