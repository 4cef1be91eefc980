package service

import (
	"context"
	"strings"
	"time"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
)

type NodeRegistry struct {
	store store.NodeStore
}

func NewNodeRegistry(st store.NodeStore) *NodeRegistry {
	return &NodeRegistry{store: st}
}

func (r *NodeRegistry) IsKnown(ctx context.Context, nodeID string) (bool, error) {
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return false, nil
	}
	return r.store.IsKnown(ctx, nodeID)
}

func (r *NodeRegistry) NoteSeen(ctx context.Context, nodeID string, known bool) error {
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return nil
	}
	return r.store.MarkSeen(ctx, nodeID, known, time.Now().UTC())
}
