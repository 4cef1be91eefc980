package service

import (
	"context"
	"strings"
	"time"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

type HeartbeatService struct {
	heartbeatStore store.HeartbeatStore
	registry       *NodeRegistry
}

func NewHeartbeatService(hs store.HeartbeatStore, reg *NodeRegistry) *HeartbeatService {
	return &HeartbeatService{heartbeatStore: hs, registry: reg}
}

func (s *HeartbeatService) Record(ctx context.Context, req types.HeartbeatRequest) (types.HeartbeatResponse, error) {
	nodeID := strings.TrimSpace(req.NodeID)
	if nodeID == "" {
		return types.HeartbeatResponse{}, ErrInvalidNodeID
	}

	known, err := s.registry.IsKnown(ctx, nodeID)
	if err != nil {
		return types.HeartbeatResponse{}, err
	}
	_ = s.registry.NoteSeen(ctx, nodeID, known)

	rec := store.HeartbeatRecord{
		ReceivedAt: time.Now().UTC(),
		Request:    req,
	}

	if err := s.heartbeatStore.UpsertHeartbeat(ctx, nodeID, rec); err != nil {
		return types.HeartbeatResponse{}, err
	}

	return types.HeartbeatResponse{
		OK:         true,
		Known:      known,
		NodeID:     nodeID,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}
