package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

type NodeStore struct {
	mu    sync.RWMutex
	known map[string]struct{}
	seen  map[string]time.Time
}

func NewNodeStore(knownNodes []string) *NodeStore {
	k := make(map[string]struct{}, len(knownNodes))
	for _, m := range knownNodes {
		m = strings.TrimSpace(m)
		if m != "" {
			k[m] = struct{}{}
		}
	}
	return &NodeStore{
		known: k,
		seen:  make(map[string]time.Time),
	}
}

func (s *NodeStore) IsKnown(_ context.Context, nodeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.known[nodeID]
	return ok, nil
}

func (s *NodeStore) MarkSeen(_ context.Context, nodeID string, _ bool, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[nodeID] = t
	return nil
}
