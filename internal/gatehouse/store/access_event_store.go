package store

import (
	"context"
	"time"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

// Reconciliation flags on an access event. Degraded-mode exits are stamped
// PENDING so a later sweep can audit sessions that left unreconciled.
const (
	ReconciliationNone    = ""
	ReconciliationPending = "PENDING"
)

// AccessEventRecord captures a single access decision for the audit log.
// CustomerKey is empty when the identifier never resolved.
type AccessEventRecord struct {
	NodeID         string
	Identifier     string
	CustomerKey    string
	ReceivedAt     time.Time
	RequestedAt    *time.Time // optional device-reported timestamp
	Granted        bool
	Direction      types.Direction
	Source         types.DecisionSource
	Reason         string
	Reconciliation string
	DecidedAt      time.Time
}

// AccessEventStore persists access decisions as an append-only audit log.
type AccessEventStore interface {
	RecordEvent(ctx context.Context, rec AccessEventRecord) error
}
