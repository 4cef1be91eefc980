package service

import (
	"go.uber.org/zap"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/directory"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

// FallbackAuthority decides locally when the remote authority did not answer
// in time. It is deliberately simple: the point of degraded mode is to keep
// the store usable, not to replicate cloud policy.
type FallbackAuthority struct {
	// DefaultResource is assigned on degraded entry grants instead of a
	// cloud-chosen cart.
	DefaultResource string
	logger          *zap.Logger
}

func NewFallbackAuthority(defaultResource string, logger *zap.Logger) *FallbackAuthority {
	return &FallbackAuthority{DefaultResource: defaultResource, logger: logger}
}

// FallbackDecision is a locally produced verdict.
type FallbackDecision struct {
	Granted  bool
	Resource string
	Reason   string
}

// DecideEntry grants entry to any locally resolved, non-suspended customer.
func (f *FallbackAuthority) DecideEntry(lookup directory.CustomerLookup) FallbackDecision {
	if !lookup.Found {
		return FallbackDecision{Reason: ReasonNotRegistered}
	}
	if lookup.Customer.Membership == types.MembershipSuspended {
		return FallbackDecision{Reason: "membership_suspended"}
	}

	f.logger.Info("degraded-mode entry grant",
		zap.String("customer_key", lookup.Customer.CustomerKey))
	return FallbackDecision{Granted: true, Resource: f.DefaultResource}
}

// DecideExit grants unconditionally. Degraded mode favors not trapping a
// paying customer over strict checkout enforcement; the resulting event is
// flagged for reconciliation instead.
func (f *FallbackAuthority) DecideExit(customerKey string) FallbackDecision {
	f.logger.Info("degraded-mode exit grant",
		zap.String("customer_key", customerKey))
	return FallbackDecision{Granted: true}
}
