package service

import (
	"errors"
	"time"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/directory"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

// Deny reasons surfaced on access events and node displays.
const (
	ReasonNotRegistered        = "not_registered"
	ReasonUnknownNode          = "unknown_node"
	ReasonCheckoutNotCompleted = "checkout_not_completed"
	ReasonTryAgain             = "try_again"
	ReasonSystemError          = "system_error"
	ReasonStaleSession         = "stale_session"
	ReasonSessionLookupFailed  = "session_lookup_failed"
)

// Classification is the Decision Engine's answer for one scan: the direction
// to pursue, or an immediate denial.
type Classification struct {
	Denied    bool
	Direction types.Direction
	Reason    string
	// ErrorDefault marks a classification forced by an internal error
	// rather than derived from state. Recorded as source=ERROR_DEFAULT.
	ErrorDefault bool
}

// DecisionEngine classifies a scan as entry or exit from two inputs: whether
// the customer resolved, and the state of their active session.
type DecisionEngine struct {
	// FreshnessWindow bounds how old a session's last activity may be and
	// still imply "currently inside". Sessions staler than this are treated
	// as orphaned and a new visit begins instead of blocking the customer.
	FreshnessWindow time.Duration
}

const DefaultFreshnessWindow = 4 * time.Hour

func NewDecisionEngine(freshness time.Duration) *DecisionEngine {
	if freshness <= 0 {
		freshness = DefaultFreshnessWindow
	}
	return &DecisionEngine{FreshnessWindow: freshness}
}

// Classify applies the decision policy:
//
//  1. unresolved identifier: deny, nothing else runs
//  2. no active session: entry
//  3. fresh active session: exit
//  4. stale active session: entry (new visit; do not block on an orphan)
//  5. session lookup failed: entry (documented fail-open-on-entry default)
//
// sessErr carries the session lookup result: nil means sess is valid,
// store.ErrSessionNotFound means no session, anything else is an internal
// error handled by rule 5.
func (e *DecisionEngine) Classify(lookup directory.CustomerLookup, sess store.ActiveSession, sessErr error, now time.Time) Classification {
	if !lookup.Found {
		return Classification{Denied: true, Reason: ReasonNotRegistered}
	}

	switch {
	case sessErr == nil:
		if now.Sub(sess.LastActivityAt) <= e.FreshnessWindow {
			return Classification{Direction: types.DirectionExit}
		}
		return Classification{Direction: types.DirectionEntry, Reason: ReasonStaleSession}

	case errors.Is(sessErr, store.ErrSessionNotFound):
		return Classification{Direction: types.DirectionEntry}

	default:
		// Failing open on entry is preferred over blocking a legitimate
		// customer. Exit never fails open here; see the fallback authority
		// for the one sanctioned exception.
		return Classification{
			Direction:    types.DirectionEntry,
			Reason:       ReasonSessionLookupFailed,
			ErrorDefault: true,
		}
	}
}
