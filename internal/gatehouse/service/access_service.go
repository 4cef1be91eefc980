package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/cloud"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/directory"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

var (
	ErrInvalidNodeID     = errors.New("node_id is required")
	ErrInvalidIdentifier = errors.New("identifier is required")
)

// Authorizer is the cloud round-trip the access flow performs. Satisfied by
// *cloud.Correlator; tests substitute their own.
type Authorizer interface {
	Request(ctx context.Context, kind types.Direction, identifier, nodeID string, timeout time.Duration) (cloud.Outcome, error)
}

// AccessService orchestrates one scan end to end: resolve the identifier,
// classify entry or exit, ask the remote authority, transition the session,
// record the audit event. Every scan produces exactly one verdict; cloud
// silence resolves through the fallback authority, never into an error the
// node would see.
type AccessService struct {
	registry   *NodeRegistry
	directory  *directory.Client
	decisions  *DecisionEngine
	sessions   *SessionService
	authorizer Authorizer
	fallback   *FallbackAuthority
	eventStore store.AccessEventStore

	cloudTimeout time.Duration
	logger       *zap.Logger
}

type AccessDeps struct {
	Registry     *NodeRegistry
	Directory    *directory.Client
	Decisions    *DecisionEngine
	Sessions     *SessionService
	Authorizer   Authorizer
	Fallback     *FallbackAuthority
	EventStore   store.AccessEventStore
	CloudTimeout time.Duration
	Logger       *zap.Logger
}

func NewAccessService(d AccessDeps) *AccessService {
	if d.CloudTimeout <= 0 {
		d.CloudTimeout = 5 * time.Second
	}
	return &AccessService{
		registry:     d.Registry,
		directory:    d.Directory,
		decisions:    d.Decisions,
		sessions:     d.Sessions,
		authorizer:   d.Authorizer,
		fallback:     d.Fallback,
		eventStore:   d.EventStore,
		cloudTimeout: d.CloudTimeout,
		logger:       d.Logger,
	}
}

// verdict gathers what one scan resolves to before it is written out as a
// response and an audit event.
type verdict struct {
	granted        bool
	direction      types.Direction
	source         types.DecisionSource
	reason         string
	message        string
	customerKey    string
	reconciliation string
}

// Decide handles a scan. The error return is for malformed requests only;
// every operational failure folds into a DENY verdict so the node always
// gets an answer.
func (s *AccessService) Decide(ctx context.Context, req types.ScanRequest) (types.ScanResponse, error) {
	now := time.Now().UTC()

	nodeID := strings.TrimSpace(req.NodeID)
	identifier := strings.TrimSpace(req.Identifier)
	if nodeID == "" {
		return types.ScanResponse{}, ErrInvalidNodeID
	}
	if identifier == "" {
		return types.ScanResponse{}, ErrInvalidIdentifier
	}

	known, err := s.registry.IsKnown(ctx, nodeID)
	if err != nil {
		// Fails closed: a registry we cannot read grants nothing.
		s.logger.Error("node registry unavailable", zap.Error(err))
		v := verdict{source: types.SourceLocal, reason: ReasonSystemError, message: "system error"}
		s.recordEvent(ctx, req, v, now)
		return s.respond(req, v, false, now), nil
	}
	_ = s.registry.NoteSeen(ctx, nodeID, known)

	if !known {
		v := verdict{source: types.SourceLocal, reason: ReasonUnknownNode}
		s.recordEvent(ctx, req, v, now)
		return types.ScanResponse{
			OK:         false,
			Known:      false,
			NodeID:     nodeID,
			ServerTime: now.Format(time.RFC3339Nano),
		}, nil
	}

	v := s.decide(ctx, req, now)
	s.recordEvent(ctx, req, v, now)
	return s.respond(req, v, true, now), nil
}

func (s *AccessService) decide(ctx context.Context, req types.ScanRequest, now time.Time) verdict {
	lookup, err := s.directory.FindCustomerByIdentifier(ctx, req.Identifier)
	if err != nil {
		s.logger.Error("customer lookup unavailable", zap.Error(err))
		return verdict{source: types.SourceLocal, reason: ReasonSystemError, message: "system error"}
	}

	var (
		sess    store.ActiveSession
		sessErr error = store.ErrSessionNotFound
	)
	if lookup.Found {
		sess, sessErr = s.directory.ActiveSession(ctx, lookup.Customer.CustomerKey)
	}

	cls := s.decisions.Classify(lookup, sess, sessErr, now)
	if cls.Denied {
		s.logger.Info("scan denied before authorization",
			zap.String("reason", cls.Reason),
			zap.Strings("attempted_formats", lookup.Attempted))
		return verdict{source: types.SourceLocal, reason: cls.Reason, message: "card not registered"}
	}

	v := verdict{
		direction:   cls.Direction,
		customerKey: lookup.Customer.CustomerKey,
		source:      types.SourceCloud,
	}
	if cls.ErrorDefault {
		v.source = types.SourceErrorDefault
	}

	canonical := lookup.Attempted[0]
	out, err := s.authorizer.Request(ctx, cls.Direction, canonical, req.NodeID, s.cloudTimeout)

	degraded := false
	var resource string
	switch {
	case err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded):
		// Channel unreachable counts the same as silence.
		s.logger.Warn("authorization channel unreachable", zap.Error(err))
		fallthrough
	case err == nil && out.TimedOut:
		degraded = true
		if v.source != types.SourceErrorDefault {
			v.source = types.SourceLocal
		}
		var fb FallbackDecision
		if cls.Direction == types.DirectionEntry {
			fb = s.fallback.DecideEntry(lookup)
		} else {
			fb = s.fallback.DecideExit(lookup.Customer.CustomerKey)
		}
		if !fb.Granted {
			v.reason = fb.Reason
			v.message = "access denied"
			return v
		}
		resource = fb.Resource
	case err != nil:
		// The scan's own context died; nobody is waiting for this verdict.
		v.source = types.SourceLocal
		v.reason = ReasonSystemError
		return v
	default:
		if !out.Granted {
			v.reason = "authority_denied"
			v.message = out.Message
			if v.message == "" {
				v.message = "access denied"
			}
			return v
		}
		resource = out.AssignedResource
	}

	if cls.Direction == types.DirectionEntry {
		if cls.Reason == ReasonStaleSession {
			// The abandoned session would otherwise collide with the new
			// one and lock the customer out on every scan.
			if err := s.sessions.EvictOrphanedSession(ctx, v.customerKey, sess.SessionKey); err != nil {
				s.logger.Error("orphaned session eviction failed", zap.Error(err))
			}
		}
		return s.settleEntry(ctx, v, resource, out.Message)
	}
	return s.settleExit(ctx, v, degraded)
}

// settleEntry creates the session for a granted entry.
func (s *AccessService) settleEntry(ctx context.Context, v verdict, resource, welcome string) verdict {
	_, err := s.sessions.GrantEntry(ctx, v.customerKey, resource)
	if errors.Is(err, ErrSessionConflict) {
		// Another node beat us to the entry. Refusing is safer than
		// guessing which scan the customer meant.
		v.reason = ReasonTryAgain
		v.message = "please try again"
		return v
	}
	if err != nil {
		s.logger.Error("entry session create failed", zap.Error(err))
		v.reason = ReasonSystemError
		v.message = "system error"
		return v
	}

	v.granted = true
	v.message = welcome
	if v.message == "" {
		v.message = "welcome"
	}
	return v
}

// settleExit removes the session for a granted exit, enforcing the
// checkout gate outside degraded mode.
func (s *AccessService) settleExit(ctx context.Context, v verdict, degraded bool) verdict {
	res, err := s.sessions.GrantExit(ctx, v.customerKey, degraded)
	if errors.Is(err, ErrSessionConflict) {
		v.reason = ReasonTryAgain
		v.message = "please try again"
		return v
	}
	if err != nil {
		s.logger.Error("exit session remove failed", zap.Error(err))
		v.reason = ReasonSystemError
		v.message = "system error"
		return v
	}

	if !res.Granted {
		v.reason = res.Reason
		v.message = "please complete checkout"
		return v
	}

	v.granted = true
	v.message = "thank you, goodbye"
	if res.Unreconciled {
		v.reconciliation = store.ReconciliationPending
	}
	return v
}

func (s *AccessService) respond(req types.ScanRequest, v verdict, known bool, now time.Time) types.ScanResponse {
	return types.ScanResponse{
		OK:         true,
		Known:      known,
		Granted:    v.granted,
		Direction:  string(v.direction),
		Message:    v.message,
		NodeID:     strings.TrimSpace(req.NodeID),
		ServerTime: now.Format(time.RFC3339Nano),
	}
}

// recordEvent persists the access decision to the audit log. A failed
// audit write must not prevent the node from receiving its verdict, so
// errors are logged and swallowed here.
func (s *AccessService) recordEvent(ctx context.Context, req types.ScanRequest, v verdict, decidedAt time.Time) {
	rec := store.AccessEventRecord{
		NodeID:         strings.TrimSpace(req.NodeID),
		Identifier:     strings.TrimSpace(req.Identifier),
		CustomerKey:    v.customerKey,
		ReceivedAt:     decidedAt,
		Granted:        v.granted,
		Direction:      v.direction,
		Source:         v.source,
		Reason:         v.reason,
		Reconciliation: v.reconciliation,
		DecidedAt:      decidedAt,
	}
	if rec.Reason == "" {
		if v.granted {
			rec.Reason = "authorized"
		} else {
			rec.Reason = "denied"
		}
	}

	if t := parseOptionalTimestamp(req.RequestedAt); t != nil {
		rec.RequestedAt = t
	}

	if err := s.eventStore.RecordEvent(ctx, rec); err != nil {
		s.logger.Error("access event write failed", zap.Error(err))
	}
}

// parseOptionalTimestamp attempts to parse a device-reported timestamp.
// Returns nil if the string is empty or unparseable.
func parseOptionalTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		u := t.UTC()
		return &u
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}
