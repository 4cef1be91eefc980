package cloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

// Outcome is the result of one authorization round-trip. Exactly one of the
// two cases holds: the remote authority answered (TimedOut=false) or the
// deadline passed (TimedOut=true). The correlator never invents a verdict;
// on timeout the caller decides what to do next.
type Outcome struct {
	TimedOut         bool
	Granted          bool
	AssignedResource string
	Message          string
}

type waiter struct {
	ch       chan AuthorizationResponse // buffered 1, resolved at most once
	deadline time.Time
	resolved bool
}

// Correlator publishes authorization requests and matches eventual responses
// back to the scan that asked. One pending waiter exists per correlation key;
// the map is swept in the background so entries whose requester vanished
// cannot accumulate.
type Correlator struct {
	channel       Channel
	outboundTopic string
	logger        *zap.Logger

	mu      sync.Mutex
	pending map[string]*waiter

	sweepInterval time.Duration
	cancel        context.CancelFunc
	done          chan struct{}
}

func NewCorrelator(channel Channel, outboundTopic string, logger *zap.Logger) *Correlator {
	return &Correlator{
		channel:       channel,
		outboundTopic: outboundTopic,
		logger:        logger,
		pending:       make(map[string]*waiter),
		sweepInterval: 30 * time.Second,
		done:          make(chan struct{}),
	}
}

// Request publishes an authorization question and blocks the calling scan
// until a matching response arrives or timeout elapses, whichever is first.
// The waiter is registered before the publish so a response cannot slip
// through the gap.
func (c *Correlator) Request(ctx context.Context, kind types.Direction, identifier, nodeID string, timeout time.Duration) (Outcome, error) {
	key := uuid.NewString()

	w := &waiter{
		ch:       make(chan AuthorizationResponse, 1),
		deadline: time.Now().UTC().Add(timeout),
	}
	c.mu.Lock()
	c.pending[key] = w
	c.mu.Unlock()

	payload, err := Encode(AuthorizationRequest{
		CorrelationKey: key,
		Kind:           kind,
		Identifier:     identifier,
		NodeID:         nodeID,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		c.unregister(key)
		return Outcome{}, err
	}
	if err := c.channel.Publish(ctx, c.outboundTopic, payload); err != nil {
		c.unregister(key)
		return Outcome{}, fmt.Errorf("publish authorization request: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-w.ch:
		c.unregister(key)
		return Outcome{
			Granted:          resp.Granted,
			AssignedResource: resp.AssignedResource,
			Message:          resp.Message,
		}, nil
	case <-timer.C:
		c.unregister(key)
		c.logger.Info("authorization request timed out",
			zap.String("correlation_key", key),
			zap.String("kind", string(kind)))
		return Outcome{TimedOut: true}, nil
	case <-ctx.Done():
		// The owning connection went away. The waiter is removed here; a
		// late response is then dropped like any other unmatched one.
		c.unregister(key)
		return Outcome{}, ctx.Err()
	}
}

// HandleResponse resolves the pending waiter for a response's correlation
// key. Duplicates of an already-resolved key and responses with no waiter
// are logged and discarded; the channel redelivers, so neither is an error.
func (c *Correlator) HandleResponse(resp AuthorizationResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.pending[resp.CorrelationKey]
	if !ok {
		c.logger.Debug("dropping response with no pending waiter",
			zap.String("correlation_key", resp.CorrelationKey))
		return
	}
	if w.resolved {
		c.logger.Debug("discarding duplicate response",
			zap.String("correlation_key", resp.CorrelationKey))
		return
	}
	w.resolved = true
	w.ch <- resp
}

// Pending returns the number of outstanding waiters.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Correlator) unregister(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
}

// Start begins the background sweep that removes pending entries whose
// deadline has long passed. Requesters normally unregister themselves; the
// sweep covers requesters that died before doing so.
func (c *Correlator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.sweepLoop(ctx)
}

// Stop signals the sweep loop to exit and waits for it to finish. A
// correlator that was never started has no loop to wait for.
func (c *Correlator) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *Correlator) sweepLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(time.Now().UTC())
		}
	}
}

func (c *Correlator) sweep(now time.Time) {
	// Entries get a full sweep interval of grace past their deadline before
	// removal, so a requester that is merely slow is not raced.
	cutoff := now.Add(-c.sweepInterval)

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, w := range c.pending {
		if w.deadline.Before(cutoff) {
			delete(c.pending, key)
			c.logger.Warn("swept stale pending authorization",
				zap.String("correlation_key", key),
				zap.Time("deadline", w.deadline))
		}
	}
}
