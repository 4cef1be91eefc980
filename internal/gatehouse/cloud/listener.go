package cloud

import (
	"context"

	"go.uber.org/zap"
)

// Handlers receives the decoded inbound messages. Nil handlers mean the
// message kind is dropped (logged at debug).
type Handlers struct {
	AuthorizationResponse func(context.Context, AuthorizationResponse)
	CheckoutCompleted     func(context.Context, CheckoutCompleted)
}

// Listener consumes the inbound topic, decodes each envelope once and
// dispatches by variant. Undecodable and unknown messages are dropped with a
// log entry; they are expected on a shared at-least-once channel.
type Listener struct {
	channel  Channel
	topic    string
	handlers Handlers
	logger   *zap.Logger
}

func NewListener(channel Channel, topic string, handlers Handlers, logger *zap.Logger) *Listener {
	return &Listener{channel: channel, topic: topic, handlers: handlers, logger: logger}
}

// Run blocks consuming the topic until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	stream, err := l.channel.Subscribe(ctx, l.topic)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-stream:
			if !ok {
				return ctx.Err()
			}
			l.dispatch(ctx, payload)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, payload []byte) {
	msg, err := Decode(payload)
	if err != nil {
		l.logger.Warn("dropping undecodable channel message",
			zap.String("topic", l.topic), zap.Error(err))
		return
	}

	switch m := msg.(type) {
	case AuthorizationResponse:
		if l.handlers.AuthorizationResponse != nil {
			l.handlers.AuthorizationResponse(ctx, m)
			return
		}
	case CheckoutCompleted:
		if l.handlers.CheckoutCompleted != nil {
			l.handlers.CheckoutCompleted(ctx, m)
			return
		}
	case AuthorizationRequest:
		// Our own outbound kind echoed on a shared topic; not for us.
	}
	l.logger.Debug("dropping unhandled channel message", zap.String("topic", l.topic))
}
