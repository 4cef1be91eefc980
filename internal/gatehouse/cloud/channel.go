package cloud

import "context"

// Channel is the publish/subscribe transport to the remote authority and the
// shopping subsystem. Implementations must assume at-least-once delivery,
// possible reordering and duplication; the consumers absorb all three.
type Channel interface {
	// Publish sends payload on topic. A nil error means the transport
	// accepted the message, not that anyone received it.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe returns a stream of payloads for topic. The stream is closed
	// when ctx is cancelled.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}
