package cloud

import (
	"context"
	"sync"
)

// MemoryChannel is an in-process Channel for tests and single-box dev runs.
// Delivery is per-subscriber buffered; a subscriber that falls more than
// bufferSize messages behind loses the overflow, mirroring the lossy nature
// of the real transport.
type MemoryChannel struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

const bufferSize = 64

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{subs: make(map[string][]chan []byte)}
}

func (c *MemoryChannel) Publish(_ context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	subs := append([]chan []byte(nil), c.subs[topic]...)
	c.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
	return nil
}

func (c *MemoryChannel) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	in := make(chan []byte, bufferSize)
	out := make(chan []byte)

	c.mu.Lock()
	c.subs[topic] = append(c.subs[topic], in)
	c.mu.Unlock()

	go func() {
		defer close(out)
		defer c.unsubscribe(topic, in)
		for {
			select {
			case <-ctx.Done():
				return
			case payload := <-in:
				select {
				case out <- payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *MemoryChannel) unsubscribe(topic string, in chan []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.subs[topic]
	for i, s := range subs {
		if s == in {
			c.subs[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
