package broker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// InMemoryBroker is a process-local Broker. Every subscriber of a topic receives
// every message published after it subscribed. groupID is ignored.
// Publish blocks while a subscriber's buffer is full, so a slow dispatcher
// applies backpressure instead of losing events.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Message
	closed      bool
	done        chan struct{}
	closeOnce   sync.Once
	offset      atomic.Int64
	bufferSize  int
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]chan Message),
		done:        make(chan struct{}),
		bufferSize:  100,
	}
}

// Publish delivers a message to all current subscribers of topic.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    b.offset.Add(1) - 1,
		Timestamp: time.Now().UnixMilli(),
	}

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return fmt.Errorf("broker is closed")
		}
	}
	return nil
}

// Subscribe returns a channel receiving messages published to topic.
// The channel is closed when ctx is cancelled or the broker is closed.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	ch := make(chan Message, b.bufferSize)
	b.subscribers[topic] = append(b.subscribers[topic], ch)

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(topic, ch)
		case <-b.done:
		}
	}()

	return ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic string, ch chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, sub := range subs {
		if sub == ch {
			b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Close closes every subscriber channel. Later calls to Publish and Subscribe fail.
func (b *InMemoryBroker) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		defer b.mu.Unlock()

		b.closed = true
		for topic, subs := range b.subscribers {
			for _, ch := range subs {
				close(ch)
			}
			delete(b.subscribers, topic)
		}
	})
	return nil
}
