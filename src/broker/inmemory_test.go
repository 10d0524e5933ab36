package broker

import (
	"context"
	"sync"
	"testing"
	"time"
)

// TestPublishDeliverToSubscriber verifies a message is published and received successfully.
func TestPublishDeliverToSubscriber(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	ch, err := broker.Subscribe(ctx, "test-topic", "group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := broker.Publish(ctx, "test-topic", "run-1", []byte("hello world")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-ch:
		if msg.Topic != "test-topic" || msg.Key != "run-1" || string(msg.Value) != "hello world" {
			t.Errorf("received %+v", msg)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

// TestOrderPreserved verifies a single subscriber sees messages in publish order.
func TestOrderPreserved(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	ch, _ := broker.Subscribe(ctx, "ordered", "group")

	for i := 0; i < 50; i++ {
		if err := broker.Publish(ctx, "ordered", "k", []byte{byte(i)}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	for i := 0; i < 50; i++ {
		select {
		case msg := <-ch:
			if msg.Value[0] != byte(i) || msg.Offset != int64(i) {
				t.Fatalf("message %d = value %d offset %d", i, msg.Value[0], msg.Offset)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("Timeout waiting for message %d", i)
		}
	}
}

// TestTopicIsolation verifies subscribers on different topics do not receive wrong messages.
func TestTopicIsolation(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	chA, _ := broker.Subscribe(ctx, "topic-a", "group")
	chB, _ := broker.Subscribe(ctx, "topic-b", "group")

	if err := broker.Publish(ctx, "topic-a", "", []byte("message for topic-a")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-chA:
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message on topic-a")
	}

	select {
	case msg := <-chB:
		t.Errorf("Topic B should not receive message, but got: %q", msg.Value)
	case <-time.After(100 * time.Millisecond):
		// Expected: no message received
	}
}

// TestMultipleSubscribersSameTopic verifies all subscribers receive the same message.
func TestMultipleSubscribersSameTopic(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	ch1, _ := broker.Subscribe(ctx, "shared-topic", "group1")
	ch2, _ := broker.Subscribe(ctx, "shared-topic", "group2")

	broker.Publish(ctx, "shared-topic", "", []byte("broadcast message"))

	for i, ch := range []<-chan Message{ch1, ch2} {
		select {
		case msg := <-ch:
			if string(msg.Value) != "broadcast message" {
				t.Errorf("Subscriber %d: got %q", i, msg.Value)
			}
		case <-time.After(1 * time.Second):
			t.Errorf("Subscriber %d: timeout waiting for message", i)
		}
	}
}

// TestUnsubscribeOnCancel verifies the channel closes when the subscriber's context ends.
func TestUnsubscribeOnCancel(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := broker.Subscribe(ctx, "topic", "group")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel, got message")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout - channel not closed after cancel")
	}

	// Publishing with no subscribers left must not block.
	if err := broker.Publish(context.Background(), "topic", "", []byte("x")); err != nil {
		t.Errorf("Publish after unsubscribe failed: %v", err)
	}
}

// TestPublishRespectsContext verifies a blocked publish returns when its context ends.
func TestPublishRespectsContext(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	_, _ = broker.Subscribe(context.Background(), "full", "group")
	for i := 0; i < broker.bufferSize; i++ {
		broker.Publish(context.Background(), "full", "", []byte("fill"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := broker.Publish(ctx, "full", "", []byte("overflow")); err == nil {
		t.Error("Publish on full buffer expected context error, got nil")
	}
}

// TestConcurrentPublishSubscribe verifies the lock protects the subscribers map.
func TestConcurrentPublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const numGoroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		if i%2 == 0 {
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					_ = broker.Publish(ctx, "concurrent-topic", "", []byte("msg"))
				}
			}()
		} else {
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					ch, err := broker.Subscribe(ctx, "concurrent-topic", "group")
					if err != nil {
						return
					}
					go func() {
						for range ch {
						}
					}()
				}
			}()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout - possible deadlock in concurrent access")
	}
}

// TestCloseGracefulShutdown verifies Close closes all subscriber channels.
func TestCloseGracefulShutdown(t *testing.T) {
	broker := NewInMemoryBroker()
	ctx := context.Background()

	ch1, _ := broker.Subscribe(ctx, "topic-1", "group")
	ch2, _ := broker.Subscribe(ctx, "topic-2", "group")

	var wg sync.WaitGroup
	wg.Add(2)
	for _, ch := range []<-chan Message{ch1, ch2} {
		go func(ch <-chan Message) {
			defer wg.Done()
			for range ch {
			}
		}(ch)
	}

	if err := broker.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := broker.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout - goroutines did not exit, channels may not be closed")
	}
}

// TestClosedBroker verifies publish and subscribe fail after Close.
func TestClosedBroker(t *testing.T) {
	broker := NewInMemoryBroker()
	broker.Close()

	ctx := context.Background()
	if err := broker.Publish(ctx, "topic", "key", []byte("msg")); err == nil {
		t.Error("Expected error when publishing to closed broker")
	}
	if _, err := broker.Subscribe(ctx, "topic", "group"); err == nil {
		t.Error("Expected error when subscribing to closed broker")
	}
}

func TestNewWithoutAddressesIsInMemory(t *testing.T) {
	for _, addrs := range []string{"", " , "} {
		b, err := New(addrs, nil)
		if err != nil {
			t.Fatalf("New(%q) error = %v", addrs, err)
		}
		if _, ok := b.(*InMemoryBroker); !ok {
			t.Errorf("New(%q) = %T, want *InMemoryBroker", addrs, b)
		}
		b.Close()
	}
}
