// Package broker defines the interface for message brokers and provides implementations.
package broker

import (
	"context"
	"strings"

	"hookstat/src/logger"
)

// Broker abstracts message publishing and consumption.
// Implemented in-process (single binary runs) and on Redpanda/Kafka (distributed runs).
type Broker interface {
	// Publish sends a message to a topic with an optional key for partitioning.
	// hookstat keys event batches and findings by run id.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel for consuming messages from a topic.
	// groupID is used for consumer group coordination in Kafka.
	// For in-memory broker, groupID is ignored.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message represents a consumed message from a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}

// New returns a Redpanda broker when addresses are given and an in-memory broker otherwise.
// addrs is the comma-separated REDPANDA_BROKERS value.
func New(addrs string, log logger.Logger) (Broker, error) {
	var brokers []string
	for _, a := range strings.Split(addrs, ",") {
		if a = strings.TrimSpace(a); a != "" {
			brokers = append(brokers, a)
		}
	}
	if len(brokers) == 0 {
		return NewInMemoryBroker(), nil
	}
	return NewRedpandaBroker(brokers, log)
}
