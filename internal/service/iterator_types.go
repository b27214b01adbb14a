package service

import (
	"context"

	"bakery/models"

	"github.com/segmentio/kafka-go"
)

// MessageIterator is the consumer side the order watcher reads from;
// *kafkaclient.Iterator satisfies it.
//
// Implementations own the consumer lifecycle and close the Messages channel
// when the consumer stops.
type MessageIterator interface {
	Messages() <-chan kafka.Message

	// CommitOffset acknowledges a message once it has been handled.
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// OrderFilter decides whether an event concerns the signed-in customer.
type OrderFilter func(orderID string) bool

// StatusUpdate pairs a decoded event with the message it came from.
type StatusUpdate struct {
	Event     models.OrderStatusEvent
	Partition int
	Offset    int64
}
