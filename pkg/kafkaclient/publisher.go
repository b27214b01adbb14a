package kafkaclient

import (
	"context"
	"encoding/json"
	"fmt"

	"bakery/models"

	"github.com/segmentio/kafka-go"
)

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes order status events keyed by order id so that updates for
// one order stay on one partition and arrive in order.
type Publisher struct {
	writer Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

func (p *Publisher) PublishStatus(ctx context.Context, ev models.OrderStatusEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.OrderID), Value: data}); err != nil {
		return fmt.Errorf("publish order event %s: %w", ev.OrderID, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
