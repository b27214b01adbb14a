// Package kafkaclient wraps segmentio/kafka-go for the order status stream:
// a Consumer the watch command reads from and a Publisher the dev backend
// uses to announce status changes.
package kafkaclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader is the subset of *kafka.Reader the consumer needs.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer pumps messages from a Reader into a channel until stopped.
type Consumer struct {
	reader   Reader
	logger   *slog.Logger
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	messages chan kafka.Message
	backoff  time.Duration
}

// NewConsumer creates a consumer group reader with manual commits.
func NewConsumer(cfg Config, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
		// Offsets are committed by the order watcher after handling.
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       1e6,
	})
	return newConsumer(reader, logger)
}

func newConsumer(r Reader, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		reader:   r,
		logger:   logger.With("component", "kafka-consumer"),
		doneChan: make(chan struct{}),
		messages: make(chan kafka.Message),
		backoff:  time.Second,
	}
}

// Start begins the read loop in a goroutine. The message channel is closed
// when the loop exits.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.messages)

		c.logger.Info("consumer loop started")
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.doneChan:
				return
			default:
			}

			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					return
				}
				c.logger.Warn("read failed", "error", err)
				select {
				case <-time.After(c.backoff):
				case <-ctx.Done():
					return
				case <-c.doneChan:
					return
				}
				continue
			}

			select {
			case c.messages <- msg:
				c.logger.Debug("message received", "partition", msg.Partition, "offset", msg.Offset)
			case <-ctx.Done():
				return
			case <-c.doneChan:
				return
			}
		}
	}()
}

// Stop ends the read loop and closes the reader. It is safe to call twice.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.doneChan)
		c.wg.Wait()
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("failed to close reader", "error", err)
		}
		c.logger.Info("consumer stopped")
	})
}

// Iterator exposes the consumer as a service.MessageIterator.
type Iterator struct {
	consumer *Consumer
}

func (c *Consumer) NewIterator() *Iterator { return &Iterator{consumer: c} }

func (it *Iterator) Messages() <-chan kafka.Message { return it.consumer.messages }

func (it *Iterator) CommitOffset(ctx context.Context, msg kafka.Message) error {
	return it.consumer.reader.CommitMessages(ctx, msg)
}
