package kafka

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

// Handler processes one consumed message.  Returning an error leaves the
// offset uncommitted so the message is redelivered.
type Handler func(ctx context.Context, msg kafka.Message) error

// readerInterface abstracts kafka.Reader for testing.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs a consumer-group loop over one topic, committing offsets only
// after the handler succeeds.
type Consumer struct {
	reader  readerInterface
	topic   string
	handler Handler
	log     logging.Logger
}

// NewConsumer builds a group consumer for topic.
func NewConsumer(cfg config.KafkaConfig, topic string, handler Handler, log logging.Logger) *Consumer {
	startOffset := kafka.LastOffset
	if cfg.AutoOffsetReset == "earliest" {
		startOffset = kafka.FirstOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          topic,
		StartOffset:    startOffset,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0, // explicit commits only
	})
	return &Consumer{reader: reader, topic: topic, handler: handler, log: log}
}

// Run consumes until ctx is cancelled.  Handler failures are logged and the
// message is left uncommitted; poison messages are retried by the broker, not
// skipped silently.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("consumer started", logging.String("topic", c.topic))
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeEventPublishFailed, "fetch message")
		}

		if err := c.handler(ctx, msg); err != nil {
			c.log.Error("message handling failed",
				logging.String("topic", c.topic),
				logging.Int("partition", msg.Partition),
				logging.Int("offset", int(msg.Offset)),
				logging.Err(err),
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if stderrors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("offset commit failed", logging.String("topic", c.topic), logging.Err(err))
		}
	}
}

// Close shuts the underlying reader down.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
