// Package kafka carries contract lifecycle events over Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
	"github.com/clauselens/clauselens/pkg/types/common"
)

var ErrPublisherClosed = errors.New(errors.ErrCodeEventPublishFailed, "event publisher is closed")

// writerInterface abstracts kafka.Writer for testing.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes domain events to Kafka, one topic per event kind, keyed by
// aggregate ID so events for one contract stay ordered within a partition.
type Publisher struct {
	writer writerInterface
	log    logging.Logger
	closed atomic.Bool
}

var _ contract.EventPublisher = (*Publisher)(nil)

// NewPublisher builds a Publisher from config.  The writer resolves the topic
// per message, so one writer serves all contract topics.
func NewPublisher(cfg config.KafkaConfig, log logging.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  cfg.ProducerRetries,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		Compression:  kafka.Snappy,
		AllowAutoTopicCreation: cfg.AutoCreateTopics,
	}
	if w.MaxAttempts == 0 {
		w.MaxAttempts = 3
	}
	if w.WriteTimeout == 0 {
		w.WriteTimeout = 10 * time.Second
	}
	return &Publisher{writer: w, log: log}
}

// Publish serializes event as JSON and writes it to topic.
func (p *Publisher) Publish(ctx context.Context, topic string, event common.DomainEvent) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEventPublishFailed, "marshal event")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.AggregateID()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID())},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: event.OccurredAt(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeEventPublishFailed, "write event to kafka")
	}

	p.log.Debug("event published",
		logging.String("topic", topic),
		logging.String("aggregate_id", event.AggregateID()),
	)
	return nil
}

// Close flushes pending batches and shuts the writer down.
func (p *Publisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeEventPublishFailed, "close kafka writer")
	}
	return nil
}
