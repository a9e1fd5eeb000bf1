package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ride-dispatch/internal/observability"
)

// HandlerFunc processes one inbound message payload. A nil return
// acknowledges the message; any error sends it to the dead-letter topic
// without requeue, so a poison message can never loop forever.
type HandlerFunc func(ctx context.Context, payload []byte) error

// fetcher is the subset of kafka.Reader the consumer needs; tests swap in a
// fake.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type deadLetterer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer drives the inbound side of the event bus: fetch, route by topic,
// commit on success, dead-letter on failure.
type Consumer struct {
	reader   fetcher
	dlq      deadLetterer
	dlqTopic string
	handlers map[string]HandlerFunc
	log      *slog.Logger
}

func NewConsumer(brokers []string, group, dlqTopic string, handlers map[string]HandlerFunc, log *slog.Logger) *Consumer {
	topics := make([]string, 0, len(handlers))
	for t := range handlers {
		topics = append(topics, t)
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     group,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Consumer{reader: r, dlq: w, dlqTopic: dlqTopic, handlers: handlers, log: log}
}

// newConsumerWith wires explicit reader/writer implementations; used by
// tests.
func newConsumerWith(reader fetcher, dlq deadLetterer, dlqTopic string, handlers map[string]HandlerFunc, log *slog.Logger) *Consumer {
	return &Consumer{reader: reader, dlq: dlq, dlqTopic: dlqTopic, handlers: handlers, log: log}
}

// Close releases the underlying reader and dead-letter writer.
func (c *Consumer) Close() error {
	var errs []error
	if cl, ok := c.reader.(io.Closer); ok {
		errs = append(errs, cl.Close())
	}
	if cl, ok := c.dlq.(io.Closer); ok {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

// Run blocks until ctx is cancelled. Fetch errors back off exponentially;
// handler errors never stall the loop.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer shutting down")
				return
			}
			c.log.Error("fetch error", "error", err, "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		c.process(ctx, m)
	}
}

func (c *Consumer) process(ctx context.Context, m kafka.Message) {
	handler, ok := c.handlers[m.Topic]
	if !ok {
		c.deadLetter(ctx, m, "no handler for topic")
		c.commit(ctx, m)
		return
	}
	if err := handler(ctx, m.Value); err != nil {
		observability.ConsumerMessagesTotal.WithLabelValues(m.Topic, "error").Inc()
		c.log.Error("handler failed", "topic", m.Topic, "error", err)
		c.deadLetter(ctx, m, err.Error())
		c.commit(ctx, m)
		return
	}
	observability.ConsumerMessagesTotal.WithLabelValues(m.Topic, "ok").Inc()
	c.commit(ctx, m)
}

func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message, reason string) {
	dead := kafka.Message{
		Topic: c.dlqTopic,
		Key:   m.Key,
		Value: m.Value,
		Headers: append(m.Headers,
			kafka.Header{Key: "origin-topic", Value: []byte(m.Topic)},
			kafka.Header{Key: "error", Value: []byte(reason)},
		),
	}
	if err := c.dlq.WriteMessages(ctx, dead); err != nil {
		// Nothing left to do but log; the offset still commits so the
		// message is dropped rather than looped.
		c.log.Error("dead-letter publish failed", "topic", m.Topic, "error", err)
		return
	}
	observability.DeadLetteredTotal.Inc()
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.log.Error("commit failed", "topic", m.Topic, "error", err)
	}
}
