package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/example/ride-dispatch/internal/models"
)

// Topics names the outbound routing keys the dispatcher publishes to.
type Topics struct {
	DriverOutcome string
	Assignment    string
	UserNotify    string
	BookingStatus string
}

// Producer publishes dispatcher outcomes to the event bus. One writer is
// shared across topics; each message carries its own topic.
type Producer struct {
	writer *kafka.Writer
	topics Topics
}

func NewProducer(brokers []string, topics Topics) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 20 * time.Millisecond,
	}
	return &Producer{writer: w, topics: topics}
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
		Headers: []kafka.Header{
			{Key: "message-id", Value: []byte(uuid.NewString())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) DriverOutcome(ctx context.Context, out models.DriverOutcome) error {
	return p.publish(ctx, p.topics.DriverOutcome, out.BookingID, out)
}

func (p *Producer) Assignment(ctx context.Context, a models.Assignment) error {
	return p.publish(ctx, p.topics.Assignment, a.BookingID, a)
}

func (p *Producer) UserNotification(ctx context.Context, n models.UserNotification) error {
	return p.publish(ctx, p.topics.UserNotify, n.BookingID, n)
}

func (p *Producer) BookingStatus(ctx context.Context, u models.BookingStatusUpdate) error {
	return p.publish(ctx, p.topics.BookingStatus, u.BookingID, u)
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
