package kafka

import (
	"context"
	"encoding/json"
	"time"

	"points-ledger/internal/events"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "ledger.entries"

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher writes to topic on brokers. Messages are keyed by username and
// hash-balanced, so one account's events stay ordered within a partition.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		timeout: 5 * time.Second,
	}
}

func (p *Publisher) Publish(ctx context.Context, event events.EntryCommitted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(event.Username),
			Value: data,
			Time:  event.Timestamp,
		},
	)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
