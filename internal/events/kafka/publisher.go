package kafka

import (
	"context"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/events"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives ledger events when no topic is configured
const DefaultTopic = "ledger_events"

const writeTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher forwards ledger events to a Kafka topic, keyed by entity type
type Publisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewPublisher creates a publisher writing asynchronously to the given brokers
func NewPublisher(brokers []string, topic string, logger zerolog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	l := logger.With().Str("component", "kafka_publisher").Str("topic", topic).Logger()
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
			Async:    true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					l.Error().Err(err).Int("messages", len(messages)).Msg("Failed to deliver events")
				}
			},
		},
		logger: l,
	}
}

// Publish implements events.Publisher
func (p *Publisher) Publish(event events.Event) {
	data, err := event.ToJSON()
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", event.Type).Msg("Failed to serialize event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Entity),
		Value: data,
		Time:  event.Timestamp,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("event_type", event.Type).Msg("Failed to publish event")
	}
}

// Close flushes pending messages and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ events.Publisher = (*Publisher)(nil)
