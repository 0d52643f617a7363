package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	kafkautil "github.com/tienchinh21/BKASIM-TEST-sub006/pkg/kafka"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads emitted events and runs them one at a time. The offset is
// committed once EmitEvent returns, after the event's jobs are enqueued.
type Consumer struct {
	reader messageReader
	topic  string
}

// NewConsumer creates an event consumer in the given consumer group.
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if err := kafkautil.ValidateConsumerParams(brokers, topic, groupID); err != nil {
		return nil, err
	}
	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing Kafka event consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)
	reader := kafka.NewReader(kafkautil.NewReaderConfig(brokerList, topic, groupID))
	kafkautil.LogReaderConfig(topic)

	return &Consumer{reader: reader, topic: topic}, nil
}

// Run consumes events until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, emitter Emitter) error {
	slog.Info("Starting event intake loop", "topic", c.topic)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Event intake loop stopped")
				return nil
			}
			slog.Error("Failed to read event message", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		event, err := DecodeEvent(msg.Value)
		if err != nil {
			slog.Error("Dropping invalid event message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			c.commit(ctx, msg)
			continue
		}

		var payload any
		if len(event.Payload) > 0 {
			payload = event.Payload
		}
		n := emitter.EmitEvent(ctx, event.EventName, event.Actor, payload)
		slog.Debug("Processed event message",
			"event_id", event.EventID,
			"event_name", event.EventName,
			"dispatched", n,
		)
		c.commit(context.WithoutCancel(ctx), msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		slog.Error("Failed to commit offset", "offset", msg.Offset, "error", err)
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	slog.Info("Closing Kafka event consumer", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka reader: %w", err)
	}
	return nil
}

// Publisher writes events to the intake topic, keyed by event name.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates an event publisher.
func NewPublisher(brokers, topic string) (*Publisher, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}
	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing Kafka event publisher",
		"brokers", brokerList,
		"topic", topic,
	)
	return &Publisher{writer: kafkautil.NewWriter(brokerList, topic), topic: topic}, nil
}

// Publish validates and writes event.
func (p *Publisher) Publish(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.EventName),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to Kafka: %w", err)
	}

	slog.Debug("Published event",
		"event_id", event.EventID,
		"event_name", event.EventName,
		"topic", p.topic,
	)
	return nil
}

// Close closes the writer.
func (p *Publisher) Close() error {
	slog.Info("Closing Kafka event publisher", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}
