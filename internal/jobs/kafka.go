package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	kafkautil "github.com/tienchinh21/BKASIM-TEST-sub006/pkg/kafka"
)

// messageWriter is the part of *kafka.Writer the queue uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaQueue publishes jobs to a topic, keyed by rule id so one rule's
// jobs share a partition.
type KafkaQueue struct {
	writer messageWriter
	topic  string
}

// NewKafkaQueue creates a producer for the dispatch jobs topic.
func NewKafkaQueue(brokers, topic string) (*KafkaQueue, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}
	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing Kafka job producer",
		"brokers", brokerList,
		"topic", topic,
	)

	return &KafkaQueue{
		writer: kafkautil.NewWriter(brokerList, topic),
		topic:  topic,
	}, nil
}

// Enqueue publishes job and waits for the broker's acknowledgement.
func (q *KafkaQueue) Enqueue(ctx context.Context, job *Job) error {
	data, err := Encode(job)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(job.RuleID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "job_id", Value: []byte(job.ID)},
			{Key: "channel_type", Value: []byte(strconv.Itoa(int(job.ChannelType)))},
		},
		Time: job.CreatedAt,
	}

	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write job to Kafka",
			"job_id", job.ID,
			"rule_id", job.RuleID,
			"topic", q.topic,
			"error", err,
		)
		return fmt.Errorf("failed to write job to Kafka: %w", err)
	}

	slog.Debug("Published dispatch job",
		"job_id", job.ID,
		"rule_id", job.RuleID,
		"recipient", job.Recipient,
	)
	return nil
}

// Close closes the writer.
func (q *KafkaQueue) Close() error {
	slog.Info("Closing Kafka job producer", "topic", q.topic)
	if err := q.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}

var _ Queue = (*KafkaQueue)(nil)

// Consumer reads jobs from the dispatch topic and runs them on a worker
// pool. Offsets are committed after the job finishes, so a crash mid-job
// replays it.
type Consumer struct {
	reader messageReader
	topic  string
}

// NewConsumer creates a job consumer in the given consumer group.
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if err := kafkautil.ValidateConsumerParams(brokers, topic, groupID); err != nil {
		return nil, err
	}
	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing Kafka job consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)
	reader := kafka.NewReader(kafkautil.NewReaderConfig(brokerList, topic, groupID))
	kafkautil.LogReaderConfig(topic)

	return &Consumer{reader: reader, topic: topic}, nil
}

// Run feeds the pool until ctx is cancelled. Undecodable messages are
// logged and committed so they do not block the partition.
func (c *Consumer) Run(ctx context.Context, pool *WorkerPool) error {
	slog.Info("Starting job consumption loop", "topic", c.topic)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Failed to read job message", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		job, err := Decode(msg.Value)
		if err != nil {
			slog.Error("Dropping undecodable job message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			c.commit(ctx, msg)
			continue
		}

		m := msg
		if err := pool.submit(ctx, task{job: job, done: func() { c.commit(context.Background(), m) }}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to submit job %s: %w", job.ID, err)
		}
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		slog.Error("Failed to commit offset", "offset", msg.Offset, "error", err)
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	slog.Info("Closing Kafka job consumer", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka reader: %w", err)
	}
	return nil
}
