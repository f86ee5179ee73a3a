package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/erdlab/collab/logger"
)

// KafkaConfig configures a KafkaBus.
type KafkaConfig struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the collaboration topic all instances share.
	Topic string

	// GroupID is the consumer group of this instance's subscription. Every
	// instance must use a distinct group so each one receives the full
	// event stream and can fan it out to its own clients.
	GroupID string

	Logger logger.Logger
}

// KafkaBus implements Bus over a Kafka topic. Hash partitioning by key
// keeps all events of one diagram on one partition, which is what gives
// replicated events their per-diagram ordering.
type KafkaBus struct {
	writer *kafka.Writer
	config KafkaConfig
	logger logger.Logger
}

// NewKafkaBus creates a bus for the given brokers and topic.
func NewKafkaBus(cfg KafkaConfig) *KafkaBus {
	log := cfg.Logger
	if log == nil {
		log = &logger.NoOpLogger{}
	}

	return &KafkaBus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		config: cfg,
		logger: log.WithComponent("bus"),
	}
}

// Publish writes one message keyed by key.
func (b *KafkaBus) Publish(ctx context.Context, key string, payload []byte) error {
	err := b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("kafka publish key %q: %w", key, err)
	}
	b.logger.Debugw("published message", "key", key, "bytes", len(payload))
	return nil
}

// Subscribe consumes the topic until ctx is cancelled. Each call creates
// its own reader in the configured consumer group.
func (b *KafkaBus) Subscribe(ctx context.Context, h Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.config.Brokers,
		Topic:   b.config.Topic,
		GroupID: b.config.GroupID,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			b.logger.Warnw("failed to close kafka reader", "error", err)
		}
	}()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("kafka read: %w", err)
		}
		h(ctx, string(msg.Key), msg.Value)
	}
}

// Close shuts down the writer. Readers are owned by their subscriptions.
func (b *KafkaBus) Close() error {
	return b.writer.Close()
}
