package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Outercircl-dev/backend/internal/domain"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

const (
	kafkaWriteTimeout = 5 * time.Second
	kafkaMaxAttempts  = 3
	kafkaBatchTimeout = 10 * time.Millisecond
)

// messageWriter is the part of *kafka.Writer the emitter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes events keyed by activity id, so one activity's
// events stay ordered within a partition.
type KafkaEmitter struct {
	writer messageWriter
}

func NewKafkaEmitter(cfg KafkaConfig) *KafkaEmitter {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: kafkaWriteTimeout,
		MaxAttempts:  kafkaMaxAttempts,
		BatchTimeout: kafkaBatchTimeout,
	}
	return &KafkaEmitter{writer: w}
}

func newKafkaEmitterWithWriter(w messageWriter) *KafkaEmitter {
	return &KafkaEmitter{writer: w}
}

func (k *KafkaEmitter) Name() string { return "kafka" }

func (k *KafkaEmitter) Emit(ctx context.Context, event domain.ParticipationEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.ActivityID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	return k.writer.WriteMessages(ctx, msg)
}

func (k *KafkaEmitter) Close() error {
	if k == nil || k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
