// Package events publishes the activity stream to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	Async        bool
}

// messageWriter is the part of kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaSink struct {
	writer messageWriter
	log    logging.Logger
}

func NewKafkaSink(cfg Config, log logging.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka sink configuration incomplete: both brokers and topic are required")
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 100 * time.Millisecond
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 5 * time.Second
	}

	log = log.With("module", "kafka_sink", "topic", cfg.Topic)

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        cfg.Async,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error(context.Background(), fmt.Sprintf(msg, args...))
		}),
	}

	return newKafkaSink(w, log), nil
}

func newKafkaSink(w messageWriter, log logging.Logger) *KafkaSink {
	return &KafkaSink{writer: w, log: log}
}

// Record publishes a as JSON, keyed by its request id.
func (s *KafkaSink) Record(ctx context.Context, a status.Activity) error {
	value, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to serialize activity: %w", err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(a.RequestID), Value: value})
	if err != nil {
		return fmt.Errorf("failed to write activity to kafka: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

var _ status.Sink = (*KafkaSink)(nil)
