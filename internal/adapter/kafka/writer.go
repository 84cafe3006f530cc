package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/config"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces increase alerts to a Kafka topic.
// It implements dashboard.AlertLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes the alerts of one ranking in a single
// WriteMessages call. Alerts are keyed by region so that all alerts of a
// region land on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, alerts []domain.IncreaseAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i := range alerts {
		msg, err := serializeToMessage(alerts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d alerts: %w", len(msgs), err)
	}
	w.logger.Debug("alerts published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an IncreaseAlert into a Kafka message.
func serializeToMessage(alert domain.IncreaseAlert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize increase alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.Region),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "metric", Value: []byte(alert.Metric)},
			{Key: "generated_at", Value: []byte(alert.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
