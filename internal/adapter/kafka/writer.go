// Package kafka publishes accepted readings to a Kafka topic for downstream
// consumers (dashboards, long-term analytics). Fan-out is feature-flagged;
// the service runs fine without a broker.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/wildfire-telemetry-service/internal/config"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/domain"
)

// Writer produces accepted-reading messages to a Kafka topic.
// It implements ingest.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured fan-out topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes one accepted reading and writes it to the topic. Keyed
// by node so per-node ordering survives partitioning.
func (w *Writer) Publish(ctx context.Context, rec domain.HistoryRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a history record into a Kafka message.
func serializeToMessage(rec domain.HistoryRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ZoneID + "/" + rec.NodeID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "fire_risk_index", Value: []byte(strconv.Itoa(rec.FireRiskIndex))},
			{Key: "recorded_at", Value: []byte(rec.RecordedAt.Format(time.RFC3339))},
		},
	}, nil
}
