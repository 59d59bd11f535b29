// Package kafka publishes ingest reports to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/gpv-forecast-service/internal/config"
	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces ingest reports to the configured topic.
// It implements pipeline.Notifier.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the ingest report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes one report, keyed by its run id.
func (w *Writer) Publish(ctx context.Context, report domain.IngestReport) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish ingest report %s: %w", report.RunID, err)
	}
	w.logger.Debug("ingest report published", "run_id", report.RunID, "rows", report.Rows)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an IngestReport into a Kafka message.
func serializeToMessage(report domain.IngestReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize ingest report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "mode", Value: []byte(report.Mode)},
			{Key: "finished_at", Value: []byte(report.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
