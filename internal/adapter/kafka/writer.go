// Package kafka publishes finished sounding analyses to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/sounding-skewt/internal/config"
	"github.com/couchcryptid/sounding-skewt/internal/diagram"
	"github.com/couchcryptid/sounding-skewt/internal/domain"
)

// Writer produces analysis messages to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the analysis as diagram-ready JSON and writes it to
// the sink topic. One message per observation; the key makes repeated
// publishes of the same observation land on the same partition.
func (w *Writer) Publish(ctx context.Context, a domain.Analysis) error {
	msg, err := serializeToMessage(a)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write analysis message: %w", err)
	}
	w.logger.Debug("analysis published",
		"station", a.Station, "observed_at", a.ObservedAt)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Analysis into a Kafka message carrying
// the plot-ready diagram payload.
func serializeToMessage(a domain.Analysis) (kafkago.Message, error) {
	data, err := json.Marshal(diagram.Build(a))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize analysis: %w", err)
	}
	key := fmt.Sprintf("%s|%s", a.Station, a.ObservedAt.Format(time.RFC3339))
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(a.Station)},
			{Key: "observed_at", Value: []byte(a.ObservedAt.Format(time.RFC3339))},
		},
	}, nil
}
