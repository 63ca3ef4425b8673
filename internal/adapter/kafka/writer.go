// Package kafka publishes computed state reports to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/covid-dashboard/internal/config"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces report summaries to the summary topic.
// It implements pipeline.SummaryPublisher.
type Writer struct {
	writer  messageWriter
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSummaryTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, clock: clockwork.NewRealClock(), logger: logger, metrics: metrics}
}

// SummaryEvent is the message body written for each computed report.
type SummaryEvent struct {
	EventID     string               `json:"event_id"`
	PublishedAt time.Time            `json:"published_at"`
	Report      domain.ReportSummary `json:"report"`
}

// PublishReport writes one summary message keyed by state, so every report
// for a state lands on the same partition.
func (w *Writer) PublishReport(ctx context.Context, report domain.Report) error {
	msg, err := serializeToMessage(report, w.clock.Now().UTC())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish summary for %s: %w", report.State, err)
	}
	w.metrics.SummariesPublished.Inc()
	w.logger.Debug("summary published", "state", report.State, "as_of", report.AsOf.Format(time.DateOnly))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a report summary into a Kafka message.
func serializeToMessage(report domain.Report, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(SummaryEvent{
		EventID:     uuid.NewString(),
		PublishedAt: publishedAt,
		Report:      report.Summary(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.State),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "state", Value: []byte(report.State)},
			{Key: "as_of", Value: []byte(report.AsOf.Format(time.DateOnly))},
		},
	}, nil
}
