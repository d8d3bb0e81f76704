package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/greenandcoop/weather-etl/internal/config"
	"github.com/greenandcoop/weather-etl/internal/domain"
	"github.com/greenandcoop/weather-etl/internal/quality"
)

// Publisher produces quality reports and rejected records to their Kafka
// topics. It implements pipeline.ReportSink and pipeline.RejectSink.
type Publisher struct {
	reports *kafkago.Writer
	rejects *kafkago.Writer
	logger  *slog.Logger
}

// NewPublisher creates Kafka producers for the report and reject topics.
// With no brokers configured the publisher is disabled and every method is
// a no-op, so offline runs need no broker.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{logger: logger}
	if len(cfg.KafkaBrokers) == 0 {
		return p
	}
	p.reports = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	p.rejects = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaRejectTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return p
}

// Enabled reports whether a broker is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && p.reports != nil
}

// PublishReport publishes one run's quality report, keyed by run ID.
func (p *Publisher) PublishReport(ctx context.Context, report quality.Report) error {
	if !p.Enabled() {
		return nil
	}
	msg, err := serializeReport(report)
	if err != nil {
		return err
	}
	if err := p.reports.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish quality report: %w", err)
	}
	p.logger.Info("published quality report",
		"run_id", report.Run.RunID,
		"topic", p.reports.Topic)
	return nil
}

// PublishRejections publishes the run's rejected records as one batch,
// each message keyed by station ID.
func (p *Publisher) PublishRejections(ctx context.Context, runID string, rejections []domain.Rejection) error {
	if !p.Enabled() || len(rejections) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rejections))
	for i := range rejections {
		msg, err := serializeRejection(runID, rejections[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.rejects.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish rejected records: %w", err)
	}
	p.logger.Info("published rejected records",
		"run_id", runID,
		"count", len(rejections),
		"topic", p.rejects.Topic)
	return nil
}

func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	if err := p.reports.Close(); err != nil {
		return err
	}
	return p.rejects.Close()
}

// serializeReport marshals a quality report into a Kafka message.
func serializeReport(report quality.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize quality report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.Run.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "target_date", Value: []byte(report.Run.TargetDate)},
			{Key: "generated_at", Value: []byte(report.Run.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}

// serializeRejection marshals a rejection into a Kafka message keyed by
// station.
func serializeRejection(runID string, rej domain.Rejection) (kafkago.Message, error) {
	data, err := json.Marshal(rej)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize rejection: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rej.StationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "stage", Value: []byte(rej.Stage)},
			{Key: "reason", Value: []byte(rej.Reason)},
		},
	}, nil
}
