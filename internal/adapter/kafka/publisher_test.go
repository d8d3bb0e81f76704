package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenandcoop/weather-etl/internal/config"
	"github.com/greenandcoop/weather-etl/internal/domain"
	"github.com/greenandcoop/weather-etl/internal/quality"
)

func TestSerializeReport(t *testing.T) {
	now := time.Date(2026, 2, 19, 6, 0, 0, 0, time.UTC)
	report := quality.Report{
		Run: quality.RunInfo{
			RunID:       "run-20260218-7f3a",
			TargetDate:  "2026-02-18",
			GeneratedAt: now,
		},
		Counts: quality.Counts{Extracted: 10, Accepted: 8, Rejected: 2},
	}

	msg, err := serializeReport(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("run-20260218-7f3a"), msg.Key)
	assert.Contains(t, string(msg.Value), `"target_date":"2026-02-18"`)
	assert.Contains(t, string(msg.Value), `"accepted":8`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "target_date", msg.Headers[0].Key)
	assert.Equal(t, []byte("2026-02-18"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeRejection(t *testing.T) {
	rej := domain.Rejection{
		Source:       "wunderground",
		StationID:    "IICHTE19",
		RawTimestamp: "2026-02-18 10:04",
		Stage:        domain.StageValidation,
		Reason:       domain.ReasonOutOfRange,
		Detail:       "temperature 72.0 outside [-89.2, 56.7]",
	}

	msg, err := serializeRejection("run-1", rej)
	require.NoError(t, err)

	assert.Equal(t, []byte("IICHTE19"), msg.Key)
	assert.Contains(t, string(msg.Value), `"reason":"out_of_range"`)
	assert.Len(t, msg.Headers, 3)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "stage", msg.Headers[1].Key)
	assert.Equal(t, []byte("validation"), msg.Headers[1].Value)
	assert.Equal(t, "reason", msg.Headers[2].Key)
	assert.Equal(t, []byte("out_of_range"), msg.Headers[2].Value)
}

func TestDisabledPublisher(t *testing.T) {
	p := NewPublisher(&config.Config{}, nil)

	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishReport(context.Background(), quality.Report{}))
	assert.NoError(t, p.PublishRejections(context.Background(), "run-1", []domain.Rejection{{StationID: "07015"}}))
	assert.NoError(t, p.Close())
}

func TestEnabledPublisherConfiguresTopics(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:     []string{"localhost:9092"},
		KafkaReportTopic: "weather-quality-reports",
		KafkaRejectTopic: "weather-rejected-records",
	}
	p := NewPublisher(cfg, nil)

	require.True(t, p.Enabled())
	assert.Equal(t, "weather-quality-reports", p.reports.Topic)
	assert.Equal(t, "weather-rejected-records", p.rejects.Topic)
	require.NoError(t, p.Close())
}
