package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testReport() domain.Report {
	return domain.Report{
		Name:        "Sam",
		State:       "Idaho",
		Title:       "Idaho COVID-19 Report for Sam",
		AsOf:        time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC),
		TotalCases:  40,
		TotalDeaths: 4,
		Years: []domain.YearStats{
			{Year: 2020, AvgNewCases: 2.5},
		},
	}
}

func TestSerializeToMessage(t *testing.T) {
	published := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

	msg, err := serializeToMessage(testReport(), published)
	require.NoError(t, err)

	assert.Equal(t, []byte("Idaho"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "state", msg.Headers[0].Key)
	assert.Equal(t, []byte("Idaho"), msg.Headers[0].Value)
	assert.Equal(t, "as_of", msg.Headers[1].Key)
	assert.Equal(t, []byte("2021-12-31"), msg.Headers[1].Value)

	var event SummaryEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.NotEmpty(t, event.EventID)
	assert.True(t, published.Equal(event.PublishedAt))
	assert.Equal(t, int64(40), event.Report.TotalCases)
	require.Len(t, event.Report.Years, 1)
	require.NotNil(t, event.Report.Years[0].AvgNewCases)
	assert.InDelta(t, 2.5, *event.Report.Years[0].AvgNewCases, 1e-9)
}

func TestWriter_PublishReport(t *testing.T) {
	fw := &fakeWriter{}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	w := &Writer{
		writer:  fw,
		clock:   clockwork.NewFakeClockAt(now),
		logger:  slog.New(slog.DiscardHandler),
		metrics: observability.NewMetricsForTesting(),
	}

	require.NoError(t, w.PublishReport(context.Background(), testReport()))
	require.Len(t, fw.msgs, 1)
	assert.Contains(t, string(fw.msgs[0].Value), `"published_at":"2024-01-02T03:04:05Z"`)
	assert.InDelta(t, 1, testutil.ToFloat64(w.metrics.SummariesPublished), 0)

	fw.err = errors.New("broker down")
	err := w.PublishReport(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Idaho")
	assert.InDelta(t, 1, testutil.ToFloat64(w.metrics.SummariesPublished), 0)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}
