package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducer) Close() { f.closed = true }

func TestPublisher_Publish(t *testing.T) {
	fp := &fakeProducer{}
	p := newPublisher(fp, "intake.events", WithLogger(logging.NewNop()))
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), domain.Event{
		ID:         "ev-1",
		Type:       domain.EventComplaintFiled,
		UserKey:    "+919876543210",
		OccurredAt: at,
		Attributes: map[string]any{"caseId": "CC1772359200000123"},
	})
	require.NoError(t, err)
	require.Len(t, fp.records, 1)

	rec := fp.records[0]
	assert.Equal(t, "intake.events", rec.Topic)
	assert.Equal(t, []byte("+919876543210"), rec.Key)
	assert.Equal(t, []kgo.RecordHeader{{Key: "type", Value: []byte("complaint.filed")}}, rec.Headers)
	assert.True(t, rec.Timestamp.Equal(at))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, "CC1772359200000123", decoded.Attributes["caseId"])

	p.Close()
	assert.True(t, fp.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	fp := &fakeProducer{err: errors.New("leader not available")}
	p := newPublisher(fp, DefaultTopic, WithLogger(logging.NewNop()))

	err := p.Publish(context.Background(), domain.Event{Type: domain.EventRegistrationSaved})
	assert.ErrorContains(t, err, "publish registration.saved: leader not available")
}

func TestNew_RequiresBrokers(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
