package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkshitij1763/e-commerce-api/internal/events"
	kafkax "github.com/mkshitij1763/e-commerce-api/internal/kafka"
	"github.com/mkshitij1763/e-commerce-api/internal/redisx"
)

type captureRepo struct {
	records []Record
	err     error
}

func (c *captureRepo) Insert(_ context.Context, rec Record) error {
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, rec)
	return nil
}

func newService(repo Recorder) *Service {
	return &Service{
		Repo: repo,
		// Unreachable on purpose: dedup errors must not stop recording, the
		// order_events primary key is the real idempotency guard.
		Redis:       redisx.New("127.0.0.1:1"),
		ServiceName: "auditor-test",
		Log:         zap.NewNop(),
	}
}

func TestHandleEventRecordsEnvelope(t *testing.T) {
	repo := &captureRepo{}
	svc := newService(repo)

	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := events.Envelope{
		EventID:       "ev-1",
		EventType:     events.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    occurred,
		Producer:      "storefront-api",
		CorrelationID: "o1",
		Payload: kafkax.MustMarshal(events.OrderPlacedPayload{
			OrderID: "o1", UserID: "u1", TotalCents: 9998,
		}),
	}
	m := kafkago.Message{Topic: events.TopicOrderPlaced, Value: kafkax.MustMarshal(env)}

	require.NoError(t, svc.HandleEvent(context.Background(), m))

	require.Len(t, repo.records, 1)
	rec := repo.records[0]
	assert.Equal(t, "ev-1", rec.EventID)
	assert.Equal(t, events.EventOrderPlaced, rec.EventType)
	assert.Equal(t, "o1", rec.OrderID)
	assert.Equal(t, "storefront-api", rec.Producer)
	assert.Equal(t, occurred, rec.OccurredAt)

	payload, err := kafkax.UnwrapPayload[events.OrderPlacedPayload](json.RawMessage(rec.Payload))
	require.NoError(t, err)
	assert.Equal(t, int64(9998), payload.TotalCents)
}

func TestHandleEventDropsMalformedMessage(t *testing.T) {
	repo := &captureRepo{}
	svc := newService(repo)

	m := kafkago.Message{Topic: events.TopicOrderPlaced, Value: []byte("{not json")}
	require.NoError(t, svc.HandleEvent(context.Background(), m), "malformed input must not be retried")
	assert.Empty(t, repo.records)
}

func TestHandleEventPropagatesInsertFailure(t *testing.T) {
	repo := &captureRepo{err: context.DeadlineExceeded}
	svc := newService(repo)

	env := events.Envelope{EventID: "ev-1", EventType: events.EventOrderPaid, CorrelationID: "o1", Payload: []byte("{}")}
	m := kafkago.Message{Topic: events.TopicOrderPaid, Value: kafkax.MustMarshal(env)}

	require.Error(t, svc.HandleEvent(context.Background(), m), "the consumer must not commit the offset")
}
