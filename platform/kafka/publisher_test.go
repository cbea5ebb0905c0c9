package kafka

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/metrics"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	calls   int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublisher_WritesKeyedMessageWithHeaders(t *testing.T) {
	w := &fakeWriter{}
	m := metrics.New("user")
	p := newPublisher(zap.NewNop(), w, DefaultConfig(), "user", m)

	env, err := events.NewEnvelope(events.UserDeleted{UserID: "u1", UserRole: "SELLER"}, time.Now())
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), events.TopicUserEvents, "u1", env))

	require.Len(t, w.written, 1)
	msg := w.written[0]
	assert.Equal(t, events.TopicUserEvents, msg.Topic)
	assert.Equal(t, []byte("u1"), msg.Key)
	assert.Equal(t, env.EventID, header(msg, HeaderEventID))
	assert.Equal(t, string(events.KindUserDeleted), header(msg, HeaderKind))

	parsed, err := events.UnmarshalEnvelope(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, parsed.EventID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(events.TopicUserEvents, string(events.KindUserDeleted), "ok")))
}

func TestPublisher_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("dial tcp: connection refused")}
	cfg := DefaultConfig()
	cfg.BreakerMaxFailures = 2
	cfg.BreakerOpenTimeout = time.Minute
	p := newPublisher(zap.NewNop(), w, cfg, "order", metrics.New("order"))

	env, err := events.NewEnvelope(events.UserDeleted{UserID: "u1"}, time.Now())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := p.Publish(ctx, events.TopicUserEvents, "u1", env)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPublisherUnavailable)
	}

	err = p.Publish(ctx, events.TopicUserEvents, "u1", env)
	assert.ErrorIs(t, err, ErrPublisherUnavailable)
	assert.Equal(t, 2, w.calls)
}

func TestDLQPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newDLQPublisher(zap.NewNop(), w, ".dlq")
	p.now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }

	env := events.Envelope{EventID: "e1", Kind: events.KindOrderCreated}
	orig := kafka.Message{Topic: events.TopicOrderCreated, Partition: 2, Offset: 42, Key: []byte("o1"), Value: []byte("{}")}

	require.NoError(t, p.Publish(context.Background(), events.GroupProfileUpdate, orig, errors.New("boom"), 3, &env))

	require.Len(t, w.written, 1)
	assert.Equal(t, "order-created.dlq", w.written[0].Topic)
	assert.Equal(t, []byte("o1"), w.written[0].Key)

	var got DLQMessage
	require.NoError(t, json.Unmarshal(w.written[0].Value, &got))
	assert.Equal(t, DLQMessage{
		OriginalTopic:     events.TopicOrderCreated,
		OriginalPartition: 2,
		OriginalOffset:    42,
		OriginalKey:       base64.StdEncoding.EncodeToString([]byte("o1")),
		OriginalValue:     base64.StdEncoding.EncodeToString([]byte("{}")),
		Group:             events.GroupProfileUpdate,
		ErrorMessage:      "boom",
		FailedAt:          "2026-05-01T10:00:00Z",
		Attempts:          3,
		EventKind:         string(events.KindOrderCreated),
		EventID:           "e1",
	}, got)
}
