package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/dispatch"
	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/metrics"
)

// fakeReader отдаёт заготовленные сообщения, затем отменяет контекст consumer'а
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	fetchErrs []error
	committed []kafka.Message
	commitErr error
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		r.mu.Unlock()
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	r.mu.Unlock()
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

// mockDLQ мок dlqSender
type mockDLQ struct {
	mock.Mock
}

func (m *mockDLQ) Publish(ctx context.Context, group string, msg kafka.Message, cause error, attempts int, env *events.Envelope) error {
	return m.Called(ctx, group, msg, cause, attempts, env).Error(0)
}

// recordingSleeper не ждёт, только запоминает задержки
type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func message(t *testing.T, topic string, offset int64, ev events.Event) kafka.Message {
	t.Helper()
	env, err := events.NewEnvelope(ev, time.Now())
	require.NoError(t, err)
	value, err := env.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Offset: offset, Key: []byte(env.Key), Value: value}
}

type consumerFixture struct {
	reader   *fakeReader
	dlq      *mockDLQ
	sleeper  *recordingSleeper
	metrics  *metrics.Metrics
	consumer *GroupConsumer
	ctx      context.Context
}

func newFixture(t *testing.T, registry *dispatch.Registry, group string, topics []string, msgs ...kafka.Message) *consumerFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &consumerFixture{
		reader:  &fakeReader{msgs: msgs, cancel: cancel},
		dlq:     new(mockDLQ),
		sleeper: &recordingSleeper{},
		metrics: metrics.New("test"),
		ctx:     ctx,
	}
	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = 3
	cfg.RetryBackoffBase = 100 * time.Millisecond
	f.consumer = newGroupConsumer(zap.NewNop(), f.reader, cfg, "test", group, topics, registry, f.dlq, f.metrics, f.sleeper)
	return f
}

func TestGroupConsumer_SuccessCommits(t *testing.T) {
	registry := dispatch.NewRegistry()
	var handled []string
	require.NoError(t, registry.Register(events.TopicUserEvents, events.GroupMediaService, "users", func(_ context.Context, env events.Envelope) error {
		handled = append(handled, env.Key)
		return nil
	}))
	require.NoError(t, registry.Register(events.TopicProductEvents, events.GroupMediaService, "products", func(_ context.Context, env events.Envelope) error {
		handled = append(handled, env.Key)
		return nil
	}))

	deleted, err := events.NewProductDeleted("p1", "u1", time.Now())
	require.NoError(t, err)

	f := newFixture(t, registry, events.GroupMediaService, []string{events.TopicProductEvents, events.TopicUserEvents},
		message(t, events.TopicUserEvents, 1, events.UserDeleted{UserID: "u1"}),
		message(t, events.TopicProductEvents, 7, deleted),
	)

	require.NoError(t, f.consumer.Start(f.ctx))

	assert.Equal(t, []string{"u1", "p1"}, handled)
	require.Len(t, f.reader.committed, 2)
	assert.Equal(t, int64(7), f.reader.committed[1].Offset)
	assert.Empty(t, f.sleeper.waits)
	f.dlq.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsConsumed.WithLabelValues(events.TopicUserEvents, events.GroupMediaService, metrics.OutcomeSuccess)))
}

func TestGroupConsumer_RetryThenSuccess(t *testing.T) {
	registry := dispatch.NewRegistry()
	calls := 0
	require.NoError(t, registry.Register(events.TopicOrderCreated, events.GroupProfileUpdate, "orders", func(context.Context, events.Envelope) error {
		calls++
		if calls < 3 {
			return errors.New("mongo timeout")
		}
		return nil
	}))

	f := newFixture(t, registry, events.GroupProfileUpdate, []string{events.TopicOrderCreated},
		message(t, events.TopicOrderCreated, 1, events.UserDeleted{UserID: "u1"}))

	require.NoError(t, f.consumer.Start(f.ctx))

	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, f.sleeper.waits)
	assert.Len(t, f.reader.committed, 1)
}

func TestGroupConsumer_ExhaustedGoesToDLQ(t *testing.T) {
	registry := dispatch.NewRegistry()
	boom := errors.New("mongo down")
	require.NoError(t, registry.Register(events.TopicOrderCreated, events.GroupProfileUpdate, "orders", func(context.Context, events.Envelope) error {
		return boom
	}))

	msg := message(t, events.TopicOrderCreated, 3, events.UserDeleted{UserID: "u1"})
	f := newFixture(t, registry, events.GroupProfileUpdate, []string{events.TopicOrderCreated}, msg)
	f.dlq.On("Publish", mock.Anything, events.GroupProfileUpdate, msg, boom, 3, mock.AnythingOfType("*events.Envelope")).Return(nil).Once()

	require.NoError(t, f.consumer.Start(f.ctx))

	f.dlq.AssertExpectations(t)
	assert.Len(t, f.reader.committed, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.EventsConsumed.WithLabelValues(events.TopicOrderCreated, events.GroupProfileUpdate, metrics.OutcomeRetry)))
}

func TestGroupConsumer_DLQFailureRetriedBeforeNextMessage(t *testing.T) {
	registry := dispatch.NewRegistry()
	var handled []string
	require.NoError(t, registry.Register(events.TopicUserEvents, events.GroupMediaService, "users", func(_ context.Context, env events.Envelope) error {
		handled = append(handled, env.Key)
		if env.Key == "u1" {
			return errors.New("mongo down")
		}
		return nil
	}))

	f := newFixture(t, registry, events.GroupMediaService, []string{events.TopicUserEvents},
		message(t, events.TopicUserEvents, 1, events.UserDeleted{UserID: "u1"}),
		message(t, events.TopicUserEvents, 2, events.UserDeleted{UserID: "u2"}),
	)
	f.dlq.On("Publish", mock.Anything, events.GroupMediaService, mock.Anything, mock.Anything, 3, mock.Anything).
		Return(errors.New("broker down")).Once()
	f.dlq.On("Publish", mock.Anything, events.GroupMediaService, mock.Anything, mock.Anything, 3, mock.Anything).
		Return(nil).Once()

	require.NoError(t, f.consumer.Start(f.ctx))

	f.dlq.AssertExpectations(t)
	assert.Equal(t, []string{"u1", "u1", "u1", "u2"}, handled)
	require.Len(t, f.reader.committed, 2)
	assert.Equal(t, int64(1), f.reader.committed[0].Offset)
	assert.Equal(t, int64(2), f.reader.committed[1].Offset)
	// два backoff обработчика и один backoff перед повторной отправкой в DLQ
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 100 * time.Millisecond}, f.sleeper.waits)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsConsumed.WithLabelValues(events.TopicUserEvents, events.GroupMediaService, metrics.OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsConsumed.WithLabelValues(events.TopicUserEvents, events.GroupMediaService, metrics.OutcomeDLQ)))
}

// cancellingSleeper отменяет контекст consumer'а на n-м ожидании
type cancellingSleeper struct {
	n      int
	calls  int
	cancel context.CancelFunc
}

func (s *cancellingSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	s.calls++
	if s.calls >= s.n {
		s.cancel()
		return ctx.Err()
	}
	return nil
}

func TestGroupConsumer_DLQUnavailableStopsWithoutCommit(t *testing.T) {
	registry := dispatch.NewRegistry()
	var handled []string
	require.NoError(t, registry.Register(events.TopicUserEvents, events.GroupMediaService, "users", func(_ context.Context, env events.Envelope) error {
		handled = append(handled, env.Key)
		if env.Key == "u1" {
			return errors.New("mongo down")
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	reader := &fakeReader{
		msgs: []kafka.Message{
			message(t, events.TopicUserEvents, 1, events.UserDeleted{UserID: "u1"}),
			message(t, events.TopicUserEvents, 2, events.UserDeleted{UserID: "u2"}),
		},
		cancel: cancel,
	}
	dlq := new(mockDLQ)
	dlq.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down"))

	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = 1
	cfg.RetryBackoffBase = 100 * time.Millisecond
	// первые две паузы проходят, на третьей consumer останавливают
	sleeper := &cancellingSleeper{n: 3, cancel: cancel}
	consumer := newGroupConsumer(zap.NewNop(), reader, cfg, "test", events.GroupMediaService,
		[]string{events.TopicUserEvents}, registry, dlq, metrics.New("test"), sleeper)

	require.NoError(t, consumer.Start(ctx))

	dlq.AssertNumberOfCalls(t, "Publish", 3)
	assert.Equal(t, []string{"u1"}, handled)
	assert.Empty(t, reader.committed)
	assert.Len(t, reader.msgs, 1)
}

func TestGroupConsumer_PoisonPill(t *testing.T) {
	registry := dispatch.NewRegistry()
	require.NoError(t, registry.Register(events.TopicCartUpdated, events.GroupAnalytics, "cart", func(context.Context, events.Envelope) error {
		t.Fatal("handler must not be called for unparsable message")
		return nil
	}))

	msg := kafka.Message{Topic: events.TopicCartUpdated, Offset: 9, Value: []byte("not json")}
	f := newFixture(t, registry, events.GroupAnalytics, []string{events.TopicCartUpdated}, msg)
	f.dlq.On("Publish", mock.Anything, events.GroupAnalytics, msg, mock.AnythingOfType("*dispatch.ParseError"), 1, (*events.Envelope)(nil)).
		Return(nil).Once()

	require.NoError(t, f.consumer.Start(f.ctx))

	f.dlq.AssertExpectations(t)
	assert.Len(t, f.reader.committed, 1)
	assert.Empty(t, f.sleeper.waits)
}

func TestGroupConsumer_PermanentHandlerErrorSkipsRetry(t *testing.T) {
	registry := dispatch.NewRegistry()
	calls := 0
	require.NoError(t, registry.Register(events.TopicOrderCreated, events.GroupProfileUpdate, "orders", func(_ context.Context, env events.Envelope) error {
		calls++
		_, err := events.As[*events.OrderCreated](env)
		return err
	}))

	f := newFixture(t, registry, events.GroupProfileUpdate, []string{events.TopicOrderCreated},
		message(t, events.TopicOrderCreated, 1, events.UserDeleted{UserID: "u1"}))
	f.dlq.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 1, mock.Anything).Return(nil).Once()

	require.NoError(t, f.consumer.Start(f.ctx))

	assert.Equal(t, 1, calls)
	f.dlq.AssertExpectations(t)
}

func TestGroupConsumer_FetchErrorBacksOff(t *testing.T) {
	registry := dispatch.NewRegistry()
	f := newFixture(t, registry, events.GroupAnalytics, []string{events.TopicCartUpdated})
	f.reader.fetchErrs = []error{errors.New("leader not available")}

	require.NoError(t, f.consumer.Start(f.ctx))
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, f.sleeper.waits)
}

func TestDLQBackoff(t *testing.T) {
	base := time.Second
	assert.Equal(t, time.Second, dlqBackoff(base, 1))
	assert.Equal(t, 4*time.Second, dlqBackoff(base, 3))
	assert.Equal(t, maxDLQBackoff, dlqBackoff(base, 10))
	assert.Equal(t, maxDLQBackoff, dlqBackoff(base, 100))
}

func TestBackoff(t *testing.T) {
	base := time.Second
	assert.Equal(t, time.Duration(0), backoff(base, 1))
	assert.Equal(t, time.Second, backoff(base, 2))
	assert.Equal(t, 2*time.Second, backoff(base, 3))
	assert.Equal(t, 4*time.Second, backoff(base, 4))
}
