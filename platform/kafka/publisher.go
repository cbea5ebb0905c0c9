package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/metrics"
	"github.com/shestoi/GoMarket/platform/observability"
)

// Заголовки, которые publisher кладёт в каждое сообщение
const (
	HeaderEventID = "event_id"
	HeaderKind    = "kind"
)

// ErrPublisherUnavailable breaker открыт, запись в kafka не выполнялась
var ErrPublisherUnavailable = errors.New("kafka publisher unavailable: circuit breaker open")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher реализует events.Publisher поверх kafka.Writer.
// Hash balancer отправляет одинаковый ключ в одну партицию, поэтому порядок по ключу сохраняется.
// Повторов нет: ошибка возвращается вызывающему.
type Publisher struct {
	logger      *zap.Logger
	writer      messageWriter
	breaker     *gobreaker.CircuitBreaker
	metrics     *metrics.Metrics
	serviceName string
}

// NewPublisher создаёт publisher для сервиса serviceName
func NewPublisher(logger *zap.Logger, cfg Config, serviceName string, m *metrics.Metrics) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
	}
	return newPublisher(logger, writer, cfg, serviceName, m)
}

func newPublisher(logger *zap.Logger, writer messageWriter, cfg Config, serviceName string, m *metrics.Metrics) *Publisher {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	name := serviceName + "-kafka-writer"

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("kafka publisher circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			m.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	m.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return &Publisher{
		logger:      logger,
		writer:      writer,
		breaker:     breaker,
		metrics:     m,
		serviceName: serviceName,
	}
}

// Publish отправляет конверт в topic с ключом key
func (p *Publisher) Publish(ctx context.Context, topic, key string, env events.Envelope) (err error) {
	ctx, span := observability.StartProducerSpan(ctx, p.serviceName, topic, string(env.Kind))
	defer func() { observability.EndSpan(span, err) }()

	value, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", env.EventID, err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(env.EventID)},
			{Key: HeaderKind, Value: []byte(env.Kind)},
		},
	}
	observability.InjectKafka(ctx, &msg)

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrPublisherUnavailable, err)
	}

	log := observability.L(ctx, p.logger).With(
		zap.String("topic", topic),
		zap.String("key", key),
		zap.String("event_id", env.EventID),
		zap.String("kind", string(env.Kind)),
	)
	if err != nil {
		p.metrics.EventsPublished.WithLabelValues(topic, string(env.Kind), "error").Inc()
		log.Error("failed to publish event", zap.Error(err))
		return err
	}

	p.metrics.EventsPublished.WithLabelValues(topic, string(env.Kind), "ok").Inc()
	log.Info("event published")
	return nil
}

// Close закрывает kafka writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
