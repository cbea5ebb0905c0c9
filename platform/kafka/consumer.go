package kafka

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/dispatch"
	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/metrics"
	"github.com/shestoi/GoMarket/platform/observability"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type dlqSender interface {
	Publish(ctx context.Context, group string, msg kafka.Message, cause error, attempts int, env *events.Envelope) error
}

// GroupConsumer читает все топики одной consumer group и передаёт сообщения в dispatch.Registry.
// At-least-once: offset коммитится только после успешной обработки или отправки в DLQ.
type GroupConsumer struct {
	logger      *zap.Logger
	reader      messageReader
	group       string
	topics      []string
	registry    *dispatch.Registry
	dlq         dlqSender
	metrics     *metrics.Metrics
	sleeper     Sleeper
	maxAttempts int
	backoffBase time.Duration
	serviceName string
}

// NewGroupConsumer создаёт consumer для group, подписанный на topics
func NewGroupConsumer(
	logger *zap.Logger,
	cfg Config,
	serviceName, group string,
	topics []string,
	registry *dispatch.Registry,
	dlq *DLQPublisher,
	m *metrics.Metrics,
) *GroupConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     group,
		GroupTopics: topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.FirstOffset,
	})
	return newGroupConsumer(logger, reader, cfg, serviceName, group, topics, registry, dlq, m, DefaultSleeper{})
}

func newGroupConsumer(
	logger *zap.Logger,
	reader messageReader,
	cfg Config,
	serviceName, group string,
	topics []string,
	registry *dispatch.Registry,
	dlq dlqSender,
	m *metrics.Metrics,
	sleeper Sleeper,
) *GroupConsumer {
	maxAttempts := cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoffBase := cfg.RetryBackoffBase
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	return &GroupConsumer{
		logger:      logger.With(zap.String("group", group)),
		reader:      reader,
		group:       group,
		topics:      topics,
		registry:    registry,
		dlq:         dlq,
		metrics:     m,
		sleeper:     sleeper,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		serviceName: serviceName,
	}
}

// NewConsumers создаёт по одному consumer'у на каждую группу из registry
func NewConsumers(logger *zap.Logger, cfg Config, serviceName string, registry *dispatch.Registry, dlq *DLQPublisher, m *metrics.Metrics) []*GroupConsumer {
	groups := registry.Groups()
	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	out := make([]*GroupConsumer, 0, len(names))
	for _, g := range names {
		out = append(out, NewGroupConsumer(logger, cfg, serviceName, g, groups[g], registry, dlq, m))
	}
	return out
}

// Group имя consumer group
func (c *GroupConsumer) Group() string {
	return c.group
}

// Start читает сообщения до отмены ctx
func (c *GroupConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer",
		zap.Strings("topics", c.topics),
		zap.Int("max_retry_attempts", c.maxAttempts),
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer context cancelled, stopping")
				return nil
			}
			c.logger.Error("failed to fetch message from kafka", zap.Error(err))
			if err := c.sleeper.Sleep(ctx, c.backoffBase); err != nil {
				return nil
			}
			continue
		}

		if !c.processMessage(ctx, m) {
			// без commit: после рестарта группа перечитает сообщение с последнего закоммиченного offset
			c.logger.Info("consumer stopped before message was settled",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
			return nil
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("failed to commit message offset",
				zap.Error(err),
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
			continue
		}
		c.logger.Debug("message offset committed",
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
	}
}

// processMessage возвращает true, если offset можно коммитить.
// false только при отмене ctx: следующее сообщение не читается, пока текущее не обработано или не ушло в DLQ.
func (c *GroupConsumer) processMessage(ctx context.Context, m kafka.Message) (commit bool) {
	ctx, span := observability.StartConsumerSpan(ctx, c.serviceName, c.group, &m)
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	route := dispatch.Route{Topic: m.Topic, Group: c.group}
	log := observability.L(ctx, c.logger).With(
		zap.String("topic", m.Topic),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	env, err := events.UnmarshalEnvelope(m.Value)
	if err != nil {
		spanErr = err
		log.Error("failed to parse envelope - sending to DLQ", zap.Error(err))
		return c.toDLQ(ctx, log, route, m, &dispatch.ParseError{Field: "envelope", Message: err.Error()}, 1, nil)
	}

	log = log.With(zap.String("event_id", env.EventID), zap.String("kind", string(env.Kind)))
	log.Info("received event")

	started := time.Now()
	attempts, err := c.handleWithRetry(ctx, log, route, env)
	c.metrics.ObserveHandler(m.Topic, c.group, started)
	if err == nil {
		c.metrics.EventsConsumed.WithLabelValues(m.Topic, c.group, metrics.OutcomeSuccess).Inc()
		log.Info("event processed successfully", zap.Int("attempts", attempts))
		return true
	}
	spanErr = err

	if ctx.Err() != nil {
		// останавливаемся посреди retry: сообщение будет перечитано после рестарта
		return false
	}

	log.Error("failed to handle event - sending to DLQ", zap.Error(err), zap.Int("attempts", attempts))
	return c.toDLQ(ctx, log, route, m, err, attempts, &env)
}

// toDLQ повторяет отправку в DLQ до успеха или отмены ctx.
// Коммит более позднего offset той же партиции закоммитил бы и это сообщение, поэтому дальше не идём.
func (c *GroupConsumer) toDLQ(ctx context.Context, log *zap.Logger, route dispatch.Route, m kafka.Message, cause error, attempts int, env *events.Envelope) bool {
	for try := 1; ; try++ {
		err := c.dlq.Publish(ctx, route.Group, m, cause, attempts, env)
		if err == nil {
			c.metrics.EventsConsumed.WithLabelValues(route.Topic, route.Group, metrics.OutcomeDLQ).Inc()
			return true
		}
		c.metrics.EventsConsumed.WithLabelValues(route.Topic, route.Group, metrics.OutcomeFailed).Inc()

		wait := dlqBackoff(c.backoffBase, try)
		log.Error("failed to send message to DLQ, retrying",
			zap.Error(err),
			zap.Int("dlq_attempt", try),
			zap.Duration("backoff", wait),
		)
		if ctx.Err() != nil {
			return false
		}
		if err := c.sleeper.Sleep(ctx, wait); err != nil {
			return false
		}
	}
}

// handleWithRetry вызывает обработчик до maxAttempts раз с экспоненциальным backoff.
// Постоянные ошибки (битый payload, нет обработчика) не повторяются.
func (c *GroupConsumer) handleWithRetry(ctx context.Context, log *zap.Logger, route dispatch.Route, env events.Envelope) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := backoff(c.backoffBase, attempt)
			log.Info("retrying event",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.maxAttempts),
				zap.Duration("backoff", wait),
			)
			if err := c.sleeper.Sleep(ctx, wait); err != nil {
				return attempt - 1, errors.Join(lastErr, err)
			}
		}

		lastErr = c.registry.Dispatch(ctx, route, env)
		if lastErr == nil {
			return attempt, nil
		}
		if dispatch.IsPermanent(lastErr) {
			log.Warn("permanent error, not retrying", zap.Error(lastErr))
			return attempt, lastErr
		}

		if attempt < c.maxAttempts {
			c.metrics.EventsConsumed.WithLabelValues(route.Topic, route.Group, metrics.OutcomeRetry).Inc()
		}
		log.Warn("failed to handle event",
			zap.Error(lastErr),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
		)
	}
	return c.maxAttempts, lastErr
}

// Close закрывает kafka reader
func (c *GroupConsumer) Close() error {
	c.logger.Info("closing kafka consumer")
	return c.reader.Close()
}
