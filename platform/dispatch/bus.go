package dispatch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/events"
)

// Message опубликованное в шину сообщение
type Message struct {
	Topic    string
	Key      string
	Envelope events.Envelope
}

// DeadLetter сообщение, которое группа так и не смогла обработать
type DeadLetter struct {
	Route    Route
	Envelope events.Envelope
	Err      error
	Attempts int
}

// Bus in-memory реализация events.Publisher поверх Registry.
// Каждая группа получает свою копию сообщения (как отдельный consumer group в kafka),
// внутри группы доставка FIFO, значит и порядок по ключу сохраняется.
// Политика ошибок повторяет kafka consumer: maxAttempts попыток подряд, затем dead letter.
type Bus struct {
	registry    *Registry
	logger      *zap.Logger
	maxAttempts int

	mu        sync.Mutex
	queues    map[Route][]events.Envelope
	published []Message
	dead      []DeadLetter
}

// NewBus создаёт шину; maxAttempts <= 0 трактуется как 1
func NewBus(registry *Registry, logger *zap.Logger, maxAttempts int) *Bus {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Bus{
		registry:    registry,
		logger:      logger,
		maxAttempts: maxAttempts,
		queues:      make(map[Route][]events.Envelope),
	}
}

// Publish ставит конверт в очередь каждой группы, подписанной на topic.
// Повторная публикация того же конверта эквивалентна redelivery брокером.
func (b *Bus) Publish(_ context.Context, topic, key string, env events.Envelope) error {
	routes := b.registry.RoutesForTopic(topic)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, Message{Topic: topic, Key: key, Envelope: env})
	for _, route := range routes {
		b.queues[route] = append(b.queues[route], env)
	}
	return nil
}

// Drain доставляет сообщения, пока все очереди не опустеют.
// Сообщения, опубликованные обработчиками во время Drain, тоже доставляются.
func (b *Bus) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		route, env, ok := b.next()
		if !ok {
			return nil
		}
		b.deliver(ctx, route, env)
	}
}

func (b *Bus) next() (Route, events.Envelope, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// маршруты обходятся в детерминированном порядке
	for _, route := range b.registry.Routes() {
		q := b.queues[route]
		if len(q) == 0 {
			continue
		}
		env := q[0]
		b.queues[route] = q[1:]
		return route, env, true
	}
	return Route{}, events.Envelope{}, false
}

func (b *Bus) deliver(ctx context.Context, route Route, env events.Envelope) {
	var lastErr error
	attempt := 0
	for attempt < b.maxAttempts {
		attempt++
		lastErr = b.registry.Dispatch(ctx, route, env)
		if lastErr == nil {
			return
		}
		b.logger.Warn("bus delivery failed",
			zap.Error(lastErr),
			zap.String("route", route.String()),
			zap.String("event_id", env.EventID),
			zap.Int("attempt", attempt),
		)
		if IsPermanent(lastErr) {
			break
		}
	}

	b.mu.Lock()
	b.dead = append(b.dead, DeadLetter{Route: route, Envelope: env, Err: lastErr, Attempts: attempt})
	b.mu.Unlock()
}

// Published все опубликованные сообщения в порядке публикации
func (b *Bus) Published() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.published...)
}

// PublishedTo сообщения конкретного топика
func (b *Bus) PublishedTo(topic string) []Message {
	var out []Message
	for _, m := range b.Published() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// DeadLetters сообщения, исчерпавшие попытки
func (b *Bus) DeadLetters() []DeadLetter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DeadLetter(nil), b.dead...)
}

// Pending сколько сообщений ждёт доставки
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, q := range b.queues {
		n += len(q)
	}
	return n
}
