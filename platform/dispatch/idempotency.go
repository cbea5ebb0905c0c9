package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/events"
)

// ProcessedEventsStore хранит ключи обработанных событий для дедупликации по event_id
type ProcessedEventsStore interface {
	// MarkProcessed сохраняет key как обработанный на ttl. Повторный вызов безопасен.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) error
	// IsProcessed true если key уже обработан и ttl не истёк
	IsProcessed(ctx context.Context, key string) (bool, error)
}

// ProcessedKey ключ дедупликации: одно и то же событие независимо обрабатывается каждой группой
func ProcessedKey(group, eventID string) string {
	return "processed:" + group + ":" + eventID
}

// Deduplicate middleware пропускает уже обработанные группой события.
// Отметка ставится только после успешной обработки, поэтому упавшее событие будет повторено.
func Deduplicate(store ProcessedEventsStore, ttl time.Duration, logger *zap.Logger) Middleware {
	return func(route Route, next Handler) Handler {
		return func(ctx context.Context, env events.Envelope) error {
			key := ProcessedKey(route.Group, env.EventID)

			done, err := store.IsProcessed(ctx, key)
			if err != nil {
				return fmt.Errorf("check processed %s: %w", key, err)
			}
			if done {
				logger.Info("event already processed, skipping",
					zap.String("event_id", env.EventID),
					zap.String("kind", string(env.Kind)),
					zap.String("topic", route.Topic),
					zap.String("group", route.Group),
				)
				return nil
			}

			steps := &stepTracker{store: store, ttl: ttl, prefix: key, logger: logger}
			if err := next(context.WithValue(ctx, stepTrackerKey{}, steps), env); err != nil {
				return err
			}

			if err := store.MarkProcessed(ctx, key, ttl); err != nil {
				// событие уже применено; при повторной доставке оно применится ещё раз
				logger.Error("failed to mark event as processed",
					zap.Error(err),
					zap.String("event_id", env.EventID),
					zap.String("group", route.Group),
				)
			}
			return nil
		}
	}
}

type stepTrackerKey struct{}

// stepTracker отметки выполненных шагов одного события внутри Deduplicate
type stepTracker struct {
	store  ProcessedEventsStore
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// Step выполняет fn не более одного раза для шага name текущего события.
// Нужен обработчикам из нескольких независимых записей: если упала запись N,
// повторная доставка не применяет заново уже выполненные записи 1..N-1.
// Вне Deduplicate просто вызывает fn.
func Step(ctx context.Context, name string, fn func() error) error {
	steps, ok := ctx.Value(stepTrackerKey{}).(*stepTracker)
	if !ok {
		return fn()
	}

	key := steps.prefix + ":" + name
	done, err := steps.store.IsProcessed(ctx, key)
	if err != nil {
		return fmt.Errorf("check step %s: %w", key, err)
	}
	if done {
		steps.logger.Debug("event step already applied, skipping", zap.String("step", key))
		return nil
	}

	if err := fn(); err != nil {
		return err
	}
	if err := steps.store.MarkProcessed(ctx, key, steps.ttl); err != nil {
		steps.logger.Error("failed to mark event step as processed", zap.Error(err), zap.String("step", key))
	}
	return nil
}

// MemoryProcessedEventsStore in-memory реализация с TTL и ленивой очисткой.
// Годится для local и тестов; в docker используется redis.
type MemoryProcessedEventsStore struct {
	mu     sync.Mutex
	events map[string]time.Time // key -> expiresAt
	now    func() time.Time
}

// NewMemoryProcessedEventsStore создаёт пустой store
func NewMemoryProcessedEventsStore() *MemoryProcessedEventsStore {
	return &MemoryProcessedEventsStore{
		events: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *MemoryProcessedEventsStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked()
	s.events[key] = s.now().Add(ttl)
	return nil
}

func (s *MemoryProcessedEventsStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.events[key]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		delete(s.events, key)
		return false, nil
	}
	return true, nil
}

// Len количество живых записей
func (s *MemoryProcessedEventsStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupExpiredLocked()
	return len(s.events)
}

func (s *MemoryProcessedEventsStore) cleanupExpiredLocked() {
	now := s.now()
	for key, expiresAt := range s.events {
		if !now.Before(expiresAt) {
			delete(s.events, key)
		}
	}
}

// RedisProcessedEventsStore хранит ключи в redis с TTL
type RedisProcessedEventsStore struct {
	client redis.Cmdable
}

// NewRedisProcessedEventsStore создаёт store поверх redis клиента
func NewRedisProcessedEventsStore(client redis.Cmdable) *RedisProcessedEventsStore {
	return &RedisProcessedEventsStore{client: client}
}

func (s *RedisProcessedEventsStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisProcessedEventsStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	err := s.client.Get(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return true, nil
}
