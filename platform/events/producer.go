package events

import (
	"context"
	"fmt"
	"time"
)

// Publisher отправляет конверт в топик с ключом партиционирования.
// Повторов нет, с предшествующей записью в БД не транзакционно.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, env Envelope) error
}

// PublisherFunc адаптер функции к Publisher
type PublisherFunc func(ctx context.Context, topic, key string, env Envelope) error

func (f PublisherFunc) Publish(ctx context.Context, topic, key string, env Envelope) error {
	return f(ctx, topic, key, env)
}

// Producer типизированный фасад: строит конверт, выбирает топик по каталогу,
// ключом всегда служит id агрегата
type Producer struct {
	pub Publisher
	now func() time.Time
}

// NewProducer создаёт Producer поверх транспорта
func NewProducer(pub Publisher) *Producer {
	return &Producer{pub: pub, now: time.Now}
}

// WithClock подменяет часы (для тестов)
func (p *Producer) WithClock(now func() time.Time) *Producer {
	p.now = now
	return p
}

// Publish упаковывает событие и отправляет его; возвращает отправленный конверт
func (p *Producer) Publish(ctx context.Context, ev Event) (Envelope, error) {
	topic, err := TopicFor(ev.Kind())
	if err != nil {
		return Envelope{}, err
	}
	env, err := NewEnvelope(ev, p.now())
	if err != nil {
		return Envelope{}, err
	}
	if err := p.pub.Publish(ctx, topic, env.Key, env); err != nil {
		return env, fmt.Errorf("publish %s to %s (key=%s): %w", env.Kind, topic, env.Key, err)
	}
	return env, nil
}

func (p *Producer) PublishOrderCreated(ctx context.Context, ev OrderCreated) error {
	_, err := p.Publish(ctx, ev)
	return err
}

func (p *Producer) PublishOrderStatusChanged(ctx context.Context, ev OrderStatusChanged) error {
	_, err := p.Publish(ctx, ev)
	return err
}

func (p *Producer) PublishCartUpdated(ctx context.Context, ev CartUpdated) error {
	_, err := p.Publish(ctx, ev)
	return err
}

func (p *Producer) PublishProductCreated(ctx context.Context, productID, sellerID string, details ProductDetails) error {
	ev, err := NewProductCreated(productID, sellerID, details, p.now())
	if err != nil {
		return err
	}
	_, err = p.Publish(ctx, ev)
	return err
}

func (p *Producer) PublishProductUpdated(ctx context.Context, productID, sellerID string, details ProductDetails) error {
	ev, err := NewProductUpdated(productID, sellerID, details, p.now())
	if err != nil {
		return err
	}
	_, err = p.Publish(ctx, ev)
	return err
}

func (p *Producer) PublishProductDeleted(ctx context.Context, productID, sellerID string) error {
	ev, err := NewProductDeleted(productID, sellerID, p.now())
	if err != nil {
		return err
	}
	_, err = p.Publish(ctx, ev)
	return err
}

func (p *Producer) PublishUserDeleted(ctx context.Context, userID, userRole string) error {
	_, err := p.Publish(ctx, UserDeleted{UserID: userID, UserRole: userRole})
	return err
}
