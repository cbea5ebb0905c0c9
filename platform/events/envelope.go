// Package events описывает доменные события маркетплейса: конверт, payload'ы,
// каталог топиков и типизированный producer поверх абстрактного Publisher.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion версия формата конверта
const SchemaVersion = 1

// Kind дискриминант события
type Kind string

const (
	KindOrderCreated       Kind = "order.created"
	KindOrderStatusChanged Kind = "order.status_changed"
	KindCartUpdated        Kind = "cart.updated"
	KindProductCreated     Kind = "product.created"
	KindProductUpdated     Kind = "product.updated"
	KindProductDeleted     Kind = "product.deleted"
	KindUserDeleted        Kind = "user.deleted"
)

// ErrUnknownKind возвращается при декодировании конверта с неизвестным kind
var ErrUnknownKind = errors.New("unknown event kind")

// ErrMalformedPayload payload не удалось распарсить
var ErrMalformedPayload = errors.New("malformed event payload")

// Event контракт любого доменного события
type Event interface {
	Kind() Kind
	// AggregateKey ключ партиционирования: события с одинаковым ключом доставляются по порядку
	AggregateKey() string
	Validate() error
}

// Envelope конверт, в котором событие едет по шине
type Envelope struct {
	EventID   string          `json:"event_id"`
	Kind      Kind            `json:"kind"`
	Version   int             `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope валидирует событие и упаковывает его в конверт с новым event_id
func NewEnvelope(ev Event, now time.Time) (Envelope, error) {
	if err := ev.Validate(); err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", ev.Kind(), err)
	}
	return Envelope{
		EventID:   uuid.NewString(),
		Kind:      ev.Kind(),
		Version:   SchemaVersion,
		Timestamp: now.UTC(),
		Key:       ev.AggregateKey(),
		Payload:   payload,
	}, nil
}

// Marshal сериализует конверт для отправки
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEnvelope разбирает конверт и проверяет обязательные поля
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.EventID == "" {
		return Envelope{}, &ValidationError{Field: "event_id", Message: "is required"}
	}
	if env.Kind == "" {
		return Envelope{}, &ValidationError{Field: "kind", Message: "is required"}
	}
	return env, nil
}

// Decode разбирает payload в конкретный тип по Kind и валидирует его
func (e Envelope) Decode() (Event, error) {
	var ev Event
	switch e.Kind {
	case KindOrderCreated:
		ev = &OrderCreated{}
	case KindOrderStatusChanged:
		ev = &OrderStatusChanged{}
	case KindCartUpdated:
		ev = &CartUpdated{}
	case KindProductCreated, KindProductUpdated, KindProductDeleted:
		ev = &ProductEvent{}
	case KindUserDeleted:
		ev = &UserDeleted{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}

	if err := json.Unmarshal(e.Payload, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, e.Kind, err)
	}
	if ev.Kind() != e.Kind {
		return nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("envelope says %s, payload says %s", e.Kind, ev.Kind())}
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

// As декодирует конверт и приводит событие к ожидаемому типу
func As[T Event](env Envelope) (T, error) {
	var zero T
	ev, err := env.Decode()
	if err != nil {
		return zero, err
	}
	typed, ok := ev.(T)
	if !ok {
		return zero, &ValidationError{Field: "kind", Message: fmt.Sprintf("%s does not decode to %T", env.Kind, zero)}
	}
	return typed, nil
}

// ValidationError ошибка валидации записи события
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Message)
}

func required(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}
