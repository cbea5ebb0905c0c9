package dispatch

import (
	"errors"
	"fmt"

	"github.com/shestoi/GoMarket/platform/events"
)

// ProcessingError событие не применено; строгие обработчики возвращают его,
// чтобы транспорт повторил доставку
type ProcessingError struct {
	Route   Route
	EventID string
	Kind    events.Kind
	Err     error
}

// NewProcessingError оборачивает ошибку обработки конверта
func NewProcessingError(route Route, env events.Envelope, err error) *ProcessingError {
	return &ProcessingError{Route: route, EventID: env.EventID, Kind: env.Kind, Err: err}
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %s (event_id=%s) on %s: %v", e.Kind, e.EventID, e.Route, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// ParseError конверт или payload не разбирается; повтор не поможет
type ParseError struct {
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsPermanent true для ошибок, которые не исчезнут при повторной доставке
// (битый JSON, неизвестный kind, невалидный payload). Такие сообщения сразу уходят в DLQ.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var perr *ParseError
	var verr *events.ValidationError
	return errors.As(err, &perr) ||
		errors.As(err, &verr) ||
		errors.Is(err, events.ErrMalformedPayload) ||
		errors.Is(err, events.ErrUnknownKind) ||
		errors.Is(err, ErrNoHandler)
}
