package observability

import (
	"github.com/segmentio/kafka-go"
)

// HeaderCarrier адаптирует заголовки kafka.Message к propagation.TextMapCarrier.
// Через него traceparent/baggage едут от publisher'а к consumer'у вместе с событием.
type HeaderCarrier struct {
	headers *[]kafka.Header
}

// NewHeaderCarrier создаёт carrier поверх среза заголовков сообщения
func NewHeaderCarrier(headers *[]kafka.Header) HeaderCarrier {
	if *headers == nil {
		*headers = []kafka.Header{}
	}
	return HeaderCarrier{headers: headers}
}

// Get возвращает значение первого заголовка с таким ключом
func (c HeaderCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set перезаписывает заголовок или добавляет новый
func (c HeaderCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

// Keys возвращает все ключи заголовков
func (c HeaderCarrier) Keys() []string {
	out := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		out = append(out, h.Key)
	}
	return out
}
