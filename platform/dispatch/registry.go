// Package dispatch связывает (topic, consumer group) с функцией-обработчиком.
// Привязки регистрируются явно при старте сервиса и проверяются без брокера.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shestoi/GoMarket/platform/events"
)

// Handler обрабатывает один конверт. nil означает, что сообщение можно коммитить.
type Handler func(ctx context.Context, env events.Envelope) error

// Route пара топик + consumer group
type Route struct {
	Topic string
	Group string
}

func (r Route) String() string {
	return r.Topic + "/" + r.Group
}

// Middleware оборачивает обработчик конкретного маршрута
type Middleware func(route Route, next Handler) Handler

// ErrNoHandler для маршрута ничего не зарегистрировано
var ErrNoHandler = errors.New("no handler registered")

type binding struct {
	name    string
	handler Handler
}

// Registry таблица (topic, group) -> handler
type Registry struct {
	mu     sync.RWMutex
	routes map[Route]binding
}

// NewRegistry создаёт пустую таблицу маршрутов
func NewRegistry() *Registry {
	return &Registry{routes: make(map[Route]binding)}
}

// Register привязывает обработчик к маршруту. Маршрут должен быть в каталоге топиков,
// повторная регистрация того же маршрута запрещена.
func (r *Registry) Register(topic, group, name string, h Handler, mws ...Middleware) error {
	if h == nil {
		return fmt.Errorf("register %s/%s: nil handler", topic, group)
	}
	if !events.Subscribes(topic, group) {
		return fmt.Errorf("register %s/%s: group is not subscribed to topic in catalog", topic, group)
	}

	route := Route{Topic: topic, Group: group}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](route, h)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.routes[route]; ok {
		return fmt.Errorf("register %s: already bound to %q", route, existing.name)
	}
	r.routes[route] = binding{name: name, handler: h}
	return nil
}

// Dispatch вызывает обработчик маршрута. Паника обработчика превращается в ProcessingError.
func (r *Registry) Dispatch(ctx context.Context, route Route, env events.Envelope) (err error) {
	r.mu.RLock()
	b, ok := r.routes[route]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, route)
	}

	defer func() {
		if p := recover(); p != nil {
			err = &ProcessingError{
				Route:   route,
				EventID: env.EventID,
				Kind:    env.Kind,
				Err:     fmt.Errorf("handler %s panicked: %v", b.name, p),
			}
		}
	}()
	return b.handler(ctx, env)
}

// Handles сообщает, есть ли обработчик у маршрута
func (r *Registry) Handles(route Route) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.routes[route]
	return ok
}

// HandlerName имя обработчика маршрута (для логов)
func (r *Registry) HandlerName(route Route) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.routes[route].name
}

// Routes все маршруты в детерминированном порядке
func (r *Registry) Routes() []Route {
	r.mu.RLock()
	out := make([]Route, 0, len(r.routes))
	for route := range r.routes {
		out = append(out, route)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

// Groups группа -> топики, на которые у неё есть обработчики
func (r *Registry) Groups() map[string][]string {
	out := make(map[string][]string)
	for _, route := range r.Routes() {
		out[route.Group] = append(out[route.Group], route.Topic)
	}
	return out
}

// RoutesForTopic маршруты всех групп, читающих топик
func (r *Registry) RoutesForTopic(topic string) []Route {
	var out []Route
	for _, route := range r.Routes() {
		if route.Topic == topic {
			out = append(out, route)
		}
	}
	return out
}
