package events

import "fmt"

// Топики
const (
	TopicOrderCreated       = "order-created"
	TopicOrderStatusChanged = "order-status-changed"
	TopicCartUpdated        = "cart-updated"
	TopicProductEvents      = "product-events"
	TopicUserEvents         = "user-events"
	// TopicMediaEvents зарезервирован, producer'ов и consumer'ов пока нет
	TopicMediaEvents = "media-events"
)

// Consumer groups
const (
	GroupProfileUpdate  = "profile-update-group"
	GroupStatusChange   = "status-change-group"
	GroupAnalytics      = "analytics-group"
	GroupMediaService   = "media-service-group"
	GroupProductService = "product-service-group"
)

// Имена сервисов-владельцев топиков
const (
	ServiceOrder   = "order-service"
	ServiceProduct = "product-service"
	ServiceUser    = "user-service"
	ServiceMedia   = "media-service"
)

// TopicSpec строка каталога: кто пишет в топик, какие группы читают, какие kinds в нём едут
type TopicSpec struct {
	Topic    string
	Producer string
	Groups   []string
	Kinds    []Kind
}

var catalog = []TopicSpec{
	{Topic: TopicOrderCreated, Producer: ServiceOrder, Groups: []string{GroupProfileUpdate}, Kinds: []Kind{KindOrderCreated}},
	{Topic: TopicOrderStatusChanged, Producer: ServiceOrder, Groups: []string{GroupStatusChange}, Kinds: []Kind{KindOrderStatusChanged}},
	{Topic: TopicCartUpdated, Producer: ServiceOrder, Groups: []string{GroupAnalytics}, Kinds: []Kind{KindCartUpdated}},
	{Topic: TopicProductEvents, Producer: ServiceProduct, Groups: []string{GroupMediaService},
		Kinds: []Kind{KindProductCreated, KindProductUpdated, KindProductDeleted}},
	{Topic: TopicUserEvents, Producer: ServiceUser, Groups: []string{GroupProductService, GroupMediaService},
		Kinds: []Kind{KindUserDeleted}},
	{Topic: TopicMediaEvents, Producer: ServiceMedia},
}

// Catalog возвращает копию каталога топиков
func Catalog() []TopicSpec {
	out := make([]TopicSpec, len(catalog))
	for i, s := range catalog {
		out[i] = TopicSpec{
			Topic:    s.Topic,
			Producer: s.Producer,
			Groups:   append([]string(nil), s.Groups...),
			Kinds:    append([]Kind(nil), s.Kinds...),
		}
	}
	return out
}

// TopicFor возвращает топик, в который публикуется событие данного kind
func TopicFor(kind Kind) (string, error) {
	for _, s := range catalog {
		for _, k := range s.Kinds {
			if k == kind {
				return s.Topic, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q has no topic", ErrUnknownKind, kind)
}

// Subscribes сообщает, подписана ли группа на топик по каталогу
func Subscribes(topic, group string) bool {
	for _, s := range catalog {
		if s.Topic != topic {
			continue
		}
		for _, g := range s.Groups {
			if g == group {
				return true
			}
		}
	}
	return false
}
